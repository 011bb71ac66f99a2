package rewrite_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/JaimeStill/scribe/internal/completion"
	"github.com/JaimeStill/scribe/internal/humanizer"
	"github.com/JaimeStill/scribe/internal/posts"
	"github.com/JaimeStill/scribe/internal/reviews"
	"github.com/JaimeStill/scribe/internal/rewrite"
	"github.com/JaimeStill/scribe/internal/rubric"
	"github.com/JaimeStill/scribe/pkg/routes"
)

type firstChoice struct{}

func (firstChoice) IntN(int) int { return 0 }

type fakePosts struct {
	posts    map[uuid.UUID]*posts.Post
	replaced []posts.Content
}

func (f *fakePosts) Find(_ context.Context, id uuid.UUID) (*posts.Post, error) {
	p, ok := f.posts[id]
	if !ok {
		return nil, posts.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePosts) ReplaceContent(_ context.Context, id uuid.UUID, c posts.Content) (*posts.Post, error) {
	p := f.posts[id]
	if p.Status != posts.StatusRewrite {
		return nil, posts.ErrStatusConflict
	}
	f.replaced = append(f.replaced, c)
	p.Content = c
	p.Title = c.Title
	p.Status = posts.StatusDraft
	cp := *p
	return &cp, nil
}

type fakeReviews struct {
	latest *reviews.Review
}

func (f *fakeReviews) Latest(context.Context, uuid.UUID) (*reviews.Review, error) {
	if f.latest == nil {
		return nil, reviews.ErrNotFound
	}
	return f.latest, nil
}

type fakeRules struct {
	text string
	err  error
}

func (f fakeRules) GeneratePromptRules(context.Context) (string, error) { return f.text, f.err }

type fakeGenerator struct {
	outputs []string
	err     error
	reqs    []completion.Request
}

func (f *fakeGenerator) GenerateText(_ context.Context, req completion.Request) (string, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return "", f.err
	}
	out := f.outputs[0]
	f.outputs = f.outputs[1:]
	return out, nil
}

func validContent() posts.Content {
	return posts.Content{
		Title: "Cloud Costs: Seven Ways to Cut Your Monthly Bill",
		Slug:  "cut-cloud-costs",
		Meta:  posts.Meta{Title: "Cut Cloud Costs", Description: "Trim your bill.", Keywords: []string{"cloud"}},
		Hero:  posts.Hero{Hook: "Most teams overpay by a third.", Subtitle: "A field guide."},
		Sections: []posts.Section{
			{ID: "s1", Heading: "Rightsize first", Level: 2, Content: "We leverage idle capacity."},
			{ID: "s2", Heading: "Reserve capacity", Level: 2, Content: "Commit where load is steady."},
			{ID: "s3", Heading: "Watch egress", Level: 2, Content: "Transfer fees hide in plain sight."},
		},
		FAQ: []posts.FAQ{{Question: "Is it hard?", Answer: "No."}},
		Conclusion: posts.Conclusion{
			Summary: "Small steps add up.",
			CTA:     posts.ConclusionCTA{Text: "Start with one account.", ButtonText: "Audit now", Action: "/audit"},
		},
		InternalLinks: []string{"/blog/reserved-instances"},
	}
}

// cutOff returns the encoded content ending partway through the third
// section, the way a response that hit the token limit arrives.
func cutOff(t *testing.T) string {
	t.Helper()
	full := encode(t, validContent())
	i := strings.Index(full, "Transfer fees")
	if i < 0 {
		t.Fatal("third section not found in encoded content")
	}
	return full[:i+len("Transfer")]
}

func encode(t *testing.T, c posts.Content) string {
	t.Helper()
	b, err := json.Marshal(c)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

type fixture struct {
	id      uuid.UUID
	posts   *fakePosts
	reviews *fakeReviews
	gen     *fakeGenerator
	sys     rewrite.System
}

func newFixture(t *testing.T, status posts.Status, rules fakeRules, outputs ...string) *fixture {
	t.Helper()
	id := uuid.New()
	instructions := "Remove the colon."

	f := &fixture{
		id: id,
		posts: &fakePosts{posts: map[uuid.UUID]*posts.Post{
			id: {ID: id, Keyword: "cloud costs", Title: "Old", Status: status, RewriteCount: 1, Content: validContent()},
		}},
		reviews: &fakeReviews{latest: &reviews.Review{
			PostID:              id,
			AttemptNumber:       1,
			Score:               55,
			Issues:              []rubric.Issue{{Code: "COLON_IN_TITLE", Message: "Title has a colon", Penalty: -25, Location: "title"}},
			RewriteInstructions: &instructions,
		}},
		gen: &fakeGenerator{outputs: outputs},
	}

	f.sys = rewrite.New(rewrite.Config{
		Posts:     f.posts,
		Reviews:   f.reviews,
		Rules:     rules,
		Generator: f.gen,
		Humanizer: humanizer.New(nil, firstChoice{}),
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return f
}

func TestRewrite(t *testing.T) {
	t.Run("stores humanized content", func(t *testing.T) {
		f := newFixture(t, posts.StatusRewrite, fakeRules{text: "LEARNED RULES BLOCK"}, encode(t, validContent()))

		ok, err := f.sys.Rewrite(context.Background(), f.id)
		if err != nil || !ok {
			t.Fatalf("Rewrite = %v, %v; want true", ok, err)
		}

		if len(f.gen.reqs) != 1 {
			t.Fatalf("requests = %d, want 1", len(f.gen.reqs))
		}
		req := f.gen.reqs[0]
		if req.Temperature != 0.7 || req.MaxTokens != 8192 {
			t.Errorf("request settings = %v/%d", req.Temperature, req.MaxTokens)
		}
		for _, want := range []string{"LEARNED RULES BLOCK", "attempt 1 of 2", `"cloud costs"`} {
			if !strings.Contains(req.System, want) {
				t.Errorf("system prompt missing %q", want)
			}
		}
		for _, want := range []string{"COLON_IN_TITLE: Title has a colon (at title)", "Remove the colon.", "CURRENT SCORE: 55/100"} {
			if !strings.Contains(req.Prompt, want) {
				t.Errorf("user prompt missing %q", want)
			}
		}

		stored := f.posts.posts[f.id]
		if stored.Status != posts.StatusDraft {
			t.Errorf("status = %s, want draft", stored.Status)
		}
		if stored.Content.Title != "Seven Ways to Cut Your Monthly Bill" {
			t.Errorf("title = %q, want humanized", stored.Content.Title)
		}
		if got := stored.Content.Sections[0].Content; got != "We use idle capacity." {
			t.Errorf("section = %q, want humanized", got)
		}
	})

	t.Run("strict retry recovers", func(t *testing.T) {
		f := newFixture(t, posts.StatusRewrite, fakeRules{}, "not json at all", encode(t, validContent()))

		ok, err := f.sys.Rewrite(context.Background(), f.id)
		if err != nil || !ok {
			t.Fatalf("Rewrite = %v, %v; want true", ok, err)
		}

		if len(f.gen.reqs) != 2 {
			t.Fatalf("requests = %d, want 2", len(f.gen.reqs))
		}
		retry := f.gen.reqs[1]
		if !strings.HasPrefix(retry.System, "You must output valid JSON only.") {
			t.Errorf("retry system = %q", retry.System)
		}
		if retry.Prompt != "Fix this JSON and return valid JSON:\nnot json at all" {
			t.Errorf("retry prompt = %q", retry.Prompt)
		}
		if retry.Temperature != 0.3 {
			t.Errorf("retry temperature = %v", retry.Temperature)
		}
	})

	t.Run("cut-off output goes through strict retry", func(t *testing.T) {
		f := newFixture(t, posts.StatusRewrite, fakeRules{}, cutOff(t), encode(t, validContent()))

		ok, err := f.sys.Rewrite(context.Background(), f.id)
		if err != nil || !ok {
			t.Fatalf("Rewrite = %v, %v; want true", ok, err)
		}
		if len(f.gen.reqs) != 2 {
			t.Fatalf("requests = %d, want 2", len(f.gen.reqs))
		}
		if len(f.posts.replaced) != 1 {
			t.Fatalf("replaced %d times, want 1", len(f.posts.replaced))
		}

		stored := f.posts.replaced[0]
		if len(stored.Sections) != 3 || stored.Sections[2].Content != "Transfer fees hide in plain sight." {
			t.Errorf("sections = %+v, want all three intact", stored.Sections)
		}
		if stored.Conclusion.Summary == "" || len(stored.FAQ) != 1 {
			t.Errorf("conclusion/faq lost: %+v / %+v", stored.Conclusion, stored.FAQ)
		}
	})

	t.Run("cut-off output twice writes nothing", func(t *testing.T) {
		f := newFixture(t, posts.StatusRewrite, fakeRules{}, cutOff(t), cutOff(t))

		ok, err := f.sys.Rewrite(context.Background(), f.id)
		if err != nil || ok {
			t.Fatalf("Rewrite = %v, %v; want false, nil", ok, err)
		}
		if len(f.posts.replaced) != 0 {
			t.Errorf("replaced %d times, want 0", len(f.posts.replaced))
		}
		if got := len(f.posts.posts[f.id].Content.Sections); got != 3 {
			t.Errorf("stored sections = %d, want original 3", got)
		}
	})

	t.Run("second failure writes nothing", func(t *testing.T) {
		f := newFixture(t, posts.StatusRewrite, fakeRules{}, `{"title":"only"}`, "still broken")

		ok, err := f.sys.Rewrite(context.Background(), f.id)
		if err != nil || ok {
			t.Fatalf("Rewrite = %v, %v; want false, nil", ok, err)
		}
		if len(f.posts.replaced) != 0 {
			t.Errorf("replaced %d times, want 0", len(f.posts.replaced))
		}
		if f.posts.posts[f.id].Status != posts.StatusRewrite {
			t.Errorf("status changed to %s", f.posts.posts[f.id].Status)
		}
	})

	t.Run("rules failure is not fatal", func(t *testing.T) {
		f := newFixture(t, posts.StatusRewrite, fakeRules{err: errors.New("db down")}, encode(t, validContent()))

		ok, err := f.sys.Rewrite(context.Background(), f.id)
		if err != nil || !ok {
			t.Fatalf("Rewrite = %v, %v; want true", ok, err)
		}
	})
}

func TestRewriteRejects(t *testing.T) {
	tests := []struct {
		name    string
		status  posts.Status
		latest  func(*reviews.Review) *reviews.Review
		genErr  error
		wantErr error
	}{
		{name: "draft post", status: posts.StatusDraft, wantErr: rewrite.ErrNotRewritable},
		{name: "published post", status: posts.StatusPublished, wantErr: rewrite.ErrNotRewritable},
		{
			name:    "latest review passed",
			status:  posts.StatusRewrite,
			latest:  func(r *reviews.Review) *reviews.Review { r.Passed = true; return r },
			wantErr: rewrite.ErrNoFailedReview,
		},
		{
			name:    "no review",
			status:  posts.StatusRewrite,
			latest:  func(*reviews.Review) *reviews.Review { return nil },
			wantErr: rewrite.ErrNoFailedReview,
		},
		{
			name:    "generation failure",
			status:  posts.StatusRewrite,
			genErr:  completion.ErrRetriesExhausted,
			wantErr: completion.ErrRetriesExhausted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.status, fakeRules{})
			if tt.latest != nil {
				f.reviews.latest = tt.latest(f.reviews.latest)
			}
			f.gen.err = tt.genErr

			ok, err := f.sys.Rewrite(context.Background(), f.id)
			if ok || !errors.Is(err, tt.wantErr) {
				t.Fatalf("Rewrite = %v, %v; want false, %v", ok, err, tt.wantErr)
			}
			if len(f.posts.replaced) != 0 {
				t.Error("content replaced on rejection")
			}
		})
	}

	t.Run("missing post", func(t *testing.T) {
		f := newFixture(t, posts.StatusRewrite, fakeRules{})
		if _, err := f.sys.Rewrite(context.Background(), uuid.New()); !errors.Is(err, posts.ErrNotFound) {
			t.Fatalf("err = %v, want ErrNotFound", err)
		}
	})
}

func TestHandlerRewrite(t *testing.T) {
	tests := []struct {
		name   string
		status posts.Status
		path   func(uuid.UUID) string
		code   int
		want   string
	}{
		{"rewritten", posts.StatusRewrite, func(id uuid.UUID) string { return "/rewrites/" + id.String() }, http.StatusOK, `"rewritten":true`},
		{"not rewritable", posts.StatusDraft, func(id uuid.UUID) string { return "/rewrites/" + id.String() }, http.StatusConflict, `"error"`},
		{"bad id", posts.StatusRewrite, func(uuid.UUID) string { return "/rewrites/nope" }, http.StatusBadRequest, `"error"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.status, fakeRules{}, encode(t, validContent()))
			mux := http.NewServeMux()
			routes.Register(mux, f.sys.Handler().Routes())

			req := httptest.NewRequest(http.MethodPost, tt.path(f.id), nil)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			if rec.Code != tt.code {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.code, rec.Body)
			}
			if !strings.Contains(rec.Body.String(), tt.want) {
				t.Errorf("body %s missing %s", rec.Body, tt.want)
			}
		})
	}
}
