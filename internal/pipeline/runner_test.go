package pipeline_test

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

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/JaimeStill/scribe/internal/humanizer"
	"github.com/JaimeStill/scribe/internal/pipeline"
	"github.com/JaimeStill/scribe/internal/posts"
	"github.com/JaimeStill/scribe/internal/ratelimit"
	"github.com/JaimeStill/scribe/internal/reviews"
	"github.com/JaimeStill/scribe/internal/similarity"
	"github.com/JaimeStill/scribe/pkg/query"
	"github.com/JaimeStill/scribe/pkg/routes"
)

type listCall struct {
	status posts.Status
	limit  int
	order  query.SortField
}

type fakePosts struct {
	byStatus map[posts.Status][]posts.Post
	lists    []listCall
	created  []posts.CreateCommand
	deleted  int
}

func (f *fakePosts) Create(_ context.Context, cmd posts.CreateCommand) (*posts.Post, error) {
	if err := cmd.Content.Validate(); err != nil {
		return nil, err
	}
	f.created = append(f.created, cmd)
	return &posts.Post{ID: uuid.New(), Keyword: cmd.Keyword, Title: cmd.Content.Title, Status: posts.StatusDraft, Content: cmd.Content}, nil
}

func (f *fakePosts) ListByStatus(_ context.Context, status posts.Status, limit int, order query.SortField) ([]posts.Post, error) {
	f.lists = append(f.lists, listCall{status, limit, order})
	items := f.byStatus[status]
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (f *fakePosts) DeleteMarked(context.Context) (int, error) { return f.deleted, nil }

func (f *fakePosts) Counts(context.Context) (posts.Counts, error) {
	return posts.Counts{posts.StatusDraft: len(f.byStatus[posts.StatusDraft])}, nil
}

type fakeReviewer struct {
	passed map[uuid.UUID]bool
	fail   map[uuid.UUID]bool
}

func (f fakeReviewer) Review(_ context.Context, id uuid.UUID) (*reviews.Review, error) {
	if f.fail[id] {
		return nil, errors.New("llm unavailable")
	}
	return &reviews.Review{PostID: id, Passed: f.passed[id]}, nil
}

type fakeRewriter struct {
	results map[uuid.UUID]bool
	errs    map[uuid.UUID]error
	calls   []uuid.UUID
}

func (f *fakeRewriter) Rewrite(_ context.Context, id uuid.UUID) (bool, error) {
	f.calls = append(f.calls, id)
	return f.results[id], f.errs[id]
}

type fakeUsage struct {
	cleaned bool
}

func (f *fakeUsage) Snapshot(context.Context) ([]ratelimit.KeyUsage, error) {
	return []ratelimit.KeyUsage{{Hash: "abcd1234", Generation: ratelimit.Usage{RPD: 4}}}, nil
}

func (f *fakeUsage) Summary(context.Context) (string, error) {
	return "Key abcd...: gen=4/day, emb=0/day", nil
}

func (f *fakeUsage) Cleanup(context.Context) (int64, error) {
	f.cleaned = true
	return 12, nil
}

type firstChoice struct{}

func (firstChoice) IntN(int) int { return 0 }

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func postsWith(status posts.Status, n int) []posts.Post {
	out := make([]posts.Post, n)
	for i := range out {
		out[i] = posts.Post{ID: uuid.New(), Status: status}
	}
	return out
}

func TestReviewDrafts(t *testing.T) {
	drafts := postsWith(posts.StatusDraft, 12)
	fp := &fakePosts{byStatus: map[posts.Status][]posts.Post{posts.StatusDraft: drafts}}
	rv := fakeReviewer{
		passed: map[uuid.UUID]bool{drafts[0].ID: true, drafts[1].ID: true},
		fail:   map[uuid.UUID]bool{drafts[2].ID: true},
	}

	r := pipeline.New(pipeline.Config{Posts: fp, Reviews: rv}, discard())

	sum, err := r.ReviewDrafts(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}

	want := pipeline.ReviewSummary{Reviewed: 9, Passed: 2, Failed: 7, Errors: 1}
	if diff := cmp.Diff(want, sum); diff != "" {
		t.Errorf("summary mismatch (-want +got):\n%s", diff)
	}

	wantList := []listCall{{posts.StatusDraft, pipeline.DefaultReviewBatch, posts.OldestCreated}}
	if diff := cmp.Diff(wantList, fp.lists, cmp.AllowUnexported(listCall{})); diff != "" {
		t.Errorf("list mismatch (-want +got):\n%s", diff)
	}
}

func TestRewritePending(t *testing.T) {
	pending := postsWith(posts.StatusRewrite, 4)
	fp := &fakePosts{byStatus: map[posts.Status][]posts.Post{posts.StatusRewrite: pending}}
	rw := &fakeRewriter{
		results: map[uuid.UUID]bool{pending[0].ID: true, pending[3].ID: true},
		errs:    map[uuid.UUID]error{pending[1].ID: errors.New("boom")},
	}

	r := pipeline.New(pipeline.Config{Posts: fp, Rewrites: rw}, discard())

	sum, err := r.RewritePending(context.Background(), 3)
	if err != nil {
		t.Fatal(err)
	}

	want := pipeline.RewriteSummary{Processed: 3, Succeeded: 1, Failed: 2}
	if diff := cmp.Diff(want, sum); diff != "" {
		t.Errorf("summary mismatch (-want +got):\n%s", diff)
	}
	if fp.lists[0].order != posts.OldestUpdated {
		t.Errorf("order = %+v, want oldest updated", fp.lists[0].order)
	}
	if len(rw.calls) != 3 {
		t.Errorf("calls = %d, want 3", len(rw.calls))
	}
}

func TestRewritePendingStopsOnCancel(t *testing.T) {
	fp := &fakePosts{byStatus: map[posts.Status][]posts.Post{posts.StatusRewrite: postsWith(posts.StatusRewrite, 3)}}
	rw := &fakeRewriter{}
	r := pipeline.New(pipeline.Config{Posts: fp, Rewrites: rw}, discard())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := r.RewritePending(ctx, 0); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(rw.calls) != 0 {
		t.Errorf("calls = %d, want 0", len(rw.calls))
	}
}

func TestMaintenance(t *testing.T) {
	fp := &fakePosts{deleted: 2}
	usage := &fakeUsage{}
	r := pipeline.New(pipeline.Config{Posts: fp, Usage: usage}, discard())
	ctx := context.Background()

	if n, err := r.SweepDeleted(ctx); err != nil || n != 2 {
		t.Errorf("SweepDeleted = %d, %v; want 2", n, err)
	}
	if n, err := r.CleanupUsage(ctx); err != nil || n != 12 || !usage.cleaned {
		t.Errorf("CleanupUsage = %d, %v; want 12", n, err)
	}

	noUsage := pipeline.New(pipeline.Config{Posts: fp}, discard())
	if n, err := noUsage.CleanupUsage(ctx); err != nil || n != 0 {
		t.Errorf("CleanupUsage without ledger = %d, %v", n, err)
	}
}

func ingestContent() posts.Content {
	return posts.Content{
		Title:    "Budgets: A Practical Guide for Small Teams",
		Slug:     "budgets",
		Meta:     posts.Meta{Title: "Budgets", Description: "d", Keywords: []string{"budgets"}},
		Hero:     posts.Hero{Hook: "Most budgets fail.", Subtitle: "Plan the month."},
		Sections: []posts.Section{{ID: "s1", Heading: "Start", Level: 2, Content: "It is **simple**."}},
		FAQ:      []posts.FAQ{},
		Conclusion: posts.Conclusion{
			Summary: "Done.",
			CTA:     posts.ConclusionCTA{Text: "Try it this week.", ButtonText: "Start", Action: "/start"},
		},
		InternalLinks: []string{},
	}
}

type fakeEmbedder struct {
	vec   []float32
	err   error
	texts []string
}

func (f *fakeEmbedder) EmbedText(_ context.Context, text string) ([]float32, error) {
	f.texts = append(f.texts, text)
	return f.vec, f.err
}

type fakeEmbeddings struct {
	nearest similarity.Match
	err     error
	saved   map[uuid.UUID][]float32
}

func (f *fakeEmbeddings) Save(_ context.Context, id uuid.UUID, vec []float32) error {
	if f.saved == nil {
		f.saved = make(map[uuid.UUID][]float32)
	}
	f.saved[id] = vec
	return nil
}

func (f *fakeEmbeddings) Nearest(context.Context, []float32) (similarity.Match, error) {
	return f.nearest, f.err
}

func TestIngest(t *testing.T) {
	fp := &fakePosts{}
	r := pipeline.New(pipeline.Config{Posts: fp, Humanizer: humanizer.New(nil, firstChoice{})}, discard())

	res, err := r.Ingest(context.Background(), "budgets", ingestContent())
	if err != nil {
		t.Fatal(err)
	}
	if res.Post.Title != "A Practical Guide for Small Teams" {
		t.Errorf("title = %q", res.Post.Title)
	}
	if got := fp.created[0].Content.Sections[0].Content; got != "It's simple." {
		t.Errorf("content = %q", got)
	}
	if len(res.Changes) == 0 {
		t.Error("expected change log")
	}
}

func TestIngestDuplicateCheck(t *testing.T) {
	existing := uuid.New()
	vec := []float32{0.1, 0.2, 0.3}

	tests := []struct {
		name        string
		embedErr    error
		nearest     similarity.Match
		nearestErr  error
		wantErr     error
		wantCreated int
		wantSaved   bool
	}{
		{name: "near duplicate rejected", nearest: similarity.Match{PostID: existing, Similarity: 0.91}, wantErr: pipeline.ErrDuplicateContent},
		{name: "at threshold rejected", nearest: similarity.Match{PostID: existing, Similarity: 0.85}, wantErr: pipeline.ErrDuplicateContent},
		{name: "distinct stored", nearest: similarity.Match{PostID: existing, Similarity: 0.4}, wantCreated: 1, wantSaved: true},
		{name: "nothing stored yet", wantCreated: 1, wantSaved: true},
		{name: "embedding failure skips check", embedErr: errors.New("quota"), wantCreated: 1},
		{name: "lookup failure skips check", nearestErr: errors.New("db down"), wantCreated: 1, wantSaved: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fp := &fakePosts{}
			emb := &fakeEmbedder{vec: vec, err: tt.embedErr}
			store := &fakeEmbeddings{nearest: tt.nearest, err: tt.nearestErr}
			r := pipeline.New(pipeline.Config{
				Posts:      fp,
				Humanizer:  humanizer.New(nil, firstChoice{}),
				Embedder:   emb,
				Embeddings: store,
			}, discard())

			res, err := r.Ingest(context.Background(), "budgets", ingestContent())
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if len(fp.created) != tt.wantCreated {
				t.Fatalf("created = %d, want %d", len(fp.created), tt.wantCreated)
			}
			if tt.wantErr != nil && !strings.Contains(err.Error(), existing.String()) {
				t.Errorf("err %q does not name the matching post", err)
			}
			if tt.wantSaved != (len(store.saved) == 1) {
				t.Fatalf("saved = %v, want saved %v", store.saved, tt.wantSaved)
			}
			if tt.wantSaved {
				if diff := cmp.Diff(vec, store.saved[res.Post.ID]); diff != "" {
					t.Errorf("saved vector mismatch (-want +got):\n%s", diff)
				}
			}
			if len(emb.texts) != 1 || !strings.Contains(emb.texts[0], "A Practical Guide for Small Teams") {
				t.Errorf("embedded texts = %q, want the humanized title", emb.texts)
			}
		})
	}
}

func TestIngestDuplicateHandler(t *testing.T) {
	r := pipeline.New(pipeline.Config{
		Posts:      &fakePosts{},
		Embedder:   &fakeEmbedder{vec: []float32{1}},
		Embeddings: &fakeEmbeddings{nearest: similarity.Match{PostID: uuid.New(), Similarity: 0.99}},
	}, discard())

	mux := http.NewServeMux()
	routes.Register(mux, r.Handler().Routes())

	body, err := json.Marshal(pipeline.IngestRequest{Keyword: "budgets", Content: ingestContent()})
	if err != nil {
		t.Fatal(err)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("POST", "/pipeline/ingest", strings.NewReader(string(body))))

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409: %s", rec.Code, rec.Body)
	}
}

func TestHandler(t *testing.T) {
	fp := &fakePosts{
		byStatus: map[posts.Status][]posts.Post{posts.StatusDraft: postsWith(posts.StatusDraft, 2)},
		deleted:  1,
	}
	r := pipeline.New(pipeline.Config{
		Posts:    fp,
		Reviews:  fakeReviewer{},
		Rewrites: &fakeRewriter{},
		Usage:    &fakeUsage{},
	}, discard())

	mux := http.NewServeMux()
	routes.Register(mux, r.Handler().Routes())

	tests := []struct {
		method string
		path   string
		body   string
		code   int
		want   string
	}{
		{"POST", "/pipeline/review?limit=1", "", http.StatusOK, `"reviewed":1`},
		{"POST", "/pipeline/rewrite", "", http.StatusOK, `"processed":0`},
		{"POST", "/pipeline/sweep", "", http.StatusOK, `"deleted":1`},
		{"GET", "/pipeline/usage", "", http.StatusOK, `gen=4/day`},
		{"POST", "/pipeline/ingest", `{"keyword":"k","content":{"title":"t"}}`, http.StatusBadRequest, `"error"`},
		{"POST", "/pipeline/ingest", `{`, http.StatusBadRequest, `"error"`},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
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
