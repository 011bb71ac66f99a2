package posts_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/JaimeStill/scribe/internal/posts"
	"github.com/JaimeStill/scribe/pkg/pagination"
	"github.com/JaimeStill/scribe/pkg/query"
	"github.com/JaimeStill/scribe/pkg/routes"
)

type fakeSystem struct {
	posts   map[uuid.UUID]posts.Post
	created []posts.CreateCommand
	filters posts.Filters
}

func (f *fakeSystem) Handler() *posts.Handler { return nil }

func (f *fakeSystem) List(_ context.Context, page pagination.PageRequest, filters posts.Filters) (*pagination.PageResult[posts.Post], error) {
	f.filters = filters
	var items []posts.Post
	for _, p := range f.posts {
		items = append(items, p)
	}
	res := pagination.NewPageResult(items, len(items), page.Page, page.PageSize)
	return &res, nil
}

func (f *fakeSystem) Find(_ context.Context, id uuid.UUID) (*posts.Post, error) {
	p, ok := f.posts[id]
	if !ok {
		return nil, posts.ErrNotFound
	}
	return &p, nil
}

func (f *fakeSystem) Create(_ context.Context, cmd posts.CreateCommand) (*posts.Post, error) {
	if err := cmd.Content.Validate(); err != nil {
		return nil, err
	}
	f.created = append(f.created, cmd)
	return &posts.Post{ID: uuid.New(), Keyword: cmd.Keyword, Status: posts.StatusDraft, Content: cmd.Content}, nil
}

func (f *fakeSystem) ListByStatus(context.Context, posts.Status, int, query.SortField) ([]posts.Post, error) {
	return nil, nil
}

func (f *fakeSystem) ReplaceContent(context.Context, uuid.UUID, posts.Content) (*posts.Post, error) {
	return nil, nil
}

func (f *fakeSystem) DeleteMarked(context.Context) (int, error) { return 0, nil }

func (f *fakeSystem) Counts(context.Context) (posts.Counts, error) {
	return posts.Counts{posts.StatusDraft: 2, posts.StatusPublished: 1}, nil
}

func newMux(sys posts.System) *http.ServeMux {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := posts.NewHandler(sys, logger, pagination.Config{DefaultPageSize: 20, MaxPageSize: 100})
	mux := http.NewServeMux()
	routes.Register(mux, h.Routes())
	return mux
}

func TestHandlerFind(t *testing.T) {
	id := uuid.New()
	sys := &fakeSystem{posts: map[uuid.UUID]posts.Post{id: {ID: id, Status: posts.StatusDraft}}}
	mux := newMux(sys)

	tests := []struct {
		name string
		path string
		want int
	}{
		{"found", "/posts/" + id.String(), http.StatusOK},
		{"missing", "/posts/" + uuid.NewString(), http.StatusNotFound},
		{"bad id", "/posts/not-a-uuid", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestHandlerCreate(t *testing.T) {
	sys := &fakeSystem{}
	mux := newMux(sys)

	body, _ := json.Marshal(posts.CreateCommand{Keyword: "cloud costs", Content: validContent()})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/posts", strings.NewReader(string(body))))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if len(sys.created) != 1 || sys.created[0].Keyword != "cloud costs" {
		t.Errorf("created = %+v", sys.created)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/posts", strings.NewReader(`{"keyword":"x","content":{}}`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid content status = %d, want 400", rec.Code)
	}
}

func TestHandlerListFilters(t *testing.T) {
	sys := &fakeSystem{}
	mux := newMux(sys)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/posts?status=rewrite&keyword=cloud", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if sys.filters.Status == nil || *sys.filters.Status != posts.StatusRewrite {
		t.Errorf("status filter = %v", sys.filters.Status)
	}
	if sys.filters.Keyword == nil || *sys.filters.Keyword != "cloud" {
		t.Errorf("keyword filter = %v", sys.filters.Keyword)
	}
}

func TestHandlerCounts(t *testing.T) {
	mux := newMux(&fakeSystem{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/posts/counts", nil))

	var got map[string]int
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got["draft"] != 2 || got["published"] != 1 {
		t.Errorf("counts = %v", got)
	}
}
