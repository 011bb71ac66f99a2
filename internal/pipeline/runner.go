// Package pipeline runs the review and rewrite loop in sequential batches
// and schedules the batches and maintenance on fixed intervals.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/JaimeStill/scribe/internal/humanizer"
	"github.com/JaimeStill/scribe/internal/posts"
	"github.com/JaimeStill/scribe/internal/ratelimit"
	"github.com/JaimeStill/scribe/internal/reviews"
	"github.com/JaimeStill/scribe/internal/similarity"
	"github.com/JaimeStill/scribe/pkg/query"
)

const (
	DefaultReviewBatch        = 10
	DefaultRewriteBatch       = 5
	DefaultDuplicateThreshold = 0.85
)

// ErrDuplicateContent rejects ingested content too close to a stored post.
var ErrDuplicateContent = errors.New("content duplicates an existing post")

// Posts is the post store the batches read and sweep.
type Posts interface {
	Create(ctx context.Context, cmd posts.CreateCommand) (*posts.Post, error)
	ListByStatus(ctx context.Context, status posts.Status, limit int, order query.SortField) ([]posts.Post, error)
	DeleteMarked(ctx context.Context) (int, error)
	Counts(ctx context.Context) (posts.Counts, error)
}

type Reviewer interface {
	Review(ctx context.Context, postID uuid.UUID) (*reviews.Review, error)
}

type Rewriter interface {
	Rewrite(ctx context.Context, postID uuid.UUID) (bool, error)
}

// Embedder turns text into a vector. It is optional; without it ingest
// skips the near-duplicate check.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// Embeddings stores post vectors for the near-duplicate check.
type Embeddings interface {
	Save(ctx context.Context, postID uuid.UUID, vec []float32) error
	Nearest(ctx context.Context, vec []float32) (similarity.Match, error)
}

// Usage is the credential ledger view. It is optional.
type Usage interface {
	Snapshot(ctx context.Context) ([]ratelimit.KeyUsage, error)
	Summary(ctx context.Context) (string, error)
	Cleanup(ctx context.Context) (int64, error)
}

type Config struct {
	Posts     Posts
	Reviews   Reviewer
	Rewrites  Rewriter
	Humanizer  *humanizer.Humanizer
	Usage      Usage
	Embedder   Embedder
	Embeddings Embeddings

	ReviewBatch        int
	RewriteBatch       int
	DuplicateThreshold float64
}

// ReviewSummary counts one review batch.
type ReviewSummary struct {
	Reviewed int `json:"reviewed"`
	Passed   int `json:"passed"`
	Failed   int `json:"failed"`
	Errors   int `json:"errors"`
}

// RewriteSummary counts one rewrite batch.
type RewriteSummary struct {
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// UsageReport is the per-key usage and its one-line summary.
type UsageReport struct {
	Keys    []ratelimit.KeyUsage `json:"keys"`
	Summary string               `json:"summary"`
}

// IngestResult is a stored draft and the humanizer changes applied to it.
type IngestResult struct {
	Post    *posts.Post `json:"post"`
	Changes []string    `json:"changes"`
}

// Runner executes batches one post at a time. Batches never run
// concurrently with each other.
type Runner struct {
	posts     Posts
	reviews   Reviewer
	rewrites  Rewriter
	humanizer  *humanizer.Humanizer
	usage      Usage
	embedder   Embedder
	embeddings Embeddings
	logger     *slog.Logger

	reviewBatch  int
	rewriteBatch int
	threshold    float64

	mu sync.Mutex
}

func New(cfg Config, logger *slog.Logger) *Runner {
	r := &Runner{
		posts:        cfg.Posts,
		reviews:      cfg.Reviews,
		rewrites:     cfg.Rewrites,
		humanizer:    cfg.Humanizer,
		usage:        cfg.Usage,
		embedder:     cfg.Embedder,
		embeddings:   cfg.Embeddings,
		logger:       logger.With("system", "pipeline"),
		reviewBatch:  cfg.ReviewBatch,
		rewriteBatch: cfg.RewriteBatch,
		threshold:    cfg.DuplicateThreshold,
	}
	if r.humanizer == nil {
		r.humanizer = humanizer.New(nil, nil)
	}
	if r.reviewBatch <= 0 {
		r.reviewBatch = DefaultReviewBatch
	}
	if r.rewriteBatch <= 0 {
		r.rewriteBatch = DefaultRewriteBatch
	}
	if r.threshold <= 0 {
		r.threshold = DefaultDuplicateThreshold
	}
	return r
}

func (r *Runner) Handler() *Handler {
	return NewHandler(r, r.logger)
}

// ReviewDrafts reviews up to limit drafts, oldest first. A zero limit uses
// the configured batch size. Per-post failures are counted, not returned.
func (r *Runner) ReviewDrafts(ctx context.Context, limit int) (ReviewSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if limit <= 0 {
		limit = r.reviewBatch
	}

	var sum ReviewSummary
	drafts, err := r.posts.ListByStatus(ctx, posts.StatusDraft, limit, posts.OldestCreated)
	if err != nil {
		return sum, fmt.Errorf("list drafts: %w", err)
	}

	for _, p := range drafts {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		rv, err := r.reviews.Review(ctx, p.ID)
		if err != nil {
			sum.Errors++
			r.logger.Error("review failed", "post_id", p.ID, "title", p.Title, "error", err)
			continue
		}

		sum.Reviewed++
		if rv.Passed {
			sum.Passed++
		} else {
			sum.Failed++
		}
	}

	r.logger.Info("review batch complete",
		"reviewed", sum.Reviewed,
		"passed", sum.Passed,
		"failed", sum.Failed,
		"errors", sum.Errors,
	)
	return sum, nil
}

// RewritePending rewrites up to limit posts awaiting rewrite, least
// recently updated first.
func (r *Runner) RewritePending(ctx context.Context, limit int) (RewriteSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if limit <= 0 {
		limit = r.rewriteBatch
	}

	var sum RewriteSummary
	pending, err := r.posts.ListByStatus(ctx, posts.StatusRewrite, limit, posts.OldestUpdated)
	if err != nil {
		return sum, fmt.Errorf("list rewrites: %w", err)
	}

	for _, p := range pending {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		sum.Processed++
		ok, err := r.rewrites.Rewrite(ctx, p.ID)
		switch {
		case err != nil:
			sum.Failed++
			r.logger.Error("rewrite failed", "post_id", p.ID, "title", p.Title, "error", err)
		case !ok:
			sum.Failed++
		default:
			sum.Succeeded++
		}
	}

	r.logger.Info("rewrite batch complete",
		"processed", sum.Processed,
		"succeeded", sum.Succeeded,
		"failed", sum.Failed,
	)
	return sum, nil
}

// SweepDeleted removes posts marked for deletion.
func (r *Runner) SweepDeleted(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, err := r.posts.DeleteMarked(ctx)
	if err != nil {
		return 0, fmt.Errorf("sweep deleted: %w", err)
	}
	if n > 0 {
		r.logger.Info("deleted posts swept", "count", n)
	}
	return n, nil
}

// CleanupUsage prunes old usage buckets. It is a no-op without a ledger.
func (r *Runner) CleanupUsage(ctx context.Context) (int64, error) {
	if r.usage == nil {
		return 0, nil
	}
	return r.usage.Cleanup(ctx)
}

// Ingest humanizes generated content and stores it as a draft. When an
// embedder is configured, content whose embedding is at least the duplicate
// threshold similar to a recent post is rejected with ErrDuplicateContent.
// Embedding failures skip the check rather than block ingest.
func (r *Runner) Ingest(ctx context.Context, keyword string, c posts.Content) (*IngestResult, error) {
	res := r.humanizer.Humanize(c)
	if err := res.Content.Validate(); err != nil {
		return nil, err
	}

	vec := r.embed(ctx, res.Content)
	if vec != nil {
		m, err := r.embeddings.Nearest(ctx, vec)
		switch {
		case err != nil:
			r.logger.Warn("duplicate check skipped", "keyword", keyword, "error", err)
		case m.Similarity >= r.threshold:
			r.logger.Info("ingest rejected as duplicate",
				"keyword", keyword,
				"post_id", m.PostID,
				"similarity", m.Similarity,
			)
			return nil, fmt.Errorf("%w: post %s at similarity %.3f", ErrDuplicateContent, m.PostID, m.Similarity)
		}
	}

	p, err := r.posts.Create(ctx, posts.CreateCommand{Keyword: keyword, Content: res.Content})
	if err != nil {
		return nil, err
	}

	if vec != nil {
		if err := r.embeddings.Save(ctx, p.ID, vec); err != nil {
			r.logger.Warn("embedding not saved", "post_id", p.ID, "error", err)
		}
	}

	r.logger.Info("post ingested", "post_id", p.ID, "title", p.Title, "changes", len(res.Changes))
	return &IngestResult{Post: p, Changes: res.Changes}, nil
}

// embed returns the vector for c's topic text, or nil when the check is not
// configured or the embedding call fails.
func (r *Runner) embed(ctx context.Context, c posts.Content) []float32 {
	if r.embedder == nil || r.embeddings == nil {
		return nil
	}
	vec, err := r.embedder.EmbedText(ctx, topicText(c))
	if err != nil {
		r.logger.Warn("embedding failed", "title", c.Title, "error", err)
		return nil
	}
	return vec
}

// topicText is what a post is about: title, description, and headings.
func topicText(c posts.Content) string {
	parts := []string{c.Title, c.Meta.Description}
	for _, s := range c.Sections {
		parts = append(parts, s.Heading)
	}
	return strings.Join(parts, "\n")
}

// Usage reports credential usage. It is empty without a ledger.
func (r *Runner) Usage(ctx context.Context) (*UsageReport, error) {
	if r.usage == nil {
		return &UsageReport{Keys: []ratelimit.KeyUsage{}}, nil
	}

	keys, err := r.usage.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	summary, err := r.usage.Summary(ctx)
	if err != nil {
		return nil, err
	}
	return &UsageReport{Keys: keys, Summary: summary}, nil
}

// Counts reports posts per status.
func (r *Runner) Counts(ctx context.Context) (posts.Counts, error) {
	return r.posts.Counts(ctx)
}
