package reviews

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/scribe/internal/posts"
	"github.com/JaimeStill/scribe/internal/rubric"
	"github.com/JaimeStill/scribe/internal/rules"
	"github.com/JaimeStill/scribe/pkg/pagination"
)

// System defines the public contract for the review engine.
type System interface {
	Handler() *Handler

	// Review scores the post, records the review, and applies the
	// resulting lifecycle transition.
	Review(ctx context.Context, postID uuid.UUID) (*Review, error)

	// Assess scores content without persisting anything. The qualitative
	// check is skipped when qualitative is false.
	Assess(ctx context.Context, content posts.Content, keyword string, qualitative bool) Assessment

	List(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Review], error)
	Find(ctx context.Context, id uuid.UUID) (*Review, error)
	Latest(ctx context.Context, postID uuid.UUID) (*Review, error)
	History(ctx context.Context, postID uuid.UUID) ([]Review, error)
}

// PostFinder loads posts for review.
type PostFinder interface {
	Find(ctx context.Context, id uuid.UUID) (*posts.Post, error)
}

// Learner turns failed review issues into persistent rules.
type Learner interface {
	LearnFromReview(ctx context.Context, src rules.Source, issues []rubric.Issue) (int, error)
}

// Config wires the engine's collaborators. Generator and Learner are optional.
type Config struct {
	Store      Store
	Posts      PostFinder
	Generator  Generator
	Learner    Learner
	Rubric     *rubric.Rubric
	Pagination pagination.Config
	Now        func() time.Time
}

type engine struct {
	store      Store
	posts      PostFinder
	gen        Generator
	learner    Learner
	rubric     *rubric.Rubric
	checker    Checker
	pagination pagination.Config
	now        func() time.Time
	logger     *slog.Logger
}

// New creates the review engine.
func New(cfg Config, logger *slog.Logger) System {
	r := cfg.Rubric
	if r == nil {
		r = rubric.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &engine{
		store:      cfg.Store,
		posts:      cfg.Posts,
		gen:        cfg.Generator,
		learner:    cfg.Learner,
		rubric:     r,
		checker:    NewChecker(r),
		pagination: cfg.Pagination,
		now:        now,
		logger:     logger.With("system", "reviews"),
	}
}

func (e *engine) Handler() *Handler {
	return NewHandler(e, e.logger, e.pagination)
}

func (e *engine) Review(ctx context.Context, postID uuid.UUID) (*Review, error) {
	post, err := e.posts.Find(ctx, postID)
	if err != nil {
		return nil, err
	}

	if !post.Status.Reviewable() {
		_, err := posts.Decide(*post, false)
		return nil, err
	}

	a := e.Assess(ctx, post.Content, post.Keyword, true)

	t, err := posts.Decide(*post, a.Passed)
	if err != nil {
		return nil, err
	}

	rv := Review{
		ID:                  uuid.New(),
		PostID:              post.ID,
		AttemptNumber:       post.Attempt(),
		Score:               a.Score,
		Passed:              a.Passed,
		Issues:              a.Issues,
		Bonuses:             a.Bonuses,
		RewriteInstructions: a.RewriteInstructions,
		ReviewedAt:          e.now(),
	}

	saved, err := e.store.Record(ctx, rv, t)
	if err != nil {
		e.logger.Error("review not recorded", "post_id", post.ID, "title", post.Content.Title, "error", err)
		return nil, err
	}

	if !saved.Passed && len(saved.Issues) > 0 && e.learner != nil {
		n, err := e.learner.LearnFromReview(ctx, rules.Source{PostID: post.ID, ReviewID: saved.ID}, saved.Issues)
		if err != nil {
			e.logger.Warn("learning from review failed", "post_id", post.ID, "review_id", saved.ID, "error", err)
		} else if n > 0 {
			e.logger.Info("learned new rules", "post_id", post.ID, "count", n)
		}
	}

	e.logger.Info(
		"post reviewed",
		"post_id", post.ID,
		"title", post.Content.Title,
		"score", saved.Score,
		"passed", saved.Passed,
		"attempt", saved.AttemptNumber,
		"from", t.From,
		"to", t.To,
	)

	return &saved, nil
}

func (e *engine) Assess(ctx context.Context, content posts.Content, keyword string, qualitative bool) Assessment {
	automated := e.checker.Check(content)

	var q Qualitative
	if qualitative && e.gen != nil {
		res, err := QualitativeCheck(ctx, e.gen, e.rubric, content, keyword)
		if err != nil {
			e.logger.Warn("qualitative review degraded to automated checks", "title", content.Title, "error", err)
		} else {
			q = res
			e.logger.Debug("qualitative review", "title", content.Title, "model_score", q.Score, "issues", len(q.Issues))
		}
	}

	return Assess(e.rubric, automated, q)
}

func (e *engine) List(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Review], error) {
	page.Normalize(e.pagination)
	return e.store.List(ctx, page, filters)
}

func (e *engine) Find(ctx context.Context, id uuid.UUID) (*Review, error) {
	return e.store.Find(ctx, id)
}

func (e *engine) Latest(ctx context.Context, postID uuid.UUID) (*Review, error) {
	return e.store.Latest(ctx, postID)
}

func (e *engine) History(ctx context.Context, postID uuid.UUID) ([]Review, error) {
	return e.store.History(ctx, postID)
}
