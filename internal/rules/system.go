package rules

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/scribe/internal/rubric"
	"github.com/JaimeStill/scribe/pkg/pagination"
)

// System defines the public contract for the rule learner.
type System interface {
	Handler() *Handler

	// LearnFromReview upserts one rule occurrence per mappable issue and
	// returns how many rules were newly created.
	LearnFromReview(ctx context.Context, src Source, issues []rubric.Issue) (int, error)

	// GeneratePromptRules renders the active rule set, or "" when empty.
	GeneratePromptRules(ctx context.Context) (string, error)

	List(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Rule], error)
	Find(ctx context.Context, id uuid.UUID) (*Rule, error)
	ByCategory(ctx context.Context, category Category) ([]Rule, error)
	Activate(ctx context.Context, id uuid.UUID) (*Rule, error)
	Deactivate(ctx context.Context, id uuid.UUID) (*Rule, error)
	Stats(ctx context.Context) (Stats, error)
}

type learner struct {
	store      Store
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates the rule learner over store.
func New(store Store, logger *slog.Logger, pagination pagination.Config) System {
	return &learner{
		store:      store,
		logger:     logger.With("system", "rules"),
		pagination: pagination,
	}
}

func (l *learner) Handler() *Handler {
	return NewHandler(l, l.logger, l.pagination)
}

func (l *learner) LearnFromReview(ctx context.Context, src Source, issues []rubric.Issue) (int, error) {
	created := 0

	for _, issue := range issues {
		learning, ok := Derive(issue)
		if !ok {
			continue
		}

		inserted, err := l.store.Upsert(ctx, learning, src)
		if err != nil {
			return created, fmt.Errorf("learn from %s: %w", issue.Code, err)
		}

		if inserted {
			created++
			l.logger.Info("rule learned", "rule", learning.Key.String(), "review_id", src.ReviewID)
		} else {
			l.logger.Debug("rule reinforced", "rule", learning.Key.String(), "review_id", src.ReviewID)
		}
	}

	return created, nil
}

func (l *learner) GeneratePromptRules(ctx context.Context) (string, error) {
	active, err := l.store.Active(ctx)
	if err != nil {
		return "", err
	}
	return Render(active), nil
}

func (l *learner) List(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Rule], error) {
	page.Normalize(l.pagination)
	return l.store.List(ctx, page, filters)
}

func (l *learner) Find(ctx context.Context, id uuid.UUID) (*Rule, error) {
	return l.store.Find(ctx, id)
}

func (l *learner) ByCategory(ctx context.Context, category Category) ([]Rule, error) {
	active, err := l.store.Active(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Rule, 0)
	for _, r := range active {
		if r.Category == category {
			out = append(out, r)
		}
	}
	return out, nil
}

func (l *learner) Activate(ctx context.Context, id uuid.UUID) (*Rule, error) {
	return l.setActive(ctx, id, true)
}

func (l *learner) Deactivate(ctx context.Context, id uuid.UUID) (*Rule, error) {
	return l.setActive(ctx, id, false)
}

func (l *learner) setActive(ctx context.Context, id uuid.UUID, active bool) (*Rule, error) {
	r, err := l.store.SetActive(ctx, id, active)
	if err != nil {
		return nil, err
	}
	l.logger.Info("rule state changed", "rule", r.Key.String(), "active", active)
	return r, nil
}

func (l *learner) Stats(ctx context.Context) (Stats, error) {
	active, err := l.store.Active(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Summarize(active), nil
}
