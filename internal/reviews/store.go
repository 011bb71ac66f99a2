package reviews

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/JaimeStill/scribe/internal/posts"
	"github.com/JaimeStill/scribe/internal/rubric"
	"github.com/JaimeStill/scribe/pkg/pagination"
	"github.com/JaimeStill/scribe/pkg/query"
	"github.com/JaimeStill/scribe/pkg/repository"
)

// Store persists the review trail.
type Store interface {
	// Record appends rv and applies t to its post in one transaction.
	Record(ctx context.Context, rv Review, t posts.Transition) (Review, error)

	List(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Review], error)
	Find(ctx context.Context, id uuid.UUID) (*Review, error)
	Latest(ctx context.Context, postID uuid.UUID) (*Review, error)
	History(ctx context.Context, postID uuid.UUID) ([]Review, error)
}

type store struct {
	db *sql.DB
}

// NewStore returns the postgres-backed review Store.
func NewStore(db *sql.DB) Store {
	return &store{db: db}
}

func (s *store) Record(ctx context.Context, rv Review, t posts.Transition) (Review, error) {
	issues, err := json.Marshal(nonNil(rv.Issues))
	if err != nil {
		return Review{}, fmt.Errorf("encode issues: %w", err)
	}
	bonuses, err := json.Marshal(nonNil(rv.Bonuses))
	if err != nil {
		return Review{}, fmt.Errorf("encode bonuses: %w", err)
	}

	q := `
		INSERT INTO post_reviews(id, post_id, attempt_number, score, passed, issues, bonuses, rewrite_instructions)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + columns

	args := []any{
		rv.ID,
		rv.PostID,
		rv.AttemptNumber,
		rv.Score,
		rv.Passed,
		issues,
		bonuses,
		rv.RewriteInstructions,
	}

	return repository.WithTx(ctx, s.db, func(tx *sql.Tx) (Review, error) {
		saved, err := repository.QueryOne(ctx, tx, q, args, scanReview)
		if err != nil {
			return Review{}, repository.MapError(err, posts.ErrNotFound, ErrDuplicate)
		}

		if err := posts.ApplyTransition(ctx, tx, rv.PostID, t); err != nil {
			return Review{}, err
		}

		return saved, nil
	})
}

func (s *store) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Review], error) {
	qb := query.NewBuilder(projection, defaultSort)
	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := s.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count reviews: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, s.db, pageSQL, pageArgs, scanReview)
	if err != nil {
		return nil, fmt.Errorf("query reviews: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (s *store) Find(ctx context.Context, id uuid.UUID) (*Review, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	r, err := repository.QueryOne(ctx, s.db, q, args, scanReview)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &r, nil
}

func (s *store) Latest(ctx context.Context, postID uuid.UUID) (*Review, error) {
	q, args := query.
		NewBuilder(projection, query.SortField{Field: "AttemptNumber", Descending: true}).
		WhereEquals("PostID", postID).
		BuildFirst()

	r, err := repository.QueryOne(ctx, s.db, q, args, scanReview)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &r, nil
}

func (s *store) History(ctx context.Context, postID uuid.UUID) ([]Review, error) {
	q, args := query.
		NewBuilder(projection, query.SortField{Field: "AttemptNumber"}).
		WhereEquals("PostID", postID).
		Build()

	items, err := repository.QueryMany(ctx, s.db, q, args, scanReview)
	if err != nil {
		return nil, fmt.Errorf("query review history: %w", err)
	}
	return items, nil
}

func nonNil[T rubric.Issue | rubric.Bonus](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
