package rules

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/JaimeStill/scribe/pkg/pagination"
	"github.com/JaimeStill/scribe/pkg/query"
	"github.com/JaimeStill/scribe/pkg/repository"
)

// Store persists learned rules and their audit trail.
type Store interface {
	// Upsert records one occurrence of l from src. It reports whether the
	// rule was newly created. A repeated audit entry is not an error.
	Upsert(ctx context.Context, l Learning, src Source) (bool, error)

	// Active returns active rules in priority order.
	Active(ctx context.Context) ([]Rule, error)

	List(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Rule], error)
	Find(ctx context.Context, id uuid.UUID) (*Rule, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*Rule, error)
}

type store struct {
	db *sql.DB
}

// NewStore returns the postgres-backed rule Store.
func NewStore(db *sql.DB) Store {
	return &store{db: db}
}

const upsertRule = `
	INSERT INTO prompt_learnings(id, category, rule_type, rule_value, reason, failure_count, last_failure_at)
	VALUES ($1, $2, $3, $4, $5, 1, NOW())
	ON CONFLICT (category, rule_type, rule_value) DO UPDATE
	SET failure_count = prompt_learnings.failure_count + 1,
		reason = prompt_learnings.reason || ' | ' || left(EXCLUDED.reason, 200),
		last_failure_at = NOW()
	RETURNING id, (xmax = 0) AS inserted`

const insertSource = `
	INSERT INTO learning_sources(id, learning_id, post_id, review_id, issue_code)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (learning_id, review_id, issue_code) DO NOTHING`

type upserted struct {
	id       uuid.UUID
	inserted bool
}

func (s *store) Upsert(ctx context.Context, l Learning, src Source) (bool, error) {
	res, err := repository.WithTx(ctx, s.db, func(tx *sql.Tx) (upserted, error) {
		var u upserted
		if err := tx.QueryRowContext(
			ctx, upsertRule,
			uuid.New(), l.Category, l.Type, l.Value, l.Reason,
		).Scan(&u.id, &u.inserted); err != nil {
			return u, fmt.Errorf("upsert rule %s: %w", l.Key, err)
		}

		if _, err := tx.ExecContext(
			ctx, insertSource,
			uuid.New(), u.id, src.PostID, src.ReviewID, l.IssueCode,
		); err != nil {
			return u, fmt.Errorf("record rule source: %w", err)
		}

		return u, nil
	})
	if err != nil {
		return false, err
	}
	return res.inserted, nil
}

func (s *store) Active(ctx context.Context) ([]Rule, error) {
	active := true
	q, args := query.
		NewBuilder(projection, priority...).
		WhereEquals("IsActive", &active).
		Build()

	items, err := repository.QueryMany(ctx, s.db, q, args, scanRule)
	if err != nil {
		return nil, fmt.Errorf("query active rules: %w", err)
	}
	return items, nil
}

func (s *store) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Rule], error) {
	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Value", "Reason")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := s.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count rules: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, s.db, pageSQL, pageArgs, scanRule)
	if err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (s *store) Find(ctx context.Context, id uuid.UUID) (*Rule, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	r, err := repository.QueryOne(ctx, s.db, q, args, scanRule)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &r, nil
}

func (s *store) SetActive(ctx context.Context, id uuid.UUID, active bool) (*Rule, error) {
	q := `
		UPDATE prompt_learnings SET is_active = $2
		WHERE id = $1
		RETURNING ` + columns

	r, err := repository.QueryOne(ctx, s.db, q, []any{id, active}, scanRule)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &r, nil
}
