package posts

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/scribe/pkg/pagination"
	"github.com/JaimeStill/scribe/pkg/query"
	"github.com/JaimeStill/scribe/pkg/repository"
)

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a post repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "posts"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Post], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Title", "Keyword")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count posts: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanPost)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Post, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	p, err := repository.QueryOne(ctx, r.db, q, args, scanPost)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &p, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Post, error) {
	if err := cmd.Content.Validate(); err != nil {
		return nil, err
	}

	raw, err := json.Marshal(cmd.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidContent, err)
	}

	q := `
		INSERT INTO posts(id, keyword, status, rewrite_count, content)
		VALUES ($1, $2, $3, 0, $4)
		RETURNING ` + columns

	p, err := repository.QueryOne(ctx, r.db, q, []any{uuid.New(), cmd.Keyword, StatusDraft, raw}, scanPost)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("post created", "id", p.ID, "title", p.Title)
	return &p, nil
}

func (r *repo) ListByStatus(
	ctx context.Context,
	status Status,
	limit int,
	order query.SortField,
) ([]Post, error) {
	s := string(status)
	q, args := query.
		NewBuilder(projection, order).
		WhereEquals("Status", &s).
		BuildLimit(limit)

	items, err := repository.QueryMany(ctx, r.db, q, args, scanPost)
	if err != nil {
		return nil, fmt.Errorf("query %s posts: %w", status, err)
	}
	return items, nil
}

func (r *repo) ReplaceContent(ctx context.Context, id uuid.UUID, content Content) (*Post, error) {
	if err := content.Validate(); err != nil {
		return nil, err
	}

	raw, err := json.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidContent, err)
	}

	q := `
		UPDATE posts
		SET content = $2, status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $4
		RETURNING ` + columns

	p, err := repository.QueryOne(ctx, r.db, q, []any{id, raw, StatusDraft, StatusRewrite}, scanPost)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.conflictOrMissing(ctx, id)
		}
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info(
		"post content replaced",
		"post_id", p.ID,
		"title", p.Title,
		"from", StatusRewrite,
		"to", StatusDraft,
	)
	return &p, nil
}

func (r *repo) DeleteMarked(ctx context.Context) (int, error) {
	n, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (int64, error) {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM post_reviews
			WHERE post_id IN (SELECT id FROM posts WHERE status = $1)`,
			StatusToBeDeleted,
		); err != nil {
			return 0, fmt.Errorf("delete reviews: %w", err)
		}

		return repository.ExecAffected(ctx, tx, "DELETE FROM posts WHERE status = $1", StatusToBeDeleted)
	})
	if err != nil {
		return 0, fmt.Errorf("delete marked posts: %w", err)
	}

	if n > 0 {
		r.logger.Info("marked posts deleted", "count", n)
	}
	return int(n), nil
}

func (r *repo) Counts(ctx context.Context) (Counts, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM posts GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("count posts by status: %w", err)
	}
	defer rows.Close()

	counts := make(Counts, len(statuses))
	for _, s := range statuses {
		counts[s] = 0
	}

	for rows.Next() {
		var (
			s Status
			n int
		)
		if err := rows.Scan(&s, &n); err != nil {
			return nil, err
		}
		counts[s] = n
	}

	return counts, rows.Err()
}

func (r *repo) conflictOrMissing(ctx context.Context, id uuid.UUID) error {
	p, err := r.Find(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: post is %s, not %s", ErrStatusConflict, p.Status, StatusRewrite)
}

// ApplyTransition persists t for post id on e, which may be an open
// transaction. The update is conditioned on the post still being in t.From.
func ApplyTransition(ctx context.Context, e repository.Executor, id uuid.UUID, t Transition) error {
	if !CanTransition(t.From, t.To) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.From, t.To)
	}

	inc := 0
	if t.IncrementRewrite {
		inc = 1
	}

	err := repository.ExecExpectOne(ctx, e, `
		UPDATE posts
		SET status = $2, rewrite_count = rewrite_count + $3, updated_at = NOW()
		WHERE id = $1 AND status = $4`,
		id, t.To, inc, t.From,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: post %s is no longer %s", ErrStatusConflict, id, t.From)
	}
	return err
}
