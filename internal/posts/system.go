package posts

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/scribe/pkg/pagination"
	"github.com/JaimeStill/scribe/pkg/query"
)

// System defines the public contract for post domain operations.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Post], error)

	Find(ctx context.Context, id uuid.UUID) (*Post, error)
	Create(ctx context.Context, cmd CreateCommand) (*Post, error)

	// ListByStatus returns up to limit posts in status, in the given order.
	ListByStatus(ctx context.Context, status Status, limit int, order query.SortField) ([]Post, error)

	// ReplaceContent swaps in a validated rewrite and returns the post to draft.
	// Only posts currently in rewrite are touched.
	ReplaceContent(ctx context.Context, id uuid.UUID, content Content) (*Post, error)

	// DeleteMarked removes to_be_deleted posts along with their reviews.
	DeleteMarked(ctx context.Context) (int, error)

	Counts(ctx context.Context) (Counts, error)
}

// OldestCreated orders drafts for review.
var OldestCreated = query.SortField{Field: "CreatedAt"}

// OldestUpdated orders rewrite candidates.
var OldestUpdated = query.SortField{Field: "UpdatedAt"}
