// Package posts owns generated blog posts: their structured content, the
// draft/rewrite/published/to_be_deleted lifecycle, and the persistence and
// HTTP surface other domains use to move a post through review.
package posts

import (
	"time"

	"github.com/google/uuid"
)

// Post is a generated content artifact moving through review.
type Post struct {
	ID           uuid.UUID `json:"id"`
	Keyword      string    `json:"keyword"`
	Title        string    `json:"title"`
	Status       Status    `json:"status"`
	RewriteCount int       `json:"rewrite_count"`
	Content      Content   `json:"content"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Attempt is the attempt number the next review of p records.
func (p Post) Attempt() int {
	return p.RewriteCount + 1
}

// CreateCommand registers freshly generated content as a draft.
type CreateCommand struct {
	Keyword string  `json:"keyword"`
	Content Content `json:"content"`
}

// Counts reports how many posts sit in each status.
type Counts map[Status]int
