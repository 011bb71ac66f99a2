// Package reviews implements the review engine: it scores a post against the
// rubric, persists an append-only review trail, drives the post lifecycle
// transition, and hands failed reviews to the rule learner.
package reviews

import (
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/scribe/internal/rubric"
)

// Review is an immutable scoring record for one post attempt.
type Review struct {
	ID                  uuid.UUID      `json:"id"`
	PostID              uuid.UUID      `json:"post_id"`
	AttemptNumber       int            `json:"attempt_number"`
	Score               int            `json:"score"`
	Passed              bool           `json:"passed"`
	Issues              []rubric.Issue `json:"issues"`
	Bonuses             []rubric.Bonus `json:"bonuses"`
	RewriteInstructions *string        `json:"rewrite_instructions"`
	ReviewedAt          time.Time      `json:"reviewed_at"`
}

// Assessment is the unpersisted outcome of scoring content.
type Assessment struct {
	Score               int            `json:"score"`
	Passed              bool           `json:"passed"`
	Issues              []rubric.Issue `json:"issues"`
	Bonuses             []rubric.Bonus `json:"bonuses"`
	RewriteInstructions *string        `json:"rewrite_instructions"`
}
