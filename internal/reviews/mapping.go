package reviews

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"

	"github.com/JaimeStill/scribe/pkg/query"
	"github.com/JaimeStill/scribe/pkg/repository"
)

const columns = "id, post_id, attempt_number, score, passed, issues, bonuses, rewrite_instructions, reviewed_at"

var projection = query.
	NewProjectionMap("public", "post_reviews", "r").
	Project("id", "ID").
	Project("post_id", "PostID").
	Project("attempt_number", "AttemptNumber").
	Project("score", "Score").
	Project("passed", "Passed").
	Project("issues", "Issues").
	Project("bonuses", "Bonuses").
	Project("rewrite_instructions", "RewriteInstructions").
	Project("reviewed_at", "ReviewedAt")

var defaultSort = query.SortField{
	Field:      "ReviewedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for review queries.
type Filters struct {
	PostID *uuid.UUID `json:"post_id,omitempty"`
	Passed *bool      `json:"passed,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	var postID any
	if f.PostID != nil {
		postID = *f.PostID
	}

	return b.
		WhereEquals("PostID", postID).
		WhereEquals("Passed", f.Passed)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if s := values.Get("post_id"); s != "" {
		if id, err := uuid.Parse(s); err == nil {
			f.PostID = &id
		}
	}

	if s := values.Get("passed"); s != "" {
		if v, err := strconv.ParseBool(s); err == nil {
			f.Passed = &v
		}
	}

	return f
}

func scanReview(s repository.Scanner) (Review, error) {
	var (
		r               Review
		issues, bonuses []byte
	)

	err := s.Scan(
		&r.ID,
		&r.PostID,
		&r.AttemptNumber,
		&r.Score,
		&r.Passed,
		&issues,
		&bonuses,
		&r.RewriteInstructions,
		&r.ReviewedAt,
	)
	if err != nil {
		return r, err
	}

	if err := json.Unmarshal(issues, &r.Issues); err != nil {
		return r, fmt.Errorf("decode issues for review %s: %w", r.ID, err)
	}
	if len(bonuses) > 0 {
		if err := json.Unmarshal(bonuses, &r.Bonuses); err != nil {
			return r, fmt.Errorf("decode bonuses for review %s: %w", r.ID, err)
		}
	}

	return r, nil
}
