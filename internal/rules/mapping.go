package rules

import (
	"net/url"
	"slices"
	"strconv"

	"github.com/JaimeStill/scribe/pkg/query"
	"github.com/JaimeStill/scribe/pkg/repository"
)

const columns = "id, category, rule_type, rule_value, reason, failure_count, last_failure_at, created_at, is_active"

var projection = query.
	NewProjectionMap("public", "prompt_learnings", "l").
	Project("id", "ID").
	Project("category", "Category").
	Project("rule_type", "Type").
	Project("rule_value", "Value").
	Project("reason", "Reason").
	Project("failure_count", "FailureCount").
	Project("last_failure_at", "LastFailureAt").
	Project("created_at", "CreatedAt").
	Project("is_active", "IsActive")

var defaultSort = query.SortField{
	Field:      "FailureCount",
	Descending: true,
}

// priority is the deterministic ordering used for prompt rendering.
var priority = []query.SortField{
	{Field: "FailureCount", Descending: true},
	{Field: "LastFailureAt", Descending: true},
	{Field: "Value"},
}

// ParseCategory validates s as a known category.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !slices.Contains(Categories, c) {
		return "", ErrInvalidCategory
	}
	return c, nil
}

// Filters contains optional filtering criteria for rule queries.
type Filters struct {
	Category *string `json:"category,omitempty"`
	Type     *string `json:"rule_type,omitempty"`
	Active   *bool   `json:"is_active,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Category", f.Category).
		WhereEquals("Type", f.Type).
		WhereEquals("IsActive", f.Active)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if c := values.Get("category"); c != "" {
		f.Category = &c
	}

	if t := values.Get("rule_type"); t != "" {
		f.Type = &t
	}

	if a := values.Get("is_active"); a != "" {
		if v, err := strconv.ParseBool(a); err == nil {
			f.Active = &v
		}
	}

	return f
}

func scanRule(s repository.Scanner) (Rule, error) {
	var r Rule
	err := s.Scan(
		&r.ID,
		&r.Category,
		&r.Type,
		&r.Value,
		&r.Reason,
		&r.FailureCount,
		&r.LastFailureAt,
		&r.CreatedAt,
		&r.IsActive,
	)
	return r, err
}
