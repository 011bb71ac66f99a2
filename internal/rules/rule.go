// Package rules is the learning half of the review loop. Failed review
// issues are generalized into persistent rules, and the active rule set is
// rendered back into prompt text for generation and rewriting.
package rules

import (
	"time"

	"github.com/google/uuid"
)

type Category string

const (
	CategoryVocabulary Category = "vocabulary"
	CategoryStructure  Category = "structure"
	CategoryFormatting Category = "formatting"
	CategoryTone       Category = "tone"
	CategorySEO        Category = "seo"
	CategoryCTA        Category = "cta"
	CategoryContent    Category = "content"
)

// Categories lists every category in prompt rendering order.
var Categories = []Category{
	CategoryVocabulary,
	CategoryStructure,
	CategoryCTA,
	CategoryTone,
	CategoryFormatting,
	CategorySEO,
	CategoryContent,
}

type Type string

const (
	TypeForbiddenWord    Type = "forbidden_word"
	TypeForbiddenPhrase  Type = "forbidden_phrase"
	TypeMaxLength        Type = "max_length"
	TypeMinCount         Type = "min_count"
	TypeRequiredPattern  Type = "required_pattern"
	TypeForbiddenPattern Type = "forbidden_pattern"
)

// Key is the natural identity of a rule.
type Key struct {
	Category Category `json:"category"`
	Type     Type     `json:"rule_type"`
	Value    string   `json:"rule_value"`
}

func (k Key) String() string {
	return string(k.Category) + ":" + string(k.Type) + ":" + k.Value
}

// Rule is a learned constraint. Reason accumulates one entry per failure.
type Rule struct {
	Key
	ID            uuid.UUID `json:"id"`
	Reason        string    `json:"reason"`
	FailureCount  int       `json:"failure_count"`
	LastFailureAt time.Time `json:"last_failure_at"`
	CreatedAt     time.Time `json:"created_at"`
	IsActive      bool      `json:"is_active"`
}

// Learning is one rule occurrence derived from a review issue.
type Learning struct {
	Key
	Reason    string
	IssueCode string
}

// Source identifies the review a learning came from.
type Source struct {
	PostID   uuid.UUID `json:"post_id"`
	ReviewID uuid.UUID `json:"review_id"`
}

// Violation is one entry of the most-violated list.
type Violation struct {
	Rule  string `json:"rule"`
	Count int    `json:"count"`
}

// Stats summarizes the active rule set.
type Stats struct {
	TotalRules    int              `json:"total_rules"`
	TotalFailures int              `json:"total_failures"`
	ByCategory    map[Category]int `json:"by_category"`
	TopViolations []Violation      `json:"top_violations"`
}

// Summarize computes Stats over rules, which must already be in priority order.
func Summarize(rules []Rule) Stats {
	s := Stats{
		ByCategory:    make(map[Category]int),
		TopViolations: make([]Violation, 0, min(len(rules), 10)),
	}

	for i, r := range rules {
		s.TotalRules++
		s.TotalFailures += r.FailureCount
		s.ByCategory[r.Category] += r.FailureCount
		if i < 10 {
			s.TopViolations = append(s.TopViolations, Violation{Rule: r.Key.String(), Count: r.FailureCount})
		}
	}

	return s
}
