package posts

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Status is the lifecycle state of a post.
type Status string

const (
	StatusDraft       Status = "draft"
	StatusPublished   Status = "published"
	StatusRewrite     Status = "rewrite"
	StatusToBeDeleted Status = "to_be_deleted"
)

// MaxRewrites is the hard ceiling on rewrite attempts per post.
const MaxRewrites = 2

var statuses = []Status{
	StatusDraft,
	StatusPublished,
	StatusRewrite,
	StatusToBeDeleted,
}

var transitions = map[Status][]Status{
	StatusDraft:   {StatusPublished, StatusRewrite, StatusToBeDeleted},
	StatusRewrite: {StatusDraft, StatusPublished, StatusRewrite, StatusToBeDeleted},
}

// Statuses returns every valid status.
func Statuses() []Status {
	return statuses
}

// ParseStatus validates s as a known status.
func ParseStatus(s string) (Status, error) {
	v := Status(s)
	if !slices.Contains(statuses, v) {
		return "", ErrInvalidStatus
	}
	return v, nil
}

// UnmarshalJSON rejects unknown status values.
func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Terminal reports whether no further transitions leave s.
func (s Status) Terminal() bool {
	return s == StatusPublished || s == StatusToBeDeleted
}

// Reviewable reports whether a post in status s may be scored.
func (s Status) Reviewable() bool {
	return s == StatusDraft || s == StatusRewrite
}

// CanTransition reports whether from -> to is an edge of the lifecycle.
func CanTransition(from, to Status) bool {
	return slices.Contains(transitions[from], to)
}

// IsTerminal reports whether s ends the lifecycle.
func IsTerminal(s Status) bool {
	return s.Terminal()
}

// Transition is the outcome of a review for one post.
type Transition struct {
	From             Status `json:"from"`
	To               Status `json:"to"`
	IncrementRewrite bool   `json:"increment_rewrite"`
}

// Decide computes the post-review transition. A pass publishes; a failure
// sends the post back for rewrite while budget remains and marks it for
// deletion once MaxRewrites attempts have been spent.
func Decide(p Post, passed bool) (Transition, error) {
	if !p.Status.Reviewable() {
		return Transition{}, fmt.Errorf("%w: cannot review a %s post", ErrInvalidTransition, p.Status)
	}

	t := Transition{From: p.Status}

	switch {
	case passed:
		t.To = StatusPublished
	case p.RewriteCount >= MaxRewrites:
		t.To = StatusToBeDeleted
	default:
		t.To = StatusRewrite
		t.IncrementRewrite = true
	}

	return t, nil
}
