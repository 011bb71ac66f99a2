package rubric

import (
	"encoding/json"
	"math"
)

// Issue is one penalized finding. Penalty is always negative once it leaves
// the review engine.
type Issue struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Penalty    int    `json:"penalty"`
	Location   string `json:"location,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

// Bonus is one rewarded finding. Amount is always positive.
type Bonus struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Amount  int    `json:"bonus"`
}

// UnmarshalJSON accepts fractional penalties, rounding to the nearest point.
func (i *Issue) UnmarshalJSON(data []byte) error {
	type plain Issue
	aux := struct {
		*plain
		Penalty float64 `json:"penalty"`
	}{plain: (*plain)(i)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	i.Penalty = Round(aux.Penalty)
	return nil
}

// UnmarshalJSON accepts fractional bonuses, rounding to the nearest point.
func (b *Bonus) UnmarshalJSON(data []byte) error {
	type plain Bonus
	aux := struct {
		*plain
		Amount float64 `json:"bonus"`
	}{plain: (*plain)(b)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	b.Amount = Round(aux.Amount)
	return nil
}

// Round converts a model-reported point value to whole points, halves away
// from zero.
func Round(v float64) int {
	return int(math.Round(v))
}

// Score folds issues and bonuses into a clamped score:
// base - sum(|penalty|) + sum(bonus), bounded to [0, base].
func (r *Rubric) Score(issues []Issue, bonuses []Bonus) int {
	score := r.BaseScore
	for _, i := range issues {
		score -= abs(i.Penalty)
	}
	for _, b := range bonuses {
		score += abs(b.Amount)
	}
	return clamp(score, 0, r.BaseScore)
}

// Clamp bounds a score to [0, base].
func (r *Rubric) Clamp(score int) int {
	return clamp(score, 0, r.BaseScore)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func clamp(n, lo, hi int) int {
	return max(lo, min(n, hi))
}
