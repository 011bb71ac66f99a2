package formatting

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrParseFailed is returned when model output cannot be recovered as JSON
// by any of the recovery strategies.
var ErrParseFailed = errors.New("failed to parse response")

// ErrTruncated marks a document that only decoded after truncation salvage.
var ErrTruncated = errors.New("response truncated")

// Strategy names the recovery step that produced a successful parse.
type Strategy string

const (
	StrategyDirect         Strategy = "direct"
	StrategyFenced         Strategy = "fenced"
	StrategyBalanced       Strategy = "balanced"
	StrategyTrailingCommas Strategy = "trailing_commas"
	StrategySalvaged       Strategy = "salvaged"
)

// Result is the typed outcome of a parse-with-recovery attempt.
// Err is nil exactly when Value holds a decoded document.
type Result[T any] struct {
	Value    T
	Strategy Strategy
	Err      error
}

// Ok reports whether the parse succeeded.
func (r Result[T]) Ok() bool {
	return r.Err == nil
}

// Complete is like Ok but also rejects salvaged documents, whose tail was
// reconstructed and may be missing fields or list elements.
func (r Result[T]) Complete() error {
	if r.Err != nil {
		return r.Err
	}
	if r.Strategy == StrategySalvaged {
		return ErrTruncated
	}
	return nil
}

// Parse decodes content into T, applying the recovery heuristics when a
// direct decode fails. Returns ErrParseFailed if nothing recovers a document.
func Parse[T any](content string) (T, error) {
	r := Recover[T](content)
	return r.Value, r.Err
}

// Recover runs the recovery pipeline in order of increasing intrusiveness:
// direct decode, fenced block, balanced extraction, trailing comma cleanup,
// and finally truncated-document salvage.
func Recover[T any](raw string) Result[T] {
	text := TrimBOM(strings.TrimSpace(raw))

	if v, err := decode[T](text); err == nil {
		return Result[T]{Value: v, Strategy: StrategyDirect}
	}

	body := text
	if inner, ok := StripFences(text); ok {
		body = inner
		if v, err := decode[T](inner); err == nil {
			return Result[T]{Value: v, Strategy: StrategyFenced}
		}
	}

	if balanced, ok := ExtractBalanced(body); ok {
		if v, err := decode[T](balanced); err == nil {
			return Result[T]{Value: v, Strategy: StrategyBalanced}
		}
		if v, err := decode[T](RemoveTrailingCommas(balanced)); err == nil {
			return Result[T]{Value: v, Strategy: StrategyTrailingCommas}
		}
	}

	if salvaged, ok := SalvageTruncated(RemoveTrailingCommas(body)); ok {
		if v, err := decode[T](salvaged); err == nil {
			return Result[T]{Value: v, Strategy: StrategySalvaged}
		}
	}

	return Result[T]{Err: fmt.Errorf("%w: %s", ErrParseFailed, preview(text, 200))}
}

func decode[T any](s string) (T, error) {
	var v T
	if s == "" {
		return v, ErrParseFailed
	}
	err := json.Unmarshal([]byte(s), &v)
	return v, err
}

func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
