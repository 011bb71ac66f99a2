// Package ratelimit tracks per-credential request and token budgets across
// several interchangeable API keys. Usage is bucketed by UTC minute and UTC
// day; limits are per model and fall back to per-type defaults.
package ratelimit

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// ModelType separates generation budgets from embedding budgets.
type ModelType string

const (
	Generation ModelType = "generation"
	Embedding  ModelType = "embedding"
)

// ParseModelType validates s as a ModelType.
func ParseModelType(s string) (ModelType, error) {
	switch mt := ModelType(s); mt {
	case Generation, Embedding:
		return mt, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidModelType, s)
	}
}

// Limits are the per-minute and per-day ceilings for one model.
type Limits struct {
	RPM int `json:"rpm" toml:"rpm"`
	TPM int `json:"tpm" toml:"tpm"`
	RPD int `json:"rpd" toml:"rpd"`
}

// Usage is consumption in the current minute and day buckets.
type Usage struct {
	RPM int `json:"rpm"`
	TPM int `json:"tpm"`
	RPD int `json:"rpd"`
}

// Reason names the budget that blocks a request.
type Reason string

const (
	ReasonNone Reason = ""
	ReasonRPD  Reason = "rpd"
	ReasonRPM  Reason = "rpm"
	ReasonTPM  Reason = "tpm"
)

// Status is the result of checking one credential against its limits.
type Status struct {
	ModelType  ModelType     `json:"modelType"`
	Limits     Limits        `json:"limits"`
	Usage      Usage         `json:"usage"`
	Available  Limits        `json:"available"`
	CanProceed bool          `json:"canProceed"`
	Wait       time.Duration `json:"wait"`
	Reason     Reason        `json:"reason,omitempty"`
}

// Credential is an API key and its short public hash. Only the hash is
// persisted or logged.
type Credential struct {
	Key  string `json:"-"`
	Hash string `json:"hash"`
}

// NewCredential derives the hash for key.
func NewCredential(key string) Credential {
	return Credential{Key: key, Hash: HashKey(key)}
}

// HashKey returns the first 8 hex characters of the SHA-256 of key.
func HashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:8]
}

// Selection is the credential chosen for a request with the status that won it.
type Selection struct {
	Credential
	Status Status `json:"status"`
}

// MinuteBucket truncates t to its UTC minute.
func MinuteBucket(t time.Time) time.Time {
	return t.UTC().Truncate(time.Minute)
}

// DayBucket truncates t to its UTC day.
func DayBucket(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// evaluate checks usage against limits. Daily exhaustion wins over the
// minute budgets; token budget is only considered when tokens is positive.
func evaluate(mt ModelType, limits Limits, usage Usage, tokens int, now time.Time) Status {
	s := Status{
		ModelType: mt,
		Limits:    limits,
		Usage:     usage,
		Available: Limits{
			RPM: max(0, limits.RPM-usage.RPM),
			TPM: max(0, limits.TPM-usage.TPM),
			RPD: max(0, limits.RPD-usage.RPD),
		},
		CanProceed: true,
	}

	untilMinute := MinuteBucket(now).Add(time.Minute).Sub(now)

	switch {
	case s.Available.RPD <= 0:
		s.Reason = ReasonRPD
		s.Wait = DayBucket(now).AddDate(0, 0, 1).Sub(now)
	case s.Available.RPM <= 0:
		s.Reason = ReasonRPM
		s.Wait = untilMinute
	case tokens > 0 && s.Available.TPM < tokens:
		s.Reason = ReasonTPM
		s.Wait = untilMinute
	}

	if s.Reason != ReasonNone {
		s.CanProceed = false
	}
	return s
}
