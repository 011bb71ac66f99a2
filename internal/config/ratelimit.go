package config

import (
	"fmt"
	"os"
	"time"

	"github.com/JaimeStill/scribe/internal/ratelimit"
)

const (
	EnvRateLimitLimitsTTL = "SCRIBE_RATELIMIT_LIMITS_TTL"
	EnvRateLimitLedger    = "SCRIBE_RATELIMIT_LEDGER"
)

const (
	LedgerPostgres = "postgres"
	LedgerRedis    = "redis"
)

// RateLimitConfig selects the usage ledger and the fallback limits applied
// to models missing from the limits table.
type RateLimitConfig struct {
	LimitsTTL  string           `toml:"limits_ttl"`
	Ledger     string           `toml:"ledger"`
	Generation ratelimit.Limits `toml:"generation"`
	Embedding  ratelimit.Limits `toml:"embedding"`
}

// LimitsTTLDuration returns LimitsTTL as a time.Duration.
func (c *RateLimitConfig) LimitsTTLDuration() time.Duration {
	return duration(c.LimitsTTL)
}

// Defaults returns the fallback limits keyed by model type.
func (c *RateLimitConfig) Defaults() map[ratelimit.ModelType]ratelimit.Limits {
	return map[ratelimit.ModelType]ratelimit.Limits{
		ratelimit.Generation: c.Generation,
		ratelimit.Embedding:  c.Embedding,
	}
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *RateLimitConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *RateLimitConfig) Merge(overlay *RateLimitConfig) {
	if overlay.LimitsTTL != "" {
		c.LimitsTTL = overlay.LimitsTTL
	}
	if overlay.Ledger != "" {
		c.Ledger = overlay.Ledger
	}
	mergeLimits(&c.Generation, overlay.Generation)
	mergeLimits(&c.Embedding, overlay.Embedding)
}

func mergeLimits(dst *ratelimit.Limits, src ratelimit.Limits) {
	if src.RPM != 0 {
		dst.RPM = src.RPM
	}
	if src.TPM != 0 {
		dst.TPM = src.TPM
	}
	if src.RPD != 0 {
		dst.RPD = src.RPD
	}
}

func (c *RateLimitConfig) loadDefaults() {
	if c.LimitsTTL == "" {
		c.LimitsTTL = "5m"
	}
	if c.Ledger == "" {
		c.Ledger = LedgerPostgres
	}
	c.Generation = withDefaults(c.Generation, ratelimit.DefaultLimits[ratelimit.Generation])
	c.Embedding = withDefaults(c.Embedding, ratelimit.DefaultLimits[ratelimit.Embedding])
}

// withDefaults fills the zero fields of l from def.
func withDefaults(l, def ratelimit.Limits) ratelimit.Limits {
	mergeLimits(&def, l)
	return def
}

func (c *RateLimitConfig) loadEnv() {
	if v := os.Getenv(EnvRateLimitLimitsTTL); v != "" {
		c.LimitsTTL = v
	}
	if v := os.Getenv(EnvRateLimitLedger); v != "" {
		c.Ledger = v
	}
}

func (c *RateLimitConfig) validate() error {
	if _, err := time.ParseDuration(c.LimitsTTL); err != nil {
		return fmt.Errorf("invalid limits_ttl: %w", err)
	}
	switch c.Ledger {
	case LedgerPostgres, LedgerRedis:
	default:
		return fmt.Errorf("invalid ledger %q: must be %s or %s", c.Ledger, LedgerPostgres, LedgerRedis)
	}
	for name, l := range map[string]ratelimit.Limits{"generation": c.Generation, "embedding": c.Embedding} {
		if l.RPM < 1 || l.RPD < 1 || l.TPM < 0 {
			return fmt.Errorf("invalid %s limits: %+v", name, l)
		}
	}
	return nil
}
