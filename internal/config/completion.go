package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	EnvCompletionAPIKeys         = "SCRIBE_COMPLETION_API_KEYS"
	EnvCompletionAPIKey          = "SCRIBE_COMPLETION_API_KEY"
	EnvCompletionGenerationModel = "SCRIBE_COMPLETION_GENERATION_MODEL"
	EnvCompletionEmbeddingModel  = "SCRIBE_COMPLETION_EMBEDDING_MODEL"
	EnvCompletionDimensions      = "SCRIBE_COMPLETION_DIMENSIONS"
	EnvCompletionMinDelay        = "SCRIBE_COMPLETION_MIN_DELAY"
	EnvCompletionRetries         = "SCRIBE_COMPLETION_RETRIES"
	EnvCompletionMaxWait         = "SCRIBE_COMPLETION_MAX_WAIT"
)

// CompletionConfig holds model names, credentials, pacing and retry settings
// for the text-generation provider.
type CompletionConfig struct {
	APIKeys         []string `toml:"api_keys"`
	GenerationModel string   `toml:"generation_model"`
	EmbeddingModel  string   `toml:"embedding_model"`
	Dimensions      int32    `toml:"dimensions"`
	MinDelay        string   `toml:"min_delay"`
	Retries         int      `toml:"retries"`
	BaseBackoff     string   `toml:"base_backoff"`
	MaxBackoff      string   `toml:"max_backoff"`
	MaxJitter       string   `toml:"max_jitter"`
	MaxWait         string   `toml:"max_wait"`
}

func (c *CompletionConfig) MinDelayDuration() time.Duration    { return duration(c.MinDelay) }
func (c *CompletionConfig) BaseBackoffDuration() time.Duration { return duration(c.BaseBackoff) }
func (c *CompletionConfig) MaxBackoffDuration() time.Duration  { return duration(c.MaxBackoff) }
func (c *CompletionConfig) MaxJitterDuration() time.Duration   { return duration(c.MaxJitter) }
func (c *CompletionConfig) MaxWaitDuration() time.Duration     { return duration(c.MaxWait) }

// Finalize applies defaults, environment variable overrides, and validation.
func (c *CompletionConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *CompletionConfig) Merge(overlay *CompletionConfig) {
	if len(overlay.APIKeys) > 0 {
		c.APIKeys = overlay.APIKeys
	}
	if overlay.GenerationModel != "" {
		c.GenerationModel = overlay.GenerationModel
	}
	if overlay.EmbeddingModel != "" {
		c.EmbeddingModel = overlay.EmbeddingModel
	}
	if overlay.Dimensions != 0 {
		c.Dimensions = overlay.Dimensions
	}
	if overlay.MinDelay != "" {
		c.MinDelay = overlay.MinDelay
	}
	if overlay.Retries != 0 {
		c.Retries = overlay.Retries
	}
	if overlay.BaseBackoff != "" {
		c.BaseBackoff = overlay.BaseBackoff
	}
	if overlay.MaxBackoff != "" {
		c.MaxBackoff = overlay.MaxBackoff
	}
	if overlay.MaxJitter != "" {
		c.MaxJitter = overlay.MaxJitter
	}
	if overlay.MaxWait != "" {
		c.MaxWait = overlay.MaxWait
	}
}

func (c *CompletionConfig) loadDefaults() {
	if c.GenerationModel == "" {
		c.GenerationModel = "gemini-2.5-flash"
	}
	if c.EmbeddingModel == "" {
		c.EmbeddingModel = "gemini-embedding-001"
	}
	if c.Dimensions == 0 {
		c.Dimensions = 768
	}
	if c.MinDelay == "" {
		c.MinDelay = "10s"
	}
	if c.Retries == 0 {
		c.Retries = 3
	}
	if c.BaseBackoff == "" {
		c.BaseBackoff = "1s"
	}
	if c.MaxBackoff == "" {
		c.MaxBackoff = "10s"
	}
	if c.MaxJitter == "" {
		c.MaxJitter = "250ms"
	}
	if c.MaxWait == "" {
		c.MaxWait = "2m"
	}
}

func (c *CompletionConfig) loadEnv() {
	keys := c.APIKeys
	if v := os.Getenv(EnvCompletionAPIKeys); v != "" {
		keys = strings.Split(v, ",")
	}
	if v := os.Getenv(EnvCompletionAPIKey); v != "" {
		keys = append(keys, v)
	}
	c.APIKeys = ParseKeys(keys)

	if v := os.Getenv(EnvCompletionGenerationModel); v != "" {
		c.GenerationModel = v
	}
	if v := os.Getenv(EnvCompletionEmbeddingModel); v != "" {
		c.EmbeddingModel = v
	}
	if v := os.Getenv(EnvCompletionDimensions); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			c.Dimensions = int32(n)
		}
	}
	if v := os.Getenv(EnvCompletionMinDelay); v != "" {
		c.MinDelay = v
	}
	if v := os.Getenv(EnvCompletionRetries); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Retries = n
		}
	}
	if v := os.Getenv(EnvCompletionMaxWait); v != "" {
		c.MaxWait = v
	}
}

func (c *CompletionConfig) validate() error {
	if c.Dimensions < 1 {
		return fmt.Errorf("invalid dimensions: %d", c.Dimensions)
	}
	if c.Retries < 0 {
		return fmt.Errorf("invalid retries: %d", c.Retries)
	}
	for name, v := range map[string]string{
		"min_delay":    c.MinDelay,
		"base_backoff": c.BaseBackoff,
		"max_backoff":  c.MaxBackoff,
		"max_jitter":   c.MaxJitter,
		"max_wait":     c.MaxWait,
	} {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	return nil
}

// ParseKeys trims, drops empty entries and removes duplicates, keeping the
// first occurrence order.
func ParseKeys(keys []string) []string {
	seen := make(map[string]bool, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

func duration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
