package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	EnvPipelineEnabled         = "SCRIBE_PIPELINE_ENABLED"
	EnvPipelineReviewInterval  = "SCRIBE_PIPELINE_REVIEW_INTERVAL"
	EnvPipelineRewriteInterval = "SCRIBE_PIPELINE_REWRITE_INTERVAL"
	EnvPipelineSweepInterval   = "SCRIBE_PIPELINE_SWEEP_INTERVAL"
	EnvPipelineCleanupInterval = "SCRIBE_PIPELINE_CLEANUP_INTERVAL"
	EnvPipelineReviewBatch     = "SCRIBE_PIPELINE_REVIEW_BATCH"
	EnvPipelineRewriteBatch    = "SCRIBE_PIPELINE_REWRITE_BATCH"
	EnvPipelineDuplicate       = "SCRIBE_PIPELINE_DUPLICATE_THRESHOLD"
)

// PipelineConfig controls the scheduled review and rewrite loop. An interval
// of "0s" disables that task.
type PipelineConfig struct {
	Enabled         bool   `toml:"enabled"`
	ReviewInterval  string `toml:"review_interval"`
	RewriteInterval string `toml:"rewrite_interval"`
	SweepInterval   string `toml:"sweep_interval"`
	CleanupInterval string `toml:"cleanup_interval"`
	ReviewBatch     int    `toml:"review_batch"`
	RewriteBatch    int    `toml:"rewrite_batch"`
	MinuteRetention string `toml:"minute_retention"`
	DayRetention    string `toml:"day_retention"`

	// DuplicateThreshold is the cosine similarity at or above which ingested
	// content is rejected as a near-duplicate of a stored post.
	DuplicateThreshold float64 `toml:"duplicate_threshold"`
}

func (c *PipelineConfig) ReviewIntervalDuration() time.Duration  { return duration(c.ReviewInterval) }
func (c *PipelineConfig) RewriteIntervalDuration() time.Duration { return duration(c.RewriteInterval) }
func (c *PipelineConfig) SweepIntervalDuration() time.Duration   { return duration(c.SweepInterval) }
func (c *PipelineConfig) CleanupIntervalDuration() time.Duration { return duration(c.CleanupInterval) }
func (c *PipelineConfig) MinuteRetentionDuration() time.Duration { return duration(c.MinuteRetention) }
func (c *PipelineConfig) DayRetentionDuration() time.Duration    { return duration(c.DayRetention) }

// Finalize applies defaults, environment variable overrides, and validation.
func (c *PipelineConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *PipelineConfig) Merge(overlay *PipelineConfig) {
	if overlay.Enabled {
		c.Enabled = true
	}
	if overlay.ReviewInterval != "" {
		c.ReviewInterval = overlay.ReviewInterval
	}
	if overlay.RewriteInterval != "" {
		c.RewriteInterval = overlay.RewriteInterval
	}
	if overlay.SweepInterval != "" {
		c.SweepInterval = overlay.SweepInterval
	}
	if overlay.CleanupInterval != "" {
		c.CleanupInterval = overlay.CleanupInterval
	}
	if overlay.ReviewBatch != 0 {
		c.ReviewBatch = overlay.ReviewBatch
	}
	if overlay.RewriteBatch != 0 {
		c.RewriteBatch = overlay.RewriteBatch
	}
	if overlay.MinuteRetention != "" {
		c.MinuteRetention = overlay.MinuteRetention
	}
	if overlay.DayRetention != "" {
		c.DayRetention = overlay.DayRetention
	}
	if overlay.DuplicateThreshold != 0 {
		c.DuplicateThreshold = overlay.DuplicateThreshold
	}
}

func (c *PipelineConfig) loadDefaults() {
	if c.ReviewInterval == "" {
		c.ReviewInterval = "15m"
	}
	if c.RewriteInterval == "" {
		c.RewriteInterval = "30m"
	}
	if c.SweepInterval == "" {
		c.SweepInterval = "24h"
	}
	if c.CleanupInterval == "" {
		c.CleanupInterval = "24h"
	}
	if c.ReviewBatch == 0 {
		c.ReviewBatch = 10
	}
	if c.RewriteBatch == 0 {
		c.RewriteBatch = 5
	}
	if c.MinuteRetention == "" {
		c.MinuteRetention = "24h"
	}
	if c.DayRetention == "" {
		c.DayRetention = "720h"
	}
	if c.DuplicateThreshold == 0 {
		c.DuplicateThreshold = 0.85
	}
}

func (c *PipelineConfig) loadEnv() {
	if v := os.Getenv(EnvPipelineEnabled); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Enabled = b
		}
	}
	if v := os.Getenv(EnvPipelineReviewInterval); v != "" {
		c.ReviewInterval = v
	}
	if v := os.Getenv(EnvPipelineRewriteInterval); v != "" {
		c.RewriteInterval = v
	}
	if v := os.Getenv(EnvPipelineSweepInterval); v != "" {
		c.SweepInterval = v
	}
	if v := os.Getenv(EnvPipelineCleanupInterval); v != "" {
		c.CleanupInterval = v
	}
	if v := os.Getenv(EnvPipelineReviewBatch); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.ReviewBatch = n
		}
	}
	if v := os.Getenv(EnvPipelineRewriteBatch); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RewriteBatch = n
		}
	}
	if v := os.Getenv(EnvPipelineDuplicate); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.DuplicateThreshold = f
		}
	}
}

func (c *PipelineConfig) validate() error {
	if c.ReviewBatch < 1 {
		return fmt.Errorf("invalid review_batch: %d", c.ReviewBatch)
	}
	if c.RewriteBatch < 1 {
		return fmt.Errorf("invalid rewrite_batch: %d", c.RewriteBatch)
	}
	if c.DuplicateThreshold <= 0 || c.DuplicateThreshold > 1 {
		return fmt.Errorf("invalid duplicate_threshold: %v", c.DuplicateThreshold)
	}
	for name, v := range map[string]string{
		"review_interval":  c.ReviewInterval,
		"rewrite_interval": c.RewriteInterval,
		"sweep_interval":   c.SweepInterval,
		"cleanup_interval": c.CleanupInterval,
		"minute_retention": c.MinuteRetention,
		"day_retention":    c.DayRetention,
	} {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
		if d < 0 {
			return fmt.Errorf("invalid %s: negative duration", name)
		}
	}
	return nil
}
