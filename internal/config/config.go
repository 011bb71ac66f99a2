// Package config loads the service configuration from a base TOML file, an
// optional environment overlay and SCRIBE_ environment variables.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/scribe/pkg/cache"
	"github.com/JaimeStill/scribe/pkg/database"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvScribeEnv             = "SCRIBE_ENV"
	EnvScribeShutdownTimeout = "SCRIBE_SHUTDOWN_TIMEOUT"
	EnvScribeVersion         = "SCRIBE_VERSION"
	EnvScribeLogLevel        = "SCRIBE_LOG_LEVEL"
)

var databaseEnv = &database.Env{
	Host:            "SCRIBE_DB_HOST",
	Port:            "SCRIBE_DB_PORT",
	Name:            "SCRIBE_DB_NAME",
	User:            "SCRIBE_DB_USER",
	Password:        "SCRIBE_DB_PASSWORD",
	SSLMode:         "SCRIBE_DB_SSL_MODE",
	MaxOpenConns:    "SCRIBE_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "SCRIBE_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "SCRIBE_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "SCRIBE_DB_CONN_TIMEOUT",
	ConnRetries:     "SCRIBE_DB_CONN_RETRIES",
}

var cacheEnv = &cache.Env{
	Enabled:     "SCRIBE_CACHE_ENABLED",
	Host:        "SCRIBE_CACHE_HOST",
	Port:        "SCRIBE_CACHE_PORT",
	Password:    "SCRIBE_CACHE_PASSWORD",
	DB:          "SCRIBE_CACHE_DB",
	PoolSize:    "SCRIBE_CACHE_POOL_SIZE",
	Prefix:      "SCRIBE_CACHE_PREFIX",
	ConnTimeout: "SCRIBE_CACHE_CONN_TIMEOUT",
}

// Config is the root configuration for the Scribe service.
type Config struct {
	Server          ServerConfig     `toml:"server"`
	Database        database.Config  `toml:"database"`
	Cache           cache.Config     `toml:"cache"`
	API             APIConfig        `toml:"api"`
	Completion      CompletionConfig `toml:"completion"`
	RateLimit       RateLimitConfig  `toml:"ratelimit"`
	Pipeline        PipelineConfig   `toml:"pipeline"`
	LogLevel        string           `toml:"log_level"`
	ShutdownTimeout string           `toml:"shutdown_timeout"`
	Version         string           `toml:"version"`
}

// Env returns the SCRIBE_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvScribeEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	return duration(c.ShutdownTimeout)
}

// Level returns LogLevel as a slog.Level.
func (c *Config) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and environment
// variables provide all configuration.
func Load() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		loaded, err := load(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	if overlay.LogLevel != "" {
		c.LogLevel = overlay.LogLevel
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Cache.Merge(&overlay.Cache)
	c.API.Merge(&overlay.API)
	c.Completion.Merge(&overlay.Completion)
	c.RateLimit.Merge(&overlay.RateLimit)
	c.Pipeline.Merge(&overlay.Pipeline)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Database.Finalize(databaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Cache.Finalize(cacheEnv); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := c.Completion.Finalize(); err != nil {
		return fmt.Errorf("completion: %w", err)
	}
	if err := c.RateLimit.Finalize(); err != nil {
		return fmt.Errorf("ratelimit: %w", err)
	}
	if err := c.Pipeline.Finalize(); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	if c.RateLimit.Ledger == LedgerRedis && !c.Cache.Enabled {
		return fmt.Errorf("ratelimit: redis ledger requires cache.enabled")
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvScribeShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvScribeVersion); v != "" {
		c.Version = v
	}
	if v := os.Getenv(EnvScribeLogLevel); v != "" {
		c.LogLevel = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvScribeEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
