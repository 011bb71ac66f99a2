package infrastructure_test

import (
	"testing"

	"github.com/JaimeStill/scribe/internal/config"
	"github.com/JaimeStill/scribe/internal/infrastructure"
	"github.com/JaimeStill/scribe/pkg/cache"
	"github.com/JaimeStill/scribe/pkg/database"
)

func validConfig() *config.Config {
	return &config.Config{
		Database: database.Config{
			Host:            "localhost",
			Port:            5432,
			Name:            "scribe",
			User:            "scribe",
			Password:        "scribe",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: "15m",
			ConnTimeout:     "5s",
		},
		Cache: cache.Config{
			Host:        "localhost",
			Port:        6379,
			PoolSize:    10,
			Prefix:      "scribe",
			ConnTimeout: "5s",
		},
		RateLimit: config.RateLimitConfig{
			LimitsTTL: "5m",
			Ledger:    config.LedgerPostgres,
		},
		Pipeline: config.PipelineConfig{
			MinuteRetention: "24h",
			DayRetention:    "720h",
		},
		LogLevel: "info",
		Version:  "0.1.0",
	}
}

func TestNew(t *testing.T) {
	infra, err := infrastructure.New(validConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer infra.Database.Connection().Close()

	if infra.Lifecycle == nil {
		t.Error("Lifecycle is nil")
	}
	if infra.Logger == nil {
		t.Error("Logger is nil")
	}
	if infra.Database == nil {
		t.Error("Database is nil")
	}
	if infra.Cache != nil {
		t.Error("Cache should be nil when disabled")
	}
	if infra.Limiter != nil || infra.Completion != nil {
		t.Error("completion should be disabled without api keys")
	}
}

func TestNewWithCompletion(t *testing.T) {
	tests := []struct {
		name   string
		ledger string
		cache  bool
	}{
		{"postgres ledger", config.LedgerPostgres, false},
		{"redis ledger", config.LedgerRedis, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Completion.APIKeys = []string{"key-a", "key-b"}
			cfg.RateLimit.Ledger = tt.ledger
			cfg.Cache.Enabled = tt.cache

			infra, err := infrastructure.New(cfg)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			defer infra.Database.Connection().Close()

			if infra.Limiter == nil || infra.Completion == nil {
				t.Fatal("completion not initialized")
			}
			if got := len(infra.Limiter.Credentials()); got != 2 {
				t.Errorf("credentials = %d, want 2", got)
			}
			if (infra.Cache != nil) != tt.cache {
				t.Errorf("cache present = %v, want %v", infra.Cache != nil, tt.cache)
			}
		})
	}
}

func TestNewRedisLedgerWithoutCache(t *testing.T) {
	cfg := validConfig()
	cfg.Completion.APIKeys = []string{"key-a"}
	cfg.RateLimit.Ledger = config.LedgerRedis

	if _, err := infrastructure.New(cfg); err == nil {
		t.Fatal("expected error for redis ledger without cache")
	}
}
