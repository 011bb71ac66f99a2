// Package infrastructure provides core service initialization for application startup.
// It assembles common dependencies (logging, database, cache, rate limiting and
// text completion) that domain systems require.
package infrastructure

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/JaimeStill/scribe/internal/completion"
	"github.com/JaimeStill/scribe/internal/config"
	"github.com/JaimeStill/scribe/internal/ratelimit"
	"github.com/JaimeStill/scribe/pkg/cache"
	"github.com/JaimeStill/scribe/pkg/database"
	"github.com/JaimeStill/scribe/pkg/lifecycle"
	"github.com/JaimeStill/scribe/pkg/retry"
)

// Infrastructure holds the core systems required by all domain modules.
// Cache is nil unless enabled. Limiter and Completion are nil when no
// completion keys are configured.
type Infrastructure struct {
	Lifecycle  *lifecycle.Coordinator
	Logger     *slog.Logger
	Database   database.System
	Cache      cache.System
	Limiter    *ratelimit.Limiter
	Completion *completion.Client
}

// New creates an Infrastructure from the application configuration.
// It initializes all systems but does not start them; call Start separately.
func New(cfg *config.Config) (*Infrastructure, error) {
	lc := lifecycle.New()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.Level(),
	}))

	db, err := database.New(&cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}

	infra := &Infrastructure{
		Lifecycle: lc,
		Logger:    logger,
		Database:  db,
	}

	if cfg.Cache.Enabled {
		infra.Cache = cache.New(&cfg.Cache, logger)
	}

	if len(cfg.Completion.APIKeys) == 0 {
		logger.Warn("no completion api keys configured, generation disabled")
		return infra, nil
	}

	ledger, err := infra.ledger(cfg)
	if err != nil {
		return nil, err
	}

	limiter, err := ratelimit.New(ratelimit.Config{
		Keys:            cfg.Completion.APIKeys,
		Source:          ratelimit.NewPostgresLimits(db.Connection()),
		Ledger:          ledger,
		Defaults:        cfg.RateLimit.Defaults(),
		LimitsTTL:       cfg.RateLimit.LimitsTTLDuration(),
		MinuteRetention: cfg.Pipeline.MinuteRetentionDuration(),
		DayRetention:    cfg.Pipeline.DayRetentionDuration(),
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("rate limiter init failed: %w", err)
	}

	infra.Limiter = limiter
	infra.Completion = completion.New(completion.NewGenAI(), limiter, completion.Options{
		GenerationModel: cfg.Completion.GenerationModel,
		EmbeddingModel:  cfg.Completion.EmbeddingModel,
		Dimensions:      cfg.Completion.Dimensions,
		MinDelay:        cfg.Completion.MinDelayDuration(),
		MaxWait:         cfg.Completion.MaxWaitDuration(),
		Retry: retry.Policy{
			Retries:   cfg.Completion.Retries,
			BaseDelay: cfg.Completion.BaseBackoffDuration(),
			MaxDelay:  cfg.Completion.MaxBackoffDuration(),
			MaxJitter: cfg.Completion.MaxJitterDuration(),
		},
	}, logger)

	return infra, nil
}

func (i *Infrastructure) ledger(cfg *config.Config) (ratelimit.Ledger, error) {
	switch cfg.RateLimit.Ledger {
	case config.LedgerRedis:
		if i.Cache == nil {
			return nil, fmt.Errorf("redis ledger requires cache")
		}
		return ratelimit.NewRedisLedger(
			i.Cache.Client(),
			i.Cache.Prefix(),
			cfg.Pipeline.MinuteRetentionDuration(),
			cfg.Pipeline.DayRetentionDuration(),
		), nil
	default:
		return ratelimit.NewPostgresLedger(i.Database.Connection()), nil
	}
}

// Start registers all infrastructure systems with the lifecycle coordinator.
func (i *Infrastructure) Start() error {
	if err := i.Database.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("database start failed: %w", err)
	}
	if i.Cache != nil {
		if err := i.Cache.Start(i.Lifecycle); err != nil {
			return fmt.Errorf("cache start failed: %w", err)
		}
	}
	return nil
}
