// Package cache provides a Redis client with lifecycle coordination.
package cache

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/redis/go-redis/v9"

	"github.com/JaimeStill/scribe/pkg/lifecycle"
)

// System manages a Redis client and its lifecycle.
type System interface {
	// Client returns the underlying Redis client.
	Client() *redis.Client
	// Prefix returns the key namespace for this service.
	Prefix() string
	// Start registers startup and shutdown hooks with the lifecycle coordinator.
	Start(lc *lifecycle.Coordinator) error
	// Ready reports whether the startup ping succeeded.
	Ready() bool
}

type cache struct {
	client *redis.Client
	cfg    *Config
	logger *slog.Logger
	ready  atomic.Bool
}

// New creates a cache system. No connection is made until Start.
func New(cfg *Config, logger *slog.Logger) System {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr(),
		Password:    cfg.Password,
		DB:          cfg.DB,
		PoolSize:    cfg.PoolSize,
		DialTimeout: cfg.ConnTimeoutDuration(),
	})

	return &cache{
		client: client,
		cfg:    cfg,
		logger: logger.With("system", "cache"),
	}
}

func (c *cache) Client() *redis.Client {
	return c.client
}

func (c *cache) Prefix() string {
	return c.cfg.Prefix
}

func (c *cache) Ready() bool {
	return c.ready.Load()
}

func (c *cache) Start(lc *lifecycle.Coordinator) error {
	c.logger.Info("starting cache connection", "addr", c.cfg.Addr())

	lc.OnStartup(func() {
		ctx, cancel := context.WithTimeout(lc.Context(), c.cfg.ConnTimeoutDuration())
		defer cancel()

		if err := c.client.Ping(ctx).Err(); err != nil {
			c.logger.Error("cache ping failed", "error", err)
			return
		}

		c.ready.Store(true)
		c.logger.Info("cache connection established")
	})

	lc.OnShutdown(func() {
		<-lc.Done()
		c.ready.Store(false)
		c.logger.Info("closing cache connection")

		if err := c.client.Close(); err != nil {
			c.logger.Error("cache close failed", "error", err)
			return
		}

		c.logger.Info("cache connection closed")
	})

	return nil
}
