// Package database provides PostgreSQL connection management with lifecycle coordination.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/JaimeStill/scribe/pkg/lifecycle"
	"github.com/JaimeStill/scribe/pkg/retry"
)

// ErrNotReady is reported until the startup ping succeeds, wrapping the
// last ping failure when there is one.
var ErrNotReady = errors.New("database not ready")

// System manages database connections and lifecycle coordination.
type System interface {
	// Connection returns the underlying database connection pool.
	Connection() *sql.DB
	// Start registers startup and shutdown hooks with the lifecycle coordinator.
	Start(lc *lifecycle.Coordinator) error
	// Ready reports whether the startup ping succeeded.
	Ready() bool
	// Err returns nil once ready, otherwise ErrNotReady.
	Err() error
}

type database struct {
	conn        *sql.DB
	logger      *slog.Logger
	connTimeout time.Duration
	policy      retry.Policy
	ready       atomic.Bool
	lastErr     atomic.Pointer[error]
}

// New creates a database system with the given configuration.
// It calls sql.Open to validate the DSN and configure pool parameters,
// but does not establish a connection until Start is called.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	db, err := sql.Open("pgx", cfg.Dsn())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetimeDuration())

	return &database{
		conn:        db,
		logger:      logger.With("system", "database"),
		connTimeout: cfg.ConnTimeoutDuration(),
		policy: retry.Policy{
			Retries:   cfg.ConnRetries,
			BaseDelay: 500 * time.Millisecond,
			MaxDelay:  5 * time.Second,
			Hint:      noHint,
		},
	}, nil
}

func (d *database) Connection() *sql.DB {
	return d.conn
}

func (d *database) Ready() bool {
	return d.ready.Load()
}

func (d *database) Err() error {
	if d.ready.Load() {
		return nil
	}
	if last := d.lastErr.Load(); last != nil {
		return fmt.Errorf("%w: %w", ErrNotReady, *last)
	}
	return ErrNotReady
}

// Start pings the database until it answers or the retry budget runs out.
// A database that never answers leaves the process running; requests that
// need it fail individually.
func (d *database) Start(lc *lifecycle.Coordinator) error {
	d.logger.Info("starting database connection")

	lc.OnStartup(func() {
		_, err := retry.Do(lc.Context(), d.policy, d.ping)
		if err != nil {
			d.lastErr.Store(&err)
			d.logger.Error("database ping failed", "error", d.Err())
			return
		}
		d.ready.Store(true)
		d.logger.Info("database connection established")
	})

	lc.OnShutdown(func() {
		<-lc.Done()
		d.ready.Store(false)
		d.logger.Info("closing database connection")

		if err := d.conn.Close(); err != nil {
			d.logger.Error("database close failed", "error", err)
			return
		}

		d.logger.Info("database connection closed")
	})

	return nil
}

func (d *database) ping(ctx context.Context, attempt int) (struct{}, error) {
	if attempt > 0 {
		d.logger.Warn("retrying database ping", "attempt", attempt)
	}
	pingCtx, cancel := context.WithTimeout(ctx, d.connTimeout)
	defer cancel()
	return struct{}{}, d.conn.PingContext(pingCtx)
}

func noHint(error) (time.Duration, bool) { return 0, false }
