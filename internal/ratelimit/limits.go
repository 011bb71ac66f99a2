package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/JaimeStill/scribe/pkg/repository"
)

// DefaultLimitsTTL is how long loaded limits are trusted before reloading.
const DefaultLimitsTTL = 5 * time.Minute

// DefaultLimits are the free-tier ceilings used when a model has no row.
var DefaultLimits = map[ModelType]Limits{
	Generation: {RPM: 10, TPM: 250000, RPD: 20},
	Embedding:  {RPM: 100, TPM: 30000, RPD: 1000},
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// LimitsSource loads per-model limits keyed by model name.
type LimitsSource interface {
	LoadLimits(ctx context.Context) (map[string]Limits, error)
}

// PostgresLimits reads the llm_rate_limits table.
type PostgresLimits struct {
	db repository.Querier
}

func NewPostgresLimits(db repository.Querier) *PostgresLimits {
	return &PostgresLimits{db: db}
}

func (p *PostgresLimits) LoadLimits(ctx context.Context) (map[string]Limits, error) {
	q, args, err := psql.
		Select("model_name", "rpm_limit", "tpm_limit", "rpd_limit").
		From("llm_rate_limits").
		ToSql()
	if err != nil {
		return nil, err
	}

	type row struct {
		model  string
		limits Limits
	}

	rows, err := repository.QueryMany(ctx, p.db, q, args, func(s repository.Scanner) (row, error) {
		var r row
		err := s.Scan(&r.model, &r.limits.RPM, &r.limits.TPM, &r.limits.RPD)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("load rate limits: %w", err)
	}

	out := make(map[string]Limits, len(rows))
	for _, r := range rows {
		out[r.model] = r.limits
	}
	return out, nil
}

// StaticLimits serves a fixed table. Useful when no database is configured.
type StaticLimits map[string]Limits

func (s StaticLimits) LoadLimits(context.Context) (map[string]Limits, error) {
	return s, nil
}

// limitsCache holds the last loaded table until its TTL lapses.
type limitsCache struct {
	source   LimitsSource
	defaults map[ModelType]Limits
	ttl      time.Duration

	mu       sync.Mutex
	table    map[string]Limits
	loadedAt time.Time
}

func (c *limitsCache) get(ctx context.Context, model string, mt ModelType, now time.Time) (Limits, error) {
	c.mu.Lock()
	stale := c.table == nil || now.Sub(c.loadedAt) > c.ttl
	c.mu.Unlock()

	if stale {
		if err := c.refresh(ctx, now); err != nil {
			return Limits{}, err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if l, ok := c.table[model]; ok {
		return l, nil
	}
	return c.defaults[mt], nil
}

func (c *limitsCache) refresh(ctx context.Context, now time.Time) error {
	table, err := c.source.LoadLimits(ctx)
	if err != nil {
		return err
	}
	if table == nil {
		table = map[string]Limits{}
	}

	c.mu.Lock()
	c.table = table
	c.loadedAt = now
	c.mu.Unlock()
	return nil
}
