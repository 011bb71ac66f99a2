package ratelimit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/JaimeStill/scribe/pkg/repository"
)

// Ledger stores usage counters per credential hash, model type and bucket.
// Record must be an atomic increment so concurrent writers never lose counts.
type Ledger interface {
	Usage(ctx context.Context, hash string, mt ModelType, now time.Time) (Usage, error)
	Record(ctx context.Context, hash string, mt ModelType, tokens int, now time.Time) error
	Cleanup(ctx context.Context, minuteBefore, dayBefore time.Time) (int64, error)
}

// PostgresLedger keeps counters in llm_usage_minute and llm_usage_daily.
type PostgresLedger struct {
	db *sql.DB
}

func NewPostgresLedger(db *sql.DB) *PostgresLedger {
	return &PostgresLedger{db: db}
}

func (l *PostgresLedger) Usage(ctx context.Context, hash string, mt ModelType, now time.Time) (Usage, error) {
	var u Usage

	minute, err := l.counts(ctx, "llm_usage_minute", sq.Eq{
		"minute_bucket": MinuteBucket(now),
		"api_key_hash":  hash,
		"model_type":    string(mt),
	})
	if err != nil {
		return u, fmt.Errorf("minute usage: %w", err)
	}

	day, err := l.counts(ctx, "llm_usage_daily", sq.Eq{
		"day":          DayBucket(now),
		"api_key_hash": hash,
		"model_type":   string(mt),
	})
	if err != nil {
		return u, fmt.Errorf("daily usage: %w", err)
	}

	u.RPM = minute.requests
	u.TPM = minute.tokens
	u.RPD = day.requests
	return u, nil
}

type counters struct {
	requests int
	tokens   int
}

func (l *PostgresLedger) counts(ctx context.Context, table string, where sq.Eq) (counters, error) {
	var c counters

	q, args, err := psql.
		Select("request_count", "token_count").
		From(table).
		Where(where).
		ToSql()
	if err != nil {
		return c, err
	}

	err = l.db.QueryRowContext(ctx, q, args...).Scan(&c.requests, &c.tokens)
	if errors.Is(err, sql.ErrNoRows) {
		return counters{}, nil
	}
	return c, err
}

// Record increments both buckets in one transaction.
func (l *PostgresLedger) Record(ctx context.Context, hash string, mt ModelType, tokens int, now time.Time) error {
	minuteQ, minuteArgs, err := psql.
		Insert("llm_usage_minute").
		Columns("minute_bucket", "api_key_hash", "model_type", "request_count", "token_count").
		Values(MinuteBucket(now), hash, string(mt), 1, tokens).
		Suffix(`ON CONFLICT (minute_bucket, api_key_hash, model_type) DO UPDATE SET
			request_count = llm_usage_minute.request_count + 1,
			token_count = llm_usage_minute.token_count + EXCLUDED.token_count`).
		ToSql()
	if err != nil {
		return err
	}

	dayQ, dayArgs, err := psql.
		Insert("llm_usage_daily").
		Columns("day", "api_key_hash", "model_type", "request_count", "token_count").
		Values(DayBucket(now), hash, string(mt), 1, tokens).
		Suffix(`ON CONFLICT (day, api_key_hash, model_type) DO UPDATE SET
			request_count = llm_usage_daily.request_count + 1,
			token_count = llm_usage_daily.token_count + EXCLUDED.token_count,
			updated_at = NOW()`).
		ToSql()
	if err != nil {
		return err
	}

	_, err = repository.WithTx(ctx, l.db, func(tx *sql.Tx) (struct{}, error) {
		if _, err := tx.ExecContext(ctx, minuteQ, minuteArgs...); err != nil {
			return struct{}{}, fmt.Errorf("record minute usage: %w", err)
		}
		if _, err := tx.ExecContext(ctx, dayQ, dayArgs...); err != nil {
			return struct{}{}, fmt.Errorf("record daily usage: %w", err)
		}
		return struct{}{}, nil
	})
	return err
}

// Cleanup deletes minute rows before minuteBefore and daily rows before dayBefore.
func (l *PostgresLedger) Cleanup(ctx context.Context, minuteBefore, dayBefore time.Time) (int64, error) {
	minuteQ, minuteArgs, err := psql.
		Delete("llm_usage_minute").
		Where(sq.Lt{"minute_bucket": minuteBefore.UTC()}).
		ToSql()
	if err != nil {
		return 0, err
	}

	dayQ, dayArgs, err := psql.
		Delete("llm_usage_daily").
		Where(sq.Lt{"day": DayBucket(dayBefore)}).
		ToSql()
	if err != nil {
		return 0, err
	}

	minutes, err := repository.ExecAffected(ctx, l.db, minuteQ, minuteArgs...)
	if err != nil {
		return 0, fmt.Errorf("cleanup minute usage: %w", err)
	}

	days, err := repository.ExecAffected(ctx, l.db, dayQ, dayArgs...)
	if err != nil {
		return minutes, fmt.Errorf("cleanup daily usage: %w", err)
	}

	return minutes + days, nil
}
