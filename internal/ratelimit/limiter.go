package ratelimit

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/scribe/pkg/retry"
)

const (
	DefaultMaxWait         = 2 * time.Minute
	DefaultMinuteRetention = 24 * time.Hour
	DefaultDayRetention    = 30 * 24 * time.Hour

	waitBuffer = time.Second
)

// Config assembles a Limiter. Zero durations take the package defaults.
type Config struct {
	Keys     []string
	Source   LimitsSource
	Ledger   Ledger
	Defaults map[ModelType]Limits

	LimitsTTL       time.Duration
	MinuteRetention time.Duration
	DayRetention    time.Duration

	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// Limiter selects credentials with remaining budget and records their usage.
type Limiter struct {
	creds           []Credential
	ledger          Ledger
	limits          *limitsCache
	minuteRetention time.Duration
	dayRetention    time.Duration
	now             func() time.Time
	sleep           func(ctx context.Context, d time.Duration) error
	logger          *slog.Logger
}

// KeyUsage is the current usage of one credential for both model types.
type KeyUsage struct {
	Hash       string `json:"hash"`
	Generation Usage  `json:"generation"`
	Embedding  Usage  `json:"embedding"`
}

// New creates a Limiter over the distinct keys in cfg.Keys.
func New(cfg Config, logger *slog.Logger) (*Limiter, error) {
	seen := make(map[string]bool, len(cfg.Keys))
	var creds []Credential
	for _, k := range cfg.Keys {
		k = strings.TrimSpace(k)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		creds = append(creds, NewCredential(k))
	}
	if len(creds) == 0 {
		return nil, ErrNoCredentials
	}
	if cfg.Ledger == nil {
		return nil, fmt.Errorf("ratelimit: ledger required")
	}

	source := cfg.Source
	if source == nil {
		source = StaticLimits{}
	}

	defaults := cfg.Defaults
	if defaults == nil {
		defaults = DefaultLimits
	}

	l := &Limiter{
		creds:  creds,
		ledger: cfg.Ledger,
		limits: &limitsCache{
			source:   source,
			defaults: defaults,
			ttl:      orDefault(cfg.LimitsTTL, DefaultLimitsTTL),
		},
		minuteRetention: orDefault(cfg.MinuteRetention, DefaultMinuteRetention),
		dayRetention:    orDefault(cfg.DayRetention, DefaultDayRetention),
		now:             cfg.Now,
		sleep:           cfg.Sleep,
		logger:          logger.With("system", "ratelimit"),
	}
	if l.now == nil {
		l.now = time.Now
	}
	if l.sleep == nil {
		l.sleep = retry.Sleep
	}
	return l, nil
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// Credentials returns the configured credentials in key order.
func (l *Limiter) Credentials() []Credential {
	return slices.Clone(l.creds)
}

// Refresh reloads the limits table regardless of its age.
func (l *Limiter) Refresh(ctx context.Context) error {
	return l.limits.refresh(ctx, l.now())
}

// Check evaluates one credential. tokens is the estimated request size; zero
// skips the per-minute token check.
func (l *Limiter) Check(ctx context.Context, cred Credential, model string, mt ModelType, tokens int) (Status, error) {
	now := l.now()

	limits, err := l.limits.get(ctx, model, mt, now)
	if err != nil {
		return Status{}, err
	}

	usage, err := l.ledger.Usage(ctx, cred.Hash, mt, now)
	if err != nil {
		return Status{}, err
	}

	return evaluate(mt, limits, usage, tokens, now), nil
}

func (l *Limiter) checkAll(ctx context.Context, model string, mt ModelType, tokens int) ([]Selection, error) {
	out := make([]Selection, 0, len(l.creds))
	for _, c := range l.creds {
		s, err := l.Check(ctx, c, model, mt, tokens)
		if err != nil {
			return nil, fmt.Errorf("check key %s: %w", c.Hash, err)
		}
		out = append(out, Selection{Credential: c, Status: s})
	}
	return out, nil
}

// best picks the proceedable selection with the most daily budget left,
// then the most per-minute requests left. Ties keep key order.
func best(all []Selection) *Selection {
	var candidates []Selection
	for _, s := range all {
		if s.Status.CanProceed {
			candidates = append(candidates, s)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	slices.SortStableFunc(candidates, func(a, b Selection) int {
		if c := cmp.Compare(b.Status.Available.RPD, a.Status.Available.RPD); c != 0 {
			return c
		}
		return cmp.Compare(b.Status.Available.RPM, a.Status.Available.RPM)
	})
	return &candidates[0]
}

// SelectBestKey returns the least constrained credential, or nil when every
// credential is blocked.
func (l *Limiter) SelectBestKey(ctx context.Context, model string, mt ModelType, tokens int) (*Selection, error) {
	all, err := l.checkAll(ctx, model, mt, tokens)
	if err != nil {
		return nil, err
	}
	return best(all), nil
}

// WaitForKey blocks until a credential can proceed. Credentials blocked only
// by their daily cap are not waited on. It fails with ErrDailyCapReached when
// every credential is capped for the day and with ErrWaitExceeded when the
// next opening is further away than maxWait allows.
func (l *Limiter) WaitForKey(ctx context.Context, model string, mt ModelType, tokens int, maxWait time.Duration) (*Selection, error) {
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	start := l.now()

	for {
		all, err := l.checkAll(ctx, model, mt, tokens)
		if err != nil {
			return nil, err
		}
		if sel := best(all); sel != nil {
			return sel, nil
		}

		minWait := time.Duration(math.MaxInt64)
		for _, s := range all {
			if s.Status.Reason != ReasonRPD && s.Status.Wait < minWait {
				minWait = s.Status.Wait
			}
		}

		if minWait == time.Duration(math.MaxInt64) {
			return nil, fmt.Errorf("%w: %d keys capped", ErrDailyCapReached, len(l.creds))
		}

		elapsed := l.now().Sub(start)
		if elapsed+minWait > maxWait {
			return nil, fmt.Errorf("%w: need %s, max %s", ErrWaitExceeded, minWait.Round(time.Second), maxWait)
		}

		l.logger.Warn("all keys rate limited", "model", model, "model_type", mt, "wait", minWait.Round(time.Second))

		if err := l.sleep(ctx, minWait+waitBuffer); err != nil {
			return nil, err
		}
	}
}

// Record adds one request and tokens to the credential's buckets.
func (l *Limiter) Record(ctx context.Context, cred Credential, mt ModelType, tokens int) error {
	if err := l.ledger.Record(ctx, cred.Hash, mt, tokens, l.now()); err != nil {
		return fmt.Errorf("record usage for key %s: %w", cred.Hash, err)
	}
	return nil
}

// Snapshot reads every credential's usage concurrently.
func (l *Limiter) Snapshot(ctx context.Context) ([]KeyUsage, error) {
	now := l.now()
	out := make([]KeyUsage, len(l.creds))

	g, gctx := errgroup.WithContext(ctx)
	for i, c := range l.creds {
		g.Go(func() error {
			gen, err := l.ledger.Usage(gctx, c.Hash, Generation, now)
			if err != nil {
				return err
			}
			emb, err := l.ledger.Usage(gctx, c.Hash, Embedding, now)
			if err != nil {
				return err
			}
			out[i] = KeyUsage{Hash: c.Hash, Generation: gen, Embedding: emb}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("usage snapshot: %w", err)
	}
	return out, nil
}

// Summary renders the snapshot as "Key abcd...: gen=N/day, emb=N/day" parts.
func (l *Limiter) Summary(ctx context.Context) (string, error) {
	snap, err := l.Snapshot(ctx)
	if err != nil {
		return "", err
	}

	parts := make([]string, len(snap))
	for i, k := range snap {
		parts[i] = fmt.Sprintf("Key %s...: gen=%d/day, emb=%d/day", k.Hash[:4], k.Generation.RPD, k.Embedding.RPD)
	}
	return strings.Join(parts, " | "), nil
}

// Cleanup removes usage older than the retention windows.
func (l *Limiter) Cleanup(ctx context.Context) (int64, error) {
	now := l.now()
	n, err := l.ledger.Cleanup(ctx, now.Add(-l.minuteRetention), now.Add(-l.dayRetention))
	if err != nil {
		return n, err
	}
	l.logger.Info("usage cleanup complete", "removed", n)
	return n, nil
}
