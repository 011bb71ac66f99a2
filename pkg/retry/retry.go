// Package retry runs operations under bounded exponential backoff that
// defers to server-supplied retry hints.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strconv"
	"time"
)

// ErrExhausted wraps the final error once every attempt has failed.
var ErrExhausted = errors.New("retries exhausted")

var retryDelayPattern = regexp.MustCompile(`"retryDelay"\s*:\s*"(\d+)s"`)

// Policy bounds a retry loop. Retries counts attempts after the first.
type Policy struct {
	Retries   int
	BaseDelay time.Duration
	MaxDelay  time.Duration
	MaxJitter time.Duration

	// Sleep waits for d or until ctx is done. Defaults to a timer-based sleep.
	Sleep func(ctx context.Context, d time.Duration) error
	// Hint extracts a server-requested delay from err. Defaults to HintFromMessage.
	Hint func(err error) (time.Duration, bool)
}

type permanent struct {
	err error
}

func (p permanent) Error() string { return p.err.Error() }
func (p permanent) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanent{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p permanent
	return errors.As(err, &p)
}

// HintFromMessage finds a `"retryDelay": "Ns"` fragment in the error text.
func HintFromMessage(err error) (time.Duration, bool) {
	if err == nil {
		return 0, false
	}
	m := retryDelayPattern.FindStringSubmatch(err.Error())
	if len(m) < 2 {
		return 0, false
	}
	seconds, convErr := strconv.Atoi(m[1])
	if convErr != nil || seconds <= 0 {
		return 0, false
	}
	return time.Duration(seconds) * time.Second, true
}

// Delay returns the wait before retry number attempt (1-based) following err.
// A server hint wins over backoff; both are capped at MaxDelay.
func (p Policy) Delay(attempt int, err error) time.Duration {
	hint := p.Hint
	if hint == nil {
		hint = HintFromMessage
	}
	if d, ok := hint(err); ok {
		return min(d, p.MaxDelay)
	}

	backoff := p.BaseDelay << (attempt - 1)
	if backoff <= 0 || backoff > p.MaxDelay {
		backoff = p.MaxDelay
	}

	if p.MaxJitter > 0 {
		backoff += time.Duration(rand.Int64N(int64(p.MaxJitter)))
	}
	return backoff
}

// Do calls fn until it succeeds, returns a permanent error, the context ends,
// or Retries additional attempts have failed.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var zero T
	sleep := p.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	for attempt := 0; ; attempt++ {
		result, err := fn(ctx, attempt)
		if err == nil {
			return result, nil
		}
		if IsPermanent(err) {
			return zero, err
		}
		if attempt >= p.Retries {
			return zero, fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempt+1, err)
		}
		if err := sleep(ctx, p.Delay(attempt+1, err)); err != nil {
			return zero, err
		}
	}
}

// Sleep blocks for d or until ctx is done, returning ctx.Err() in the latter case.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
