package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/JaimeStill/scribe/pkg/retry"
)

func testPolicy(slept *[]time.Duration) retry.Policy {
	return retry.Policy{
		Retries:   3,
		BaseDelay: time.Second,
		MaxDelay:  10 * time.Second,
		Sleep: func(_ context.Context, d time.Duration) error {
			*slept = append(*slept, d)
			return nil
		},
	}
}

func TestDoSucceedsAfterFailures(t *testing.T) {
	var slept []time.Duration
	calls := 0

	got, err := retry.Do(context.Background(), testPolicy(&slept), func(_ context.Context, attempt int) (string, error) {
		calls++
		if attempt < 2 {
			return "", errors.New("503 unavailable")
		}
		return "ok", nil
	})

	if err != nil {
		t.Fatalf("Do error: %v", err)
	}
	if got != "ok" || calls != 3 {
		t.Errorf("got %q after %d calls, want ok after 3", got, calls)
	}

	want := []time.Duration{time.Second, 2 * time.Second}
	if len(slept) != len(want) {
		t.Fatalf("slept %v, want %v", slept, want)
	}
	for i := range want {
		if slept[i] != want[i] {
			t.Errorf("slept[%d] = %v, want %v", i, slept[i], want[i])
		}
	}
}

func TestDoExhausted(t *testing.T) {
	var slept []time.Duration
	calls := 0
	cause := errors.New("429 too many requests")

	_, err := retry.Do(context.Background(), testPolicy(&slept), func(context.Context, int) (int, error) {
		calls++
		return 0, cause
	})

	if !errors.Is(err, retry.ErrExhausted) || !errors.Is(err, cause) {
		t.Errorf("error = %v, want ErrExhausted wrapping cause", err)
	}
	if calls != 4 {
		t.Errorf("calls = %d, want 4", calls)
	}
}

func TestDoPermanent(t *testing.T) {
	var slept []time.Duration
	calls := 0
	cause := errors.New("empty response")

	_, err := retry.Do(context.Background(), testPolicy(&slept), func(context.Context, int) (int, error) {
		calls++
		return 0, retry.Permanent(cause)
	})

	if !errors.Is(err, cause) || errors.Is(err, retry.ErrExhausted) {
		t.Errorf("error = %v, want unwrapped permanent cause", err)
	}
	if calls != 1 || len(slept) != 0 {
		t.Errorf("calls = %d slept = %v, want single call and no sleep", calls, slept)
	}
}

func TestDoContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := retry.Policy{Retries: 5, BaseDelay: time.Hour, MaxDelay: time.Hour}

	cancel()
	_, err := retry.Do(ctx, p, func(context.Context, int) (int, error) {
		return 0, errors.New("fail")
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestDelay(t *testing.T) {
	p := retry.Policy{BaseDelay: time.Second, MaxDelay: 10 * time.Second}

	tests := []struct {
		name    string
		attempt int
		err     error
		want    time.Duration
	}{
		{"first backoff", 1, errors.New("x"), time.Second},
		{"third backoff", 3, errors.New("x"), 4 * time.Second},
		{"capped backoff", 6, errors.New("x"), 10 * time.Second},
		{"server hint", 1, errors.New(`{"retryDelay": "7s"}`), 7 * time.Second},
		{"server hint capped", 1, errors.New(`"retryDelay":"42s"`), 10 * time.Second},
		{"zero hint ignored", 2, errors.New(`"retryDelay":"0s"`), 2 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.Delay(tt.attempt, tt.err); got != tt.want {
				t.Errorf("Delay = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDelayJitterBounded(t *testing.T) {
	p := retry.Policy{BaseDelay: time.Second, MaxDelay: 10 * time.Second, MaxJitter: 250 * time.Millisecond}

	for range 50 {
		d := p.Delay(1, errors.New("x"))
		if d < time.Second || d >= time.Second+250*time.Millisecond {
			t.Fatalf("Delay = %v, want within [1s, 1.25s)", d)
		}
	}
}
