package completion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/JaimeStill/scribe/internal/ratelimit"
	"github.com/JaimeStill/scribe/pkg/retry"
)

const (
	DefaultTemperature     float32 = 0.7
	DefaultGenerationModel         = "gemini-2.5-flash"
	DefaultEmbeddingModel          = "gemini-embedding-001"
	DefaultDimensions      int32   = 768
	DefaultMinDelay                = 10 * time.Second
)

// DefaultRetry is three retries from a one second base, capped at ten
// seconds with up to 250ms of jitter.
var DefaultRetry = retry.Policy{
	Retries:   3,
	BaseDelay: time.Second,
	MaxDelay:  10 * time.Second,
	MaxJitter: 250 * time.Millisecond,
}

// Limiter is the credential budget the client draws from.
type Limiter interface {
	WaitForKey(ctx context.Context, model string, mt ratelimit.ModelType, tokens int, maxWait time.Duration) (*ratelimit.Selection, error)
	Record(ctx context.Context, cred ratelimit.Credential, mt ratelimit.ModelType, tokens int) error
	Snapshot(ctx context.Context) ([]ratelimit.KeyUsage, error)
	Summary(ctx context.Context) (string, error)
}

// Options configure a Client. Zero values take the package defaults.
type Options struct {
	GenerationModel string
	EmbeddingModel  string
	Dimensions      int32
	MinDelay        time.Duration
	MaxWait         time.Duration
	Retry           retry.Policy

	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// Client is safe for concurrent use. Requests from all goroutines share one
// minimum spacing.
type Client struct {
	model   Model
	limiter Limiter
	opts    Options
	logger  *slog.Logger

	mu   sync.Mutex
	last time.Time
}

func New(model Model, limiter Limiter, opts Options, logger *slog.Logger) *Client {
	if opts.GenerationModel == "" {
		opts.GenerationModel = DefaultGenerationModel
	}
	if opts.EmbeddingModel == "" {
		opts.EmbeddingModel = DefaultEmbeddingModel
	}
	if opts.Dimensions <= 0 {
		opts.Dimensions = DefaultDimensions
	}
	if opts.MinDelay < 0 {
		opts.MinDelay = 0
	}
	if opts.MaxWait <= 0 {
		opts.MaxWait = ratelimit.DefaultMaxWait
	}
	if opts.Retry.MaxDelay <= 0 {
		opts.Retry = DefaultRetry
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Sleep == nil {
		opts.Sleep = retry.Sleep
	}
	if opts.Retry.Sleep == nil {
		opts.Retry.Sleep = opts.Sleep
	}
	if opts.Retry.Hint == nil {
		opts.Retry.Hint = retryHint
	}

	return &Client{
		model:   model,
		limiter: limiter,
		opts:    opts,
		logger:  logger.With("system", "completion"),
	}
}

// GenerateText returns the trimmed text for req.
func (c *Client) GenerateText(ctx context.Context, req Request) (string, error) {
	if req.Temperature == 0 {
		req.Temperature = DefaultTemperature
	}
	estimate := EstimateTokens(req.Text())
	model := c.opts.GenerationModel

	res, err := retry.Do(ctx, c.opts.Retry, func(ctx context.Context, attempt int) (Response, error) {
		sel, err := c.acquire(ctx, model, ratelimit.Generation, estimate)
		if err != nil {
			return Response{}, err
		}

		res, err := c.model.Generate(ctx, sel.Key, model, req)
		if err != nil {
			return Response{}, c.failed(ctx, sel, ratelimit.Generation, estimate, attempt, err)
		}

		tokens := res.TotalTokens
		if tokens <= 0 {
			tokens = estimate
		}
		c.record(ctx, sel, ratelimit.Generation, tokens)
		return res, nil
	})
	if err != nil {
		return "", c.exhausted(err)
	}

	text := strings.TrimSpace(res.Text)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// EmbedText returns the embedding vector for text at the configured
// dimensionality.
func (c *Client) EmbedText(ctx context.Context, text string) ([]float32, error) {
	estimate := EstimateTokens(text)
	model := c.opts.EmbeddingModel

	values, err := retry.Do(ctx, c.opts.Retry, func(ctx context.Context, attempt int) ([]float32, error) {
		sel, err := c.acquire(ctx, model, ratelimit.Embedding, estimate)
		if err != nil {
			return nil, err
		}

		values, err := c.model.Embed(ctx, sel.Key, model, text, c.opts.Dimensions)
		if err != nil {
			return nil, c.failed(ctx, sel, ratelimit.Embedding, estimate, attempt, err)
		}

		c.record(ctx, sel, ratelimit.Embedding, estimate)
		return values, nil
	})
	if err != nil {
		return nil, c.exhausted(err)
	}

	if len(values) == 0 {
		return nil, ErrEmptyEmbedding
	}
	return values, nil
}

// Usage returns every credential's current usage.
func (c *Client) Usage(ctx context.Context) ([]ratelimit.KeyUsage, error) {
	return c.limiter.Snapshot(ctx)
}

// Summary returns the one-line usage summary.
func (c *Client) Summary(ctx context.Context) (string, error) {
	return c.limiter.Summary(ctx)
}

// acquire paces the request and waits for a credential. Limiter failures
// end the retry loop.
func (c *Client) acquire(ctx context.Context, model string, mt ratelimit.ModelType, estimate int) (*ratelimit.Selection, error) {
	if err := c.pace(ctx); err != nil {
		return nil, retry.Permanent(err)
	}

	sel, err := c.limiter.WaitForKey(ctx, model, mt, estimate, c.opts.MaxWait)
	if err != nil {
		return nil, retry.Permanent(err)
	}
	return sel, nil
}

// pace holds the caller until MinDelay has passed since the previous request.
func (c *Client) pace(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.last.IsZero() {
		if wait := c.opts.MinDelay - c.opts.Now().Sub(c.last); wait > 0 {
			if err := c.opts.Sleep(ctx, wait); err != nil {
				return err
			}
		}
	}

	c.last = c.opts.Now()
	return nil
}

// failed records an attempted but throttled call and classifies err.
func (c *Client) failed(ctx context.Context, sel *ratelimit.Selection, mt ratelimit.ModelType, estimate, attempt int, err error) error {
	if rateLimited(err) {
		c.record(ctx, sel, mt, estimate)
	}

	if !transient(err) {
		return retry.Permanent(err)
	}

	c.logger.Warn("completion attempt failed",
		"model_type", mt,
		"key", sel.Hash,
		"attempt", attempt+1,
		"error", err,
	)
	return err
}

func (c *Client) record(ctx context.Context, sel *ratelimit.Selection, mt ratelimit.ModelType, tokens int) {
	if err := c.limiter.Record(ctx, sel.Credential, mt, tokens); err != nil {
		c.logger.Error("usage record failed", "key", sel.Hash, "model_type", mt, "error", err)
	}
}

func (c *Client) exhausted(err error) error {
	if errors.Is(err, retry.ErrExhausted) {
		return fmt.Errorf("%w: %w", ErrRetriesExhausted, err)
	}
	return err
}
