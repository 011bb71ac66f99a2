package completion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"github.com/JaimeStill/scribe/pkg/retry"
)

// GenAI is the Gemini API model. One client is created and cached per key.
type GenAI struct {
	mu      sync.Mutex
	clients map[string]*genai.Client
}

func NewGenAI() *GenAI {
	return &GenAI{clients: make(map[string]*genai.Client)}
}

func (g *GenAI) client(ctx context.Context, key string) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if c, ok := g.clients[key]; ok {
		return c, nil
	}

	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	g.clients[key] = c
	return c, nil
}

func (g *GenAI) Generate(ctx context.Context, key, model string, req Request) (Response, error) {
	c, err := g.client(ctx, key)
	if err != nil {
		return Response{}, err
	}

	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(req.Temperature),
		MaxOutputTokens: req.MaxTokens,
	}

	res, err := c.Models.GenerateContent(ctx, model, genai.Text(req.Text()), cfg)
	if err != nil {
		return Response{}, err
	}

	out := Response{Text: strings.TrimSpace(res.Text())}
	if res.UsageMetadata != nil {
		out.TotalTokens = int(res.UsageMetadata.TotalTokenCount)
	}
	return out, nil
}

func (g *GenAI) Embed(ctx context.Context, key, model, text string, dims int32) ([]float32, error) {
	c, err := g.client(ctx, key)
	if err != nil {
		return nil, err
	}

	contents := []*genai.Content{
		genai.NewContentFromText(text, genai.RoleUser),
	}

	cfg := &genai.EmbedContentConfig{}
	if dims > 0 {
		cfg.OutputDimensionality = genai.Ptr(dims)
	}

	res, err := c.Models.EmbedContent(ctx, model, contents, cfg)
	if err != nil {
		return nil, err
	}
	if len(res.Embeddings) == 0 || res.Embeddings[0] == nil {
		return nil, nil
	}
	return res.Embeddings[0].Values, nil
}

// rateLimited reports whether err is a provider 429.
func rateLimited(err error) bool {
	var apiErr genai.APIError
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests
}

// transient reports whether err is worth retrying. Client errors other than
// 408 and 429 are not.
func transient(err error) bool {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return true
	}
	switch {
	case apiErr.Code == http.StatusTooManyRequests, apiErr.Code == http.StatusRequestTimeout:
		return true
	case apiErr.Code >= 400 && apiErr.Code < 500:
		return false
	default:
		return true
	}
}

// retryHint reads a RetryInfo retryDelay from the error details, falling
// back to a retryDelay fragment in the message.
func retryHint(err error) (time.Duration, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		for _, d := range apiErr.Details {
			raw, ok := d["retryDelay"].(string)
			if !ok {
				continue
			}
			if delay, err := time.ParseDuration(raw); err == nil && delay > 0 {
				return delay, true
			}
		}
	}
	return retry.HintFromMessage(err)
}
