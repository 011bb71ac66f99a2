// Package completion wraps text generation and embedding behind a client
// that paces requests, picks credentials through the rate limiter, retries
// transient failures and records usage for every attempted call.
package completion

import (
	"context"
	"errors"
	"net/http"
)

var (
	ErrEmptyResponse    = errors.New("empty response text")
	ErrEmptyEmbedding   = errors.New("empty embedding")
	ErrRetriesExhausted = errors.New("completion retries exhausted")
	ErrUnavailable      = errors.New("completion unavailable: no api keys configured")
)

// Request is one generation call. A zero Temperature uses DefaultTemperature
// and a zero MaxTokens leaves the model default in place.
type Request struct {
	System      string
	Prompt      string
	Temperature float32
	MaxTokens   int32
}

// Text is the prompt sent to the model: the system instruction, a blank
// line, then the user prompt.
func (r Request) Text() string {
	if r.System == "" {
		return r.Prompt
	}
	return r.System + "\n\n" + r.Prompt
}

// Response is a generated text and the total tokens the provider reported.
type Response struct {
	Text        string
	TotalTokens int
}

// Model is the provider boundary. key selects the credential per call.
type Model interface {
	Generate(ctx context.Context, key, model string, req Request) (Response, error)
	Embed(ctx context.Context, key, model, text string, dims int32) ([]float32, error)
}

// EstimateTokens approximates tokens as one per four bytes, rounded up.
func EstimateTokens(s string) int {
	return (len(s) + 3) / 4
}

// MapHTTPStatus maps completion errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrRetriesExhausted), errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrEmptyResponse), errors.Is(err, ErrEmptyEmbedding):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
