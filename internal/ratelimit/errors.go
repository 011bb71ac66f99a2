package ratelimit

import (
	"errors"
	"net/http"
)

var (
	ErrNoCredentials    = errors.New("at least one api key is required")
	ErrDailyCapReached  = errors.New("all api keys have reached their daily limit")
	ErrWaitExceeded     = errors.New("rate limit wait exceeds maximum")
	ErrInvalidModelType = errors.New("invalid model type")
)

// MapHTTPStatus maps rate limit errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrDailyCapReached), errors.Is(err, ErrWaitExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrInvalidModelType):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
