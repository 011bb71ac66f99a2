package rules

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound        = errors.New("rule not found")
	ErrDuplicate       = errors.New("rule already exists")
	ErrInvalidCategory = errors.New("unknown rule category")
)

// MapHTTPStatus maps rule domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidCategory):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
