package posts

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound          = errors.New("post not found")
	ErrDuplicate         = errors.New("post slug already exists")
	ErrInvalidStatus     = errors.New("status must be draft, published, rewrite, or to_be_deleted")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrStatusConflict    = errors.New("post status changed concurrently")
	ErrInvalidContent    = errors.New("invalid post content")
)

// MapHTTPStatus maps post domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate), errors.Is(err, ErrStatusConflict), errors.Is(err, ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrInvalidContent):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
