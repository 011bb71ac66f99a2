package reviews

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/scribe/internal/posts"
)

var (
	ErrNotFound  = errors.New("review not found")
	ErrDuplicate = errors.New("review attempt already recorded")
)

// MapHTTPStatus maps review and post domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	default:
		return posts.MapHTTPStatus(err)
	}
}
