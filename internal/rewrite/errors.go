package rewrite

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/scribe/internal/completion"
	"github.com/JaimeStill/scribe/internal/posts"
	"github.com/JaimeStill/scribe/internal/ratelimit"
)

var (
	ErrNotRewritable  = errors.New("post is not awaiting rewrite")
	ErrNoFailedReview = errors.New("post has no failed review")
	ErrInvalidContent = errors.New("rewritten content invalid")
)

// MapHTTPStatus maps rewrite errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotRewritable), errors.Is(err, ErrNoFailedReview):
		return http.StatusConflict
	case errors.Is(err, ratelimit.ErrDailyCapReached), errors.Is(err, ratelimit.ErrWaitExceeded):
		return ratelimit.MapHTTPStatus(err)
	case errors.Is(err, completion.ErrRetriesExhausted),
		errors.Is(err, completion.ErrEmptyResponse),
		errors.Is(err, completion.ErrUnavailable):
		return completion.MapHTTPStatus(err)
	default:
		return posts.MapHTTPStatus(err)
	}
}
