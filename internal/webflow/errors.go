package webflow

import (
	"fmt"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
)

// ErrNotFound indicates the site or collection does not exist
var ErrNotFound = errors.New("webflow resource not found")

// ErrInvalidToken indicates the API token was rejected
var ErrInvalidToken = errors.New("invalid or expired Webflow token")

// ErrRateLimited indicates the API rate limit was exceeded
var ErrRateLimited = errors.New("webflow API rate limit exceeded")

// RemoteError is a non-2xx response from the Webflow API.
type RemoteError struct {
	StatusCode int
	Message    string
	RetryAfter time.Duration // from the Retry-After header, zero when absent
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("webflow API error (status %d): %s", e.StatusCode, e.Message)
}

// Unwrap exposes the sentinel matching the status, so errors.Is works on
// ErrNotFound, ErrInvalidToken and ErrRateLimited.
func (e *RemoteError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrInvalidToken
	case http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		return nil
	}
}

func isRetryableError(err error) bool {
	var remote *RemoteError
	if !errors.As(err, &remote) {
		return false
	}
	return remote.StatusCode == http.StatusTooManyRequests || remote.StatusCode >= 500
}
