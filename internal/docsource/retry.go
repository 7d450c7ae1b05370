package docsource

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"time"
)

const MaxRetries = 3

// IsRetryable checks if a fetch error is worth retrying: server errors,
// rate limiting and transport failures. Cancellation never is.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Status >= 500 || fe.Status == http.StatusTooManyRequests
	}
	return true
}

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * 250 * time.Millisecond
	if base > 5*time.Second {
		base = 5 * time.Second
	}
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}
