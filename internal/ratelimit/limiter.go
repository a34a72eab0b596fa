// Package ratelimit provides the gateway's request quota: a rolling-window
// counter per key, the strategies for choosing that key, and helpers that
// expose the limiter state as standard rate limit response headers.
package ratelimit

import (
	"errors"
	"time"
)

// ErrRateLimited is returned by Check when the key has exhausted its quota
// for the current window.
var ErrRateLimited = errors.New("rate limit exceeded")

// Limiter defines the rate limiting contract. Implementations must be safe for
// concurrent use and must never block on I/O.
type Limiter interface {
	// Check accounts one request for key. It returns ErrRateLimited, without
	// counting the request, when the key is over its limit. Info is populated
	// in both cases.
	Check(key string) (Info, error)
}

// Info contains rate limit state for populating response headers.
type Info struct {
	Limit      int           // Maximum accepted requests per window
	Remaining  int           // Requests left in the current window
	ResetAt    time.Time     // When the window expires if no further request is accepted
	RetryAfter time.Duration // How long to wait (meaningful only when denied)
}
