package ratelimit

import (
	"net/http"
	"strconv"
)

// SetHeaders writes the X-RateLimit-* headers for info, and Retry-After when
// the request was denied. A zero Info (rate limiting disabled) writes nothing.
func SetHeaders(w http.ResponseWriter, info Info, denied bool) {
	if info.Limit == 0 {
		return
	}

	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetAt.Unix(), 10))

	if denied {
		retryAfterSecs := int(info.RetryAfter.Seconds()) + 1
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSecs))
	}
}
