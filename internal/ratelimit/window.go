package ratelimit

import (
	"sync"
	"time"
)

// entry is the accounting record for one key.
type entry struct {
	count       int
	windowStart time.Time
}

// WindowLimiter allows at most limit requests per key inside a rolling
// window. The window is anchored to the most recently accepted request: each
// accepted request moves windowStart forward, so a steady stream of accepted
// requests keeps the entry alive until the limit is hit, and the key only
// recovers once window has passed without an accepted request.
//
// Every Check sweeps the whole map and drops expired entries, so idle keys
// never outlive one window plus the next call. No background goroutine is
// needed.
type WindowLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
}

// Option configures a WindowLimiter.
type Option func(*WindowLimiter)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *WindowLimiter) { l.now = now }
}

// NewWindowLimiter creates a limiter accepting limit requests per window.
func NewWindowLimiter(limit int, window time.Duration, opts ...Option) *WindowLimiter {
	l := &WindowLimiter{
		limit:   limit,
		window:  window,
		now:     time.Now,
		entries: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Check implements Limiter.
func (l *WindowLimiter) Check(key string) (Info, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for k, e := range l.entries {
		if now.Sub(e.windowStart) >= l.window {
			delete(l.entries, k)
		}
	}

	e, ok := l.entries[key]
	if !ok {
		e = &entry{windowStart: now}
		l.entries[key] = e
	}

	if e.count >= l.limit {
		resetAt := e.windowStart.Add(l.window)
		return Info{
			Limit:      l.limit,
			Remaining:  0,
			ResetAt:    resetAt,
			RetryAfter: resetAt.Sub(now),
		}, ErrRateLimited
	}

	e.count++
	e.windowStart = now

	return Info{
		Limit:     l.limit,
		Remaining: l.limit - e.count,
		ResetAt:   now.Add(l.window),
	}, nil
}

// Len reports how many keys are currently tracked.
func (l *WindowLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Unlimited is a Limiter that accepts everything. It is used when rate
// limiting is disabled in configuration.
type Unlimited struct{}

// Check implements Limiter.
func (Unlimited) Check(string) (Info, error) {
	return Info{}, nil
}
