package ratelimit

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock for window tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestWindowLimiter_AllowsUpToLimit(t *testing.T) {
	clock := newFakeClock()
	limiter := NewWindowLimiter(3, time.Minute, WithClock(clock.Now))

	for i := 0; i < 3; i++ {
		info, err := limiter.Check("k")
		require.NoError(t, err, "request %d should be allowed", i+1)
		assert.Equal(t, 3, info.Limit)
		assert.Equal(t, 2-i, info.Remaining)
	}

	info, err := limiter.Check("k")
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, 0, info.Remaining)
	assert.Equal(t, time.Minute, info.RetryAfter)
}

func TestWindowLimiter_RecoversAfterWindow(t *testing.T) {
	clock := newFakeClock()
	limiter := NewWindowLimiter(2, time.Minute, WithClock(clock.Now))

	for i := 0; i < 2; i++ {
		_, err := limiter.Check("k")
		require.NoError(t, err)
	}
	_, err := limiter.Check("k")
	require.ErrorIs(t, err, ErrRateLimited)

	clock.Advance(59 * time.Second)
	_, err = limiter.Check("k")
	assert.ErrorIs(t, err, ErrRateLimited, "still inside the window")

	clock.Advance(time.Second)
	info, err := limiter.Check("k")
	assert.NoError(t, err, "window elapsed, key starts over")
	assert.Equal(t, 1, info.Remaining)
}

func TestWindowLimiter_RejectedRequestsAreNotCounted(t *testing.T) {
	clock := newFakeClock()
	limiter := NewWindowLimiter(1, time.Minute, WithClock(clock.Now))

	_, err := limiter.Check("k")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err = limiter.Check("k")
		require.ErrorIs(t, err, ErrRateLimited)
	}

	limiter.mu.Lock()
	count := limiter.entries["k"].count
	limiter.mu.Unlock()
	assert.Equal(t, 1, count)
}

func TestWindowLimiter_AcceptedRequestExtendsWindow(t *testing.T) {
	clock := newFakeClock()
	limiter := NewWindowLimiter(3, time.Minute, WithClock(clock.Now))

	_, err := limiter.Check("k")
	require.NoError(t, err)

	// Each accepted request re-anchors the window, so the entry survives
	// well past one minute after the first request.
	clock.Advance(50 * time.Second)
	_, err = limiter.Check("k")
	require.NoError(t, err)
	clock.Advance(50 * time.Second)
	_, err = limiter.Check("k")
	require.NoError(t, err)

	_, err = limiter.Check("k")
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestWindowLimiter_DifferentKeys(t *testing.T) {
	limiter := NewWindowLimiter(1, time.Minute)

	_, err := limiter.Check("key1")
	require.NoError(t, err)
	_, err = limiter.Check("key1")
	assert.ErrorIs(t, err, ErrRateLimited, "key1 should be denied")

	_, err = limiter.Check("key2")
	assert.NoError(t, err, "key2 should be allowed")
}

func TestWindowLimiter_SweepEvictsExpiredKeys(t *testing.T) {
	clock := newFakeClock()
	limiter := NewWindowLimiter(5, time.Minute, WithClock(clock.Now))

	for i := 0; i < 10; i++ {
		_, err := limiter.Check(fmt.Sprintf("client-%d", i))
		require.NoError(t, err)
	}
	assert.Equal(t, 10, limiter.Len())

	clock.Advance(time.Minute)
	_, err := limiter.Check("fresh")
	require.NoError(t, err)

	assert.Equal(t, 1, limiter.Len(), "every expired key is swept, not only the one checked")
}

func TestWindowLimiter_ConcurrentNeverExceedsLimit(t *testing.T) {
	const limit = 100
	limiter := NewWindowLimiter(limit, time.Hour)

	var accepted atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				if _, err := limiter.Check("shared"); err == nil {
					accepted.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(limit), accepted.Load())
}

func TestWindowLimiter_ResetAt(t *testing.T) {
	clock := newFakeClock()
	limiter := NewWindowLimiter(2, 30*time.Second, WithClock(clock.Now))

	info, err := limiter.Check("k")
	require.NoError(t, err)
	assert.Equal(t, clock.Now().Add(30*time.Second), info.ResetAt)
}

func TestUnlimited(t *testing.T) {
	var l Limiter = Unlimited{}
	for i := 0; i < 1000; i++ {
		_, err := l.Check("k")
		require.NoError(t, err)
	}
}
