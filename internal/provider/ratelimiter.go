package provider

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is a token bucket shared by every request of one provider.
// Pause empties the bucket until a deadline, for upstream 429 responses.
type RateLimiter struct {
	mu             sync.Mutex
	tokens         int
	maxTokens      int
	refillInterval time.Duration
	lastRefill     time.Time
	pausedUntil    time.Time
	now            func() time.Time
}

// NewRateLimiter allows a burst of maxTokens calls, then one call per
// refillInterval.
func NewRateLimiter(maxTokens int, refillInterval time.Duration) *RateLimiter {
	return &RateLimiter{
		tokens:         maxTokens,
		maxTokens:      maxTokens,
		refillInterval: refillInterval,
		lastRefill:     time.Now(),
		now:            time.Now,
	}
}

// Wait blocks until a token is available or ctx is cancelled.
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		delay := r.take()
		if delay == 0 {
			return nil
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Pause drops every token and refuses new ones for d.
func (r *RateLimiter) Pause(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	until := r.now().Add(d)
	if until.After(r.pausedUntil) {
		r.pausedUntil = until
	}
	r.tokens = 0
	r.lastRefill = r.pausedUntil
}

// take consumes a token, or returns how long to sleep before trying again.
func (r *RateLimiter) take() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if now.Before(r.pausedUntil) {
		return r.pausedUntil.Sub(now)
	}

	if elapsed := now.Sub(r.lastRefill); elapsed >= r.refillInterval {
		n := int(elapsed / r.refillInterval)
		r.tokens = min(r.tokens+n, r.maxTokens)
		r.lastRefill = r.lastRefill.Add(time.Duration(n) * r.refillInterval)
	}
	if r.tokens > 0 {
		r.tokens--
		return 0
	}
	return r.refillInterval - now.Sub(r.lastRefill)
}
