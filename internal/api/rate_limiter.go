package api

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is a token bucket shared by every request of a client.
type RateLimiter struct {
	tokens         int
	maxTokens      int
	refillRate     time.Duration
	lastRefillTime time.Time
	mu             sync.Mutex
}

// NewRateLimiter allows bursts of maxTokens and one more request per refillRate.
func NewRateLimiter(maxTokens int, refillRate time.Duration) *RateLimiter {
	return &RateLimiter{
		tokens:         maxTokens,
		maxTokens:      maxTokens,
		refillRate:     refillRate,
		lastRefillTime: time.Now(),
	}
}

// Wait blocks until a token is available or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		if rl.tryAcquire() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// tryAcquire attempts to acquire a token
func (rl *RateLimiter) tryAcquire() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if add := int(now.Sub(rl.lastRefillTime) / rl.refillRate); add > 0 {
		rl.tokens = min(rl.tokens+add, rl.maxTokens)
		rl.lastRefillTime = rl.lastRefillTime.Add(time.Duration(add) * rl.refillRate)
	}

	if rl.tokens > 0 {
		rl.tokens--
		return true
	}

	return false
}
