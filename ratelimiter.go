package qec

import (
	"context"
	"sync"
	"time"
)

/*
RateLimiter throttles oracle calls with a token bucket. Every call takes a
token; tokens come back one per refill interval up to the burst capacity.
A backend that bills or queues per execution sits behind one of these so a
wide worker pool does not flood it.
*/
type RateLimiter struct {
	tokens     int           // Current number of available tokens
	maxTokens  int           // Burst capacity
	refillRate time.Duration // Time between token replenishments
	lastRefill time.Time
	mu         sync.Mutex
}

/*
NewRateLimiter creates a limiter with the given burst capacity and refill
interval. It starts full.

Example:

	limiter := NewRateLimiter(100, 10*time.Millisecond) // bursts of 100, then 100 calls/second
*/
func NewRateLimiter(maxTokens int, refillRate time.Duration) *RateLimiter {
	if maxTokens < 1 {
		maxTokens = 1
	}
	if refillRate <= 0 {
		refillRate = time.Millisecond
	}
	return &RateLimiter{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// Limit takes a token when one is available and reports whether the call
// has to be held back.
func (rl *RateLimiter) Limit() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refill()
	if rl.tokens > 0 {
		rl.tokens--
		return false
	}
	return true
}

// Wait blocks until a token is taken or ctx ends.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	for rl.Limit() {
		timer := time.NewTimer(rl.refillRate)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}

// refill assumes the caller holds the lock. Only whole periods are credited.
func (rl *RateLimiter) refill() {
	periods := time.Since(rl.lastRefill) / rl.refillRate
	if periods <= 0 {
		return
	}
	rl.tokens = min(rl.maxTokens, rl.tokens+int(periods))
	rl.lastRefill = rl.lastRefill.Add(periods * rl.refillRate)
}
