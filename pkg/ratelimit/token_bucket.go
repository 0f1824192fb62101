package ratelimit

import (
	"math"
	"sync"
	"time"
)

// TokenBucket implements a token bucket rate limiting algorithm
type TokenBucket struct {
	tokens         float64
	maxTokens      float64
	refillRate     float64
	lastRefillTime time.Time
	now            func() time.Time
	mutex          sync.Mutex
}

// NewTokenBucket creates a full bucket holding maxTokens that refills at
// refillRate tokens per second
func NewTokenBucket(maxTokens float64, refillRate float64) *TokenBucket {
	return newTokenBucket(maxTokens, refillRate, time.Now)
}

func newTokenBucket(maxTokens, refillRate float64, now func() time.Time) *TokenBucket {
	return &TokenBucket{
		tokens:         maxTokens,
		maxTokens:      maxTokens,
		refillRate:     refillRate,
		lastRefillTime: now(),
		now:            now,
	}
}

// Allow checks if a request can proceed based on the token bucket algorithm
func (tb *TokenBucket) Allow() bool {
	return tb.AllowN(1)
}

// AllowN checks if n requests should be allowed based on available tokens
func (tb *TokenBucket) AllowN(n float64) bool {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	tb.refill()

	if tb.tokens >= n {
		tb.tokens -= n
		return true
	}
	return false
}

// RetryAfter returns how long until one token is available
func (tb *TokenBucket) RetryAfter() time.Duration {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	tb.refill()

	missing := 1 - tb.tokens
	if missing <= 0 || tb.refillRate <= 0 {
		return 0
	}
	return time.Duration(math.Ceil(missing / tb.refillRate * float64(time.Second)))
}

// Idle reports whether the bucket is full and has not been touched for d
func (tb *TokenBucket) Idle(d time.Duration) bool {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	now := tb.now()
	elapsed := now.Sub(tb.lastRefillTime)
	full := tb.tokens+elapsed.Seconds()*tb.refillRate >= tb.maxTokens

	return full && elapsed >= d
}

// Available returns the number of available tokens in the bucket
func (tb *TokenBucket) Available() float64 {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	elapsed := tb.now().Sub(tb.lastRefillTime).Seconds()
	return math.Min(tb.maxTokens, tb.tokens+elapsed*tb.refillRate)
}

// refill must be called with the mutex held
func (tb *TokenBucket) refill() {
	now := tb.now()
	elapsed := now.Sub(tb.lastRefillTime).Seconds()
	tb.lastRefillTime = now
	tb.tokens = math.Min(tb.maxTokens, tb.tokens+elapsed*tb.refillRate)
}
