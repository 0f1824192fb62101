package ratelimit

import (
	"sync"
	"time"
)

// IPRateLimiter keeps one token bucket per client IP
type IPRateLimiter struct {
	limiters   map[string]*TokenBucket
	mu         sync.Mutex
	maxTokens  float64
	refillRate float64
	idleTTL    time.Duration
	now        func() time.Time
	cleanup    *time.Ticker
	stopChan   chan struct{}
	stopOnce   sync.Once
}

// NewIPRateLimiter creates a new IPRateLimiter. Buckets that sat full and
// unused for idleTTL are evicted on every cleanup tick.
func NewIPRateLimiter(maxTokens, refillRate float64, idleTTL time.Duration) *IPRateLimiter {
	limiter := newIPRateLimiter(maxTokens, refillRate, idleTTL, time.Now)
	limiter.cleanup = time.NewTicker(idleTTL)

	go limiter.cleanupLoop()

	return limiter
}

func newIPRateLimiter(maxTokens, refillRate float64, idleTTL time.Duration, now func() time.Time) *IPRateLimiter {
	return &IPRateLimiter{
		limiters:   make(map[string]*TokenBucket),
		maxTokens:  maxTokens,
		refillRate: refillRate,
		idleTTL:    idleTTL,
		now:        now,
		stopChan:   make(chan struct{}),
	}
}

// Allow checks if a request from the given IP can proceed. When it cannot,
// the returned duration says when the next token arrives.
func (ipl *IPRateLimiter) Allow(ip string) (bool, time.Duration) {
	limiter := ipl.getLimiter(ip)
	if limiter.Allow() {
		return true, 0
	}
	return false, limiter.RetryAfter()
}

// Size returns the number of tracked IPs
func (ipl *IPRateLimiter) Size() int {
	ipl.mu.Lock()
	defer ipl.mu.Unlock()
	return len(ipl.limiters)
}

// getLimiter returns the token bucket for the given IP
func (ipl *IPRateLimiter) getLimiter(ip string) *TokenBucket {
	ipl.mu.Lock()
	defer ipl.mu.Unlock()

	limiter, exists := ipl.limiters[ip]

	if !exists {
		limiter = newTokenBucket(ipl.maxTokens, ipl.refillRate, ipl.now)
		ipl.limiters[ip] = limiter
	}
	return limiter
}

// evictIdle drops buckets that are full and unused for idleTTL
func (ipl *IPRateLimiter) evictIdle() int {
	ipl.mu.Lock()
	defer ipl.mu.Unlock()

	evicted := 0
	for ip, limiter := range ipl.limiters {
		if limiter.Idle(ipl.idleTTL) {
			delete(ipl.limiters, ip)
			evicted++
		}
	}
	return evicted
}

func (ipl *IPRateLimiter) cleanupLoop() {
	for {
		select {
		case <-ipl.cleanup.C:
			ipl.evictIdle()
		case <-ipl.stopChan:
			ipl.cleanup.Stop()
			return
		}
	}
}

// Stop stops the IP rate limiter
func (ipl *IPRateLimiter) Stop() {
	ipl.stopOnce.Do(func() {
		close(ipl.stopChan)
	})
}
