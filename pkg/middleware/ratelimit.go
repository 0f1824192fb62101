package middleware

import (
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	apperrors "github.com/vaidashi/storefront-api/pkg/errors"
	"github.com/vaidashi/storefront-api/pkg/logger"
	"github.com/vaidashi/storefront-api/pkg/ratelimit"
)

// RateLimiterMiddleware applies a per-client-IP token bucket to requests
type RateLimiterMiddleware struct {
	ipLimiter *ratelimit.IPRateLimiter
	logger    logger.Logger
}

// RateLimiterConfig configures the rate limiter middleware
type RateLimiterConfig struct {
	IPMaxTokens  float64
	IPRefillRate float64
	IdleTTL      time.Duration
}

// NewRateLimiterMiddleware creates a new rate limiter middleware
func NewRateLimiterMiddleware(cfg *RateLimiterConfig, logger logger.Logger) *RateLimiterMiddleware {
	idle := cfg.IdleTTL
	if idle <= 0 {
		idle = 10 * time.Minute
	}

	return &RateLimiterMiddleware{
		ipLimiter: ratelimit.NewIPRateLimiter(cfg.IPMaxTokens, cfg.IPRefillRate, idle),
		logger:    logger,
	}
}

// Middleware returns a middleware function
func (m *RateLimiterMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)

		if ok, retryAfter := m.ipLimiter.Allow(ip); !ok {
			m.logger.Warn("IP rate limit exceeded", "method", r.Method, "path", r.URL.Path, "ip", ip)

			seconds := int(math.Ceil(retryAfter.Seconds()))
			if seconds < 1 {
				seconds = 1
			}

			appErr := apperrors.NewRateLimitedError("Too many requests, please try again later").
				WithContext("retry_after_seconds", seconds)

			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
			w.WriteHeader(appErr.StatusCode)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"success": false,
				"error":   appErr.Error(),
				"details": appErr.Context,
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP returns the request's remote address without its port
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Stop stops the rate limiter's cleanup loop
func (m *RateLimiterMiddleware) Stop() {
	m.ipLimiter.Stop()
}
