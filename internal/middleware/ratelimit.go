package middleware

import (
	"net/http"
	"sync"

	"golang.org/x/time/rate"

	"github.com/harborlane/signup-gateway/internal/errors"
	"github.com/harborlane/signup-gateway/internal/httputil"
	"github.com/harborlane/signup-gateway/internal/logging"
)

// RateLimiter limits requests per caller, keyed by remote address. It runs
// ahead of authentication so unauthenticated abuse is throttled before it
// can reach the identity endpoint.
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
	logger   *logging.Logger
}

// NewRateLimiter creates a per-key rate limiter.
func NewRateLimiter(requestsPerSecond, burst int, logger *logging.Logger) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
		logger:   logger,
	}
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, ok := rl.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[key] = limiter
	}
	return limiter
}

// Handler returns the rate limiting middleware.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.RemoteAddr

		if !rl.getLimiter(key).Allow() {
			rl.logger.LogSecurityEvent(r.Context(), "rate_limit_exceeded", map[string]interface{}{
				"key":    key,
				"path":   r.URL.Path,
				"method": r.Method,
			})

			se := errors.RateLimitExceeded(int(rl.rate), "1s")
			httputil.WriteErrorResponse(w, se.HTTPStatus, string(se.Code), se.Message, "")
			return
		}

		next.ServeHTTP(w, r)
	})
}
