package ratelimit

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/telhawk-systems/mirror-notify/common/httputil"
	"github.com/telhawk-systems/mirror-notify/common/logging"
)

// Middleware rejects requests from a client IP that exceeded its window with
// 429. Limiter failures let the request through.
func Middleware(limiter RateLimiter, window time.Duration, logger *logging.Logger) func(http.Handler) http.Handler {
	retryAfter := strconv.Itoa(int(window.Seconds()))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientIP(r)
			allowed, err := limiter.Allow(r.Context(), key)
			if err != nil {
				logger.WithContext(r.Context()).Warn("rate limiter unavailable", logging.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				w.Header().Set("Retry-After", retryAfter)
				httputil.WriteError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
