package server

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/liquidpay/liquidpay/pkg/logger"
)

// requestLogging logs every request with its latency.
func requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.DebugCF("server", "Request handled", map[string]any{
			"method": r.Method,
			"path":   r.URL.Path,
			"took":   time.Since(start).String(),
		})
	})
}

// newRateLimiter returns middleware applying a per-client token
// bucket, keyed by remote IP.
func newRateLimiter(rps float64, burst int) func(http.Handler) http.Handler {
	if rps <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	var mu sync.Mutex
	limiters := make(map[string]*rate.Limiter)

	limiterFor := func(key string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		l, ok := limiters[key]
		if !ok {
			l = rate.NewLimiter(rate.Limit(rps), burst)
			limiters[key] = l
		}
		return l
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				host = r.RemoteAddr
			}
			if !limiterFor(host).Allow() {
				writeJSON(w, http.StatusTooManyRequests, errorBody{
					Code:   "rate_limited",
					Reason: "too many requests",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
