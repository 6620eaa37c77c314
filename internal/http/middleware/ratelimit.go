package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/ikjoobang/xivix-ai-core-sub000/internal/ratelimit"
	"github.com/ikjoobang/xivix-ai-core-sub000/pkg/logging"
)

// WindowChecker is the limiter contract used by RateLimit.
type WindowChecker interface {
	Check(ctx context.Context, identifier string, maxRequests int, window time.Duration) (ratelimit.Result, error)
}

// RateLimit returns an HTTP middleware that rejects requests exceeding
// maxRequests per window per client IP with 429 Too Many Requests. Limiter
// errors let the request through.
func RateLimit(limiter WindowChecker, scope string, maxRequests int, window time.Duration, logger *logging.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := r.RemoteAddr
			// Prefer X-Real-Ip set by chi's RealIP middleware.
			if xri := r.Header.Get("X-Real-Ip"); xri != "" {
				ip = xri
			}
			res, err := limiter.Check(r.Context(), scope+":"+ip, maxRequests, window)
			if err != nil {
				logger.Warn("rate limiter unavailable", "scope", scope, "error", err)
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			if !res.Allowed {
				retry := time.Until(res.ResetAt).Seconds()
				if retry < 1 {
					retry = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(int(retry)))
				reject(w, http.StatusTooManyRequests, MsgTooManyCalls)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
