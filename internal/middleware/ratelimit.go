package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/pkordes/notekeeper/backend/internal/ratelimit"
)

// RateChecker is satisfied by *ratelimit.Limiter.
type RateChecker interface {
	Check(ctx context.Context, key string) (ratelimit.Decision, error)
}

// NewRateLimitHandler returns a middleware that spends one unit of the
// client's budget per request. Admitted requests carry X-RateLimit-* headers;
// refused ones get the 429 rejection and never reach next.
//
// If the bucket store fails the request is let through and the error logged:
// an unreachable Redis must not take the sharing endpoints down with it.
func NewRateLimitHandler(l RateChecker, log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ratelimit.ClientKey(r)

			dec, err := l.Check(r.Context(), key)
			if err != nil {
				log.ErrorContext(r.Context(), "rate limit check failed",
					"key", key,
					"path", r.URL.Path,
					"error", err,
				)
				next.ServeHTTP(w, r)
				return
			}

			if !dec.Allowed {
				if err := ratelimit.WriteRejection(w, dec); err != nil {
					log.WarnContext(r.Context(), "write rate limit rejection", "error", err)
				}
				return
			}

			ratelimit.SetHeaders(w, dec)
			next.ServeHTTP(w, r)
		})
	}
}
