package middleware

import (
	"fmt"
	"math"
	"net/http"

	"dietly/internal/cache"
	"dietly/internal/contextutils"

	"go.uber.org/zap"
)

// ValidateCooldown throttles the validate endpoint per user via the
// cooldown store. Unauthenticated requests fall back to the client IP
// so a misconfigured route still has some protection.
func ValidateCooldown(store cache.CooldownStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := cooldownKey(r)

			allowed, retryAfter, err := store.Hit(r.Context(), key)
			if err != nil {
				// The limiter is advisory; a cache outage must not take
				// the endpoint down with it.
				GetRequestLogger(r.Context()).Warn("Cooldown check failed",
					zap.String("key", key),
					zap.Error(err),
				)
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				seconds := int(math.Ceil(retryAfter.Seconds()))
				if seconds < 1 {
					seconds = 1
				}
				w.Header().Set("Retry-After", fmt.Sprintf("%d", seconds))
				writeJSONError(w, r, http.StatusTooManyRequests,
					"RATE_LIMITED", "badge validation was requested too recently")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func cooldownKey(r *http.Request) string {
	if userID := contextutils.GetUserID(r.Context()); userID != 0 {
		return fmt.Sprintf("user:%d", userID)
	}
	return fmt.Sprintf("ip:%s", getClientIP(r))
}
