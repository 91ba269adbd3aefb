package middleware

import (
	"net/http"
	"time"

	"github.com/campuscare/grievance-management/internal"
)

// Timeout bounds every request's context so persistence and hashing calls
// cannot block past the configured window. Handlers translate the expired
// context into an Unavailable response.
func Timeout(duration time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := internal.WithTimeout(r.Context(), duration)
			defer cancel()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
