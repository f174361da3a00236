package middleware

import (
	"net/http"
	"time"

	"medleave/pkg/requestcontext"
)

// RequestTime pins a single "now" for the whole request so audit timestamps
// and date comparisons inside one unit of work agree with each other.
func RequestTime(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now().UTC())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
