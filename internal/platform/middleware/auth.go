package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	id "medleave/pkg/domain"
	dErrors "medleave/pkg/domain-errors"
	"medleave/pkg/platform/httputil"
	"medleave/pkg/requestcontext"
)

// TokenVerifier validates a bearer token and returns the trusted identity.
type TokenVerifier interface {
	Verify(tokenString string) (id.ActorID, requestcontext.Role, error)
}

// RequireAuth rejects requests without a valid bearer token and injects the
// verified {actor, role} pair into the request context.
func RequireAuth(verifier TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const bearerPrefix = "Bearer "
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, bearerPrefix) {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing bearer token"))
				return
			}

			actorID, role, err := verifier.Verify(strings.TrimPrefix(authHeader, bearerPrefix))
			if err != nil {
				logger.WarnContext(r.Context(), "token verification failed",
					"request_id", requestcontext.RequestID(r.Context()),
					"error", err,
				)
				httputil.WriteError(w, err)
				return
			}

			ctx := requestcontext.WithActor(r.Context(), actorID, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects authenticated callers whose role does not match.
func RequireRole(role requestcontext.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if requestcontext.CallerRole(r.Context()) != role {
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "insufficient role"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
