// Package http assembles the public HTTP surface: middleware chain, feature
// routes, health, and metrics.
package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	decisionhandler "medleave/internal/decision/handler"
	leavehandler "medleave/internal/leave/handler"
	"medleave/internal/platform/middleware"
)

// Deps carries everything the router mounts.
type Deps struct {
	Leave    *leavehandler.Handler
	Decision *decisionhandler.Handler
	Verifier middleware.TokenVerifier
	Health   func(w http.ResponseWriter, r *http.Request)
	Logger   *slog.Logger
}

// NewRouter builds the chi router. Every request gets a correlation id,
// client metadata, and a pinned request time; the feature routes additionally
// sit behind bearer auth.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.RequestTime)

	r.Get("/healthz", deps.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/leave/requests", func(r chi.Router) {
		r.Use(middleware.RequireAuth(deps.Verifier, deps.Logger))
		deps.Leave.Register(r)
		deps.Decision.Register(r)
	})

	return r
}
