// Package handler exposes the staff-only decision endpoint.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"medleave/internal/decision"
	"medleave/internal/platform/middleware"
	id "medleave/pkg/domain"
	"medleave/pkg/platform/httputil"
	"medleave/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/handler_mock.go -package=mocks

// DecisionService is the decide use-case surface the handler depends on.
type DecisionService interface {
	Decide(ctx context.Context, cmd decision.Command) (*decision.Result, error)
}

type Handler struct {
	svc    DecisionService
	logger *slog.Logger
}

func New(svc DecisionService, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Register mounts the decision route on a router already behind auth.
// Deciding is staff-only.
func (h *Handler) Register(r chi.Router) {
	r.With(middleware.RequireRole(requestcontext.RoleStaff)).Post("/{requestID}/decision", h.decide)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	correlationID := requestcontext.RequestID(ctx)

	requestID, err := id.ParseRequestID(chi.URLParam(r, "requestID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[decideRequest](w, r, h.logger, ctx, correlationID)
	if !ok {
		return
	}

	res, err := h.svc.Decide(ctx, decision.Command{
		RequestID:     requestID,
		ActorID:       requestcontext.ActorID(ctx),
		Decision:      req.Decision,
		Reason:        req.Reason,
		OverrideStart: req.OverrideStart,
		OverrideEnd:   req.OverrideEnd,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toDecideResponse(res))
}
