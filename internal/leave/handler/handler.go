// Package handler exposes the submission endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"medleave/internal/leave"
	"medleave/internal/leave/service"
	"medleave/internal/platform/middleware"
	id "medleave/pkg/domain"
	dErrors "medleave/pkg/domain-errors"
	"medleave/pkg/platform/httputil"
	"medleave/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/handler_mock.go -package=mocks

// LeaveService is the submission use-case surface the handler depends on.
type LeaveService interface {
	Submit(ctx context.Context, cmd service.SubmitCommand) (*leave.LeaveRequest, error)
	Get(ctx context.Context, requestID id.RequestID) (*service.Snapshot, error)
}

type Handler struct {
	svc    LeaveService
	logger *slog.Logger
}

func New(svc LeaveService, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Register mounts the submission routes on a router already behind auth.
// Submitting is for students; reads are ownership-checked per caller.
func (h *Handler) Register(r chi.Router) {
	r.With(middleware.RequireRole(requestcontext.RoleStudent)).Post("/", h.submit)
	r.Get("/{requestID}", h.get)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[submitRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	created, err := h.svc.Submit(ctx, service.SubmitCommand{
		StudentID: id.StudentID(requestcontext.ActorID(ctx)),
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Evidence:  req.Evidence,
		MimeType:  req.MimeType,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, toRequestResponse(created))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	requestID, err := id.ParseRequestID(chi.URLParam(r, "requestID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	snap, err := h.svc.Get(ctx, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	// Students may only read their own requests; staff read everything.
	if requestcontext.CallerRole(ctx) != requestcontext.RoleStaff &&
		snap.Request.StudentID.String() != requestcontext.ActorID(ctx).String() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "not your request"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toSnapshotResponse(snap))
}
