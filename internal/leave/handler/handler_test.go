package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"medleave/internal/leave"
	"medleave/internal/leave/handler/mocks"
	"medleave/internal/leave/service"
	id "medleave/pkg/domain"
	dErrors "medleave/pkg/domain-errors"
	"medleave/pkg/requestcontext"
)

func newTestRouter(svc LeaveService, actorID id.ActorID, role requestcontext.Role) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := requestcontext.WithActor(req.Context(), actorID, role)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Route("/leave/requests", New(svc, logger).Register)
	return r
}

func sampleRequest(studentID id.StudentID) *leave.LeaveRequest {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	requestID := id.NewRequestID()
	return &leave.LeaveRequest{
		ID:        requestID,
		StudentID: studentID,
		Folio:     leave.NewFolio(requestID, now),
		IssueDate: now,
		StartDate: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC),
		State:     leave.StatePending,
		CreatedAt: now,
	}
}

func TestSubmitEndpoint(t *testing.T) {
	actorID, err := id.ParseActorID("5f0c8a2e-1111-4d6e-9a3f-000000000001")
	require.NoError(t, err)
	studentID := id.StudentID(actorID)

	t.Run("creates a pending request", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		svc := mocks.NewMockLeaveService(ctrl)
		created := sampleRequest(studentID)

		svc.EXPECT().
			Submit(gomock.Any(), service.SubmitCommand{
				StudentID: studentID,
				StartDate: "2025-03-01",
				EndDate:   "2025-03-05",
				Evidence:  []byte("%PDF-1.7 certificate"),
				MimeType:  "application/pdf",
			}).
			Return(created, nil)

		body, err := json.Marshal(map[string]any{
			"start_date": "2025-03-01",
			"end_date":   "2025-03-05",
			"evidence":   []byte("%PDF-1.7 certificate"),
			"mime_type":  "application/pdf",
		})
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/leave/requests/", bytes.NewReader(body))
		newTestRouter(svc, actorID, requestcontext.RoleStudent).ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)

		var resp requestResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, created.ID.String(), resp.ID)
		assert.Equal(t, "pending", resp.State)
		assert.Equal(t, "2025-03-01", resp.StartDate)
		assert.Equal(t, created.Folio, resp.Folio)
	})

	t.Run("maps a conflict to the error envelope", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		svc := mocks.NewMockLeaveService(ctrl)

		svc.EXPECT().
			Submit(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.NewReason(dErrors.CodeConflict, leave.ReasonOverlappingDates,
				"requested range overlaps request"))

		body := []byte(`{"start_date":"2025-03-01","end_date":"2025-03-05","evidence":"JVBERg==","mime_type":"application/pdf"}`)
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/leave/requests/", bytes.NewReader(body))
		newTestRouter(svc, actorID, requestcontext.RoleStudent).ServeHTTP(rec, req)

		require.Equal(t, http.StatusConflict, rec.Code)

		var envelope map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
		assert.Equal(t, "conflict", envelope["error"])
		assert.Equal(t, leave.ReasonOverlappingDates, envelope["reason"])
	})

	t.Run("rejects a malformed body", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		svc := mocks.NewMockLeaveService(ctrl)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/leave/requests/", bytes.NewReader([]byte("{not json")))
		newTestRouter(svc, actorID, requestcontext.RoleStudent).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGetEndpoint(t *testing.T) {
	actorID, err := id.ParseActorID("5f0c8a2e-1111-4d6e-9a3f-000000000001")
	require.NoError(t, err)
	studentID := id.StudentID(actorID)

	t.Run("returns the snapshot to its owner", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		svc := mocks.NewMockLeaveService(ctrl)
		stored := sampleRequest(studentID)

		svc.EXPECT().
			Get(gomock.Any(), stored.ID).
			Return(&service.Snapshot{Request: stored}, nil)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/leave/requests/"+stored.ID.String(), nil)
		newTestRouter(svc, actorID, requestcontext.RoleStudent).ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp snapshotResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, stored.ID.String(), resp.Request.ID)
	})

	t.Run("hides other students' requests", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		svc := mocks.NewMockLeaveService(ctrl)

		otherOwner, err := id.ParseStudentID("5f0c8a2e-9999-4d6e-9a3f-000000000009")
		require.NoError(t, err)
		stored := sampleRequest(otherOwner)

		svc.EXPECT().
			Get(gomock.Any(), stored.ID).
			Return(&service.Snapshot{Request: stored}, nil)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/leave/requests/"+stored.ID.String(), nil)
		newTestRouter(svc, actorID, requestcontext.RoleStudent).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("rejects a malformed id", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		svc := mocks.NewMockLeaveService(ctrl)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/leave/requests/not-a-uuid", nil)
		newTestRouter(svc, actorID, requestcontext.RoleStudent).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
