// Package service implements the submission side of the request lifecycle:
// validation, atomic persistence of request plus evidence, audit, and the
// post-commit notification.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"medleave/internal/audit"
	"medleave/internal/evidence"
	"medleave/internal/leave"
	"medleave/internal/leave/metrics"
	"medleave/internal/notify"
	id "medleave/pkg/domain"
	dErrors "medleave/pkg/domain-errors"
	"medleave/pkg/platform/sentinel"
	"medleave/pkg/requestcontext"
)

const mimePDF = "application/pdf"

// AuditPort records audit events. The outbox-backed implementation writes in
// the caller's transaction, so a failed audit rolls back the submission.
type AuditPort interface {
	Append(ctx context.Context, event audit.Event) error
}

// Notifier queues post-commit notices without blocking.
type Notifier interface {
	Enqueue(n notify.Notification)
}

// Service orchestrates submissions. All dependencies are injected; there is
// no ambient store access from business logic.
type Service struct {
	tx       StoreTx
	blobs    evidence.BlobStore
	auditor  AuditPort
	notifier Notifier
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func New(tx StoreTx, blobs evidence.BlobStore, auditor AuditPort, notifier Notifier, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		tx:       tx,
		blobs:    blobs,
		auditor:  auditor,
		notifier: notifier,
		logger:   logger,
		metrics:  m,
	}
}

// SubmitCommand carries the boundary form of a submission: ISO dates and raw
// document bytes.
type SubmitCommand struct {
	StudentID id.StudentID
	StartDate string
	EndDate   string
	Evidence  []byte
	MimeType  string
}

// Submit validates and persists a new Pending request with its evidence as
// one atomic unit, then queues the student notice.
func (s *Service) Submit(ctx context.Context, cmd SubmitCommand) (*leave.LeaveRequest, error) {
	start := time.Now()
	req, err := s.submit(ctx, cmd)
	s.metrics.ObserveSubmitLatency(time.Since(start))
	s.metrics.IncrementSubmission(outcomeLabel(err))
	if err != nil {
		return nil, err
	}

	// Post-commit, fire-and-forget.
	s.notifier.Enqueue(notify.Notification{
		Kind:      notify.KindRequestSubmitted,
		Recipient: req.StudentID.String(),
		Payload: map[string]string{
			"request_id": req.ID.String(),
			"folio":      req.Folio,
			"start_date": leave.FormatDate(req.StartDate),
			"end_date":   leave.FormatDate(req.EndDate),
		},
	})

	s.logger.InfoContext(ctx, "leave request submitted",
		"request_id", req.ID,
		"student_id", req.StudentID,
		"folio", req.Folio,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return req, nil
}

func (s *Service) submit(ctx context.Context, cmd SubmitCommand) (*leave.LeaveRequest, error) {
	rng, err := leave.NewDateRange(cmd.StartDate, cmd.EndDate)
	if err != nil {
		return nil, err
	}
	if len(cmd.Evidence) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "evidence document is required")
	}
	if cmd.MimeType != mimePDF || !evidence.IsPDF(cmd.Evidence) {
		return nil, dErrors.New(dErrors.CodeValidation, "evidence must be a PDF document")
	}

	hash := evidence.HashBytes(cmd.Evidence)

	// Serialize with other submissions of the same student so the overlap
	// and duplicate checks and the insert are one unit.
	ctx = WithShardKey(ctx, cmd.StudentID.String())

	var created *leave.LeaveRequest
	err = s.tx.RunInTx(ctx, func(ctx context.Context, store leave.Store) error {
		active, err := store.ListActiveByStudent(ctx, cmd.StudentID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "list active requests")
		}
		if err := leave.CheckNoOverlap(rng, active); err != nil {
			return err
		}

		prior, err := store.FindEvidenceByHash(ctx, cmd.StudentID, hash)
		switch {
		case err == nil:
			return leave.DuplicateEvidenceError(prior)
		case !errors.Is(err, sentinel.ErrNotFound):
			return dErrors.Wrap(err, dErrors.CodeInternal, "duplicate evidence lookup")
		}

		// External upload participates in the unit of work: if it
		// fails, nothing is persisted.
		ref, err := s.blobs.Upload(ctx, cmd.Evidence, cmd.MimeType, cmd.StudentID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "evidence upload failed")
		}

		now := requestcontext.Now(ctx)
		requestID := id.NewRequestID()
		req := &leave.LeaveRequest{
			ID:        requestID,
			StudentID: cmd.StudentID,
			Folio:     leave.NewFolio(requestID, now),
			IssueDate: now,
			StartDate: rng.Start,
			EndDate:   rng.End,
			State:     leave.StatePending,
			CreatedAt: now,
		}
		ev := &leave.Evidence{
			ID:         id.NewEvidenceID(),
			RequestID:  requestID,
			StudentID:  cmd.StudentID,
			URL:        ref.URL,
			MimeType:   cmd.MimeType,
			SHA256:     ref.Hash,
			SizeBytes:  ref.SizeBytes,
			UploadedAt: now,
		}

		if err := store.CreateRequest(ctx, req, ev); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				// Constraint backstop caught a race the in-tx
				// checks could not see yet.
				return dErrors.NewReason(dErrors.CodeConflict, leave.ReasonOverlappingDates,
					"a concurrent submission conflicted with this request")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "persist request")
		}

		if err := s.auditor.Append(ctx, audit.Event{
			Timestamp: now,
			ActorID:   cmd.StudentID.String(),
			Action:    audit.ActionRequestSubmitted,
			Resource:  Resource(requestID),
			Payload: map[string]string{
				"new_state":  string(leave.StatePending),
				"start_date": leave.FormatDate(rng.Start),
				"end_date":   leave.FormatDate(rng.End),
				"folio":      req.Folio,
			},
			IP:        requestcontext.ClientIP(ctx),
			RequestID: requestcontext.RequestID(ctx),
		}); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "append audit event")
		}

		created = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Snapshot is the read model returned to clients.
type Snapshot struct {
	Request    *leave.LeaveRequest
	Evidence   []*leave.Evidence
	Deliveries []*leave.Delivery
}

// Get loads a request with its evidence and deliveries.
func (s *Service) Get(ctx context.Context, requestID id.RequestID) (*Snapshot, error) {
	var snap Snapshot
	err := s.tx.RunInTx(WithShardKey(ctx, requestID.String()), func(ctx context.Context, store leave.Store) error {
		req, err := store.GetRequest(ctx, requestID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "leave request not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "load request")
		}
		evs, err := store.ListEvidence(ctx, requestID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "load evidence")
		}
		deliveries, err := store.ListDeliveries(ctx, requestID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "load deliveries")
		}
		snap = Snapshot{Request: req, Evidence: evs, Deliveries: deliveries}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// Resource names the audited entity for a request.
func Resource(requestID id.RequestID) string {
	return "leave_request:" + requestID.String()
}

func outcomeLabel(err error) string {
	if err == nil {
		return "created"
	}
	switch dErrors.CodeOf(err) {
	case dErrors.CodeValidation, dErrors.CodeInvalidInput, dErrors.CodeBadRequest:
		return "validation"
	case dErrors.CodeConflict, dErrors.CodeUnprocessable:
		return "conflict"
	case dErrors.CodeUnavailable:
		return "storage"
	default:
		return "internal"
	}
}
