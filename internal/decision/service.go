package decision

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"medleave/internal/audit"
	"medleave/internal/decision/metrics"
	"medleave/internal/enrollment"
	"medleave/internal/leave"
	leavesvc "medleave/internal/leave/service"
	"medleave/internal/notify"
	id "medleave/pkg/domain"
	dErrors "medleave/pkg/domain-errors"
	"medleave/pkg/platform/sentinel"
	"medleave/pkg/requestcontext"
)

// AuditPort records audit events inside the decide transaction.
type AuditPort interface {
	Append(ctx context.Context, event audit.Event) error
}

// Notifier queues post-commit notices without blocking.
type Notifier interface {
	Enqueue(n notify.Notification)
}

// Service applies the one-time decision to a Pending request. The whole
// decide path runs under an exclusive lock on the request: two concurrent
// decides resolve to exactly one winner, the loser observing the terminal
// state.
type Service struct {
	tx         leavesvc.StoreTx
	enrollment enrollment.Provider
	auditor    AuditPort
	notifier   Notifier
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

func New(tx leavesvc.StoreTx, courses enrollment.Provider, auditor AuditPort, notifier Notifier, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		tx:         tx,
		enrollment: courses,
		auditor:    auditor,
		notifier:   notifier,
		logger:     logger,
		metrics:    m,
	}
}

// Command carries the boundary form of a decision. Decision accepts the
// locale spellings the upstream systems use; it is normalized once here.
type Command struct {
	RequestID id.RequestID
	ActorID   id.ActorID
	Decision  string
	// Reason is required when rejecting, ignored when accepting.
	Reason string
	// OverrideStart and OverrideEnd optionally replace the submitted range
	// on acceptance. Both or neither.
	OverrideStart string
	OverrideEnd   string
}

// Result reports the terminal request and, on acceptance, the fan-out size.
type Result struct {
	Request           *leave.LeaveRequest
	DeliveriesCreated int
	Courses           []id.CourseID
}

// Decide transitions a Pending request to Accepted or Rejected.
func (s *Service) Decide(ctx context.Context, cmd Command) (*Result, error) {
	start := time.Now()
	res, err := s.decide(ctx, cmd)
	s.metrics.ObserveDecideLatency(time.Since(start))
	s.metrics.IncrementDecision(decisionOutcome(res, err))
	if err != nil {
		return nil, err
	}
	s.metrics.AddDeliveries(res.DeliveriesCreated)

	s.notifyDecided(res)

	s.logger.InfoContext(ctx, "leave request decided",
		"request_id", res.Request.ID,
		"state", res.Request.State,
		"deliveries_created", res.DeliveriesCreated,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

func (s *Service) decide(ctx context.Context, cmd Command) (*Result, error) {
	target, err := leave.ParseState(cmd.Decision)
	if err != nil {
		return nil, err
	}
	if !target.IsTerminal() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "decision must be accepted or rejected")
	}

	var reason string
	if target == leave.StateRejected {
		reason, err = validateReason(cmd.Reason)
		if err != nil {
			return nil, err
		}
	}

	// Serialize on the request id so concurrent decides contend for the
	// same lock the row lock provides in Postgres.
	ctx = leavesvc.WithShardKey(ctx, cmd.RequestID.String())

	var res Result
	err = s.tx.RunInTx(ctx, func(ctx context.Context, store leave.Store) error {
		req, err := store.GetRequestForUpdate(ctx, cmd.RequestID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "leave request not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "lock request")
		}
		if req.State != leave.StatePending {
			return dErrors.NewReason(dErrors.CodeConflict, leave.ReasonIllegalTransition,
				"request already decided: "+string(req.State))
		}

		now := requestcontext.Now(ctx)
		payload := map[string]string{
			"previous_state": string(leave.StatePending),
			"new_state":      string(target),
		}

		switch target {
		case leave.StateAccepted:
			if err := s.accept(ctx, store, req, cmd, now, payload, &res); err != nil {
				return err
			}
		case leave.StateRejected:
			req.State = leave.StateRejected
			req.RejectionReason = reason
			payload["rejection_reason"] = reason
			if err := s.persistDecision(ctx, store, req); err != nil {
				return err
			}
		}

		if err := s.auditor.Append(ctx, audit.Event{
			Timestamp: now,
			ActorID:   cmd.ActorID.String(),
			Action:    auditAction(target),
			Resource:  leavesvc.Resource(req.ID),
			Payload:   payload,
			IP:        requestcontext.ClientIP(ctx),
			RequestID: requestcontext.RequestID(ctx),
		}); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "append audit event")
		}

		res.Request = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// accept runs the acceptance-only rules and the delivery fan-out, all inside
// the caller's transaction.
func (s *Service) accept(ctx context.Context, store leave.Store, req *leave.LeaveRequest, cmd Command, now time.Time, payload map[string]string, res *Result) error {
	evs, err := store.ListEvidence(ctx, req.ID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "load evidence")
	}
	if !hasHashedEvidence(evs) {
		return dErrors.NewReason(dErrors.CodeUnprocessable, leave.ReasonMissingEvidence,
			"acceptance requires at least one hashed evidence document")
	}

	effective, err := effectiveRange(req, cmd.OverrideStart, cmd.OverrideEnd)
	if err != nil {
		return err
	}

	accepted, err := store.ListAcceptedByStudent(ctx, req.StudentID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "list accepted requests")
	}
	if err := leave.CheckNoOverlapExcluding(effective, accepted, req.ID); err != nil {
		return err
	}

	req.State = leave.StateAccepted
	req.StartDate = effective.Start
	req.EndDate = effective.End
	payload["start_date"] = leave.FormatDate(effective.Start)
	payload["end_date"] = leave.FormatDate(effective.End)

	if err := s.persistDecision(ctx, store, req); err != nil {
		return err
	}

	courses, err := s.enrollment.CoursesForStudent(ctx, req.StudentID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "resolve enrollment")
	}
	for _, course := range courses {
		created, err := store.CreateDelivery(ctx, &leave.Delivery{
			ID:        uuid.New(),
			RequestID: req.ID,
			CourseID:  course,
			CreatedAt: now,
		})
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "create delivery")
		}
		if created {
			res.DeliveriesCreated++
		}
	}
	res.Courses = courses
	payload["deliveries"] = strconv.Itoa(res.DeliveriesCreated)
	return nil
}

func (s *Service) persistDecision(ctx context.Context, store leave.Store, req *leave.LeaveRequest) error {
	if err := store.UpdateDecision(ctx, req); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrInvalidState):
			return dErrors.NewReason(dErrors.CodeConflict, leave.ReasonIllegalTransition,
				"request already decided")
		case errors.Is(err, sentinel.ErrConflict):
			// Range exclusion constraint rejected the effective dates.
			return dErrors.NewReason(dErrors.CodeUnprocessable, leave.ReasonOverlap,
				"effective range overlaps an accepted request")
		default:
			return dErrors.Wrap(err, dErrors.CodeInternal, "persist decision")
		}
	}
	return nil
}

// notifyDecided queues the post-commit notices: one for the student and, on
// acceptance, one per excused course.
func (s *Service) notifyDecided(res *Result) {
	req := res.Request

	kind := notify.KindRequestRejected
	payload := map[string]string{
		"request_id": req.ID.String(),
		"folio":      req.Folio,
	}
	if req.State == leave.StateAccepted {
		kind = notify.KindRequestAccepted
		payload["start_date"] = leave.FormatDate(req.StartDate)
		payload["end_date"] = leave.FormatDate(req.EndDate)
	} else {
		payload["reason"] = req.RejectionReason
	}
	s.notifier.Enqueue(notify.Notification{
		Kind:      kind,
		Recipient: req.StudentID.String(),
		Payload:   payload,
	})

	if req.State != leave.StateAccepted {
		return
	}
	for _, course := range res.Courses {
		s.notifier.Enqueue(notify.Notification{
			Kind:      notify.KindCourseExcused,
			Recipient: course.String(),
			Payload: map[string]string{
				"request_id": req.ID.String(),
				"student_id": req.StudentID.String(),
				"start_date": leave.FormatDate(req.StartDate),
				"end_date":   leave.FormatDate(req.EndDate),
			},
		})
	}
}

func auditAction(target leave.State) audit.Action {
	if target == leave.StateAccepted {
		return audit.ActionRequestAccepted
	}
	return audit.ActionRequestRejected
}

func decisionOutcome(res *Result, err error) string {
	if err == nil {
		if res.Request.State == leave.StateAccepted {
			return "accepted"
		}
		return "rejected"
	}
	switch dErrors.CodeOf(err) {
	case dErrors.CodeConflict, dErrors.CodeUnprocessable:
		return "conflict"
	case dErrors.CodeValidation, dErrors.CodeInvalidInput, dErrors.CodeBadRequest:
		return "validation"
	case dErrors.CodeNotFound:
		return "not_found"
	default:
		return "internal"
	}
}
