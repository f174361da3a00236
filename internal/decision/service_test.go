package decision

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"medleave/internal/audit"
	"medleave/internal/enrollment"
	"medleave/internal/evidence"
	"medleave/internal/leave"
	leavesvc "medleave/internal/leave/service"
	"medleave/internal/notify"
	id "medleave/pkg/domain"
	dErrors "medleave/pkg/domain-errors"
	"medleave/pkg/requestcontext"
)

var fixedNow = time.Date(2025, 3, 20, 9, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	mu      sync.Mutex
	notices []notify.Notification
}

func (n *recordingNotifier) Enqueue(notice notify.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
}

func (n *recordingNotifier) byKind(kind notify.Kind) []notify.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notify.Notification
	for _, notice := range n.notices {
		if notice.Kind == kind {
			out = append(out, notice)
		}
	}
	return out
}

type DecideSuite struct {
	suite.Suite

	store      *leave.InMemoryStore
	enrollment *enrollment.StaticProvider
	audits     *audit.InMemoryStore
	notifier   *recordingNotifier
	svc        *Service

	ctx       context.Context
	studentID id.StudentID
	staffID   id.ActorID
	courses   []id.CourseID
}

func TestDecideSuite(t *testing.T) {
	suite.Run(t, new(DecideSuite))
}

func (s *DecideSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.store = leave.NewInMemoryStore()
	s.enrollment = enrollment.NewStaticProvider()
	s.audits = audit.NewInMemoryStore()
	s.notifier = &recordingNotifier{}
	s.svc = New(leavesvc.NewShardedTx(s.store), s.enrollment, s.audits, s.notifier, logger, nil)

	s.ctx = requestcontext.WithTime(context.Background(), fixedNow)

	studentID, err := id.ParseStudentID("5f0c8a2e-1111-4d6e-9a3f-000000000001")
	s.Require().NoError(err)
	s.studentID = studentID

	staffID, err := id.ParseActorID("5f0c8a2e-2222-4d6e-9a3f-000000000002")
	s.Require().NoError(err)
	s.staffID = staffID

	s.courses = []id.CourseID{id.CourseID(id.NewRequestID()), id.CourseID(id.NewRequestID())}
	s.enrollment.Enroll(s.studentID, s.courses...)
}

// seedPending inserts a Pending request with hashed evidence directly through
// the store.
func (s *DecideSuite) seedPending(start, end string) *leave.LeaveRequest {
	rng, err := leave.NewDateRange(start, end)
	s.Require().NoError(err)

	requestID := id.NewRequestID()
	req := &leave.LeaveRequest{
		ID:        requestID,
		StudentID: s.studentID,
		Folio:     leave.NewFolio(requestID, fixedNow),
		IssueDate: fixedNow,
		StartDate: rng.Start,
		EndDate:   rng.End,
		State:     leave.StatePending,
		CreatedAt: fixedNow,
	}
	doc := []byte("%PDF-1.7\ncertificate for " + requestID.String())
	ev := &leave.Evidence{
		ID:         id.NewEvidenceID(),
		RequestID:  requestID,
		StudentID:  s.studentID,
		URL:        "mem://evidence/" + requestID.String(),
		MimeType:   "application/pdf",
		SHA256:     evidence.HashBytes(doc),
		SizeBytes:  int64(len(doc)),
		UploadedAt: fixedNow,
	}
	s.Require().NoError(s.store.CreateRequest(s.ctx, req, ev))
	return req
}

func (s *DecideSuite) decide(cmd Command) (*Result, error) {
	cmd.ActorID = s.staffID
	return s.svc.Decide(s.ctx, cmd)
}

func (s *DecideSuite) TestAcceptFansOutDeliveriesAndAudits() {
	req := s.seedPending("2025-03-01", "2025-03-05")

	res, err := s.decide(Command{RequestID: req.ID, Decision: "accepted"})
	s.Require().NoError(err)

	s.Equal(leave.StateAccepted, res.Request.State)
	s.Equal(len(s.courses), res.DeliveriesCreated)

	stored, err := s.store.GetRequest(s.ctx, req.ID)
	s.Require().NoError(err)
	s.Equal(leave.StateAccepted, stored.State)

	deliveries, err := s.store.ListDeliveries(s.ctx, req.ID)
	s.Require().NoError(err)
	s.Len(deliveries, len(s.courses))

	events, err := s.audits.ListByResource(s.ctx, leavesvc.Resource(req.ID))
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(audit.ActionRequestAccepted, events[0].Action)
	s.Equal(s.staffID.String(), events[0].ActorID)
	s.Equal("pending", events[0].Payload["previous_state"])
	s.Equal("accepted", events[0].Payload["new_state"])

	s.Len(s.notifier.byKind(notify.KindRequestAccepted), 1)
	s.Len(s.notifier.byKind(notify.KindCourseExcused), len(s.courses))
}

func (s *DecideSuite) TestAcceptNormalizesLocaleSpelling() {
	req := s.seedPending("2025-03-01", "2025-03-05")

	res, err := s.decide(Command{RequestID: req.ID, Decision: "Aprobada"})
	s.Require().NoError(err)
	s.Equal(leave.StateAccepted, res.Request.State)
}

func (s *DecideSuite) TestAcceptWithOverrideAppliesEffectiveRange() {
	req := s.seedPending("2025-03-01", "2025-03-05")

	res, err := s.decide(Command{
		RequestID:     req.ID,
		Decision:      "accepted",
		OverrideStart: "2025-03-02",
		OverrideEnd:   "2025-03-03",
	})
	s.Require().NoError(err)
	s.Equal("2025-03-02", leave.FormatDate(res.Request.StartDate))
	s.Equal("2025-03-03", leave.FormatDate(res.Request.EndDate))

	events, err := s.audits.ListByResource(s.ctx, leavesvc.Resource(req.ID))
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal("2025-03-02", events[0].Payload["start_date"])
}

func (s *DecideSuite) TestAcceptOverrideCheckedAgainstAcceptedOnly() {
	accepted := s.seedPending("2025-03-10", "2025-03-15")
	_, err := s.decide(Command{RequestID: accepted.ID, Decision: "accepted"})
	s.Require().NoError(err)

	s.Run("override into an accepted range conflicts", func() {
		req := s.seedPending("2025-04-01", "2025-04-05")
		_, err := s.decide(Command{
			RequestID:     req.ID,
			Decision:      "accepted",
			OverrideStart: "2025-03-14",
			OverrideEnd:   "2025-03-18",
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnprocessable))
		s.Equal(leave.ReasonOverlap, dErrors.ReasonOf(err))

		stored, getErr := s.store.GetRequest(s.ctx, req.ID)
		s.Require().NoError(getErr)
		s.Equal(leave.StatePending, stored.State)
	})

	s.Run("override clear of accepted ranges passes", func() {
		req := s.seedPending("2025-05-01", "2025-05-05")
		res, err := s.decide(Command{
			RequestID:     req.ID,
			Decision:      "accepted",
			OverrideStart: "2025-03-16",
			OverrideEnd:   "2025-03-18",
		})
		s.Require().NoError(err)
		s.Equal(leave.StateAccepted, res.Request.State)
	})
}

func (s *DecideSuite) TestAcceptWithoutHashedEvidenceIsRefused() {
	rng, err := leave.NewDateRange("2025-03-01", "2025-03-05")
	s.Require().NoError(err)
	requestID := id.NewRequestID()
	req := &leave.LeaveRequest{
		ID:        requestID,
		StudentID: s.studentID,
		Folio:     leave.NewFolio(requestID, fixedNow),
		IssueDate: fixedNow,
		StartDate: rng.Start,
		EndDate:   rng.End,
		State:     leave.StatePending,
		CreatedAt: fixedNow,
	}
	ev := &leave.Evidence{
		ID:        id.NewEvidenceID(),
		RequestID: requestID,
		StudentID: s.studentID,
		URL:       "mem://evidence/unhashed",
		MimeType:  "application/pdf",
	}
	s.Require().NoError(s.store.CreateRequest(s.ctx, req, ev))

	_, err = s.decide(Command{RequestID: requestID, Decision: "accepted"})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnprocessable))
	s.Equal(leave.ReasonMissingEvidence, dErrors.ReasonOf(err))

	stored, err := s.store.GetRequest(s.ctx, requestID)
	s.Require().NoError(err)
	s.Equal(leave.StatePending, stored.State)
}

func (s *DecideSuite) TestRejectRecordsTrimmedReason() {
	req := s.seedPending("2025-03-01", "2025-03-05")

	res, err := s.decide(Command{
		RequestID: req.ID,
		Decision:  "rejected",
		Reason:    "  certificate does not cover the requested dates  ",
	})
	s.Require().NoError(err)
	s.Equal(leave.StateRejected, res.Request.State)
	s.Equal("certificate does not cover the requested dates", res.Request.RejectionReason)
	s.Zero(res.DeliveriesCreated)

	deliveries, err := s.store.ListDeliveries(s.ctx, req.ID)
	s.Require().NoError(err)
	s.Empty(deliveries)

	events, err := s.audits.ListByResource(s.ctx, leavesvc.Resource(req.ID))
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(audit.ActionRequestRejected, events[0].Action)
	s.Equal("certificate does not cover the requested dates", events[0].Payload["rejection_reason"])

	s.Len(s.notifier.byKind(notify.KindRequestRejected), 1)
	s.Empty(s.notifier.byKind(notify.KindCourseExcused))
}

func (s *DecideSuite) TestRejectWithoutReasonIsRefused() {
	req := s.seedPending("2025-03-01", "2025-03-05")

	_, err := s.decide(Command{RequestID: req.ID, Decision: "rejected", Reason: "too short"})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	s.Equal(leave.ReasonMissingReason, dErrors.ReasonOf(err))

	stored, err := s.store.GetRequest(s.ctx, req.ID)
	s.Require().NoError(err)
	s.Equal(leave.StatePending, stored.State)
}

func (s *DecideSuite) TestDecidedRequestRefusesSecondDecision() {
	req := s.seedPending("2025-03-01", "2025-03-05")

	_, err := s.decide(Command{RequestID: req.ID, Decision: "accepted"})
	s.Require().NoError(err)

	_, err = s.decide(Command{
		RequestID: req.ID,
		Decision:  "rejected",
		Reason:    "changed our minds about it",
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	s.Equal(leave.ReasonIllegalTransition, dErrors.ReasonOf(err))

	// The failed second attempt leaves no trace.
	events, err := s.audits.ListByResource(s.ctx, leavesvc.Resource(req.ID))
	s.Require().NoError(err)
	s.Len(events, 1)

	deliveries, err := s.store.ListDeliveries(s.ctx, req.ID)
	s.Require().NoError(err)
	s.Len(deliveries, len(s.courses))
}

func (s *DecideSuite) TestUnknownRequestIsNotFound() {
	_, err := s.decide(Command{RequestID: id.NewRequestID(), Decision: "accepted"})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *DecideSuite) TestUnknownDecisionValueIsRefused() {
	req := s.seedPending("2025-03-01", "2025-03-05")

	_, err := s.decide(Command{RequestID: req.ID, Decision: "maybe"})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *DecideSuite) TestRepeatedAcceptKeepsFanOutIdempotent() {
	req := s.seedPending("2025-03-01", "2025-03-05")

	// Pre-existing delivery row, as left behind by a partially applied
	// earlier attempt.
	created, err := s.store.CreateDelivery(s.ctx, &leave.Delivery{
		RequestID: req.ID,
		CourseID:  s.courses[0],
		CreatedAt: fixedNow,
	})
	s.Require().NoError(err)
	s.Require().True(created)

	res, err := s.decide(Command{RequestID: req.ID, Decision: "accepted"})
	s.Require().NoError(err)
	s.Equal(len(s.courses)-1, res.DeliveriesCreated)

	deliveries, err := s.store.ListDeliveries(s.ctx, req.ID)
	s.Require().NoError(err)
	s.Len(deliveries, len(s.courses))
}

func (s *DecideSuite) TestConcurrentDecidesResolveToOneWinner() {
	req := s.seedPending("2025-03-01", "2025-03-05")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	commands := []Command{
		{RequestID: req.ID, Decision: "accepted"},
		{RequestID: req.ID, Decision: "rejected", Reason: "certificate appears altered"},
	}
	for i, cmd := range commands {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = s.decide(cmd)
		}()
	}
	wg.Wait()

	var successes, transitions int
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case dErrors.ReasonOf(err) == leave.ReasonIllegalTransition:
			transitions++
		default:
			s.Failf("unexpected error", "got %v", err)
		}
	}
	s.Equal(1, successes)
	s.Equal(1, transitions)

	stored, err := s.store.GetRequest(s.ctx, req.ID)
	s.Require().NoError(err)
	s.True(stored.State.IsTerminal())
}
