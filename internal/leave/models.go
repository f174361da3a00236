// Package leave holds the medical-leave request domain model and its
// persistence contract.
package leave

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	id "medleave/pkg/domain"
	dErrors "medleave/pkg/domain-errors"
)

// State is the closed request lifecycle enumeration. Pending is initial;
// Accepted and Rejected are terminal and immutable.
type State string

const (
	StatePending  State = "pending"
	StateAccepted State = "accepted"
	StateRejected State = "rejected"
)

// stateAliases collapses the free-form values and locale spellings found in
// upstream systems into the closed enumeration. Normalization happens exactly
// once, at the boundary; the engine only ever sees State.
var stateAliases = map[string]State{
	"pending":   StatePending,
	"pendiente": StatePending,
	"accepted":  StateAccepted,
	"approved":  StateAccepted,
	"aceptado":  StateAccepted,
	"aceptada":  StateAccepted,
	"aprobado":  StateAccepted,
	"aprobada":  StateAccepted,
	"rejected":  StateRejected,
	"denied":    StateRejected,
	"rechazado": StateRejected,
	"rechazada": StateRejected,
}

// ParseState normalizes a raw state value into the closed enumeration.
func ParseState(raw string) (State, error) {
	if state, ok := stateAliases[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return state, nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "unknown request state: "+raw)
}

// IsTerminal reports whether the state admits no further transitions.
func (s State) IsTerminal() bool {
	return s == StateAccepted || s == StateRejected
}

// LeaveRequest is a student's medical-absence submission and its approval
// state. Created once as Pending, mutated exactly once by the decision
// engine, never deleted.
type LeaveRequest struct {
	ID              id.RequestID
	StudentID       id.StudentID
	Folio           string
	IssueDate       time.Time
	StartDate       time.Time
	EndDate         time.Time
	State           State
	RejectionReason string // empty unless State == StateRejected
	CreatedAt       time.Time
}

// Range returns the request's absence range as a value for rule evaluation.
func (r *LeaveRequest) Range() DateRange {
	return DateRange{Start: r.StartDate, End: r.EndDate}
}

// Evidence is the hashed supporting document backing a request. Append-only.
type Evidence struct {
	ID         id.EvidenceID
	RequestID  id.RequestID
	StudentID  id.StudentID
	URL        string
	MimeType   string
	SHA256     string
	SizeBytes  int64
	UploadedAt time.Time
}

// Delivery is a per-course record created once a request is Accepted,
// signaling the instructor of an excused absence. Unique per
// (request, course); append-only.
type Delivery struct {
	ID        uuid.UUID
	RequestID id.RequestID
	CourseID  id.CourseID
	CreatedAt time.Time
}

// NewFolio derives the human-facing folio from the request id and issue year.
func NewFolio(requestID id.RequestID, issueDate time.Time) string {
	return fmt.Sprintf("ML-%d-%s", issueDate.Year(), strings.ToUpper(requestID.String()[:8]))
}
