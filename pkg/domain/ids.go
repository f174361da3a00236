// Package domain holds the typed identifiers shared across modules. Each ID
// wraps uuid.UUID in a distinct named type so the compiler rejects, say, a
// StudentID where a RequestID is expected.
package domain

import (
	"github.com/google/uuid"

	dErrors "medleave/pkg/domain-errors"
)

type (
	// RequestID identifies a medical-leave request.
	RequestID uuid.UUID
	// StudentID identifies the student owning a request.
	StudentID uuid.UUID
	// ActorID identifies the staff member deciding a request.
	ActorID uuid.UUID
	// CourseID identifies a course a student is enrolled in.
	CourseID uuid.UUID
	// EvidenceID identifies a supporting document row.
	EvidenceID uuid.UUID
)

func (id RequestID) String() string  { return uuid.UUID(id).String() }
func (id StudentID) String() string  { return uuid.UUID(id).String() }
func (id ActorID) String() string    { return uuid.UUID(id).String() }
func (id CourseID) String() string   { return uuid.UUID(id).String() }
func (id EvidenceID) String() string { return uuid.UUID(id).String() }

func (id RequestID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id StudentID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ActorID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }

// NewRequestID generates a fresh request identifier.
func NewRequestID() RequestID { return RequestID(uuid.New()) }

// NewEvidenceID generates a fresh evidence identifier.
func NewEvidenceID() EvidenceID { return EvidenceID(uuid.New()) }

// parseUUID enforces the invariant that IDs are valid, non-empty, non-nil
// UUIDs at trust boundaries.
func parseUUID(raw, kind string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" must not be empty")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+kind)
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" must not be the nil UUID")
	}
	return parsed, nil
}

// ParseRequestID parses and validates a request ID from its string form.
func ParseRequestID(raw string) (RequestID, error) {
	parsed, err := parseUUID(raw, "request id")
	return RequestID(parsed), err
}

// ParseStudentID parses and validates a student ID from its string form.
func ParseStudentID(raw string) (StudentID, error) {
	parsed, err := parseUUID(raw, "student id")
	return StudentID(parsed), err
}

// ParseActorID parses and validates an actor ID from its string form.
func ParseActorID(raw string) (ActorID, error) {
	parsed, err := parseUUID(raw, "actor id")
	return ActorID(parsed), err
}

// ParseCourseID parses and validates a course ID from its string form.
func ParseCourseID(raw string) (CourseID, error) {
	parsed, err := parseUUID(raw, "course id")
	return CourseID(parsed), err
}
