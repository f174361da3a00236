package leave

import (
	"context"

	id "medleave/pkg/domain"
)

// Store is the persistence contract for requests, evidence, and deliveries.
// Implementations return pkg/platform/sentinel errors for infrastructure
// facts; services translate those into domain errors.
//
// Mutating methods participate in the transaction carried by the context
// (pkg/platform/tx) when one is present.
type Store interface {
	// CreateRequest persists a new Pending request together with its
	// evidence as one unit. Returns sentinel.ErrConflict when a uniqueness
	// constraint (active-range overlap, student+hash) rejects the write.
	CreateRequest(ctx context.Context, req *LeaveRequest, ev *Evidence) error

	// GetRequest loads a request. sentinel.ErrNotFound when absent.
	GetRequest(ctx context.Context, requestID id.RequestID) (*LeaveRequest, error)

	// GetRequestForUpdate loads a request under an exclusive row lock held
	// for the remainder of the surrounding transaction.
	GetRequestForUpdate(ctx context.Context, requestID id.RequestID) (*LeaveRequest, error)

	// ListActiveByStudent returns the student's Pending and Accepted
	// requests.
	ListActiveByStudent(ctx context.Context, studentID id.StudentID) ([]*LeaveRequest, error)

	// ListAcceptedByStudent returns the student's Accepted requests.
	ListAcceptedByStudent(ctx context.Context, studentID id.StudentID) ([]*LeaveRequest, error)

	// UpdateDecision persists the one-time Pending→terminal mutation.
	UpdateDecision(ctx context.Context, req *LeaveRequest) error

	// FindEvidenceByHash looks up evidence owned by the student with the
	// given SHA-256. sentinel.ErrNotFound when no copy exists.
	FindEvidenceByHash(ctx context.Context, studentID id.StudentID, sha256 string) (*Evidence, error)

	// ListEvidence returns the evidence rows attached to a request.
	ListEvidence(ctx context.Context, requestID id.RequestID) ([]*Evidence, error)

	// CreateDelivery inserts a delivery row idempotently; created is false
	// when the (request, course) pair already exists, which is success.
	CreateDelivery(ctx context.Context, d *Delivery) (created bool, err error)

	// ListDeliveries returns the delivery rows fanned out for a request.
	ListDeliveries(ctx context.Context, requestID id.RequestID) ([]*Delivery, error)
}
