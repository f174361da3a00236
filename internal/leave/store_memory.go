package leave

import (
	"context"
	"sync"

	id "medleave/pkg/domain"
	"medleave/pkg/platform/sentinel"
)

// InMemoryStore keeps requests in process memory. Used by unit tests and
// local development. Exclusion for the decide path comes from the service's
// RunInTx shard locks, not from this mutex, which only guards map access.
type InMemoryStore struct {
	mu         sync.RWMutex
	requests   map[id.RequestID]*LeaveRequest
	evidence   map[id.RequestID][]*Evidence
	deliveries map[id.RequestID][]*Delivery
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		requests:   make(map[id.RequestID]*LeaveRequest),
		evidence:   make(map[id.RequestID][]*Evidence),
		deliveries: make(map[id.RequestID][]*Delivery),
	}
}

func (s *InMemoryStore) CreateRequest(_ context.Context, req *LeaveRequest, ev *Evidence) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.requests[req.ID]; exists {
		return sentinel.ErrConflict
	}
	// Constraint backstops mirrored from the relational schema.
	for _, other := range s.requests {
		if other.StudentID != req.StudentID {
			continue
		}
		if other.State != StatePending && other.State != StateAccepted {
			continue
		}
		if req.Range().Overlaps(other.Range()) {
			return sentinel.ErrConflict
		}
	}
	for _, rows := range s.evidence {
		for _, other := range rows {
			if other.StudentID == ev.StudentID && other.SHA256 == ev.SHA256 {
				return sentinel.ErrConflict
			}
		}
	}

	reqCopy := *req
	evCopy := *ev
	s.requests[req.ID] = &reqCopy
	s.evidence[req.ID] = append(s.evidence[req.ID], &evCopy)
	return nil
}

func (s *InMemoryStore) GetRequest(_ context.Context, requestID id.RequestID) (*LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getLocked(requestID)
}

func (s *InMemoryStore) GetRequestForUpdate(ctx context.Context, requestID id.RequestID) (*LeaveRequest, error) {
	return s.GetRequest(ctx, requestID)
}

func (s *InMemoryStore) getLocked(requestID id.RequestID) (*LeaveRequest, error) {
	req, ok := s.requests[requestID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	reqCopy := *req
	return &reqCopy, nil
}

func (s *InMemoryStore) ListActiveByStudent(_ context.Context, studentID id.StudentID) ([]*LeaveRequest, error) {
	return s.listByStudent(studentID, StatePending, StateAccepted), nil
}

func (s *InMemoryStore) ListAcceptedByStudent(_ context.Context, studentID id.StudentID) ([]*LeaveRequest, error) {
	return s.listByStudent(studentID, StateAccepted), nil
}

func (s *InMemoryStore) listByStudent(studentID id.StudentID, states ...State) []*LeaveRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*LeaveRequest
	for _, req := range s.requests {
		if req.StudentID != studentID {
			continue
		}
		for _, state := range states {
			if req.State == state {
				reqCopy := *req
				out = append(out, &reqCopy)
				break
			}
		}
	}
	return out
}

func (s *InMemoryStore) UpdateDecision(_ context.Context, req *LeaveRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.requests[req.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if stored.State != StatePending {
		return sentinel.ErrInvalidState
	}
	reqCopy := *req
	s.requests[req.ID] = &reqCopy
	return nil
}

func (s *InMemoryStore) FindEvidenceByHash(_ context.Context, studentID id.StudentID, sha256 string) (*Evidence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rows := range s.evidence {
		for _, ev := range rows {
			if ev.StudentID == studentID && ev.SHA256 == sha256 {
				evCopy := *ev
				return &evCopy, nil
			}
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) ListEvidence(_ context.Context, requestID id.RequestID) ([]*Evidence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.evidence[requestID]
	out := make([]*Evidence, 0, len(rows))
	for _, ev := range rows {
		evCopy := *ev
		out = append(out, &evCopy)
	}
	return out, nil
}

func (s *InMemoryStore) CreateDelivery(_ context.Context, d *Delivery) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.deliveries[d.RequestID] {
		if existing.CourseID == d.CourseID {
			return false, nil
		}
	}
	dCopy := *d
	s.deliveries[d.RequestID] = append(s.deliveries[d.RequestID], &dCopy)
	return true, nil
}

func (s *InMemoryStore) ListDeliveries(_ context.Context, requestID id.RequestID) ([]*Delivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.deliveries[requestID]
	out := make([]*Delivery, 0, len(rows))
	for _, d := range rows {
		dCopy := *d
		out = append(out, &dCopy)
	}
	return out, nil
}
