package evidence

import (
	"context"
	"fmt"
	"sync"

	id "medleave/pkg/domain"
	"medleave/pkg/platform/sentinel"
)

// InMemoryBlobStore keeps uploads in process memory. Used in tests and local
// development; FailNext lets tests exercise the rollback path.
type InMemoryBlobStore struct {
	mu       sync.Mutex
	blobs    map[string][]byte
	failNext bool
}

func NewInMemoryBlobStore() *InMemoryBlobStore {
	return &InMemoryBlobStore{blobs: make(map[string][]byte)}
}

// FailNext makes the next Upload return ErrUnavailable.
func (s *InMemoryBlobStore) FailNext() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = true
}

func (s *InMemoryBlobStore) Upload(_ context.Context, data []byte, _ string, owner id.StudentID) (BlobRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failNext {
		s.failNext = false
		return BlobRef{}, sentinel.ErrUnavailable
	}

	hash := HashBytes(data)
	key := fmt.Sprintf("%s/%s", owner, hash)
	s.blobs[key] = append([]byte(nil), data...)

	return BlobRef{
		URL:       "mem://evidence/" + key,
		Hash:      hash,
		SizeBytes: int64(len(data)),
	}, nil
}
