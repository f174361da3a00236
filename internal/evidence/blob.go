package evidence

import (
	"context"

	id "medleave/pkg/domain"
)

// BlobRef describes an uploaded document.
type BlobRef struct {
	URL       string
	Hash      string
	SizeBytes int64
}

// BlobStore is the external document storage collaborator. Implementations
// live outside the core; upload failure is a retryable storage fault and must
// roll back the surrounding unit of work.
type BlobStore interface {
	Upload(ctx context.Context, data []byte, mimeType string, owner id.StudentID) (BlobRef, error)
}
