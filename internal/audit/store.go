package audit

import "context"

// Store persists audit events. Append-only; events are never updated or
// deleted.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByResource(ctx context.Context, resource string) ([]Event, error)
}
