// Package audit records immutable state-change events. Events are written in
// the same transaction as the mutation they describe (via the outbox-backed
// store) and relayed to Kafka by a background worker.
package audit

import (
	"time"
)

// Action names the state change an event records.
type Action string

const (
	ActionRequestSubmitted Action = "request_submitted"
	ActionRequestAccepted  Action = "request_accepted"
	ActionRequestRejected  Action = "request_rejected"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time
	ActorID   string
	Action    Action
	// Resource is the audited entity, e.g. "leave_request:<id>".
	Resource string
	// Payload carries the before/after facts: previous_state, new_state,
	// effective dates, rejection reason.
	Payload map[string]string
	IP      string
	// RequestID is the correlation ID from the HTTP request context.
	RequestID string
}
