// Package notify delivers best-effort notices to students and instructors.
// Dispatch happens strictly after commit, never blocks the caller, and
// failures are logged and swallowed. A lost notice never rolls back a
// decision.
package notify

import (
	"context"
	"log/slog"
	"sync"
)

// Kind classifies a notification for template selection downstream.
type Kind string

const (
	KindRequestSubmitted Kind = "request_submitted"
	KindRequestAccepted  Kind = "request_accepted"
	KindRequestRejected  Kind = "request_rejected"
	KindCourseExcused    Kind = "course_excused"
)

// Notification is the transport-agnostic notice handed to the sink.
type Notification struct {
	Kind      Kind
	Recipient string
	Payload   map[string]string
}

// Sink is the external delivery collaborator (mail gateway, push service).
// Duplicate delivery is acceptable; the sink must tolerate retries.
type Sink interface {
	Notify(ctx context.Context, n Notification) error
}

// Dispatcher queues notifications onto a background worker. Enqueue never
// blocks: when the buffer is full the notice is dropped and logged, by the
// same contract that lets sink failures be swallowed.
type Dispatcher struct {
	sink   Sink
	inbox  chan Notification
	logger *slog.Logger

	closeOnce sync.Once
	done      chan struct{}
}

func NewDispatcher(sink Sink, buffer int, logger *slog.Logger) *Dispatcher {
	d := &Dispatcher{
		sink:   sink,
		inbox:  make(chan Notification, buffer),
		logger: logger,
		done:   make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for n := range d.inbox {
		if err := d.sink.Notify(context.Background(), n); err != nil {
			d.logger.Error("notification delivery failed",
				"kind", n.Kind,
				"recipient", n.Recipient,
				"error", err,
			)
		}
	}
}

// Enqueue hands a notification to the worker without blocking.
func (d *Dispatcher) Enqueue(n Notification) {
	select {
	case d.inbox <- n:
	default:
		d.logger.Warn("notification buffer full, dropping notice",
			"kind", n.Kind,
			"recipient", n.Recipient,
		)
	}
}

// Close drains the queue and stops the worker.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		close(d.inbox)
	})
	<-d.done
}
