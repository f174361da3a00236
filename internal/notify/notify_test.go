package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingSink struct {
	mu   sync.Mutex
	seen []Notification
	fail bool
}

func (s *recordingSink) Notify(_ context.Context, n Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("smtp unreachable")
	}
	s.seen = append(s.seen, n)
	return nil
}

func (s *recordingSink) notifications() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Notification{}, s.seen...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDispatcherDeliversInBackground(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(sink, 8, discardLogger())

	d.Enqueue(Notification{Kind: KindRequestAccepted, Recipient: "student-1"})
	d.Enqueue(Notification{Kind: KindCourseExcused, Recipient: "instructor-1"})
	d.Close()

	seen := sink.notifications()
	assert.Len(t, seen, 2)
	assert.Equal(t, KindRequestAccepted, seen[0].Kind)
}

func TestDispatcherSwallowsSinkFailures(t *testing.T) {
	sink := &recordingSink{fail: true}
	d := NewDispatcher(sink, 8, discardLogger())

	// Must not panic or block; failure is logged and dropped.
	d.Enqueue(Notification{Kind: KindRequestRejected, Recipient: "student-2"})
	d.Close()

	assert.Empty(t, sink.notifications())
}

func TestDispatcherDropsWhenBufferFull(t *testing.T) {
	block := make(chan struct{})
	sink := &blockingSink{release: block, started: make(chan struct{})}
	d := NewDispatcher(sink, 1, discardLogger())

	// First notice occupies the worker, second fills the buffer, third drops.
	d.Enqueue(Notification{Recipient: "a"})
	sink.wait()
	d.Enqueue(Notification{Recipient: "b"})
	d.Enqueue(Notification{Recipient: "c"})

	close(block)
	d.Close()

	assert.LessOrEqual(t, sink.count(), 2)
}

type blockingSink struct {
	mu      sync.Mutex
	n       int
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *blockingSink) Notify(context.Context, Notification) error {
	s.once.Do(func() {
		if s.started != nil {
			close(s.started)
		}
	})
	<-s.release
	s.mu.Lock()
	s.n++
	s.mu.Unlock()
	return nil
}

func (s *blockingSink) wait() {
	// Give the worker a chance to pick up the first notice.
	if s.started != nil {
		<-s.started
	}
}

func (s *blockingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}
