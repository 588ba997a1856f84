package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/familynest/backend/internal/domain/shared"
)

// EventRecorder is a shared.EventHandler that keeps every event it handles.
type EventRecorder struct {
	mu         sync.Mutex
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
}

var _ shared.EventHandler = (*EventRecorder)(nil)

// NewEventRecorder creates a recorder subscribed to eventTypes.
func NewEventRecorder(eventTypes ...string) *EventRecorder {
	return &EventRecorder{
		eventTypes: eventTypes,
		handled:    make([]shared.DomainEvent, 0),
	}
}

// EventTypes returns the event types this handler subscribes to.
func (r *EventRecorder) EventTypes() []string {
	return r.eventTypes
}

// Handle records event and returns the configured error.
func (r *EventRecorder) Handle(_ context.Context, event shared.DomainEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handled = append(r.handled, event)
	return r.err
}

// Handled returns all handled events.
func (r *EventRecorder) Handled() []shared.DomainEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]shared.DomainEvent, len(r.handled))
	copy(result, r.handled)
	return result
}

// HandledCount returns the number of handled events.
func (r *EventRecorder) HandledCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handled)
}

// SetError sets the error to return from Handle.
func (r *EventRecorder) SetError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// WaitForEvents polls until at least n events were handled.
// Returns false if timeout elapsed first.
func (r *EventRecorder) WaitForEvents(t *testing.T, n int, timeout time.Duration) bool {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if r.HandledCount() >= n {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}
