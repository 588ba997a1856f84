package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/familynest/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEvent struct {
	shared.BaseDomainEvent
}

func newTestEvent(eventType string) *testEvent {
	return &testEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "FamilyMember", uuid.New(), uuid.New()),
	}
}

type testHandler struct {
	mu         sync.Mutex
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
	panicWith  interface{}
	block      chan struct{}
}

func newTestHandler(eventTypes ...string) *testHandler {
	return &testHandler{eventTypes: eventTypes}
}

func (h *testHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if h.block != nil {
		<-h.block
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, event)
	if h.panicWith != nil {
		panic(h.panicWith)
	}
	return h.err
}

func (h *testHandler) EventTypes() []string { return h.eventTypes }

func (h *testHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	ctx := context.Background()

	t.Run("delivers to subscribed types only", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		passed := newTestHandler("family.member.passed")
		other := newTestHandler("other")
		bus.Subscribe(passed)
		bus.Subscribe(other)

		require.NoError(t, bus.Publish(ctx, newTestEvent("family.member.passed"), newTestEvent("family.member.passed")))
		assert.Equal(t, 2, passed.count())
		assert.Equal(t, 0, other.count())
	})

	t.Run("wildcard receives everything", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		all := newTestHandler()
		bus.Subscribe(all)

		require.NoError(t, bus.Publish(ctx, newTestEvent("a"), newTestEvent("b")))
		assert.Equal(t, 2, all.count())
	})

	t.Run("handler error and panic do not stop others", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		failing := newTestHandler("x")
		failing.err = errors.New("smtp down")
		panicking := newTestHandler("x")
		panicking.panicWith = "boom"
		ok := newTestHandler("x")
		bus.Subscribe(failing)
		bus.Subscribe(panicking)
		bus.Subscribe(ok)

		require.NoError(t, bus.Publish(ctx, newTestEvent("x")))
		assert.Equal(t, 1, failing.count())
		assert.Equal(t, 1, panicking.count())
		assert.Equal(t, 1, ok.count())
	})

	t.Run("unsubscribed handler is skipped", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		h := newTestHandler("x")
		bus.Subscribe(h)
		bus.Unsubscribe(h)

		require.NoError(t, bus.Publish(ctx, newTestEvent("x")))
		assert.Equal(t, 0, h.count())
		assert.Empty(t, bus.registry.GetHandlers("x"))
	})
}

func TestInMemoryEventBus_Async(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop(), WithAsyncDispatch(time.Second))
	h := newTestHandler("x")
	h.block = make(chan struct{})
	bus.Subscribe(h)

	reqCtx, cancel := context.WithCancel(context.Background())
	require.NoError(t, bus.Publish(reqCtx, newTestEvent("x")))
	cancel()
	assert.Equal(t, 0, h.count(), "publish returns before the handler runs")

	close(h.block)
	stopCtx, stop := context.WithTimeout(context.Background(), time.Second)
	defer stop()
	require.NoError(t, bus.Stop(stopCtx))
	assert.Equal(t, 1, h.count())

	assert.Error(t, bus.Publish(context.Background(), newTestEvent("x")), "stopped bus rejects publishes")
}

func TestInMemoryEventBus_StopTimeout(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop(), WithAsyncDispatch(time.Minute))
	h := newTestHandler("x")
	h.block = make(chan struct{})
	defer close(h.block)
	bus.Subscribe(h)
	require.NoError(t, bus.Publish(context.Background(), newTestEvent("x")))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, bus.Stop(ctx), context.DeadlineExceeded)
}
