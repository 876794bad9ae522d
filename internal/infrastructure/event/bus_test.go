package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pressmarket/backend/internal/domain/publication"
	"github.com/pressmarket/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// recordingHandler captures every event it receives
type recordingHandler struct {
	mu     sync.Mutex
	types  []string
	events []shared.DomainEvent
	err    error
	panics bool
	block  chan struct{}
}

func (h *recordingHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if h.block != nil {
		<-h.block
	}
	if h.panics {
		panic("handler exploded")
	}
	h.mu.Lock()
	h.events = append(h.events, event)
	h.mu.Unlock()
	return h.err
}

func (h *recordingHandler) EventTypes() []string {
	return h.types
}

func (h *recordingHandler) received() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.events)
}

func submittedEvent(t *testing.T) *publication.PublicationSubmittedEvent {
	t.Helper()
	pub, err := publication.NewPublication("Tech Daily", "https://techdaily.example.com", publication.Actor{ID: 7, Role: publication.RoleUser})
	require.NoError(t, err)
	require.NoError(t, pub.Submit(publication.Actor{ID: 7, Role: publication.RoleUser}, true))
	pub.ID = 1
	return publication.NewPublicationSubmittedEvent(pub)
}

func startedBus(t *testing.T) *InMemoryEventBus {
	t.Helper()
	bus := NewInMemoryEventBus(zap.NewNop())
	require.NoError(t, bus.Start(context.Background()))
	return bus
}

func TestInMemoryEventBus_PublishReachesSubscriber(t *testing.T) {
	bus := startedBus(t)
	handler := &recordingHandler{types: []string{publication.EventTypePublicationSubmitted}}
	bus.Subscribe(handler)

	require.NoError(t, bus.Publish(context.Background(), submittedEvent(t)))
	require.NoError(t, bus.Stop(context.Background()))

	assert.Equal(t, 1, handler.received())
}

func TestInMemoryEventBus_TypeFiltering(t *testing.T) {
	bus := startedBus(t)
	submitted := &recordingHandler{types: []string{publication.EventTypePublicationSubmitted}}
	approved := &recordingHandler{types: []string{publication.EventTypePublicationApproved}}
	wildcard := &recordingHandler{}
	bus.Subscribe(submitted)
	bus.Subscribe(approved)
	bus.Subscribe(wildcard)

	require.NoError(t, bus.Publish(context.Background(), submittedEvent(t)))
	require.NoError(t, bus.Stop(context.Background()))

	assert.Equal(t, 1, submitted.received())
	assert.Equal(t, 0, approved.received())
	assert.Equal(t, 1, wildcard.received())
}

func TestInMemoryEventBus_FailingHandlerDoesNotStopOthers(t *testing.T) {
	bus := startedBus(t)
	failing := &recordingHandler{types: []string{publication.EventTypePublicationSubmitted}, err: errors.New("boom")}
	panicking := &recordingHandler{types: []string{publication.EventTypePublicationSubmitted}, panics: true}
	healthy := &recordingHandler{types: []string{publication.EventTypePublicationSubmitted}}
	bus.Subscribe(failing)
	bus.Subscribe(panicking)
	bus.Subscribe(healthy)

	require.NoError(t, bus.Publish(context.Background(), submittedEvent(t)))
	require.NoError(t, bus.Stop(context.Background()))

	assert.Equal(t, 1, healthy.received())
}

func TestInMemoryEventBus_PublishDoesNotBlockOnSlowHandler(t *testing.T) {
	bus := startedBus(t)
	slow := &recordingHandler{types: []string{publication.EventTypePublicationSubmitted}, block: make(chan struct{})}
	bus.Subscribe(slow)

	start := time.Now()
	require.NoError(t, bus.Publish(context.Background(), submittedEvent(t)))
	assert.Less(t, time.Since(start), time.Second)

	close(slow.block)
	require.NoError(t, bus.Stop(context.Background()))
	assert.Equal(t, 1, slow.received())
}

func TestInMemoryEventBus_PublishAfterStop(t *testing.T) {
	bus := startedBus(t)
	require.NoError(t, bus.Stop(context.Background()))

	err := bus.Publish(context.Background(), submittedEvent(t))

	require.Error(t, err)
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := startedBus(t)
	handler := &recordingHandler{types: []string{publication.EventTypePublicationSubmitted}}
	bus.Subscribe(handler)
	bus.Unsubscribe(handler)

	require.NoError(t, bus.Publish(context.Background(), submittedEvent(t)))
	require.NoError(t, bus.Stop(context.Background()))

	assert.Equal(t, 0, handler.received())
}

func TestInMemoryEventBus_StopTimesOutOnStuckHandler(t *testing.T) {
	bus := startedBus(t)
	stuck := &recordingHandler{types: []string{publication.EventTypePublicationSubmitted}, block: make(chan struct{})}
	bus.Subscribe(stuck)

	require.NoError(t, bus.Publish(context.Background(), submittedEvent(t)))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := bus.Stop(ctx)

	require.ErrorIs(t, err, context.DeadlineExceeded)
	close(stuck.block)
}
