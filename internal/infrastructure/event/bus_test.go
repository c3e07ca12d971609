package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rentledger/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubEvent struct {
	shared.BaseDomainEvent
}

func newStubEvent(eventType string) *stubEvent {
	return &stubEvent{BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "Tenancy", uuid.New())}
}

type recordingHandler struct {
	types []string
	err   error
	panic bool

	mu   sync.Mutex
	seen []string
}

func (h *recordingHandler) EventTypes() []string { return h.types }

func (h *recordingHandler) Handle(_ context.Context, ev shared.DomainEvent) error {
	if h.panic {
		panic("handler blew up")
	}
	h.mu.Lock()
	h.seen = append(h.seen, ev.EventType())
	h.mu.Unlock()
	return h.err
}

func (h *recordingHandler) handled() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.seen...)
}

func startedBus(t *testing.T) *InMemoryEventBus {
	t.Helper()
	bus := NewInMemoryEventBus(zap.NewNop())
	require.NoError(t, bus.Start(context.Background()))
	t.Cleanup(func() { _ = bus.Stop(context.Background()) })
	return bus
}

func TestInMemoryEventBus_RoutesByType(t *testing.T) {
	bus := startedBus(t)
	payments := &recordingHandler{types: []string{"PaymentRecorded"}}
	everything := &recordingHandler{}
	bus.Subscribe(payments)
	bus.Subscribe(everything)

	require.NoError(t, bus.Publish(context.Background(),
		newStubEvent("TenancyCreated"),
		newStubEvent("PaymentRecorded"),
	))

	assert.Equal(t, []string{"PaymentRecorded"}, payments.handled())
	assert.Equal(t, []string{"TenancyCreated", "PaymentRecorded"}, everything.handled())
	delivered, failed := bus.Stats()
	assert.Equal(t, int64(3), delivered)
	assert.Zero(t, failed)
}

func TestInMemoryEventBus_ExplicitTypesOverrideHandler(t *testing.T) {
	bus := startedBus(t)
	h := &recordingHandler{types: []string{"PaymentRecorded"}}
	bus.Subscribe(h, "PaymentRefunded")

	require.NoError(t, bus.Publish(context.Background(), newStubEvent("PaymentRecorded"), newStubEvent("PaymentRefunded")))
	assert.Equal(t, []string{"PaymentRefunded"}, h.handled())
}

func TestInMemoryEventBus_HandlerFailuresAreIsolated(t *testing.T) {
	bus := startedBus(t)
	failing := &recordingHandler{err: errors.New("smtp down")}
	panicking := &recordingHandler{panic: true}
	healthy := &recordingHandler{}
	bus.Subscribe(failing)
	bus.Subscribe(panicking)
	bus.Subscribe(healthy)

	err := bus.Publish(context.Background(), newStubEvent("PaymentRecorded"))
	require.NoError(t, err)
	assert.Len(t, healthy.handled(), 1)

	delivered, failed := bus.Stats()
	assert.Equal(t, int64(1), delivered)
	assert.Equal(t, int64(2), failed)
}

func TestInMemoryEventBus_StoppedDropsEvents(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	h := &recordingHandler{}
	bus.Subscribe(h)

	require.NoError(t, bus.Publish(context.Background(), newStubEvent("PaymentRecorded")))
	assert.Empty(t, h.handled())
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := startedBus(t)
	h := &recordingHandler{types: []string{"A", "B"}}
	bus.Subscribe(h)
	bus.Unsubscribe(h)

	require.NoError(t, bus.Publish(context.Background(), newStubEvent("A")))
	assert.Empty(t, h.handled())
	assert.Zero(t, bus.registry.Len())
}

func TestHandlerRegistry_Len(t *testing.T) {
	r := NewHandlerRegistry()
	h := &recordingHandler{}
	r.Register(h, "A", "B")
	r.Register(h)
	r.Register(&recordingHandler{}, "A")

	assert.Equal(t, 2, r.Len())
	assert.Len(t, r.HandlersFor("A"), 3)
	assert.Len(t, r.HandlersFor("C"), 1)
}
