package messaging

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placement-hub/placement-portal/internal/domain/shared"
	"github.com/placement-hub/placement-portal/pkg/logger"
)

type countingObserver struct {
	mu        sync.Mutex
	published int
	runs      int
	failures  int
}

func (o *countingObserver) EventPublished(string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.published++
}

func (o *countingObserver) HandlerFinished(_ string, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.runs++
	if err != nil {
		o.failures++
	}
}

func newBus(async bool, obs *countingObserver) *InMemoryEventBus {
	return NewInMemoryEventBus(InMemoryEventBusConfig{
		AsyncMode:      async,
		WorkerPoolSize: 2,
		Logger:         logger.Nop(),
		Observer:       obs,
	})
}

func TestInMemoryEventBus_SyncDeliversByType(t *testing.T) {
	obs := &countingObserver{}
	bus := newBus(false, obs)
	defer bus.Close()

	var created, all []shared.EventType
	require.NoError(t, bus.Subscribe(shared.EventApplicationCreated, func(e shared.Event) error {
		created = append(created, e.EventType())
		return nil
	}))
	require.NoError(t, bus.SubscribeAll(func(e shared.Event) error {
		all = append(all, e.EventType())
		return nil
	}))

	require.NoError(t, bus.Publish(shared.NewApplicationCreatedEvent(1, 2, 3)))
	require.NoError(t, bus.Publish(shared.NewApplicationDeletedEvent(1, 2, 3, "direct")))

	assert.Equal(t, []shared.EventType{shared.EventApplicationCreated}, created)
	assert.Equal(t, []shared.EventType{shared.EventApplicationCreated, shared.EventApplicationDeleted}, all)

	assert.Equal(t, 2, obs.published)
	assert.Equal(t, 3, obs.runs)
}

func TestInMemoryEventBus_HandlerFailuresDoNotPropagate(t *testing.T) {
	obs := &countingObserver{}
	bus := newBus(false, obs)
	defer bus.Close()

	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { return errors.New("boom") }))
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { panic("handler bug") }))

	assert.NoError(t, bus.Publish(shared.NewApplicationCreatedEvent(1, 2, 3)))
	assert.Equal(t, 2, obs.failures)
}

func TestInMemoryEventBus_AsyncRunsAllHandlers(t *testing.T) {
	obs := &countingObserver{}
	bus := newBus(true, obs)

	var calls atomic.Int64
	var mu sync.Mutex
	seen := map[string]bool{}
	require.NoError(t, bus.Subscribe(shared.EventApplicationCreated, func(e shared.Event) error {
		calls.Add(1)
		mu.Lock()
		seen[e.AggregateID()] = true
		mu.Unlock()
		return nil
	}))

	for i := int64(1); i <= 10; i++ {
		require.NoError(t, bus.Publish(shared.NewApplicationCreatedEvent(i, 1, 1)))
	}
	bus.Wait()

	assert.Equal(t, int64(10), calls.Load())
	assert.Len(t, seen, 10)
	assert.Equal(t, 10, obs.runs)

	require.NoError(t, bus.Close())
	assert.ErrorIs(t, bus.Publish(shared.NewApplicationCreatedEvent(11, 1, 1)), ErrEventBusClosed)
	assert.ErrorIs(t, bus.SubscribeAll(func(shared.Event) error { return nil }), ErrEventBusClosed)
}

func TestInMemoryEventBus_RejectsNil(t *testing.T) {
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{Logger: logger.Nop()})
	defer bus.Close()

	assert.Error(t, bus.Subscribe(shared.EventApplicationCreated, nil))
	assert.Error(t, bus.Publish(nil))
}
