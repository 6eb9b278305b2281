package eventhandler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placement-hub/placement-portal/internal/domain/shared"
	"github.com/placement-hub/placement-portal/internal/infrastructure/messaging"
	"github.com/placement-hub/placement-portal/pkg/logger"
)

type fakeInvalidator struct {
	ids []int64
	err error
}

func (f *fakeInvalidator) Invalidate(_ context.Context, ids ...int64) error {
	f.ids = append(f.ids, ids...)
	return f.err
}

type fakeRecorder struct {
	created    int
	deleted    []string
	rejections []string
	changes    []string
	modes      []string
}

func (f *fakeRecorder) RecordApplicationCreated()             { f.created++ }
func (f *fakeRecorder) RecordApplicationDeleted(cause string) { f.deleted = append(f.deleted, cause) }
func (f *fakeRecorder) RecordRejection(reason string)         { f.rejections = append(f.rejections, reason) }
func (f *fakeRecorder) RecordStatusChange(from, to string) {
	f.changes = append(f.changes, from+">"+to)
}
func (f *fakeRecorder) RecordInterviewScheduled(mode string) { f.modes = append(f.modes, mode) }

func newBus(t *testing.T) *messaging.InMemoryEventBus {
	t.Helper()
	bus := messaging.NewInMemoryEventBus(messaging.InMemoryEventBusConfig{Logger: logger.Nop()})
	t.Cleanup(func() { _ = bus.Close() })
	return bus
}

func TestOnOpportunityChanged_EvictsDeletedOpportunity(t *testing.T) {
	bus := newBus(t)
	cache := &fakeInvalidator{}
	require.NoError(t, Register(bus, NewOnOpportunityChangedHandler(cache, nil, time.Second)))

	require.NoError(t, bus.Publish(shared.NewApplicationCreatedEvent(1, 10, 100)))
	require.NoError(t, bus.Publish(shared.NewApplicationDeletedEvent(1, 10, 101, "direct")))
	require.NoError(t, bus.Publish(shared.NewEntityChangedEvent(shared.EventOpportunityDeleted, 102)))
	require.NoError(t, bus.Publish(shared.NewApplicationStatusChangedEvent(1, "APPLIED", "SHORTLISTED")))
	require.NoError(t, bus.Publish(shared.NewEntityChangedEvent(shared.EventStudentDeleted, 10)))

	assert.Equal(t, []int64{102}, cache.ids)
}

func TestOnOpportunityChanged_ReportsCacheFailure(t *testing.T) {
	cache := &fakeInvalidator{err: errors.New("connection refused")}
	h := NewOnOpportunityChangedHandler(cache, logger.Nop(), 0)

	err := h.Handle(shared.NewEntityChangedEvent(shared.EventOpportunityDeleted, 100))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestOnLifecycleMetrics(t *testing.T) {
	bus := newBus(t)
	rec := &fakeRecorder{}
	require.NoError(t, Register(bus, NewOnLifecycleMetricsHandler(rec)))

	events := []shared.Event{
		shared.NewApplicationCreatedEvent(1, 10, 100),
		shared.NewApplicationRejectedEvent(10, 100, "duplicate_application"),
		shared.NewApplicationStatusChangedEvent(1, "APPLIED", "INTERVIEW_SCHEDULED"),
		shared.NewInterviewScheduledEvent(5, 1, time.Now(), "ONLINE"),
		shared.NewApplicationDeletedEvent(1, 10, 100, "opportunity_deleted"),
	}
	require.NoError(t, shared.PublishAll(bus, events...))

	assert.Equal(t, 1, rec.created)
	assert.Equal(t, []string{"duplicate_application"}, rec.rejections)
	assert.Equal(t, []string{"APPLIED>INTERVIEW_SCHEDULED"}, rec.changes)
	assert.Equal(t, []string{"ONLINE"}, rec.modes)
	assert.Equal(t, []string{"opportunity_deleted"}, rec.deleted)
}
