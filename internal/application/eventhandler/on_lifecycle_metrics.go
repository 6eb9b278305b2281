package eventhandler

import (
	"github.com/placement-hub/placement-portal/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON LIFECYCLE METRICS HANDLER
// Turns committed application and interview events into counters.
// ═══════════════════════════════════════════════════════════════════════════

// MetricsRecorder receives lifecycle observations.
type MetricsRecorder interface {
	RecordApplicationCreated()
	RecordApplicationDeleted(cause string)
	RecordRejection(reason string)
	RecordStatusChange(from, to string)
	RecordInterviewScheduled(mode string)
}

// OnLifecycleMetricsHandler records lifecycle metrics.
type OnLifecycleMetricsHandler struct {
	recorder MetricsRecorder
}

// NewOnLifecycleMetricsHandler creates a new OnLifecycleMetricsHandler.
func NewOnLifecycleMetricsHandler(recorder MetricsRecorder) *OnLifecycleMetricsHandler {
	return &OnLifecycleMetricsHandler{recorder: recorder}
}

// EventTypes returns the events this handler consumes.
func (h *OnLifecycleMetricsHandler) EventTypes() []shared.EventType {
	return []shared.EventType{
		shared.EventApplicationCreated,
		shared.EventApplicationDeleted,
		shared.EventApplicationRejected,
		shared.EventApplicationStatusChanged,
		shared.EventInterviewScheduled,
	}
}

// Handle processes the event.
func (h *OnLifecycleMetricsHandler) Handle(event shared.Event) error {
	switch e := event.(type) {
	case shared.ApplicationCreatedEvent:
		h.recorder.RecordApplicationCreated()
	case shared.ApplicationDeletedEvent:
		h.recorder.RecordApplicationDeleted(e.Cause)
	case shared.ApplicationRejectedEvent:
		h.recorder.RecordRejection(e.Reason)
	case shared.ApplicationStatusChangedEvent:
		h.recorder.RecordStatusChange(e.OldStatus, e.NewStatus)
	case shared.InterviewScheduledEvent:
		h.recorder.RecordInterviewScheduled(e.Mode)
	}
	return nil
}
