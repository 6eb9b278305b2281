// Package eventhandler contains reactions to committed domain events.
// Handlers run after the unit of work that raised the event has committed,
// so they only drive side effects such as cache invalidation and metrics;
// they never touch counters or the audit trail.
package eventhandler

import (
	"fmt"

	"github.com/placement-hub/placement-portal/internal/domain/shared"
)

// Handler is an event handler that knows which events it consumes.
type Handler interface {
	EventTypes() []shared.EventType
	Handle(event shared.Event) error
}

// Register subscribes every handler to the event types it consumes.
func Register(sub shared.EventSubscriber, handlers ...Handler) error {
	for _, h := range handlers {
		for _, t := range h.EventTypes() {
			if err := sub.Subscribe(t, h.Handle); err != nil {
				return fmt.Errorf("eventhandler: subscribe %s: %w", t, err)
			}
		}
	}
	return nil
}
