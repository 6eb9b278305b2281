// Package command contains write operations (CQRS - Commands).
//
// Every handler runs its writes inside one store unit of work. Domain events
// are published only after that unit commits; a publish failure is logged and
// never undoes the committed write.
package command

import (
	"github.com/placement-hub/placement-portal/internal/domain/application"
	"github.com/placement-hub/placement-portal/internal/domain/shared"
	"github.com/placement-hub/placement-portal/pkg/logger"
	"github.com/placement-hub/placement-portal/pkg/timeutil"
)

// Deletion causes carried by application.deleted events.
const (
	CauseDirect            = "direct"
	CauseOpportunityDelete = "opportunity_deleted"
	CauseStudentDelete     = "student_deleted"
)

// base carries the collaborators shared by every handler.
type base struct {
	name      string
	clock     timeutil.Clock
	publisher shared.EventPublisher
	log       *logger.Logger
}

func newBase(clock timeutil.Clock, publisher shared.EventPublisher, log *logger.Logger, component string) base {
	if clock == nil {
		clock = timeutil.NewCampusClock(nil)
	}
	if log == nil {
		log = logger.Nop()
	}
	return base{
		name:      component,
		clock:     clock,
		publisher: publisher,
		log:       log.With(logger.Component(component)),
	}
}

// publish sends events after commit. Failures are logged, not returned.
func (b base) publish(events ...shared.Event) {
	if err := shared.PublishAll(b.publisher, events...); err != nil {
		b.log.Warn("failed to publish events", logger.Err(err), logger.Int("count", len(events)))
	}
}

// deletionEvents turns the maintainer journal into application.deleted events.
func deletionEvents(changes []application.Change, cause string) []shared.Event {
	var events []shared.Event
	for _, c := range changes {
		if c.Action != application.AuditDelete {
			continue
		}
		a := c.Application
		events = append(events, shared.NewApplicationDeletedEvent(a.ID, a.StudentID, a.OpportunityID, cause))
	}
	return events
}
