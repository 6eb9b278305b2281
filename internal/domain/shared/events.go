// Package shared contains common domain types, errors and events
// that are used across all domain packages.
package shared

import (
	"strconv"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. Events are published after the owning unit of work
// commits and never take part in integrity maintenance.
const (
	// Application events
	EventApplicationCreated       EventType = "application.created"
	EventApplicationDeleted       EventType = "application.deleted"
	EventApplicationRejected      EventType = "application.rejected"
	EventApplicationStatusChanged EventType = "application.status_changed"

	// Interview events
	EventInterviewScheduled     EventType = "interview.scheduled"
	EventInterviewResultUpdated EventType = "interview.result_updated"

	// Catalog events
	EventOpportunityPosted  EventType = "opportunity.posted"
	EventOpportunityDeleted EventType = "opportunity.deleted"
	EventStudentRegistered  EventType = "student.registered"
	EventStudentDeleted     EventType = "student.deleted"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID int64) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now(),
		AggregateId: strconv.FormatInt(aggregateID, 10),
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Application Events
// ═══════════════════════════════════════════════════════════════════════════

// ApplicationCreatedEvent is emitted after an application is committed.
type ApplicationCreatedEvent struct {
	BaseEvent
	ApplicationID int64 `json:"application_id"`
	StudentID     int64 `json:"student_id"`
	OpportunityID int64 `json:"opportunity_id"`
}

// Payload implements Event interface.
func (e ApplicationCreatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"application_id": e.ApplicationID,
		"student_id":     e.StudentID,
		"opportunity_id": e.OpportunityID,
	}
}

// NewApplicationCreatedEvent creates a new ApplicationCreatedEvent.
func NewApplicationCreatedEvent(applicationID, studentID, opportunityID int64) ApplicationCreatedEvent {
	return ApplicationCreatedEvent{
		BaseEvent:     NewBaseEvent(EventApplicationCreated, applicationID),
		ApplicationID: applicationID,
		StudentID:     studentID,
		OpportunityID: opportunityID,
	}
}

// ApplicationDeletedEvent is emitted after an application removal is committed,
// whether direct or cascaded from an opportunity or student removal.
type ApplicationDeletedEvent struct {
	BaseEvent
	ApplicationID int64  `json:"application_id"`
	StudentID     int64  `json:"student_id"`
	OpportunityID int64  `json:"opportunity_id"`
	Cause         string `json:"cause"`
}

// Payload implements Event interface.
func (e ApplicationDeletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"application_id": e.ApplicationID,
		"student_id":     e.StudentID,
		"opportunity_id": e.OpportunityID,
		"cause":          e.Cause,
	}
}

// NewApplicationDeletedEvent creates a new ApplicationDeletedEvent.
func NewApplicationDeletedEvent(applicationID, studentID, opportunityID int64, cause string) ApplicationDeletedEvent {
	return ApplicationDeletedEvent{
		BaseEvent:     NewBaseEvent(EventApplicationDeleted, applicationID),
		ApplicationID: applicationID,
		StudentID:     studentID,
		OpportunityID: opportunityID,
		Cause:         cause,
	}
}

// ApplicationRejectedEvent is emitted when a create attempt fails eligibility.
type ApplicationRejectedEvent struct {
	BaseEvent
	StudentID     int64  `json:"student_id"`
	OpportunityID int64  `json:"opportunity_id"`
	Reason        string `json:"reason"`
}

// Payload implements Event interface.
func (e ApplicationRejectedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id":     e.StudentID,
		"opportunity_id": e.OpportunityID,
		"reason":         e.Reason,
	}
}

// NewApplicationRejectedEvent creates a new ApplicationRejectedEvent.
func NewApplicationRejectedEvent(studentID, opportunityID int64, reason string) ApplicationRejectedEvent {
	return ApplicationRejectedEvent{
		BaseEvent:     NewBaseEvent(EventApplicationRejected, opportunityID),
		StudentID:     studentID,
		OpportunityID: opportunityID,
		Reason:        reason,
	}
}

// ApplicationStatusChangedEvent is emitted when an application's status moves.
type ApplicationStatusChangedEvent struct {
	BaseEvent
	ApplicationID int64  `json:"application_id"`
	OldStatus     string `json:"old_status"`
	NewStatus     string `json:"new_status"`
}

// Payload implements Event interface.
func (e ApplicationStatusChangedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"application_id": e.ApplicationID,
		"old_status":     e.OldStatus,
		"new_status":     e.NewStatus,
	}
}

// NewApplicationStatusChangedEvent creates a new ApplicationStatusChangedEvent.
func NewApplicationStatusChangedEvent(applicationID int64, oldStatus, newStatus string) ApplicationStatusChangedEvent {
	return ApplicationStatusChangedEvent{
		BaseEvent:     NewBaseEvent(EventApplicationStatusChanged, applicationID),
		ApplicationID: applicationID,
		OldStatus:     oldStatus,
		NewStatus:     newStatus,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Interview Events
// ═══════════════════════════════════════════════════════════════════════════

// InterviewScheduledEvent is emitted after an interview is committed.
type InterviewScheduledEvent struct {
	BaseEvent
	InterviewID   int64     `json:"interview_id"`
	ApplicationID int64     `json:"application_id"`
	ScheduledAt   time.Time `json:"scheduled_at"`
	Mode          string    `json:"mode"`
}

// Payload implements Event interface.
func (e InterviewScheduledEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"interview_id":   e.InterviewID,
		"application_id": e.ApplicationID,
		"scheduled_at":   e.ScheduledAt.Format(time.RFC3339),
		"mode":           e.Mode,
	}
}

// NewInterviewScheduledEvent creates a new InterviewScheduledEvent.
func NewInterviewScheduledEvent(interviewID, applicationID int64, scheduledAt time.Time, mode string) InterviewScheduledEvent {
	return InterviewScheduledEvent{
		BaseEvent:     NewBaseEvent(EventInterviewScheduled, interviewID),
		InterviewID:   interviewID,
		ApplicationID: applicationID,
		ScheduledAt:   scheduledAt,
		Mode:          mode,
	}
}

// InterviewResultUpdatedEvent is emitted when an interview result is recorded.
type InterviewResultUpdatedEvent struct {
	BaseEvent
	InterviewID int64  `json:"interview_id"`
	Result      string `json:"result"`
}

// Payload implements Event interface.
func (e InterviewResultUpdatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"interview_id": e.InterviewID,
		"result":       e.Result,
	}
}

// NewInterviewResultUpdatedEvent creates a new InterviewResultUpdatedEvent.
func NewInterviewResultUpdatedEvent(interviewID int64, result string) InterviewResultUpdatedEvent {
	return InterviewResultUpdatedEvent{
		BaseEvent:   NewBaseEvent(EventInterviewResultUpdated, interviewID),
		InterviewID: interviewID,
		Result:      result,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Catalog Events
// ═══════════════════════════════════════════════════════════════════════════

// EntityChangedEvent covers student and opportunity lifecycle changes that
// carry no payload beyond the aggregate itself.
type EntityChangedEvent struct {
	BaseEvent
	ID int64 `json:"id"`
}

// Payload implements Event interface.
func (e EntityChangedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"id": e.ID,
	}
}

// NewEntityChangedEvent creates an EntityChangedEvent of the given type.
func NewEntityChangedEvent(eventType EventType, id int64) EntityChangedEvent {
	return EntityChangedEvent{BaseEvent: NewBaseEvent(eventType, id), ID: id}
}

// ═══════════════════════════════════════════════════════════════════════════
// Bus contracts
// ═══════════════════════════════════════════════════════════════════════════

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for a specific event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}

// PublishAll publishes events in order, returning the first error.
// A nil publisher is a no-op.
func PublishAll(p EventPublisher, events ...Event) error {
	if p == nil {
		return nil
	}
	for _, e := range events {
		if err := p.Publish(e); err != nil {
			return err
		}
	}
	return nil
}
