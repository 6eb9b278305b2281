// Package application holds the Application aggregate: the status state
// machine, the eligibility validator, the audit trail and the maintenance
// hooks that keep derived counters consistent.
package application

import (
	"fmt"
	"time"

	"github.com/placement-hub/placement-portal/internal/domain/shared"
)

// DefaultRemarks is stored on every application created through the portal.
const DefaultRemarks = "Applied via portal"

// ══════════════════════════════════════════════════════════════════════════════
// STATUS
// ══════════════════════════════════════════════════════════════════════════════

// Status is the lifecycle state of an application.
type Status string

const (
	StatusApplied            Status = "APPLIED"
	StatusShortlisted        Status = "SHORTLISTED"
	StatusInterviewScheduled Status = "INTERVIEW_SCHEDULED"
	StatusOffered            Status = "OFFERED"
	StatusRejected           Status = "REJECTED"
	StatusWithdrawn          Status = "WITHDRAWN"
)

// transitions lists the permitted moves out of each status.
var transitions = map[Status][]Status{
	StatusApplied:            {StatusShortlisted, StatusWithdrawn},
	StatusShortlisted:        {StatusInterviewScheduled, StatusWithdrawn},
	StatusInterviewScheduled: {StatusOffered, StatusRejected},
	StatusOffered:            nil,
	StatusRejected:           nil,
	StatusWithdrawn:          nil,
}

// AllStatuses returns every status in lifecycle order.
func AllStatuses() []Status {
	return []Status{
		StatusApplied,
		StatusShortlisted,
		StatusInterviewScheduled,
		StatusOffered,
		StatusRejected,
		StatusWithdrawn,
	}
}

// IsValid checks that the status is known.
func (s Status) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

// IsTerminal returns true for OFFERED, REJECTED and WITHDRAWN.
func (s Status) IsTerminal() bool {
	next, ok := transitions[s]
	return ok && len(next) == 0
}

// CanTransitionTo reports whether the state machine allows s -> next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// CanWithdraw reports whether a student may still withdraw.
func (s Status) CanWithdraw() bool {
	return s.CanTransitionTo(StatusWithdrawn)
}

// ParseStatus converts raw input into a Status.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.IsValid() {
		return "", shared.ErrInvalidStatus
	}
	return s, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// Application links one student to one opportunity.
type Application struct {
	ID            int64     `json:"id"`
	StudentID     int64     `json:"student_id"`
	OpportunityID int64     `json:"opportunity_id"`
	AppliedOn     time.Time `json:"applied_on"`
	Status        Status    `json:"status"`
	Remarks       string    `json:"remarks,omitempty"`
}

// New builds an unsaved application in the initial status.
func New(studentID, opportunityID int64, now time.Time) *Application {
	return &Application{
		StudentID:     studentID,
		OpportunityID: opportunityID,
		AppliedOn:     now,
		Status:        StatusApplied,
		Remarks:       DefaultRemarks,
	}
}

// TransitionTo moves the application along the state machine.
func (a *Application) TransitionTo(next Status) error {
	if !next.IsValid() {
		return shared.ErrInvalidStatus
	}
	if !a.Status.CanTransitionTo(next) {
		return shared.WrapError("application", "ChangeStatus", shared.ErrStateTransition,
			"invalid application status transition",
			fmt.Errorf("%s -> %s", a.Status, next))
	}
	a.Status = next
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// AUDIT
// ══════════════════════════════════════════════════════════════════════════════

// AuditAction names the kind of audited change.
type AuditAction string

const (
	AuditCreate       AuditAction = "CREATE"
	AuditDelete       AuditAction = "DELETE"
	AuditStatusChange AuditAction = "STATUS_CHANGE"
	AuditWithdraw     AuditAction = "WITHDRAW"
)

// AuditEntry is an append-only record of a change to an application. It
// outlives the application it refers to.
type AuditEntry struct {
	ID            int64       `json:"id"`
	ApplicationID int64       `json:"application_id"`
	StudentID     int64       `json:"student_id"`
	OpportunityID int64       `json:"opportunity_id"`
	Action        AuditAction `json:"action"`
	Details       string      `json:"details"`
	CreatedAt     time.Time   `json:"created_at"`
}

// newAuditEntry builds an entry for the given application.
func newAuditEntry(a *Application, action AuditAction, details string, now time.Time) *AuditEntry {
	return &AuditEntry{
		ApplicationID: a.ID,
		StudentID:     a.StudentID,
		OpportunityID: a.OpportunityID,
		Action:        action,
		Details:       details,
		CreatedAt:     now,
	}
}

// StatusChangeEntry builds the STATUS_CHANGE entry "OLD -> NEW".
func StatusChangeEntry(a *Application, from, to Status, now time.Time) *AuditEntry {
	return newAuditEntry(a, AuditStatusChange, fmt.Sprintf("%s -> %s", from, to), now)
}

// WithdrawEntry builds the WITHDRAW entry for a student-initiated withdrawal.
func WithdrawEntry(a *Application, now time.Time) *AuditEntry {
	return newAuditEntry(a, AuditWithdraw, "User action", now)
}
