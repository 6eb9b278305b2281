package application

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// CounterStore maintains the derived applications_count of an opportunity.
type CounterStore interface {
	IncrementApplications(ctx context.Context, opportunityID int64) error
	DecrementApplications(ctx context.Context, opportunityID int64) error
}

// AuditLog is the append-only audit trail.
type AuditLog interface {
	Append(ctx context.Context, e *AuditEntry) error
	ListByApplication(ctx context.Context, applicationID int64) ([]*AuditEntry, error)
}

// Change records one application removal or creation seen by a Maintainer.
type Change struct {
	Action      AuditAction
	Application Application
}

// Maintainer keeps the applicant counter and the audit trail consistent with
// the set of live applications, and is the only writer of the audit trail.
// It is bound to a single unit of work and is invoked by the application
// repository itself on every insert and delete, including deletes cascaded
// from opportunity or student removal. Status updates report to it through
// OnStatusChanged and OnWithdrawn. A hook failure fails the whole unit of
// work.
type Maintainer struct {
	counters CounterStore
	audit    AuditLog
	now      func() time.Time

	mu      sync.Mutex
	changes []Change
}

// NewMaintainer binds the hooks to the unit of work's counter and audit stores.
func NewMaintainer(counters CounterStore, audit AuditLog, now func() time.Time) *Maintainer {
	if now == nil {
		now = time.Now
	}
	return &Maintainer{
		counters: counters,
		audit:    audit,
		now:      now,
	}
}

// OnCreated runs after an application row is inserted.
func (m *Maintainer) OnCreated(ctx context.Context, a *Application) error {
	if err := m.counters.IncrementApplications(ctx, a.OpportunityID); err != nil {
		return fmt.Errorf("maintainer: increment applications_count: %w", err)
	}
	entry := newAuditEntry(a, AuditCreate, fmt.Sprintf("Created by student_id=%d", a.StudentID), m.now())
	if err := m.audit.Append(ctx, entry); err != nil {
		return fmt.Errorf("maintainer: append CREATE audit: %w", err)
	}
	m.record(AuditCreate, a)
	return nil
}

// OnDeleted runs after an application row is removed.
func (m *Maintainer) OnDeleted(ctx context.Context, a *Application) error {
	if err := m.counters.DecrementApplications(ctx, a.OpportunityID); err != nil {
		return fmt.Errorf("maintainer: decrement applications_count: %w", err)
	}
	entry := newAuditEntry(a, AuditDelete, fmt.Sprintf("Deleted for student_id=%d", a.StudentID), m.now())
	if err := m.audit.Append(ctx, entry); err != nil {
		return fmt.Errorf("maintainer: append DELETE audit: %w", err)
	}
	m.record(AuditDelete, a)
	return nil
}

// OnStatusChanged runs after an application's status is updated in place.
// The counter is untouched; the move is recorded as STATUS_CHANGE.
func (m *Maintainer) OnStatusChanged(ctx context.Context, a *Application, from Status) error {
	if err := m.audit.Append(ctx, StatusChangeEntry(a, from, a.Status, m.now())); err != nil {
		return fmt.Errorf("maintainer: append STATUS_CHANGE audit: %w", err)
	}
	return nil
}

// OnWithdrawn runs after the owning student withdraws an application.
func (m *Maintainer) OnWithdrawn(ctx context.Context, a *Application) error {
	if err := m.audit.Append(ctx, WithdrawEntry(a, m.now())); err != nil {
		return fmt.Errorf("maintainer: append WITHDRAW audit: %w", err)
	}
	return nil
}

// Changes returns the creations and removals seen so far, in order.
func (m *Maintainer) Changes() []Change {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Change, len(m.changes))
	copy(out, m.changes)
	return out
}

func (m *Maintainer) record(action AuditAction, a *Application) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.changes = append(m.changes, Change{Action: action, Application: *a})
}
