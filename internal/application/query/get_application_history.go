package query

import (
	"context"
	"fmt"
	"time"

	"github.com/placement-hub/placement-portal/internal/domain/application"
	"github.com/placement-hub/placement-portal/internal/domain/interview"
	"github.com/placement-hub/placement-portal/internal/domain/shared"
	"github.com/placement-hub/placement-portal/internal/domain/store"
)

// ══════════════════════════════════════════════════════════════════════════════
// AUDIT TRAIL QUERY
// ══════════════════════════════════════════════════════════════════════════════

// GetAuditTrailQuery asks for the audit trail of one application. The trail
// is available after the application itself has been removed.
type GetAuditTrailQuery struct {
	ApplicationID int64
}

// Validate validates the query.
func (q GetAuditTrailQuery) Validate() error {
	return shared.ValidateID("application_id", q.ApplicationID)
}

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT APPLICATIONS QUERY
// ══════════════════════════════════════════════════════════════════════════════

// ListStudentApplicationsQuery asks for a student's applications.
type ListStudentApplicationsQuery struct {
	StudentID int64

	// Status filters by status when set.
	Status application.Status
}

// Validate validates the query.
func (q ListStudentApplicationsQuery) Validate() error {
	if err := shared.ValidateID("student_id", q.StudentID); err != nil {
		return err
	}
	if q.Status != "" && !q.Status.IsValid() {
		return shared.ErrInvalidStatus
	}
	return nil
}

// StudentApplicationDTO is one row of a student's application list.
type StudentApplicationDTO struct {
	ApplicationID int64                  `json:"application_id"`
	OpportunityID int64                  `json:"opportunity_id"`
	Title         string                 `json:"title"`
	Company       string                 `json:"company"`
	AppliedOn     time.Time              `json:"applied_on"`
	Status        application.Status     `json:"status"`
	Remarks       string                 `json:"remarks,omitempty"`
	CanWithdraw   bool                   `json:"can_withdraw"`
	Interviews    []*interview.Interview `json:"interviews"`
}

// HistoryHandler serves audit trails and per-student application lists.
type HistoryHandler struct {
	uow store.UnitOfWork
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(uow store.UnitOfWork) *HistoryHandler {
	return &HistoryHandler{uow: uow}
}

// AuditTrail returns the application's audit entries, oldest first.
func (h *HistoryHandler) AuditTrail(ctx context.Context, q GetAuditTrailQuery) ([]*application.AuditEntry, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("get_audit_trail: validation failed: %w", err)
	}

	var entries []*application.AuditEntry
	err := h.uow.WithinReadTx(ctx, func(tx store.Tx) error {
		var err error
		entries, err = tx.Audit().ListByApplication(ctx, q.ApplicationID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get_audit_trail: %w", err)
	}
	if entries == nil {
		entries = []*application.AuditEntry{}
	}
	return entries, nil
}

// StudentApplications returns the student's applications, newest first,
// each with its opportunity and interviews.
func (h *HistoryHandler) StudentApplications(ctx context.Context, q ListStudentApplicationsQuery) ([]StudentApplicationDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("list_student_applications: validation failed: %w", err)
	}

	out := []StudentApplicationDTO{}
	err := h.uow.WithinReadTx(ctx, func(tx store.Tx) error {
		if _, err := tx.Students().GetByID(ctx, q.StudentID); err != nil {
			return err
		}

		apps, err := tx.Applications().ListByStudent(ctx, q.StudentID)
		if err != nil {
			return err
		}

		for _, a := range apps {
			if q.Status != "" && a.Status != q.Status {
				continue
			}
			o, err := tx.Opportunities().GetByID(ctx, a.OpportunityID)
			if err != nil {
				return err
			}
			interviews, err := tx.Interviews().ListByApplication(ctx, a.ID)
			if err != nil {
				return err
			}
			if interviews == nil {
				interviews = []*interview.Interview{}
			}
			out = append(out, StudentApplicationDTO{
				ApplicationID: a.ID,
				OpportunityID: a.OpportunityID,
				Title:         o.Title,
				Company:       o.Company,
				AppliedOn:     a.AppliedOn,
				Status:        a.Status,
				Remarks:       a.Remarks,
				CanWithdraw:   a.Status.CanWithdraw(),
				Interviews:    interviews,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
