package command

import (
	"context"
	"fmt"

	"github.com/placement-hub/placement-portal/internal/domain/application"
	"github.com/placement-hub/placement-portal/internal/domain/shared"
	"github.com/placement-hub/placement-portal/internal/domain/store"
	"github.com/placement-hub/placement-portal/pkg/logger"
	"github.com/placement-hub/placement-portal/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE APPLICATION COMMAND
// Applies a student to an opportunity: eligibility check, insert, counter and
// audit maintenance, all in one unit of work.
// ══════════════════════════════════════════════════════════════════════════════

// CreateApplicationCommand contains the data to create an application.
type CreateApplicationCommand struct {
	StudentID     int64
	OpportunityID int64

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c CreateApplicationCommand) Validate() error {
	if err := shared.ValidateID("student_id", c.StudentID); err != nil {
		return err
	}
	return shared.ValidateID("opportunity_id", c.OpportunityID)
}

// CreateApplicationResult contains the created application.
type CreateApplicationResult struct {
	ApplicationID int64                    `json:"application_id"`
	Application   *application.Application `json:"application"`
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// CreateApplicationHandler handles the CreateApplicationCommand.
type CreateApplicationHandler struct {
	base
	uow store.UnitOfWork
}

// NewCreateApplicationHandler creates a new CreateApplicationHandler.
func NewCreateApplicationHandler(
	uow store.UnitOfWork,
	clock timeutil.Clock,
	publisher shared.EventPublisher,
	log *logger.Logger,
) *CreateApplicationHandler {
	return &CreateApplicationHandler{
		base: newBase(clock, publisher, log, "create_application"),
		uow:  uow,
	}
}

// Handle executes the create application command. Eligibility rejections are
// returned unchanged so callers can match them with errors.Is.
func (h *CreateApplicationHandler) Handle(ctx context.Context, cmd CreateApplicationCommand) (*CreateApplicationResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("create_application: validation failed: %w", err)
	}

	now := h.clock.Now()
	today := h.clock.Today()

	var created *application.Application
	err := h.uow.WithinTx(ctx, func(tx store.Tx) error {
		snapshot, err := loadEligibility(ctx, tx, cmd.StudentID, cmd.OpportunityID)
		if err != nil {
			return err
		}
		snapshot.Today = today

		if err := application.Validate(snapshot); err != nil {
			return err
		}

		a := application.New(cmd.StudentID, cmd.OpportunityID, now)
		// A concurrent insert for the same pair loses here with ErrDuplicateApplication.
		if err := tx.Applications().Create(ctx, a); err != nil {
			return err
		}
		created = a
		return nil
	})

	log := h.log.With(
		logger.StudentID(cmd.StudentID),
		logger.OpportunityID(cmd.OpportunityID),
		logger.String("correlation_id", cmd.CorrelationID),
	)

	if err != nil {
		if reason := application.ReasonOf(err); reason != "" {
			log.Info("application rejected", logger.Reason(string(reason)))
			h.publish(shared.NewApplicationRejectedEvent(cmd.StudentID, cmd.OpportunityID, string(reason)))
			return nil, err
		}
		log.Error("failed to create application", logger.Err(err))
		return nil, fmt.Errorf("create_application: %w", err)
	}

	log.Info("application created", logger.ApplicationID(created.ID))
	h.publish(shared.NewApplicationCreatedEvent(created.ID, created.StudentID, created.OpportunityID))

	return &CreateApplicationResult{
		ApplicationID: created.ID,
		Application:   created,
	}, nil
}

// loadEligibility reads the snapshot the validator decides on. Missing
// records are reported as nil, not as errors.
func loadEligibility(ctx context.Context, tx store.Tx, studentID, opportunityID int64) (application.Eligibility, error) {
	var e application.Eligibility

	st, err := tx.Students().GetByID(ctx, studentID)
	if err != nil && !shared.IsNotFound(err) {
		return e, fmt.Errorf("load student: %w", err)
	}
	if err == nil {
		e.Student = st
	}

	opp, err := tx.Opportunities().GetByID(ctx, opportunityID)
	if err != nil && !shared.IsNotFound(err) {
		return e, fmt.Errorf("load opportunity: %w", err)
	}
	if err == nil {
		e.Opportunity = opp
	}

	if e.Student == nil || e.Opportunity == nil {
		return e, nil
	}

	existing, err := tx.Applications().FindByStudentAndOpportunity(ctx, studentID, opportunityID)
	if err != nil {
		return e, fmt.Errorf("load existing application: %w", err)
	}
	e.Existing = existing
	return e, nil
}
