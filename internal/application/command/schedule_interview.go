package command

import (
	"context"
	"fmt"
	"time"

	"github.com/placement-hub/placement-portal/internal/domain/application"
	"github.com/placement-hub/placement-portal/internal/domain/interview"
	"github.com/placement-hub/placement-portal/internal/domain/shared"
	"github.com/placement-hub/placement-portal/internal/domain/store"
	"github.com/placement-hub/placement-portal/pkg/logger"
	"github.com/placement-hub/placement-portal/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// SCHEDULE INTERVIEW COMMAND
// Creates a PENDING interview for an application and moves the application
// to INTERVIEW_SCHEDULED in the same unit of work.
// ══════════════════════════════════════════════════════════════════════════════

// ScheduleInterviewCommand contains the data to schedule an interview.
type ScheduleInterviewCommand struct {
	ApplicationID int64
	ScheduledAt   time.Time
	Mode          interview.Mode
	Venue         string
	Panel         string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c ScheduleInterviewCommand) Validate() error {
	if err := shared.ValidateID("application_id", c.ApplicationID); err != nil {
		return err
	}
	if c.ScheduledAt.IsZero() {
		return fmt.Errorf("scheduled_at: %w", shared.ErrEmptyValue)
	}
	if !c.Mode.IsValid() {
		return shared.ErrInvalidMode
	}
	return nil
}

// ScheduleInterviewResult contains the scheduled interview.
type ScheduleInterviewResult struct {
	InterviewID int64                `json:"interview_id"`
	Interview   *interview.Interview `json:"interview"`

	// PreviousStatus is the application status before the overwrite.
	PreviousStatus application.Status `json:"previous_status"`
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// ScheduleInterviewHandler handles the ScheduleInterviewCommand.
type ScheduleInterviewHandler struct {
	base
	uow store.UnitOfWork
}

// NewScheduleInterviewHandler creates a new ScheduleInterviewHandler.
func NewScheduleInterviewHandler(
	uow store.UnitOfWork,
	clock timeutil.Clock,
	publisher shared.EventPublisher,
	log *logger.Logger,
) *ScheduleInterviewHandler {
	return &ScheduleInterviewHandler{
		base: newBase(clock, publisher, log, "schedule_interview"),
		uow:  uow,
	}
}

// Handle executes the schedule interview command.
//
// The application status is overwritten to INTERVIEW_SCHEDULED whatever it
// was before, terminal states included. Such overwrites are logged at Warn.
// No eligibility or deadline check is made.
func (h *ScheduleInterviewHandler) Handle(ctx context.Context, cmd ScheduleInterviewCommand) (*ScheduleInterviewResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("schedule_interview: validation failed: %w", err)
	}

	var (
		scheduled *interview.Interview
		prev      application.Status
	)
	err := h.uow.WithinTx(ctx, func(tx store.Tx) error {
		a, err := tx.Applications().GetForUpdate(ctx, cmd.ApplicationID)
		if err != nil {
			return err
		}
		prev = a.Status

		i, err := interview.New(a.ID, cmd.ScheduledAt, cmd.Mode, cmd.Venue, cmd.Panel)
		if err != nil {
			return err
		}
		if err := tx.Interviews().Create(ctx, i); err != nil {
			return err
		}

		if prev == application.StatusInterviewScheduled {
			scheduled = i
			return nil
		}
		if err := tx.Applications().UpdateStatus(ctx, a.ID, application.StatusInterviewScheduled); err != nil {
			return err
		}
		a.Status = application.StatusInterviewScheduled
		if err := tx.Maintainer().OnStatusChanged(ctx, a, prev); err != nil {
			return err
		}
		scheduled = i
		return nil
	})

	log := h.log.With(
		logger.ApplicationID(cmd.ApplicationID),
		logger.String("correlation_id", cmd.CorrelationID),
	)

	if err != nil {
		if shared.IsNotFound(err) || shared.IsValidation(err) {
			log.Info("interview not scheduled", logger.Err(err))
			return nil, err
		}
		log.Error("failed to schedule interview", logger.Err(err))
		return nil, fmt.Errorf("schedule_interview: %w", err)
	}

	if prev.IsTerminal() {
		log.Warn("terminal application status overwritten by interview scheduling",
			logger.String("previous_status", string(prev)))
	}
	log.Info("interview scheduled", logger.InterviewID(scheduled.ID))

	events := []shared.Event{
		shared.NewInterviewScheduledEvent(scheduled.ID, scheduled.ApplicationID, scheduled.ScheduledAt, string(scheduled.Mode)),
	}
	if prev != application.StatusInterviewScheduled {
		events = append(events, shared.NewApplicationStatusChangedEvent(
			cmd.ApplicationID, string(prev), string(application.StatusInterviewScheduled)))
	}
	h.publish(events...)

	return &ScheduleInterviewResult{
		InterviewID:    scheduled.ID,
		Interview:      scheduled,
		PreviousStatus: prev,
	}, nil
}
