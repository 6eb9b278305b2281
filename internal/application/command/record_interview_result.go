package command

import (
	"context"
	"fmt"

	"github.com/placement-hub/placement-portal/internal/domain/interview"
	"github.com/placement-hub/placement-portal/internal/domain/shared"
	"github.com/placement-hub/placement-portal/internal/domain/store"
	"github.com/placement-hub/placement-portal/pkg/logger"
	"github.com/placement-hub/placement-portal/pkg/timeutil"
)

// RecordInterviewResultCommand sets the outcome of an interview. The owning
// application's status is left alone.
type RecordInterviewResultCommand struct {
	InterviewID int64
	Result      interview.Result
}

// Validate validates the command.
func (c RecordInterviewResultCommand) Validate() error {
	if err := shared.ValidateID("interview_id", c.InterviewID); err != nil {
		return err
	}
	if !c.Result.IsValid() {
		return shared.ErrInvalidResult
	}
	return nil
}

// RecordInterviewResultHandler handles the RecordInterviewResultCommand.
type RecordInterviewResultHandler struct {
	base
	uow store.UnitOfWork
}

// NewRecordInterviewResultHandler creates a new RecordInterviewResultHandler.
func NewRecordInterviewResultHandler(
	uow store.UnitOfWork,
	clock timeutil.Clock,
	publisher shared.EventPublisher,
	log *logger.Logger,
) *RecordInterviewResultHandler {
	return &RecordInterviewResultHandler{
		base: newBase(clock, publisher, log, "record_interview_result"),
		uow:  uow,
	}
}

// Handle executes the record result command.
func (h *RecordInterviewResultHandler) Handle(ctx context.Context, cmd RecordInterviewResultCommand) (*interview.Interview, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("record_interview_result: validation failed: %w", err)
	}

	var updated *interview.Interview
	err := h.uow.WithinTx(ctx, func(tx store.Tx) error {
		if err := tx.Interviews().UpdateResult(ctx, cmd.InterviewID, cmd.Result); err != nil {
			return err
		}
		i, err := tx.Interviews().GetByID(ctx, cmd.InterviewID)
		if err != nil {
			return err
		}
		updated = i
		return nil
	})

	log := h.log.With(logger.InterviewID(cmd.InterviewID))
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, err
		}
		log.Error("failed to record interview result", logger.Err(err))
		return nil, fmt.Errorf("record_interview_result: %w", err)
	}

	log.Info("interview result recorded", logger.String("result", string(cmd.Result)))
	h.publish(shared.NewInterviewResultUpdatedEvent(cmd.InterviewID, string(cmd.Result)))
	return updated, nil
}
