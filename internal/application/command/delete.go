package command

import (
	"context"
	"fmt"

	"github.com/placement-hub/placement-portal/internal/domain/shared"
	"github.com/placement-hub/placement-portal/internal/domain/store"
	"github.com/placement-hub/placement-portal/pkg/logger"
	"github.com/placement-hub/placement-portal/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// DELETE COMMANDS
// Removal of an application, an opportunity or a student. The store routes
// every application removal, cascaded ones included, through the
// maintenance hooks; the handlers only publish what the hooks journaled.
// ══════════════════════════════════════════════════════════════════════════════

// DeleteTarget names what a DeleteCommand removes.
type DeleteTarget string

const (
	DeleteApplication DeleteTarget = "application"
	DeleteOpportunity DeleteTarget = "opportunity"
	DeleteStudent     DeleteTarget = "student"
)

// DeleteCommand removes one entity by ID.
type DeleteCommand struct {
	Target DeleteTarget
	ID     int64
}

// Validate validates the command.
func (c DeleteCommand) Validate() error {
	switch c.Target {
	case DeleteApplication, DeleteOpportunity, DeleteStudent:
	default:
		return fmt.Errorf("%w: unknown delete target %q", shared.ErrInvalidInput, c.Target)
	}
	return shared.ValidateID(string(c.Target)+"_id", c.ID)
}

// DeleteResult reports what the removal touched.
type DeleteResult struct {
	Target DeleteTarget `json:"target"`
	ID     int64        `json:"id"`

	// RemovedApplications lists every application removed, cascades included.
	RemovedApplications []int64 `json:"removed_applications"`
}

// DeleteHandler handles DeleteCommand for every target.
type DeleteHandler struct {
	base
	uow store.UnitOfWork
}

// NewDeleteHandler creates a new DeleteHandler.
func NewDeleteHandler(
	uow store.UnitOfWork,
	clock timeutil.Clock,
	publisher shared.EventPublisher,
	log *logger.Logger,
) *DeleteHandler {
	return &DeleteHandler{
		base: newBase(clock, publisher, log, "delete"),
		uow:  uow,
	}
}

// Handle executes the delete command.
func (h *DeleteHandler) Handle(ctx context.Context, cmd DeleteCommand) (*DeleteResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("delete: validation failed: %w", err)
	}

	var (
		events []shared.Event
		result = &DeleteResult{Target: cmd.Target, ID: cmd.ID}
	)
	err := h.uow.WithinTx(ctx, func(tx store.Tx) error {
		var err error
		cause := CauseDirect
		switch cmd.Target {
		case DeleteApplication:
			err = tx.Applications().Delete(ctx, cmd.ID)
		case DeleteOpportunity:
			cause = CauseOpportunityDelete
			err = tx.Opportunities().Delete(ctx, cmd.ID)
		case DeleteStudent:
			cause = CauseStudentDelete
			err = tx.Students().Delete(ctx, cmd.ID)
		}
		if err != nil {
			return err
		}

		changes := tx.Maintainer().Changes()
		for _, c := range changes {
			result.RemovedApplications = append(result.RemovedApplications, c.Application.ID)
		}
		events = deletionEvents(changes, cause)
		switch cmd.Target {
		case DeleteOpportunity:
			events = append(events, shared.NewEntityChangedEvent(shared.EventOpportunityDeleted, cmd.ID))
		case DeleteStudent:
			events = append(events, shared.NewEntityChangedEvent(shared.EventStudentDeleted, cmd.ID))
		}
		return nil
	})

	log := h.log.With(logger.String("target", string(cmd.Target)), logger.Int64("id", cmd.ID))
	if err != nil {
		if shared.IsNotFound(err) {
			log.Info("nothing to delete", logger.Err(err))
			return nil, err
		}
		log.Error("failed to delete", logger.Err(err))
		return nil, fmt.Errorf("delete %s: %w", cmd.Target, err)
	}

	log.Info("deleted", logger.Int("applications_removed", len(result.RemovedApplications)))
	h.publish(events...)
	return result, nil
}
