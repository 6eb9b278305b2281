package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/placement-hub/placement-portal/internal/domain/application"
	"github.com/placement-hub/placement-portal/internal/domain/shared"
	"github.com/placement-hub/placement-portal/internal/domain/store"
	"github.com/placement-hub/placement-portal/pkg/logger"
	"github.com/placement-hub/placement-portal/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// CHANGE APPLICATION STATUS COMMAND
// Moves an application along the status state machine on behalf of the
// placement office.
// ══════════════════════════════════════════════════════════════════════════════

// ChangeApplicationStatusCommand contains the data to change a status.
type ChangeApplicationStatusCommand struct {
	ApplicationID int64
	Status        application.Status
}

// Validate validates the command.
func (c ChangeApplicationStatusCommand) Validate() error {
	if err := shared.ValidateID("application_id", c.ApplicationID); err != nil {
		return err
	}
	if !c.Status.IsValid() {
		return shared.ErrInvalidStatus
	}
	return nil
}

// StatusChangeResult describes a completed transition.
type StatusChangeResult struct {
	ApplicationID int64              `json:"application_id"`
	From          application.Status `json:"from"`
	To            application.Status `json:"to"`
}

// ChangeApplicationStatusHandler handles the ChangeApplicationStatusCommand.
type ChangeApplicationStatusHandler struct {
	base
	uow store.UnitOfWork
}

// NewChangeApplicationStatusHandler creates a new ChangeApplicationStatusHandler.
func NewChangeApplicationStatusHandler(
	uow store.UnitOfWork,
	clock timeutil.Clock,
	publisher shared.EventPublisher,
	log *logger.Logger,
) *ChangeApplicationStatusHandler {
	return &ChangeApplicationStatusHandler{
		base: newBase(clock, publisher, log, "change_application_status"),
		uow:  uow,
	}
}

// Handle executes the change status command. Transitions the state machine
// does not allow fail with ErrInvalidStatusTransition and write nothing.
func (h *ChangeApplicationStatusHandler) Handle(ctx context.Context, cmd ChangeApplicationStatusCommand) (*StatusChangeResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("change_application_status: validation failed: %w", err)
	}

	result, err := transition(ctx, h.uow, cmd.ApplicationID,
		func(a *application.Application) error {
			return a.TransitionTo(cmd.Status)
		},
		func(ctx context.Context, m *application.Maintainer, a *application.Application, from application.Status) error {
			return m.OnStatusChanged(ctx, a, from)
		},
	)
	return h.finish(result, err, cmd.ApplicationID, "status changed")
}

// ══════════════════════════════════════════════════════════════════════════════
// WITHDRAW APPLICATION COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// WithdrawApplicationCommand withdraws a student's own application.
type WithdrawApplicationCommand struct {
	ApplicationID int64

	// StudentID must own the application.
	StudentID int64
}

// Validate validates the command.
func (c WithdrawApplicationCommand) Validate() error {
	if err := shared.ValidateID("application_id", c.ApplicationID); err != nil {
		return err
	}
	return shared.ValidateID("student_id", c.StudentID)
}

// WithdrawApplicationHandler handles the WithdrawApplicationCommand.
type WithdrawApplicationHandler struct {
	base
	uow store.UnitOfWork
}

// NewWithdrawApplicationHandler creates a new WithdrawApplicationHandler.
func NewWithdrawApplicationHandler(
	uow store.UnitOfWork,
	clock timeutil.Clock,
	publisher shared.EventPublisher,
	log *logger.Logger,
) *WithdrawApplicationHandler {
	return &WithdrawApplicationHandler{
		base: newBase(clock, publisher, log, "withdraw_application"),
		uow:  uow,
	}
}

// Handle executes the withdraw command. Only APPLIED and SHORTLISTED
// applications can be withdrawn. An application owned by another student is
// reported as not found.
func (h *WithdrawApplicationHandler) Handle(ctx context.Context, cmd WithdrawApplicationCommand) (*StatusChangeResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("withdraw_application: validation failed: %w", err)
	}

	result, err := transition(ctx, h.uow, cmd.ApplicationID,
		func(a *application.Application) error {
			if a.StudentID != cmd.StudentID {
				return shared.ErrApplicationNotFound
			}
			return a.TransitionTo(application.StatusWithdrawn)
		},
		func(ctx context.Context, m *application.Maintainer, a *application.Application, _ application.Status) error {
			return m.OnWithdrawn(ctx, a)
		},
	)
	return h.finish(result, err, cmd.ApplicationID, "application withdrawn")
}

// ══════════════════════════════════════════════════════════════════════════════
// SHARED TRANSITION FLOW
// ══════════════════════════════════════════════════════════════════════════════

// statusHook reports a persisted status update to the unit of work's maintainer.
type statusHook func(ctx context.Context, m *application.Maintainer, a *application.Application, from application.Status) error

// transition locks the application, lets mutate decide the new status,
// persists it and hands the audit record to the maintainer.
func transition(
	ctx context.Context,
	uow store.UnitOfWork,
	applicationID int64,
	mutate func(a *application.Application) error,
	record statusHook,
) (*StatusChangeResult, error) {
	var result *StatusChangeResult
	err := uow.WithinTx(ctx, func(tx store.Tx) error {
		a, err := tx.Applications().GetForUpdate(ctx, applicationID)
		if err != nil {
			return err
		}
		from := a.Status

		if err := mutate(a); err != nil {
			return err
		}
		if err := tx.Applications().UpdateStatus(ctx, a.ID, a.Status); err != nil {
			return err
		}
		if err := record(ctx, tx.Maintainer(), a, from); err != nil {
			return err
		}
		result = &StatusChangeResult{ApplicationID: a.ID, From: from, To: a.Status}
		return nil
	})
	return result, err
}

func (b base) finish(result *StatusChangeResult, err error, applicationID int64, msg string) (*StatusChangeResult, error) {
	log := b.log.With(logger.ApplicationID(applicationID))
	if err != nil {
		if shared.IsNotFound(err) || errors.Is(err, shared.ErrStateTransition) || shared.IsValidation(err) {
			log.Info("status change refused", logger.Err(err))
			return nil, err
		}
		log.Error("failed to change status", logger.Err(err))
		return nil, fmt.Errorf("%s: %w", b.name, err)
	}

	log.Info(msg,
		logger.String("from", string(result.From)),
		logger.String("to", string(result.To)))
	b.publish(shared.NewApplicationStatusChangedEvent(result.ApplicationID, string(result.From), string(result.To)))
	return result, nil
}
