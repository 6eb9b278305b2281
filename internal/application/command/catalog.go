package command

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/placement-hub/placement-portal/internal/domain/opportunity"
	"github.com/placement-hub/placement-portal/internal/domain/shared"
	"github.com/placement-hub/placement-portal/internal/domain/store"
	"github.com/placement-hub/placement-portal/internal/domain/student"
	"github.com/placement-hub/placement-portal/pkg/logger"
	"github.com/placement-hub/placement-portal/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// CATALOG COMMANDS
// Registration of offices and students, posting of opportunities.
// ══════════════════════════════════════════════════════════════════════════════

// RegisterOfficeCommand creates a placement office.
type RegisterOfficeCommand struct {
	Name  string
	Email string
}

// Validate validates the command.
func (c RegisterOfficeCommand) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("name: %w", shared.ErrEmptyValue)
	}
	return nil
}

// RegisterStudentCommand creates a student.
type RegisterStudentCommand struct {
	RollNo     string
	FirstName  string
	LastName   string
	Email      string
	Phone      string
	Department string
	Batch      student.Batch
	CGPA       shared.CGPA
}

// PostOpportunityCommand creates an opportunity. PostedOn is always today.
type PostOpportunityCommand struct {
	OfficeID    int64
	Title       string
	Company     string
	Description string
	Vacancy     int
	MinCGPA     shared.CGPA
	Deadline    *time.Time
}

// CatalogHandler handles the catalog commands.
type CatalogHandler struct {
	base
	uow store.UnitOfWork
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(
	uow store.UnitOfWork,
	clock timeutil.Clock,
	publisher shared.EventPublisher,
	log *logger.Logger,
) *CatalogHandler {
	return &CatalogHandler{
		base: newBase(clock, publisher, log, "catalog"),
		uow:  uow,
	}
}

// RegisterOffice stores a new placement office.
func (h *CatalogHandler) RegisterOffice(ctx context.Context, cmd RegisterOfficeCommand) (*opportunity.Office, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("register_office: validation failed: %w", err)
	}

	office := &opportunity.Office{
		Name:  strings.TrimSpace(cmd.Name),
		Email: strings.TrimSpace(cmd.Email),
	}
	err := h.uow.WithinTx(ctx, func(tx store.Tx) error {
		return tx.Opportunities().CreateOffice(ctx, office)
	})
	if err != nil {
		h.log.Error("failed to register office", logger.Err(err))
		return nil, fmt.Errorf("register_office: %w", err)
	}

	h.log.Info("office registered", logger.Int64("office_id", office.ID))
	return office, nil
}

// RegisterStudent stores a new student.
func (h *CatalogHandler) RegisterStudent(ctx context.Context, cmd RegisterStudentCommand) (*student.Student, error) {
	s, err := student.NewStudent(student.NewStudentParams{
		RollNo:     cmd.RollNo,
		FirstName:  cmd.FirstName,
		LastName:   cmd.LastName,
		Email:      cmd.Email,
		Phone:      cmd.Phone,
		Department: cmd.Department,
		Batch:      cmd.Batch,
		CGPA:       cmd.CGPA,
		Now:        h.clock.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("register_student: validation failed: %w", err)
	}

	err = h.uow.WithinTx(ctx, func(tx store.Tx) error {
		return tx.Students().Create(ctx, s)
	})
	if err != nil {
		if shared.IsAlreadyExists(err) {
			return nil, err
		}
		h.log.Error("failed to register student", logger.Err(err))
		return nil, fmt.Errorf("register_student: %w", err)
	}

	h.log.Info("student registered", logger.StudentID(s.ID))
	h.publish(shared.NewEntityChangedEvent(shared.EventStudentRegistered, s.ID))
	return s, nil
}

// PostOpportunity stores a new opportunity with a zero applicant counter.
func (h *CatalogHandler) PostOpportunity(ctx context.Context, cmd PostOpportunityCommand) (*opportunity.Opportunity, error) {
	var deadline *time.Time
	if cmd.Deadline != nil {
		d := timeutil.CivilDate(*cmd.Deadline)
		deadline = &d
	}

	o, err := opportunity.NewOpportunity(opportunity.NewOpportunityParams{
		OfficeID:    cmd.OfficeID,
		Title:       cmd.Title,
		Company:     cmd.Company,
		Description: cmd.Description,
		Vacancy:     cmd.Vacancy,
		MinCGPA:     cmd.MinCGPA,
		Deadline:    deadline,
		Today:       h.clock.Today(),
	})
	if err != nil {
		return nil, fmt.Errorf("post_opportunity: validation failed: %w", err)
	}

	err = h.uow.WithinTx(ctx, func(tx store.Tx) error {
		return tx.Opportunities().Create(ctx, o)
	})
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, err
		}
		h.log.Error("failed to post opportunity", logger.Err(err))
		return nil, fmt.Errorf("post_opportunity: %w", err)
	}

	h.log.Info("opportunity posted", logger.OpportunityID(o.ID))
	h.publish(shared.NewEntityChangedEvent(shared.EventOpportunityPosted, o.ID))
	return o, nil
}
