package application

import (
	"context"
)

// Repository defines storage operations for applications. Create and Delete
// invoke the unit of work's Maintainer before returning, so the counter and
// audit trail cannot be skipped by callers.
type Repository interface {
	// Create assigns an ID, stores the application and fires OnCreated.
	// Returns ErrDuplicateApplication if the (student, opportunity) slot is taken.
	Create(ctx context.Context, a *Application) error

	// GetByID returns the application or ErrApplicationNotFound.
	GetByID(ctx context.Context, id int64) (*Application, error)

	// GetForUpdate is GetByID with the row locked for the rest of the unit of work.
	GetForUpdate(ctx context.Context, id int64) (*Application, error)

	// FindByStudentAndOpportunity returns the live application for the pair,
	// or nil when there is none.
	FindByStudentAndOpportunity(ctx context.Context, studentID, opportunityID int64) (*Application, error)

	// ListByStudent returns the student's applications, newest first.
	ListByStudent(ctx context.Context, studentID int64) ([]*Application, error)

	// UpdateStatus overwrites the status. Returns ErrApplicationNotFound.
	UpdateStatus(ctx context.Context, id int64, status Status) error

	// Delete removes the application, cascades to its interviews and fires
	// OnDeleted. Returns ErrApplicationNotFound.
	Delete(ctx context.Context, id int64) error
}
