package student

import (
	"context"
)

// Repository defines storage operations for students. Implementations live in
// infrastructure/persistence and are always bound to a unit of work.
type Repository interface {
	// Create assigns an ID and stores the student.
	// Returns ErrStudentAlreadyExists on a roll number or email clash.
	Create(ctx context.Context, s *Student) error

	// GetByID returns the student or ErrStudentNotFound.
	GetByID(ctx context.Context, id int64) (*Student, error)

	// Delete removes the student. Every application the student owns is
	// removed first through the application repository so that its
	// maintenance hooks fire. Returns ErrStudentNotFound.
	Delete(ctx context.Context, id int64) error
}
