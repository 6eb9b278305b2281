// Package store defines the unit-of-work boundary of the Entity Store. Every
// write operation runs inside exactly one Tx; either all of its steps are
// applied or none are.
package store

import (
	"context"

	"github.com/placement-hub/placement-portal/internal/domain/application"
	"github.com/placement-hub/placement-portal/internal/domain/interview"
	"github.com/placement-hub/placement-portal/internal/domain/opportunity"
	"github.com/placement-hub/placement-portal/internal/domain/student"
)

// Tx exposes the repositories bound to one unit of work.
type Tx interface {
	Students() student.Repository
	Opportunities() opportunity.Repository
	Applications() application.Repository
	Interviews() interview.Repository
	Audit() application.AuditLog

	// Maintainer returns the hooks bound to this unit of work, which
	// also journal every application created or removed in it.
	Maintainer() *application.Maintainer
}

// UnitOfWork runs functions atomically against the store.
type UnitOfWork interface {
	// WithinTx commits if fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error

	// WithinReadTx runs fn against a read-only snapshot.
	WithinReadTx(ctx context.Context, fn func(tx Tx) error) error
}
