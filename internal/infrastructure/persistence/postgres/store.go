package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/placement-hub/placement-portal/internal/domain/application"
	"github.com/placement-hub/placement-portal/internal/domain/interview"
	"github.com/placement-hub/placement-portal/internal/domain/opportunity"
	"github.com/placement-hub/placement-portal/internal/domain/store"
	"github.com/placement-hub/placement-portal/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// UNIT OF WORK
// ══════════════════════════════════════════════════════════════════════════════

// Store is a store.UnitOfWork backed by PostgreSQL transactions.
type Store struct {
	conn *Connection
	now  func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithClock sets the clock used for audit timestamps.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore creates a Store over the connection pool.
func NewStore(conn *Connection, opts ...StoreOption) *Store {
	s := &Store{conn: conn, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// markHooked tells the applications trigger that the repositories maintain
// the counter and audit trail in this transaction.
const markHooked = `SELECT set_config('portal.hooks', 'on', true)`

// WithinTx implements store.UnitOfWork.
func (s *Store) WithinTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return s.conn.WithTx(ctx, writeTx, func(ptx pgx.Tx) error {
		if _, err := ptx.Exec(ctx, markHooked); err != nil {
			return fmt.Errorf("postgres: mark transaction hooked: %w", err)
		}
		return fn(s.newTx(ptx))
	})
}

// WithinReadTx implements store.UnitOfWork.
func (s *Store) WithinReadTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return s.conn.WithTx(ctx, readTx, func(ptx pgx.Tx) error {
		return fn(s.newTx(ptx))
	})
}

func (s *Store) newTx(q Querier) *tx {
	t := &tx{q: q, now: s.now}
	t.maintainer = application.NewMaintainer(&opportunityRepo{t}, &auditLog{t}, s.now)
	return t
}

var _ store.UnitOfWork = (*Store)(nil)

// ══════════════════════════════════════════════════════════════════════════════
// TX
// ══════════════════════════════════════════════════════════════════════════════

type tx struct {
	q          Querier
	now        func() time.Time
	maintainer *application.Maintainer
}

func (t *tx) Students() student.Repository          { return &studentRepo{t} }
func (t *tx) Opportunities() opportunity.Repository { return &opportunityRepo{t} }
func (t *tx) Applications() application.Repository  { return &applicationRepo{t} }
func (t *tx) Interviews() interview.Repository      { return &interviewRepo{t} }
func (t *tx) Audit() application.AuditLog           { return &auditLog{t} }
func (t *tx) Maintainer() *application.Maintainer   { return t.maintainer }

var _ store.Tx = (*tx)(nil)
