// Package memory implements the Entity Store in process memory. A unit of work
// operates on a private copy of the data and swaps it in on commit, so every
// operation is atomic and serialized. It backs tests and local development
// when no database is configured.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/placement-hub/placement-portal/internal/domain/application"
	"github.com/placement-hub/placement-portal/internal/domain/interview"
	"github.com/placement-hub/placement-portal/internal/domain/opportunity"
	"github.com/placement-hub/placement-portal/internal/domain/store"
	"github.com/placement-hub/placement-portal/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// STATE
// ══════════════════════════════════════════════════════════════════════════════

type pair struct {
	studentID     int64
	opportunityID int64
}

type state struct {
	offices       map[int64]opportunity.Office
	students      map[int64]student.Student
	opportunities map[int64]opportunity.Opportunity
	applications  map[int64]application.Application
	interviews    map[int64]interview.Interview
	audit         []application.AuditEntry

	// appSlots enforces one live application per (student, opportunity).
	appSlots map[pair]int64

	seq map[string]int64
}

func newState() *state {
	return &state{
		offices:       make(map[int64]opportunity.Office),
		students:      make(map[int64]student.Student),
		opportunities: make(map[int64]opportunity.Opportunity),
		applications:  make(map[int64]application.Application),
		interviews:    make(map[int64]interview.Interview),
		appSlots:      make(map[pair]int64),
		seq:           make(map[string]int64),
	}
}

func (s *state) clone() *state {
	c := &state{
		offices:       make(map[int64]opportunity.Office, len(s.offices)),
		students:      make(map[int64]student.Student, len(s.students)),
		opportunities: make(map[int64]opportunity.Opportunity, len(s.opportunities)),
		applications:  make(map[int64]application.Application, len(s.applications)),
		interviews:    make(map[int64]interview.Interview, len(s.interviews)),
		audit:         make([]application.AuditEntry, len(s.audit)),
		appSlots:      make(map[pair]int64, len(s.appSlots)),
		seq:           make(map[string]int64, len(s.seq)),
	}
	for k, v := range s.offices {
		c.offices[k] = v
	}
	for k, v := range s.students {
		c.students[k] = v
	}
	for k, v := range s.opportunities {
		if v.Deadline != nil {
			d := *v.Deadline
			v.Deadline = &d
		}
		c.opportunities[k] = v
	}
	for k, v := range s.applications {
		c.applications[k] = v
	}
	for k, v := range s.interviews {
		c.interviews[k] = v
	}
	copy(c.audit, s.audit)
	for k, v := range s.appSlots {
		c.appSlots[k] = v
	}
	for k, v := range s.seq {
		c.seq[k] = v
	}
	return c
}

func (s *state) nextID(table string) int64 {
	s.seq[table]++
	return s.seq[table]
}

// ══════════════════════════════════════════════════════════════════════════════
// STORE
// ══════════════════════════════════════════════════════════════════════════════

// Store is an in-memory store.UnitOfWork.
type Store struct {
	mu    sync.RWMutex
	data  *state
	now   func() time.Time
	fault func(table string) error
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used for audit timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithFault installs a hook consulted before every write to the named table;
// a non-nil error fails that write. Used to exercise rollback paths.
func WithFault(fault func(table string) error) Option {
	return func(s *Store) {
		s.fault = fault
	}
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		data: newState(),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithinTx implements store.UnitOfWork.
func (s *Store) WithinTx(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.data.clone()
	if err := fn(s.newTx(working)); err != nil {
		return err
	}
	s.data = working
	return nil
}

// WithinReadTx implements store.UnitOfWork. Writes made by fn are discarded.
func (s *Store) WithinReadTx(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	snapshot := s.data.clone()
	s.mu.RUnlock()

	return fn(s.newTx(snapshot))
}

func (s *Store) newTx(data *state) *tx {
	t := &tx{data: data, now: s.now, fault: s.fault}
	t.maintainer = application.NewMaintainer(&opportunityRepo{t}, &auditLog{t}, s.now)
	return t
}

var _ store.UnitOfWork = (*Store)(nil)

// ══════════════════════════════════════════════════════════════════════════════
// TX
// ══════════════════════════════════════════════════════════════════════════════

type tx struct {
	data       *state
	now        func() time.Time
	fault      func(table string) error
	maintainer *application.Maintainer
}

func (t *tx) Students() student.Repository          { return &studentRepo{t} }
func (t *tx) Opportunities() opportunity.Repository { return &opportunityRepo{t} }
func (t *tx) Applications() application.Repository  { return &applicationRepo{t} }
func (t *tx) Interviews() interview.Repository      { return &interviewRepo{t} }
func (t *tx) Audit() application.AuditLog           { return &auditLog{t} }
func (t *tx) Maintainer() *application.Maintainer   { return t.maintainer }

func (t *tx) checkFault(table string) error {
	if t.fault == nil {
		return nil
	}
	return t.fault(table)
}

var _ store.Tx = (*tx)(nil)
