package command

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/placement-hub/placement-portal/internal/domain/application"
	"github.com/placement-hub/placement-portal/internal/domain/opportunity"
	"github.com/placement-hub/placement-portal/internal/domain/shared"
	"github.com/placement-hub/placement-portal/internal/domain/store"
	"github.com/placement-hub/placement-portal/internal/infrastructure/persistence/memory"
	"github.com/placement-hub/placement-portal/pkg/logger"
	"github.com/placement-hub/placement-portal/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// TEST HELPERS
// ══════════════════════════════════════════════════════════════════════════════

var testNow = time.Date(2026, time.October, 15, 10, 30, 0, 0, time.UTC)

type recorder struct {
	mu     sync.Mutex
	events []shared.Event
}

func (r *recorder) Publish(e shared.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) types() []shared.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]shared.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType())
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

type harness struct {
	t        *testing.T
	store    *memory.Store
	clock    timeutil.FixedClock
	events   *recorder
	officeID int64

	catalog  *CatalogHandler
	create   *CreateApplicationHandler
	schedule *ScheduleInterviewHandler
	status   *ChangeApplicationStatusHandler
	withdraw *WithdrawApplicationHandler
	remove   *DeleteHandler
	result   *RecordInterviewResultHandler
}

func newHarness(t *testing.T, opts ...memory.Option) *harness {
	t.Helper()
	clock := timeutil.FixedClock{At: testNow}
	opts = append([]memory.Option{memory.WithClock(clock.Now)}, opts...)
	st := memory.NewStore(opts...)
	rec := &recorder{}
	log := logger.Nop()

	h := &harness{
		t:        t,
		store:    st,
		clock:    clock,
		events:   rec,
		catalog:  NewCatalogHandler(st, clock, rec, log),
		create:   NewCreateApplicationHandler(st, clock, rec, log),
		schedule: NewScheduleInterviewHandler(st, clock, rec, log),
		status:   NewChangeApplicationStatusHandler(st, clock, rec, log),
		withdraw: NewWithdrawApplicationHandler(st, clock, rec, log),
		remove:   NewDeleteHandler(st, clock, rec, log),
		result:   NewRecordInterviewResultHandler(st, clock, rec, log),
	}

	office, err := h.catalog.RegisterOffice(context.Background(), RegisterOfficeCommand{Name: "Training & Placement Cell"})
	require.NoError(t, err)
	h.officeID = office.ID
	return h
}

func (h *harness) student(rollNo string, cgpa float64) int64 {
	h.t.Helper()
	s, err := h.catalog.RegisterStudent(context.Background(), RegisterStudentCommand{
		RollNo:     rollNo,
		FirstName:  "Student",
		LastName:   rollNo,
		Email:      rollNo + "@campus.edu",
		Department: "CSE",
		Batch:      2027,
		CGPA:       shared.MustCGPA(cgpa),
	})
	require.NoError(h.t, err)
	return s.ID
}

const noDeadline = math.MinInt32

// opportunity posts an opening whose deadline is today plus deadlineInDays.
func (h *harness) opportunity(title string, minCGPA float64, deadlineInDays int) int64 {
	h.t.Helper()
	var deadline *time.Time
	if deadlineInDays != noDeadline {
		d := timeutil.AddDays(h.clock.Today(), deadlineInDays)
		deadline = &d
	}
	o, err := h.catalog.PostOpportunity(context.Background(), PostOpportunityCommand{
		OfficeID: h.officeID,
		Title:    title,
		Company:  "Acme",
		Vacancy:  2,
		MinCGPA:  shared.MustCGPA(minCGPA),
		Deadline: deadline,
	})
	require.NoError(h.t, err)
	return o.ID
}

func (h *harness) apply(studentID, opportunityID int64) (int64, error) {
	res, err := h.create.Handle(context.Background(), CreateApplicationCommand{
		StudentID:     studentID,
		OpportunityID: opportunityID,
	})
	if err != nil {
		return 0, err
	}
	return res.ApplicationID, nil
}

func (h *harness) read(fn func(tx store.Tx)) {
	h.t.Helper()
	require.NoError(h.t, h.store.WithinReadTx(context.Background(), func(tx store.Tx) error {
		fn(tx)
		return nil
	}))
}

func (h *harness) counter(opportunityID int64) int {
	h.t.Helper()
	var o *opportunity.Opportunity
	h.read(func(tx store.Tx) {
		var err error
		o, err = tx.Opportunities().GetByID(context.Background(), opportunityID)
		require.NoError(h.t, err)
	})
	return o.ApplicationsCount
}

// live counts the applications referencing the opportunity.
func (h *harness) live(opportunityID int64) int {
	h.t.Helper()
	var stats *opportunity.Stats
	h.read(func(tx store.Tx) {
		var err error
		stats, err = tx.Opportunities().Stats(context.Background(), opportunityID)
		require.NoError(h.t, err)
	})
	return stats.LiveApplications
}

func (h *harness) audit(applicationID int64) []*application.AuditEntry {
	h.t.Helper()
	var entries []*application.AuditEntry
	h.read(func(tx store.Tx) {
		var err error
		entries, err = tx.Audit().ListByApplication(context.Background(), applicationID)
		require.NoError(h.t, err)
	})
	return entries
}

func (h *harness) app(applicationID int64) *application.Application {
	h.t.Helper()
	var a *application.Application
	h.read(func(tx store.Tx) {
		var err error
		a, err = tx.Applications().GetByID(context.Background(), applicationID)
		require.NoError(h.t, err)
	})
	return a
}
