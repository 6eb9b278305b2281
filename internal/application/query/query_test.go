package query

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placement-hub/placement-portal/internal/application/command"
	"github.com/placement-hub/placement-portal/internal/application/eventhandler"
	"github.com/placement-hub/placement-portal/internal/domain/application"
	"github.com/placement-hub/placement-portal/internal/domain/interview"
	"github.com/placement-hub/placement-portal/internal/domain/opportunity"
	"github.com/placement-hub/placement-portal/internal/domain/shared"
	"github.com/placement-hub/placement-portal/internal/domain/store"
	"github.com/placement-hub/placement-portal/internal/domain/student"
	"github.com/placement-hub/placement-portal/internal/infrastructure/messaging"
	"github.com/placement-hub/placement-portal/internal/infrastructure/persistence/memory"
	"github.com/placement-hub/placement-portal/pkg/logger"
	"github.com/placement-hub/placement-portal/pkg/timeutil"
)

var testNow = time.Date(2026, time.October, 15, 9, 0, 0, 0, time.UTC)

type fixture struct {
	studentID     int64
	opportunityID int64
	applicationID int64
}

func seed(t *testing.T, st *memory.Store) fixture {
	t.Helper()
	ctx := context.Background()
	var f fixture
	err := st.WithinTx(ctx, func(tx store.Tx) error {
		office := &opportunity.Office{Name: "T&P Cell"}
		require.NoError(t, tx.Opportunities().CreateOffice(ctx, office))

		s := &student.Student{
			RollNo: "CS21B001", FirstName: "Asha", LastName: "Rao", Email: "asha@campus.edu",
			Department: "CSE", Batch: 2025, CGPA: shared.MustCGPA(8.25),
		}
		require.NoError(t, tx.Students().Create(ctx, s))

		o := &opportunity.Opportunity{
			OfficeID: office.ID, Title: "SDE Intern", Company: "Acme", Vacancy: 2,
			MinCGPA: shared.MustCGPA(7.0), PostedOn: timeutil.CivilDate(testNow),
		}
		require.NoError(t, tx.Opportunities().Create(ctx, o))

		a := application.New(s.ID, o.ID, testNow)
		require.NoError(t, tx.Applications().Create(ctx, a))

		i, err := interview.New(a.ID, testNow.Add(24*time.Hour), interview.ModeOnline, "Meet", "Panel")
		require.NoError(t, err)
		require.NoError(t, tx.Interviews().Create(ctx, i))

		f = fixture{studentID: s.ID, opportunityID: o.ID, applicationID: a.ID}
		return nil
	})
	require.NoError(t, err)
	return f
}

// fakeCache is an in-process OpportunityCache.
type fakeCache struct {
	mu      sync.Mutex
	items   map[int64]*opportunity.Opportunity
	broken  bool
	hits    int
	evicted []int64
}

func newFakeCache() *fakeCache {
	return &fakeCache{items: make(map[int64]*opportunity.Opportunity)}
}

var errCacheDown = errors.New("cache down")

func (c *fakeCache) Get(_ context.Context, id int64) (*opportunity.Opportunity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.broken {
		return nil, errCacheDown
	}
	o, ok := c.items[id]
	if !ok {
		return nil, errors.New("miss")
	}
	c.hits++
	cp := *o
	return &cp, nil
}

func (c *fakeCache) Set(_ context.Context, o *opportunity.Opportunity) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.broken {
		return errCacheDown
	}
	cp := *o
	c.items[o.ID] = &cp
	return nil
}

func (c *fakeCache) Invalidate(_ context.Context, ids ...int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		delete(c.items, id)
		c.evicted = append(c.evicted, id)
	}
	return nil
}

func TestOpportunityHandler_ReadThrough(t *testing.T) {
	st := memory.NewStore()
	f := seed(t, st)
	cache := newFakeCache()
	h := NewOpportunityHandler(st, cache, nil)
	ctx := context.Background()

	o, err := h.Get(ctx, GetOpportunityQuery{OpportunityID: f.opportunityID})
	require.NoError(t, err)
	assert.Equal(t, 1, o.ApplicationsCount)
	assert.Equal(t, 0, cache.hits)

	_, err = h.Get(ctx, GetOpportunityQuery{OpportunityID: f.opportunityID})
	require.NoError(t, err)
	assert.Equal(t, 1, cache.hits)

	_, err = h.Get(ctx, GetOpportunityQuery{OpportunityID: 999})
	assert.ErrorIs(t, err, shared.ErrOpportunityNotFound)
}

func TestOpportunityHandler_CounterFreshAfterCommittedCreate(t *testing.T) {
	st := memory.NewStore()
	f := seed(t, st)
	cache := newFakeCache()
	h := NewOpportunityHandler(st, cache, nil)
	ctx := context.Background()

	bus := messaging.NewInMemoryEventBus(messaging.InMemoryEventBusConfig{
		AsyncMode:      true,
		WorkerPoolSize: 2,
		Logger:         logger.Nop(),
	})
	t.Cleanup(func() { _ = bus.Close() })
	require.NoError(t, eventhandler.Register(bus, eventhandler.NewOnOpportunityChangedHandler(cache, nil, time.Second)))

	clock := timeutil.FixedClock{At: testNow}
	create := command.NewCreateApplicationHandler(st, clock, bus, nil)
	catalog := command.NewCatalogHandler(st, clock, bus, nil)

	o, err := h.Get(ctx, GetOpportunityQuery{OpportunityID: f.opportunityID})
	require.NoError(t, err)
	require.Equal(t, 1, o.ApplicationsCount)

	s2, err := catalog.RegisterStudent(ctx, command.RegisterStudentCommand{
		RollNo: "CS21B002", FirstName: "Ravi", LastName: "Menon", Email: "ravi@campus.edu",
		Department: "CSE", Batch: 2025, CGPA: shared.MustCGPA(9.1),
	})
	require.NoError(t, err)
	_, err = create.Handle(ctx, command.CreateApplicationCommand{StudentID: s2.ID, OpportunityID: f.opportunityID})
	require.NoError(t, err)

	o, err = h.Get(ctx, GetOpportunityQuery{OpportunityID: f.opportunityID})
	require.NoError(t, err)
	assert.Equal(t, 2, o.ApplicationsCount)
	assert.Equal(t, 1, cache.hits)

	stats, err := h.Stats(ctx, GetOpportunityQuery{OpportunityID: f.opportunityID})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.ApplicationsCount)
	assert.Equal(t, 2, stats.LiveApplications)
}

func TestOpportunityHandler_StaleEntryWrittenAfterCommit(t *testing.T) {
	st := memory.NewStore()
	f := seed(t, st)
	cache := newFakeCache()
	h := NewOpportunityHandler(st, cache, nil)
	ctx := context.Background()

	// A reader that loaded the row before the delete caches it afterwards.
	var stale *opportunity.Opportunity
	require.NoError(t, st.WithinReadTx(ctx, func(tx store.Tx) error {
		var err error
		stale, err = tx.Opportunities().GetByID(ctx, f.opportunityID)
		return err
	}))
	require.NoError(t, st.WithinTx(ctx, func(tx store.Tx) error {
		return tx.Applications().Delete(ctx, f.applicationID)
	}))
	require.NoError(t, cache.Set(ctx, stale))

	o, err := h.Get(ctx, GetOpportunityQuery{OpportunityID: f.opportunityID})
	require.NoError(t, err)
	assert.Equal(t, 0, o.ApplicationsCount)

	require.NoError(t, st.WithinTx(ctx, func(tx store.Tx) error {
		return tx.Opportunities().Delete(ctx, f.opportunityID)
	}))
	require.NoError(t, cache.Set(ctx, stale))

	_, err = h.Get(ctx, GetOpportunityQuery{OpportunityID: f.opportunityID})
	assert.ErrorIs(t, err, shared.ErrOpportunityNotFound)
	assert.Equal(t, []int64{f.opportunityID}, cache.evicted)
	assert.NotContains(t, cache.items, f.opportunityID)
}

func TestOpportunityHandler_FallsBackWhenCacheFails(t *testing.T) {
	st := memory.NewStore()
	f := seed(t, st)
	cache := newFakeCache()
	cache.broken = true
	h := NewOpportunityHandler(st, cache, nil)

	o, err := h.Get(context.Background(), GetOpportunityQuery{OpportunityID: f.opportunityID})
	require.NoError(t, err)
	assert.Equal(t, "SDE Intern", o.Title)

	stats, err := h.Stats(context.Background(), GetOpportunityQuery{OpportunityID: f.opportunityID})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.LiveApplications)
	assert.InDelta(t, 8.25, stats.AverageCGPA, 0.001)
}

func TestOpportunityHandler_WithoutCache(t *testing.T) {
	st := memory.NewStore()
	f := seed(t, st)
	h := NewOpportunityHandler(st, nil, nil)

	stats, err := h.Stats(context.Background(), GetOpportunityQuery{OpportunityID: f.opportunityID})
	require.NoError(t, err)
	assert.Equal(t, stats.ApplicationsCount, stats.LiveApplications)

	_, err = h.Stats(context.Background(), GetOpportunityQuery{})
	assert.True(t, shared.IsValidation(err))
}

func TestHistoryHandler_AuditTrailOutlivesApplication(t *testing.T) {
	st := memory.NewStore()
	f := seed(t, st)
	h := NewHistoryHandler(st)
	ctx := context.Background()

	require.NoError(t, st.WithinTx(ctx, func(tx store.Tx) error {
		return tx.Applications().Delete(ctx, f.applicationID)
	}))

	entries, err := h.AuditTrail(ctx, GetAuditTrailQuery{ApplicationID: f.applicationID})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, application.AuditCreate, entries[0].Action)
	assert.Equal(t, application.AuditDelete, entries[1].Action)

	entries, err = h.AuditTrail(ctx, GetAuditTrailQuery{ApplicationID: 12345})
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestHistoryHandler_StudentApplications(t *testing.T) {
	st := memory.NewStore()
	f := seed(t, st)
	h := NewHistoryHandler(st)
	ctx := context.Background()

	rows, err := h.StudentApplications(ctx, ListStudentApplicationsQuery{StudentID: f.studentID})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Acme", rows[0].Company)
	assert.True(t, rows[0].CanWithdraw)
	require.Len(t, rows[0].Interviews, 1)
	assert.Equal(t, interview.ResultPending, rows[0].Interviews[0].Result)

	rows, err = h.StudentApplications(ctx, ListStudentApplicationsQuery{StudentID: f.studentID, Status: application.StatusOffered})
	require.NoError(t, err)
	assert.Empty(t, rows)

	_, err = h.StudentApplications(ctx, ListStudentApplicationsQuery{StudentID: 404})
	assert.ErrorIs(t, err, shared.ErrStudentNotFound)

	_, err = h.StudentApplications(ctx, ListStudentApplicationsQuery{StudentID: f.studentID, Status: "LOST"})
	assert.ErrorIs(t, err, shared.ErrInvalidStatus)
}
