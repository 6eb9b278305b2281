package command

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placement-hub/placement-portal/internal/domain/application"
	"github.com/placement-hub/placement-portal/internal/domain/interview"
	"github.com/placement-hub/placement-portal/internal/domain/shared"
	"github.com/placement-hub/placement-portal/internal/domain/store"
	"github.com/placement-hub/placement-portal/internal/infrastructure/persistence/memory"
)

func (h *harness) scheduleInterview(applicationID int64) (*ScheduleInterviewResult, error) {
	return h.schedule.Handle(context.Background(), ScheduleInterviewCommand{
		ApplicationID: applicationID,
		ScheduledAt:   testNow.Add(48 * time.Hour),
		Mode:          interview.ModeOffline,
		Venue:         "Seminar Hall 2",
		Panel:         "Dr. Iyer, Ms. Khan",
	})
}

func (h *harness) setStatus(applicationID int64, status application.Status) error {
	_, err := h.status.Handle(context.Background(), ChangeApplicationStatusCommand{
		ApplicationID: applicationID,
		Status:        status,
	})
	return err
}

func (h *harness) interviews(applicationID int64) []*interview.Interview {
	h.t.Helper()
	var out []*interview.Interview
	h.read(func(tx store.Tx) {
		var err error
		out, err = tx.Interviews().ListByApplication(context.Background(), applicationID)
		require.NoError(h.t, err)
	})
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// SCHEDULE INTERVIEW
// ══════════════════════════════════════════════════════════════════════════════

func TestScheduleInterview_UnknownApplicationWritesNothing(t *testing.T) {
	h := newHarness(t)

	_, err := h.scheduleInterview(99)
	require.ErrorIs(t, err, shared.ErrApplicationNotFound)
	assert.Empty(t, h.interviews(99))
	assert.Empty(t, h.events.types())
}

func TestScheduleInterview_AuditsStatusChange(t *testing.T) {
	h := newHarness(t)
	appID, err := h.apply(h.student("S1", 8.0), h.opportunity("SDE", 7.0, 10))
	require.NoError(t, err)
	require.NoError(t, h.setStatus(appID, application.StatusShortlisted))
	h.events.reset()

	res, err := h.scheduleInterview(appID)
	require.NoError(t, err)
	assert.Equal(t, application.StatusShortlisted, res.PreviousStatus)

	entries := h.audit(appID)
	require.Len(t, entries, 3)
	assert.Equal(t, application.AuditStatusChange, entries[2].Action)
	assert.Equal(t, "SHORTLISTED -> INTERVIEW_SCHEDULED", entries[2].Details)

	assert.Equal(t, []shared.EventType{
		shared.EventInterviewScheduled,
		shared.EventApplicationStatusChanged,
	}, h.events.types())
}

func TestScheduleInterview_OverwritesTerminalStatus(t *testing.T) {
	h := newHarness(t)
	appID, err := h.apply(h.student("S1", 8.0), h.opportunity("SDE", 7.0, 10))
	require.NoError(t, err)

	_, err = h.withdraw.Handle(context.Background(), WithdrawApplicationCommand{ApplicationID: appID, StudentID: h.app(appID).StudentID})
	require.NoError(t, err)

	res, err := h.scheduleInterview(appID)
	require.NoError(t, err)
	assert.Equal(t, application.StatusWithdrawn, res.PreviousStatus)
	assert.Equal(t, application.StatusInterviewScheduled, h.app(appID).Status)
}

func TestScheduleInterview_RescheduleCreatesNewRecord(t *testing.T) {
	h := newHarness(t)
	appID, err := h.apply(h.student("S1", 8.0), h.opportunity("SDE", 7.0, 10))
	require.NoError(t, err)

	first, err := h.scheduleInterview(appID)
	require.NoError(t, err)
	h.events.reset()

	second, err := h.scheduleInterview(appID)
	require.NoError(t, err)
	assert.NotEqual(t, first.InterviewID, second.InterviewID)
	assert.Len(t, h.interviews(appID), 2)

	// Already INTERVIEW_SCHEDULED: no second STATUS_CHANGE entry.
	assert.Len(t, h.audit(appID), 2)
	assert.Equal(t, []shared.EventType{shared.EventInterviewScheduled}, h.events.types())
}

func TestScheduleInterviewCommand_Validate(t *testing.T) {
	base := ScheduleInterviewCommand{ApplicationID: 1, ScheduledAt: testNow, Mode: interview.ModeOnline}
	assert.NoError(t, base.Validate())

	bad := base
	bad.Mode = "HYBRID"
	assert.ErrorIs(t, bad.Validate(), shared.ErrInvalidMode)

	bad = base
	bad.ScheduledAt = time.Time{}
	assert.ErrorIs(t, bad.Validate(), shared.ErrEmptyValue)

	bad = base
	bad.ApplicationID = 0
	assert.ErrorIs(t, bad.Validate(), shared.ErrInvalidID)
}

// ══════════════════════════════════════════════════════════════════════════════
// STATUS CHANGES
// ══════════════════════════════════════════════════════════════════════════════

func TestChangeApplicationStatus(t *testing.T) {
	h := newHarness(t)
	appID, err := h.apply(h.student("S1", 8.0), h.opportunity("SDE", 7.0, 10))
	require.NoError(t, err)

	err = h.setStatus(appID, application.StatusOffered)
	require.ErrorIs(t, err, shared.ErrInvalidStatusTransition)
	assert.Equal(t, application.StatusApplied, h.app(appID).Status)
	assert.Len(t, h.audit(appID), 1)

	require.NoError(t, h.setStatus(appID, application.StatusShortlisted))
	require.NoError(t, h.setStatus(appID, application.StatusInterviewScheduled))
	require.NoError(t, h.setStatus(appID, application.StatusOffered))

	err = h.setStatus(appID, application.StatusRejected)
	require.ErrorIs(t, err, shared.ErrInvalidStatusTransition)

	entries := h.audit(appID)
	require.Len(t, entries, 4)
	assert.Equal(t, "APPLIED -> SHORTLISTED", entries[1].Details)
	assert.Equal(t, "INTERVIEW_SCHEDULED -> OFFERED", entries[3].Details)

	err = h.setStatus(appID, "ARCHIVED")
	assert.True(t, shared.IsValidation(err))
}

func TestWithdrawApplication(t *testing.T) {
	h := newHarness(t)
	s := h.student("S1", 8.0)
	other := h.student("S2", 8.0)
	appID, err := h.apply(s, h.opportunity("SDE", 7.0, 10))
	require.NoError(t, err)

	_, err = h.withdraw.Handle(context.Background(), WithdrawApplicationCommand{ApplicationID: appID, StudentID: other})
	require.ErrorIs(t, err, shared.ErrApplicationNotFound)

	res, err := h.withdraw.Handle(context.Background(), WithdrawApplicationCommand{ApplicationID: appID, StudentID: s})
	require.NoError(t, err)
	assert.Equal(t, application.StatusApplied, res.From)
	assert.Equal(t, application.StatusWithdrawn, res.To)

	entries := h.audit(appID)
	require.Len(t, entries, 2)
	assert.Equal(t, application.AuditWithdraw, entries[1].Action)
	assert.Equal(t, "User action", entries[1].Details)

	_, err = h.withdraw.Handle(context.Background(), WithdrawApplicationCommand{ApplicationID: appID, StudentID: s})
	assert.ErrorIs(t, err, shared.ErrInvalidStatusTransition)
}

// ══════════════════════════════════════════════════════════════════════════════
// DELETION AND CASCADES
// ══════════════════════════════════════════════════════════════════════════════

func TestDelete_ApplicationKeepsAuditAndDropsInterviews(t *testing.T) {
	h := newHarness(t)
	o := h.opportunity("SDE", 7.0, 10)
	appID, err := h.apply(h.student("S1", 8.0), o)
	require.NoError(t, err)
	_, err = h.scheduleInterview(appID)
	require.NoError(t, err)
	h.events.reset()

	res, err := h.remove.Handle(context.Background(), DeleteCommand{Target: DeleteApplication, ID: appID})
	require.NoError(t, err)
	assert.Equal(t, []int64{appID}, res.RemovedApplications)

	assert.Equal(t, 0, h.counter(o))
	assert.Empty(t, h.interviews(appID))

	entries := h.audit(appID)
	require.Len(t, entries, 3)
	assert.Equal(t, application.AuditDelete, entries[2].Action)

	assert.Equal(t, []shared.EventType{shared.EventApplicationDeleted}, h.events.types())

	_, err = h.remove.Handle(context.Background(), DeleteCommand{Target: DeleteApplication, ID: appID})
	assert.ErrorIs(t, err, shared.ErrApplicationNotFound)
}

func TestDelete_OpportunityCascades(t *testing.T) {
	h := newHarness(t)
	o := h.opportunity("SDE", 7.0, 10)
	keep := h.opportunity("Analyst", 7.0, 10)
	s1, s2 := h.student("S1", 8.0), h.student("S2", 9.0)

	a1, err := h.apply(s1, o)
	require.NoError(t, err)
	a2, err := h.apply(s2, o)
	require.NoError(t, err)
	_, err = h.apply(s1, keep)
	require.NoError(t, err)
	h.events.reset()

	res, err := h.remove.Handle(context.Background(), DeleteCommand{Target: DeleteOpportunity, ID: o})
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{a1, a2}, res.RemovedApplications)

	for _, id := range []int64{a1, a2} {
		entries := h.audit(id)
		require.Len(t, entries, 2)
		assert.Equal(t, application.AuditDelete, entries[1].Action)
	}
	assert.Equal(t, 1, h.counter(keep))

	assert.Equal(t, []shared.EventType{
		shared.EventApplicationDeleted,
		shared.EventApplicationDeleted,
		shared.EventOpportunityDeleted,
	}, h.events.types())
	deleted, ok := h.events.events[0].(shared.ApplicationDeletedEvent)
	require.True(t, ok)
	assert.Equal(t, CauseOpportunityDelete, deleted.Cause)
}

func TestDelete_StudentDecrementsEveryOpportunity(t *testing.T) {
	h := newHarness(t)
	o1, o2 := h.opportunity("SDE", 7.0, 10), h.opportunity("Analyst", 7.0, 10)
	s := h.student("S1", 8.0)
	other := h.student("S2", 8.0)

	for _, o := range []int64{o1, o2} {
		_, err := h.apply(s, o)
		require.NoError(t, err)
	}
	_, err := h.apply(other, o1)
	require.NoError(t, err)

	res, err := h.remove.Handle(context.Background(), DeleteCommand{Target: DeleteStudent, ID: s})
	require.NoError(t, err)
	assert.Len(t, res.RemovedApplications, 2)

	assert.Equal(t, 1, h.counter(o1))
	assert.Equal(t, 0, h.counter(o2))
	assert.Equal(t, h.live(o1), h.counter(o1))

	// A removed student can no longer apply.
	_, err = h.apply(s, o1)
	assert.ErrorIs(t, err, shared.ErrStudentNotFound)
}

func TestDeleteCommand_Validate(t *testing.T) {
	assert.ErrorIs(t, DeleteCommand{Target: "office", ID: 1}.Validate(), shared.ErrInvalidInput)
	assert.ErrorIs(t, DeleteCommand{Target: DeleteStudent, ID: -1}.Validate(), shared.ErrInvalidID)
}

// ══════════════════════════════════════════════════════════════════════════════
// INTERVIEW RESULTS
// ══════════════════════════════════════════════════════════════════════════════

func TestRecordInterviewResult(t *testing.T) {
	h := newHarness(t)
	appID, err := h.apply(h.student("S1", 8.0), h.opportunity("SDE", 7.0, 10))
	require.NoError(t, err)
	sched, err := h.scheduleInterview(appID)
	require.NoError(t, err)

	updated, err := h.result.Handle(context.Background(), RecordInterviewResultCommand{
		InterviewID: sched.InterviewID,
		Result:      interview.ResultPass,
	})
	require.NoError(t, err)
	assert.Equal(t, interview.ResultPass, updated.Result)

	// The application status is not advanced by the result.
	assert.Equal(t, application.StatusInterviewScheduled, h.app(appID).Status)

	_, err = h.result.Handle(context.Background(), RecordInterviewResultCommand{InterviewID: 404, Result: interview.ResultFail})
	assert.ErrorIs(t, err, shared.ErrInterviewNotFound)

	_, err = h.result.Handle(context.Background(), RecordInterviewResultCommand{InterviewID: sched.InterviewID, Result: "MAYBE"})
	assert.ErrorIs(t, err, shared.ErrInvalidResult)
}

// ══════════════════════════════════════════════════════════════════════════════
// CATALOG
// ══════════════════════════════════════════════════════════════════════════════

func TestCatalog_Validation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.catalog.RegisterStudent(ctx, RegisterStudentCommand{
		RollNo: "S1", FirstName: "A", LastName: "B", Email: "a@b.c", Department: "CSE", Batch: 27,
	})
	assert.ErrorIs(t, err, shared.ErrInvalidBatch)

	h.student("S1", 8.0)
	_, err = h.catalog.RegisterStudent(ctx, RegisterStudentCommand{
		RollNo: "s1", FirstName: "A", LastName: "B", Email: "other@b.c", Department: "CSE", Batch: 2027,
	})
	assert.ErrorIs(t, err, shared.ErrStudentAlreadyExists)

	_, err = h.catalog.PostOpportunity(ctx, PostOpportunityCommand{OfficeID: 999, Title: "T", Company: "C"})
	assert.ErrorIs(t, err, shared.ErrOfficeNotFound)

	_, err = h.catalog.PostOpportunity(ctx, PostOpportunityCommand{OfficeID: h.officeID, Title: "T", Company: "C", Vacancy: -1})
	assert.ErrorIs(t, err, shared.ErrInvalidVacancy)

	o, err := h.catalog.PostOpportunity(ctx, PostOpportunityCommand{OfficeID: h.officeID, Title: "T", Company: "C"})
	require.NoError(t, err)
	assert.Equal(t, h.clock.Today(), o.PostedOn)
	assert.Equal(t, 0, o.ApplicationsCount)
}

func TestStatusChange_RollsBackWhenAuditFails(t *testing.T) {
	var failAudit bool
	h := newHarness(t, memory.WithFault(func(table string) error {
		if failAudit && table == "application_audit" {
			return errors.New("disk full")
		}
		return nil
	}))
	s := h.student("S1", 8.0)
	appID, err := h.apply(s, h.opportunity("SDE", 7.0, 10))
	require.NoError(t, err)

	failAudit = true
	require.Error(t, h.setStatus(appID, application.StatusShortlisted))
	_, err = h.withdraw.Handle(context.Background(), WithdrawApplicationCommand{ApplicationID: appID, StudentID: s})
	require.Error(t, err)
	_, err = h.scheduleInterview(appID)
	require.Error(t, err)

	failAudit = false
	assert.Equal(t, application.StatusApplied, h.app(appID).Status)
	assert.Empty(t, h.interviews(appID))
	require.Len(t, h.audit(appID), 1)

	require.NoError(t, h.setStatus(appID, application.StatusShortlisted))
	entries := h.audit(appID)
	require.Len(t, entries, 2)
	assert.Equal(t, application.AuditStatusChange, entries[1].Action)
	assert.Equal(t, testNow, entries[1].CreatedAt)
}
