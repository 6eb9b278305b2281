package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/placement-hub/placement-portal/internal/domain/application"
	"github.com/placement-hub/placement-portal/internal/domain/interview"
	"github.com/placement-hub/placement-portal/internal/domain/opportunity"
	"github.com/placement-hub/placement-portal/internal/domain/shared"
	"github.com/placement-hub/placement-portal/internal/domain/student"
)

// Table names used for ID sequences and fault injection.
const (
	tableOffices       = "placement_offices"
	tableStudents      = "students"
	tableOpportunities = "opportunities"
	tableApplications  = "applications"
	tableInterviews    = "interviews"
	tableAudit         = "application_audit"
)

// ──────────────────────────────────────────────────────────────────────────────
// Students
// ──────────────────────────────────────────────────────────────────────────────

type studentRepo struct{ t *tx }

func (r *studentRepo) Create(_ context.Context, s *student.Student) error {
	if err := r.t.checkFault(tableStudents); err != nil {
		return err
	}
	for _, existing := range r.t.data.students {
		if strings.EqualFold(existing.RollNo, s.RollNo) || strings.EqualFold(existing.Email, s.Email) {
			return shared.ErrStudentAlreadyExists
		}
	}
	s.ID = r.t.data.nextID(tableStudents)
	r.t.data.students[s.ID] = *s
	return nil
}

func (r *studentRepo) GetByID(_ context.Context, id int64) (*student.Student, error) {
	s, ok := r.t.data.students[id]
	if !ok {
		return nil, shared.ErrStudentNotFound
	}
	return &s, nil
}

func (r *studentRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.t.data.students[id]; !ok {
		return shared.ErrStudentNotFound
	}
	if err := r.t.checkFault(tableStudents); err != nil {
		return err
	}
	apps := &applicationRepo{r.t}
	for _, appID := range apps.idsWhere(func(a application.Application) bool { return a.StudentID == id }) {
		if err := apps.Delete(ctx, appID); err != nil {
			return err
		}
	}
	delete(r.t.data.students, id)
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Opportunities
// ──────────────────────────────────────────────────────────────────────────────

type opportunityRepo struct{ t *tx }

func (r *opportunityRepo) CreateOffice(_ context.Context, o *opportunity.Office) error {
	if err := r.t.checkFault(tableOffices); err != nil {
		return err
	}
	o.ID = r.t.data.nextID(tableOffices)
	r.t.data.offices[o.ID] = *o
	return nil
}

func (r *opportunityRepo) Create(_ context.Context, o *opportunity.Opportunity) error {
	if _, ok := r.t.data.offices[o.OfficeID]; !ok {
		return shared.ErrOfficeNotFound
	}
	if err := r.t.checkFault(tableOpportunities); err != nil {
		return err
	}
	o.ID = r.t.data.nextID(tableOpportunities)
	o.ApplicationsCount = 0
	r.t.data.opportunities[o.ID] = *o
	return nil
}

func (r *opportunityRepo) GetByID(_ context.Context, id int64) (*opportunity.Opportunity, error) {
	o, ok := r.t.data.opportunities[id]
	if !ok {
		return nil, shared.ErrOpportunityNotFound
	}
	return &o, nil
}

func (r *opportunityRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.t.data.opportunities[id]; !ok {
		return shared.ErrOpportunityNotFound
	}
	if err := r.t.checkFault(tableOpportunities); err != nil {
		return err
	}
	apps := &applicationRepo{r.t}
	for _, appID := range apps.idsWhere(func(a application.Application) bool { return a.OpportunityID == id }) {
		if err := apps.Delete(ctx, appID); err != nil {
			return err
		}
	}
	delete(r.t.data.opportunities, id)
	return nil
}

func (r *opportunityRepo) ApplicationsCount(_ context.Context, id int64) (int, error) {
	o, ok := r.t.data.opportunities[id]
	if !ok {
		return 0, shared.ErrOpportunityNotFound
	}
	return o.ApplicationsCount, nil
}

func (r *opportunityRepo) Stats(_ context.Context, id int64) (*opportunity.Stats, error) {
	o, ok := r.t.data.opportunities[id]
	if !ok {
		return nil, shared.ErrOpportunityNotFound
	}
	stats := &opportunity.Stats{
		OpportunityID:     o.ID,
		Title:             o.Title,
		Company:           o.Company,
		ApplicationsCount: o.ApplicationsCount,
	}
	var total int
	for _, a := range r.t.data.applications {
		if a.OpportunityID != id {
			continue
		}
		stats.LiveApplications++
		if s, ok := r.t.data.students[a.StudentID]; ok {
			total += s.CGPA.Hundredths()
		}
	}
	if stats.LiveApplications > 0 {
		stats.AverageCGPA = float64(total) / float64(stats.LiveApplications) / 100
	}
	return stats, nil
}

func (r *opportunityRepo) IncrementApplications(_ context.Context, id int64) error {
	if err := r.t.checkFault(tableOpportunities); err != nil {
		return err
	}
	o, ok := r.t.data.opportunities[id]
	if !ok {
		return shared.ErrOpportunityNotFound
	}
	o.ApplicationsCount++
	r.t.data.opportunities[id] = o
	return nil
}

func (r *opportunityRepo) DecrementApplications(_ context.Context, id int64) error {
	if err := r.t.checkFault(tableOpportunities); err != nil {
		return err
	}
	o, ok := r.t.data.opportunities[id]
	if !ok {
		return shared.ErrOpportunityNotFound
	}
	if o.ApplicationsCount > 0 {
		o.ApplicationsCount--
	}
	r.t.data.opportunities[id] = o
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Applications
// ──────────────────────────────────────────────────────────────────────────────

type applicationRepo struct{ t *tx }

func (r *applicationRepo) Create(ctx context.Context, a *application.Application) error {
	if _, ok := r.t.data.students[a.StudentID]; !ok {
		return shared.ErrStudentNotFound
	}
	if _, ok := r.t.data.opportunities[a.OpportunityID]; !ok {
		return shared.ErrOpportunityNotFound
	}
	slot := pair{a.StudentID, a.OpportunityID}
	if _, taken := r.t.data.appSlots[slot]; taken {
		return shared.ErrDuplicateApplication
	}
	if err := r.t.checkFault(tableApplications); err != nil {
		return err
	}

	a.ID = r.t.data.nextID(tableApplications)
	r.t.data.applications[a.ID] = *a
	r.t.data.appSlots[slot] = a.ID

	return r.t.maintainer.OnCreated(ctx, a)
}

func (r *applicationRepo) GetByID(_ context.Context, id int64) (*application.Application, error) {
	a, ok := r.t.data.applications[id]
	if !ok {
		return nil, shared.ErrApplicationNotFound
	}
	return &a, nil
}

// GetForUpdate needs no extra locking: the unit of work holds the store lock.
func (r *applicationRepo) GetForUpdate(ctx context.Context, id int64) (*application.Application, error) {
	return r.GetByID(ctx, id)
}

func (r *applicationRepo) FindByStudentAndOpportunity(_ context.Context, studentID, opportunityID int64) (*application.Application, error) {
	id, ok := r.t.data.appSlots[pair{studentID, opportunityID}]
	if !ok {
		return nil, nil
	}
	a := r.t.data.applications[id]
	return &a, nil
}

func (r *applicationRepo) ListByStudent(_ context.Context, studentID int64) ([]*application.Application, error) {
	var out []*application.Application
	for _, a := range r.t.data.applications {
		if a.StudentID == studentID {
			a := a
			out = append(out, &a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AppliedOn.Equal(out[j].AppliedOn) {
			return out[i].ID > out[j].ID
		}
		return out[i].AppliedOn.After(out[j].AppliedOn)
	})
	return out, nil
}

func (r *applicationRepo) UpdateStatus(_ context.Context, id int64, status application.Status) error {
	a, ok := r.t.data.applications[id]
	if !ok {
		return shared.ErrApplicationNotFound
	}
	if err := r.t.checkFault(tableApplications); err != nil {
		return err
	}
	a.Status = status
	r.t.data.applications[id] = a
	return nil
}

func (r *applicationRepo) Delete(ctx context.Context, id int64) error {
	a, ok := r.t.data.applications[id]
	if !ok {
		return shared.ErrApplicationNotFound
	}
	if err := r.t.checkFault(tableApplications); err != nil {
		return err
	}

	for iid, i := range r.t.data.interviews {
		if i.ApplicationID == id {
			delete(r.t.data.interviews, iid)
		}
	}
	delete(r.t.data.applications, id)
	delete(r.t.data.appSlots, pair{a.StudentID, a.OpportunityID})

	return r.t.maintainer.OnDeleted(ctx, &a)
}

// idsWhere returns matching application IDs in ascending order.
func (r *applicationRepo) idsWhere(match func(application.Application) bool) []int64 {
	var ids []int64
	for id, a := range r.t.data.applications {
		if match(a) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ──────────────────────────────────────────────────────────────────────────────
// Interviews
// ──────────────────────────────────────────────────────────────────────────────

type interviewRepo struct{ t *tx }

func (r *interviewRepo) Create(_ context.Context, i *interview.Interview) error {
	if _, ok := r.t.data.applications[i.ApplicationID]; !ok {
		return shared.ErrApplicationNotFound
	}
	if err := r.t.checkFault(tableInterviews); err != nil {
		return err
	}
	i.ID = r.t.data.nextID(tableInterviews)
	r.t.data.interviews[i.ID] = *i
	return nil
}

func (r *interviewRepo) GetByID(_ context.Context, id int64) (*interview.Interview, error) {
	i, ok := r.t.data.interviews[id]
	if !ok {
		return nil, shared.ErrInterviewNotFound
	}
	return &i, nil
}

func (r *interviewRepo) ListByApplication(_ context.Context, applicationID int64) ([]*interview.Interview, error) {
	var out []*interview.Interview
	for _, i := range r.t.data.interviews {
		if i.ApplicationID == applicationID {
			i := i
			out = append(out, &i)
		}
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].ScheduledAt.Equal(out[b].ScheduledAt) {
			return out[a].ID < out[b].ID
		}
		return out[a].ScheduledAt.Before(out[b].ScheduledAt)
	})
	return out, nil
}

func (r *interviewRepo) UpdateResult(_ context.Context, id int64, result interview.Result) error {
	i, ok := r.t.data.interviews[id]
	if !ok {
		return shared.ErrInterviewNotFound
	}
	if err := r.t.checkFault(tableInterviews); err != nil {
		return err
	}
	i.Result = result
	r.t.data.interviews[id] = i
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Audit
// ──────────────────────────────────────────────────────────────────────────────

type auditLog struct{ t *tx }

func (l *auditLog) Append(_ context.Context, e *application.AuditEntry) error {
	if err := l.t.checkFault(tableAudit); err != nil {
		return err
	}
	e.ID = l.t.data.nextID(tableAudit)
	if e.CreatedAt.IsZero() {
		e.CreatedAt = l.t.now()
	}
	l.t.data.audit = append(l.t.data.audit, *e)
	return nil
}

func (l *auditLog) ListByApplication(_ context.Context, applicationID int64) ([]*application.AuditEntry, error) {
	var out []*application.AuditEntry
	for _, e := range l.t.data.audit {
		if e.ApplicationID == applicationID {
			e := e
			out = append(out, &e)
		}
	}
	return out, nil
}
