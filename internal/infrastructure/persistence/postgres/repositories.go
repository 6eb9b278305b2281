package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/placement-hub/placement-portal/internal/domain/application"
	"github.com/placement-hub/placement-portal/internal/domain/interview"
	"github.com/placement-hub/placement-portal/internal/domain/opportunity"
	"github.com/placement-hub/placement-portal/internal/domain/shared"
	"github.com/placement-hub/placement-portal/internal/domain/student"
)

// CGPA columns are NUMERIC(4,2); they cross the wire as integer hundredths
// so no float rounding is involved.

// ──────────────────────────────────────────────────────────────────────────────
// Students
// ──────────────────────────────────────────────────────────────────────────────

type studentRepo struct{ t *tx }

const studentColumns = `id, roll_no, first_name, last_name, email, COALESCE(phone, ''),
	department, batch, (cgpa * 100)::int, created_at`

func scanStudent(row pgx.Row) (*student.Student, error) {
	var (
		s     student.Student
		batch int
		cgpa  int
	)
	err := row.Scan(&s.ID, &s.RollNo, &s.FirstName, &s.LastName, &s.Email, &s.Phone,
		&s.Department, &batch, &cgpa, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	s.Batch = student.Batch(batch)
	s.CGPA = shared.CGPA(cgpa)
	return &s, nil
}

func (r *studentRepo) Create(ctx context.Context, s *student.Student) error {
	query := `
		INSERT INTO students (roll_no, first_name, last_name, email, phone, department, batch, cgpa, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8::numeric / 100, $9)
		RETURNING id
	`
	createdAt := s.CreatedAt
	if createdAt.IsZero() {
		createdAt = r.t.now()
	}
	err := r.t.q.QueryRow(ctx, query,
		s.RollNo, s.FirstName, s.LastName, s.Email, s.Phone, s.Department,
		int(s.Batch), s.CGPA.Hundredths(), createdAt,
	).Scan(&s.ID)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrStudentAlreadyExists
		}
		return fmt.Errorf("failed to create student: %w", err)
	}
	s.CreatedAt = createdAt
	return nil
}

func (r *studentRepo) GetByID(ctx context.Context, id int64) (*student.Student, error) {
	s, err := scanStudent(r.t.q.QueryRow(ctx, `SELECT `+studentColumns+` FROM students WHERE id = $1`, id))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	return s, nil
}

func (r *studentRepo) Delete(ctx context.Context, id int64) error {
	var locked int64
	if err := r.t.q.QueryRow(ctx, `SELECT id FROM students WHERE id = $1 FOR UPDATE`, id).Scan(&locked); err != nil {
		if IsNoRows(err) {
			return shared.ErrStudentNotFound
		}
		return fmt.Errorf("failed to lock student: %w", err)
	}

	apps := &applicationRepo{r.t}
	ids, err := apps.idsWhere(ctx, "student_id", id)
	if err != nil {
		return err
	}
	for _, appID := range ids {
		if err := apps.Delete(ctx, appID); err != nil {
			return err
		}
	}

	if _, err := r.t.q.Exec(ctx, `DELETE FROM students WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete student: %w", err)
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Opportunities
// ──────────────────────────────────────────────────────────────────────────────

type opportunityRepo struct{ t *tx }

const opportunityColumns = `id, office_id, title, company, description, vacancy,
	(min_cgpa * 100)::int, posted_on, application_deadline, applications_count`

func scanOpportunity(row pgx.Row) (*opportunity.Opportunity, error) {
	var (
		o      opportunity.Opportunity
		minGPA int
	)
	err := row.Scan(&o.ID, &o.OfficeID, &o.Title, &o.Company, &o.Description, &o.Vacancy,
		&minGPA, &o.PostedOn, &o.Deadline, &o.ApplicationsCount)
	if err != nil {
		return nil, err
	}
	o.MinCGPA = shared.CGPA(minGPA)
	return &o, nil
}

func (r *opportunityRepo) CreateOffice(ctx context.Context, o *opportunity.Office) error {
	err := r.t.q.QueryRow(ctx,
		`INSERT INTO placement_offices (name, email) VALUES ($1, NULLIF($2, '')) RETURNING id`,
		o.Name, o.Email,
	).Scan(&o.ID)
	if err != nil {
		return fmt.Errorf("failed to create office: %w", err)
	}
	return nil
}

func (r *opportunityRepo) Create(ctx context.Context, o *opportunity.Opportunity) error {
	query := `
		INSERT INTO opportunities (office_id, title, company, description, vacancy, min_cgpa, posted_on, application_deadline)
		VALUES ($1, $2, $3, $4, $5, $6::numeric / 100, $7, $8)
		RETURNING id
	`
	err := r.t.q.QueryRow(ctx, query,
		o.OfficeID, o.Title, o.Company, o.Description, o.Vacancy,
		o.MinCGPA.Hundredths(), o.PostedOn, o.Deadline,
	).Scan(&o.ID)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return shared.ErrOfficeNotFound
		}
		return fmt.Errorf("failed to create opportunity: %w", err)
	}
	o.ApplicationsCount = 0
	return nil
}

func (r *opportunityRepo) GetByID(ctx context.Context, id int64) (*opportunity.Opportunity, error) {
	o, err := scanOpportunity(r.t.q.QueryRow(ctx, `SELECT `+opportunityColumns+` FROM opportunities WHERE id = $1`, id))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrOpportunityNotFound
		}
		return nil, fmt.Errorf("failed to get opportunity: %w", err)
	}
	return o, nil
}

func (r *opportunityRepo) Delete(ctx context.Context, id int64) error {
	var locked int64
	if err := r.t.q.QueryRow(ctx, `SELECT id FROM opportunities WHERE id = $1 FOR UPDATE`, id).Scan(&locked); err != nil {
		if IsNoRows(err) {
			return shared.ErrOpportunityNotFound
		}
		return fmt.Errorf("failed to lock opportunity: %w", err)
	}

	apps := &applicationRepo{r.t}
	ids, err := apps.idsWhere(ctx, "opportunity_id", id)
	if err != nil {
		return err
	}
	for _, appID := range ids {
		if err := apps.Delete(ctx, appID); err != nil {
			return err
		}
	}

	// Assessments cascade; announcements keep their row with a null reference.
	if _, err := r.t.q.Exec(ctx, `DELETE FROM opportunities WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete opportunity: %w", err)
	}
	return nil
}

func (r *opportunityRepo) ApplicationsCount(ctx context.Context, id int64) (int, error) {
	var n int
	err := r.t.q.QueryRow(ctx, `SELECT applications_count FROM opportunities WHERE id = $1`, id).Scan(&n)
	if err != nil {
		if IsNoRows(err) {
			return 0, shared.ErrOpportunityNotFound
		}
		return 0, fmt.Errorf("failed to get applications_count: %w", err)
	}
	return n, nil
}

func (r *opportunityRepo) Stats(ctx context.Context, id int64) (*opportunity.Stats, error) {
	query := `
		SELECT o.id, o.title, o.company, o.applications_count,
		       COUNT(a.id),
		       COALESCE(AVG(s.cgpa), 0)::float8
		FROM opportunities o
		LEFT JOIN applications a ON a.opportunity_id = o.id
		LEFT JOIN students s ON s.id = a.student_id
		WHERE o.id = $1
		GROUP BY o.id
	`
	var st opportunity.Stats
	err := r.t.q.QueryRow(ctx, query, id).Scan(
		&st.OpportunityID, &st.Title, &st.Company, &st.ApplicationsCount,
		&st.LiveApplications, &st.AverageCGPA,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrOpportunityNotFound
		}
		return nil, fmt.Errorf("failed to get opportunity stats: %w", err)
	}
	return &st, nil
}

func (r *opportunityRepo) IncrementApplications(ctx context.Context, id int64) error {
	return r.adjust(ctx, id, `UPDATE opportunities SET applications_count = applications_count + 1 WHERE id = $1`)
}

func (r *opportunityRepo) DecrementApplications(ctx context.Context, id int64) error {
	return r.adjust(ctx, id, `UPDATE opportunities SET applications_count = GREATEST(applications_count - 1, 0) WHERE id = $1`)
}

func (r *opportunityRepo) adjust(ctx context.Context, id int64, query string) error {
	tag, err := r.t.q.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to update applications_count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrOpportunityNotFound
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Applications
// ──────────────────────────────────────────────────────────────────────────────

type applicationRepo struct{ t *tx }

const applicationColumns = `id, student_id, opportunity_id, applied_on, status, remarks`

func scanApplication(row pgx.Row) (*application.Application, error) {
	var (
		a      application.Application
		status string
	)
	if err := row.Scan(&a.ID, &a.StudentID, &a.OpportunityID, &a.AppliedOn, &status, &a.Remarks); err != nil {
		return nil, err
	}
	a.Status = application.Status(status)
	return &a, nil
}

func (r *applicationRepo) Create(ctx context.Context, a *application.Application) error {
	query := `
		INSERT INTO applications (student_id, opportunity_id, applied_on, status, remarks)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := r.t.q.QueryRow(ctx, query,
		a.StudentID, a.OpportunityID, a.AppliedOn, string(a.Status), a.Remarks,
	).Scan(&a.ID)
	if err != nil {
		switch {
		case IsUniqueViolation(err):
			return shared.ErrDuplicateApplication
		case IsForeignKeyViolation(err):
			if strings.Contains(ConstraintName(err), "student") {
				return shared.ErrStudentNotFound
			}
			return shared.ErrOpportunityNotFound
		}
		return fmt.Errorf("failed to create application: %w", err)
	}

	return r.t.maintainer.OnCreated(ctx, a)
}

func (r *applicationRepo) get(ctx context.Context, query string, args ...any) (*application.Application, error) {
	a, err := scanApplication(r.t.q.QueryRow(ctx, query, args...))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrApplicationNotFound
		}
		return nil, fmt.Errorf("failed to get application: %w", err)
	}
	return a, nil
}

func (r *applicationRepo) GetByID(ctx context.Context, id int64) (*application.Application, error) {
	return r.get(ctx, `SELECT `+applicationColumns+` FROM applications WHERE id = $1`, id)
}

func (r *applicationRepo) GetForUpdate(ctx context.Context, id int64) (*application.Application, error) {
	return r.get(ctx, `SELECT `+applicationColumns+` FROM applications WHERE id = $1 FOR UPDATE`, id)
}

func (r *applicationRepo) FindByStudentAndOpportunity(ctx context.Context, studentID, opportunityID int64) (*application.Application, error) {
	a, err := r.get(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE student_id = $1 AND opportunity_id = $2`,
		studentID, opportunityID,
	)
	if shared.IsNotFound(err) {
		return nil, nil
	}
	return a, err
}

func (r *applicationRepo) ListByStudent(ctx context.Context, studentID int64) ([]*application.Application, error) {
	rows, err := r.t.q.Query(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE student_id = $1 ORDER BY applied_on DESC, id DESC`,
		studentID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	defer rows.Close()

	var out []*application.Application
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *applicationRepo) UpdateStatus(ctx context.Context, id int64, status application.Status) error {
	tag, err := r.t.q.Exec(ctx, `UPDATE applications SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("failed to update application status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrApplicationNotFound
	}
	return nil
}

func (r *applicationRepo) Delete(ctx context.Context, id int64) error {
	// Interviews go with the row through ON DELETE CASCADE.
	a, err := r.get(ctx, `DELETE FROM applications WHERE id = $1 RETURNING `+applicationColumns, id)
	if err != nil {
		return err
	}
	return r.t.maintainer.OnDeleted(ctx, a)
}

// idsWhere locks and returns the application IDs referencing an entity,
// in ascending order.
func (r *applicationRepo) idsWhere(ctx context.Context, column string, value int64) ([]int64, error) {
	rows, err := r.t.q.Query(ctx,
		fmt.Sprintf(`SELECT id FROM applications WHERE %s = $1 ORDER BY id FOR UPDATE`, column),
		value,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list dependent applications: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan application id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ──────────────────────────────────────────────────────────────────────────────
// Interviews
// ──────────────────────────────────────────────────────────────────────────────

type interviewRepo struct{ t *tx }

const interviewColumns = `id, application_id, scheduled_at, mode, venue, panel, result`

func scanInterview(row pgx.Row) (*interview.Interview, error) {
	var (
		i            interview.Interview
		mode, result string
	)
	if err := row.Scan(&i.ID, &i.ApplicationID, &i.ScheduledAt, &mode, &i.Venue, &i.Panel, &result); err != nil {
		return nil, err
	}
	i.Mode = interview.Mode(mode)
	i.Result = interview.Result(result)
	return &i, nil
}

func (r *interviewRepo) Create(ctx context.Context, i *interview.Interview) error {
	query := `
		INSERT INTO interviews (application_id, scheduled_at, mode, venue, panel, result)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := r.t.q.QueryRow(ctx, query,
		i.ApplicationID, i.ScheduledAt, string(i.Mode), i.Venue, i.Panel, string(i.Result),
	).Scan(&i.ID)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return shared.ErrApplicationNotFound
		}
		return fmt.Errorf("failed to create interview: %w", err)
	}
	return nil
}

func (r *interviewRepo) GetByID(ctx context.Context, id int64) (*interview.Interview, error) {
	i, err := scanInterview(r.t.q.QueryRow(ctx, `SELECT `+interviewColumns+` FROM interviews WHERE id = $1`, id))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrInterviewNotFound
		}
		return nil, fmt.Errorf("failed to get interview: %w", err)
	}
	return i, nil
}

func (r *interviewRepo) ListByApplication(ctx context.Context, applicationID int64) ([]*interview.Interview, error) {
	rows, err := r.t.q.Query(ctx,
		`SELECT `+interviewColumns+` FROM interviews WHERE application_id = $1 ORDER BY scheduled_at, id`,
		applicationID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list interviews: %w", err)
	}
	defer rows.Close()

	var out []*interview.Interview
	for rows.Next() {
		i, err := scanInterview(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan interview: %w", err)
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

func (r *interviewRepo) UpdateResult(ctx context.Context, id int64, result interview.Result) error {
	tag, err := r.t.q.Exec(ctx, `UPDATE interviews SET result = $2 WHERE id = $1`, id, string(result))
	if err != nil {
		return fmt.Errorf("failed to update interview result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrInterviewNotFound
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Audit
// ──────────────────────────────────────────────────────────────────────────────

type auditLog struct{ t *tx }

func (l *auditLog) Append(ctx context.Context, e *application.AuditEntry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = l.t.now()
	}
	query := `
		INSERT INTO application_audit (application_id, student_id, opportunity_id, action, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := l.t.q.QueryRow(ctx, query,
		e.ApplicationID, e.StudentID, e.OpportunityID, string(e.Action), e.Details, e.CreatedAt,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

func (l *auditLog) ListByApplication(ctx context.Context, applicationID int64) ([]*application.AuditEntry, error) {
	rows, err := l.t.q.Query(ctx, `
		SELECT id, application_id, student_id, opportunity_id, action, details, created_at
		FROM application_audit
		WHERE application_id = $1
		ORDER BY id
	`, applicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var out []*application.AuditEntry
	for rows.Next() {
		var (
			e      application.AuditEntry
			action string
			at     time.Time
		)
		if err := rows.Scan(&e.ID, &e.ApplicationID, &e.StudentID, &e.OpportunityID, &action, &e.Details, &at); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		e.Action = application.AuditAction(action)
		e.CreatedAt = at
		out = append(out, &e)
	}
	return out, rows.Err()
}
