package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATOR
// ══════════════════════════════════════════════════════════════════════════════

// Migration is one forward/backward schema step.
type Migration struct {
	Version int
	Name    string
	UpSQL   string
	DownSQL string
}

// Migrator applies the embedded migrations and records them in
// schema_migrations.
type Migrator struct {
	conn       *Connection
	migrations []Migration
}

// NewMigrator creates a migrator over the embedded migrations.
func NewMigrator(conn *Connection) *Migrator {
	return &Migrator{conn: conn, migrations: migrations()}
}

const migrationTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version INTEGER PRIMARY KEY,
    name TEXT NOT NULL,
    applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
)`

// Applied returns the applied versions and when they were applied.
func (m *Migrator) Applied(ctx context.Context) (map[int]time.Time, error) {
	applied := make(map[int]time.Time)
	err := m.conn.WithTx(ctx, writeTx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, migrationTable); err != nil {
			return fmt.Errorf("failed to create migrations table: %w", err)
		}
		rows, err := tx.Query(ctx, "SELECT version, applied_at FROM schema_migrations ORDER BY version")
		if err != nil {
			return fmt.Errorf("failed to query applied migrations: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var version int
			var appliedAt time.Time
			if err := rows.Scan(&version, &appliedAt); err != nil {
				return fmt.Errorf("failed to scan migration row: %w", err)
			}
			applied[version] = appliedAt
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return applied, nil
}

// Migrate applies all pending migrations, each in its own transaction.
func (m *Migrator) Migrate(ctx context.Context) error {
	applied, err := m.Applied(ctx)
	if err != nil {
		return err
	}

	for _, mig := range m.migrations {
		if _, ok := applied[mig.Version]; ok {
			continue
		}

		err := m.conn.WithTx(ctx, writeTx, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, mig.UpSQL); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, "INSERT INTO schema_migrations (version, name) VALUES ($1, $2)", mig.Version, mig.Name)
			return err
		})
		if err != nil {
			return fmt.Errorf("%w: version %d: %v", ErrMigrationFailed, mig.Version, err)
		}
	}
	return nil
}

// Rollback reverts the most recently applied migration. It is a no-op on
// an empty schema.
func (m *Migrator) Rollback(ctx context.Context) error {
	applied, err := m.Applied(ctx)
	if err != nil {
		return err
	}

	var last *Migration
	for i := range m.migrations {
		if _, ok := applied[m.migrations[i].Version]; ok {
			last = &m.migrations[i]
		}
	}
	if last == nil {
		return nil
	}

	err = m.conn.WithTx(ctx, writeTx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, last.DownSQL); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, "DELETE FROM schema_migrations WHERE version = $1", last.Version)
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: rollback %d: %v", ErrMigrationFailed, last.Version, err)
	}
	return nil
}

func migrations() []Migration {
	return []Migration{
		{Version: 1, Name: "create_core_entities", UpSQL: migration001Up, DownSQL: migration001Down},
		{Version: 2, Name: "create_applications", UpSQL: migration002Up, DownSQL: migration002Down},
		{Version: 3, Name: "create_interviews_and_audit", UpSQL: migration003Up, DownSQL: migration003Down},
		{Version: 4, Name: "cascade_applications", UpSQL: migration004Up, DownSQL: migration004Down},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CORE ENTITIES
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create offices, students, opportunities and satellites
-- Version: 001

CREATE TABLE IF NOT EXISTS placement_offices (
    id BIGSERIAL PRIMARY KEY,
    name VARCHAR(120) NOT NULL,
    email VARCHAR(120),
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS students (
    id BIGSERIAL PRIMARY KEY,
    roll_no VARCHAR(30) NOT NULL UNIQUE,
    first_name VARCHAR(60) NOT NULL,
    last_name VARCHAR(60) NOT NULL,
    email VARCHAR(120) NOT NULL UNIQUE,
    phone VARCHAR(20),
    department VARCHAR(60) NOT NULL,
    batch SMALLINT NOT NULL,
    cgpa NUMERIC(4,2) NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_batch CHECK (batch BETWEEN 1000 AND 9999),
    CONSTRAINT valid_cgpa CHECK (cgpa >= 0 AND cgpa <= 10)
);

CREATE INDEX IF NOT EXISTS idx_students_department ON students(department);

CREATE TABLE IF NOT EXISTS opportunities (
    id BIGSERIAL PRIMARY KEY,
    office_id BIGINT NOT NULL REFERENCES placement_offices(id),
    title VARCHAR(150) NOT NULL,
    company VARCHAR(150) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    vacancy INTEGER NOT NULL,
    min_cgpa NUMERIC(4,2) NOT NULL DEFAULT 0,
    posted_on DATE NOT NULL DEFAULT CURRENT_DATE,
    application_deadline DATE,
    applications_count INTEGER NOT NULL DEFAULT 0,

    CONSTRAINT valid_vacancy CHECK (vacancy >= 0),
    CONSTRAINT valid_min_cgpa CHECK (min_cgpa >= 0 AND min_cgpa <= 10),
    CONSTRAINT valid_applications_count CHECK (applications_count >= 0)
);

CREATE INDEX IF NOT EXISTS idx_opportunities_office_id ON opportunities(office_id);
CREATE INDEX IF NOT EXISTS idx_opportunities_deadline ON opportunities(application_deadline);

-- Announcements outlive the opportunity they mention
CREATE TABLE IF NOT EXISTS announcements (
    id BIGSERIAL PRIMARY KEY,
    office_id BIGINT NOT NULL REFERENCES placement_offices(id),
    opportunity_id BIGINT REFERENCES opportunities(id) ON DELETE SET NULL,
    title VARCHAR(150) NOT NULL,
    content TEXT NOT NULL,
    post_date TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    valid_until DATE
);

CREATE TABLE IF NOT EXISTS assessments (
    id BIGSERIAL PRIMARY KEY,
    opportunity_id BIGINT NOT NULL REFERENCES opportunities(id) ON DELETE CASCADE,
    title VARCHAR(150) NOT NULL,
    max_marks INTEGER NOT NULL,
    date_scheduled DATE,
    mode VARCHAR(10) NOT NULL DEFAULT 'ONLINE',
    duration_minutes INTEGER,
    description TEXT
);
`

const migration001Down = `
DROP TABLE IF EXISTS assessments;
DROP TABLE IF EXISTS announcements;
DROP TABLE IF EXISTS opportunities;
DROP TABLE IF EXISTS students;
DROP TABLE IF EXISTS placement_offices;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: APPLICATIONS
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Create applications
-- Version: 002

CREATE TABLE IF NOT EXISTS applications (
    id BIGSERIAL PRIMARY KEY,
    student_id BIGINT NOT NULL REFERENCES students(id),
    opportunity_id BIGINT NOT NULL REFERENCES opportunities(id),
    applied_on TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    status VARCHAR(30) NOT NULL DEFAULT 'APPLIED',
    remarks TEXT NOT NULL DEFAULT '',

    CONSTRAINT uq_applications_student_opportunity UNIQUE (student_id, opportunity_id),
    CONSTRAINT valid_status CHECK (status IN (
        'APPLIED', 'SHORTLISTED', 'INTERVIEW_SCHEDULED', 'OFFERED', 'REJECTED', 'WITHDRAWN'
    ))
);

CREATE INDEX IF NOT EXISTS idx_applications_opportunity_id ON applications(opportunity_id);
CREATE INDEX IF NOT EXISTS idx_applications_student_applied ON applications(student_id, applied_on DESC);
`

const migration002Down = `
DROP TABLE IF EXISTS applications;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: INTERVIEWS AND AUDIT
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
-- Migration: Create interviews and the application audit trail
-- Version: 003

CREATE TABLE IF NOT EXISTS interviews (
    id BIGSERIAL PRIMARY KEY,
    application_id BIGINT NOT NULL REFERENCES applications(id) ON DELETE CASCADE,
    scheduled_at TIMESTAMP WITH TIME ZONE NOT NULL,
    mode VARCHAR(10) NOT NULL,
    venue VARCHAR(150) NOT NULL DEFAULT '',
    panel VARCHAR(255) NOT NULL DEFAULT '',
    result VARCHAR(15) NOT NULL DEFAULT 'PENDING',

    CONSTRAINT valid_mode CHECK (mode IN ('ONLINE', 'OFFLINE')),
    CONSTRAINT valid_result CHECK (result IN ('PENDING', 'PASS', 'FAIL', 'RESCHEDULED'))
);

CREATE INDEX IF NOT EXISTS idx_interviews_application_id ON interviews(application_id);

-- No foreign key: entries must survive deletion of the application they describe
CREATE TABLE IF NOT EXISTS application_audit (
    id BIGSERIAL PRIMARY KEY,
    application_id BIGINT NOT NULL,
    student_id BIGINT NOT NULL,
    opportunity_id BIGINT NOT NULL,
    action VARCHAR(20) NOT NULL,
    details TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_action CHECK (action IN ('CREATE', 'DELETE', 'STATUS_CHANGE', 'WITHDRAW'))
);

CREATE INDEX IF NOT EXISTS idx_application_audit_application ON application_audit(application_id, id);
`

const migration003Down = `
DROP TABLE IF EXISTS application_audit;
DROP TABLE IF EXISTS interviews;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 004: STORAGE-LEVEL CASCADES
// ══════════════════════════════════════════════════════════════════════════════

const migration004Up = `
-- Migration: Cascade application removal and maintain counters for writes
-- that bypass the repositories
-- Version: 004

ALTER TABLE applications
    DROP CONSTRAINT IF EXISTS applications_student_id_fkey,
    DROP CONSTRAINT IF EXISTS applications_opportunity_id_fkey,
    ADD CONSTRAINT applications_student_id_fkey
        FOREIGN KEY (student_id) REFERENCES students(id) ON DELETE CASCADE,
    ADD CONSTRAINT applications_opportunity_id_fkey
        FOREIGN KEY (opportunity_id) REFERENCES opportunities(id) ON DELETE CASCADE;

-- Repository transactions set portal.hooks and do this work themselves
CREATE OR REPLACE FUNCTION maintain_applications() RETURNS trigger AS $$
BEGIN
    IF current_setting('portal.hooks', true) = 'on' THEN
        RETURN NULL;
    END IF;

    IF TG_OP = 'INSERT' THEN
        UPDATE opportunities SET applications_count = applications_count + 1
        WHERE id = NEW.opportunity_id;
        INSERT INTO application_audit (application_id, student_id, opportunity_id, action, details)
        VALUES (NEW.id, NEW.student_id, NEW.opportunity_id, 'CREATE',
                'Created by student_id=' || NEW.student_id);
    ELSE
        UPDATE opportunities SET applications_count = GREATEST(applications_count - 1, 0)
        WHERE id = OLD.opportunity_id;
        INSERT INTO application_audit (application_id, student_id, opportunity_id, action, details)
        VALUES (OLD.id, OLD.student_id, OLD.opportunity_id, 'DELETE',
                'Deleted for student_id=' || OLD.student_id);
    END IF;
    RETURN NULL;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS trg_maintain_applications ON applications;
CREATE TRIGGER trg_maintain_applications
    AFTER INSERT OR DELETE ON applications
    FOR EACH ROW EXECUTE FUNCTION maintain_applications();
`

const migration004Down = `
DROP TRIGGER IF EXISTS trg_maintain_applications ON applications;
DROP FUNCTION IF EXISTS maintain_applications();

ALTER TABLE applications
    DROP CONSTRAINT IF EXISTS applications_student_id_fkey,
    DROP CONSTRAINT IF EXISTS applications_opportunity_id_fkey,
    ADD CONSTRAINT applications_student_id_fkey
        FOREIGN KEY (student_id) REFERENCES students(id),
    ADD CONSTRAINT applications_opportunity_id_fkey
        FOREIGN KEY (opportunity_id) REFERENCES opportunities(id);
`
