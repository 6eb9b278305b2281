// Package student holds the Student aggregate. Students are registered by
// the placement office and are read-only from the application lifecycle's
// point of view.
package student

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/placement-hub/placement-portal/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Batch is the 4-digit graduation year of a student.
type Batch int

// IsValid checks that the batch is a 4-digit year.
func (b Batch) IsValid() bool {
	return b >= 1000 && b <= 9999
}

// ParseBatch parses a batch from its textual form ("2027").
func ParseBatch(s string) (Batch, error) {
	s = strings.TrimSpace(s)
	if len(s) != 4 {
		return 0, shared.ErrInvalidBatch
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, shared.ErrInvalidBatch
	}
	return Batch(n), nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// Student is a candidate who may apply to opportunities.
type Student struct {
	ID         int64       `json:"id"`
	RollNo     string      `json:"roll_no"`
	FirstName  string      `json:"first_name"`
	LastName   string      `json:"last_name"`
	Email      string      `json:"email"`
	Phone      string      `json:"phone,omitempty"`
	Department string      `json:"department"`
	Batch      Batch       `json:"batch"`
	CGPA       shared.CGPA `json:"cgpa"`
	CreatedAt  time.Time   `json:"created_at"`
}

// NewStudentParams are the inputs for registering a student.
type NewStudentParams struct {
	RollNo     string
	FirstName  string
	LastName   string
	Email      string
	Phone      string
	Department string
	Batch      Batch
	CGPA       shared.CGPA
	Now        time.Time
}

// NewStudent validates the params and builds an unsaved Student.
func NewStudent(p NewStudentParams) (*Student, error) {
	s := &Student{
		RollNo:     strings.TrimSpace(p.RollNo),
		FirstName:  strings.TrimSpace(p.FirstName),
		LastName:   strings.TrimSpace(p.LastName),
		Email:      strings.TrimSpace(p.Email),
		Phone:      strings.TrimSpace(p.Phone),
		Department: strings.TrimSpace(p.Department),
		Batch:      p.Batch,
		CGPA:       p.CGPA,
		CreatedAt:  p.Now,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks the student's invariants.
func (s *Student) Validate() error {
	required := []struct{ field, value string }{
		{"roll_no", s.RollNo},
		{"first_name", s.FirstName},
		{"last_name", s.LastName},
		{"email", s.Email},
		{"department", s.Department},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("student: %s: %w", r.field, shared.ErrEmptyValue)
		}
	}
	if !strings.Contains(s.Email, "@") {
		return fmt.Errorf("student: email: %w", shared.ErrInvalidFormat)
	}
	if !s.Batch.IsValid() {
		return shared.ErrInvalidBatch
	}
	if !s.CGPA.IsValid() {
		return shared.ErrInvalidCGPA
	}
	return nil
}

// FullName returns "First Last".
func (s *Student) FullName() string {
	return s.FirstName + " " + s.LastName
}
