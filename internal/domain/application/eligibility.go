package application

import (
	"errors"
	"time"

	"github.com/placement-hub/placement-portal/internal/domain/opportunity"
	"github.com/placement-hub/placement-portal/internal/domain/shared"
	"github.com/placement-hub/placement-portal/internal/domain/student"
	"github.com/placement-hub/placement-portal/pkg/timeutil"
)

// RejectionReason is the machine-readable reason a create attempt failed.
type RejectionReason string

const (
	ReasonStudentNotFound     RejectionReason = "student_not_found"
	ReasonOpportunityNotFound RejectionReason = "opportunity_not_found"
	ReasonDuplicate           RejectionReason = "duplicate_application"
	ReasonBelowThreshold      RejectionReason = "below_eligibility_threshold"
	ReasonDeadlinePassed      RejectionReason = "deadline_passed"
)

// Eligibility is the snapshot the validator decides on. A nil Student or
// Opportunity means the record does not exist; a nil Existing means the
// student holds no live application to the opportunity.
type Eligibility struct {
	Student     *student.Student
	Opportunity *opportunity.Opportunity
	Existing    *Application
	// Today is the current civil date in the campus timezone.
	Today time.Time
}

// Validate decides whether the student may apply. Checks run in a fixed
// order and the first failure wins. It performs no I/O.
func Validate(e Eligibility) error {
	if e.Student == nil {
		return shared.ErrStudentNotFound
	}
	if e.Opportunity == nil {
		return shared.ErrOpportunityNotFound
	}
	if e.Existing != nil {
		return shared.ErrDuplicateApplication
	}
	if !e.Student.CGPA.AtLeast(e.Opportunity.MinCGPA) {
		return shared.ErrBelowEligibilityThreshold
	}
	if e.Opportunity.Deadline != nil && DaysUntil(*e.Opportunity.Deadline, e.Today) < 0 {
		return shared.ErrDeadlinePassed
	}
	return nil
}

// DaysUntil returns the number of whole civil days from today to date.
// Only the calendar components of each value are compared.
func DaysUntil(date, today time.Time) int {
	return timeutil.DaysBetween(today, date)
}

// ReasonOf maps a validator error to its RejectionReason. It returns an
// empty reason for errors the validator does not produce.
func ReasonOf(err error) RejectionReason {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, shared.ErrStudentNotFound):
		return ReasonStudentNotFound
	case errors.Is(err, shared.ErrOpportunityNotFound):
		return ReasonOpportunityNotFound
	case errors.Is(err, shared.ErrDuplicateApplication):
		return ReasonDuplicate
	case errors.Is(err, shared.ErrBelowEligibilityThreshold):
		return ReasonBelowThreshold
	case errors.Is(err, shared.ErrDeadlinePassed):
		return ReasonDeadlinePassed
	default:
		return ""
	}
}
