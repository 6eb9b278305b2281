// Package opportunity holds the Opportunity aggregate posted by a placement office.
package opportunity

import (
	"fmt"
	"strings"
	"time"

	"github.com/placement-hub/placement-portal/internal/domain/shared"
)

// Opportunity is a recruiting opening that students apply to.
//
// ApplicationsCount is derived: it always equals the number of live
// applications referencing the opportunity and is written only by the
// application maintenance hooks.
type Opportunity struct {
	ID                int64       `json:"id"`
	OfficeID          int64       `json:"office_id"`
	Title             string      `json:"title"`
	Company           string      `json:"company"`
	Description       string      `json:"description,omitempty"`
	Vacancy           int         `json:"vacancy"`
	MinCGPA           shared.CGPA `json:"min_cgpa"`
	PostedOn          time.Time   `json:"posted_on"`
	Deadline          *time.Time  `json:"application_deadline,omitempty"`
	ApplicationsCount int         `json:"applications_count"`
}

// NewOpportunityParams are the inputs for posting an opportunity.
type NewOpportunityParams struct {
	OfficeID    int64
	Title       string
	Company     string
	Description string
	Vacancy     int
	MinCGPA     shared.CGPA
	Deadline    *time.Time
	// Today is the posting date as a civil date.
	Today time.Time
}

// NewOpportunity validates the params and builds an unsaved Opportunity.
func NewOpportunity(p NewOpportunityParams) (*Opportunity, error) {
	o := &Opportunity{
		OfficeID:    p.OfficeID,
		Title:       strings.TrimSpace(p.Title),
		Company:     strings.TrimSpace(p.Company),
		Description: strings.TrimSpace(p.Description),
		Vacancy:     p.Vacancy,
		MinCGPA:     p.MinCGPA,
		PostedOn:    p.Today,
		Deadline:    p.Deadline,
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	return o, nil
}

// Validate checks the opportunity's invariants.
func (o *Opportunity) Validate() error {
	if err := shared.ValidateID("office_id", o.OfficeID); err != nil {
		return err
	}
	if o.Title == "" {
		return fmt.Errorf("opportunity: title: %w", shared.ErrEmptyValue)
	}
	if o.Company == "" {
		return fmt.Errorf("opportunity: company: %w", shared.ErrEmptyValue)
	}
	if o.Vacancy < 0 {
		return shared.ErrInvalidVacancy
	}
	if !o.MinCGPA.IsValid() {
		return shared.ErrInvalidMinCGPA
	}
	if o.ApplicationsCount < 0 {
		return fmt.Errorf("opportunity: applications_count: %w", shared.ErrNegativeValue)
	}
	return nil
}

// HasDeadline reports whether applications close on a given date.
func (o *Opportunity) HasDeadline() bool {
	return o.Deadline != nil
}
