package opportunity

import (
	"context"
)

// Office is a placement office that owns opportunities.
type Office struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// Stats is the read-side aggregate over an opportunity's live applications.
type Stats struct {
	OpportunityID     int64   `json:"opportunity_id"`
	Title             string  `json:"title"`
	Company           string  `json:"company"`
	ApplicationsCount int     `json:"applications_count"`
	LiveApplications  int     `json:"live_applications"`
	AverageCGPA       float64 `json:"average_cgpa"`
}

// Repository defines storage operations for opportunities and their offices.
type Repository interface {
	// CreateOffice assigns an ID and stores the office.
	CreateOffice(ctx context.Context, o *Office) error

	// Create assigns an ID and stores the opportunity with a zero counter.
	// Returns ErrOfficeNotFound when the office does not exist.
	Create(ctx context.Context, o *Opportunity) error

	// GetByID returns the opportunity or ErrOpportunityNotFound.
	GetByID(ctx context.Context, id int64) (*Opportunity, error)

	// Delete removes the opportunity. Every application referencing it is
	// removed first through the application repository so that its
	// maintenance hooks fire; announcements lose their reference.
	Delete(ctx context.Context, id int64) error

	// ApplicationsCount returns the committed applicant counter or
	// ErrOpportunityNotFound.
	ApplicationsCount(ctx context.Context, id int64) (int, error)

	// Stats returns the aggregate over live applications.
	Stats(ctx context.Context, id int64) (*Stats, error)

	// IncrementApplications adds one to the applicant counter.
	IncrementApplications(ctx context.Context, id int64) error

	// DecrementApplications subtracts one from the applicant counter,
	// never going below zero.
	DecrementApplications(ctx context.Context, id int64) error
}
