// Package interview holds the Interview entity. Rescheduling is modelled as
// a new interview record; existing records only change their result.
package interview

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/placement-hub/placement-portal/internal/domain/shared"
)

// Mode is how the interview is conducted.
type Mode string

const (
	ModeOnline  Mode = "ONLINE"
	ModeOffline Mode = "OFFLINE"
)

// IsValid checks that the mode is known.
func (m Mode) IsValid() bool {
	return m == ModeOnline || m == ModeOffline
}

// Result is the outcome of an interview.
type Result string

const (
	ResultPending     Result = "PENDING"
	ResultPass        Result = "PASS"
	ResultFail        Result = "FAIL"
	ResultRescheduled Result = "RESCHEDULED"
)

// IsValid checks that the result is known.
func (r Result) IsValid() bool {
	switch r {
	case ResultPending, ResultPass, ResultFail, ResultRescheduled:
		return true
	default:
		return false
	}
}

// Interview is a scheduled meeting for one application.
type Interview struct {
	ID            int64     `json:"id"`
	ApplicationID int64     `json:"application_id"`
	ScheduledAt   time.Time `json:"scheduled_at"`
	Mode          Mode      `json:"mode"`
	Venue         string    `json:"venue"`
	Panel         string    `json:"panel"`
	Result        Result    `json:"result"`
}

// New builds an unsaved interview with a PENDING result.
func New(applicationID int64, at time.Time, mode Mode, venue, panel string) (*Interview, error) {
	if !mode.IsValid() {
		return nil, shared.ErrInvalidMode
	}
	if at.IsZero() {
		return nil, fmt.Errorf("interview: scheduled_at: %w", shared.ErrEmptyValue)
	}
	return &Interview{
		ApplicationID: applicationID,
		ScheduledAt:   at,
		Mode:          mode,
		Venue:         strings.TrimSpace(venue),
		Panel:         strings.TrimSpace(panel),
		Result:        ResultPending,
	}, nil
}

// Repository defines storage operations for interviews.
type Repository interface {
	// Create assigns an ID and stores the interview.
	Create(ctx context.Context, i *Interview) error

	// GetByID returns the interview or ErrInterviewNotFound.
	GetByID(ctx context.Context, id int64) (*Interview, error)

	// ListByApplication returns the application's interviews by schedule time.
	ListByApplication(ctx context.Context, applicationID int64) ([]*Interview, error)

	// UpdateResult sets the result. Returns ErrInterviewNotFound.
	UpdateResult(ctx context.Context, id int64, result Result) error
}
