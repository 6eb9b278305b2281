// Package shared contains common domain types, errors and events
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrInvalidFormat   = errors.New("invalid format")

	// Eligibility errors
	ErrNotEligible = errors.New("not eligible")
	ErrExpired     = errors.New("expired")

	// State errors
	ErrInvalidState    = errors.New("invalid state")
	ErrStateTransition = errors.New("invalid state transition")

	// Authorization errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Infrastructure errors
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "application", "interview", "opportunity"
	Op      string // Operation that failed, e.g., "Create", "Schedule"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if t, ok := target.(*DomainError); ok {
		return e.Domain == t.Domain && e.Op == t.Op && e.Message == t.Message
	}
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Student domain errors
var (
	ErrStudentNotFound      = NewDomainError("student", "Find", ErrNotFound, "student not found")
	ErrStudentAlreadyExists = NewDomainError("student", "Create", ErrAlreadyExists, "student already exists")
	ErrInvalidBatch         = NewDomainError("student", "Validate", ErrInvalidFormat, "batch must be a 4-digit year")
	ErrInvalidCGPA          = NewDomainError("student", "Validate", ErrValueOutOfRange, "cgpa must be between 0.00 and 10.00")
)

// Opportunity domain errors
var (
	ErrOpportunityNotFound = NewDomainError("opportunity", "Find", ErrNotFound, "opportunity not found")
	ErrOfficeNotFound      = NewDomainError("opportunity", "FindOffice", ErrNotFound, "placement office not found")
	ErrInvalidVacancy      = NewDomainError("opportunity", "Validate", ErrNegativeValue, "vacancy cannot be negative")
	ErrInvalidMinCGPA      = NewDomainError("opportunity", "Validate", ErrValueOutOfRange, "min cgpa must be between 0.00 and 10.00")
)

// Application domain errors
var (
	ErrApplicationNotFound       = NewDomainError("application", "Find", ErrNotFound, "application not found")
	ErrDuplicateApplication      = NewDomainError("application", "Create", ErrAlreadyExists, "student already applied to this opportunity")
	ErrBelowEligibilityThreshold = NewDomainError("application", "Create", ErrNotEligible, "student cgpa is below the opportunity minimum")
	ErrDeadlinePassed            = NewDomainError("application", "Create", ErrExpired, "application deadline has passed")
	ErrInvalidStatusTransition   = NewDomainError("application", "ChangeStatus", ErrStateTransition, "invalid application status transition")
	ErrInvalidStatus             = NewDomainError("application", "Validate", ErrInvalidInput, "invalid application status")
)

// Interview domain errors
var (
	ErrInterviewNotFound = NewDomainError("interview", "Find", ErrNotFound, "interview not found")
	ErrInvalidMode       = NewDomainError("interview", "Validate", ErrInvalidInput, "interview mode must be ONLINE or OFFLINE")
	ErrInvalidResult     = NewDomainError("interview", "Validate", ErrInvalidInput, "invalid interview result")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsRejection checks if the error is an eligibility rejection raised before any write.
func IsRejection(err error) bool {
	return errors.Is(err, ErrNotEligible) || errors.Is(err, ErrExpired)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange) ||
		errors.Is(err, ErrInvalidFormat)
}

// IsRetryable checks if the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout)
}
