/*
errors.go - Centralized error types for the leave engine

PURPOSE:
  All error kinds in one place for consistency and discoverability.
  Domain packages return these so transports can map them without
  knowing which component failed.

ERROR CATEGORIES:
  1. Validation errors - Malformed input, rejected before any read
  2. Policy violations - Request conflicts with the entitlement
  3. Not found - Staff or leave id absent
  4. Synchronization failures - Attendance writes after approval (logged only)

USAGE:
  if errors.Is(err, generic.ErrPolicyViolation) {
      var pv *generic.PolicyViolationError
      errors.As(err, &pv)
      render(pv.Details)
  }
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned for malformed requests (missing half-day
	// session, bad dates, unknown status target).
	ErrValidation = errors.New("validation failed")

	// ErrPolicyViolation is returned when a request conflicts with the
	// leave entitlement (category not allowed, limit exhausted, ...).
	ErrPolicyViolation = errors.New("policy violation")

	// ErrNotFound is returned when a referenced staff member or leave
	// request doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrSynchronization wraps attendance write failures.
	ErrSynchronization = errors.New("attendance synchronization failed")

	// ErrInvalidPeriod is returned when a period is malformed (end before start).
	ErrInvalidPeriod = errors.New("invalid period: end before start")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError describes a rejected input.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }
func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError builds a ValidationError.
func NewValidationError(code, message string) *ValidationError {
	return &ValidationError{Code: code, Message: message}
}

// PolicyViolationError carries the numeric breakdown behind a rejection so
// callers can render an explanatory message.
type PolicyViolationError struct {
	Code                string
	Message             string
	Details             map[string]any
	AvailableCategories []string
}

func (e *PolicyViolationError) Error() string { return e.Message }
func (e *PolicyViolationError) Unwrap() error { return ErrPolicyViolation }

// NotFoundError names the missing record.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// SyncError is a per-day attendance failure.
type SyncError struct {
	Date TimePoint
	Err  error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("attendance %s: %v", e.Date, e.Err)
}

func (e *SyncError) Unwrap() []error { return []error{ErrSynchronization, e.Err} }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input
// or a policy decision rather than a system failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrPolicyViolation) ||
		errors.Is(err, ErrInvalidPeriod)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
