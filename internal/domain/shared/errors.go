// Package shared contains common domain types, errors, events, and value objects
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
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrInvalidFormat   = errors.New("invalid format")

	// State errors
	ErrInvalidState    = errors.New("invalid state")
	ErrStateTransition = errors.New("invalid state transition")
	ErrAlreadyApplied  = errors.New("already applied")

	// Concurrency errors
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrOptimisticLock         = errors.New("optimistic lock failure")

	// Integrity errors
	ErrIntegrityDrift = errors.New("integrity drift detected")

	// External service errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "progression", "ledger", "badge"
	Op      string // Operation that failed, e.g., "Apply", "Claim"
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

// Progression domain errors
var (
	ErrProgressionNotFound = NewDomainError("progression", "Find", ErrNotFound, "progression state not found")
	ErrInvalidUserID       = NewDomainError("progression", "Validate", ErrInvalidID, "invalid user ID")
	ErrInvalidTimestamp    = NewDomainError("progression", "Validate", ErrInvalidInput, "invalid event timestamp")
	ErrStaleState          = NewDomainError("progression", "Save", ErrOptimisticLock, "progression state was modified concurrently")
)

// Ledger domain errors
var (
	ErrNegativeXPAmount    = NewDomainError("ledger", "Grant", ErrNegativeValue, "xp amount cannot be negative")
	ErrInvalidQuestionData = NewDomainError("ledger", "CalculateXP", ErrInvalidInput, "invalid question counts")
	ErrLedgerDrift         = NewDomainError("ledger", "Verify", ErrIntegrityDrift, "total xp diverged from ledger sum")
)

// Badge domain errors
var (
	ErrBadgeNotFound       = NewDomainError("badge", "Find", ErrNotFound, "badge not found")
	ErrBadgeNotEarned      = NewDomainError("badge", "Claim", ErrInvalidState, "badge has not been earned")
	ErrBadgeAlreadyEarned  = NewDomainError("badge", "Award", ErrAlreadyExists, "badge already earned")
	ErrDuplicateBadgeID    = NewDomainError("badge", "Register", ErrAlreadyExists, "duplicate badge id in registry")
	ErrMissingEvaluator    = NewDomainError("badge", "Register", ErrInvalidEntity, "criteria type has no evaluator")
	ErrInvalidBadgeTarget  = NewDomainError("badge", "Validate", ErrValueOutOfRange, "invalid criteria target value")
	ErrEmptyBadgeRegistry  = NewDomainError("badge", "Register", ErrEmptyValue, "badge registry is empty")
)

// Milestone table errors
var (
	ErrMilestoneCount     = NewDomainError("milestones", "Validate", ErrInvalidEntity, "milestone table must have exactly 100 entries")
	ErrMilestoneOrder     = NewDomainError("milestones", "Validate", ErrInvalidEntity, "milestone thresholds must be strictly increasing")
	ErrMilestoneBaseline  = NewDomainError("milestones", "Validate", ErrInvalidEntity, "level 1 threshold must be zero")
)

// Leaderboard domain errors
var (
	ErrLeaderboardNotFound = NewDomainError("leaderboard", "Find", ErrNotFound, "leaderboard not found")
	ErrInvalidRank         = NewDomainError("leaderboard", "Validate", ErrValueOutOfRange, "invalid rank")
	ErrUnknownLeague       = NewDomainError("leaderboard", "Validate", ErrInvalidInput, "unknown league tier")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange)
}

// IsConflict checks if the error is a concurrency conflict that can be retried.
func IsConflict(err error) bool {
	return errors.Is(err, ErrOptimisticLock) ||
		errors.Is(err, ErrConcurrentModification)
}

// IsIntegrityDrift checks if the error signals ledger/state divergence.
// Drift is a warning to reconcile, never a reason to fail a user request.
func IsIntegrityDrift(err error) bool {
	return errors.Is(err, ErrIntegrityDrift)
}
