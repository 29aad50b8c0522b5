/*
errors.go - Centralized error types for the bookkeeping engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The API layer maps these onto HTTP status codes; callers inside the
  engine test them with errors.Is.

ERROR CATEGORIES:
  1. Validation errors - Malformed mutation input, rejected before any write
  2. Not-found errors - Referenced entry or category absent, no cascade runs
  3. Storage errors - Underlying read/write failures, retryable: the cascade
     re-derives aggregates from entries, so a retried mutation converges

SEE ALSO:
  - orchestrator.go: Where cascades abort on these errors
  - api/handlers.go: HTTP status mapping
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is the root of all pre-write input rejections.
	ErrValidation = errors.New("invalid input")

	// ErrEntryNotFound is returned when a referenced entry does not exist.
	ErrEntryNotFound = errors.New("entry not found")

	// ErrCategoryNotFound is returned when a referenced category does not exist.
	ErrCategoryNotFound = errors.New("category not found")

	// ErrCategoryInUse is returned when deleting a category that still has
	// ledger entries recorded against it.
	ErrCategoryInUse = errors.New("category still has ledger entries")

	// ErrStorage wraps any underlying read/write failure. Cascades abort on
	// it and the caller may retry; recomputation is idempotent.
	ErrStorage = errors.New("storage failure")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports a single rejected mutation field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// StorageError wraps a store failure with the operation that hit it.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return ErrStorage }

// PurgeError marks how far a bulk purge got before failing. Re-running the
// purge with the same range is safe; already-purged dates are no-ops.
type PurgeError struct {
	FailedDate Date
	Err        error
}

func (e *PurgeError) Error() string {
	return fmt.Sprintf("purge stopped at %s: %v", e.FailedDate, e.Err)
}

func (e *PurgeError) Unwrap() error { return ErrStorage }

// =============================================================================
// ERROR HELPERS
// =============================================================================

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStorage)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrCategoryInUse)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEntryNotFound) || errors.Is(err, ErrCategoryNotFound)
}
