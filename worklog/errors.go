/*
errors.go - Centralized error types for the worklog engine

PURPOSE:
  All engine error types in one place for consistency and discoverability.
  The API layer maps these onto HTTP status codes.

ERROR CATEGORIES:
  1. Not-found errors  - Unknown Work or entry IDs (no side effects)
  2. Validation errors - Malformed input (bad dates, negative rate);
                         the operation is not applied, no partial state
  3. Lifecycle errors  - Starting a timer on a FINISHED Work
  4. Storage errors    - Underlying persistence failures; never retried
                         inside the engine, retry policy belongs to the
                         caller

NOT ERRORS:
  Double-start and double-stop are idempotent no-ops reported through a
  status flag, because the primary client is a best-effort UI that may
  retry or race with itself. See timer.go.
*/
package worklog

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrWorkNotFound is returned when a referenced Work doesn't exist
	// (or belongs to another user).
	ErrWorkNotFound = errors.New("work not found")

	// ErrEntryNotFound is returned when a referenced time entry doesn't exist.
	ErrEntryNotFound = errors.New("time entry not found")

	// ErrEntryAlreadyClosed is returned when closing an entry that was
	// already closed. Entries are mutated exactly once.
	ErrEntryAlreadyClosed = errors.New("time entry already closed")

	// ErrSessionAlreadyOpen is returned by the ledger when appending an
	// open entry for a Work that already has one. This backs the
	// at-most-one-open-session invariant at the storage level.
	ErrSessionAlreadyOpen = errors.New("open session already exists")

	// ErrWorkFinished is returned when starting a timer on a FINISHED Work.
	ErrWorkFinished = errors.New("work finished")

	// ErrInvalidPeriod is returned when a date range is malformed (end before start).
	ErrInvalidPeriod = errors.New("invalid period: end before start")

	// ErrStorage wraps persistence failures surfaced to callers.
	ErrStorage = errors.New("storage failure")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports malformed input. The operation was not applied.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// WorkFinishedError reports why a timer could not be started: the Work
// is past its deadline (EXPIRED) or was manually closed (CLOSED).
type WorkFinishedError struct {
	WorkID WorkID
	Reason BlockedReason
}

func (e *WorkFinishedError) Error() string {
	return fmt.Sprintf("work %s is finished (%s)", e.WorkID, e.Reason)
}

func (e *WorkFinishedError) Unwrap() error {
	return ErrWorkFinished
}

// StorageError wraps a low-level persistence failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return ErrStorage
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrWorkNotFound) || errors.Is(err, ErrEntryNotFound)
}

// IsClientError returns true if the error is due to invalid client input
// rather than an engine or storage fault.
func IsClientError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve) ||
		errors.Is(err, ErrWorkFinished) ||
		errors.Is(err, ErrInvalidPeriod)
}
