/*
store.go - Persistence contracts for Works and the entry ledger

PURPOSE:
  Defines the interface between the engine and the database. Different
  implementations can use SQLite or in-memory storage.

LEDGER CONTRACT:
  The EntryLedger is append-mostly. An entry is created open, mutated
  exactly once (to close it), and never deleted or touched again.
  There is no general Update and no Delete.

OPEN-SESSION INVARIANT:
  At most one entry per Work may be open at any time. Append MUST fail
  with ErrSessionAlreadyOpen when an open entry already exists for the
  Work, so the invariant holds even if two writers race past the
  engine's per-work lock.

IMPLEMENTATIONS:
  - store/sqlite:       Production SQLite (partial unique index enforces
                        the open-session invariant at the schema level)
  - worklog/store:      In-memory, for tests and development

SEE ALSO:
  - timer.go: The only writer of entries
  - report.go: Read-only consumer of closed entries
*/
package worklog

import (
	"context"
	"time"
)

// =============================================================================
// WORK STORE
// =============================================================================

// WorkStore persists Work records. All lookups are scoped to a user;
// a Work owned by someone else is indistinguishable from a missing one.
type WorkStore interface {
	// SaveWork persists a new Work.
	SaveWork(ctx context.Context, w Work) error

	// GetWork returns a Work or ErrWorkNotFound.
	GetWork(ctx context.Context, userID UserID, id WorkID) (Work, error)

	// ListWorks returns all Works for a user in insertion order.
	ListWorks(ctx context.Context, userID UserID) ([]Work, error)

	// MarkClosed records a manual close. Deliberately permissive: closing
	// an already-finished Work succeeds and overwrites ClosedAt/ClosedReason.
	MarkClosed(ctx context.Context, userID UserID, id WorkID, closedAt time.Time, reason string) (Work, error)
}

// =============================================================================
// ENTRY LEDGER
// =============================================================================

// EntryLedger persists TimeEntry records for all Works.
type EntryLedger interface {
	// Append records a new open entry (EndedAt nil, DurationSeconds 0).
	// Fails with ErrSessionAlreadyOpen if the Work already has one.
	Append(ctx context.Context, e TimeEntry) error

	// OpenEntry returns the Work's open entry, or nil when none exists.
	OpenEntry(ctx context.Context, workID WorkID) (*TimeEntry, error)

	// CloseEntry sets EndedAt and freezes DurationSeconds. This is the
	// single permitted mutation; closing twice fails with
	// ErrEntryAlreadyClosed.
	CloseEntry(ctx context.Context, id EntryID, endedAt time.Time, durationSeconds int64) (TimeEntry, error)

	// ClosedSeconds sums DurationSeconds over all closed entries of a Work.
	ClosedSeconds(ctx context.Context, workID WorkID) (int64, error)

	// RecentEntries returns a Work's entries newest-first, capped at
	// limit. A limit <= 0 means no cap.
	RecentEntries(ctx context.Context, workID WorkID, limit int) ([]TimeEntry, error)

	// ClosedInRange returns a Work's closed entries whose StartedAt
	// calendar date falls within the inclusive range, oldest first.
	ClosedInRange(ctx context.Context, workID WorkID, r DateRange) ([]TimeEntry, error)
}
