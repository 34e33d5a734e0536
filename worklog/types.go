/*
Package worklog provides the core timer and ledger engine.

PURPOSE:
  This package contains the domain types and algorithms for tracking
  billable work: a Work is an engagement with an hourly rate and a
  deadline, a TimeEntry is one contiguous start->stop interval of
  tracked time, and earnings are derived from accumulated seconds.

KEY CONCEPTS IN THIS FILE (types.go):
  - Work: A billable engagement (rate, currency, date window, lifecycle)
  - TimeEntry: An append-only record of one timer session
  - TimerState: Read-only projection of a Work's timer
  - Date/DateRange: Calendar dates with no time component

DESIGN PRINCIPLES:
  1. Immutability: closed TimeEntries are never modified or deleted
  2. Derived state: lifecycle expiry is computed at read time, never stored
  3. Precision: money math uses decimal.Decimal, amounts are integer
     minor currency units (cents)
  4. Type Safety: strong typing for IDs prevents mixing work/entry IDs

SEE ALSO:
  - timer.go: Start/stop state machine and the open-session invariant
  - lifecycle.go: ACTIVE/FINISHED derivation
  - report.go: Date-range summaries
*/
package worklog

import "time"

// =============================================================================
// IDENTIFIERS
// =============================================================================

type WorkID string
type EntryID string
type UserID string

// =============================================================================
// DATE - Calendar date, no time component
// =============================================================================

// Date is a calendar date. The zero value is "no date".
// Internally normalized to midnight UTC so comparisons are exact.
type Date struct {
	t time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses "YYYY-MM-DD".
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return Date{t: t}, nil
}

// DateOf returns the calendar date of an instant, evaluated in UTC.
func DateOf(t time.Time) Date {
	u := t.UTC()
	return NewDate(u.Year(), u.Month(), u.Day())
}

func (d Date) Before(other Date) bool        { return d.t.Before(other.t) }
func (d Date) After(other Date) bool         { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool         { return d.t.Equal(other.t) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.Before(other) }
func (d Date) AddDays(n int) Date            { return Date{t: d.t.AddDate(0, 0, n)} }
func (d Date) IsZero() bool                  { return d.t.IsZero() }
func (d Date) String() string                { return d.t.Format("2006-01-02") }

// Time returns the date as midnight UTC.
func (d Date) Time() time.Time { return d.t }

// DateRange is an inclusive [From, To] calendar range.
type DateRange struct {
	From Date
	To   Date
}

// Contains reports whether d falls within the range.
func (r DateRange) Contains(d Date) bool {
	return d.AfterOrEqual(r.From) && d.BeforeOrEqual(r.To)
}

// Valid reports whether the range is well-formed (From <= To).
func (r DateRange) Valid() bool {
	return !r.From.IsZero() && !r.To.IsZero() && r.From.BeforeOrEqual(r.To)
}

// =============================================================================
// WORK - One billable engagement
// =============================================================================

type Work struct {
	ID         WorkID
	UserID     UserID
	Title      string
	SprintName string

	// Integer minor currency units per hour (e.g., cents). Never negative.
	HourlyRateCents int64
	Currency        string

	// Date window. EndDate >= StartDate, both inclusive.
	StartDate Date
	EndDate   Date

	// Set only by a manual close. A non-nil ClosedAt makes the Work
	// FINISHED/CLOSED regardless of its dates.
	ClosedAt     *time.Time
	ClosedReason string

	CreatedAt time.Time
}

// =============================================================================
// TIME ENTRY - One timer session (open or closed)
// =============================================================================

// TimeEntry records a single start->stop interval for a Work.
// An entry is created open (EndedAt nil, DurationSeconds 0) and mutated
// exactly once, to close it. Closed entries are immutable.
type TimeEntry struct {
	ID        EntryID
	WorkID    WorkID
	StartedAt time.Time
	EndedAt   *time.Time

	// Frozen at close time. Always 0 in storage while the entry is open;
	// live elapsed time is computed by the caller from StartedAt and Clock.
	DurationSeconds int64

	Note string
}

// Open reports whether the entry is still running.
func (e TimeEntry) Open() bool { return e.EndedAt == nil }

// =============================================================================
// TIMER STATE - Derived projection, not persisted
// =============================================================================

type TimerState struct {
	Running            bool
	StartedAt          *time.Time
	TotalClosedSeconds int64
	IsFinished         bool
	BlockedReason      BlockedReason
}
