/*
timer.go - Timer state machine per Work

PURPOSE:
  The TimerEngine is the single writer of TimeEntries. Per Work the state
  machine has two states, NO_OPEN_SESSION and SESSION_OPEN, and the
  engine owns the invariant that at most one entry per Work is open at
  any time.

TRANSITIONS:
  Start: NO_OPEN_SESSION -> SESSION_OPEN   (new open entry, "started")
         SESSION_OPEN    -> SESSION_OPEN   (no-op, "already_running")
  Stop:  SESSION_OPEN    -> NO_OPEN_SESSION (entry closed, "stopped")
         NO_OPEN_SESSION -> NO_OPEN_SESSION (no-op, "not_running")

LIFECYCLE GATING:
  Start is rejected with WorkFinishedError once a Work is FINISHED
  (expired deadline or manual close). Stop is ALWAYS permitted - finishing
  blocks new starts, never blocks settling an open session.

IDEMPOTENCY:
  Double-start returns the existing open entry unchanged and double-stop
  reports "not_running"; neither is an error. The primary client is a
  best-effort UI that may retry or race with itself.

CONCURRENCY:
  Start/Stop on the same Work are serialized through a per-Work mutex.
  Operations on different Works proceed in parallel. The ledger's
  ErrSessionAlreadyOpen is the storage-level backstop should another
  writer bypass the lock.

SEE ALSO:
  - work.go: Work creation and manual close (which settles open sessions)
  - store.go: Ledger contract
*/
package worklog

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status reports the outcome of a start/stop request.
type Status string

const (
	StatusStarted        Status = "started"
	StatusAlreadyRunning Status = "already_running"
	StatusStopped        Status = "stopped"
	StatusNotRunning     Status = "not_running"
)

// StartResult is the outcome of TimerEngine.Start.
type StartResult struct {
	Status Status
	Entry  TimeEntry
}

// StopResult is the outcome of TimerEngine.Stop.
// Entry is nil when Status is "not_running".
type StopResult struct {
	Status Status
	Entry  *TimeEntry
}

// =============================================================================
// TIMER ENGINE
// =============================================================================

type TimerEngine struct {
	works  WorkStore
	ledger EntryLedger
	clock  Clock

	mu    sync.Mutex
	locks map[WorkID]*sync.Mutex
}

func NewTimerEngine(works WorkStore, ledger EntryLedger, clock Clock) *TimerEngine {
	if clock == nil {
		clock = SystemClock{}
	}
	return &TimerEngine{
		works:  works,
		ledger: ledger,
		clock:  clock,
		locks:  make(map[WorkID]*sync.Mutex),
	}
}

// lockFor returns the mutex serializing timer mutations for one Work.
// Entries are never evicted, even for closed Works: safe eviction would
// need refcounting against in-flight holders, and a mutex per Work ever
// seen stays small at this cardinality.
func (t *TimerEngine) lockFor(id WorkID) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.locks[id]
	if !ok {
		l = &sync.Mutex{}
		t.locks[id] = l
	}
	return l
}

// Start opens a timer session for a Work.
//
// Fails with ErrWorkNotFound for an unknown Work and with
// WorkFinishedError when the Work is FINISHED. If a session is already
// open the existing entry is returned unchanged with "already_running".
func (t *TimerEngine) Start(ctx context.Context, userID UserID, workID WorkID) (StartResult, error) {
	lock := t.lockFor(workID)
	lock.Lock()
	defer lock.Unlock()

	// Fetched under the lock: a concurrent Close holds the same lock, so
	// the lifecycle check below never runs on a pre-close snapshot.
	w, err := t.works.GetWork(ctx, userID, workID)
	if err != nil {
		return StartResult{}, err
	}

	now := t.clock.Now()
	if eff := EffectiveState(w, now); eff.Finished() {
		return StartResult{}, &WorkFinishedError{WorkID: workID, Reason: eff.Reason}
	}

	open, err := t.ledger.OpenEntry(ctx, workID)
	if err != nil {
		return StartResult{}, err
	}
	if open != nil {
		return StartResult{Status: StatusAlreadyRunning, Entry: *open}, nil
	}

	entry := TimeEntry{
		ID:        EntryID(uuid.NewString()),
		WorkID:    workID,
		StartedAt: now,
	}
	if err := t.ledger.Append(ctx, entry); err != nil {
		if errors.Is(err, ErrSessionAlreadyOpen) {
			// Lost a race with another writer; report the winner's session.
			if open, lookupErr := t.ledger.OpenEntry(ctx, workID); lookupErr == nil && open != nil {
				return StartResult{Status: StatusAlreadyRunning, Entry: *open}, nil
			}
		}
		return StartResult{}, err
	}
	return StartResult{Status: StatusStarted, Entry: entry}, nil
}

// Stop closes the open session for a Work, if any.
//
// The closed entry's duration is floor(now - started_at) in whole
// seconds, clamped to >= 0. Stopping a FINISHED Work is permitted.
func (t *TimerEngine) Stop(ctx context.Context, userID UserID, workID WorkID) (StopResult, error) {
	if _, err := t.works.GetWork(ctx, userID, workID); err != nil {
		return StopResult{}, err
	}

	lock := t.lockFor(workID)
	lock.Lock()
	defer lock.Unlock()

	return t.stopLocked(ctx, workID, t.clock.Now())
}

// stopLocked closes the open entry at the given instant. Caller holds
// the per-Work lock. Also used by Works.Close to settle a running
// session at close time.
func (t *TimerEngine) stopLocked(ctx context.Context, workID WorkID, at time.Time) (StopResult, error) {
	open, err := t.ledger.OpenEntry(ctx, workID)
	if err != nil {
		return StopResult{}, err
	}
	if open == nil {
		return StopResult{Status: StatusNotRunning}, nil
	}

	closed, err := t.ledger.CloseEntry(ctx, open.ID, at, ElapsedSeconds(open.StartedAt, at))
	if err != nil {
		return StopResult{}, err
	}
	return StopResult{Status: StatusStopped, Entry: &closed}, nil
}

// CurrentState returns the timer projection for a Work: whether a
// session is running, its start instant, settled seconds over closed
// entries, and the lifecycle verdict at now.
func (t *TimerEngine) CurrentState(ctx context.Context, userID UserID, workID WorkID) (TimerState, error) {
	w, err := t.works.GetWork(ctx, userID, workID)
	if err != nil {
		return TimerState{}, err
	}

	open, err := t.ledger.OpenEntry(ctx, workID)
	if err != nil {
		return TimerState{}, err
	}
	closedSeconds, err := t.ledger.ClosedSeconds(ctx, workID)
	if err != nil {
		return TimerState{}, err
	}

	state := TimerState{
		TotalClosedSeconds: closedSeconds,
	}
	if open != nil {
		state.Running = true
		startedAt := open.StartedAt
		state.StartedAt = &startedAt
	}
	if eff := EffectiveState(w, t.clock.Now()); eff.Finished() {
		state.IsFinished = true
		state.BlockedReason = eff.Reason
	}
	return state, nil
}

// RecentEntries returns a Work's entries newest-first, capped at limit.
func (t *TimerEngine) RecentEntries(ctx context.Context, userID UserID, workID WorkID, limit int) ([]TimeEntry, error) {
	if _, err := t.works.GetWork(ctx, userID, workID); err != nil {
		return nil, err
	}
	return t.ledger.RecentEntries(ctx, workID, limit)
}
