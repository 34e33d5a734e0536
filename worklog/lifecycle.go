/*
lifecycle.go - Work lifecycle derivation

PURPOSE:
  A Work is ACTIVE until it finishes, and FINISHED is terminal. There is
  no stored state enum and no background job flipping Works at midnight:
  expiry is derived from (EndDate, now) at every read boundary, while a
  manual close is recorded once (ClosedAt/ClosedReason) and is permanent.

PRECEDENCE:
  1. ClosedAt set           -> FINISHED / CLOSED (regardless of dates)
  2. today > EndDate        -> FINISHED / EXPIRED
  3. otherwise              -> ACTIVE

Finishing only blocks NEW timer starts. Stopping an already-open session
on a finished Work is always permitted, so no session is ever orphaned.
*/
package worklog

import "time"

type LifecycleState string

const (
	StateActive   LifecycleState = "ACTIVE"
	StateFinished LifecycleState = "FINISHED"
)

// BlockedReason qualifies a FINISHED state. Empty while ACTIVE.
type BlockedReason string

const (
	ReasonExpired BlockedReason = "EXPIRED"
	ReasonClosed  BlockedReason = "CLOSED"
)

// Effective is the lifecycle of a Work as observed at one instant.
type Effective struct {
	State  LifecycleState
	Reason BlockedReason
}

func (e Effective) Finished() bool { return e.State == StateFinished }

// EffectiveState derives the lifecycle of a Work at the given instant.
// Pure function; the manual-close path takes precedence over expiry.
func EffectiveState(w Work, now time.Time) Effective {
	if w.ClosedAt != nil {
		return Effective{State: StateFinished, Reason: ReasonClosed}
	}
	if DateOf(now).After(w.EndDate) {
		return Effective{State: StateFinished, Reason: ReasonExpired}
	}
	return Effective{State: StateActive}
}
