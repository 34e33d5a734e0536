/*
work.go - Work creation and lifecycle operations

PURPOSE:
  Works wraps the WorkStore with input validation and the manual-close
  operation. Creation fully validates or fully fails - an invalid Work
  never reaches the store.

CLOSE SEMANTICS:
  Close is deliberately permissive: closing an already-FINISHED Work
  still succeeds and overwrites ClosedAt/ClosedReason, with no
  re-validation against prior state. If a timer is running when the Work
  is closed, the open session is settled at the close instant so it
  cannot be orphaned.
*/
package worklog

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// NewWorkParams carries the caller-supplied fields for Create.
type NewWorkParams struct {
	Title           string
	SprintName      string
	HourlyRateCents int64
	Currency        string
	StartDate       Date
	EndDate         Date
}

// =============================================================================
// WORKS
// =============================================================================

type Works struct {
	store WorkStore
	timer *TimerEngine
	clock Clock
}

func NewWorks(store WorkStore, timer *TimerEngine, clock Clock) *Works {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Works{store: store, timer: timer, clock: clock}
}

// Create validates and persists a new Work in state ACTIVE.
func (s *Works) Create(ctx context.Context, userID UserID, p NewWorkParams) (Work, error) {
	if strings.TrimSpace(p.Title) == "" {
		return Work{}, &ValidationError{Field: "title", Message: "must not be empty"}
	}
	if p.HourlyRateCents < 0 {
		return Work{}, &ValidationError{Field: "hourly_rate_cents", Message: "must not be negative"}
	}
	if p.StartDate.IsZero() || p.EndDate.IsZero() {
		return Work{}, &ValidationError{Field: "start_date", Message: "start_date and end_date are required"}
	}
	if p.EndDate.Before(p.StartDate) {
		return Work{}, &ValidationError{Field: "end_date", Message: "must not be before start_date"}
	}

	currency := strings.ToUpper(strings.TrimSpace(p.Currency))
	if currency == "" {
		currency = DefaultCurrency
	}

	w := Work{
		ID:              WorkID(uuid.NewString()),
		UserID:          userID,
		Title:           p.Title,
		SprintName:      p.SprintName,
		HourlyRateCents: p.HourlyRateCents,
		Currency:        currency,
		StartDate:       p.StartDate,
		EndDate:         p.EndDate,
		CreatedAt:       s.clock.Now(),
	}
	if err := s.store.SaveWork(ctx, w); err != nil {
		return Work{}, err
	}
	return w, nil
}

// DefaultCurrency is applied when a Work is created without one.
const DefaultCurrency = "BRL"

// Get returns a Work or ErrWorkNotFound.
func (s *Works) Get(ctx context.Context, userID UserID, id WorkID) (Work, error) {
	return s.store.GetWork(ctx, userID, id)
}

// List returns the user's Works in insertion order.
func (s *Works) List(ctx context.Context, userID UserID) ([]Work, error) {
	return s.store.ListWorks(ctx, userID)
}

// Close marks a Work FINISHED/CLOSED at now. A running timer session is
// settled at the same instant, under the Work's timer lock.
func (s *Works) Close(ctx context.Context, userID UserID, id WorkID, reason string) (Work, error) {
	if _, err := s.store.GetWork(ctx, userID, id); err != nil {
		return Work{}, err
	}

	lock := s.timer.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	now := s.clock.Now()
	if _, err := s.timer.stopLocked(ctx, id, now); err != nil {
		return Work{}, err
	}
	return s.store.MarkClosed(ctx, userID, id, now, reason)
}

// EffectiveStateNow derives the lifecycle of a Work at the clock's now.
func (s *Works) EffectiveStateNow(w Work) Effective {
	return EffectiveState(w, s.clock.Now())
}
