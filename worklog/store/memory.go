// Package store provides in-memory implementations of the worklog
// storage contracts, for tests and development.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/worklog-engine/worklog"
)

// =============================================================================
// MEMORY STORE - WorkStore + EntryLedger in one
// =============================================================================

type Memory struct {
	mu      sync.RWMutex
	works   []worklog.Work
	entries map[worklog.WorkID][]worklog.TimeEntry
	byID    map[worklog.EntryID]entryRef
}

type entryRef struct {
	workID worklog.WorkID
	index  int
}

func NewMemory() *Memory {
	return &Memory{
		entries: make(map[worklog.WorkID][]worklog.TimeEntry),
		byID:    make(map[worklog.EntryID]entryRef),
	}
}

// -----------------------------------------------------------------------------
// WorkStore
// -----------------------------------------------------------------------------

func (m *Memory) SaveWork(_ context.Context, w worklog.Work) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.works = append(m.works, w)
	return nil
}

func (m *Memory) GetWork(_ context.Context, userID worklog.UserID, id worklog.WorkID) (worklog.Work, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, w := range m.works {
		if w.ID == id && w.UserID == userID {
			return w, nil
		}
	}
	return worklog.Work{}, worklog.ErrWorkNotFound
}

func (m *Memory) ListWorks(_ context.Context, userID worklog.UserID) ([]worklog.Work, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []worklog.Work
	for _, w := range m.works {
		if w.UserID == userID {
			out = append(out, w)
		}
	}
	return out, nil
}

func (m *Memory) MarkClosed(_ context.Context, userID worklog.UserID, id worklog.WorkID, closedAt time.Time, reason string) (worklog.Work, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, w := range m.works {
		if w.ID == id && w.UserID == userID {
			at := closedAt
			m.works[i].ClosedAt = &at
			m.works[i].ClosedReason = reason
			return m.works[i], nil
		}
	}
	return worklog.Work{}, worklog.ErrWorkNotFound
}

// -----------------------------------------------------------------------------
// EntryLedger
// -----------------------------------------------------------------------------

func (m *Memory) Append(_ context.Context, e worklog.TimeEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.entries[e.WorkID] {
		if existing.Open() {
			return worklog.ErrSessionAlreadyOpen
		}
	}
	m.entries[e.WorkID] = append(m.entries[e.WorkID], e)
	m.byID[e.ID] = entryRef{workID: e.WorkID, index: len(m.entries[e.WorkID]) - 1}
	return nil
}

func (m *Memory) OpenEntry(_ context.Context, workID worklog.WorkID) (*worklog.TimeEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.entries[workID] {
		if e.Open() {
			entry := e
			return &entry, nil
		}
	}
	return nil, nil
}

func (m *Memory) CloseEntry(_ context.Context, id worklog.EntryID, endedAt time.Time, durationSeconds int64) (worklog.TimeEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ref, ok := m.byID[id]
	if !ok {
		return worklog.TimeEntry{}, worklog.ErrEntryNotFound
	}
	entry := &m.entries[ref.workID][ref.index]
	if !entry.Open() {
		return worklog.TimeEntry{}, worklog.ErrEntryAlreadyClosed
	}
	at := endedAt
	entry.EndedAt = &at
	entry.DurationSeconds = durationSeconds
	return *entry, nil
}

func (m *Memory) ClosedSeconds(_ context.Context, workID worklog.WorkID) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var total int64
	for _, e := range m.entries[workID] {
		if !e.Open() {
			total += e.DurationSeconds
		}
	}
	return total, nil
}

func (m *Memory) RecentEntries(_ context.Context, workID worklog.WorkID, limit int) ([]worklog.TimeEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := append([]worklog.TimeEntry(nil), m.entries[workID]...)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].StartedAt.After(entries[j].StartedAt)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (m *Memory) ClosedInRange(_ context.Context, workID worklog.WorkID, r worklog.DateRange) ([]worklog.TimeEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []worklog.TimeEntry
	for _, e := range m.entries[workID] {
		if e.Open() {
			continue
		}
		if r.Contains(worklog.DateOf(e.StartedAt)) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out, nil
}
