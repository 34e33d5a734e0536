package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/worklog-engine/auth"
	"github.com/warp/worklog-engine/store/sqlite"
	"github.com/warp/worklog-engine/worklog"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const testUserID = "user-1"

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	// works.user_id is a foreign key, so a user row must exist first.
	err = store.SaveUser(context.Background(), auth.User{
		ID:           testUserID,
		Email:        "dev@example.com",
		Name:         "Dev",
		PasswordHash: "x",
		CreatedAt:    time.Now().UTC(),
	})
	require.NoError(t, err)
	return store
}

func testWork(userID worklog.UserID) worklog.Work {
	return worklog.Work{
		ID:              worklog.WorkID(uuid.NewString()),
		UserID:          userID,
		Title:           "api refactor",
		SprintName:      "sprint-1",
		HourlyRateCents: 3500,
		Currency:        "BRL",
		StartDate:       worklog.NewDate(2025, time.March, 1),
		EndDate:         worklog.NewDate(2025, time.March, 31),
		CreatedAt:       time.Date(2025, time.March, 1, 8, 0, 0, 0, time.UTC),
	}
}

// =============================================================================
// WORK STORE
// =============================================================================

func TestSQLite_SaveAndGetWork_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	w := testWork(testUserID)
	require.NoError(t, store.SaveWork(ctx, w))

	got, err := store.GetWork(ctx, testUserID, w.ID)
	require.NoError(t, err)
	assert.Equal(t, w.ID, got.ID)
	assert.Equal(t, w.Title, got.Title)
	assert.Equal(t, w.SprintName, got.SprintName)
	assert.Equal(t, int64(3500), got.HourlyRateCents)
	assert.Equal(t, "BRL", got.Currency)
	assert.True(t, w.StartDate.Equal(got.StartDate))
	assert.True(t, w.EndDate.Equal(got.EndDate))
	assert.Nil(t, got.ClosedAt)
	assert.Equal(t, w.CreatedAt, got.CreatedAt)
}

func TestSQLite_GetWork_WrongUserOrMissing_NotFound(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	w := testWork(testUserID)
	require.NoError(t, store.SaveWork(ctx, w))

	_, err := store.GetWork(ctx, "someone-else", w.ID)
	assert.ErrorIs(t, err, worklog.ErrWorkNotFound)

	_, err = store.GetWork(ctx, testUserID, "missing")
	assert.ErrorIs(t, err, worklog.ErrWorkNotFound)
}

func TestSQLite_ListWorks_InsertionOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := testWork(testUserID)
	second := testWork(testUserID)
	second.Title = "second"
	require.NoError(t, store.SaveWork(ctx, first))
	require.NoError(t, store.SaveWork(ctx, second))

	list, err := store.ListWorks(ctx, testUserID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)
}

func TestSQLite_MarkClosed_PersistsAndOverwrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	w := testWork(testUserID)
	require.NoError(t, store.SaveWork(ctx, w))

	closedAt := time.Date(2025, time.March, 15, 17, 30, 0, 0, time.UTC)
	closed, err := store.MarkClosed(ctx, testUserID, w.ID, closedAt, "budget exhausted")
	require.NoError(t, err)
	require.NotNil(t, closed.ClosedAt)
	assert.Equal(t, closedAt, *closed.ClosedAt)
	assert.Equal(t, "budget exhausted", closed.ClosedReason)

	// Closing again is allowed; new timestamp and reason win.
	later := closedAt.Add(24 * time.Hour)
	closed, err = store.MarkClosed(ctx, testUserID, w.ID, later, "for real this time")
	require.NoError(t, err)
	assert.Equal(t, later, *closed.ClosedAt)
	assert.Equal(t, "for real this time", closed.ClosedReason)

	_, err = store.MarkClosed(ctx, testUserID, "missing", closedAt, "")
	assert.ErrorIs(t, err, worklog.ErrWorkNotFound)
}

// =============================================================================
// ENTRY LEDGER
// =============================================================================

func seedWork(t *testing.T, store *sqlite.Store) worklog.Work {
	t.Helper()
	w := testWork(testUserID)
	require.NoError(t, store.SaveWork(context.Background(), w))
	return w
}

func openEntry(workID worklog.WorkID, startedAt time.Time) worklog.TimeEntry {
	return worklog.TimeEntry{
		ID:        worklog.EntryID(uuid.NewString()),
		WorkID:    workID,
		StartedAt: startedAt,
	}
}

func TestSQLite_Append_SecondOpenEntryRejected(t *testing.T) {
	// GIVEN: An open entry for a work
	// WHEN: Appending another open entry for the same work
	// THEN: The partial unique index rejects it as ErrSessionAlreadyOpen

	store := newTestStore(t)
	ctx := context.Background()
	w := seedWork(t, store)
	startedAt := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

	require.NoError(t, store.Append(ctx, openEntry(w.ID, startedAt)))

	err := store.Append(ctx, openEntry(w.ID, startedAt.Add(time.Minute)))
	assert.ErrorIs(t, err, worklog.ErrSessionAlreadyOpen)

	// A different work is unaffected.
	other := seedWork(t, store)
	assert.NoError(t, store.Append(ctx, openEntry(other.ID, startedAt)))
}

func TestSQLite_OpenEntry_FindsOnlyTheOpenRow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	w := seedWork(t, store)
	startedAt := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

	open, err := store.OpenEntry(ctx, w.ID)
	require.NoError(t, err)
	assert.Nil(t, open)

	e := openEntry(w.ID, startedAt)
	require.NoError(t, store.Append(ctx, e))

	open, err = store.OpenEntry(ctx, w.ID)
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.Equal(t, e.ID, open.ID)
	assert.Equal(t, startedAt, open.StartedAt)

	_, err = store.CloseEntry(ctx, e.ID, startedAt.Add(time.Hour), 3600)
	require.NoError(t, err)

	open, err = store.OpenEntry(ctx, w.ID)
	require.NoError(t, err)
	assert.Nil(t, open)
}

func TestSQLite_CloseEntry_OnceOnly(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	w := seedWork(t, store)
	startedAt := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

	e := openEntry(w.ID, startedAt)
	require.NoError(t, store.Append(ctx, e))

	endedAt := startedAt.Add(90 * time.Second)
	closed, err := store.CloseEntry(ctx, e.ID, endedAt, 90)
	require.NoError(t, err)
	require.NotNil(t, closed.EndedAt)
	assert.Equal(t, endedAt, *closed.EndedAt)
	assert.Equal(t, int64(90), closed.DurationSeconds)

	// Settled entries are immutable.
	_, err = store.CloseEntry(ctx, e.ID, endedAt.Add(time.Hour), 9999)
	assert.ErrorIs(t, err, worklog.ErrEntryAlreadyClosed)

	_, err = store.CloseEntry(ctx, "missing", endedAt, 1)
	assert.ErrorIs(t, err, worklog.ErrEntryNotFound)
}

func TestSQLite_ClosedSeconds_SumsSettledOnly(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	w := seedWork(t, store)
	startedAt := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

	total, err := store.ClosedSeconds(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)

	e1 := openEntry(w.ID, startedAt)
	require.NoError(t, store.Append(ctx, e1))
	_, err = store.CloseEntry(ctx, e1.ID, startedAt.Add(time.Hour), 3600)
	require.NoError(t, err)

	// An open entry contributes nothing.
	e2 := openEntry(w.ID, startedAt.Add(2*time.Hour))
	require.NoError(t, store.Append(ctx, e2))

	total, err = store.ClosedSeconds(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3600), total)
}

func TestSQLite_RecentEntries_NewestFirstWithLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	w := seedWork(t, store)
	base := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

	var ids []worklog.EntryID
	for i := 0; i < 3; i++ {
		e := openEntry(w.ID, base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, store.Append(ctx, e))
		_, err := store.CloseEntry(ctx, e.ID, e.StartedAt.Add(time.Minute), 60)
		require.NoError(t, err)
		ids = append(ids, e.ID)
	}

	entries, err := store.RecentEntries(ctx, w.ID, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, ids[2], entries[0].ID)
	assert.Equal(t, ids[1], entries[1].ID)

	// A non-positive limit means no cap.
	entries, err = store.RecentEntries(ctx, w.ID, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestSQLite_ClosedInRange_FiltersByStartDate(t *testing.T) {
	// Entries bucket by the calendar date of started_at; the range is
	// inclusive on both ends and open entries never appear.

	store := newTestStore(t)
	ctx := context.Background()
	w := seedWork(t, store)

	day := func(d int) time.Time {
		return time.Date(2025, time.March, d, 12, 0, 0, 0, time.UTC)
	}
	for _, d := range []int{9, 10, 11, 12} {
		e := openEntry(w.ID, day(d))
		require.NoError(t, store.Append(ctx, e))
		_, err := store.CloseEntry(ctx, e.ID, day(d).Add(time.Hour), 3600)
		require.NoError(t, err)
	}
	// Still running on the 11th: excluded.
	require.NoError(t, store.Append(ctx, openEntry(w.ID, day(11).Add(3*time.Hour))))

	entries, err := store.ClosedInRange(ctx, w.ID, worklog.DateRange{
		From: worklog.NewDate(2025, time.March, 10),
		To:   worklog.NewDate(2025, time.March, 11),
	})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, worklog.NewDate(2025, time.March, 10), worklog.DateOf(entries[0].StartedAt))
	assert.Equal(t, worklog.NewDate(2025, time.March, 11), worklog.DateOf(entries[1].StartedAt))
}

// =============================================================================
// USERS AND SESSIONS
// =============================================================================

func TestSQLite_SaveUser_DuplicateEmailRejected(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.SaveUser(ctx, auth.User{
		ID:           uuid.NewString(),
		Email:        "dev@example.com", // taken by the fixture user
		PasswordHash: "y",
		CreatedAt:    time.Now().UTC(),
	})
	assert.ErrorIs(t, err, auth.ErrEmailTaken)
}

func TestSQLite_GetUser_ByIDAndEmail(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	byEmail, err := store.GetUserByEmail(ctx, "dev@example.com")
	require.NoError(t, err)
	assert.Equal(t, testUserID, byEmail.ID)

	byID, err := store.GetUser(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, "dev@example.com", byID.Email)

	_, err = store.GetUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, auth.ErrUserNotFound)
}

func TestSQLite_Sessions_RoundTripAndDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	session := auth.Session{
		Token:     "tok-123",
		UserID:    testUserID,
		ExpiresAt: time.Date(2025, time.April, 10, 9, 0, 0, 0, time.UTC),
		CreatedAt: time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.SaveSession(ctx, session))

	got, err := store.GetSession(ctx, "tok-123")
	require.NoError(t, err)
	assert.Equal(t, session, got)

	require.NoError(t, store.DeleteSession(ctx, "tok-123"))
	_, err = store.GetSession(ctx, "tok-123")
	assert.ErrorIs(t, err, auth.ErrSessionNotFound)

	// Deleting a missing token is a no-op.
	assert.NoError(t, store.DeleteSession(ctx, "tok-123"))
}
