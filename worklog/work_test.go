package worklog_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/worklog-engine/worklog"
)

func TestWorks_Create_Validation(t *testing.T) {
	f := newFixture(t, baseTime)
	ctx := context.Background()
	today := worklog.DateOf(baseTime)

	valid := worklog.NewWorkParams{
		Title:           "api refactor",
		HourlyRateCents: 3500,
		StartDate:       today,
		EndDate:         today.AddDays(14),
	}

	tests := []struct {
		name      string
		mutate    func(p *worklog.NewWorkParams)
		wantField string
	}{
		{
			name:      "blank title",
			mutate:    func(p *worklog.NewWorkParams) { p.Title = "   " },
			wantField: "title",
		},
		{
			name:      "negative rate",
			mutate:    func(p *worklog.NewWorkParams) { p.HourlyRateCents = -1 },
			wantField: "hourly_rate_cents",
		},
		{
			name:      "missing dates",
			mutate:    func(p *worklog.NewWorkParams) { p.StartDate = worklog.Date{}; p.EndDate = worklog.Date{} },
			wantField: "start_date",
		},
		{
			name:      "end before start",
			mutate:    func(p *worklog.NewWorkParams) { p.EndDate = p.StartDate.AddDays(-1) },
			wantField: "end_date",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			_, err := f.works.Create(ctx, testUser, p)
			var verr *worklog.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantField, verr.Field)
			assert.True(t, worklog.IsClientError(err))
		})
	}
}

func TestWorks_Create_DefaultsAndNormalization(t *testing.T) {
	f := newFixture(t, baseTime)
	ctx := context.Background()
	today := worklog.DateOf(baseTime)

	// No currency given: the default applies.
	w, err := f.works.Create(ctx, testUser, worklog.NewWorkParams{
		Title:           "api refactor",
		HourlyRateCents: 3500,
		StartDate:       today,
		EndDate:         today,
	})
	require.NoError(t, err)
	assert.Equal(t, worklog.DefaultCurrency, w.Currency)
	assert.NotEmpty(t, w.ID)
	assert.Equal(t, baseTime, w.CreatedAt)

	// Currency codes are uppercased.
	w, err = f.works.Create(ctx, testUser, worklog.NewWorkParams{
		Title:           "side gig",
		HourlyRateCents: 6000,
		Currency:        " usd ",
		StartDate:       today,
		EndDate:         today,
	})
	require.NoError(t, err)
	assert.Equal(t, "USD", w.Currency)

	// Zero-rate works are legal (pro bono tracking).
	_, err = f.works.Create(ctx, testUser, worklog.NewWorkParams{
		Title:           "open source",
		HourlyRateCents: 0,
		StartDate:       today,
		EndDate:         today,
	})
	assert.NoError(t, err)

	// Single-day windows are legal.
	w, err = f.works.Create(ctx, testUser, worklog.NewWorkParams{
		Title:           "one-day audit",
		HourlyRateCents: 9000,
		StartDate:       today,
		EndDate:         today,
	})
	require.NoError(t, err)
	assert.True(t, w.StartDate.Equal(w.EndDate))
}

func TestWorks_GetAndList_ScopedToUser(t *testing.T) {
	f := newFixture(t, baseTime)
	ctx := context.Background()

	mine := f.createWork(t, "mine")

	today := worklog.DateOf(baseTime)
	other, err := f.works.Create(ctx, worklog.UserID("user-2"), worklog.NewWorkParams{
		Title:           "theirs",
		HourlyRateCents: 3500,
		StartDate:       today,
		EndDate:         today,
	})
	require.NoError(t, err)

	// Get refuses to cross user boundaries.
	_, err = f.works.Get(ctx, testUser, other.ID)
	assert.ErrorIs(t, err, worklog.ErrWorkNotFound)

	got, err := f.works.Get(ctx, testUser, mine.ID)
	require.NoError(t, err)
	assert.Equal(t, mine.ID, got.ID)

	// List only sees the caller's works.
	list, err := f.works.List(ctx, testUser)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, mine.ID, list[0].ID)

	// And the timer refuses foreign works too.
	_, err = f.timer.Start(ctx, testUser, other.ID)
	assert.ErrorIs(t, err, worklog.ErrWorkNotFound)
}

func TestWorks_List_InsertionOrder(t *testing.T) {
	f := newFixture(t, baseTime)

	first := f.createWork(t, "first")
	f.clock.Advance(time.Minute)
	second := f.createWork(t, "second")

	list, err := f.works.List(context.Background(), testUser)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)
}
