/*
report.go - Date-range summaries across Works

PURPOSE:
  The Reporter scans settled (closed) entries for a user over an
  inclusive calendar range and produces per-Work and grand totals.
  Open sessions contribute nothing until they are stopped.

INCLUSION RULE:
  An entry belongs to the range when its StartedAt calendar date falls
  within [From, To]. Whole entries are counted - there is no clipping of
  sessions that cross midnight.

ROUNDING:
  Per-Work earnings are computed ONCE on the Work's summed seconds, not
  summed per entry, so rounding never drifts across many short sessions.

MIXED CURRENCIES:
  Per-currency subtotals are always reported. The flat Currency field is
  set only when every contributing Work shares one currency; otherwise
  it is empty and callers should render the subtotals instead.

CONSISTENCY:
  Summarize reads committed entries only and may run concurrently with
  timer mutations; it is not required to observe sessions stopped after
  its snapshot (read-committed, not linearizable).
*/
package worklog

import (
	"context"
	"sort"
)

// WorkSummary is one Work's contribution to a Summary.
type WorkSummary struct {
	WorkID           WorkID
	Title            string
	SprintName       string
	TotalSeconds     int64
	TotalEarnedCents int64
	Currency         string
}

// CurrencySubtotal aggregates Works sharing one currency.
type CurrencySubtotal struct {
	Currency         string
	TotalSeconds     int64
	TotalEarnedCents int64
}

// Summary aggregates settled time and earnings over a date range.
type Summary struct {
	Range            DateRange
	TotalSeconds     int64
	TotalEarnedCents int64

	// Set when all contributing Works share a single currency.
	Currency string

	// Sorted by TotalEarnedCents descending, WorkID ascending on ties.
	ByWork []WorkSummary

	// Sorted by currency code for determinism.
	ByCurrency []CurrencySubtotal
}

// =============================================================================
// REPORTER
// =============================================================================

type Reporter struct {
	works  WorkStore
	ledger EntryLedger
}

func NewReporter(works WorkStore, ledger EntryLedger) *Reporter {
	return &Reporter{works: works, ledger: ledger}
}

// Summarize builds the Summary for an inclusive calendar range.
// Fails with ErrInvalidPeriod when To < From.
func (r *Reporter) Summarize(ctx context.Context, userID UserID, rng DateRange) (Summary, error) {
	if !rng.Valid() {
		return Summary{}, ErrInvalidPeriod
	}

	works, err := r.works.ListWorks(ctx, userID)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{Range: rng}
	byCurrency := make(map[string]*CurrencySubtotal)

	for _, w := range works {
		entries, err := r.ledger.ClosedInRange(ctx, w.ID, rng)
		if err != nil {
			return Summary{}, err
		}
		if len(entries) == 0 {
			continue
		}

		var seconds int64
		for _, e := range entries {
			seconds += e.DurationSeconds
		}
		earned := EarnedMinorUnits(w.HourlyRateCents, seconds)

		summary.ByWork = append(summary.ByWork, WorkSummary{
			WorkID:           w.ID,
			Title:            w.Title,
			SprintName:       w.SprintName,
			TotalSeconds:     seconds,
			TotalEarnedCents: earned,
			Currency:         w.Currency,
		})
		summary.TotalSeconds += seconds
		summary.TotalEarnedCents += earned

		sub, ok := byCurrency[w.Currency]
		if !ok {
			sub = &CurrencySubtotal{Currency: w.Currency}
			byCurrency[w.Currency] = sub
		}
		sub.TotalSeconds += seconds
		sub.TotalEarnedCents += earned
	}

	sort.Slice(summary.ByWork, func(i, j int) bool {
		a, b := summary.ByWork[i], summary.ByWork[j]
		if a.TotalEarnedCents != b.TotalEarnedCents {
			return a.TotalEarnedCents > b.TotalEarnedCents
		}
		return a.WorkID < b.WorkID
	})

	for _, sub := range byCurrency {
		summary.ByCurrency = append(summary.ByCurrency, *sub)
	}
	sort.Slice(summary.ByCurrency, func(i, j int) bool {
		return summary.ByCurrency[i].Currency < summary.ByCurrency[j].Currency
	})
	if len(summary.ByCurrency) == 1 {
		summary.Currency = summary.ByCurrency[0].Currency
	}

	return summary, nil
}
