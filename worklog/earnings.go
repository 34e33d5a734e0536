/*
earnings.go - Duration to money conversion

PURPOSE:
  Pure function mapping (hourly rate, seconds) to earned money in integer
  minor currency units. Uses decimal.Decimal so no floating-point error
  creeps into billing math.

ROUNDING POLICY:
  round-half-away-from-zero, applied once on the final quotient
  (decimal.Round semantics). Aggregations compute earnings once on the
  summed seconds rather than summing per-entry results, so many short
  entries cannot accumulate rounding drift.
*/
package worklog

import "github.com/shopspring/decimal"

var secondsPerHour = decimal.NewFromInt(3600)

// EarnedMinorUnits converts worked seconds into minor currency units at
// the given hourly rate: round(rate * seconds / 3600), half away from
// zero. Non-positive seconds earn zero.
func EarnedMinorUnits(hourlyRateMinorUnits, seconds int64) int64 {
	if seconds <= 0 {
		return 0
	}
	return decimal.NewFromInt(hourlyRateMinorUnits).
		Mul(decimal.NewFromInt(seconds)).
		Div(secondsPerHour).
		Round(0).
		IntPart()
}
