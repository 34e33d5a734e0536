package worklog

import "time"

// Clock abstracts time.Now() so time-dependent logic is testable.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using the standard time package.
// time.Time values it returns carry Go's monotonic reading, so elapsed
// time computed against them is safe across wall-clock adjustments.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// ElapsedSeconds returns floor(now - started) in whole seconds, clamped
// to >= 0. The clamp is the last line of defense against clock skew
// where now < started.
func ElapsedSeconds(started, now time.Time) int64 {
	secs := int64(now.Sub(started) / time.Second)
	if secs < 0 {
		return 0
	}
	return secs
}
