// Package billing holds the parking fee formula and the clock it is
// measured against.
package billing

import (
	"math"
	"time"
)

// Clock supplies the current time.  Repositories take a Clock so tests can
// pin "now" instead of sleeping.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.  Times are UTC and truncated to
// microseconds, the precision of DATETIME(6) columns, so a value read back
// from the database compares equal to the one written.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }

// MinimumHours is the smallest billable duration.
const MinimumHours = 1.0

// Hours returns the billable hours between start and end.  Durations under
// an hour, and negative ones caused by clock skew, bill as one hour.
func Hours(start, end time.Time) float64 {
	h := end.Sub(start).Hours()
	if h < MinimumHours {
		return MinimumHours
	}
	return h
}

// Cost returns the fee for parking from start to end at the given hourly
// rate, rounded to cents half away from zero.
func Cost(start, end time.Time, hourlyRate float64) float64 {
	return RoundCents(Hours(start, end) * hourlyRate)
}

// RoundCents rounds an amount to two decimal places.
func RoundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
