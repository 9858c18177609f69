package domain

import (
	"fmt"
	"math"
	"math/bits"
	"time"
)

// ErrCostOverflow reports a window whose price does not fit in int64 minor
// units. It is an invalid range to callers.
var ErrCostOverflow = fmt.Errorf("cost_overflow: %w", ErrInvalidRange)

// NormalizeWindow converts both ends to UTC at microsecond precision, the
// finest resolution every supported store keeps.
func NormalizeWindow(start, end time.Time) (time.Time, time.Time) {
	return start.UTC().Truncate(time.Microsecond), end.UTC().Truncate(time.Microsecond)
}

// DurationMinutes returns the whole minutes in [start, end). Windows that are
// empty, inverted or shorter than one minute are rejected.
func DurationMinutes(start, end time.Time) (int64, error) {
	if start.IsZero() || end.IsZero() || !end.After(start) {
		return 0, ErrInvalidRange
	}
	minutes := int64(end.Sub(start) / time.Minute)
	if minutes < 1 {
		return 0, ErrInvalidRange
	}
	return minutes, nil
}

// TotalCost prices minutes at ratePerHour minor units, rounding half up to
// the nearest minor unit. The product is taken in 128 bits so long windows at
// high rates report ErrCostOverflow instead of wrapping.
func TotalCost(ratePerHour, minutes int64) (int64, error) {
	if ratePerHour <= 0 || minutes <= 0 {
		return 0, nil
	}
	hi, lo := bits.Mul64(uint64(ratePerHour), uint64(minutes))
	if hi >= 60 {
		return 0, ErrCostOverflow
	}
	quo, rem := bits.Div64(hi, lo, 60)
	if rem >= 30 {
		quo++
	}
	if quo > math.MaxInt64 {
		return 0, ErrCostOverflow
	}
	return int64(quo), nil
}

// CheckDuration applies an optional upper bound to a window of minutes.
// maxMinutes of zero means unbounded.
func CheckDuration(minutes, maxMinutes int64) error {
	if maxMinutes > 0 && minutes > maxMinutes {
		return ErrInvalidRange
	}
	return nil
}
