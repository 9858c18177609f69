package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTotalCost(t *testing.T) {
	tests := []struct {
		rate    int64
		minutes int64
		want    int64
	}{
		{1000, 90, 1500},
		{1001, 90, 1502}, // 1501.5 rounds up
		{999, 1, 17},     // 16.65
		{100, 60, 100},
		{0, 60, 0},
		{1000, 0, 0},
	}
	for _, tt := range tests {
		got, err := TotalCost(tt.rate, tt.minutes)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "rate=%d minutes=%d", tt.rate, tt.minutes)
	}
}

func TestTotalCostLongWindows(t *testing.T) {
	// 2*rate*minutes would wrap here; the exact price still fits.
	got, err := TotalCost(math.MaxInt64/60, 60)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64/60), got)

	got, err = TotalCost(1000, 10*365*24*60)
	require.NoError(t, err)
	assert.Equal(t, int64(1000*10*365*24), got)

	_, err = TotalCost(math.MaxInt64, 120)
	assert.ErrorIs(t, err, ErrCostOverflow)
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = TotalCost(math.MaxInt64, math.MaxInt64)
	assert.ErrorIs(t, err, ErrCostOverflow)
}

func TestCheckDuration(t *testing.T) {
	assert.NoError(t, CheckDuration(8*24*60, 0))
	assert.NoError(t, CheckDuration(60, 60))
	assert.ErrorIs(t, CheckDuration(61, 60), ErrInvalidRange)
}

func TestDurationMinutes(t *testing.T) {
	start := time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC)

	minutes, err := DurationMinutes(start, start.Add(90*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(90), minutes)

	minutes, err = DurationMinutes(start, start.Add(90*time.Minute+59*time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(90), minutes)

	for _, end := range []time.Time{start, start.Add(-time.Minute), start.Add(59 * time.Second)} {
		_, err := DurationMinutes(start, end)
		assert.ErrorIs(t, err, ErrInvalidRange)
	}
	_, err = DurationMinutes(time.Time{}, start)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestNormalizeWindow(t *testing.T) {
	zone := time.FixedZone("WIB", 7*60*60)
	start, end := NormalizeWindow(
		time.Date(2030, 1, 1, 17, 0, 0, 1500, zone),
		time.Date(2030, 1, 1, 18, 0, 0, 0, zone),
	)
	assert.Equal(t, time.UTC, start.Location())
	assert.Equal(t, time.Date(2030, 1, 1, 10, 0, 0, 1000, time.UTC), start)
	assert.Equal(t, time.Date(2030, 1, 1, 11, 0, 0, 0, time.UTC), end)
}

func TestOverlaps(t *testing.T) {
	base := time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC)
	b := Booking{StartTime: base, EndTime: base.Add(90 * time.Minute)}

	assert.True(t, b.Overlaps(base.Add(60*time.Minute), base.Add(120*time.Minute)))
	assert.True(t, b.Overlaps(base.Add(-time.Hour), base.Add(3*time.Hour)))
	assert.False(t, b.Overlaps(base.Add(90*time.Minute), base.Add(120*time.Minute)))
	assert.False(t, b.Overlaps(base.Add(-time.Hour), base))
}
