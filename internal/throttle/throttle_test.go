package throttle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"profiledir/internal/types"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestDailyCeilingFailsClosed(t *testing.T) {
	defer RestoreTimeNow()
	SetTimeNowFn(fixedClock(time.Date(2025, 3, 10, 12, 0, 0, 0, time.Local)))

	d := NewDaily(3)
	for i := 0; i < 3; i++ {
		require.NoError(t, d.Take())
	}
	require.ErrorIs(t, d.Take(), types.ErrDailyBudget)
	// still closed until the date changes
	require.ErrorIs(t, d.Take(), types.ErrDailyBudget)
}

func TestDailyResetsOnDateChangeOnly(t *testing.T) {
	defer RestoreTimeNow()

	lateNight := time.Date(2025, 3, 10, 23, 59, 0, 0, time.Local)
	SetTimeNowFn(fixedClock(lateNight))

	d := NewDaily(3)
	require.NoError(t, d.Take())
	require.NoError(t, d.Take())
	require.NoError(t, d.Take())
	require.ErrorIs(t, d.Take(), types.ErrDailyBudget)

	// same date, later instant: still blocked
	SetTimeNowFn(fixedClock(lateNight.Add(30 * time.Second)))
	require.ErrorIs(t, d.Take(), types.ErrDailyBudget)

	// midnight crossing resets the counter
	SetTimeNowFn(fixedClock(lateNight.Add(2 * time.Minute)))
	require.NoError(t, d.Take())
	require.Equal(t, 1, d.Calls())
}

func TestWeekStartIsMostRecentSunday(t *testing.T) {
	defer RestoreTimeNow()

	// Wednesday 2025-03-12 -> Sunday 2025-03-09
	SetTimeNowFn(fixedClock(time.Date(2025, 3, 12, 15, 0, 0, 0, time.Local)))
	require.Equal(t, "2025-03-09", WeekStart())

	// a Sunday is its own week start
	SetTimeNowFn(fixedClock(time.Date(2025, 3, 9, 0, 30, 0, 0, time.Local)))
	require.Equal(t, "2025-03-09", WeekStart())
}

func TestCanUpdate(t *testing.T) {
	defer RestoreTimeNow()
	SetTimeNowFn(fixedClock(time.Date(2025, 3, 12, 15, 0, 0, 0, time.Local)))
	current := WeekStart()

	require.True(t, CanUpdate(nil))
	require.True(t, CanUpdate([]string{}))

	// below the cap: always allowed, even all in the current week
	under := make([]string, types.UpdateLimit-1)
	for i := range under {
		under[i] = current
	}
	require.True(t, CanUpdate(under))

	// saturated with the current week: blocked
	full := make([]string, types.UpdateLimit)
	for i := range full {
		full[i] = current
	}
	require.False(t, CanUpdate(full))

	// one stale slot reopens the window
	full[0] = "2025-03-02"
	require.True(t, CanUpdate(full))

	// the week rolling over reopens a saturated window
	for i := range full {
		full[i] = current
	}
	SetTimeNowFn(fixedClock(time.Date(2025, 3, 19, 15, 0, 0, 0, time.Local)))
	require.True(t, CanUpdate(full))
}

func TestAppendUpdateTrimsOldest(t *testing.T) {
	defer RestoreTimeNow()
	SetTimeNowFn(fixedClock(time.Date(2025, 3, 12, 15, 0, 0, 0, time.Local)))

	var recent []string
	for i := 0; i < types.UpdateLimit+5; i++ {
		recent = AppendUpdate(recent)
	}
	require.Len(t, recent, types.UpdateLimit)
	require.Equal(t, WeekStart(), recent[0])
}
