// Package throttle guards the document store behind two independent budgets:
// a process-wide daily call counter and a per-profile weekly update window.
// Both are calendar-bucketed (local time), not elapsed-time limits.
package throttle

import (
	"sync"
	"time"

	"profiledir/internal/types"
)

// DefaultDailyLimit is the store-call ceiling per calendar day.
const DefaultDailyLimit = types.DefaultDailyCallLimit

var timeNow = time.Now

// SetTimeNowFn overrides the clock. Tests only.
func SetTimeNowFn(f func() time.Time) {
	timeNow = f
}

func RestoreTimeNow() {
	timeNow = time.Now
}

// CurrentDate is the daily bucket key, MM/DD/YYYY in local time.
func CurrentDate() string {
	return timeNow().Format("01/02/2006")
}

// WeekStart is the ISO date of the most recent Sunday, local time. It is the
// weekly window's bucket value.
func WeekStart() string {
	now := timeNow()
	sunday := now.AddDate(0, 0, -int(now.Weekday()))
	return sunday.Format("2006-01-02")
}

// Daily is the process-wide daily call budget. The counter resets whenever
// the calendar date changes and not otherwise. Fail-closed: once the ceiling
// is crossed, every further Take fails until the next day.
type Daily struct {
	mu    sync.Mutex
	limit int
	date  string
	calls int
}

func NewDaily(limit int) *Daily {
	if limit <= 0 {
		limit = DefaultDailyLimit
	}
	return &Daily{limit: limit}
}

// Take counts one store call against today's budget. Returns ErrDailyBudget
// once the ceiling is exceeded; no partial accounting on failure paths.
func (d *Daily) Take() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	date := CurrentDate()
	if d.date == date {
		d.calls++
	} else {
		d.date = date
		d.calls = 1
	}
	if d.calls > d.limit {
		return types.ErrDailyBudget
	}
	return nil
}

// Calls reports the count consumed in the current bucket.
func (d *Daily) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.date != CurrentDate() {
		return 0
	}
	return d.calls
}

// CanUpdate is the weekly sliding window over a profile's recorded
// week-start dates. True while fewer than the cap are recorded, or while any
// recorded slot belongs to a week other than the current one. A profile that
// saturated all slots inside the current calendar week is blocked until the
// week rolls over.
func CanUpdate(recentUpdates []string) bool {
	if len(recentUpdates) == 0 {
		return true
	}
	if len(recentUpdates) < types.UpdateLimit {
		return true
	}
	current := WeekStart()
	for _, week := range recentUpdates {
		if week != current {
			return true
		}
	}
	return false
}

// AppendUpdate records the current week-start, trimming from the oldest end
// past the cap, and returns the updated slice.
func AppendUpdate(recentUpdates []string) []string {
	recentUpdates = append(recentUpdates, WeekStart())
	if len(recentUpdates) > types.UpdateLimit {
		recentUpdates = recentUpdates[len(recentUpdates)-types.UpdateLimit:]
	}
	return recentUpdates
}
