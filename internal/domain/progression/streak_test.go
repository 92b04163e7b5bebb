package progression

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillpath-hub/skillpath-progression/internal/domain/shared"
	"github.com/skillpath-hub/skillpath-progression/pkg/timeutil"
)

// newTestState builds an empty aggregate for a fixed test user.
func newTestState(t *testing.T) *State {
	t.Helper()
	state, err := NewState(shared.UserID("11111111-1111-1111-1111-111111111111"), DefaultMilestoneTable())
	require.NoError(t, err)
	return state
}

func day(y int, m time.Month, d int) timeutil.Day {
	return timeutil.Day{Year: y, Month: m, DayOfMonth: d}
}

func TestRecordActivity_FirstDay(t *testing.T) {
	state := newTestState(t)

	change := state.recordActivity(day(2026, time.March, 10))
	assert.Equal(t, StreakStarted, change.Outcome)
	assert.Equal(t, 1, state.CurrentStreak)
	assert.Equal(t, 1, state.LongestStreak)
	assert.Equal(t, 1, state.DailyActivity[day(2026, time.March, 10)])
}

func TestRecordActivity_SameDayTwice(t *testing.T) {
	state := newTestState(t)
	d := day(2026, time.March, 10)

	state.recordActivity(d)
	change := state.recordActivity(d)

	assert.Equal(t, StreakUnchanged, change.Outcome)
	assert.Equal(t, 1, state.CurrentStreak)
	assert.Equal(t, 2, state.DailyActivity[d])
}

func TestRecordActivity_ConsecutiveDays(t *testing.T) {
	state := newTestState(t)

	state.recordActivity(day(2026, time.March, 10))
	change := state.recordActivity(day(2026, time.March, 11))

	assert.Equal(t, StreakExtended, change.Outcome)
	assert.Equal(t, 2, state.CurrentStreak)
	assert.Equal(t, 2, state.LongestStreak)
	assert.True(t, change.IsRecord)
}

func TestRecordActivity_GapResetsStreak(t *testing.T) {
	state := newTestState(t)

	state.recordActivity(day(2026, time.March, 10))
	state.recordActivity(day(2026, time.March, 11))
	change := state.recordActivity(day(2026, time.March, 14))

	assert.Equal(t, StreakBroken, change.Outcome)
	assert.Equal(t, 2, change.DaysMissed)
	assert.Equal(t, 2, change.PreviousStreak)
	assert.Equal(t, 1, state.CurrentStreak)
	// The record survives the reset.
	assert.Equal(t, 2, state.LongestStreak)
}

func TestRecordActivity_MonthBoundary(t *testing.T) {
	state := newTestState(t)

	state.recordActivity(day(2026, time.February, 28))
	change := state.recordActivity(day(2026, time.March, 1))

	assert.Equal(t, StreakExtended, change.Outcome)
	assert.Equal(t, 2, state.CurrentStreak)
}

func TestRecordActivity_LongestStreakNeverDecreases(t *testing.T) {
	state := newTestState(t)

	days := []timeutil.Day{
		day(2026, time.January, 1),
		day(2026, time.January, 2),
		day(2026, time.January, 3),
		day(2026, time.January, 7), // gap
		day(2026, time.January, 8),
		day(2026, time.January, 20), // gap
	}

	longest := 0
	for _, d := range days {
		state.recordActivity(d)
		assert.GreaterOrEqual(t, state.LongestStreak, longest)
		assert.LessOrEqual(t, state.CurrentStreak, state.LongestStreak)
		longest = state.LongestStreak
	}
	assert.Equal(t, 3, state.LongestStreak)
	assert.Equal(t, 1, state.CurrentStreak)
}

func TestActivityRange_FillsGapsWithZero(t *testing.T) {
	state := newTestState(t)
	state.recordActivity(day(2026, time.March, 10))
	state.recordActivity(day(2026, time.March, 10))
	state.recordActivity(day(2026, time.March, 12))

	var got []ActivityDay
	for ad := range state.ActivityRange(day(2026, time.March, 9), day(2026, time.March, 13)) {
		got = append(got, ad)
	}

	require.Len(t, got, 5)
	assert.Equal(t, 0, got[0].Count)
	assert.Equal(t, 2, got[1].Count)
	assert.Equal(t, 0, got[2].Count)
	assert.Equal(t, 1, got[3].Count)
	assert.Equal(t, 0, got[4].Count)
	assert.Equal(t, day(2026, time.March, 9), got[0].Day)
	assert.Equal(t, day(2026, time.March, 13), got[4].Day)
}

func TestActivityRange_Restartable(t *testing.T) {
	state := newTestState(t)
	state.recordActivity(day(2026, time.March, 10))

	seq := state.ActivityRange(day(2026, time.March, 9), day(2026, time.March, 11))

	count := func() int {
		n := 0
		for range seq {
			n++
		}
		return n
	}
	assert.Equal(t, 3, count())
	assert.Equal(t, 3, count())
}

func TestActivityRange_EarlyBreak(t *testing.T) {
	state := newTestState(t)

	n := 0
	for range state.ActivityRange(day(2026, time.March, 1), day(2026, time.March, 31)) {
		n++
		if n == 3 {
			break
		}
	}
	assert.Equal(t, 3, n)
}

func TestActivityRange_InvalidRangeIsEmpty(t *testing.T) {
	state := newTestState(t)

	n := 0
	for range state.ActivityRange(day(2026, time.March, 10), day(2026, time.March, 1)) {
		n++
	}
	assert.Equal(t, 0, n)
}

func TestActivityForMonth(t *testing.T) {
	state := newTestState(t)
	cal := timeutil.UTCCalendar()
	state.recordActivity(day(2026, time.February, 5))

	var got []ActivityDay
	for ad := range state.ActivityForMonth(cal, 2026, time.February) {
		got = append(got, ad)
	}

	require.Len(t, got, 28)
	assert.Equal(t, day(2026, time.February, 1), got[0].Day)
	assert.Equal(t, 1, got[4].Count)
}
