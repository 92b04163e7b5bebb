package progression

import (
	"iter"
	"time"

	"github.com/skillpath-hub/skillpath-progression/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// STREAK TRACKER
// ══════════════════════════════════════════════════════════════════════════════

// StreakOutcome - результат обновления серии одним событием.
type StreakOutcome string

const (
	// StreakStarted - первая активность пользователя или первый день новой серии.
	StreakStarted StreakOutcome = "started"
	// StreakExtended - серия продолжена на следующий день.
	StreakExtended StreakOutcome = "extended"
	// StreakUnchanged - повторная активность в тот же день.
	StreakUnchanged StreakOutcome = "unchanged"
	// StreakBroken - пропуск дней сбросил серию до 1.
	StreakBroken StreakOutcome = "broken"
)

// StreakChange описывает, что произошло с серией.
type StreakChange struct {
	// Outcome - исход обновления.
	Outcome StreakOutcome

	// PreviousStreak - длина серии до события.
	PreviousStreak int

	// CurrentStreak - длина серии после события.
	CurrentStreak int

	// DaysMissed - сколько дней пропущено (только при Outcome == StreakBroken).
	DaysMissed int

	// IsRecord - стала ли серия новым личным рекордом.
	IsRecord bool
}

// recordActivity применяет активность календарного дня к серии.
//
// Контракт: события применяются в неубывающем порядке времени.
// Применение задним числом - неопределённое поведение; движок
// его не чинит и не маскирует.
func (s *State) recordActivity(day timeutil.Day) StreakChange {
	change := StreakChange{PreviousStreak: s.CurrentStreak}

	firstOfDay := s.DailyActivity[day] == 0
	s.DailyActivity[day]++

	if !firstOfDay {
		change.Outcome = StreakUnchanged
		change.CurrentStreak = s.CurrentStreak
		s.LastActivityDay = day
		return change
	}

	switch {
	case s.LastActivityDay.IsZero():
		// Самая первая активность пользователя.
		s.CurrentStreak = 1
		change.Outcome = StreakStarted

	case s.LastActivityDay.Next() == day:
		// Следующий день - серия продолжается.
		s.CurrentStreak++
		change.Outcome = StreakExtended

	case s.LastActivityDay == day:
		// Защитный no-op: счётчик дня уже был ненулевым,
		// сюда попадать не должны.
		change.Outcome = StreakUnchanged

	default:
		// Пропущен хотя бы один день - серия начинается заново.
		change.DaysMissed = s.LastActivityDay.DaysUntil(day) - 1
		s.CurrentStreak = 1
		change.Outcome = StreakBroken
	}

	if s.CurrentStreak > s.LongestStreak {
		s.LongestStreak = s.CurrentStreak
		change.IsRecord = s.CurrentStreak > 1
	}

	s.LastActivityDay = day
	change.CurrentStreak = s.CurrentStreak
	return change
}

// ══════════════════════════════════════════════════════════════════════════════
// ACTIVITY DATA (для тепловых карт)
// ══════════════════════════════════════════════════════════════════════════════

// ActivityDay - количество активностей за один календарный день.
type ActivityDay struct {
	// Day - календарный день.
	Day timeutil.Day

	// Count - количество активностей (0, если день пропущен).
	Count int
}

// ActivityOn возвращает количество активностей за день.
func (s *State) ActivityOn(day timeutil.Day) int {
	return s.DailyActivity[day]
}

// ActivityRange возвращает ленивую последовательность дней [from, to]
// с количеством активностей. Пропущенные дни отдаются с нулём.
// Последовательность конечна и её можно обходить повторно.
func (s *State) ActivityRange(from, to timeutil.Day) iter.Seq[ActivityDay] {
	return func(yield func(ActivityDay) bool) {
		if from.IsZero() || to.IsZero() || from.After(to) {
			return
		}
		for day := from; !day.After(to); day = day.Next() {
			if !yield(ActivityDay{Day: day, Count: s.DailyActivity[day]}) {
				return
			}
		}
	}
}

// ActivityForMonth возвращает активность за календарный месяц.
func (s *State) ActivityForMonth(cal timeutil.Calendar, year int, month time.Month) iter.Seq[ActivityDay] {
	first, last := cal.MonthRange(year, month)
	return s.ActivityRange(first, last)
}
