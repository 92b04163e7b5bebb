package progression

import (
	"github.com/skillpath-hub/skillpath-progression/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CRITERIA EVALUATORS
// Один вычислитель на каждый вид критерия. Таблица проверяется на полноту
// при создании Engine: вид без вычислителя - ошибка старта, а не тихий no-op.
// Неизвестный вид из конфигурации оценивается как "не выполнено".
// ══════════════════════════════════════════════════════════════════════════════

// criteriaEvaluator оценивает один вид критерия.
type criteriaEvaluator struct {
	// satisfied проверяет, выполнен ли критерий.
	satisfied func(s *State, c Criteria) bool

	// progress возвращает прогресс к выполнению (0-100) для неполученного значка.
	progress func(s *State, c Criteria) int
}

// counterProgress - прогресс счётного критерия: min(current/target, 1) * 100.
func counterProgress(current, target int) int {
	if target <= 0 || current >= target {
		return 100
	}
	if current <= 0 {
		return 0
	}
	return current * 100 / target
}

// binaryProgress - прогресс булевого критерия: 0 или 100.
func binaryProgress(satisfied bool) int {
	if satisfied {
		return 100
	}
	return 0
}

var evaluators = map[CriteriaType]criteriaEvaluator{
	CriteriaLessonsCompleted: {
		satisfied: func(s *State, c Criteria) bool {
			return s.Stats.LessonsCompletedTotal >= c.Value
		},
		progress: func(s *State, c Criteria) int {
			return counterProgress(s.Stats.LessonsCompletedTotal, c.Value)
		},
	},
	CriteriaStreak: {
		satisfied: func(s *State, c Criteria) bool {
			return s.CurrentStreak >= c.Value
		},
		progress: func(s *State, c Criteria) int {
			return counterProgress(s.CurrentStreak, c.Value)
		},
	},
	CriteriaChallengesCompleted: {
		satisfied: func(s *State, c Criteria) bool {
			return s.Stats.ChallengesCompleted >= c.Value
		},
		progress: func(s *State, c Criteria) int {
			return counterProgress(s.Stats.ChallengesCompleted, c.Value)
		},
	},
	CriteriaXPEarned: {
		satisfied: func(s *State, c Criteria) bool {
			return s.TotalXP >= c.Value
		},
		progress: func(s *State, c Criteria) int {
			return counterProgress(s.TotalXP, c.Value)
		},
	},
	CriteriaPerfectTest: {
		satisfied: func(s *State, c Criteria) bool {
			return s.Stats.PerfectTests >= c.Value
		},
		progress: func(s *State, c Criteria) int {
			return counterProgress(s.Stats.PerfectTests, c.Value)
		},
	},
	CriteriaLessonsPerDay: {
		satisfied: satisfiedLessonsPerDay,
		progress: func(s *State, c Criteria) int {
			return binaryProgress(satisfiedLessonsPerDay(s, c))
		},
	},
	CriteriaEarlyCompletion: {
		satisfied: satisfiedEarlyCompletion,
		progress: func(s *State, c Criteria) int {
			return binaryProgress(satisfiedEarlyCompletion(s, c))
		},
	},
	CriteriaLateCompletion: {
		satisfied: satisfiedLateCompletion,
		progress: func(s *State, c Criteria) int {
			return binaryProgress(satisfiedLateCompletion(s, c))
		},
	},
	CriteriaCategoriesExplored: {
		satisfied: func(s *State, c Criteria) bool {
			return s.Stats.CategoriesCount() >= c.Value
		},
		progress: func(s *State, c Criteria) int {
			return counterProgress(s.Stats.CategoriesCount(), c.Value)
		},
	},
	CriteriaSkillsMastered: {
		satisfied: func(s *State, c Criteria) bool {
			return s.Stats.SkillsMastered >= c.Value
		},
		progress: func(s *State, c Criteria) int {
			return counterProgress(s.Stats.SkillsMastered, c.Value)
		},
	},
	CriteriaStreakRestored: {
		satisfied: func(s *State, c Criteria) bool {
			return s.Stats.StreakRestored
		},
		progress: func(s *State, c Criteria) int {
			return binaryProgress(s.Stats.StreakRestored)
		},
	},
	CriteriaLeaderboardRank: {
		satisfied: func(s *State, c Criteria) bool {
			rank := s.Stats.HighestLeaderboardRank
			return rank.IsValid() && rank.Int() <= c.Value
		},
		progress: progressLeaderboardRank,
	},
	CriteriaLeague: {
		satisfied: func(s *State, c Criteria) bool {
			return s.Stats.League.AtLeast(c.League)
		},
		progress: progressLeague,
	},
}

// satisfiedLessonsPerDay: достигнут ли дневной максимум уроков.
func satisfiedLessonsPerDay(s *State, c Criteria) bool {
	return s.Stats.LessonsCompletedToday >= c.Value && c.Value > 0
}

// satisfiedEarlyCompletion: последнее завершение строго до EarlyCompletionHour.
func satisfiedEarlyCompletion(s *State, _ Criteria) bool {
	return s.Stats.LessonsCompletedTotal > 0 && s.Stats.LastCompletionHour < EarlyCompletionHour
}

// satisfiedLateCompletion: последнее завершение в LateCompletionHour или позже.
func satisfiedLateCompletion(s *State, _ Criteria) bool {
	return s.Stats.LessonsCompletedTotal > 0 && s.Stats.LastCompletionHour >= LateCompletionHour
}

// progressLeaderboardRank использует обратную шкалу: чем меньше ранг, тем
// ближе к цели. Ранг в пределах цели прижимается к 100%.
func progressLeaderboardRank(s *State, c Criteria) int {
	rank := s.Stats.HighestLeaderboardRank
	if !rank.IsValid() {
		return 0
	}
	if rank.Int() <= c.Value {
		return 100
	}
	progress := 100 - rank.Int()
	if progress < 0 {
		return 0
	}
	return progress
}

// progressLeague сравнивает порядковые индексы лиг.
func progressLeague(s *State, c Criteria) int {
	targetIdx := c.League.Index()
	if targetIdx <= 0 {
		return 0
	}
	currentIdx := s.Stats.League.Index()
	if currentIdx >= targetIdx {
		return 100
	}
	return currentIdx * 100 / targetIdx
}

// evaluateCriteria проверяет критерий. Неизвестный вид - "не выполнено".
func evaluateCriteria(s *State, c Criteria) bool {
	ev, ok := evaluators[c.Type]
	if !ok {
		return false
	}
	return ev.satisfied(s, c)
}

// criteriaProgress возвращает прогресс критерия. Неизвестный вид - 0.
func criteriaProgress(s *State, c Criteria) int {
	ev, ok := evaluators[c.Type]
	if !ok {
		return 0
	}
	return ev.progress(s, c)
}

// validateEvaluatorTable проверяет, что каждый объявленный вид критерия
// имеет вычислитель. Вызывается при создании Engine.
func validateEvaluatorTable() error {
	for _, ct := range AllCriteriaTypes() {
		if _, ok := evaluators[ct]; !ok {
			return shared.WrapError("badge", "Register", shared.ErrInvalidEntity,
				"criteria type has no evaluator: "+string(ct), shared.ErrMissingEvaluator)
		}
	}
	return nil
}
