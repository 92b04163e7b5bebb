package progression

import (
	"time"

	"github.com/skillpath-hub/skillpath-progression/internal/domain/shared"
	"github.com/skillpath-hub/skillpath-progression/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// BADGE CRITERIA
// ══════════════════════════════════════════════════════════════════════════════

// CriteriaType - вид критерия значка. Набор закрыт:
// каждый вид обязан иметь зарегистрированный вычислитель (см. evaluator.go).
type CriteriaType string

const (
	CriteriaLessonsCompleted    CriteriaType = "lessons_completed"
	CriteriaStreak              CriteriaType = "streak"
	CriteriaChallengesCompleted CriteriaType = "challenges_completed"
	CriteriaXPEarned            CriteriaType = "xp_earned"
	CriteriaPerfectTest         CriteriaType = "perfect_test"
	CriteriaLessonsPerDay       CriteriaType = "lessons_per_day"
	CriteriaEarlyCompletion     CriteriaType = "early_completion"
	CriteriaLateCompletion      CriteriaType = "late_completion"
	CriteriaCategoriesExplored  CriteriaType = "categories_explored"
	CriteriaSkillsMastered      CriteriaType = "skills_mastered"
	CriteriaStreakRestored      CriteriaType = "streak_restored"
	CriteriaLeaderboardRank     CriteriaType = "leaderboard_rank"
	CriteriaLeague              CriteriaType = "league"
)

// AllCriteriaTypes возвращает полный набор видов критериев.
func AllCriteriaTypes() []CriteriaType {
	return []CriteriaType{
		CriteriaLessonsCompleted,
		CriteriaStreak,
		CriteriaChallengesCompleted,
		CriteriaXPEarned,
		CriteriaPerfectTest,
		CriteriaLessonsPerDay,
		CriteriaEarlyCompletion,
		CriteriaLateCompletion,
		CriteriaCategoriesExplored,
		CriteriaSkillsMastered,
		CriteriaStreakRestored,
		CriteriaLeaderboardRank,
		CriteriaLeague,
	}
}

// Граничные часы для значков "ранняя пташка" и "ночная сова".
const (
	// EarlyCompletionHour - последнее завершение строго до этого часа.
	EarlyCompletionHour = 9
	// LateCompletionHour - последнее завершение в этот час или позже.
	LateCompletionHour = 22
)

// Criteria - типизированный предикат значка: вид и целевое значение.
// Для вида league целевое звено хранится в League, Value не используется.
type Criteria struct {
	// Type - вид критерия.
	Type CriteriaType

	// Value - целевое значение для счётных критериев
	// (количество уроков, длина серии, целевой ранг и т.п.).
	Value int

	// League - целевая лига для критерия вида league.
	League shared.League
}

// ══════════════════════════════════════════════════════════════════════════════
// BADGE DEFINITIONS
// ══════════════════════════════════════════════════════════════════════════════

// Rarity - редкость значка (влияет только на отображение).
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// BadgeDefinition описывает значок. Статическая конфигурация,
// загружается один раз при старте и дальше только читается.
type BadgeDefinition struct {
	// ID - уникальный идентификатор значка.
	ID shared.BadgeID

	// Name - отображаемое название.
	Name string

	// Emoji - эмодзи значка.
	Emoji string

	// Description - описание условия получения.
	Description string

	// Rarity - редкость.
	Rarity Rarity

	// XPReward - XP-награда за получение.
	XPReward int

	// Criteria - условие получения.
	Criteria Criteria
}

// EarnedBadge - полученный пользователем значок.
// Переходы необратимы: UNEARNED -> EARNED -> CLAIMED.
type EarnedBadge struct {
	// BadgeID - идентификатор значка.
	BadgeID shared.BadgeID

	// EarnedAt - когда значок получен.
	EarnedAt time.Time

	// Claimed - подтвердил ли пользователь получение.
	Claimed bool
}

// ══════════════════════════════════════════════════════════════════════════════
// BADGE STATS
// ══════════════════════════════════════════════════════════════════════════════

// BadgeStats - статистика пользователя, по которой оцениваются критерии.
type BadgeStats struct {
	// LessonsCompletedTotal - всего завершено уроков.
	LessonsCompletedTotal int

	// LessonsCompletedToday - завершено уроков за последний активный день.
	LessonsCompletedToday int

	// LastLessonDay - календарный день последнего завершённого урока.
	LastLessonDay timeutil.Day

	// LastCompletionHour - локальный час последнего завершения (0-23).
	LastCompletionHour int

	// PerfectTests - количество тестов, пройденных без ошибок.
	PerfectTests int

	// ChallengesCompleted - завершено челленджей (внешний счётчик).
	ChallengesCompleted int

	// SkillsMastered - освоено навыков (внешний счётчик).
	SkillsMastered int

	// CategoriesExplored - множество затронутых категорий уроков.
	CategoriesExplored map[string]struct{}

	// StreakRestored - восстанавливал ли пользователь серию
	// (флаг выставляется внешней фичей заморозки серии).
	StreakRestored bool

	// HighestLeaderboardRank - лучший достигнутый ранг.
	// Заполняется внешней периодической задачей ранжирования.
	HighestLeaderboardRank shared.Rank

	// League - текущая лига пользователя (тоже внешний вход).
	League shared.League
}

// NewBadgeStats создаёт пустую статистику.
func NewBadgeStats() BadgeStats {
	return BadgeStats{
		CategoriesExplored: make(map[string]struct{}),
	}
}

// ExploreCategory добавляет категорию в множество затронутых.
func (s *BadgeStats) ExploreCategory(category string) {
	if category == "" {
		return
	}
	if s.CategoriesExplored == nil {
		s.CategoriesExplored = make(map[string]struct{})
	}
	s.CategoriesExplored[category] = struct{}{}
}

// CategoriesCount возвращает количество затронутых категорий.
func (s *BadgeStats) CategoriesCount() int {
	return len(s.CategoriesExplored)
}

// ══════════════════════════════════════════════════════════════════════════════
// BADGE REGISTRY
// ══════════════════════════════════════════════════════════════════════════════

// BadgeRegistry - неизменяемый реестр определений значков.
// Неизвестные виды критериев допускаются при загрузке (конфигурация
// может обновляться независимо от кода), но такие значки никогда
// не признаются выполненными.
type BadgeRegistry struct {
	defs []BadgeDefinition
	byID map[shared.BadgeID]BadgeDefinition
}

// NewBadgeRegistry создаёт реестр с валидацией определений.
func NewBadgeRegistry(defs []BadgeDefinition) (*BadgeRegistry, error) {
	if len(defs) == 0 {
		return nil, shared.ErrEmptyBadgeRegistry
	}

	byID := make(map[shared.BadgeID]BadgeDefinition, len(defs))
	for _, def := range defs {
		if !def.ID.IsValid() {
			return nil, shared.NewDomainError("badge", "Register", shared.ErrInvalidID,
				"invalid badge id: "+def.ID.String())
		}
		if _, exists := byID[def.ID]; exists {
			return nil, shared.ErrDuplicateBadgeID
		}
		if def.XPReward < 0 {
			return nil, shared.ErrInvalidBadgeTarget
		}
		if def.Criteria.Type == CriteriaLeague {
			if !def.Criteria.League.IsValid() {
				return nil, shared.ErrUnknownLeague
			}
		} else if def.Criteria.Value < 0 {
			return nil, shared.ErrInvalidBadgeTarget
		}
		byID[def.ID] = def
	}

	registry := &BadgeRegistry{
		defs: make([]BadgeDefinition, len(defs)),
		byID: byID,
	}
	copy(registry.defs, defs)
	return registry, nil
}

// All возвращает все определения в порядке регистрации.
func (r *BadgeRegistry) All() []BadgeDefinition {
	defs := make([]BadgeDefinition, len(r.defs))
	copy(defs, r.defs)
	return defs
}

// Get возвращает определение значка по ID.
func (r *BadgeRegistry) Get(id shared.BadgeID) (BadgeDefinition, bool) {
	def, ok := r.byID[id]
	return def, ok
}

// Len возвращает количество значков в реестре.
func (r *BadgeRegistry) Len() int {
	return len(r.defs)
}

// DefaultBadgeRegistry возвращает стандартный каталог значков SkillPath.
func DefaultBadgeRegistry() *BadgeRegistry {
	registry, err := NewBadgeRegistry([]BadgeDefinition{
		{ID: "first_steps", Name: "First Steps", Emoji: "👣", Description: "Complete your first lesson", Rarity: RarityCommon, XPReward: 25, Criteria: Criteria{Type: CriteriaLessonsCompleted, Value: 1}},
		{ID: "quick_learner", Name: "Quick Learner", Emoji: "📗", Description: "Complete 3 lessons", Rarity: RarityCommon, XPReward: 50, Criteria: Criteria{Type: CriteriaLessonsCompleted, Value: 3}},
		{ID: "bookworm", Name: "Bookworm", Emoji: "📚", Description: "Complete 25 lessons", Rarity: RarityRare, XPReward: 150, Criteria: Criteria{Type: CriteriaLessonsCompleted, Value: 25}},
		{ID: "scholar_100", Name: "Centurion", Emoji: "🏛️", Description: "Complete 100 lessons", Rarity: RarityEpic, XPReward: 500, Criteria: Criteria{Type: CriteriaLessonsCompleted, Value: 100}},
		{ID: "streak_week", Name: "Week of Fire", Emoji: "🔥", Description: "Keep a 7-day streak", Rarity: RarityCommon, XPReward: 100, Criteria: Criteria{Type: CriteriaStreak, Value: 7}},
		{ID: "streak_month", Name: "Iron Will", Emoji: "💪", Description: "Keep a 30-day streak", Rarity: RarityEpic, XPReward: 500, Criteria: Criteria{Type: CriteriaStreak, Value: 30}},
		{ID: "streak_hundred", Name: "Unstoppable", Emoji: "⚡", Description: "Keep a 100-day streak", Rarity: RarityLegendary, XPReward: 2000, Criteria: Criteria{Type: CriteriaStreak, Value: 100}},
		{ID: "challenger", Name: "Challenger", Emoji: "🎯", Description: "Complete 10 challenges", Rarity: RarityRare, XPReward: 200, Criteria: Criteria{Type: CriteriaChallengesCompleted, Value: 10}},
		{ID: "xp_collector", Name: "XP Collector", Emoji: "💎", Description: "Earn 10,000 XP", Rarity: RarityRare, XPReward: 250, Criteria: Criteria{Type: CriteriaXPEarned, Value: 10000}},
		{ID: "xp_hoarder", Name: "XP Hoarder", Emoji: "👑", Description: "Earn 100,000 XP", Rarity: RarityLegendary, XPReward: 1000, Criteria: Criteria{Type: CriteriaXPEarned, Value: 100000}},
		{ID: "perfectionist", Name: "Perfectionist", Emoji: "✨", Description: "Pass 5 tests with a perfect score", Rarity: RarityRare, XPReward: 200, Criteria: Criteria{Type: CriteriaPerfectTest, Value: 5}},
		{ID: "marathon_day", Name: "Marathon Day", Emoji: "🏃", Description: "Complete 5 lessons in a single day", Rarity: RarityRare, XPReward: 150, Criteria: Criteria{Type: CriteriaLessonsPerDay, Value: 5}},
		{ID: "early_bird", Name: "Early Bird", Emoji: "🐦", Description: "Finish a lesson before 9:00", Rarity: RarityCommon, XPReward: 25, Criteria: Criteria{Type: CriteriaEarlyCompletion}},
		{ID: "night_owl", Name: "Night Owl", Emoji: "🦉", Description: "Finish a lesson at 22:00 or later", Rarity: RarityCommon, XPReward: 25, Criteria: Criteria{Type: CriteriaLateCompletion}},
		{ID: "curious_mind", Name: "Curious Mind", Emoji: "🧭", Description: "Explore 5 different categories", Rarity: RarityRare, XPReward: 150, Criteria: Criteria{Type: CriteriaCategoriesExplored, Value: 5}},
		{ID: "skill_master", Name: "Skill Master", Emoji: "🧙", Description: "Master 10 skills", Rarity: RarityEpic, XPReward: 400, Criteria: Criteria{Type: CriteriaSkillsMastered, Value: 10}},
		{ID: "phoenix", Name: "Phoenix", Emoji: "🔄", Description: "Restore a broken streak", Rarity: RarityCommon, XPReward: 50, Criteria: Criteria{Type: CriteriaStreakRestored}},
		{ID: "top_ten", Name: "Elite Ten", Emoji: "🏆", Description: "Reach top 10 on the leaderboard", Rarity: RarityEpic, XPReward: 300, Criteria: Criteria{Type: CriteriaLeaderboardRank, Value: 10}},
		{ID: "podium", Name: "Podium", Emoji: "🥇", Description: "Reach top 3 on the leaderboard", Rarity: RarityLegendary, XPReward: 750, Criteria: Criteria{Type: CriteriaLeaderboardRank, Value: 3}},
		{ID: "silver_league", Name: "Silver Standard", Emoji: "🥈", Description: "Reach the Silver league", Rarity: RarityCommon, XPReward: 75, Criteria: Criteria{Type: CriteriaLeague, League: shared.LeagueSilver}},
		{ID: "gold_league", Name: "Golden Era", Emoji: "🌟", Description: "Reach the Gold league", Rarity: RarityRare, XPReward: 200, Criteria: Criteria{Type: CriteriaLeague, League: shared.LeagueGold}},
		{ID: "master_league", Name: "Grandmaster", Emoji: "🎖️", Description: "Reach the Master league", Rarity: RarityLegendary, XPReward: 1500, Criteria: Criteria{Type: CriteriaLeague, League: shared.LeagueMaster}},
	})
	if err != nil {
		// Каталог статический, ошибка здесь невозможна.
		panic(err)
	}
	return registry
}
