package progression

import (
	"sort"
	"time"

	"github.com/skillpath-hub/skillpath-progression/internal/domain/shared"
	"github.com/skillpath-hub/skillpath-progression/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESSION ENGINE
// ══════════════════════════════════════════════════════════════════════════════

// Engine применяет события обучения к агрегату прогрессии.
// Все вычисления синхронные и чисто вычислительные; ввод-вывод
// принадлежит персистентному слою. Атомарность на пользователя
// обеспечивает вызывающая сторона (оптимистичная блокировка агрегата).
type Engine struct {
	table    *MilestoneTable
	registry *BadgeRegistry
	calendar timeutil.Calendar
}

// NewEngine создаёт движок прогрессии.
// Проверяет полноту таблицы вычислителей критериев.
func NewEngine(table *MilestoneTable, registry *BadgeRegistry, calendar timeutil.Calendar) (*Engine, error) {
	if table == nil {
		return nil, shared.NewDomainError("progression", "NewEngine", shared.ErrInvalidInput, "milestone table is nil")
	}
	if registry == nil {
		return nil, shared.NewDomainError("progression", "NewEngine", shared.ErrInvalidInput, "badge registry is nil")
	}
	if err := validateEvaluatorTable(); err != nil {
		return nil, err
	}
	return &Engine{
		table:    table,
		registry: registry,
		calendar: calendar,
	}, nil
}

// Table возвращает таблицу вех движка.
func (e *Engine) Table() *MilestoneTable {
	return e.table
}

// Registry возвращает реестр значков движка.
func (e *Engine) Registry() *BadgeRegistry {
	return e.registry
}

// Calendar возвращает календарь границ дня.
func (e *Engine) Calendar() timeutil.Calendar {
	return e.calendar
}

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETION EVENTS
// ══════════════════════════════════════════════════════════════════════════════

// CompletionEvent - событие завершения урока или теста
// от внешнего учебного коллаборатора.
type CompletionEvent struct {
	// UserID - пользователь, завершивший урок.
	UserID shared.UserID

	// LessonID - идентификатор урока.
	LessonID shared.LessonID

	// Category - категория урока.
	Category string

	// Difficulty - сложность урока.
	Difficulty Difficulty

	// CorrectAnswers - правильных ответов (nil, если баллов нет).
	CorrectAnswers *int

	// TotalQuestions - всего вопросов (nil, если баллов нет).
	TotalQuestions *int

	// IsFirstCompletion - первое ли это прохождение урока.
	IsFirstCompletion bool

	// Timestamp - когда урок завершён.
	Timestamp time.Time
}

// Validate проверяет событие. Отрицательные счётчики вопросов
// отклоняются до попадания в формулу XP.
func (ev CompletionEvent) Validate() error {
	if !ev.UserID.IsValid() {
		return shared.ErrInvalidUserID
	}
	if ev.Timestamp.IsZero() {
		return shared.ErrInvalidTimestamp
	}
	if ev.CorrectAnswers != nil && *ev.CorrectAnswers < 0 {
		return shared.ErrInvalidQuestionData
	}
	if ev.TotalQuestions != nil && *ev.TotalQuestions < 0 {
		return shared.ErrInvalidQuestionData
	}
	return nil
}

// IsPerfect возвращает true для теста, пройденного без ошибок.
func (ev CompletionEvent) IsPerfect() bool {
	return ev.CorrectAnswers != nil && ev.TotalQuestions != nil &&
		*ev.TotalQuestions > 0 && *ev.CorrectAnswers >= *ev.TotalQuestions
}

// ══════════════════════════════════════════════════════════════════════════════
// APPLY COMPLETION
// ══════════════════════════════════════════════════════════════════════════════

// NewlyEarnedBadge - только что полученный значок
// для коллаборатора уведомлений (доставка не более одного раза).
type NewlyEarnedBadge struct {
	// BadgeID - идентификатор значка.
	BadgeID shared.BadgeID

	// Name - название значка.
	Name string

	// Emoji - эмодзи значка.
	Emoji string

	// XPReward - начисленный за значок XP.
	XPReward int

	// EarnedAt - когда значок получен.
	EarnedAt time.Time

	// TotalXPAfter - суммарный XP после начисления награды.
	TotalXPAfter int
}

// ApplyResult - итог применения одного события завершения.
type ApplyResult struct {
	// XPEarned - XP за сам урок (без наград за значки).
	XPEarned int

	// PreviousLevel - уровень до события.
	PreviousLevel int

	// Level - поля уровня после события.
	Level LevelInfo

	// LeveledUp - поднялся ли уровень.
	LeveledUp bool

	// Streak - что произошло с серией.
	Streak StreakChange

	// NewBadges - значки, полученные в этом проходе.
	NewBadges []NewlyEarnedBadge

	// Events - доменные события для публикации в шину.
	Events []shared.Event
}

// ApplyCompletion применяет событие завершения к агрегату.
//
// Строгий порядок: журнал XP -> пересчёт уровня -> серия и дневная
// активность -> проверка значков (каждая награда добавляет транзакцию
// и снова пересчитывает уровень).
//
// Метод изменяет state; вызывающая сторона обязана применять события
// одного пользователя последовательно (см. Repository.Save).
func (e *Engine) ApplyCompletion(state *State, ev CompletionEvent) (*ApplyResult, error) {
	if state == nil {
		return nil, shared.ErrProgressionNotFound
	}
	if err := ev.Validate(); err != nil {
		return nil, err
	}

	result := &ApplyResult{PreviousLevel: state.Level}
	userID := state.UserID.String()

	// 1. Журнал XP.
	xp := CalculateLessonXP(ev.Difficulty, ev.IsFirstCompletion, ev.CorrectAnswers, ev.TotalQuestions)
	tx := state.GrantXP(xp, SourceLesson, "Lesson completed: "+ev.LessonID.String(), ev.Timestamp)
	result.XPEarned = tx.Amount
	result.Events = append(result.Events,
		shared.NewXPGrantedEvent(userID, tx.Amount, state.TotalXP, string(SourceLesson), ev.LessonID.String()))

	// 2. Пересчёт уровня.
	state.applyLevel(e.table.ComputeLevel(state.TotalXP))

	// 3. Серия и дневная активность.
	day := e.calendar.DayOf(ev.Timestamp)
	result.Streak = state.recordActivity(day)
	switch result.Streak.Outcome {
	case StreakStarted, StreakExtended:
		result.Events = append(result.Events,
			shared.NewStreakExtendedEvent(userID, state.CurrentStreak, state.LongestStreak))
	case StreakBroken:
		result.Events = append(result.Events,
			shared.NewStreakBrokenEvent(userID, result.Streak.PreviousStreak, result.Streak.DaysMissed))
	}

	// Статистика для критериев значков.
	e.recordLessonStats(state, ev, day)

	// 4. Проверка значков.
	result.NewBadges = e.CheckAndAward(state, ev.Timestamp)
	for _, badge := range result.NewBadges {
		result.Events = append(result.Events,
			shared.NewBadgeEarnedEvent(userID, badge.BadgeID.String(), badge.Name, badge.XPReward))
	}

	result.Level = e.table.ComputeLevel(state.TotalXP)
	result.LeveledUp = result.Level.Level > result.PreviousLevel
	if result.LeveledUp {
		result.Events = append(result.Events,
			shared.NewLevelUpEvent(userID, result.PreviousLevel, result.Level.Level, result.Level.LevelName, state.TotalXP))
	}

	state.Version++
	return result, nil
}

// GrantBonus начисляет разовый бонусный XP вне уроков (промо-акции,
// ручные корректировки). Серию и статистику уроков не трогает, но
// пересчитывает уровень и проверяет значки: пороговые значки по XP
// могут выполниться от бонуса.
func (e *Engine) GrantBonus(state *State, amount int, reason string, now time.Time) (*ApplyResult, error) {
	if state == nil {
		return nil, shared.ErrProgressionNotFound
	}
	if amount <= 0 {
		return nil, shared.ErrNegativeXPAmount
	}
	if now.IsZero() {
		return nil, shared.ErrInvalidTimestamp
	}

	result := &ApplyResult{PreviousLevel: state.Level}
	userID := state.UserID.String()

	tx := state.GrantXP(amount, SourceBonus, reason, now)
	result.XPEarned = tx.Amount
	result.Events = append(result.Events,
		shared.NewXPGrantedEvent(userID, tx.Amount, state.TotalXP, string(SourceBonus), ""))

	state.applyLevel(e.table.ComputeLevel(state.TotalXP))

	result.NewBadges = e.CheckAndAward(state, now)
	for _, badge := range result.NewBadges {
		result.Events = append(result.Events,
			shared.NewBadgeEarnedEvent(userID, badge.BadgeID.String(), badge.Name, badge.XPReward))
	}

	result.Level = e.table.ComputeLevel(state.TotalXP)
	result.LeveledUp = result.Level.Level > result.PreviousLevel
	if result.LeveledUp {
		result.Events = append(result.Events,
			shared.NewLevelUpEvent(userID, result.PreviousLevel, result.Level.Level, result.Level.LevelName, state.TotalXP))
	}

	state.Version++
	return result, nil
}

// recordLessonStats обновляет статистику значков после завершения урока.
func (e *Engine) recordLessonStats(state *State, ev CompletionEvent, day timeutil.Day) {
	stats := &state.Stats
	stats.LessonsCompletedTotal++
	if stats.LastLessonDay == day {
		stats.LessonsCompletedToday++
	} else {
		stats.LessonsCompletedToday = 1
	}
	stats.LastLessonDay = day
	stats.LastCompletionHour = e.calendar.HourOf(ev.Timestamp)
	stats.ExploreCategory(ev.Category)
	if ev.IsPerfect() {
		stats.PerfectTests++
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// BADGE EVALUATION
// ══════════════════════════════════════════════════════════════════════════════

// CheckAndAward проверяет все ещё не полученные значки и награждает
// выполненные. Каждая награда атомарно: добавляет значок, начисляет
// XP-награду и пересчитывает уровень. Значок никогда не выдаётся дважды;
// повторный вызов с неизменной статистикой не выдаёт ничего.
func (e *Engine) CheckAndAward(state *State, now time.Time) []NewlyEarnedBadge {
	var awarded []NewlyEarnedBadge

	for _, def := range e.registry.defs {
		if state.HasBadge(def.ID) {
			continue
		}
		if !evaluateCriteria(state, def.Criteria) {
			continue
		}
		if !state.awardBadge(def.ID, now) {
			continue
		}

		state.GrantXP(def.XPReward, SourceBadge, "Badge earned: "+def.Name, now)
		state.applyLevel(e.table.ComputeLevel(state.TotalXP))

		awarded = append(awarded, NewlyEarnedBadge{
			BadgeID:      def.ID,
			Name:         def.Name,
			Emoji:        def.Emoji,
			XPReward:     def.XPReward,
			EarnedAt:     now,
			TotalXPAfter: state.TotalXP,
		})
	}

	return awarded
}

// BadgeProgress - значок с прогрессом для отображения.
type BadgeProgress struct {
	// Definition - определение значка.
	Definition BadgeDefinition

	// Earned - получен ли значок.
	Earned bool

	// Claimed - подтверждён ли полученный значок.
	Claimed bool

	// EarnedAt - когда получен (нулевое время, если не получен).
	EarnedAt time.Time

	// Progress - прогресс к получению в процентах (100 для полученных).
	Progress int
}

// BadgesWithProgress возвращает все значки с прогрессом.
// Порядок: сначала полученные (новые первыми), затем неполученные
// по убыванию прогресса.
func (e *Engine) BadgesWithProgress(state *State) []BadgeProgress {
	badges := make([]BadgeProgress, 0, len(e.registry.defs))

	for _, def := range e.registry.defs {
		bp := BadgeProgress{Definition: def}
		if entry, ok := state.BadgeEntry(def.ID); ok {
			bp.Earned = true
			bp.Claimed = entry.Claimed
			bp.EarnedAt = entry.EarnedAt
			bp.Progress = 100
		} else {
			bp.Progress = criteriaProgress(state, def.Criteria)
		}
		badges = append(badges, bp)
	}

	sort.SliceStable(badges, func(i, j int) bool {
		a, b := badges[i], badges[j]
		if a.Earned != b.Earned {
			return a.Earned
		}
		if a.Earned {
			return a.EarnedAt.After(b.EarnedAt)
		}
		return a.Progress > b.Progress
	})

	return badges
}

// ClaimBadge отмечает полученный значок как подтверждённый.
// Идемпотентно. Возвращает false (а не ошибку), если значок
// не существует или ещё не получен: это best-effort действие UI.
func (e *Engine) ClaimBadge(state *State, id shared.BadgeID) bool {
	if state == nil {
		return false
	}
	if _, known := e.registry.Get(id); !known {
		return false
	}
	return state.claimBadge(id)
}
