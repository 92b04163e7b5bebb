package query

import (
	"context"
	"time"

	"github.com/skillpath-hub/skillpath-progression/internal/domain/progression"
	"github.com/skillpath-hub/skillpath-progression/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET ACTIVITY QUERY
// Тепловая карта активности: количество завершений по календарным дням.
// Дни без активности возвращаются с нулём - клиент рисует сетку без
// собственной арифметики дат.
// ══════════════════════════════════════════════════════════════════════════════

// GetActivityQuery содержит параметры запроса активности.
type GetActivityQuery struct {
	// UserID - идентификатор пользователя.
	UserID string

	// Year, Month - календарный месяц для тепловой карты.
	// Нулевые значения = последние Days дней.
	Year  int
	Month time.Month

	// Days - размер окна при запросе без месяца (по умолчанию 30).
	Days int
}

// Validate проверяет корректность параметров.
func (q *GetActivityQuery) Validate() error {
	if q.UserID == "" {
		return shared.NewDomainError("query", "GetActivity", shared.ErrEmptyValue, "user_id is required")
	}
	if (q.Year == 0) != (q.Month == 0) {
		return shared.NewDomainError("query", "GetActivity", shared.ErrInvalidInput,
			"year and month must be provided together")
	}
	if q.Month != 0 && (q.Month < time.January || q.Month > time.December) {
		return shared.NewDomainError("query", "GetActivity", shared.ErrValueOutOfRange, "invalid month")
	}
	if q.Days <= 0 {
		q.Days = 30
	}
	if q.Days > 366 {
		q.Days = 366
	}
	return nil
}

// ActivityDayDTO - один день тепловой карты.
type ActivityDayDTO struct {
	// Date - день в формате YYYY-MM-DD.
	Date string `json:"date"`

	// Count - количество завершений за день.
	Count int `json:"count"`
}

// GetActivityResult содержит результат запроса.
type GetActivityResult struct {
	// Days - дни диапазона по порядку, включая нулевые.
	Days []ActivityDayDTO `json:"days"`

	// ActiveDays - дней с ненулевой активностью.
	ActiveDays int `json:"active_days"`

	// TotalCompletions - сумма завершений за диапазон.
	TotalCompletions int `json:"total_completions"`

	// CurrentStreak - текущая серия пользователя.
	CurrentStreak int `json:"current_streak"`

	// GeneratedAt - время генерации.
	GeneratedAt time.Time `json:"generated_at"`
}

// GetActivityHandler обрабатывает запросы активности.
type GetActivityHandler struct {
	stateRepo progression.Repository
	engine    *progression.Engine
}

// NewGetActivityHandler создаёт новый обработчик.
func NewGetActivityHandler(stateRepo progression.Repository, engine *progression.Engine) *GetActivityHandler {
	return &GetActivityHandler{stateRepo: stateRepo, engine: engine}
}

// Handle выполняет запрос.
func (h *GetActivityHandler) Handle(ctx context.Context, query GetActivityQuery) (*GetActivityResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	userID, err := shared.NewUserID(query.UserID)
	if err != nil {
		return nil, shared.WrapError("query", "GetActivity", shared.ErrValidation, "invalid user id", err)
	}

	state, err := h.stateRepo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	calendar := h.engine.Calendar()
	var days func(func(progression.ActivityDay) bool)
	if query.Year != 0 {
		days = state.ActivityForMonth(calendar, query.Year, query.Month)
	} else {
		to := calendar.DayOf(time.Now())
		from := to
		for i := 1; i < query.Days; i++ {
			from = from.Prev()
		}
		days = state.ActivityRange(from, to)
	}

	result := &GetActivityResult{
		CurrentStreak: state.CurrentStreak,
		GeneratedAt:   time.Now().UTC(),
	}
	for day := range days {
		result.Days = append(result.Days, ActivityDayDTO{
			Date:  day.Day.String(),
			Count: day.Count,
		})
		if day.Count > 0 {
			result.ActiveDays++
			result.TotalCompletions += day.Count
		}
	}

	return result, nil
}
