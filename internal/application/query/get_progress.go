// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"time"

	"github.com/skillpath-hub/skillpath-progression/internal/domain/progression"
	"github.com/skillpath-hub/skillpath-progression/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET PROGRESS QUERY
// Главная карточка прогресса пользователя: уровень, XP, серия, лига.
// Всё читается из одного агрегата - без обращений к журналу.
// ══════════════════════════════════════════════════════════════════════════════

// GetProgressQuery содержит параметры запроса прогресса.
type GetProgressQuery struct {
	// UserID - идентификатор пользователя.
	UserID string
}

// Validate проверяет корректность параметров.
func (q *GetProgressQuery) Validate() error {
	if q.UserID == "" {
		return shared.NewDomainError("query", "GetProgress", shared.ErrEmptyValue, "user_id is required")
	}
	return nil
}

// ProgressDTO - карточка прогресса для отображения.
type ProgressDTO struct {
	// UserID - идентификатор пользователя.
	UserID string `json:"user_id"`

	// TotalXP - суммарный заработанный XP.
	TotalXP int `json:"total_xp"`

	// Level - текущий уровень.
	Level int `json:"level"`

	// LevelName - название уровня ("Novice Explorer" и далее).
	LevelName string `json:"level_name"`

	// XPIntoLevel - XP внутри текущего уровня.
	XPIntoLevel int `json:"xp_into_level"`

	// XPForNextLevel - размер текущего уровня в XP (0 на максимуме).
	XPForNextLevel int `json:"xp_for_next_level"`

	// XPProgress - прогресс к следующему уровню (0-100).
	XPProgress int `json:"xp_progress"`

	// IsMaxLevel - достигнут ли максимальный уровень.
	IsMaxLevel bool `json:"is_max_level"`

	// NextLevelName - название следующего уровня (пустое на максимуме).
	NextLevelName string `json:"next_level_name,omitempty"`

	// CurrentStreak - текущая серия активных дней.
	CurrentStreak int `json:"current_streak"`

	// LongestStreak - лучшая серия за всё время.
	LongestStreak int `json:"longest_streak"`

	// LastActivityDate - дата последней активности (YYYY-MM-DD, пустая
	// для нового пользователя).
	LastActivityDate string `json:"last_activity_date,omitempty"`

	// BadgesEarned - количество полученных значков.
	BadgesEarned int `json:"badges_earned"`

	// UnclaimedBadges - полученные, но ещё не подтверждённые значки.
	UnclaimedBadges int `json:"unclaimed_badges"`

	// LessonsCompleted - уроков завершено всего.
	LessonsCompleted int `json:"lessons_completed"`

	// PerfectTests - тестов пройдено без ошибок.
	PerfectTests int `json:"perfect_tests"`

	// HighestRank - лучшая позиция в лидерборде (0 = не в рейтинге).
	HighestRank int `json:"highest_rank,omitempty"`

	// League - текущая лига (пустая = не присвоена).
	League string `json:"league,omitempty"`

	// MemberSince - когда создан профиль прогрессии.
	MemberSince time.Time `json:"member_since"`

	// GeneratedAt - время генерации ответа.
	GeneratedAt time.Time `json:"generated_at"`
}

// GetProgressHandler обрабатывает запросы прогресса.
type GetProgressHandler struct {
	stateRepo progression.Repository
	engine    *progression.Engine
}

// NewGetProgressHandler создаёт новый обработчик.
func NewGetProgressHandler(stateRepo progression.Repository, engine *progression.Engine) *GetProgressHandler {
	return &GetProgressHandler{stateRepo: stateRepo, engine: engine}
}

// Handle выполняет запрос.
func (h *GetProgressHandler) Handle(ctx context.Context, query GetProgressQuery) (*ProgressDTO, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	userID, err := shared.NewUserID(query.UserID)
	if err != nil {
		return nil, shared.WrapError("query", "GetProgress", shared.ErrValidation, "invalid user id", err)
	}

	state, err := h.stateRepo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	dto := &ProgressDTO{
		UserID:           state.UserID.String(),
		TotalXP:          state.TotalXP,
		Level:            state.Level,
		LevelName:        state.LevelName,
		XPIntoLevel:      state.XPIntoLevel,
		XPForNextLevel:   state.XPForNextLevel,
		XPProgress:       state.XPProgress,
		IsMaxLevel:       state.IsMaxLevel,
		CurrentStreak:    state.CurrentStreak,
		LongestStreak:    state.LongestStreak,
		BadgesEarned:     len(state.Badges),
		LessonsCompleted: state.Stats.LessonsCompletedTotal,
		PerfectTests:     state.Stats.PerfectTests,
		HighestRank:      state.Stats.HighestLeaderboardRank.Int(),
		League:           state.Stats.League.String(),
		MemberSince:      state.CreatedAt,
		GeneratedAt:      time.Now().UTC(),
	}

	if !state.IsMaxLevel {
		dto.NextLevelName = h.engine.Table().ComputeLevel(state.TotalXP).NextLevelName
	}
	if !state.LastActivityDay.IsZero() {
		dto.LastActivityDate = state.LastActivityDay.String()
	}
	for _, badge := range state.Badges {
		if !badge.Claimed {
			dto.UnclaimedBadges++
		}
	}

	return dto, nil
}
