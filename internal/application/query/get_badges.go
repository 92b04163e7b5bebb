package query

import (
	"context"
	"time"

	"github.com/skillpath-hub/skillpath-progression/internal/domain/progression"
	"github.com/skillpath-hub/skillpath-progression/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET BADGES QUERY
// Витрина значков: полученные первыми (новые сверху), затем неполученные
// по убыванию прогресса. Прогресс считается движком по текущей статистике.
// ══════════════════════════════════════════════════════════════════════════════

// GetBadgesQuery содержит параметры запроса значков.
type GetBadgesQuery struct {
	// UserID - идентификатор пользователя.
	UserID string

	// OnlyEarned - вернуть только полученные значки.
	OnlyEarned bool

	// OnlyUnclaimed - вернуть только полученные, но не подтверждённые.
	OnlyUnclaimed bool
}

// Validate проверяет корректность параметров.
func (q *GetBadgesQuery) Validate() error {
	if q.UserID == "" {
		return shared.NewDomainError("query", "GetBadges", shared.ErrEmptyValue, "user_id is required")
	}
	return nil
}

// BadgeDTO - значок с прогрессом для отображения.
type BadgeDTO struct {
	// ID - идентификатор значка.
	ID string `json:"id"`

	// Name - название значка.
	Name string `json:"name"`

	// Description - описание условия получения.
	Description string `json:"description"`

	// Emoji - эмодзи значка.
	Emoji string `json:"emoji"`

	// Rarity - редкость: common, rare, epic, legendary.
	Rarity string `json:"rarity"`

	// XPReward - награда за получение.
	XPReward int `json:"xp_reward"`

	// Earned - получен ли значок.
	Earned bool `json:"earned"`

	// Claimed - подтверждён ли полученный значок.
	Claimed bool `json:"claimed"`

	// EarnedAt - когда получен (nil, если не получен).
	EarnedAt *time.Time `json:"earned_at,omitempty"`

	// Progress - прогресс к получению в процентах (100 для полученных).
	Progress int `json:"progress"`
}

// GetBadgesResult содержит результат запроса.
type GetBadgesResult struct {
	// Badges - значки в порядке отображения.
	Badges []BadgeDTO `json:"badges"`

	// EarnedCount - всего получено.
	EarnedCount int `json:"earned_count"`

	// TotalCount - всего значков в реестре.
	TotalCount int `json:"total_count"`

	// GeneratedAt - время генерации.
	GeneratedAt time.Time `json:"generated_at"`
}

// GetBadgesHandler обрабатывает запросы значков.
type GetBadgesHandler struct {
	stateRepo progression.Repository
	engine    *progression.Engine
}

// NewGetBadgesHandler создаёт новый обработчик.
func NewGetBadgesHandler(stateRepo progression.Repository, engine *progression.Engine) *GetBadgesHandler {
	return &GetBadgesHandler{stateRepo: stateRepo, engine: engine}
}

// Handle выполняет запрос.
func (h *GetBadgesHandler) Handle(ctx context.Context, query GetBadgesQuery) (*GetBadgesResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	userID, err := shared.NewUserID(query.UserID)
	if err != nil {
		return nil, shared.WrapError("query", "GetBadges", shared.ErrValidation, "invalid user id", err)
	}

	state, err := h.stateRepo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	progress := h.engine.BadgesWithProgress(state)
	result := &GetBadgesResult{
		Badges:      make([]BadgeDTO, 0, len(progress)),
		TotalCount:  h.engine.Registry().Len(),
		GeneratedAt: time.Now().UTC(),
	}

	for _, bp := range progress {
		if bp.Earned {
			result.EarnedCount++
		}
		if query.OnlyEarned && !bp.Earned {
			continue
		}
		if query.OnlyUnclaimed && (!bp.Earned || bp.Claimed) {
			continue
		}

		dto := BadgeDTO{
			ID:          bp.Definition.ID.String(),
			Name:        bp.Definition.Name,
			Description: bp.Definition.Description,
			Emoji:       bp.Definition.Emoji,
			Rarity:      string(bp.Definition.Rarity),
			XPReward:    bp.Definition.XPReward,
			Earned:      bp.Earned,
			Claimed:     bp.Claimed,
			Progress:    bp.Progress,
		}
		if bp.Earned {
			earnedAt := bp.EarnedAt
			dto.EarnedAt = &earnedAt
		}
		result.Badges = append(result.Badges, dto)
	}

	return result, nil
}
