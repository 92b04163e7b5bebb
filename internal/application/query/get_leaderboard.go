package query

import (
	"context"
	"time"

	"github.com/skillpath-hub/skillpath-progression/internal/domain/leaderboard"
	"github.com/skillpath-hub/skillpath-progression/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET LEADERBOARD QUERY
// Читает рейтинг из кеша, который целиком перестраивается фоновой
// задачей. Два режима: топ-N и "вокруг меня" (соседи по рангу).
// ══════════════════════════════════════════════════════════════════════════════

// GetLeaderboardQuery содержит параметры запроса рейтинга.
type GetLeaderboardQuery struct {
	// Limit - размер топа (по умолчанию 10).
	Limit int

	// AroundUserID - если задан, вернуть соседей этого пользователя
	// вместо топа.
	AroundUserID string

	// RangeSize - сколько соседей с каждой стороны (по умолчанию 3).
	RangeSize int
}

// Validate проверяет корректность параметров.
func (q *GetLeaderboardQuery) Validate() error {
	if q.Limit <= 0 {
		q.Limit = 10
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	if q.RangeSize <= 0 {
		q.RangeSize = 3
	}
	if q.RangeSize > 25 {
		q.RangeSize = 25
	}
	return nil
}

// LeaderboardEntryDTO - одна строка рейтинга.
type LeaderboardEntryDTO struct {
	// Rank - позиция в рейтинге.
	Rank int `json:"rank"`

	// UserID - идентификатор пользователя.
	UserID string `json:"user_id"`

	// TotalXP - суммарный XP.
	TotalXP int `json:"total_xp"`

	// Level - уровень.
	Level int `json:"level"`

	// League - лига по позиции.
	League string `json:"league"`

	// IsRequester - это строка запросившего пользователя.
	IsRequester bool `json:"is_requester,omitempty"`
}

// GetLeaderboardResult содержит результат запроса.
type GetLeaderboardResult struct {
	// Entries - строки рейтинга по порядку рангов.
	Entries []LeaderboardEntryDTO `json:"entries"`

	// TotalParticipants - всего участников рейтинга.
	TotalParticipants int `json:"total_participants"`

	// RequesterRank - позиция запросившего (0 = не в рейтинге,
	// заполняется только в режиме "вокруг меня").
	RequesterRank int `json:"requester_rank,omitempty"`

	// LastRebuildAt - когда рейтинг перестраивался последний раз.
	LastRebuildAt time.Time `json:"last_rebuild_at"`

	// GeneratedAt - время генерации.
	GeneratedAt time.Time `json:"generated_at"`
}

// GetLeaderboardHandler обрабатывает запросы рейтинга.
type GetLeaderboardHandler struct {
	cache leaderboard.Cache
}

// NewGetLeaderboardHandler создаёт новый обработчик.
func NewGetLeaderboardHandler(cache leaderboard.Cache) *GetLeaderboardHandler {
	return &GetLeaderboardHandler{cache: cache}
}

// Handle выполняет запрос.
func (h *GetLeaderboardHandler) Handle(ctx context.Context, query GetLeaderboardQuery) (*GetLeaderboardResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	result := &GetLeaderboardResult{GeneratedAt: time.Now().UTC()}

	count, err := h.cache.Count(ctx)
	if err != nil {
		return nil, err
	}
	result.TotalParticipants = count

	if rebuiltAt, err := h.cache.LastRebuildAt(ctx); err == nil {
		result.LastRebuildAt = rebuiltAt
	}

	var (
		entries   []*leaderboard.Entry
		requester shared.UserID
	)
	if query.AroundUserID != "" {
		requester, err = shared.NewUserID(query.AroundUserID)
		if err != nil {
			return nil, shared.WrapError("query", "GetLeaderboard", shared.ErrValidation, "invalid user id", err)
		}

		rank, rankErr := h.cache.GetRank(ctx, requester)
		if rankErr != nil {
			return nil, rankErr
		}
		result.RequesterRank = rank.Int()

		entries, err = h.cache.GetAround(ctx, requester, query.RangeSize)
	} else {
		entries, err = h.cache.GetTop(ctx, query.Limit)
	}
	if err != nil {
		return nil, err
	}

	result.Entries = make([]LeaderboardEntryDTO, 0, len(entries))
	for _, entry := range entries {
		result.Entries = append(result.Entries, LeaderboardEntryDTO{
			Rank:        entry.Rank.Int(),
			UserID:      entry.UserID.String(),
			TotalXP:     entry.TotalXP,
			Level:       entry.Level,
			League:      entry.League.String(),
			IsRequester: entry.UserID == requester,
		})
	}

	return result, nil
}
