package leaderboard

import (
	"context"
	"time"

	"github.com/skillpath-hub/skillpath-progression/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD CACHE INTERFACE
// Кеш лидерборда (обычно Redis ZSET). Перестраивается целиком
// фоновой задачей ранжирования; запросы читают из него.
// ══════════════════════════════════════════════════════════════════════════════

// Cache определяет контракт хранилища рейтинга.
type Cache interface {
	// Rebuild атомарно заменяет рейтинг новым набором записей.
	Rebuild(ctx context.Context, entries []*Entry) error

	// GetRank возвращает позицию пользователя.
	// Возвращает shared.Unranked, если пользователя нет в рейтинге.
	GetRank(ctx context.Context, userID shared.UserID) (shared.Rank, error)

	// GetTop возвращает топ-N записей рейтинга.
	GetTop(ctx context.Context, limit int) ([]*Entry, error)

	// GetAround возвращает соседей пользователя по рангу (±rangeSize).
	GetAround(ctx context.Context, userID shared.UserID, rangeSize int) ([]*Entry, error)

	// Count возвращает количество участников рейтинга.
	Count(ctx context.Context) (int, error)

	// LastRebuildAt возвращает время последнего перестроения.
	LastRebuildAt(ctx context.Context) (time.Time, error)
}
