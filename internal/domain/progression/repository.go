package progression

import (
	"context"

	"github.com/skillpath-hub/skillpath-progression/internal/domain/shared"
	"github.com/skillpath-hub/skillpath-progression/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Эти интерфейсы определяют контракт для работы с хранилищем данных.
// Реализации находятся в infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository определяет операции с агрегатом прогрессии.
type Repository interface {
	// Create создаёт агрегат нового пользователя.
	// Возвращает shared.ErrAlreadyExists, если агрегат уже существует.
	Create(ctx context.Context, state *State) error

	// Get возвращает агрегат пользователя без журнала транзакций.
	// Возвращает shared.ErrProgressionNotFound, если агрегат не найден.
	Get(ctx context.Context, userID shared.UserID) (*State, error)

	// Save сохраняет изменённый агрегат с проверкой версии.
	// Возвращает shared.ErrStaleState, если версия в хранилище
	// изменилась после загрузки (оптимистичная блокировка).
	Save(ctx context.Context, state *State) error

	// Exists проверяет существование агрегата.
	Exists(ctx context.Context, userID shared.UserID) (bool, error)

	// ListUserIDs возвращает идентификаторы всех пользователей
	// (для фоновых задач ранжирования и сверки).
	ListUserIDs(ctx context.Context) ([]shared.UserID, error)

	// TotalsByUser возвращает суммарный XP каждого пользователя
	// (вход для перестроения лидерборда).
	TotalsByUser(ctx context.Context) (map[shared.UserID]int, error)

	// UpdateRanking записывает результат задачи ранжирования:
	// лучший ранг и текущую лигу пользователя.
	UpdateRanking(ctx context.Context, userID shared.UserID, rank shared.Rank, league shared.League) error
}

// LedgerRepository определяет операции с журналом XP-транзакций.
type LedgerRepository interface {
	// Append добавляет транзакции пользователя в журнал.
	// Журнал append-only: обновления и удаления не предусмотрены.
	Append(ctx context.Context, userID shared.UserID, txs []XPTransaction) error

	// History возвращает транзакции пользователя (от старых к новым).
	History(ctx context.Context, userID shared.UserID, p shared.Pagination) ([]XPTransaction, error)

	// SumForUser возвращает сумму журнала пользователя
	// (для сверки с TotalXP агрегата).
	SumForUser(ctx context.Context, userID shared.UserID) (int, error)

	// CountForUser возвращает количество транзакций пользователя.
	CountForUser(ctx context.Context, userID shared.UserID) (int, error)
}

// ActivityReader определяет чтение дневной активности для тепловых карт.
type ActivityReader interface {
	// ActivityRange возвращает количество активностей по дням
	// диапазона [from, to]. Пропущенные дни не включаются.
	ActivityRange(ctx context.Context, userID shared.UserID, from, to timeutil.Day) (map[timeutil.Day]int, error)
}
