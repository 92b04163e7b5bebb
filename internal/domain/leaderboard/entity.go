// Package leaderboard содержит доменную модель лидерборда SkillPath.
// Лидерборд строится внешней периодической задачей ранжирования;
// движок прогрессии лишь потребляет её результат (лучший ранг и лигу).
package leaderboard

import (
	"fmt"
	"sort"
	"time"

	"github.com/skillpath-hub/skillpath-progression/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD ENTRY
// ══════════════════════════════════════════════════════════════════════════════

// Entry представляет одну запись лидерборда.
type Entry struct {
	// Rank - текущая позиция в рейтинге.
	Rank shared.Rank

	// UserID - идентификатор пользователя.
	UserID shared.UserID

	// TotalXP - суммарный XP пользователя.
	TotalXP int

	// Level - уровень пользователя (вычисляется из XP).
	Level int

	// League - лига, присвоенная по позиции в рейтинге.
	League shared.League

	// UpdatedAt - время последнего пересчёта.
	UpdatedAt time.Time
}

// NewEntry создаёт запись лидерборда с валидацией.
func NewEntry(rank shared.Rank, userID shared.UserID, totalXP, level int) (*Entry, error) {
	if !rank.IsValid() {
		return nil, shared.ErrInvalidRank
	}
	if !userID.IsValid() {
		return nil, shared.ErrInvalidUserID
	}
	if totalXP < 0 {
		return nil, shared.ErrNegativeValue
	}

	return &Entry{
		Rank:      rank,
		UserID:    userID,
		TotalXP:   totalXP,
		Level:     level,
		UpdatedAt: time.Now().UTC(),
	}, nil
}

// String возвращает строковое представление для логирования.
func (e *Entry) String() string {
	return fmt.Sprintf("Entry{Rank: %d, UserID: %s, XP: %d, League: %s}",
		e.Rank, e.UserID, e.TotalXP, e.League)
}

// ══════════════════════════════════════════════════════════════════════════════
// RANKING (Ranked List)
// ══════════════════════════════════════════════════════════════════════════════

// Ranking - полный отсортированный список пользователей.
// Вспомогательная структура задачи перестроения лидерборда.
type Ranking struct {
	entries []*Entry
	byID    map[shared.UserID]*Entry
}

// NewRanking создаёт пустой Ranking.
func NewRanking() *Ranking {
	return &Ranking{
		entries: make([]*Entry, 0),
		byID:    make(map[shared.UserID]*Entry),
	}
}

// Add добавляет запись в рейтинг (без автоматической сортировки).
func (r *Ranking) Add(entry *Entry) error {
	if entry == nil {
		return shared.NewDomainError("leaderboard", "Add", shared.ErrInvalidInput, "nil entry")
	}
	if _, exists := r.byID[entry.UserID]; exists {
		return shared.NewDomainError("leaderboard", "Add", shared.ErrAlreadyExists,
			"user already exists in ranking: "+entry.UserID.String())
	}

	r.entries = append(r.entries, entry)
	r.byID[entry.UserID] = entry
	return nil
}

// SortByXP сортирует записи по XP (по убыванию), присваивает ранги
// и лиги. Одинаковый XP даёт одинаковый ранг.
func (r *Ranking) SortByXP() {
	sort.Slice(r.entries, func(i, j int) bool {
		if r.entries[i].TotalXP != r.entries[j].TotalXP {
			return r.entries[i].TotalXP > r.entries[j].TotalXP
		}
		// При равном XP - по ID (стабильная сортировка).
		return r.entries[i].UserID < r.entries[j].UserID
	})

	population := len(r.entries)
	for i, entry := range r.entries {
		if i > 0 && entry.TotalXP == r.entries[i-1].TotalXP {
			entry.Rank = r.entries[i-1].Rank
		} else {
			entry.Rank = shared.Rank(i + 1)
		}
		entry.League = LeagueForRank(entry.Rank, population)
	}
}

// GetByID возвращает запись по ID пользователя.
func (r *Ranking) GetByID(userID shared.UserID) *Entry {
	return r.byID[userID]
}

// Top возвращает топ-N записей.
func (r *Ranking) Top(n int) []*Entry {
	if n <= 0 {
		return nil
	}
	if n > len(r.entries) {
		n = len(r.entries)
	}
	result := make([]*Entry, n)
	copy(result, r.entries[:n])
	return result
}

// All возвращает все записи в текущем порядке.
func (r *Ranking) All() []*Entry {
	result := make([]*Entry, len(r.entries))
	copy(result, r.entries)
	return result
}

// Count возвращает общее количество записей.
func (r *Ranking) Count() int {
	return len(r.entries)
}
