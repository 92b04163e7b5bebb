package progression

import (
	"time"

	"github.com/skillpath-hub/skillpath-progression/internal/domain/shared"
	"github.com/skillpath-hub/skillpath-progression/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESSION STATE (Aggregate Root)
// ══════════════════════════════════════════════════════════════════════════════

// State - агрегат прогрессии одного пользователя.
// Изменяется только через Engine; прямое редактирование полей
// вне доменного пакета нарушает инварианты.
type State struct {
	// UserID - идентификатор пользователя.
	UserID shared.UserID

	// TotalXP - суммарный заработанный XP (равен сумме журнала).
	TotalXP int

	// Level - текущий уровень.
	Level int

	// LevelName - название текущего уровня.
	LevelName string

	// XPIntoLevel - XP внутри текущего уровня.
	XPIntoLevel int

	// XPForNextLevel - размер текущего уровня в XP.
	XPForNextLevel int

	// XPProgress - прогресс к следующему уровню (0-100).
	XPProgress int

	// IsMaxLevel - достигнут ли максимальный уровень.
	IsMaxLevel bool

	// CurrentStreak - текущая серия активных дней.
	CurrentStreak int

	// LongestStreak - лучшая серия активных дней.
	LongestStreak int

	// LastActivityDay - календарный день последней активности.
	LastActivityDay timeutil.Day

	// DailyActivity - разреженная карта день -> количество активностей.
	// Хранится полная история; чтение диапазонов зануляет пропуски.
	DailyActivity map[timeutil.Day]int

	// Badges - полученные значки (каждый BadgeID не более одного раза).
	Badges []EarnedBadge

	// Stats - статистика для оценки критериев значков.
	Stats BadgeStats

	// Ledger - журнал XP-транзакций.
	Ledger *Ledger

	// Version - счётчик версий для оптимистичной блокировки.
	Version int

	// CreatedAt - когда создан агрегат.
	CreatedAt time.Time

	// UpdatedAt - когда агрегат последний раз изменялся.
	UpdatedAt time.Time

	// pending - транзакции, добавленные после загрузки агрегата.
	// Персистентный слой забирает их через TakePendingTransactions.
	pending []XPTransaction
}

// NewState создаёт пустой агрегат прогрессии для нового пользователя.
func NewState(userID shared.UserID, table *MilestoneTable) (*State, error) {
	if !userID.IsValid() {
		return nil, shared.ErrInvalidUserID
	}

	now := time.Now().UTC()
	s := &State{
		UserID:        userID,
		DailyActivity: make(map[timeutil.Day]int),
		Stats:         NewBadgeStats(),
		Ledger:        NewLedger(nil),
		Version:       0,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.applyLevel(table.ComputeLevel(0))
	return s, nil
}

// GrantXP добавляет транзакцию в журнал и увеличивает TotalXP.
// Отрицательная сумма прижимается к нулю. Записи никогда не удаляются.
func (s *State) GrantXP(amount int, source XPSource, description string, timestamp time.Time) XPTransaction {
	if amount < 0 {
		amount = 0
	}

	tx := XPTransaction{
		Amount:      amount,
		Source:      source,
		Description: description,
		Timestamp:   timestamp,
	}
	s.Ledger.Append(tx)
	s.pending = append(s.pending, tx)
	s.TotalXP += tx.Amount
	s.UpdatedAt = timestamp
	return tx
}

// applyLevel переносит результат расчёта уровня в поля агрегата.
func (s *State) applyLevel(info LevelInfo) {
	s.Level = info.Level
	s.LevelName = info.LevelName
	s.XPIntoLevel = info.XPIntoLevel
	s.XPForNextLevel = info.XPForNextLevel
	s.XPProgress = info.XPProgress
	s.IsMaxLevel = info.IsMaxLevel
}

// HasBadge проверяет, получен ли значок.
func (s *State) HasBadge(id shared.BadgeID) bool {
	for _, b := range s.Badges {
		if b.BadgeID == id {
			return true
		}
	}
	return false
}

// BadgeEntry возвращает запись о полученном значке.
func (s *State) BadgeEntry(id shared.BadgeID) (EarnedBadge, bool) {
	for _, b := range s.Badges {
		if b.BadgeID == id {
			return b, true
		}
	}
	return EarnedBadge{}, false
}

// awardBadge добавляет значок в полученные.
// Возвращает false, если значок уже есть (повторная награда невозможна).
func (s *State) awardBadge(id shared.BadgeID, earnedAt time.Time) bool {
	if s.HasBadge(id) {
		return false
	}
	s.Badges = append(s.Badges, EarnedBadge{
		BadgeID:  id,
		EarnedAt: earnedAt,
		Claimed:  false,
	})
	s.UpdatedAt = earnedAt
	return true
}

// claimBadge отмечает полученный значок как подтверждённый.
// Идемпотентно; возвращает false, если значок не получен.
func (s *State) claimBadge(id shared.BadgeID) bool {
	for i := range s.Badges {
		if s.Badges[i].BadgeID == id {
			s.Badges[i].Claimed = true
			return true
		}
	}
	return false
}

// CheckIntegrity сверяет TotalXP с суммой журнала.
// Расхождение - предупреждение для фоновой сверки, не фатальная ошибка.
func (s *State) CheckIntegrity() error {
	if s.Ledger == nil {
		return nil
	}
	if sum := s.Ledger.Total(); sum != s.TotalXP {
		return shared.ErrLedgerDrift
	}
	return nil
}

// ValidateInvariants проверяет инварианты агрегата.
func (s *State) ValidateInvariants(table *MilestoneTable) error {
	if s.CurrentStreak > s.LongestStreak {
		return shared.NewDomainError("progression", "Validate", shared.ErrInvalidState,
			"current streak exceeds longest streak")
	}
	seen := make(map[shared.BadgeID]struct{}, len(s.Badges))
	for _, b := range s.Badges {
		if _, dup := seen[b.BadgeID]; dup {
			return shared.NewDomainError("progression", "Validate", shared.ErrInvalidState,
				"duplicate badge id: "+b.BadgeID.String())
		}
		seen[b.BadgeID] = struct{}{}
	}
	if info := table.ComputeLevel(s.TotalXP); info.Level != s.Level {
		return shared.NewDomainError("progression", "Validate", shared.ErrInvalidState,
			"level does not match total xp")
	}
	return s.CheckIntegrity()
}

// Rehydrate восстанавливает производные поля уровня после загрузки
// агрегата из хранилища. Производные поля не хранятся: таблица вех
// могла измениться между записью и чтением.
func (s *State) Rehydrate(table *MilestoneTable) {
	s.applyLevel(table.ComputeLevel(s.TotalXP))
}

// TakePendingTransactions возвращает транзакции, накопленные после
// загрузки агрегата, и очищает буфер. Вызывается персистентным слоем.
func (s *State) TakePendingTransactions() []XPTransaction {
	pending := s.pending
	s.pending = nil
	return pending
}
