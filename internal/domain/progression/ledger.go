package progression

import (
	"math"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// XP LEDGER
// ══════════════════════════════════════════════════════════════════════════════

// XPSource - источник начисления XP.
type XPSource string

const (
	// SourceLesson - завершение урока или теста.
	SourceLesson XPSource = "lesson"
	// SourceBadge - награда за полученный значок.
	SourceBadge XPSource = "badge"
	// SourceBonus - разовое ручное начисление.
	SourceBonus XPSource = "bonus"
)

// IsValid проверяет, что источник известен.
func (s XPSource) IsValid() bool {
	switch s {
	case SourceLesson, SourceBadge, SourceBonus:
		return true
	}
	return false
}

// XPTransaction - одна запись журнала XP.
// Записи только добавляются; они никогда не изменяются и не удаляются.
type XPTransaction struct {
	// Amount - начисленный XP (неотрицательный).
	Amount int

	// Source - источник начисления.
	Source XPSource

	// Description - человекочитаемое описание начисления.
	Description string

	// Timestamp - время начисления.
	Timestamp time.Time
}

// Ledger - append-only журнал XP-транзакций одного пользователя.
type Ledger struct {
	entries []XPTransaction
}

// NewLedger создаёт журнал из уже сохранённых транзакций.
func NewLedger(entries []XPTransaction) *Ledger {
	l := &Ledger{entries: make([]XPTransaction, len(entries))}
	copy(l.entries, entries)
	return l
}

// Append добавляет транзакцию в журнал.
func (l *Ledger) Append(tx XPTransaction) {
	l.entries = append(l.entries, tx)
}

// Total возвращает сумму всех транзакций журнала.
func (l *Ledger) Total() int {
	total := 0
	for _, tx := range l.entries {
		total += tx.Amount
	}
	return total
}

// Len возвращает количество транзакций.
func (l *Ledger) Len() int {
	return len(l.entries)
}

// Entries возвращает копию всех транзакций (от старых к новым).
func (l *Ledger) Entries() []XPTransaction {
	entries := make([]XPTransaction, len(l.entries))
	copy(entries, l.entries)
	return entries
}

// ══════════════════════════════════════════════════════════════════════════════
// LESSON XP FORMULA
// ══════════════════════════════════════════════════════════════════════════════

// Difficulty - сложность урока.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "Beginner"
	DifficultyIntermediate Difficulty = "Intermediate"
	DifficultyAdvanced     Difficulty = "Advanced"
)

// RetakeXP - фиксированное начисление за повторное прохождение.
// Защита от фарма: пересдачи не масштабируются по баллам.
const RetakeXP = 10

// IsValid проверяет, что сложность известна.
func (d Difficulty) IsValid() bool {
	switch d {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return true
	}
	return false
}

// MaxXP возвращает максимальный XP за урок данной сложности.
// Неизвестная сложность трактуется как Beginner.
func (d Difficulty) MaxXP() int {
	switch d {
	case DifficultyIntermediate:
		return 100
	case DifficultyAdvanced:
		return 150
	default:
		return 50
	}
}

// CalculateLessonXP вычисляет XP за завершение урока. Чистая функция.
//
// Правила:
//   - повторное прохождение всегда даёт RetakeXP, независимо от баллов;
//   - при наличии баллов начисление пропорционально доле правильных ответов
//     с округлением до ближайшего целого;
//   - без баллов (или при нуле вопросов) начисляется полный MaxXP сложности.
//
// Нулевое количество вопросов - это "нет данных о баллах", а не деление на ноль.
func CalculateLessonXP(difficulty Difficulty, isFirstCompletion bool, correctAnswers, totalQuestions *int) int {
	if !isFirstCompletion {
		return RetakeXP
	}

	maxXP := difficulty.MaxXP()
	if correctAnswers != nil && totalQuestions != nil && *totalQuestions > 0 {
		return int(math.Round(float64(maxXP) * float64(*correctAnswers) / float64(*totalQuestions)))
	}
	return maxXP
}
