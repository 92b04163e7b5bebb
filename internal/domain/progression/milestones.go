package progression

import (
	"sort"

	"github.com/skillpath-hub/skillpath-progression/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEVEL MILESTONES
// ══════════════════════════════════════════════════════════════════════════════

// MaxLevel - максимальный уровень прогрессии.
const MaxLevel = 100

// Milestone описывает одну веху прогрессии: уровень, его имя и порог XP.
type Milestone struct {
	// Level - номер уровня (1..100).
	Level int

	// Name - название уровня (например, "Novice Explorer").
	Name string

	// XPThreshold - суммарный XP, с которого уровень открывается.
	XPThreshold int
}

// MilestoneTable - неизменяемая таблица вех уровней.
// Строится один раз при старте процесса и дальше только читается.
type MilestoneTable struct {
	milestones []Milestone
}

// NewMilestoneTable создаёт таблицу вех с валидацией инвариантов:
// ровно 100 записей, порог уровня 1 равен нулю, пороги строго возрастают.
func NewMilestoneTable(milestones []Milestone) (*MilestoneTable, error) {
	if len(milestones) != MaxLevel {
		return nil, shared.ErrMilestoneCount
	}
	if milestones[0].XPThreshold != 0 {
		return nil, shared.ErrMilestoneBaseline
	}
	for i, m := range milestones {
		if m.Level != i+1 {
			return nil, shared.ErrMilestoneOrder
		}
		if i > 0 && m.XPThreshold <= milestones[i-1].XPThreshold {
			return nil, shared.ErrMilestoneOrder
		}
	}

	ms := make([]Milestone, len(milestones))
	copy(ms, milestones)
	return &MilestoneTable{milestones: ms}, nil
}

// Названия уровней собираются из ступени и звания:
// ступень меняется каждый уровень, звание - каждые 10 уровней.
var (
	levelStages = [10]string{
		"Novice", "Curious", "Eager", "Keen", "Bright",
		"Skilled", "Seasoned", "Accomplished", "Distinguished", "Supreme",
	}
	levelTiers = [10]string{
		"Explorer", "Apprentice", "Scholar", "Adept", "Specialist",
		"Expert", "Veteran", "Master", "Grandmaster", "Legend",
	}
)

// Приращение порога на один уровень внутри каждого десятка уровней.
// Итоговый порог 100 уровня - 1 401 500 XP.
var decadeIncrements = [10]int{500, 1500, 3000, 5000, 8000, 12000, 17000, 23000, 30000, 40200}

// milestoneName возвращает название уровня.
func milestoneName(level int) string {
	return levelStages[(level-1)%10] + " " + levelTiers[(level-1)/10]
}

// DefaultMilestoneTable возвращает стандартную таблицу из 100 вех.
func DefaultMilestoneTable() *MilestoneTable {
	milestones := make([]Milestone, 0, MaxLevel)
	threshold := 0
	for level := 1; level <= MaxLevel; level++ {
		if level > 1 {
			threshold += decadeIncrements[(level-1)/10]
		}
		milestones = append(milestones, Milestone{
			Level:       level,
			Name:        milestoneName(level),
			XPThreshold: threshold,
		})
	}

	table, err := NewMilestoneTable(milestones)
	if err != nil {
		// Таблица генерируется детерминированно, ошибка здесь невозможна.
		panic(err)
	}
	return table
}

// Len возвращает количество вех в таблице.
func (t *MilestoneTable) Len() int {
	return len(t.milestones)
}

// MaxLevel возвращает максимальный уровень таблицы.
func (t *MilestoneTable) MaxLevel() int {
	return t.milestones[len(t.milestones)-1].Level
}

// MilestoneFor возвращает веху указанного уровня.
func (t *MilestoneTable) MilestoneFor(level int) (Milestone, bool) {
	if level < 1 || level > len(t.milestones) {
		return Milestone{}, false
	}
	return t.milestones[level-1], true
}

// Milestones возвращает копию всех вех (для отображения таблицы уровней).
func (t *MilestoneTable) Milestones() []Milestone {
	ms := make([]Milestone, len(t.milestones))
	copy(ms, t.milestones)
	return ms
}

// ══════════════════════════════════════════════════════════════════════════════
// LEVEL CALCULATOR
// ══════════════════════════════════════════════════════════════════════════════

// LevelInfo - результат вычисления уровня из суммарного XP.
type LevelInfo struct {
	// Level - текущий уровень (1..100).
	Level int

	// LevelName - название текущего уровня.
	LevelName string

	// XPIntoLevel - XP, заработанный внутри текущего уровня.
	XPIntoLevel int

	// XPForNextLevel - сколько XP составляет весь текущий уровень.
	XPForNextLevel int

	// XPProgress - прогресс к следующему уровню в процентах (0-100).
	XPProgress int

	// IsMaxLevel - достигнут ли максимальный уровень.
	IsMaxLevel bool

	// NextLevelName - название следующего уровня (пусто на максимуме).
	NextLevelName string
}

// ComputeLevel вычисляет уровень по суммарному XP.
// Чистая функция: отрицательный вход прижимается к нулю, ошибок нет.
// На максимальном уровне прогресс фиксируется на 100,
// а XPIntoLevel и XPForNextLevel обнуляются.
func (t *MilestoneTable) ComputeLevel(totalXP int) LevelInfo {
	if totalXP < 0 {
		totalXP = 0
	}

	// Индекс последней вехи с порогом <= totalXP.
	idx := sort.Search(len(t.milestones), func(i int) bool {
		return t.milestones[i].XPThreshold > totalXP
	}) - 1

	current := t.milestones[idx]
	info := LevelInfo{
		Level:     current.Level,
		LevelName: current.Name,
	}

	if idx == len(t.milestones)-1 {
		info.IsMaxLevel = true
		info.XPProgress = 100
		return info
	}

	next := t.milestones[idx+1]
	info.XPIntoLevel = totalXP - current.XPThreshold
	info.XPForNextLevel = next.XPThreshold - current.XPThreshold
	info.XPProgress = info.XPIntoLevel * 100 / info.XPForNextLevel
	info.NextLevelName = next.Name
	return info
}
