package progression

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillpath-hub/skillpath-progression/internal/domain/shared"
)

func TestNewBadgeRegistry_Validation(t *testing.T) {
	valid := BadgeDefinition{
		ID: "test_badge", Name: "Test", XPReward: 10,
		Criteria: Criteria{Type: CriteriaLessonsCompleted, Value: 1},
	}

	t.Run("empty registry", func(t *testing.T) {
		_, err := NewBadgeRegistry(nil)
		assert.ErrorIs(t, err, shared.ErrEmptyValue)
	})

	t.Run("duplicate id", func(t *testing.T) {
		_, err := NewBadgeRegistry([]BadgeDefinition{valid, valid})
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	})

	t.Run("invalid id", func(t *testing.T) {
		def := valid
		def.ID = "Bad Badge!"
		_, err := NewBadgeRegistry([]BadgeDefinition{def})
		assert.ErrorIs(t, err, shared.ErrInvalidID)
	})

	t.Run("negative reward", func(t *testing.T) {
		def := valid
		def.XPReward = -5
		_, err := NewBadgeRegistry([]BadgeDefinition{def})
		assert.ErrorIs(t, err, shared.ErrValueOutOfRange)
	})

	t.Run("negative target", func(t *testing.T) {
		def := valid
		def.Criteria.Value = -1
		_, err := NewBadgeRegistry([]BadgeDefinition{def})
		assert.ErrorIs(t, err, shared.ErrValueOutOfRange)
	})

	t.Run("league criteria needs a valid league", func(t *testing.T) {
		def := valid
		def.Criteria = Criteria{Type: CriteriaLeague, League: shared.League("wooden")}
		_, err := NewBadgeRegistry([]BadgeDefinition{def})
		assert.ErrorIs(t, err, shared.ErrUnknownLeague)
	})

	t.Run("unknown criteria type is accepted", func(t *testing.T) {
		// Config may ship new criteria kinds ahead of code; the badge
		// just never gets satisfied.
		def := valid
		def.Criteria = Criteria{Type: CriteriaType("quantum_leap"), Value: 1}
		reg, err := NewBadgeRegistry([]BadgeDefinition{def})
		require.NoError(t, err)
		assert.Equal(t, 1, reg.Len())
	})
}

func TestBadgeRegistry_Lookup(t *testing.T) {
	reg := DefaultBadgeRegistry()

	def, ok := reg.Get("first_steps")
	require.True(t, ok)
	assert.Equal(t, "First Steps", def.Name)
	assert.Equal(t, CriteriaLessonsCompleted, def.Criteria.Type)

	_, ok = reg.Get("no_such_badge")
	assert.False(t, ok)

	assert.Len(t, reg.All(), reg.Len())
}

func TestDefaultBadgeRegistry_CoversAllCriteriaTypes(t *testing.T) {
	reg := DefaultBadgeRegistry()

	covered := make(map[CriteriaType]bool)
	for _, def := range reg.All() {
		covered[def.Criteria.Type] = true
	}
	for _, ct := range AllCriteriaTypes() {
		assert.True(t, covered[ct], "no default badge exercises criteria %q", ct)
	}
}

func TestValidateEvaluatorTable(t *testing.T) {
	assert.NoError(t, validateEvaluatorTable())
}

func TestBadgeStats_ExploreCategory(t *testing.T) {
	stats := NewBadgeStats()

	stats.ExploreCategory("golang")
	stats.ExploreCategory("golang")
	stats.ExploreCategory("sql")
	stats.ExploreCategory("")

	assert.Equal(t, 2, stats.CategoriesCount())
}

func TestCriteriaProgress_Counters(t *testing.T) {
	state := newTestState(t)
	state.Stats.LessonsCompletedTotal = 7

	c := Criteria{Type: CriteriaLessonsCompleted, Value: 10}
	assert.Equal(t, 70, criteriaProgress(state, c))
	assert.False(t, evaluateCriteria(state, c))

	state.Stats.LessonsCompletedTotal = 25
	assert.Equal(t, 100, criteriaProgress(state, c))
	assert.True(t, evaluateCriteria(state, c))
}

func TestCriteriaProgress_Binary(t *testing.T) {
	state := newTestState(t)

	c := Criteria{Type: CriteriaStreakRestored}
	assert.Equal(t, 0, criteriaProgress(state, c))

	state.Stats.StreakRestored = true
	assert.Equal(t, 100, criteriaProgress(state, c))
	assert.True(t, evaluateCriteria(state, c))
}

func TestCriteriaProgress_TimeOfDay(t *testing.T) {
	state := newTestState(t)

	early := Criteria{Type: CriteriaEarlyCompletion}
	late := Criteria{Type: CriteriaLateCompletion}

	// Without any completion neither fires even though hour zero is "early".
	assert.False(t, evaluateCriteria(state, early))
	assert.False(t, evaluateCriteria(state, late))

	state.Stats.LessonsCompletedTotal = 1
	state.Stats.LastCompletionHour = 8
	assert.True(t, evaluateCriteria(state, early))
	assert.False(t, evaluateCriteria(state, late))

	state.Stats.LastCompletionHour = 22
	assert.False(t, evaluateCriteria(state, early))
	assert.True(t, evaluateCriteria(state, late))

	state.Stats.LastCompletionHour = 12
	assert.False(t, evaluateCriteria(state, early))
	assert.False(t, evaluateCriteria(state, late))
}

func TestCriteriaProgress_LeaderboardRank(t *testing.T) {
	state := newTestState(t)
	c := Criteria{Type: CriteriaLeaderboardRank, Value: 10}

	// Unranked user has zero progress.
	assert.Equal(t, 0, criteriaProgress(state, c))
	assert.False(t, evaluateCriteria(state, c))

	// Inverse scaling below the target.
	state.Stats.HighestLeaderboardRank = 40
	assert.Equal(t, 60, criteriaProgress(state, c))
	assert.False(t, evaluateCriteria(state, c))

	// Ranks far outside the scale clamp to zero.
	state.Stats.HighestLeaderboardRank = 500
	assert.Equal(t, 0, criteriaProgress(state, c))

	// Within target: satisfied and pinned to 100.
	state.Stats.HighestLeaderboardRank = 7
	assert.Equal(t, 100, criteriaProgress(state, c))
	assert.True(t, evaluateCriteria(state, c))
}

func TestCriteriaProgress_League(t *testing.T) {
	state := newTestState(t)
	c := Criteria{Type: CriteriaLeague, League: shared.LeagueGold}

	assert.Equal(t, 0, criteriaProgress(state, c))

	state.Stats.League = shared.LeagueBronze
	assert.Equal(t, 33, criteriaProgress(state, c))
	assert.False(t, evaluateCriteria(state, c))

	state.Stats.League = shared.LeagueGold
	assert.Equal(t, 100, criteriaProgress(state, c))
	assert.True(t, evaluateCriteria(state, c))

	// Higher tiers also satisfy the target.
	state.Stats.League = shared.LeagueMaster
	assert.True(t, evaluateCriteria(state, c))
}

func TestEvaluateCriteria_UnknownTypeNotSatisfied(t *testing.T) {
	state := newTestState(t)
	state.Stats.LessonsCompletedTotal = 1000

	c := Criteria{Type: CriteriaType("quantum_leap"), Value: 1}
	assert.False(t, evaluateCriteria(state, c))
	assert.Equal(t, 0, criteriaProgress(state, c))
}
