package progression

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillpath-hub/skillpath-progression/internal/domain/shared"
)

func TestDefaultMilestoneTable_Shape(t *testing.T) {
	table := DefaultMilestoneTable()

	assert.Equal(t, 100, table.Len())
	assert.Equal(t, 100, table.MaxLevel())

	first, ok := table.MilestoneFor(1)
	require.True(t, ok)
	assert.Equal(t, 0, first.XPThreshold)
	assert.Equal(t, "Novice Explorer", first.Name)

	last, ok := table.MilestoneFor(100)
	require.True(t, ok)
	assert.Equal(t, 1401500, last.XPThreshold)
	assert.Equal(t, "Supreme Legend", last.Name)

	// Thresholds are strictly increasing.
	ms := table.Milestones()
	for i := 1; i < len(ms); i++ {
		assert.Greater(t, ms[i].XPThreshold, ms[i-1].XPThreshold)
		assert.Equal(t, i+1, ms[i].Level)
	}
}

func TestNewMilestoneTable_Validation(t *testing.T) {
	valid := DefaultMilestoneTable().Milestones()

	t.Run("wrong count", func(t *testing.T) {
		_, err := NewMilestoneTable(valid[:99])
		assert.ErrorIs(t, err, shared.ErrMilestoneCount)
	})

	t.Run("nonzero baseline", func(t *testing.T) {
		ms := make([]Milestone, len(valid))
		copy(ms, valid)
		ms[0].XPThreshold = 10
		_, err := NewMilestoneTable(ms)
		assert.ErrorIs(t, err, shared.ErrMilestoneBaseline)
	})

	t.Run("non-increasing thresholds", func(t *testing.T) {
		ms := make([]Milestone, len(valid))
		copy(ms, valid)
		ms[50].XPThreshold = ms[49].XPThreshold
		_, err := NewMilestoneTable(ms)
		assert.ErrorIs(t, err, shared.ErrMilestoneOrder)
	})
}

func TestComputeLevel_Zero(t *testing.T) {
	table := DefaultMilestoneTable()

	info := table.ComputeLevel(0)
	assert.Equal(t, 1, info.Level)
	assert.Equal(t, "Novice Explorer", info.LevelName)
	assert.Equal(t, 0, info.XPProgress)
	assert.Equal(t, 0, info.XPIntoLevel)
	assert.Equal(t, 500, info.XPForNextLevel)
	assert.False(t, info.IsMaxLevel)
}

func TestComputeLevel_NegativeClampedToZero(t *testing.T) {
	table := DefaultMilestoneTable()
	assert.Equal(t, table.ComputeLevel(0), table.ComputeLevel(-500))
}

func TestComputeLevel_MaxLevel(t *testing.T) {
	table := DefaultMilestoneTable()

	info := table.ComputeLevel(1401500)
	assert.Equal(t, 100, info.Level)
	assert.True(t, info.IsMaxLevel)
	assert.Equal(t, 100, info.XPProgress)
	assert.Equal(t, 0, info.XPIntoLevel)
	assert.Equal(t, 0, info.XPForNextLevel)
	assert.Empty(t, info.NextLevelName)

	// XP beyond the last threshold stays pinned at max level.
	beyond := table.ComputeLevel(5000000)
	assert.Equal(t, 100, beyond.Level)
	assert.True(t, beyond.IsMaxLevel)
	assert.Equal(t, 100, beyond.XPProgress)
}

func TestComputeLevel_Boundaries(t *testing.T) {
	table := DefaultMilestoneTable()

	// Exactly at a threshold the new level opens with zero progress.
	info := table.ComputeLevel(500)
	assert.Equal(t, 2, info.Level)
	assert.Equal(t, 0, info.XPIntoLevel)
	assert.Equal(t, 0, info.XPProgress)

	// One XP short of a threshold stays on the previous level.
	info = table.ComputeLevel(499)
	assert.Equal(t, 1, info.Level)
	assert.Equal(t, 499, info.XPIntoLevel)
	assert.Equal(t, 99, info.XPProgress)
}

func TestComputeLevel_Monotonic(t *testing.T) {
	table := DefaultMilestoneTable()

	prev := 0
	for xp := 0; xp <= 1500000; xp += 777 {
		info := table.ComputeLevel(xp)
		assert.GreaterOrEqual(t, info.Level, prev, "level dropped at xp=%d", xp)
		prev = info.Level

		// The returned level is the unique milestone with
		// threshold <= xp < next threshold.
		m, ok := table.MilestoneFor(info.Level)
		require.True(t, ok)
		assert.LessOrEqual(t, m.XPThreshold, xp)
		if next, ok := table.MilestoneFor(info.Level + 1); ok {
			assert.Less(t, xp, next.XPThreshold)
		}
	}
	assert.Equal(t, 100, prev)
}

func TestComputeLevel_NameScheme(t *testing.T) {
	table := DefaultMilestoneTable()

	m11, ok := table.MilestoneFor(11)
	require.True(t, ok)
	assert.Equal(t, "Novice Apprentice", m11.Name)

	m20, ok := table.MilestoneFor(20)
	require.True(t, ok)
	assert.Equal(t, "Supreme Apprentice", m20.Name)

	m91, ok := table.MilestoneFor(91)
	require.True(t, ok)
	assert.Equal(t, "Novice Legend", m91.Name)
}
