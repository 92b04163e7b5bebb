package progression

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillpath-hub/skillpath-progression/internal/domain/shared"
)

func intPtr(v int) *int { return &v }

func TestCalculateLessonXP(t *testing.T) {
	tests := []struct {
		name       string
		difficulty Difficulty
		first      bool
		correct    *int
		total      *int
		want       int
	}{
		{"beginner perfect score", DifficultyBeginner, true, intPtr(5), intPtr(5), 50},
		{"advanced partial score", DifficultyAdvanced, true, intPtr(3), intPtr(5), 90},
		{"retake flat rate", DifficultyIntermediate, false, intPtr(5), intPtr(5), 10},
		{"no score data", DifficultyBeginner, true, nil, nil, 50},
		{"zero questions falls back to full xp", DifficultyIntermediate, true, intPtr(0), intPtr(0), 100},
		{"intermediate half score", DifficultyIntermediate, true, intPtr(1), intPtr(2), 50},
		{"rounding to nearest", DifficultyBeginner, true, intPtr(1), intPtr(3), 17},
		{"zero correct answers", DifficultyAdvanced, true, intPtr(0), intPtr(5), 0},
		{"retake ignores difficulty", DifficultyAdvanced, false, nil, nil, 10},
		{"only correct given falls back", DifficultyBeginner, true, intPtr(3), nil, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateLessonXP(tt.difficulty, tt.first, tt.correct, tt.total)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDifficulty_MaxXP(t *testing.T) {
	assert.Equal(t, 50, DifficultyBeginner.MaxXP())
	assert.Equal(t, 100, DifficultyIntermediate.MaxXP())
	assert.Equal(t, 150, DifficultyAdvanced.MaxXP())
	// Unknown difficulty is treated as Beginner.
	assert.Equal(t, 50, Difficulty("Nightmare").MaxXP())
	assert.False(t, Difficulty("Nightmare").IsValid())
}

func TestLedger_AppendAndTotal(t *testing.T) {
	l := NewLedger(nil)
	now := time.Now()

	l.Append(XPTransaction{Amount: 50, Source: SourceLesson, Timestamp: now})
	l.Append(XPTransaction{Amount: 25, Source: SourceBadge, Timestamp: now})
	l.Append(XPTransaction{Amount: 0, Source: SourceBonus, Timestamp: now})

	assert.Equal(t, 3, l.Len())
	assert.Equal(t, 75, l.Total())

	entries := l.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, SourceLesson, entries[0].Source)

	// Entries returns a copy, mutating it must not touch the ledger.
	entries[0].Amount = 9999
	assert.Equal(t, 75, l.Total())
}

func TestState_GrantXP(t *testing.T) {
	state := newTestState(t)
	now := time.Now()

	tx := state.GrantXP(120, SourceLesson, "Lesson completed: go-intro-01", now)
	assert.Equal(t, 120, tx.Amount)
	assert.Equal(t, 120, state.TotalXP)

	// Negative amounts clamp to zero and still append an entry.
	tx = state.GrantXP(-40, SourceBonus, "correction attempt", now)
	assert.Equal(t, 0, tx.Amount)
	assert.Equal(t, 120, state.TotalXP)
	assert.Equal(t, 2, state.Ledger.Len())

	assert.NoError(t, state.CheckIntegrity())
}

func TestState_LedgerRoundTrip(t *testing.T) {
	state := newTestState(t)
	now := time.Now()

	// After every grant the ledger sum equals the stored total.
	amounts := []int{10, 0, 250, 7, 50, -3, 1000}
	for _, amount := range amounts {
		state.GrantXP(amount, SourceLesson, "grant", now)
		assert.Equal(t, state.Ledger.Total(), state.TotalXP)
	}
}

func TestState_IntegrityDrift(t *testing.T) {
	state := newTestState(t)
	state.GrantXP(100, SourceLesson, "grant", time.Now())

	// Simulate storage drift.
	state.TotalXP = 150
	err := state.CheckIntegrity()
	require.Error(t, err)
	assert.True(t, shared.IsIntegrityDrift(err))
}

func TestState_TakePendingTransactions(t *testing.T) {
	state := newTestState(t)
	now := time.Now()

	state.GrantXP(50, SourceLesson, "a", now)
	state.GrantXP(25, SourceBadge, "b", now)

	pending := state.TakePendingTransactions()
	require.Len(t, pending, 2)
	assert.Equal(t, 50, pending[0].Amount)

	// Buffer is drained after taking.
	assert.Empty(t, state.TakePendingTransactions())

	// The full ledger is untouched.
	assert.Equal(t, 2, state.Ledger.Len())
}
