package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillpath-hub/skillpath-progression/internal/domain/progression"
	"github.com/skillpath-hub/skillpath-progression/internal/domain/shared"
	"github.com/skillpath-hub/skillpath-progression/pkg/timeutil"
)

const testUserID = "11111111-1111-1111-1111-111111111111"

// ─────────────────────────────────────────────────────────────────────────────
// In-memory fakes
// ─────────────────────────────────────────────────────────────────────────────

type memStateRepo struct {
	states map[shared.UserID]*progression.State

	// failSavesWithStale makes the next N Save calls fail with ErrStaleState.
	failSavesWithStale int
	saveCalls          int
}

func newMemStateRepo() *memStateRepo {
	return &memStateRepo{states: make(map[shared.UserID]*progression.State)}
}

func (r *memStateRepo) Create(_ context.Context, state *progression.State) error {
	if _, exists := r.states[state.UserID]; exists {
		return shared.ErrAlreadyExists
	}
	r.states[state.UserID] = state
	return nil
}

func (r *memStateRepo) Get(_ context.Context, userID shared.UserID) (*progression.State, error) {
	state, ok := r.states[userID]
	if !ok {
		return nil, shared.ErrProgressionNotFound
	}
	return state, nil
}

func (r *memStateRepo) Save(_ context.Context, state *progression.State) error {
	r.saveCalls++
	if r.failSavesWithStale > 0 {
		r.failSavesWithStale--
		return shared.ErrStaleState
	}
	r.states[state.UserID] = state
	return nil
}

func (r *memStateRepo) Exists(_ context.Context, userID shared.UserID) (bool, error) {
	_, ok := r.states[userID]
	return ok, nil
}

func (r *memStateRepo) ListUserIDs(_ context.Context) ([]shared.UserID, error) {
	ids := make([]shared.UserID, 0, len(r.states))
	for id := range r.states {
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *memStateRepo) TotalsByUser(_ context.Context) (map[shared.UserID]int, error) {
	totals := make(map[shared.UserID]int, len(r.states))
	for id, state := range r.states {
		totals[id] = state.TotalXP
	}
	return totals, nil
}

func (r *memStateRepo) UpdateRanking(_ context.Context, userID shared.UserID, rank shared.Rank, league shared.League) error {
	state, ok := r.states[userID]
	if !ok {
		return shared.ErrProgressionNotFound
	}
	state.Stats.HighestLeaderboardRank = rank.BetterOf(state.Stats.HighestLeaderboardRank)
	state.Stats.League = league
	return nil
}

type memLedgerRepo struct {
	txs map[shared.UserID][]progression.XPTransaction
}

func newMemLedgerRepo() *memLedgerRepo {
	return &memLedgerRepo{txs: make(map[shared.UserID][]progression.XPTransaction)}
}

func (r *memLedgerRepo) Append(_ context.Context, userID shared.UserID, txs []progression.XPTransaction) error {
	r.txs[userID] = append(r.txs[userID], txs...)
	return nil
}

func (r *memLedgerRepo) History(_ context.Context, userID shared.UserID, p shared.Pagination) ([]progression.XPTransaction, error) {
	all := r.txs[userID]
	offset := p.Offset()
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + p.Limit()
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *memLedgerRepo) SumForUser(_ context.Context, userID shared.UserID) (int, error) {
	sum := 0
	for _, tx := range r.txs[userID] {
		sum += tx.Amount
	}
	return sum, nil
}

func (r *memLedgerRepo) CountForUser(_ context.Context, userID shared.UserID) (int, error) {
	return len(r.txs[userID]), nil
}

type memPublisher struct {
	events []shared.Event
}

func (p *memPublisher) Publish(event shared.Event) error {
	p.events = append(p.events, event)
	return nil
}

func (p *memPublisher) typesSeen() map[shared.EventType]int {
	seen := make(map[shared.EventType]int)
	for _, event := range p.events {
		seen[event.EventType()]++
	}
	return seen
}

func newTestEngine(t *testing.T) *progression.Engine {
	t.Helper()
	engine, err := progression.NewEngine(
		progression.DefaultMilestoneTable(),
		progression.DefaultBadgeRegistry(),
		timeutil.UTCCalendar(),
	)
	require.NoError(t, err)
	return engine
}

// ─────────────────────────────────────────────────────────────────────────────
// ApplyCompletion
// ─────────────────────────────────────────────────────────────────────────────

func TestApplyCompletionHandler_FirstCompletion(t *testing.T) {
	stateRepo := newMemStateRepo()
	ledgerRepo := newMemLedgerRepo()
	publisher := &memPublisher{}
	handler := NewApplyCompletionHandler(stateRepo, ledgerRepo, newTestEngine(t), publisher)

	result, err := handler.Handle(context.Background(), ApplyCompletionCommand{
		UserID:            testUserID,
		LessonID:          "go-basics-01",
		Difficulty:        "Beginner",
		IsFirstCompletion: true,
		Timestamp:         time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.Equal(t, 50, result.XPEarned)
	assert.Equal(t, progression.StreakStarted, result.Streak.Outcome)

	// The first lesson trips the first_steps badge.
	require.NotEmpty(t, result.NewBadges)
	assert.Equal(t, "first_steps", result.NewBadges[0].BadgeID.String())

	// Aggregate persisted, ledger received lesson + badge transactions.
	state, err := stateRepo.Get(context.Background(), shared.UserID(testUserID))
	require.NoError(t, err)
	assert.Equal(t, result.TotalXP, state.TotalXP)

	txs := ledgerRepo.txs[shared.UserID(testUserID)]
	require.Len(t, txs, 2)
	assert.Equal(t, progression.SourceLesson, txs[0].Source)
	assert.Equal(t, progression.SourceBadge, txs[1].Source)

	seen := publisher.typesSeen()
	assert.Equal(t, 1, seen[shared.EventXPGranted])
	assert.Equal(t, 1, seen[shared.EventStreakExtended])
	assert.Equal(t, 1, seen[shared.EventBadgeEarned])
}

func TestApplyCompletionHandler_RetriesOnStaleState(t *testing.T) {
	stateRepo := newMemStateRepo()
	ledgerRepo := newMemLedgerRepo()
	handler := NewApplyCompletionHandler(stateRepo, ledgerRepo, newTestEngine(t), nil)

	ctx := context.Background()
	_, err := handler.Handle(ctx, ApplyCompletionCommand{
		UserID:            testUserID,
		LessonID:          "go-basics-01",
		Difficulty:        "Beginner",
		IsFirstCompletion: true,
		Timestamp:         time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	// One stale conflict, then success on reload.
	stateRepo.failSavesWithStale = 1
	result, err := handler.Handle(ctx, ApplyCompletionCommand{
		UserID:            testUserID,
		LessonID:          "go-basics-02",
		Difficulty:        "Beginner",
		IsFirstCompletion: true,
		Timestamp:         time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, 50, result.XPEarned)
	assert.Equal(t, 2, stateRepo.saveCalls)
}

func TestApplyCompletionHandler_ExhaustedRetries(t *testing.T) {
	stateRepo := newMemStateRepo()
	handler := NewApplyCompletionHandler(stateRepo, newMemLedgerRepo(), newTestEngine(t), nil)

	ctx := context.Background()
	_, err := handler.Handle(ctx, ApplyCompletionCommand{
		UserID:            testUserID,
		LessonID:          "go-basics-01",
		Difficulty:        "Beginner",
		IsFirstCompletion: true,
		Timestamp:         time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	stateRepo.failSavesWithStale = 10
	_, err = handler.Handle(ctx, ApplyCompletionCommand{
		UserID:            testUserID,
		LessonID:          "go-basics-02",
		Difficulty:        "Beginner",
		IsFirstCompletion: true,
		Timestamp:         time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC),
	})
	assert.ErrorIs(t, err, shared.ErrStaleState)
}

func TestApplyCompletionHandler_Validation(t *testing.T) {
	handler := NewApplyCompletionHandler(newMemStateRepo(), newMemLedgerRepo(), newTestEngine(t), nil)
	ctx := context.Background()

	_, err := handler.Handle(ctx, ApplyCompletionCommand{LessonID: "go-basics-01"})
	assert.ErrorIs(t, err, shared.ErrEmptyValue)

	_, err = handler.Handle(ctx, ApplyCompletionCommand{UserID: testUserID})
	assert.ErrorIs(t, err, shared.ErrEmptyValue)

	_, err = handler.Handle(ctx, ApplyCompletionCommand{
		UserID:   "not-a-uuid",
		LessonID: "go-basics-01",
	})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestApplyCompletionHandler_CategoryFromLessonID(t *testing.T) {
	stateRepo := newMemStateRepo()
	handler := NewApplyCompletionHandler(stateRepo, newMemLedgerRepo(), newTestEngine(t), nil)

	_, err := handler.Handle(context.Background(), ApplyCompletionCommand{
		UserID:            testUserID,
		LessonID:          "algorithms-sorting-01",
		Difficulty:        "Intermediate",
		IsFirstCompletion: true,
		Timestamp:         time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	state, err := stateRepo.Get(context.Background(), shared.UserID(testUserID))
	require.NoError(t, err)
	assert.Equal(t, 1, state.Stats.CategoriesCount())
}

// ─────────────────────────────────────────────────────────────────────────────
// ClaimBadge
// ─────────────────────────────────────────────────────────────────────────────

func TestClaimBadgeHandler(t *testing.T) {
	stateRepo := newMemStateRepo()
	ledgerRepo := newMemLedgerRepo()
	publisher := &memPublisher{}
	engine := newTestEngine(t)

	apply := NewApplyCompletionHandler(stateRepo, ledgerRepo, engine, nil)
	_, err := apply.Handle(context.Background(), ApplyCompletionCommand{
		UserID:            testUserID,
		LessonID:          "go-basics-01",
		Difficulty:        "Beginner",
		IsFirstCompletion: true,
		Timestamp:         time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	claim := NewClaimBadgeHandler(stateRepo, engine, publisher)

	result, err := claim.Handle(context.Background(), ClaimBadgeCommand{
		UserID:  testUserID,
		BadgeID: "first_steps",
	})
	require.NoError(t, err)
	assert.True(t, result.Claimed)
	assert.Equal(t, 1, publisher.typesSeen()[shared.EventBadgeClaimed])

	// Claiming an unearned badge is a no-op, not an error.
	result, err = claim.Handle(context.Background(), ClaimBadgeCommand{
		UserID:  testUserID,
		BadgeID: "streak_month",
	})
	require.NoError(t, err)
	assert.False(t, result.Claimed)
}

func TestClaimBadgeHandler_UnknownUser(t *testing.T) {
	claim := NewClaimBadgeHandler(newMemStateRepo(), newTestEngine(t), nil)

	_, err := claim.Handle(context.Background(), ClaimBadgeCommand{
		UserID:  testUserID,
		BadgeID: "first_steps",
	})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

// ─────────────────────────────────────────────────────────────────────────────
// GrantBonus
// ─────────────────────────────────────────────────────────────────────────────

func TestGrantBonusHandler(t *testing.T) {
	stateRepo := newMemStateRepo()
	ledgerRepo := newMemLedgerRepo()
	engine := newTestEngine(t)

	apply := NewApplyCompletionHandler(stateRepo, ledgerRepo, engine, nil)
	_, err := apply.Handle(context.Background(), ApplyCompletionCommand{
		UserID:            testUserID,
		LessonID:          "go-basics-01",
		Difficulty:        "Beginner",
		IsFirstCompletion: true,
		Timestamp:         time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	bonus := NewGrantBonusHandler(stateRepo, ledgerRepo, engine, nil)
	result, err := bonus.Handle(context.Background(), GrantBonusCommand{
		UserID: testUserID,
		Amount: 1000,
		Reason: "Beta tester reward",
	})
	require.NoError(t, err)
	assert.True(t, result.LeveledUp)

	sum, err := ledgerRepo.SumForUser(context.Background(), shared.UserID(testUserID))
	require.NoError(t, err)
	assert.Equal(t, result.TotalXP, sum)
}

func TestGrantBonusHandler_Validation(t *testing.T) {
	bonus := NewGrantBonusHandler(newMemStateRepo(), newMemLedgerRepo(), newTestEngine(t), nil)
	ctx := context.Background()

	_, err := bonus.Handle(ctx, GrantBonusCommand{UserID: testUserID, Amount: 0, Reason: "x"})
	assert.ErrorIs(t, err, shared.ErrNegativeXPAmount)

	_, err = bonus.Handle(ctx, GrantBonusCommand{UserID: testUserID, Amount: 10})
	assert.ErrorIs(t, err, shared.ErrEmptyValue)
}
