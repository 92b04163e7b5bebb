package jobs

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillpath-hub/skillpath-progression/internal/domain/leaderboard"
	"github.com/skillpath-hub/skillpath-progression/internal/domain/progression"
	"github.com/skillpath-hub/skillpath-progression/internal/domain/shared"
	"github.com/skillpath-hub/skillpath-progression/pkg/logger"
)

const (
	userA = "11111111-1111-1111-1111-111111111111"
	userB = "22222222-2222-2222-2222-222222222222"
	userC = "33333333-3333-3333-3333-333333333333"
)

// ─────────────────────────────────────────────────────────────────────────────
// In-memory fakes
// ─────────────────────────────────────────────────────────────────────────────

type memStateRepo struct {
	states map[shared.UserID]*progression.State

	failUpdateFor      map[shared.UserID]error
	failSavesWithStale int
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
	if err := r.failUpdateFor[userID]; err != nil {
		return err
	}
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
	return r.txs[userID], nil
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

type memCache struct {
	entries  []*leaderboard.Entry
	rebuilds int
}

func (c *memCache) Rebuild(_ context.Context, entries []*leaderboard.Entry) error {
	c.entries = entries
	c.rebuilds++
	return nil
}

func (c *memCache) GetRank(_ context.Context, userID shared.UserID) (shared.Rank, error) {
	for _, entry := range c.entries {
		if entry.UserID == userID {
			return entry.Rank, nil
		}
	}
	return shared.Unranked, nil
}

func (c *memCache) GetTop(_ context.Context, limit int) ([]*leaderboard.Entry, error) {
	if limit > len(c.entries) {
		limit = len(c.entries)
	}
	return c.entries[:limit], nil
}

func (c *memCache) GetAround(_ context.Context, _ shared.UserID, _ int) ([]*leaderboard.Entry, error) {
	return c.entries, nil
}

func (c *memCache) Count(_ context.Context) (int, error) {
	return len(c.entries), nil
}

func (c *memCache) LastRebuildAt(_ context.Context) (time.Time, error) {
	return time.Now().UTC(), nil
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

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func quietLogger() *logger.Logger {
	return logger.New(logger.Options{Output: io.Discard})
}

// seedUser stores an aggregate with the given XP total and a matching
// ledger (one transaction covering the whole total).
func seedUser(t *testing.T, stateRepo *memStateRepo, ledgerRepo *memLedgerRepo, id string, totalXP int) *progression.State {
	t.Helper()

	table := progression.DefaultMilestoneTable()
	state, err := progression.NewState(shared.UserID(id), table)
	require.NoError(t, err)
	state.TotalXP = totalXP
	state.Rehydrate(table)
	require.NoError(t, stateRepo.Create(context.Background(), state))

	if ledgerRepo != nil && totalXP > 0 {
		require.NoError(t, ledgerRepo.Append(context.Background(), state.UserID, []progression.XPTransaction{{
			Amount:    totalXP,
			Source:    progression.SourceLesson,
			Timestamp: time.Now().UTC(),
		}}))
	}
	return state
}

// ─────────────────────────────────────────────────────────────────────────────
// RebuildLeaderboardJob
// ─────────────────────────────────────────────────────────────────────────────

func TestRebuildLeaderboardJob(t *testing.T) {
	stateRepo := newMemStateRepo()
	seedUser(t, stateRepo, nil, userA, 500)
	seedUser(t, stateRepo, nil, userB, 300)
	seedUser(t, stateRepo, nil, userC, 300)

	cache := &memCache{}
	publisher := &memPublisher{}
	job := NewRebuildLeaderboardJob(
		stateRepo, cache, progression.DefaultMilestoneTable(), publisher, quietLogger())

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, cache.rebuilds)
	require.Len(t, cache.entries, 3)

	// Highest XP first; equal XP shares a rank.
	assert.Equal(t, shared.UserID(userA), cache.entries[0].UserID)
	assert.Equal(t, shared.Rank(1), cache.entries[0].Rank)
	assert.Equal(t, shared.Rank(2), cache.entries[1].Rank)
	assert.Equal(t, shared.Rank(2), cache.entries[2].Rank)

	// Ranks and leagues fed back into the aggregates.
	stateA := stateRepo.states[shared.UserID(userA)]
	assert.Equal(t, shared.Rank(1), stateA.Stats.HighestLeaderboardRank)
	assert.Equal(t, shared.LeagueMaster, stateA.Stats.League)

	assert.Equal(t, 3, publisher.typesSeen()[shared.EventRankUpdated])
}

func TestRebuildLeaderboardJob_KeepsBestRank(t *testing.T) {
	stateRepo := newMemStateRepo()
	stateA := seedUser(t, stateRepo, nil, userA, 500)
	seedUser(t, stateRepo, nil, userB, 300)
	stateA.Stats.HighestLeaderboardRank = shared.Rank(1)

	// userA falls behind; the stored best rank must survive.
	stateA.TotalXP = 100

	cache := &memCache{}
	job := NewRebuildLeaderboardJob(
		stateRepo, cache, progression.DefaultMilestoneTable(), nil, quietLogger())
	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, shared.Rank(1), stateA.Stats.HighestLeaderboardRank)
}

func TestRebuildLeaderboardJob_WriteBackFailure(t *testing.T) {
	stateRepo := newMemStateRepo()
	seedUser(t, stateRepo, nil, userA, 500)
	seedUser(t, stateRepo, nil, userB, 300)
	stateRepo.failUpdateFor = map[shared.UserID]error{
		shared.UserID(userB): errors.New("connection reset"),
	}

	cache := &memCache{}
	job := NewRebuildLeaderboardJob(
		stateRepo, cache, progression.DefaultMilestoneTable(), nil, quietLogger())

	// The cache is still rebuilt; the job reports the partial failure.
	err := job.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, cache.rebuilds)
	require.Len(t, cache.entries, 2)
}

// ─────────────────────────────────────────────────────────────────────────────
// ReconcileLedgerJob
// ─────────────────────────────────────────────────────────────────────────────

func TestReconcileLedgerJob_NoDrift(t *testing.T) {
	stateRepo := newMemStateRepo()
	ledgerRepo := newMemLedgerRepo()
	seedUser(t, stateRepo, ledgerRepo, userA, 500)
	seedUser(t, stateRepo, ledgerRepo, userB, 300)

	publisher := &memPublisher{}
	job := NewReconcileLedgerJob(stateRepo, ledgerRepo, publisher, true, quietLogger())

	require.NoError(t, job.Run(context.Background()))

	seen := publisher.typesSeen()
	assert.Equal(t, 0, seen[shared.EventDriftDetected])
	require.Equal(t, 1, seen[shared.EventLedgerReconciled])

	summary := publisher.events[0].(shared.LedgerReconciledEvent)
	assert.Equal(t, 2, summary.UsersChecked)
	assert.Equal(t, 0, summary.DriftsFound)
	assert.Equal(t, 0, summary.Repaired)
}

func TestReconcileLedgerJob_RepairsDrift(t *testing.T) {
	stateRepo := newMemStateRepo()
	ledgerRepo := newMemLedgerRepo()
	state := seedUser(t, stateRepo, ledgerRepo, userA, 500)

	// The stored total diverges from the ledger.
	state.TotalXP = 450
	versionBefore := state.Version

	publisher := &memPublisher{}
	job := NewReconcileLedgerJob(stateRepo, ledgerRepo, publisher, true, quietLogger())
	require.NoError(t, job.Run(context.Background()))

	// Ledger wins.
	assert.Equal(t, 500, stateRepo.states[shared.UserID(userA)].TotalXP)
	assert.Equal(t, versionBefore+1, stateRepo.states[shared.UserID(userA)].Version)

	seen := publisher.typesSeen()
	assert.Equal(t, 1, seen[shared.EventDriftDetected])

	var summary shared.LedgerReconciledEvent
	for _, event := range publisher.events {
		if s, ok := event.(shared.LedgerReconciledEvent); ok {
			summary = s
		}
	}
	assert.Equal(t, 1, summary.DriftsFound)
	assert.Equal(t, 1, summary.Repaired)
}

func TestReconcileLedgerJob_DetectOnly(t *testing.T) {
	stateRepo := newMemStateRepo()
	ledgerRepo := newMemLedgerRepo()
	state := seedUser(t, stateRepo, ledgerRepo, userA, 500)
	state.TotalXP = 450

	publisher := &memPublisher{}
	job := NewReconcileLedgerJob(stateRepo, ledgerRepo, publisher, false, quietLogger())
	require.NoError(t, job.Run(context.Background()))

	// Drift is reported but the total is left alone.
	assert.Equal(t, 450, stateRepo.states[shared.UserID(userA)].TotalXP)
	assert.Equal(t, 1, publisher.typesSeen()[shared.EventDriftDetected])

	var summary shared.LedgerReconciledEvent
	for _, event := range publisher.events {
		if s, ok := event.(shared.LedgerReconciledEvent); ok {
			summary = s
		}
	}
	assert.Equal(t, 1, summary.DriftsFound)
	assert.Equal(t, 0, summary.Repaired)
}

func TestReconcileLedgerJob_StaleRepairIsSkipped(t *testing.T) {
	stateRepo := newMemStateRepo()
	ledgerRepo := newMemLedgerRepo()
	state := seedUser(t, stateRepo, ledgerRepo, userA, 500)
	state.TotalXP = 450
	stateRepo.failSavesWithStale = 1

	publisher := &memPublisher{}
	job := NewReconcileLedgerJob(stateRepo, ledgerRepo, publisher, true, quietLogger())

	// A concurrent write wins; the sweep moves on without an error.
	require.NoError(t, job.Run(context.Background()))

	var summary shared.LedgerReconciledEvent
	for _, event := range publisher.events {
		if s, ok := event.(shared.LedgerReconciledEvent); ok {
			summary = s
		}
	}
	assert.Equal(t, 1, summary.DriftsFound)
	assert.Equal(t, 0, summary.Repaired)
}
