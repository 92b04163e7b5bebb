// Package jobs contains the background jobs run by the worker:
// the periodic leaderboard rebuild and the ledger reconciliation sweep.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/skillpath-hub/skillpath-progression/internal/domain/leaderboard"
	"github.com/skillpath-hub/skillpath-progression/internal/domain/progression"
	"github.com/skillpath-hub/skillpath-progression/internal/domain/shared"
	"github.com/skillpath-hub/skillpath-progression/pkg/logger"
)

// RebuildLeaderboardJob recomputes the full ranking from stored XP
// totals, replaces the Redis board, and feeds each user's best rank
// and league back into their progression state.
type RebuildLeaderboardJob struct {
	stateRepo progression.Repository
	cache     leaderboard.Cache
	table     *progression.MilestoneTable
	publisher shared.EventPublisher
	log       *logger.Logger
}

// NewRebuildLeaderboardJob creates the leaderboard rebuild job.
func NewRebuildLeaderboardJob(
	stateRepo progression.Repository,
	cache leaderboard.Cache,
	table *progression.MilestoneTable,
	publisher shared.EventPublisher,
	log *logger.Logger,
) *RebuildLeaderboardJob {
	return &RebuildLeaderboardJob{
		stateRepo: stateRepo,
		cache:     cache,
		table:     table,
		publisher: publisher,
		log:       log.With(logger.Component("rebuild_leaderboard")),
	}
}

// Name implements scheduler.Job.
func (j *RebuildLeaderboardJob) Name() string { return "rebuild_leaderboard" }

// Description implements scheduler.Job.
func (j *RebuildLeaderboardJob) Description() string {
	return "Recomputes the XP ranking and writes ranks back to progression state"
}

// Run implements scheduler.Job.
func (j *RebuildLeaderboardJob) Run(ctx context.Context) error {
	started := time.Now()

	totals, err := j.stateRepo.TotalsByUser(ctx)
	if err != nil {
		return fmt.Errorf("load xp totals: %w", err)
	}

	ranking := leaderboard.NewRanking()
	for userID, totalXP := range totals {
		entry := &leaderboard.Entry{
			UserID:    userID,
			TotalXP:   totalXP,
			Level:     j.table.ComputeLevel(totalXP).Level,
			UpdatedAt: started.UTC(),
		}
		if err := ranking.Add(entry); err != nil {
			return fmt.Errorf("build ranking: %w", err)
		}
	}
	ranking.SortByXP()

	if err := j.cache.Rebuild(ctx, ranking.All()); err != nil {
		return fmt.Errorf("rebuild cache: %w", err)
	}

	// Write-back is per user and best effort: a single failed row must
	// not lose the whole rebuild.
	var writeErrs int
	for _, entry := range ranking.All() {
		if err := j.stateRepo.UpdateRanking(ctx, entry.UserID, entry.Rank, entry.League); err != nil {
			writeErrs++
			j.log.Error("rank write-back failed",
				logger.UserID(entry.UserID.String()),
				logger.Err(err),
			)
			continue
		}
		if j.publisher != nil {
			event := shared.NewRankUpdatedEvent(
				entry.UserID.String(), entry.Rank.Int(), entry.Rank.Int(), entry.League.String())
			if err := j.publisher.Publish(event); err != nil {
				j.log.Warn("rank event publish failed",
					logger.UserID(entry.UserID.String()),
					logger.Err(err),
				)
			}
		}
	}

	j.log.Info("leaderboard rebuilt",
		logger.Int("users", ranking.Count()),
		logger.Int("write_errors", writeErrs),
		logger.Latency(time.Since(started)),
	)

	if writeErrs > 0 {
		return fmt.Errorf("rank write-back failed for %d users", writeErrs)
	}
	return nil
}
