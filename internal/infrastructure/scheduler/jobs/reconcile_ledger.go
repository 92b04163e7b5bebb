package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/skillpath-hub/skillpath-progression/internal/domain/progression"
	"github.com/skillpath-hub/skillpath-progression/internal/domain/shared"
	"github.com/skillpath-hub/skillpath-progression/pkg/logger"
)

// ReconcileLedgerJob sweeps all users and compares each stored XP total
// against the ledger sum. Drift is logged, announced on the bus, and
// optionally repaired by resetting the total to the ledger sum (the
// ledger is the source of truth).
type ReconcileLedgerJob struct {
	stateRepo  progression.Repository
	ledgerRepo progression.LedgerRepository
	publisher  shared.EventPublisher
	repair     bool
	log        *logger.Logger
}

// NewReconcileLedgerJob creates the reconciliation job.
func NewReconcileLedgerJob(
	stateRepo progression.Repository,
	ledgerRepo progression.LedgerRepository,
	publisher shared.EventPublisher,
	repair bool,
	log *logger.Logger,
) *ReconcileLedgerJob {
	return &ReconcileLedgerJob{
		stateRepo:  stateRepo,
		ledgerRepo: ledgerRepo,
		publisher:  publisher,
		repair:     repair,
		log:        log.With(logger.Component("reconcile_ledger")),
	}
}

// Name implements scheduler.Job.
func (j *ReconcileLedgerJob) Name() string { return "reconcile_ledger" }

// Description implements scheduler.Job.
func (j *ReconcileLedgerJob) Description() string {
	return "Verifies stored XP totals against ledger sums and repairs drift"
}

// Run implements scheduler.Job.
func (j *ReconcileLedgerJob) Run(ctx context.Context) error {
	started := time.Now()

	userIDs, err := j.stateRepo.ListUserIDs(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	var checked, drifts, repaired int
	for _, userID := range userIDs {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		drifted, fixed, err := j.reconcileUser(ctx, userID)
		if err != nil {
			j.log.Error("reconciliation failed",
				logger.UserID(userID.String()),
				logger.Err(err),
			)
			continue
		}
		checked++
		if drifted {
			drifts++
		}
		if fixed {
			repaired++
		}
	}

	if j.publisher != nil {
		if err := j.publisher.Publish(shared.NewLedgerReconciledEvent(checked, drifts, repaired)); err != nil {
			j.log.Warn("reconciliation event publish failed", logger.Err(err))
		}
	}

	j.log.Info("ledger reconciliation finished",
		logger.Int("checked", checked),
		logger.Int("drifts", drifts),
		logger.Int("repaired", repaired),
		logger.Latency(time.Since(started)),
	)
	return nil
}

func (j *ReconcileLedgerJob) reconcileUser(ctx context.Context, userID shared.UserID) (drifted, repaired bool, err error) {
	state, err := j.stateRepo.Get(ctx, userID)
	if err != nil {
		return false, false, err
	}

	sum, err := j.ledgerRepo.SumForUser(ctx, userID)
	if err != nil {
		return false, false, err
	}
	if sum == state.TotalXP {
		return false, false, nil
	}

	j.log.Warn("xp ledger drift detected",
		logger.UserID(userID.String()),
		logger.Int("stored_total", state.TotalXP),
		logger.Int("ledger_total", sum),
	)
	if j.publisher != nil {
		event := shared.NewDriftDetectedEvent(userID.String(), state.TotalXP, sum)
		if err := j.publisher.Publish(event); err != nil {
			j.log.Warn("drift event publish failed", logger.Err(err))
		}
	}

	if !j.repair {
		return true, false, nil
	}

	state.TotalXP = sum
	state.UpdatedAt = time.Now().UTC()
	state.Version++
	if err := j.stateRepo.Save(ctx, state); err != nil {
		// A concurrent command moved the aggregate; the next sweep
		// re-checks it with fresh data.
		if errors.Is(err, shared.ErrStaleState) {
			return true, false, nil
		}
		return true, false, err
	}
	return true, true, nil
}
