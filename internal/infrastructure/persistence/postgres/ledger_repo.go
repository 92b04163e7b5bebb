package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/skillpath-hub/skillpath-progression/internal/domain/progression"
	"github.com/skillpath-hub/skillpath-progression/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEDGER REPOSITORY
// Append-only store for XP transactions. Rows are never updated or
// deleted; the reconciliation job compares SUM(amount) against the
// aggregate's total_xp.
// ══════════════════════════════════════════════════════════════════════════════

// LedgerRepo is the PostgreSQL implementation of progression.LedgerRepository.
type LedgerRepo struct {
	conn *Connection
}

// NewLedgerRepo creates a new ledger repository.
func NewLedgerRepo(conn *Connection) *LedgerRepo {
	return &LedgerRepo{conn: conn}
}

// Append inserts the given transactions in order.
// A single completion typically produces one to three rows (lesson,
// badge rewards), so a batch keeps it to one round trip.
func (r *LedgerRepo) Append(ctx context.Context, userID shared.UserID, txs []progression.XPTransaction) error {
	if len(txs) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, tx := range txs {
		batch.Queue(`
			INSERT INTO xp_transactions (user_id, amount, source, description, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`, userID.String(), tx.Amount, string(tx.Source), tx.Description, tx.Timestamp)
	}

	results := r.conn.Pool().SendBatch(ctx, batch)
	defer results.Close()

	for range txs {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("append xp transaction: %w", err)
		}
	}
	return nil
}

// History returns the user's transactions from oldest to newest.
func (r *LedgerRepo) History(ctx context.Context, userID shared.UserID, p shared.Pagination) ([]progression.XPTransaction, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT amount, source, description, created_at
		FROM xp_transactions
		WHERE user_id = $1
		ORDER BY id
		LIMIT $2 OFFSET $3
	`, userID.String(), p.Limit(), p.Offset())
	if err != nil {
		return nil, fmt.Errorf("select xp history: %w", err)
	}
	defer rows.Close()

	var txs []progression.XPTransaction
	for rows.Next() {
		var (
			amount      int
			source      string
			description string
			createdAt   time.Time
		)
		if err := rows.Scan(&amount, &source, &description, &createdAt); err != nil {
			return nil, fmt.Errorf("scan xp transaction: %w", err)
		}
		txs = append(txs, progression.XPTransaction{
			Amount:      amount,
			Source:      progression.XPSource(source),
			Description: description,
			Timestamp:   createdAt,
		})
	}
	return txs, rows.Err()
}

// SumForUser returns the sum of the user's ledger.
func (r *LedgerRepo) SumForUser(ctx context.Context, userID shared.UserID) (int, error) {
	var sum int
	err := r.conn.QueryRow(ctx,
		"SELECT COALESCE(SUM(amount), 0) FROM xp_transactions WHERE user_id = $1",
		userID.String(),
	).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum xp transactions: %w", err)
	}
	return sum, nil
}

// CountForUser returns the number of transactions the user has.
func (r *LedgerRepo) CountForUser(ctx context.Context, userID shared.UserID) (int, error) {
	var count int
	err := r.conn.QueryRow(ctx,
		"SELECT COUNT(*) FROM xp_transactions WHERE user_id = $1",
		userID.String(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count xp transactions: %w", err)
	}
	return count, nil
}
