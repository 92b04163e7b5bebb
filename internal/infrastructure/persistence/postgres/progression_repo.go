package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/skillpath-hub/skillpath-progression/internal/domain/progression"
	"github.com/skillpath-hub/skillpath-progression/internal/domain/shared"
	"github.com/skillpath-hub/skillpath-progression/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESSION REPOSITORY
// Implements progression.Repository and progression.ActivityReader.
//
// The aggregate is split across three tables: progression_states (scalar
// fields plus a stats JSONB document), user_badges, and daily_activity.
// The ledger is NOT loaded here; commands only append new transactions
// through LedgerRepo, and the reconciliation job compares sums.
// ══════════════════════════════════════════════════════════════════════════════

// ProgressionRepo is the PostgreSQL implementation of progression.Repository.
type ProgressionRepo struct {
	conn  *Connection
	table *progression.MilestoneTable
}

// NewProgressionRepo creates a new progression repository.
// The milestone table is needed to recompute derived level fields on load.
func NewProgressionRepo(conn *Connection, table *progression.MilestoneTable) *ProgressionRepo {
	return &ProgressionRepo{conn: conn, table: table}
}

// statsDoc is the JSONB shape of progression.BadgeStats.
// Rank and league live in dedicated columns because a separate writer
// (the ranking job) updates them.
type statsDoc struct {
	LessonsCompletedTotal int      `json:"lessons_completed_total"`
	LessonsCompletedToday int      `json:"lessons_completed_today"`
	LastLessonDay         string   `json:"last_lesson_day,omitempty"`
	LastCompletionHour    int      `json:"last_completion_hour"`
	PerfectTests          int      `json:"perfect_tests"`
	ChallengesCompleted   int      `json:"challenges_completed"`
	SkillsMastered        int      `json:"skills_mastered"`
	Categories            []string `json:"categories,omitempty"`
	StreakRestored        bool     `json:"streak_restored"`
}

func encodeStats(stats progression.BadgeStats) ([]byte, error) {
	doc := statsDoc{
		LessonsCompletedTotal: stats.LessonsCompletedTotal,
		LessonsCompletedToday: stats.LessonsCompletedToday,
		LastCompletionHour:    stats.LastCompletionHour,
		PerfectTests:          stats.PerfectTests,
		ChallengesCompleted:   stats.ChallengesCompleted,
		SkillsMastered:        stats.SkillsMastered,
		StreakRestored:        stats.StreakRestored,
	}
	if !stats.LastLessonDay.IsZero() {
		doc.LastLessonDay = stats.LastLessonDay.String()
	}
	for category := range stats.CategoriesExplored {
		doc.Categories = append(doc.Categories, category)
	}
	return json.Marshal(doc)
}

func decodeStats(data []byte, rank int, league string) (progression.BadgeStats, error) {
	var doc statsDoc
	if len(data) > 0 {
		if err := json.Unmarshal(data, &doc); err != nil {
			return progression.BadgeStats{}, fmt.Errorf("decode stats: %w", err)
		}
	}

	stats := progression.NewBadgeStats()
	stats.LessonsCompletedTotal = doc.LessonsCompletedTotal
	stats.LessonsCompletedToday = doc.LessonsCompletedToday
	stats.LastCompletionHour = doc.LastCompletionHour
	stats.PerfectTests = doc.PerfectTests
	stats.ChallengesCompleted = doc.ChallengesCompleted
	stats.SkillsMastered = doc.SkillsMastered
	stats.StreakRestored = doc.StreakRestored
	stats.HighestLeaderboardRank = shared.Rank(rank)
	stats.League = shared.League(league)

	if doc.LastLessonDay != "" {
		day, err := timeutil.ParseDay(doc.LastLessonDay)
		if err != nil {
			return progression.BadgeStats{}, err
		}
		stats.LastLessonDay = day
	}
	for _, category := range doc.Categories {
		stats.ExploreCategory(category)
	}
	return stats, nil
}

// dayToDate converts a calendar day to a nullable SQL DATE value.
func dayToDate(day timeutil.Day) *time.Time {
	if day.IsZero() {
		return nil
	}
	t := day.Time(time.UTC)
	return &t
}

// dateToDay converts a nullable SQL DATE value back to a calendar day.
func dateToDay(t *time.Time) timeutil.Day {
	if t == nil {
		return timeutil.Day{}
	}
	return timeutil.DayOf(*t, time.UTC)
}

// ─────────────────────────────────────────────────────────────────────────────
// Create / Get / Save
// ─────────────────────────────────────────────────────────────────────────────

// Create inserts a new aggregate.
// Returns shared.ErrAlreadyExists if the user already has one.
func (r *ProgressionRepo) Create(ctx context.Context, state *progression.State) error {
	stats, err := encodeStats(state.Stats)
	if err != nil {
		return err
	}

	return r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO progression_states
				(user_id, total_xp, current_streak, longest_streak,
				 last_activity_day, stats, highest_rank, league,
				 version, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`,
			state.UserID.String(),
			state.TotalXP,
			state.CurrentStreak,
			state.LongestStreak,
			dayToDate(state.LastActivityDay),
			stats,
			state.Stats.HighestLeaderboardRank.Int(),
			state.Stats.League.String(),
			state.Version,
			state.CreatedAt,
			state.UpdatedAt,
		)
		if err != nil {
			if IsUniqueViolation(err) {
				return shared.ErrAlreadyExists
			}
			return fmt.Errorf("insert progression state: %w", err)
		}

		if err := upsertBadges(ctx, tx, state); err != nil {
			return err
		}
		return upsertActivity(ctx, tx, state)
	})
}

// Get loads the aggregate without the transaction ledger.
// Returns shared.ErrProgressionNotFound if the user has no aggregate.
func (r *ProgressionRepo) Get(ctx context.Context, userID shared.UserID) (*progression.State, error) {
	var (
		totalXP         int
		currentStreak   int
		longestStreak   int
		lastActivityDay *time.Time
		statsData       []byte
		highestRank     int
		league          string
		version         int
		createdAt       time.Time
		updatedAt       time.Time
	)

	err := r.conn.QueryRow(ctx, `
		SELECT total_xp, current_streak, longest_streak, last_activity_day,
		       stats, highest_rank, league, version, created_at, updated_at
		FROM progression_states
		WHERE user_id = $1
	`, userID.String()).Scan(
		&totalXP, &currentStreak, &longestStreak, &lastActivityDay,
		&statsData, &highestRank, &league, &version, &createdAt, &updatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrProgressionNotFound
		}
		return nil, fmt.Errorf("select progression state: %w", err)
	}

	stats, err := decodeStats(statsData, highestRank, league)
	if err != nil {
		return nil, err
	}

	state := &progression.State{
		UserID:          userID,
		TotalXP:         totalXP,
		CurrentStreak:   currentStreak,
		LongestStreak:   longestStreak,
		LastActivityDay: dateToDay(lastActivityDay),
		DailyActivity:   make(map[timeutil.Day]int),
		Stats:           stats,
		Ledger:          progression.NewLedger(nil),
		Version:         version,
		CreatedAt:       createdAt,
		UpdatedAt:       updatedAt,
	}
	state.Rehydrate(r.table)

	if err := r.loadBadges(ctx, state); err != nil {
		return nil, err
	}
	if err := r.loadActivity(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// Save persists a mutated aggregate with an optimistic version check.
// Returns shared.ErrStaleState if another writer got there first.
func (r *ProgressionRepo) Save(ctx context.Context, state *progression.State) error {
	stats, err := encodeStats(state.Stats)
	if err != nil {
		return err
	}

	return r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		// highest_rank and league are intentionally absent: the ranking
		// job owns those columns.
		tag, err := tx.Exec(ctx, `
			UPDATE progression_states
			SET total_xp = $2,
			    current_streak = $3,
			    longest_streak = $4,
			    last_activity_day = $5,
			    stats = $6,
			    version = $7,
			    updated_at = $8
			WHERE user_id = $1 AND version = $7 - 1
		`,
			state.UserID.String(),
			state.TotalXP,
			state.CurrentStreak,
			state.LongestStreak,
			dayToDate(state.LastActivityDay),
			stats,
			state.Version,
			state.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("update progression state: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrStaleState
		}

		if err := upsertBadges(ctx, tx, state); err != nil {
			return err
		}
		return upsertActivity(ctx, tx, state)
	})
}

// upsertBadges writes the earned badge set. The set is small (bounded
// by the registry), so upserting all rows is cheaper than diffing.
func upsertBadges(ctx context.Context, tx pgx.Tx, state *progression.State) error {
	for _, badge := range state.Badges {
		_, err := tx.Exec(ctx, `
			INSERT INTO user_badges (user_id, badge_id, earned_at, claimed)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (user_id, badge_id)
			DO UPDATE SET claimed = EXCLUDED.claimed
		`, state.UserID.String(), badge.BadgeID.String(), badge.EarnedAt, badge.Claimed)
		if err != nil {
			return fmt.Errorf("upsert badge %s: %w", badge.BadgeID, err)
		}
	}
	return nil
}

// upsertActivity writes the activity counter of the last active day.
// Domain code only ever increments the day of the applied event, so
// earlier days are already persisted.
func upsertActivity(ctx context.Context, tx pgx.Tx, state *progression.State) error {
	day := state.LastActivityDay
	if day.IsZero() {
		return nil
	}
	count, ok := state.DailyActivity[day]
	if !ok {
		return nil
	}

	_, err := tx.Exec(ctx, `
		INSERT INTO daily_activity (user_id, day, count)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, day)
		DO UPDATE SET count = EXCLUDED.count
	`, state.UserID.String(), day.Time(time.UTC), count)
	if err != nil {
		return fmt.Errorf("upsert daily activity: %w", err)
	}
	return nil
}

func (r *ProgressionRepo) loadBadges(ctx context.Context, state *progression.State) error {
	rows, err := r.conn.Query(ctx, `
		SELECT badge_id, earned_at, claimed
		FROM user_badges
		WHERE user_id = $1
		ORDER BY earned_at
	`, state.UserID.String())
	if err != nil {
		return fmt.Errorf("select badges: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			badgeID  string
			earnedAt time.Time
			claimed  bool
		)
		if err := rows.Scan(&badgeID, &earnedAt, &claimed); err != nil {
			return fmt.Errorf("scan badge: %w", err)
		}
		state.Badges = append(state.Badges, progression.EarnedBadge{
			BadgeID:  shared.BadgeID(badgeID),
			EarnedAt: earnedAt,
			Claimed:  claimed,
		})
	}
	return rows.Err()
}

func (r *ProgressionRepo) loadActivity(ctx context.Context, state *progression.State) error {
	rows, err := r.conn.Query(ctx, `
		SELECT day, count
		FROM daily_activity
		WHERE user_id = $1
	`, state.UserID.String())
	if err != nil {
		return fmt.Errorf("select daily activity: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			day   time.Time
			count int
		)
		if err := rows.Scan(&day, &count); err != nil {
			return fmt.Errorf("scan daily activity: %w", err)
		}
		state.DailyActivity[timeutil.DayOf(day, time.UTC)] = count
	}
	return rows.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// Lookups for background jobs
// ─────────────────────────────────────────────────────────────────────────────

// Exists reports whether the user has a progression aggregate.
func (r *ProgressionRepo) Exists(ctx context.Context, userID shared.UserID) (bool, error) {
	var exists bool
	err := r.conn.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM progression_states WHERE user_id = $1)",
		userID.String(),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check existence: %w", err)
	}
	return exists, nil
}

// ListUserIDs returns all user IDs with a progression aggregate.
func (r *ProgressionRepo) ListUserIDs(ctx context.Context) ([]shared.UserID, error) {
	rows, err := r.conn.Query(ctx, "SELECT user_id FROM progression_states ORDER BY user_id")
	if err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}
	defer rows.Close()

	var ids []shared.UserID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, shared.UserID(id))
	}
	return ids, rows.Err()
}

// TotalsByUser returns each user's total XP, the input for ranking.
func (r *ProgressionRepo) TotalsByUser(ctx context.Context) (map[shared.UserID]int, error) {
	rows, err := r.conn.Query(ctx, "SELECT user_id, total_xp FROM progression_states")
	if err != nil {
		return nil, fmt.Errorf("select totals: %w", err)
	}
	defer rows.Close()

	totals := make(map[shared.UserID]int)
	for rows.Next() {
		var (
			id      string
			totalXP int
		)
		if err := rows.Scan(&id, &totalXP); err != nil {
			return nil, fmt.Errorf("scan total: %w", err)
		}
		totals[shared.UserID(id)] = totalXP
	}
	return totals, rows.Err()
}

// UpdateRanking records the ranking job's output for a user: the
// best-ever rank and the current league. Does not touch the version
// column, so it never conflicts with Save.
func (r *ProgressionRepo) UpdateRanking(ctx context.Context, userID shared.UserID, rank shared.Rank, league shared.League) error {
	tag, err := r.conn.Exec(ctx, `
		UPDATE progression_states
		SET highest_rank = CASE
		        WHEN highest_rank = 0 OR ($2 > 0 AND $2 < highest_rank) THEN $2
		        ELSE highest_rank
		    END,
		    league = $3
		WHERE user_id = $1
	`, userID.String(), rank.Int(), league.String())
	if err != nil {
		return fmt.Errorf("update ranking: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrProgressionNotFound
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// ActivityReader
// ─────────────────────────────────────────────────────────────────────────────

// ActivityRange returns per-day activity counts within [from, to].
// Days without activity are absent from the result.
func (r *ProgressionRepo) ActivityRange(ctx context.Context, userID shared.UserID, from, to timeutil.Day) (map[timeutil.Day]int, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT day, count
		FROM daily_activity
		WHERE user_id = $1 AND day BETWEEN $2 AND $3
	`, userID.String(), from.Time(time.UTC), to.Time(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("select activity range: %w", err)
	}
	defer rows.Close()

	activity := make(map[timeutil.Day]int)
	for rows.Next() {
		var (
			day   time.Time
			count int
		)
		if err := rows.Scan(&day, &count); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		activity[timeutil.DayOf(day, time.UTC)] = count
	}
	return activity, rows.Err()
}
