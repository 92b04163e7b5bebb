package postgres

// GetMigrations returns all embedded migrations.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_progression_states",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
		{
			Version: 2,
			Name:    "create_xp_transactions",
			UpSQL:   migration002Up,
			DownSQL: migration002Down,
		},
		{
			Version: 3,
			Name:    "create_badges_and_activity",
			UpSQL:   migration003Up,
			DownSQL: migration003Down,
		},
	}
}

// Migration 1: the progression aggregate.
// Derived level fields are not stored; they are recomputed from total_xp
// against the milestone table on load. The version column backs
// optimistic locking in Save. highest_rank and league are written by
// the ranking job only, never by Save, so the two writers cannot
// overwrite each other.
const migration001Up = `
CREATE TABLE IF NOT EXISTS progression_states (
    user_id            UUID PRIMARY KEY,
    total_xp           BIGINT NOT NULL DEFAULT 0 CHECK (total_xp >= 0),
    current_streak     INTEGER NOT NULL DEFAULT 0 CHECK (current_streak >= 0),
    longest_streak     INTEGER NOT NULL DEFAULT 0 CHECK (longest_streak >= 0),
    last_activity_day  DATE,
    stats              JSONB NOT NULL DEFAULT '{}',
    highest_rank       INTEGER NOT NULL DEFAULT 0 CHECK (highest_rank >= 0),
    league             TEXT NOT NULL DEFAULT '',
    version            INTEGER NOT NULL DEFAULT 0,
    created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_progression_states_total_xp
    ON progression_states (total_xp DESC);
`

const migration001Down = `
DROP TABLE IF EXISTS progression_states;
`

// Migration 2: the append-only XP ledger.
// Rows are only ever inserted. The (user_id, id) index serves paginated
// history reads and per-user sums for reconciliation.
const migration002Up = `
CREATE TABLE IF NOT EXISTS xp_transactions (
    id          BIGSERIAL PRIMARY KEY,
    user_id     UUID NOT NULL,
    amount      INTEGER NOT NULL CHECK (amount >= 0),
    source      TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_xp_transactions_user
    ON xp_transactions (user_id, id);
`

const migration002Down = `
DROP TABLE IF EXISTS xp_transactions;
`

// Migration 3: earned badges and the daily activity map.
const migration003Up = `
CREATE TABLE IF NOT EXISTS user_badges (
    user_id   UUID NOT NULL,
    badge_id  TEXT NOT NULL,
    earned_at TIMESTAMPTZ NOT NULL,
    claimed   BOOLEAN NOT NULL DEFAULT FALSE,
    PRIMARY KEY (user_id, badge_id)
);

CREATE TABLE IF NOT EXISTS daily_activity (
    user_id UUID NOT NULL,
    day     DATE NOT NULL,
    count   INTEGER NOT NULL DEFAULT 0 CHECK (count >= 0),
    PRIMARY KEY (user_id, day)
);
`

const migration003Down = `
DROP TABLE IF EXISTS daily_activity;
DROP TABLE IF EXISTS user_badges;
`
