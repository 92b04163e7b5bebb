// Package redis implements the Redis-backed leaderboard cache.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/skillpath-hub/skillpath-progression/internal/domain/leaderboard"
	"github.com/skillpath-hub/skillpath-progression/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD CACHE
//
// Implements leaderboard.Cache on Redis Sorted Sets.
//
// Architecture:
//   - Sorted Set "skillpath:lb:xp" stores userID -> total XP
//   - Hash "skillpath:lb:info" stores userID -> Entry JSON
//   - String "skillpath:lb:rebuilt_at" stores the last rebuild time
//
// The ranking job rebuilds the whole structure atomically; queries only
// read. This keeps rank lookups O(log N) and range queries O(log N + M).
// ══════════════════════════════════════════════════════════════════════════════

// Key layout. A single global board, no sharding.
const (
	keyXP        = "skillpath:lb:xp"
	keyInfo      = "skillpath:lb:info"
	keyRebuiltAt = "skillpath:lb:rebuilt_at"
)

// ErrNeverRebuilt is returned by LastRebuildAt before the first rebuild.
var ErrNeverRebuilt = errors.New("leaderboard_cache: never rebuilt")

// entryDoc is the JSON shape of a cached leaderboard entry.
type entryDoc struct {
	Rank      int       `json:"rank"`
	UserID    string    `json:"user_id"`
	TotalXP   int       `json:"total_xp"`
	Level     int       `json:"level"`
	League    string    `json:"league"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LeaderboardCache is the Redis implementation of leaderboard.Cache.
type LeaderboardCache struct {
	client *redis.Client
}

// NewLeaderboardCache creates a new LeaderboardCache instance.
func NewLeaderboardCache(client *redis.Client) *LeaderboardCache {
	return &LeaderboardCache{client: client}
}

// ─────────────────────────────────────────────────────────────────────────────
// Write path (ranking job only)
// ─────────────────────────────────────────────────────────────────────────────

// Rebuild atomically replaces the board with a new set of entries.
// Uses a transactional pipeline so readers never observe a half-built board.
func (c *LeaderboardCache) Rebuild(ctx context.Context, entries []*leaderboard.Entry) error {
	pipe := c.client.TxPipeline()
	pipe.Del(ctx, keyXP, keyInfo)

	if len(entries) > 0 {
		members := make([]redis.Z, 0, len(entries))
		info := make(map[string]interface{}, len(entries))

		for _, entry := range entries {
			if entry == nil {
				continue
			}
			members = append(members, redis.Z{
				Score:  float64(entry.TotalXP),
				Member: entry.UserID.String(),
			})
			data, err := json.Marshal(entryDoc{
				Rank:      entry.Rank.Int(),
				UserID:    entry.UserID.String(),
				TotalXP:   entry.TotalXP,
				Level:     entry.Level,
				League:    entry.League.String(),
				UpdatedAt: entry.UpdatedAt,
			})
			if err != nil {
				return fmt.Errorf("marshal entry: %w", err)
			}
			info[entry.UserID.String()] = data
		}

		pipe.ZAdd(ctx, keyXP, members...)
		pipe.HSet(ctx, keyInfo, info)
	}

	pipe.Set(ctx, keyRebuiltAt, time.Now().UTC().Format(time.RFC3339Nano), 0)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("rebuild leaderboard: %w", err)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Read path
// ─────────────────────────────────────────────────────────────────────────────

// GetRank returns the user's position, shared.Unranked if absent.
// The sorted set gives a dense 0-based position; the stored entry
// carries the tie-aware rank, so prefer that when available.
func (c *LeaderboardCache) GetRank(ctx context.Context, userID shared.UserID) (shared.Rank, error) {
	data, err := c.client.HGet(ctx, keyInfo, userID.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return shared.Unranked, nil
		}
		return shared.Unranked, fmt.Errorf("get rank: %w", err)
	}

	var doc entryDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return shared.Unranked, fmt.Errorf("decode entry: %w", err)
	}
	return shared.Rank(doc.Rank), nil
}

// GetTop returns the top-N entries ordered by rank.
func (c *LeaderboardCache) GetTop(ctx context.Context, limit int) ([]*leaderboard.Entry, error) {
	if limit <= 0 {
		return nil, nil
	}

	userIDs, err := c.client.ZRevRange(ctx, keyXP, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("top range: %w", err)
	}
	return c.loadEntries(ctx, userIDs)
}

// GetAround returns the user's neighbors, rangeSize positions each way,
// the user's own entry included.
func (c *LeaderboardCache) GetAround(ctx context.Context, userID shared.UserID, rangeSize int) ([]*leaderboard.Entry, error) {
	if rangeSize < 0 {
		rangeSize = 0
	}

	pos, err := c.client.ZRevRank(ctx, keyXP, userID.String()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("around rank: %w", err)
	}

	start := pos - int64(rangeSize)
	if start < 0 {
		start = 0
	}
	end := pos + int64(rangeSize)

	userIDs, err := c.client.ZRevRange(ctx, keyXP, start, end).Result()
	if err != nil {
		return nil, fmt.Errorf("around range: %w", err)
	}
	return c.loadEntries(ctx, userIDs)
}

// Count returns the number of ranked users.
func (c *LeaderboardCache) Count(ctx context.Context) (int, error) {
	count, err := c.client.ZCard(ctx, keyXP).Result()
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return int(count), nil
}

// LastRebuildAt returns when the board was last rebuilt.
func (c *LeaderboardCache) LastRebuildAt(ctx context.Context) (time.Time, error) {
	raw, err := c.client.Get(ctx, keyRebuiltAt).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, ErrNeverRebuilt
		}
		return time.Time{}, fmt.Errorf("last rebuild: %w", err)
	}

	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse rebuild time: %w", err)
	}
	return t, nil
}

// loadEntries fetches stored entries for the given IDs in one HMGET,
// preserving order. IDs missing from the hash are skipped.
func (c *LeaderboardCache) loadEntries(ctx context.Context, userIDs []string) ([]*leaderboard.Entry, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	data, err := c.client.HMGet(ctx, keyInfo, userIDs...).Result()
	if err != nil {
		return nil, fmt.Errorf("load entries: %w", err)
	}

	entries := make([]*leaderboard.Entry, 0, len(userIDs))
	for _, v := range data {
		raw, ok := v.(string)
		if !ok {
			continue
		}

		var doc entryDoc
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			continue
		}
		entries = append(entries, &leaderboard.Entry{
			Rank:      shared.Rank(doc.Rank),
			UserID:    shared.UserID(doc.UserID),
			TotalXP:   doc.TotalXP,
			Level:     doc.Level,
			League:    shared.League(doc.League),
			UpdatedAt: doc.UpdatedAt,
		})
	}
	return entries, nil
}
