package config

import (
	"hash/fnv"
	"os"
	"strconv"
	"strings"
	"sync"
)

// FeatureFlags manages feature toggles for the progression engine.
// Supports gradual rollout: users are assigned to a rollout bucket by
// a stable hash of their ID, so a flag at 50% always hits the same
// half of the user base.
type FeatureFlags struct {
	mu sync.RWMutex

	features map[string]*Feature
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool

	// Rollout percentage (0-100).
	RolloutPercent int
}

// Predefined feature flag names.
const (
	// === Progression features ===
	FeatureBadges       = "progression.badges"        // Badge evaluation and awards
	FeatureBonusXP      = "progression.bonus_xp"      // Manual bonus XP grants
	FeatureStreakEvents = "progression.streak_events" // Streak extended/broken events

	// === Leaderboard features ===
	FeatureLeaderboard     = "leaderboard.enabled" // Ranking rebuild and queries
	FeatureLeaderboardNear = "leaderboard.around"  // Neighbors view in queries

	// === System features ===
	FeatureDriftRepair = "system.drift_repair" // Reconciliation may rewrite totals
)

// LoadFeatureFlags loads feature flags from environment variables.
func LoadFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{
		features: make(map[string]*Feature),
	}

	ff.initializeDefaults()
	ff.loadFromEnvironment()

	return ff
}

func (ff *FeatureFlags) initializeDefaults() {
	defaults := []*Feature{
		{Name: FeatureBadges, Description: "Badge evaluation and awards", Enabled: true, RolloutPercent: 100},
		{Name: FeatureBonusXP, Description: "Manual bonus XP grants", Enabled: true, RolloutPercent: 100},
		{Name: FeatureStreakEvents, Description: "Streak extended/broken events", Enabled: true, RolloutPercent: 100},
		{Name: FeatureLeaderboard, Description: "Ranking rebuild and queries", Enabled: true, RolloutPercent: 100},
		{Name: FeatureLeaderboardNear, Description: "Neighbors view in leaderboard queries", Enabled: true, RolloutPercent: 100},
		{Name: FeatureDriftRepair, Description: "Reconciliation may rewrite totals", Enabled: true, RolloutPercent: 100},
	}
	for _, f := range defaults {
		ff.features[f.Name] = f
	}
}

// loadFromEnvironment applies env overrides of the form
// FEATURE_<NAME>=true|false|<percent>, where <NAME> is the flag name
// upper-cased with dots replaced by underscores.
// Example: FEATURE_LEADERBOARD_AROUND=25
func (ff *FeatureFlags) loadFromEnvironment() {
	for name, feature := range ff.features {
		envKey := "FEATURE_" + strings.ToUpper(strings.ReplaceAll(name, ".", "_"))
		val := os.Getenv(envKey)
		if val == "" {
			continue
		}

		if b, err := strconv.ParseBool(val); err == nil {
			feature.Enabled = b
			continue
		}
		if pct, err := strconv.Atoi(val); err == nil && pct >= 0 && pct <= 100 {
			feature.Enabled = pct > 0
			feature.RolloutPercent = pct
		}
	}
}

// IsEnabled reports whether a flag is globally on.
func (ff *FeatureFlags) IsEnabled(name string) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	f, ok := ff.features[name]
	return ok && f.Enabled
}

// IsEnabledFor reports whether a flag is on for the given user,
// respecting the rollout percentage.
func (ff *FeatureFlags) IsEnabledFor(name, userID string) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	f, ok := ff.features[name]
	if !ok || !f.Enabled {
		return false
	}
	if f.RolloutPercent >= 100 {
		return true
	}
	return rolloutBucket(name, userID) < f.RolloutPercent
}

// Set enables or disables a flag at runtime.
func (ff *FeatureFlags) Set(name string, enabled bool) {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	if f, ok := ff.features[name]; ok {
		f.Enabled = enabled
	}
}

// List returns a copy of all flags.
func (ff *FeatureFlags) List() []Feature {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	out := make([]Feature, 0, len(ff.features))
	for _, f := range ff.features {
		out = append(out, *f)
	}
	return out
}

// rolloutBucket maps (flag, user) to a stable bucket in [0, 100).
// Including the flag name decorrelates buckets across flags.
func rolloutBucket(name, userID string) int {
	h := fnv.New32a()
	h.Write([]byte(name))
	h.Write([]byte(":"))
	h.Write([]byte(userID))
	return int(h.Sum32() % 100)
}
