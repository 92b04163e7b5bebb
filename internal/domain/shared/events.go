package shared

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types - these drive the event-driven architecture.
// Each event represents something significant that happened in the domain.
const (
	// Progression events
	EventXPGranted       EventType = "progression.xp_granted"
	EventLevelUp         EventType = "progression.level_up"
	EventLessonCompleted EventType = "progression.lesson_completed"

	// Streak events
	EventStreakExtended EventType = "streak.extended"
	EventStreakBroken   EventType = "streak.broken"
	EventStreakRestored EventType = "streak.restored"

	// Badge events
	EventBadgeEarned  EventType = "badge.earned"
	EventBadgeClaimed EventType = "badge.claimed"

	// Leaderboard events
	EventRankUpdated   EventType = "leaderboard.rank_updated"
	EventLeagueChanged EventType = "leaderboard.league_changed"

	// System events
	EventLedgerReconciled EventType = "system.ledger_reconciled"
	EventDriftDetected    EventType = "system.drift_detected"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	ID            string    `json:"id"`
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventID returns the unique identifier of this event instance.
func (e BaseEvent) EventID() string {
	return e.ID
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		ID:          uuid.NewString(),
		Type:        eventType,
		Timestamp:   time.Now(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Progression Events
// ═══════════════════════════════════════════════════════════════════════════

// XPGrantedEvent is emitted when a user is granted XP.
type XPGrantedEvent struct {
	BaseEvent
	UserID   string `json:"user_id"`
	Amount   int    `json:"amount"`
	NewTotal int    `json:"new_total"`
	Source   string `json:"source"` // e.g., "lesson_completed", "badge_bonus"
	SourceID string `json:"source_id,omitempty"`
}

// Payload implements Event interface.
func (e XPGrantedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":   e.UserID,
		"amount":    e.Amount,
		"new_total": e.NewTotal,
		"source":    e.Source,
		"source_id": e.SourceID,
	}
}

// NewXPGrantedEvent creates a new XPGrantedEvent.
func NewXPGrantedEvent(userID string, amount, newTotal int, source, sourceID string) XPGrantedEvent {
	return XPGrantedEvent{
		BaseEvent: NewBaseEvent(EventXPGranted, userID),
		UserID:    userID,
		Amount:    amount,
		NewTotal:  newTotal,
		Source:    source,
		SourceID:  sourceID,
	}
}

// LevelUpEvent is emitted when a user's level increases.
type LevelUpEvent struct {
	BaseEvent
	UserID    string `json:"user_id"`
	OldLevel  int    `json:"old_level"`
	NewLevel  int    `json:"new_level"`
	LevelName string `json:"level_name"`
	TotalXP   int    `json:"total_xp"`
}

// Payload implements Event interface.
func (e LevelUpEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":    e.UserID,
		"old_level":  e.OldLevel,
		"new_level":  e.NewLevel,
		"level_name": e.LevelName,
		"total_xp":   e.TotalXP,
	}
}

// NewLevelUpEvent creates a new LevelUpEvent.
func NewLevelUpEvent(userID string, oldLevel, newLevel int, levelName string, totalXP int) LevelUpEvent {
	return LevelUpEvent{
		BaseEvent: NewBaseEvent(EventLevelUp, userID),
		UserID:    userID,
		OldLevel:  oldLevel,
		NewLevel:  newLevel,
		LevelName: levelName,
		TotalXP:   totalXP,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Streak Events
// ═══════════════════════════════════════════════════════════════════════════

// StreakExtendedEvent is emitted when a user's daily streak grows.
type StreakExtendedEvent struct {
	BaseEvent
	UserID        string `json:"user_id"`
	CurrentStreak int    `json:"current_streak"`
	LongestStreak int    `json:"longest_streak"`
	IsRecord      bool   `json:"is_record"`
}

// Payload implements Event interface.
func (e StreakExtendedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":        e.UserID,
		"current_streak": e.CurrentStreak,
		"longest_streak": e.LongestStreak,
		"is_record":      e.IsRecord,
	}
}

// NewStreakExtendedEvent creates a new StreakExtendedEvent.
func NewStreakExtendedEvent(userID string, current, longest int) StreakExtendedEvent {
	return StreakExtendedEvent{
		BaseEvent:     NewBaseEvent(EventStreakExtended, userID),
		UserID:        userID,
		CurrentStreak: current,
		LongestStreak: longest,
		IsRecord:      current == longest && current > 1,
	}
}

// StreakBrokenEvent is emitted when a gap resets the user's streak.
type StreakBrokenEvent struct {
	BaseEvent
	UserID         string `json:"user_id"`
	PreviousStreak int    `json:"previous_streak"`
	DaysMissed     int    `json:"days_missed"`
}

// Payload implements Event interface.
func (e StreakBrokenEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":         e.UserID,
		"previous_streak": e.PreviousStreak,
		"days_missed":     e.DaysMissed,
	}
}

// NewStreakBrokenEvent creates a new StreakBrokenEvent.
func NewStreakBrokenEvent(userID string, previousStreak, daysMissed int) StreakBrokenEvent {
	return StreakBrokenEvent{
		BaseEvent:      NewBaseEvent(EventStreakBroken, userID),
		UserID:         userID,
		PreviousStreak: previousStreak,
		DaysMissed:     daysMissed,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Badge Events
// ═══════════════════════════════════════════════════════════════════════════

// BadgeEarnedEvent is emitted when a user earns a badge.
type BadgeEarnedEvent struct {
	BaseEvent
	UserID    string `json:"user_id"`
	BadgeID   string `json:"badge_id"`
	BadgeName string `json:"badge_name"`
	XPReward  int    `json:"xp_reward"`
}

// Payload implements Event interface.
func (e BadgeEarnedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":    e.UserID,
		"badge_id":   e.BadgeID,
		"badge_name": e.BadgeName,
		"xp_reward":  e.XPReward,
	}
}

// NewBadgeEarnedEvent creates a new BadgeEarnedEvent.
func NewBadgeEarnedEvent(userID, badgeID, badgeName string, xpReward int) BadgeEarnedEvent {
	return BadgeEarnedEvent{
		BaseEvent: NewBaseEvent(EventBadgeEarned, userID),
		UserID:    userID,
		BadgeID:   badgeID,
		BadgeName: badgeName,
		XPReward:  xpReward,
	}
}

// BadgeClaimedEvent is emitted when a user acknowledges an earned badge.
type BadgeClaimedEvent struct {
	BaseEvent
	UserID  string `json:"user_id"`
	BadgeID string `json:"badge_id"`
}

// Payload implements Event interface.
func (e BadgeClaimedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":  e.UserID,
		"badge_id": e.BadgeID,
	}
}

// NewBadgeClaimedEvent creates a new BadgeClaimedEvent.
func NewBadgeClaimedEvent(userID, badgeID string) BadgeClaimedEvent {
	return BadgeClaimedEvent{
		BaseEvent: NewBaseEvent(EventBadgeClaimed, userID),
		UserID:    userID,
		BadgeID:   badgeID,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Leaderboard Events
// ═══════════════════════════════════════════════════════════════════════════

// RankUpdatedEvent is emitted when the ranking job writes a new rank.
type RankUpdatedEvent struct {
	BaseEvent
	UserID      string `json:"user_id"`
	NewRank     int    `json:"new_rank"`
	HighestRank int    `json:"highest_rank"`
	League      string `json:"league"`
}

// Payload implements Event interface.
func (e RankUpdatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":      e.UserID,
		"new_rank":     e.NewRank,
		"highest_rank": e.HighestRank,
		"league":       e.League,
	}
}

// NewRankUpdatedEvent creates a new RankUpdatedEvent.
func NewRankUpdatedEvent(userID string, newRank, highestRank int, league string) RankUpdatedEvent {
	return RankUpdatedEvent{
		BaseEvent:   NewBaseEvent(EventRankUpdated, userID),
		UserID:      userID,
		NewRank:     newRank,
		HighestRank: highestRank,
		League:      league,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// System Events
// ═══════════════════════════════════════════════════════════════════════════

// DriftDetectedEvent is emitted when the reconciliation job finds a mismatch
// between a user's stored total XP and the ledger sum.
type DriftDetectedEvent struct {
	BaseEvent
	UserID      string `json:"user_id"`
	StoredTotal int    `json:"stored_total"`
	LedgerTotal int    `json:"ledger_total"`
}

// Payload implements Event interface.
func (e DriftDetectedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":      e.UserID,
		"stored_total": e.StoredTotal,
		"ledger_total": e.LedgerTotal,
	}
}

// NewDriftDetectedEvent creates a new DriftDetectedEvent.
func NewDriftDetectedEvent(userID string, storedTotal, ledgerTotal int) DriftDetectedEvent {
	return DriftDetectedEvent{
		BaseEvent:   NewBaseEvent(EventDriftDetected, userID),
		UserID:      userID,
		StoredTotal: storedTotal,
		LedgerTotal: ledgerTotal,
	}
}

// LedgerReconciledEvent is emitted after a full reconciliation sweep.
type LedgerReconciledEvent struct {
	BaseEvent
	UsersChecked int `json:"users_checked"`
	DriftsFound  int `json:"drifts_found"`
	Repaired     int `json:"repaired"`
}

// Payload implements Event interface.
func (e LedgerReconciledEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"users_checked": e.UsersChecked,
		"drifts_found":  e.DriftsFound,
		"repaired":      e.Repaired,
	}
}

// NewLedgerReconciledEvent creates a new LedgerReconciledEvent.
func NewLedgerReconciledEvent(usersChecked, driftsFound, repaired int) LedgerReconciledEvent {
	return LedgerReconciledEvent{
		BaseEvent:    NewBaseEvent(EventLedgerReconciled, "system"),
		UsersChecked: usersChecked,
		DriftsFound:  driftsFound,
		Repaired:     repaired,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Envelope (for serialization and transport)
// ═══════════════════════════════════════════════════════════════════════════

// EventEnvelope wraps an event for transport/storage.
type EventEnvelope struct {
	ID            string          `json:"id"`
	Type          EventType       `json:"type"`
	AggregateID   string          `json:"aggregate_id"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int             `json:"version"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
