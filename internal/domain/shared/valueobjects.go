package shared

import (
	"regexp"
	"strings"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// UserID represents a unique user identifier (UUID format).
type UserID string

// UUID validation regex (simple version).
var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// IsValid checks if the user ID is a valid UUID.
func (u UserID) IsValid() bool {
	return uuidRegex.MatchString(string(u))
}

// String returns the string representation.
func (u UserID) String() string {
	return string(u)
}

// IsEmpty checks if the ID is empty.
func (u UserID) IsEmpty() bool {
	return u == ""
}

// NewUserID creates a new UserID with validation.
func NewUserID(id string) (UserID, error) {
	uid := UserID(strings.ToLower(strings.TrimSpace(id)))
	if !uid.IsValid() {
		return "", NewDomainError("shared", "NewUserID", ErrInvalidID, "invalid user ID format")
	}
	return uid, nil
}

// LessonID represents a unique lesson identifier.
type LessonID string

// Lesson ID format: category-name-number (e.g., "go-intro-01", "sql-joins-03")
var lessonIDRegex = regexp.MustCompile(`^[a-z][a-z0-9]*(-[a-z0-9]+)*$`)

// IsValid checks if the lesson ID format is valid.
func (l LessonID) IsValid() bool {
	s := string(l)
	return len(s) >= 3 && len(s) <= 50 && lessonIDRegex.MatchString(s)
}

// String returns the string representation.
func (l LessonID) String() string {
	return string(l)
}

// Category extracts the category from the lesson ID.
func (l LessonID) Category() string {
	parts := strings.Split(string(l), "-")
	if len(parts) > 0 {
		return parts[0]
	}
	return ""
}

// NewLessonID creates a new LessonID with validation.
func NewLessonID(id string) (LessonID, error) {
	lid := LessonID(strings.ToLower(strings.TrimSpace(id)))
	if !lid.IsValid() {
		return "", NewDomainError("shared", "NewLessonID", ErrInvalidID, "invalid lesson ID format")
	}
	return lid, nil
}

// BadgeID represents a unique badge identifier (slug format).
type BadgeID string

var badgeIDRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// IsValid checks if the badge ID format is valid.
func (b BadgeID) IsValid() bool {
	s := string(b)
	return len(s) >= 2 && len(s) <= 60 && badgeIDRegex.MatchString(s)
}

// String returns the string representation.
func (b BadgeID) String() string {
	return string(b)
}

// NewBadgeID creates a new BadgeID with validation.
func NewBadgeID(id string) (BadgeID, error) {
	bid := BadgeID(strings.ToLower(strings.TrimSpace(id)))
	if !bid.IsValid() {
		return "", NewDomainError("shared", "NewBadgeID", ErrInvalidID, "invalid badge ID format")
	}
	return bid, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Rank Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Rank represents a user's position in the leaderboard.
// Rank 1 is the best; Unranked means the ranking job has not placed the user yet.
type Rank int

const (
	MinRank  Rank = 1
	Unranked Rank = 0
)

// IsValid checks if the rank is valid.
func (r Rank) IsValid() bool {
	return r >= MinRank
}

// Int returns the underlying int value.
func (r Rank) Int() int {
	return int(r)
}

// IsUnranked checks if the user is not yet ranked.
func (r Rank) IsUnranked() bool {
	return r == Unranked
}

// IsTop returns true if the rank is in the top N.
func (r Rank) IsTop(n int) bool {
	return r.IsValid() && int(r) <= n
}

// BetterOf returns the better (smaller) of two ranks, treating
// Unranked as worse than any real rank.
func (r Rank) BetterOf(other Rank) Rank {
	if r.IsUnranked() {
		return other
	}
	if other.IsUnranked() || r < other {
		return r
	}
	return other
}

// NewRank creates a new Rank with validation.
func NewRank(position int) (Rank, error) {
	if position < 0 {
		return Unranked, NewDomainError("shared", "NewRank", ErrNegativeValue, "rank cannot be negative")
	}
	return Rank(position), nil
}

// ═══════════════════════════════════════════════════════════════════════════
// League Value Object
// ═══════════════════════════════════════════════════════════════════════════

// League represents a leaderboard league tier. Tiers form a total order:
// bronze < silver < gold < platinum < diamond < master.
type League string

const (
	LeagueNone     League = ""
	LeagueBronze   League = "bronze"
	LeagueSilver   League = "silver"
	LeagueGold     League = "gold"
	LeaguePlatinum League = "platinum"
	LeagueDiamond  League = "diamond"
	LeagueMaster   League = "master"
)

// leagueOrder defines the ordinal position of each tier, 1-based.
var leagueOrder = map[League]int{
	LeagueBronze:   1,
	LeagueSilver:   2,
	LeagueGold:     3,
	LeaguePlatinum: 4,
	LeagueDiamond:  5,
	LeagueMaster:   6,
}

// IsValid checks if the league is a known tier.
func (l League) IsValid() bool {
	_, ok := leagueOrder[l]
	return ok
}

// String returns the string representation.
func (l League) String() string {
	return string(l)
}

// Index returns the 1-based ordinal of the tier, 0 for none/unknown.
func (l League) Index() int {
	return leagueOrder[l]
}

// AtLeast reports whether the league is at or above the given tier.
// An unknown league is never at or above anything.
func (l League) AtLeast(other League) bool {
	li, ok := leagueOrder[l]
	if !ok {
		return false
	}
	oi, ok := leagueOrder[other]
	if !ok {
		return false
	}
	return li >= oi
}

// ParseLeague parses a string into a League.
func ParseLeague(s string) (League, error) {
	l := League(strings.ToLower(strings.TrimSpace(s)))
	if l == LeagueNone {
		return LeagueNone, nil
	}
	if !l.IsValid() {
		return LeagueNone, ErrUnknownLeague
	}
	return l, nil
}

// Leagues returns all tiers in ascending order.
func Leagues() []League {
	return []League{LeagueBronze, LeagueSilver, LeagueGold, LeaguePlatinum, LeagueDiamond, LeagueMaster}
}

// ═══════════════════════════════════════════════════════════════════════════
// TimeRange Value Object
// ═══════════════════════════════════════════════════════════════════════════

// TimeRange represents a time period.
type TimeRange struct {
	From time.Time
	To   time.Time
}

// IsValid checks if the time range is valid.
func (t TimeRange) IsValid() bool {
	return !t.From.IsZero() && !t.To.IsZero() && !t.From.After(t.To)
}

// Duration returns the duration of the time range.
func (t TimeRange) Duration() time.Duration {
	return t.To.Sub(t.From)
}

// Contains checks if a time is within the range.
func (t TimeRange) Contains(tm time.Time) bool {
	return (tm.Equal(t.From) || tm.After(t.From)) && (tm.Equal(t.To) || tm.Before(t.To))
}

// NewTimeRange creates a new TimeRange with validation.
func NewTimeRange(from, to time.Time) (TimeRange, error) {
	tr := TimeRange{From: from, To: to}
	if !tr.IsValid() {
		return TimeRange{}, NewDomainError("shared", "NewTimeRange", ErrInvalidInput, "'from' must be before 'to'")
	}
	return tr, nil
}

// LastNDays returns a TimeRange for the last N days.
func LastNDays(n int) TimeRange {
	now := time.Now()
	return TimeRange{
		From: now.AddDate(0, 0, -n),
		To:   now,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Pagination Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Pagination represents pagination parameters.
type Pagination struct {
	Page     int
	PageSize int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Offset returns the offset for database queries.
func (p Pagination) Offset() int {
	if p.Page <= 0 {
		return 0
	}
	return (p.Page - 1) * p.Limit()
}

// Limit returns the limit for database queries.
func (p Pagination) Limit() int {
	if p.PageSize <= 0 {
		return DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		return MaxPageSize
	}
	return p.PageSize
}

// NewPagination creates a new Pagination with defaults.
func NewPagination(page, pageSize int) Pagination {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return Pagination{Page: page, PageSize: pageSize}
}

// DefaultPagination returns default pagination.
func DefaultPagination() Pagination {
	return NewPagination(1, DefaultPageSize)
}
