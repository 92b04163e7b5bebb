package command

import (
	"context"
	"time"

	"github.com/skillpath-hub/skillpath-progression/internal/domain/progression"
	"github.com/skillpath-hub/skillpath-progression/internal/domain/shared"
	"github.com/skillpath-hub/skillpath-progression/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// GRANT BONUS COMMAND
// Разовое начисление бонусного XP вне уроков: промо-акции, компенсации,
// ручные корректировки поддержки. Журналируется как source=bonus.
// ══════════════════════════════════════════════════════════════════════════════

// GrantBonusCommand содержит параметры начисления бонуса.
type GrantBonusCommand struct {
	// UserID - идентификатор пользователя.
	UserID string

	// Amount - количество XP (строго положительное).
	Amount int

	// Reason - человекочитаемая причина начисления (попадает в журнал).
	Reason string

	// Timestamp - время начисления (нулевое = сейчас).
	Timestamp time.Time
}

// Validate проверяет корректность команды.
func (c *GrantBonusCommand) Validate() error {
	if c.UserID == "" {
		return shared.NewDomainError("command", "GrantBonus", shared.ErrEmptyValue, "user_id is required")
	}
	if c.Amount <= 0 {
		return shared.ErrNegativeXPAmount
	}
	if c.Reason == "" {
		return shared.NewDomainError("command", "GrantBonus", shared.ErrEmptyValue, "reason is required")
	}
	if c.Timestamp.IsZero() {
		c.Timestamp = time.Now().UTC()
	}
	return nil
}

// GrantBonusResult содержит итог начисления.
type GrantBonusResult struct {
	// TotalXP - суммарный XP после начисления.
	TotalXP int `json:"total_xp"`

	// Level - поля уровня после начисления.
	Level progression.LevelInfo `json:"level"`

	// LeveledUp - поднялся ли уровень.
	LeveledUp bool `json:"leveled_up"`

	// NewBadges - значки, выполнившиеся от бонуса (пороговые по XP).
	NewBadges []progression.NewlyEarnedBadge `json:"new_badges,omitempty"`
}

// GrantBonusHandler обрабатывает начисление бонусов.
type GrantBonusHandler struct {
	stateRepo      progression.Repository
	ledgerRepo     progression.LedgerRepository
	engine         *progression.Engine
	eventPublisher shared.EventPublisher
	retrier        *retry.Retrier
}

// NewGrantBonusHandler создаёт новый обработчик.
func NewGrantBonusHandler(
	stateRepo progression.Repository,
	ledgerRepo progression.LedgerRepository,
	engine *progression.Engine,
	eventPublisher shared.EventPublisher,
) *GrantBonusHandler {
	return &GrantBonusHandler{
		stateRepo:      stateRepo,
		ledgerRepo:     ledgerRepo,
		engine:         engine,
		eventPublisher: eventPublisher,
		retrier:        optimisticLockRetrier(),
	}
}

// Handle выполняет команду.
func (h *GrantBonusHandler) Handle(ctx context.Context, cmd GrantBonusCommand) (*GrantBonusResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	userID, err := shared.NewUserID(cmd.UserID)
	if err != nil {
		return nil, shared.WrapError("command", "GrantBonus", shared.ErrValidation, "invalid user id", err)
	}

	var (
		result *GrantBonusResult
		events []shared.Event
	)

	err = h.retrier.Do(ctx, func(ctx context.Context) error {
		state, loadErr := h.stateRepo.Get(ctx, userID)
		if loadErr != nil {
			return retry.Permanent(loadErr)
		}

		applied, applyErr := h.engine.GrantBonus(state, cmd.Amount, cmd.Reason, cmd.Timestamp)
		if applyErr != nil {
			return retry.Permanent(applyErr)
		}

		if saveErr := h.stateRepo.Save(ctx, state); saveErr != nil {
			return saveErr
		}
		if appendErr := h.ledgerRepo.Append(ctx, userID, state.TakePendingTransactions()); appendErr != nil {
			return appendErr
		}

		result = &GrantBonusResult{
			TotalXP:   state.TotalXP,
			Level:     applied.Level,
			LeveledUp: applied.LeveledUp,
			NewBadges: applied.NewBadges,
		}
		events = applied.Events
		return nil
	})
	if err != nil {
		return nil, err
	}

	if h.eventPublisher != nil {
		for _, event := range events {
			_ = h.eventPublisher.Publish(event)
		}
	}
	return result, nil
}
