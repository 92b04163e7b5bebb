package command

import (
	"context"

	"github.com/skillpath-hub/skillpath-progression/internal/domain/progression"
	"github.com/skillpath-hub/skillpath-progression/internal/domain/shared"
	"github.com/skillpath-hub/skillpath-progression/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CLAIM BADGE COMMAND
// Пользователь подтверждает (забирает) полученный значок в UI.
// Идемпотентно: повторное подтверждение того же значка - no-op.
// ══════════════════════════════════════════════════════════════════════════════

// ClaimBadgeCommand содержит параметры подтверждения значка.
type ClaimBadgeCommand struct {
	// UserID - идентификатор пользователя.
	UserID string

	// BadgeID - идентификатор значка.
	BadgeID string
}

// Validate проверяет корректность команды.
func (c *ClaimBadgeCommand) Validate() error {
	if c.UserID == "" {
		return shared.NewDomainError("command", "ClaimBadge", shared.ErrEmptyValue, "user_id is required")
	}
	if c.BadgeID == "" {
		return shared.NewDomainError("command", "ClaimBadge", shared.ErrEmptyValue, "badge_id is required")
	}
	return nil
}

// ClaimBadgeResult содержит итог подтверждения.
type ClaimBadgeResult struct {
	// Claimed - был ли значок подтверждён (false для неизвестного
	// или ещё не полученного значка).
	Claimed bool `json:"claimed"`
}

// ClaimBadgeHandler обрабатывает подтверждение значков.
type ClaimBadgeHandler struct {
	stateRepo      progression.Repository
	engine         *progression.Engine
	eventPublisher shared.EventPublisher
	retrier        *retry.Retrier
}

// NewClaimBadgeHandler создаёт новый обработчик.
func NewClaimBadgeHandler(
	stateRepo progression.Repository,
	engine *progression.Engine,
	eventPublisher shared.EventPublisher,
) *ClaimBadgeHandler {
	return &ClaimBadgeHandler{
		stateRepo:      stateRepo,
		engine:         engine,
		eventPublisher: eventPublisher,
		retrier:        optimisticLockRetrier(),
	}
}

// Handle выполняет команду.
func (h *ClaimBadgeHandler) Handle(ctx context.Context, cmd ClaimBadgeCommand) (*ClaimBadgeResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	userID, err := shared.NewUserID(cmd.UserID)
	if err != nil {
		return nil, shared.WrapError("command", "ClaimBadge", shared.ErrValidation, "invalid user id", err)
	}
	badgeID, err := shared.NewBadgeID(cmd.BadgeID)
	if err != nil {
		return nil, shared.WrapError("command", "ClaimBadge", shared.ErrValidation, "invalid badge id", err)
	}

	result := &ClaimBadgeResult{}
	err = h.retrier.Do(ctx, func(ctx context.Context) error {
		state, loadErr := h.stateRepo.Get(ctx, userID)
		if loadErr != nil {
			return retry.Permanent(loadErr)
		}

		if !h.engine.ClaimBadge(state, badgeID) {
			result.Claimed = false
			return nil
		}

		state.Version++
		if saveErr := h.stateRepo.Save(ctx, state); saveErr != nil {
			return saveErr
		}

		result.Claimed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Claimed && h.eventPublisher != nil {
		_ = h.eventPublisher.Publish(shared.NewBadgeClaimedEvent(userID.String(), badgeID.String()))
	}
	return result, nil
}
