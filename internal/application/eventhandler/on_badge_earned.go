// Package eventhandler содержит обработчики доменных событий.
// Обработчики - "реактивная" часть системы: подписываются на шину
// и запускают побочные эффекты (уведомления, алерты), не влияя
// на сам конвейер прогрессии.
package eventhandler

import (
	"context"
	"fmt"

	"github.com/skillpath-hub/skillpath-progression/internal/domain/shared"
	"github.com/skillpath-hub/skillpath-progression/pkg/logger"
)

// Notifier доставляет сообщения пользователю. Реализация живёт
// в infrastructure; nil-notifier выключает доставку.
type Notifier interface {
	Notify(ctx context.Context, userID shared.UserID, message string) error
}

// ═══════════════════════════════════════════════════════════════════════════
// ON BADGE EARNED / LEVEL UP
// Поздравления с достижениями. Каждое уведомление не более одного
// раза: движок гарантирует, что значок выдаётся единожды, поэтому
// и событие badge.earned для пары (пользователь, значок) единственное.
// ═══════════════════════════════════════════════════════════════════════════

// OnAchievementHandler уведомляет о значках и новых уровнях.
type OnAchievementHandler struct {
	notifier Notifier
	log      *logger.Logger
}

// NewOnAchievementHandler создаёт новый обработчик.
func NewOnAchievementHandler(notifier Notifier, log *logger.Logger) *OnAchievementHandler {
	if log == nil {
		log = logger.Default()
	}
	return &OnAchievementHandler{
		notifier: notifier,
		log:      log.With(logger.Component("eventhandler.achievement")),
	}
}

// Register подписывает обработчик на шину событий.
func (h *OnAchievementHandler) Register(bus shared.EventSubscriber) error {
	if err := bus.Subscribe(shared.EventBadgeEarned, h.handleBadgeEarned); err != nil {
		return err
	}
	return bus.Subscribe(shared.EventLevelUp, h.handleLevelUp)
}

func (h *OnAchievementHandler) handleBadgeEarned(event shared.Event) error {
	earned, ok := event.(shared.BadgeEarnedEvent)
	if !ok {
		return nil
	}

	h.log.Info("badge earned",
		logger.UserID(earned.UserID),
		logger.BadgeID(earned.BadgeID),
		logger.XPAmount(earned.XPReward))

	return h.notify(earned.UserID,
		fmt.Sprintf("Новый значок: %s (+%d XP)", earned.BadgeName, earned.XPReward))
}

func (h *OnAchievementHandler) handleLevelUp(event shared.Event) error {
	levelUp, ok := event.(shared.LevelUpEvent)
	if !ok {
		return nil
	}

	h.log.Info("level up",
		logger.UserID(levelUp.UserID),
		logger.LevelNumber(levelUp.NewLevel))

	return h.notify(levelUp.UserID,
		fmt.Sprintf("Уровень %d: %s!", levelUp.NewLevel, levelUp.LevelName))
}

func (h *OnAchievementHandler) notify(userID, message string) error {
	if h.notifier == nil {
		return nil
	}
	id, err := shared.NewUserID(userID)
	if err != nil {
		return nil
	}
	return h.notifier.Notify(context.Background(), id, message)
}
