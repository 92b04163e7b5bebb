// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"errors"
	"time"

	"github.com/skillpath-hub/skillpath-progression/internal/domain/progression"
	"github.com/skillpath-hub/skillpath-progression/internal/domain/shared"
	"github.com/skillpath-hub/skillpath-progression/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// APPLY COMPLETION COMMAND
// Единственная точка входа для событий завершения уроков от учебной
// платформы. Загружает агрегат прогрессии, прогоняет его через движок
// и сохраняет с оптимистичной блокировкой. Конфликт версий приводит
// к повторной попытке с перезагрузкой агрегата.
// ══════════════════════════════════════════════════════════════════════════════

// ApplyCompletionCommand содержит данные события завершения урока.
type ApplyCompletionCommand struct {
	// UserID - идентификатор пользователя (UUID).
	UserID string

	// LessonID - идентификатор завершённого урока.
	LessonID string

	// Category - категория урока (пустая = берётся из LessonID).
	Category string

	// Difficulty - сложность урока: Beginner, Intermediate, Advanced.
	Difficulty string

	// CorrectAnswers - правильных ответов (nil, если баллов нет).
	CorrectAnswers *int

	// TotalQuestions - всего вопросов (nil, если баллов нет).
	TotalQuestions *int

	// IsFirstCompletion - первое ли это прохождение урока.
	IsFirstCompletion bool

	// Timestamp - когда урок завершён (нулевое = сейчас).
	Timestamp time.Time

	// CorrelationID - для трассировки через шину событий.
	CorrelationID string
}

// Validate проверяет корректность команды.
func (c *ApplyCompletionCommand) Validate() error {
	if c.UserID == "" {
		return shared.NewDomainError("command", "ApplyCompletion", shared.ErrEmptyValue, "user_id is required")
	}
	if c.LessonID == "" {
		return shared.NewDomainError("command", "ApplyCompletion", shared.ErrEmptyValue, "lesson_id is required")
	}
	if c.Timestamp.IsZero() {
		c.Timestamp = time.Now().UTC()
	}
	return nil
}

// ApplyCompletionResult содержит итог применения события.
type ApplyCompletionResult struct {
	// XPEarned - XP, начисленный за урок (без наград за значки).
	XPEarned int `json:"xp_earned"`

	// TotalXP - суммарный XP после применения.
	TotalXP int `json:"total_xp"`

	// Level - поля уровня после применения.
	Level progression.LevelInfo `json:"level"`

	// LeveledUp - поднялся ли уровень.
	LeveledUp bool `json:"leveled_up"`

	// Streak - что произошло с серией.
	Streak progression.StreakChange `json:"streak"`

	// NewBadges - значки, полученные в этом событии.
	NewBadges []progression.NewlyEarnedBadge `json:"new_badges,omitempty"`

	// RecordedAt - время применения.
	RecordedAt time.Time `json:"recorded_at"`
}

// ApplyCompletionHandler обрабатывает команды завершения уроков.
type ApplyCompletionHandler struct {
	stateRepo      progression.Repository
	ledgerRepo     progression.LedgerRepository
	engine         *progression.Engine
	eventPublisher shared.EventPublisher
	retrier        *retry.Retrier
}

// NewApplyCompletionHandler создаёт новый обработчик.
func NewApplyCompletionHandler(
	stateRepo progression.Repository,
	ledgerRepo progression.LedgerRepository,
	engine *progression.Engine,
	eventPublisher shared.EventPublisher,
) *ApplyCompletionHandler {
	return &ApplyCompletionHandler{
		stateRepo:      stateRepo,
		ledgerRepo:     ledgerRepo,
		engine:         engine,
		eventPublisher: eventPublisher,
		retrier:        optimisticLockRetrier(),
	}
}

// Handle выполняет команду.
func (h *ApplyCompletionHandler) Handle(ctx context.Context, cmd ApplyCompletionCommand) (*ApplyCompletionResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	userID, err := shared.NewUserID(cmd.UserID)
	if err != nil {
		return nil, shared.WrapError("command", "ApplyCompletion", shared.ErrValidation, "invalid user id", err)
	}
	lessonID, err := shared.NewLessonID(cmd.LessonID)
	if err != nil {
		return nil, shared.WrapError("command", "ApplyCompletion", shared.ErrValidation, "invalid lesson id", err)
	}

	category := cmd.Category
	if category == "" {
		category = lessonID.Category()
	}

	ev := progression.CompletionEvent{
		UserID:            userID,
		LessonID:          lessonID,
		Category:          category,
		Difficulty:        progression.Difficulty(cmd.Difficulty),
		CorrectAnswers:    cmd.CorrectAnswers,
		TotalQuestions:    cmd.TotalQuestions,
		IsFirstCompletion: cmd.IsFirstCompletion,
		Timestamp:         cmd.Timestamp,
	}

	var (
		result *ApplyCompletionResult
		events []shared.Event
	)

	// Весь цикл загрузка-применение-сохранение повторяется при конфликте
	// версий: параллельное событие того же пользователя могло успеть первым.
	err = h.retrier.Do(ctx, func(ctx context.Context) error {
		state, created, loadErr := h.loadOrCreate(ctx, userID)
		if loadErr != nil {
			return loadErr
		}

		applied, applyErr := h.engine.ApplyCompletion(state, ev)
		if applyErr != nil {
			return retry.Permanent(applyErr)
		}

		if saveErr := h.persist(ctx, state, created); saveErr != nil {
			return saveErr
		}

		result = &ApplyCompletionResult{
			XPEarned:   applied.XPEarned,
			TotalXP:    state.TotalXP,
			Level:      applied.Level,
			LeveledUp:  applied.LeveledUp,
			Streak:     applied.Streak,
			NewBadges:  applied.NewBadges,
			RecordedAt: cmd.Timestamp,
		}
		events = applied.Events
		return nil
	})
	if err != nil {
		return nil, err
	}

	h.publish(events)
	return result, nil
}

// loadOrCreate возвращает агрегат пользователя, создавая пустой
// для первого события.
func (h *ApplyCompletionHandler) loadOrCreate(ctx context.Context, userID shared.UserID) (*progression.State, bool, error) {
	state, err := h.stateRepo.Get(ctx, userID)
	if err == nil {
		return state, false, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, false, err
	}

	state, err = progression.NewState(userID, h.engine.Table())
	if err != nil {
		return nil, false, retry.Permanent(err)
	}
	return state, true, nil
}

// persist сохраняет агрегат и добавляет новые транзакции в журнал.
func (h *ApplyCompletionHandler) persist(ctx context.Context, state *progression.State, created bool) error {
	if created {
		if err := h.stateRepo.Create(ctx, state); err != nil {
			// Параллельное первое событие успело создать агрегат:
			// перезагружаем и применяем заново.
			if errors.Is(err, shared.ErrAlreadyExists) {
				return shared.ErrStaleState
			}
			return err
		}
	} else if err := h.stateRepo.Save(ctx, state); err != nil {
		return err
	}

	return h.ledgerRepo.Append(ctx, state.UserID, state.TakePendingTransactions())
}

// publish отправляет доменные события в шину. Best-effort: команда
// уже сохранена, сбой публикации её не откатывает.
func (h *ApplyCompletionHandler) publish(events []shared.Event) {
	if h.eventPublisher == nil {
		return
	}
	for _, event := range events {
		_ = h.eventPublisher.Publish(event)
	}
}

// optimisticLockRetrier настраивает повторы для конфликтов версий агрегата.
func optimisticLockRetrier() *retry.Retrier {
	return retry.ConflictRetrier(func(err error) bool {
		return errors.Is(err, shared.ErrStaleState)
	})
}
