package query

import (
	"context"
	"time"

	"github.com/skillpath-hub/skillpath-progression/internal/domain/progression"
	"github.com/skillpath-hub/skillpath-progression/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET XP HISTORY QUERY
// Постраничное чтение журнала XP-транзакций. Журнал append-only,
// поэтому страницы стабильны: новые записи добавляются только в конец.
// ══════════════════════════════════════════════════════════════════════════════

// GetXPHistoryQuery содержит параметры запроса журнала.
type GetXPHistoryQuery struct {
	// UserID - идентификатор пользователя.
	UserID string

	// Page - номер страницы (с 1).
	Page int

	// PageSize - размер страницы.
	PageSize int
}

// Validate проверяет корректность параметров.
func (q *GetXPHistoryQuery) Validate() error {
	if q.UserID == "" {
		return shared.NewDomainError("query", "GetXPHistory", shared.ErrEmptyValue, "user_id is required")
	}
	return nil
}

// TransactionDTO - одна запись журнала для отображения.
type TransactionDTO struct {
	// Amount - начисленный XP.
	Amount int `json:"amount"`

	// Source - источник: lesson, badge, bonus.
	Source string `json:"source"`

	// Description - описание начисления.
	Description string `json:"description"`

	// Timestamp - время начисления.
	Timestamp time.Time `json:"timestamp"`
}

// GetXPHistoryResult содержит результат запроса.
type GetXPHistoryResult struct {
	// Transactions - записи страницы (от старых к новым).
	Transactions []TransactionDTO `json:"transactions"`

	// Page - номер страницы.
	Page int `json:"page"`

	// PageSize - размер страницы.
	PageSize int `json:"page_size"`

	// TotalCount - всего записей в журнале.
	TotalCount int `json:"total_count"`

	// TotalXP - сумма журнала.
	TotalXP int `json:"total_xp"`
}

// GetXPHistoryHandler обрабатывает запросы журнала.
type GetXPHistoryHandler struct {
	ledgerRepo progression.LedgerRepository
}

// NewGetXPHistoryHandler создаёт новый обработчик.
func NewGetXPHistoryHandler(ledgerRepo progression.LedgerRepository) *GetXPHistoryHandler {
	return &GetXPHistoryHandler{ledgerRepo: ledgerRepo}
}

// Handle выполняет запрос.
func (h *GetXPHistoryHandler) Handle(ctx context.Context, query GetXPHistoryQuery) (*GetXPHistoryResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	userID, err := shared.NewUserID(query.UserID)
	if err != nil {
		return nil, shared.WrapError("query", "GetXPHistory", shared.ErrValidation, "invalid user id", err)
	}

	pagination := shared.NewPagination(query.Page, query.PageSize)
	txs, err := h.ledgerRepo.History(ctx, userID, pagination)
	if err != nil {
		return nil, err
	}
	count, err := h.ledgerRepo.CountForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	total, err := h.ledgerRepo.SumForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := &GetXPHistoryResult{
		Transactions: make([]TransactionDTO, 0, len(txs)),
		Page:         pagination.Page,
		PageSize:     pagination.PageSize,
		TotalCount:   count,
		TotalXP:      total,
	}
	for _, tx := range txs {
		result.Transactions = append(result.Transactions, TransactionDTO{
			Amount:      tx.Amount,
			Source:      string(tx.Source),
			Description: tx.Description,
			Timestamp:   tx.Timestamp,
		})
	}

	return result, nil
}
