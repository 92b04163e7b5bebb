package eventhandler

import (
	"github.com/skillpath-hub/skillpath-progression/internal/domain/shared"
	"github.com/skillpath-hub/skillpath-progression/pkg/logger"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON DRIFT DETECTED
// Расхождение агрегата с журналом - всегда предупреждение в логах.
// Починку выполняет сама задача сверки; обработчик только делает
// проблему видимой для операторов.
// ═══════════════════════════════════════════════════════════════════════════

// OnDriftDetectedHandler логирует события дрейфа целостности.
type OnDriftDetectedHandler struct {
	log *logger.Logger
}

// NewOnDriftDetectedHandler создаёт новый обработчик.
func NewOnDriftDetectedHandler(log *logger.Logger) *OnDriftDetectedHandler {
	if log == nil {
		log = logger.Default()
	}
	return &OnDriftDetectedHandler{
		log: log.With(logger.Component("eventhandler.drift")),
	}
}

// Register подписывает обработчик на шину событий.
func (h *OnDriftDetectedHandler) Register(bus shared.EventSubscriber) error {
	return bus.Subscribe(shared.EventDriftDetected, h.handle)
}

func (h *OnDriftDetectedHandler) handle(event shared.Event) error {
	drift, ok := event.(shared.DriftDetectedEvent)
	if !ok {
		return nil
	}

	h.log.Warn("xp ledger drift detected",
		logger.UserID(drift.UserID),
		logger.Int("stored_total", drift.StoredTotal),
		logger.Int("ledger_total", drift.LedgerTotal))
	return nil
}
