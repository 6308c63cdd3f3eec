package handlers

import (
	"net/http"
	"time"

	"fundarb/internal/scanner"
)

// StatusHandler - состояние сканера для health-панелей
type StatusHandler struct {
	table     *scanner.OpportunityTable
	queue     *scanner.SnapshotQueue
	venues    []string
	startedAt time.Time
}

// NewStatusHandler создает новый handler
func NewStatusHandler(table *scanner.OpportunityTable, queue *scanner.SnapshotQueue, venues []string, startedAt time.Time) *StatusHandler {
	return &StatusHandler{
		table:     table,
		queue:     queue,
		venues:    venues,
		startedAt: startedAt,
	}
}

// statusResponse - формат ответа /status
type statusResponse struct {
	Status        string   `json:"status"`
	Venues        []string `json:"venues"`
	Opportunities int      `json:"opportunities"`
	QueueDepth    int      `json:"queue_depth"`
	UptimeSeconds float64  `json:"uptime_seconds"`
}

// GetStatus возвращает сводку состояния сканера
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		Status:        "running",
		Venues:        h.venues,
		Opportunities: h.table.Len(),
		QueueDepth:    h.queue.Len(),
		UptimeSeconds: time.Since(h.startedAt).Seconds(),
	})
}
