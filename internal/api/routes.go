package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"fundarb/internal/api/handlers"
	"fundarb/internal/api/middleware"
	"fundarb/internal/scanner"
)

// Dependencies содержит зависимости API handlers
type Dependencies struct {
	Table     *scanner.OpportunityTable
	Queue     *scanner.SnapshotQueue
	Venues    []string
	StartedAt time.Time
	Log       *zap.Logger
}

// SetupRoutes настраивает HTTP маршруты приложения.
//
// Структура маршрутов:
//
// /api/v1/
//
//	├── GET /opportunities           - все живые возможности (?limit, ?min_score)
//	├── GET /opportunities/{symbol}  - возможности одного символа
//	└── GET /status                  - сводка состояния сканера
//
// /health  - liveness probe
// /metrics - Prometheus экспорт
//
// Middleware применяется в порядке: Recovery, Logging, CORS.
func SetupRoutes(deps *Dependencies) *mux.Router {
	router := mux.NewRouter()

	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}

	router.Use(middleware.Recovery(log))
	router.Use(middleware.Logging(log))
	router.Use(middleware.CORS)

	opportunityHandler := handlers.NewOpportunityHandler(deps.Table)
	statusHandler := handlers.NewStatusHandler(deps.Table, deps.Queue, deps.Venues, deps.StartedAt)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/opportunities", opportunityHandler.GetOpportunities).Methods("GET")
	api.HandleFunc("/opportunities/{symbol}", opportunityHandler.GetOpportunitiesBySymbol).Methods("GET")
	api.HandleFunc("/status", statusHandler.GetStatus).Methods("GET")

	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	return router
}
