package scanner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ============================================================
// Prometheus метрики ядра сканера
// ============================================================
//
// Использование:
// - Grafana дашборды для визуализации потока снапшотов и скоринга
// - Alertmanager для уведомлений (рост invalid-снапшотов, переполнения)
// - Экспорт через /metrics на API-роутере

// ============ Поток снапшотов ============

// SnapshotsIngested - принятые движком снапшоты по биржам
var SnapshotsIngested = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "fundarb",
		Subsystem: "scanner",
		Name:      "snapshots_ingested_total",
		Help:      "Total number of snapshots accepted by the engine",
	},
	[]string{"venue"},
)

// SnapshotsInvalid - снапшоты, отброшенные предикатом валидности
var SnapshotsInvalid = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "fundarb",
		Subsystem: "scanner",
		Name:      "snapshots_invalid_total",
		Help:      "Total number of snapshots dropped by the validity predicate",
	},
	[]string{"venue"},
)

// SnapshotsConflated - снапшоты, замещённые в очереди более новыми
// для того же ключа (symbol, venue)
var SnapshotsConflated = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "fundarb",
		Subsystem: "scanner",
		Name:      "snapshots_conflated_total",
		Help:      "Queued snapshots superseded by newer ones for the same key",
	},
)

// ============ Скоринг ============

// ScoringPasses - завершённые скоринг-проходы по результату
var ScoringPasses = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "fundarb",
		Subsystem: "scanner",
		Name:      "scoring_passes_total",
		Help:      "Total number of completed scoring passes",
	},
	[]string{"result"}, // hit, empty, error
)

// ScoringDuration - длительность одного скоринг-прохода
var ScoringDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "fundarb",
		Subsystem: "scanner",
		Name:      "scoring_duration_ms",
		Help:      "Time to score one symbol in milliseconds",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	},
)

// ScoreJobsDropped - скоринг-задания, отброшенные из-за занятого воркера
var ScoreJobsDropped = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "fundarb",
		Subsystem: "scanner",
		Name:      "score_jobs_dropped_total",
		Help:      "Scoring jobs skipped because the symbol shard was saturated",
	},
)

// ============ Таблица возможностей и сигналы ============

// ActiveOpportunities - текущий размер таблицы возможностей
var ActiveOpportunities = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "fundarb",
		Subsystem: "scanner",
		Name:      "active_opportunities",
		Help:      "Current number of live opportunities in the table",
	},
)

// OpportunitiesExpired - возможности, удалённые глобальной развёрткой
// по метке фандинга
var OpportunitiesExpired = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "fundarb",
		Subsystem: "scanner",
		Name:      "opportunities_expired_total",
		Help:      "Opportunities removed because their funding boundary passed",
	},
)

// SignalsEmitted - отправленные торговые сигналы
var SignalsEmitted = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "fundarb",
		Subsystem: "scanner",
		Name:      "signals_emitted_total",
		Help:      "Total number of emitted trade signals",
	},
)

// SignalsSuppressed - подавленные сигналы по причинам
var SignalsSuppressed = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "fundarb",
		Subsystem: "scanner",
		Name:      "signals_suppressed_total",
		Help:      "Signals not emitted, by reason",
	},
	[]string{"reason"}, // cooldown, no_queue, buffer_full
)

// RecordBufferOverflow фиксирует переполнение буфера сигналов
func RecordBufferOverflow() {
	SignalsSuppressed.WithLabelValues("buffer_full").Inc()
}
