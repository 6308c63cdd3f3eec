package exchange

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ============================================================
// Prometheus метрики адаптеров бирж
// ============================================================

// WSMessages - принятые WebSocket-кадры по биржам
var WSMessages = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "fundarb",
		Subsystem: "exchange",
		Name:      "ws_messages_total",
		Help:      "Total number of WebSocket frames received",
	},
	[]string{"venue"},
)

// WSReconnects - переподключения WebSocket по биржам
var WSReconnects = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "fundarb",
		Subsystem: "exchange",
		Name:      "ws_reconnects_total",
		Help:      "Total number of WebSocket reconnect attempts",
	},
	[]string{"venue"},
)

// ParseErrors - кадры, которые не удалось разобрать
var ParseErrors = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "fundarb",
		Subsystem: "exchange",
		Name:      "parse_errors_total",
		Help:      "Total number of frames that failed to decode",
	},
	[]string{"venue"},
)

// SnapshotsPublished - снапшоты, опубликованные в очередь сканера
var SnapshotsPublished = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "fundarb",
		Subsystem: "exchange",
		Name:      "snapshots_published_total",
		Help:      "Total number of complete snapshots published to the sink",
	},
	[]string{"venue"},
)
