// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Transfer metrics
	TransfersExecuted prometheus.Counter
	TransfersRejected *prometheus.CounterVec
	TokensBurned      prometheus.Counter
	FeesCollected     *prometheus.CounterVec
	TransferDuration  prometheus.Histogram

	// Policy metrics
	PolicyUpdates   *prometheus.CounterVec
	BlacklistedNow  prometheus.Gauge
	TradingEnabled  prometheus.Gauge
	TransfersPaused prometheus.Gauge

	// Journal metrics
	JournalWrites      prometheus.Counter
	JournalWriteErrors prometheus.Counter

	// Event metrics
	EventsEmitted   *prometheus.CounterVec
	WSSubscribers   prometheus.Gauge
	WSMessagesDropd prometheus.Counter

	// Audit metrics
	AuditRunsTotal    *prometheus.CounterVec
	LastSuccessfulRun prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "tokengate"
	}

	return &Metrics{
		// Transfer metrics
		TransfersExecuted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "executed_total",
			Help:      "Total number of transfers executed successfully",
		}),
		TransfersRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "rejected_total",
			Help:      "Total number of transfers rejected by reason",
		}, []string{"reason"}),
		TokensBurned: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "tokens_burned_total",
			Help:      "Total base units routed to the burn address",
		}),
		FeesCollected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "fees_collected_total",
			Help:      "Total base units collected per fee component",
		}, []string{"component"}),
		TransferDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "duration_seconds",
			Help:      "Duration of transfer execution",
			Buckets:   prometheus.DefBuckets,
		}),

		// Policy metrics
		PolicyUpdates: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "policy",
			Name:      "updates_total",
			Help:      "Total number of policy mutations by kind",
		}, []string{"kind"}),
		BlacklistedNow: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "policy",
			Name:      "blacklisted_addresses",
			Help:      "Current number of blacklisted addresses",
		}),
		TradingEnabled: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "policy",
			Name:      "trading_enabled",
			Help:      "1 when trading is enabled, 0 before launch",
		}),
		TransfersPaused: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "policy",
			Name:      "transfers_paused",
			Help:      "1 when the pause switch is engaged",
		}),

		// Journal metrics
		JournalWrites: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "journal",
			Name:      "writes_total",
			Help:      "Total number of records written to the journal",
		}),
		JournalWriteErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "journal",
			Name:      "write_errors_total",
			Help:      "Total number of failed journal writes",
		}),

		// Event metrics
		EventsEmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "emitted_total",
			Help:      "Total number of events emitted by kind",
		}, []string{"kind"}),
		WSSubscribers: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "ws_subscribers",
			Help:      "Current number of websocket subscribers",
		}),
		WSMessagesDropd: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "ws_messages_dropped_total",
			Help:      "Total number of messages dropped for slow subscribers",
		}),

		// Audit metrics
		AuditRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "runs_total",
			Help:      "Total number of conservation audit runs by outcome",
		}, []string{"outcome"}),
		LastSuccessfulRun: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of the last passing conservation audit",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}
