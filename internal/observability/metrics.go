// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the engine.
type Metrics struct {
	// Ingestion metrics
	TradesIngested   prometheus.Counter
	TradesDropped    *prometheus.CounterVec
	TradesLate       prometheus.Counter
	ReorderedTrades  prometheus.Counter
	IngestionLatency prometheus.Histogram

	// Evaluation metrics
	TradesEvaluated   prometheus.Counter
	FlagsRaised       *prometheus.CounterVec
	ClustersDetected  prometheus.Counter
	EvaluationErrors  prometheus.Counter
	EvaluationLatency prometheus.Histogram

	// Alert metrics
	AlertsEmitted       prometheus.Counter
	AlertsSuppressed    prometheus.Counter
	AlertsEscalated     prometheus.Counter
	AlertsFiltered      *prometheus.CounterVec
	AlertQueueDepth     prometheus.Gauge
	AlertQueueDropped   prometheus.Counter
	AlertDispatchErrors *prometheus.CounterVec

	// State metrics
	TrackedWallets  prometheus.Gauge
	TrackedMarkets  prometheus.Gauge
	ProfilesEvicted prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastTradeTimestamp prometheus.Gauge
	FeedReconnects     prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "polymarket_watch"
	}

	return &Metrics{
		// Ingestion metrics
		TradesIngested: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "trades_ingested_total",
			Help:      "Total number of trades accepted by the normalizer",
		}),
		TradesDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "trades_dropped_total",
			Help:      "Total number of malformed trades dropped by reason",
		}, []string{"reason"}),
		TradesLate: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "trades_late_total",
			Help:      "Total number of trades arriving after the reorder watermark",
		}),
		ReorderedTrades: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "trades_reordered_total",
			Help:      "Total number of trades released out of arrival order by the reorder buffer",
		}),
		IngestionLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "latency_seconds",
			Help:      "Time from feed receipt to pipeline handoff in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		// Evaluation metrics
		TradesEvaluated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "trades_evaluated_total",
			Help:      "Total number of trades run through the heuristic set",
		}),
		FlagsRaised: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "flags_raised_total",
			Help:      "Total number of heuristic flags raised by name",
		}, []string{"flag"}),
		ClustersDetected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "clusters_detected_total",
			Help:      "Total number of cluster candidates detected",
		}),
		EvaluationErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "evaluation_errors_total",
			Help:      "Total number of trades aborted mid-evaluation",
		}),
		EvaluationLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "evaluation_latency_seconds",
			Help:      "Per-trade evaluation latency in seconds",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
		}),

		// Alert metrics
		AlertsEmitted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "emitted_total",
			Help:      "Total number of alerts emitted",
		}),
		AlertsSuppressed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "suppressed_total",
			Help:      "Total number of alerts suppressed by cooldown",
		}),
		AlertsEscalated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "escalated_total",
			Help:      "Total number of alerts emitted through an active cooldown",
		}),
		AlertsFiltered: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "filtered_total",
			Help:      "Total number of qualifying alerts vetoed by the sanity filter",
		}, []string{"reason"}),
		AlertQueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "queue_depth",
			Help:      "Current number of alerts waiting for dispatch",
		}),
		AlertQueueDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "queue_dropped_total",
			Help:      "Total number of alerts dropped from a full dispatch queue",
		}),
		AlertDispatchErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "dispatch_errors_total",
			Help:      "Total number of sink dispatch failures",
		}, []string{"sink"}),

		// State metrics
		TrackedWallets: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "state",
			Name:      "tracked_wallets",
			Help:      "Current number of wallet profiles in memory",
		}),
		TrackedMarkets: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "state",
			Name:      "tracked_markets",
			Help:      "Current number of market contexts in memory",
		}),
		ProfilesEvicted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "state",
			Name:      "profiles_evicted_total",
			Help:      "Total number of idle wallet profiles evicted",
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastTradeTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_trade_timestamp",
			Help:      "Event timestamp of the most recently processed trade, unix ms",
		}),
		FeedReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "feed_reconnects_total",
			Help:      "Total number of trade feed reconnects",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordTradeIngested increments the ingested trade counter.
func RecordTradeIngested() {
	DefaultMetrics.TradesIngested.Inc()
}

// RecordTradeDropped records a malformed trade drop by reason.
func RecordTradeDropped(reason string) {
	DefaultMetrics.TradesDropped.WithLabelValues(reason).Inc()
}

// RecordFlagRaised increments the per-flag counter.
func RecordFlagRaised(flag string) {
	DefaultMetrics.FlagsRaised.WithLabelValues(flag).Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
