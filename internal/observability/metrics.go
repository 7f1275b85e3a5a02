// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the aggregation engine.
// A nil *Metrics is valid and records nothing, so library code can take
// metrics optionally.
type Metrics struct {
	// Pipeline metrics
	EventsCommitted  *prometheus.CounterVec // by event kind
	EventsSkipped    *prometheus.CounterVec // by missing entity kind
	EventErrors      *prometheus.CounterVec // by event kind
	CommitDuration   *prometheus.HistogramVec
	NegativeTVLAlarm *prometheus.CounterVec // by aggregation level

	// Oracle metrics
	OracleRetries prometheus.Counter

	// Ingestion metrics
	EventsReceived  prometheus.Counter
	SourceReconnect prometheus.Counter

	// Archive metrics
	SnapshotsArchived prometheus.Counter
	ArchiveErrors     prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "dex_hook_stats"
	}

	return &Metrics{
		EventsCommitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "events_committed_total",
			Help:      "Total number of events fully processed and committed",
		}, []string{"kind"}),
		EventsSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "events_skipped_total",
			Help:      "Total number of events skipped due to a missing entity",
		}, []string{"entity"}),
		EventErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "event_errors_total",
			Help:      "Total number of event processing errors",
		}, []string{"kind"}),
		CommitDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "commit_duration_seconds",
			Help:      "Entity store commit latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		NegativeTVLAlarm: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "negative_tvl_total",
			Help:      "Data-integrity alarms for TVL values that went negative",
		}, []string{"level"}),
		OracleRetries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "retries_total",
			Help:      "Total number of oracle retries after infrastructure failures",
		}),
		EventsReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "events_received_total",
			Help:      "Total number of events received from the source",
		}),
		SourceReconnect: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "source_reconnects_total",
			Help:      "Total number of event source reconnects",
		}),
		SnapshotsArchived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "archive",
			Name:      "snapshots_archived_total",
			Help:      "Total number of snapshot rows sent to the analytics archive",
		}),
		ArchiveErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "archive",
			Name:      "errors_total",
			Help:      "Total number of non-fatal analytics archive failures",
		}),
	}
}

// RecordCommitted counts one committed event. Nil-safe.
func (m *Metrics) RecordCommitted(kind string) {
	if m == nil {
		return
	}
	m.EventsCommitted.WithLabelValues(kind).Inc()
}

// RecordSkipped counts one skipped event by missing entity kind. Nil-safe.
func (m *Metrics) RecordSkipped(entity string) {
	if m == nil {
		return
	}
	m.EventsSkipped.WithLabelValues(entity).Inc()
}

// RecordError counts one processing error. Nil-safe.
func (m *Metrics) RecordError(kind string) {
	if m == nil {
		return
	}
	m.EventErrors.WithLabelValues(kind).Inc()
}

// RecordNegativeTVL counts one data-integrity alarm. Nil-safe.
func (m *Metrics) RecordNegativeTVL(level string) {
	if m == nil {
		return
	}
	m.NegativeTVLAlarm.WithLabelValues(level).Inc()
}

// ObserveCommit records a commit latency sample. Nil-safe.
func (m *Metrics) ObserveCommit(kind string, seconds float64) {
	if m == nil {
		return
	}
	m.CommitDuration.WithLabelValues(kind).Observe(seconds)
}

// Handler returns an HTTP handler exposing the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}
