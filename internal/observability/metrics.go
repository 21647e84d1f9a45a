// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ingestion metrics
	CandidatesSeen         *prometheus.CounterVec
	NotificationsProcessed prometheus.Counter
	WSReconnects           prometheus.Counter
	PollCycles             prometheus.Counter

	// Normalization metrics
	CandidatesNormalized prometheus.Counter
	CandidatesRejected   *prometheus.CounterVec

	// Scheduler metrics
	JobsAdmitted prometheus.Counter
	JobsSkipped  *prometheus.CounterVec
	QueueDepth   prometheus.Gauge

	// Enrichment metrics
	SourceQueries   *prometheus.CounterVec
	SourceLatency   *prometheus.HistogramVec
	RecordsProduced prometheus.Counter
	FreshnessScores prometheus.Histogram

	// Upstream metrics
	HostCooldowns prometheus.Counter
	CallRetries   *prometheus.CounterVec

	// Delivery metrics
	RecordsDelivered prometheus.Counter
	RecordsDropped   prometheus.Counter

	// Health metrics
	LastRecordTimestamp prometheus.Gauge
	UptimeSeconds       prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "asset_radar"
	}

	return &Metrics{
		// Ingestion metrics
		CandidatesSeen: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "candidates_seen_total",
			Help:      "Total number of raw candidate events by source",
		}, []string{"source"}),
		NotificationsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "notifications_processed_total",
			Help:      "Total number of log notifications processed",
		}),
		WSReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "ws_reconnects_total",
			Help:      "Total number of WebSocket reconnections",
		}),
		PollCycles: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "poll_cycles_total",
			Help:      "Total number of aggregator poll cycles",
		}),

		// Normalization metrics
		CandidatesNormalized: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "normalize",
			Name:      "candidates_normalized_total",
			Help:      "Total number of candidates that passed normalization",
		}),
		CandidatesRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "normalize",
			Name:      "candidates_rejected_total",
			Help:      "Total number of rejected candidates by reason",
		}, []string{"reason"}),

		// Scheduler metrics
		JobsAdmitted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "jobs_admitted_total",
			Help:      "Total number of enrichment jobs admitted",
		}),
		JobsSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "jobs_skipped_total",
			Help:      "Total number of skipped candidates by reason",
		}, []string{"reason"}),
		QueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "queue_depth",
			Help:      "Number of jobs waiting for a worker",
		}),

		// Enrichment metrics
		SourceQueries: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "enrich",
			Name:      "source_queries_total",
			Help:      "Total number of source queries by source and outcome",
		}, []string{"source", "outcome"}),
		SourceLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "enrich",
			Name:      "source_latency_seconds",
			Help:      "Source query latency in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"source"}),
		RecordsProduced: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "enrich",
			Name:      "records_produced_total",
			Help:      "Total number of enriched records produced",
		}),
		FreshnessScores: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "enrich",
			Name:      "freshness_score",
			Help:      "Distribution of freshness scores",
			Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		}),

		// Upstream metrics
		HostCooldowns: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "host_cooldowns_total",
			Help:      "Total number of host cooldown transitions",
		}),
		CallRetries: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "call_retries_total",
			Help:      "Total number of retried calls by host",
		}, []string{"host"}),

		// Delivery metrics
		RecordsDelivered: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sink",
			Name:      "records_delivered_total",
			Help:      "Total number of records handed to the output sink",
		}),
		RecordsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sink",
			Name:      "records_dropped_total",
			Help:      "Total number of records dropped by lagging consumers",
		}),

		// Health metrics
		LastRecordTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_record_timestamp",
			Help:      "Unix timestamp of the last enriched record",
		}),
		UptimeSeconds: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "uptime_seconds_total",
			Help:      "Total uptime in seconds",
		}),
	}
}

// TrackUptime increments the uptime counter every interval until ctx is
// cancelled. Run it once, from main, with a one second interval.
func (m *Metrics) TrackUptime(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.UptimeSeconds.Inc()
		}
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordCandidateSeen increments the candidate counter for a source.
func RecordCandidateSeen(source string) {
	DefaultMetrics.CandidatesSeen.WithLabelValues(source).Inc()
}

// RecordNormalized increments the normalized candidates counter.
func RecordNormalized() {
	DefaultMetrics.CandidatesNormalized.Inc()
}

// RecordRejected records a normalization rejection.
func RecordRejected(reason string) {
	DefaultMetrics.CandidatesRejected.WithLabelValues(reason).Inc()
}

// RecordJobAdmitted increments the admitted jobs counter.
func RecordJobAdmitted() {
	DefaultMetrics.JobsAdmitted.Inc()
}

// RecordJobSkipped records a skipped candidate.
func RecordJobSkipped(reason string) {
	DefaultMetrics.JobsSkipped.WithLabelValues(reason).Inc()
}

// RecordSourceQuery records one source query outcome and latency.
func RecordSourceQuery(source string, ok bool, seconds float64) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	DefaultMetrics.SourceQueries.WithLabelValues(source, outcome).Inc()
	DefaultMetrics.SourceLatency.WithLabelValues(source).Observe(seconds)
}

// RecordProduced records a produced enriched record and its score.
func RecordProduced(score int, nowUnix int64) {
	DefaultMetrics.RecordsProduced.Inc()
	DefaultMetrics.FreshnessScores.Observe(float64(score))
	DefaultMetrics.LastRecordTimestamp.Set(float64(nowUnix))
}

// RecordHostCooldown increments the cooldown transition counter.
func RecordHostCooldown() {
	DefaultMetrics.HostCooldowns.Inc()
}

// RecordRetry records a retried call against a host.
func RecordRetry(host string) {
	DefaultMetrics.CallRetries.WithLabelValues(host).Inc()
}

// RecordDelivered increments the delivered records counter.
func RecordDelivered() {
	DefaultMetrics.RecordsDelivered.Inc()
}
