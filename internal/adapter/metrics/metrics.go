package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the telemetry pipeline.
type Metrics struct {
	EventsRecorded  *prometheus.CounterVec
	ChunksDelivered *prometheus.CounterVec
	ChunksFailed    *prometheus.CounterVec
	FlushDuration   prometheus.Histogram
	TaskRuns        *prometheus.CounterVec
	TaskFailures    *prometheus.CounterVec
	TaskDuration    *prometheus.HistogramVec
	Reports         *prometheus.CounterVec
	ReportConflicts prometheus.Counter
	StatPushes      *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
}

// NewMetrics initializes the metrics and registers them with reg.
// Pass prometheus.DefaultRegisterer to expose them on /metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		EventsRecorded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hookwatch",
			Subsystem: "logs",
			Name:      "events_recorded_total",
			Help:      "Total number of log events buffered, by severity.",
		}, []string{"severity"}),
		ChunksDelivered: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hookwatch",
			Subsystem: "logs",
			Name:      "chunks_delivered_total",
			Help:      "Total number of log chunks delivered, by destination.",
		}, []string{"destination"}),
		ChunksFailed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hookwatch",
			Subsystem: "logs",
			Name:      "chunks_failed_total",
			Help:      "Total number of log chunks dropped after a delivery error, by destination.",
		}, []string{"destination"}),
		FlushDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hookwatch",
			Subsystem: "logs",
			Name:      "flush_duration_seconds",
			Help:      "Time spent draining and delivering one flush.",
			Buckets:   prometheus.DefBuckets,
		}),
		TaskRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hookwatch",
			Subsystem: "scheduler",
			Name:      "task_runs_total",
			Help:      "Total number of scheduled task invocations.",
		}, []string{"task"}),
		TaskFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hookwatch",
			Subsystem: "scheduler",
			Name:      "task_failures_total",
			Help:      "Total number of scheduled task invocations that failed or panicked.",
		}, []string{"task"}),
		TaskDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "hookwatch",
			Subsystem: "scheduler",
			Name:      "task_duration_seconds",
			Help:      "Time spent in one scheduled task invocation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"task"}),
		Reports: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hookwatch",
			Subsystem: "errors",
			Name:      "reports_total",
			Help:      "Total number of failure reports by outcome.",
		}, []string{"outcome"}), // outcome: created, updated, error
		ReportConflicts: f.NewCounter(prometheus.CounterOpts{
			Namespace: "hookwatch",
			Subsystem: "errors",
			Name:      "insert_conflicts_total",
			Help:      "Total number of report messages discarded after losing an insert race.",
		}),
		StatPushes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hookwatch",
			Subsystem: "stats",
			Name:      "pushes_total",
			Help:      "Total number of stat pushes by directory and status.",
		}, []string{"directory", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "hookwatch",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency of HTTP requests by method and status code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "code"}),
	}
}
