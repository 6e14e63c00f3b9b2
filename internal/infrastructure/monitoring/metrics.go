package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Pipeline metrics
	RecordsGenerated prometheus.Counter
	RowsConverted    prometheus.Counter
	ArchivesBuilt    prometheus.Counter
	JobRuns          *prometheus.CounterVec
	StageDuration    *prometheus.HistogramVec

	// Resource metrics, set on each monitor sample
	HeapBytes     prometheus.Gauge
	ResidentBytes prometheus.Gauge
}

// NewMetrics creates a metrics collector registered on the given registerer.
// Tests pass a fresh prometheus.NewRegistry to avoid duplicate registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "exportd_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "exportd_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),

		RecordsGenerated: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "exportd_records_generated_total",
				Help: "Total number of synthetic records written to the line stream",
			},
		),
		RowsConverted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "exportd_rows_converted_total",
				Help: "Total number of rows committed to the spreadsheet",
			},
		),
		ArchivesBuilt: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "exportd_archives_built_total",
				Help: "Total number of archives completed",
			},
		),
		JobRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "exportd_job_runs_total",
				Help: "Total number of job runs by outcome",
			},
			[]string{"outcome"},
		),
		StageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "exportd_stage_duration_seconds",
				Help:    "Pipeline stage duration in seconds",
				Buckets: []float64{.1, .5, 1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"stage"},
		),

		HeapBytes: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "exportd_heap_bytes",
				Help: "Heap bytes in use at the last checkpoint",
			},
		),
		ResidentBytes: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "exportd_resident_bytes",
				Help: "Resident set size at the last checkpoint",
			},
		),
	}
}

// RecordHTTPRequest records an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordStage records a completed pipeline stage.
func (m *Metrics) RecordStage(stage string, duration time.Duration) {
	m.StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordJobRun records a job run outcome ("completed", "failed", "rejected").
func (m *Metrics) RecordJobRun(outcome string) {
	m.JobRuns.WithLabelValues(outcome).Inc()
}
