package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the artifact runtime.
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Sandbox execution metrics
	ExecutionsTotal   *prometheus.CounterVec
	ExecutionDuration *prometheus.HistogramVec
	SandboxTimeouts   prometheus.Counter
	SandboxStops      prometheus.Counter

	// SQL engine metrics
	SqlBatches       prometheus.Counter
	SqlStatements    *prometheus.CounterVec
	SqlSessionsOpen  prometheus.Gauge
	SqlResets        prometheus.Counter

	// Probe metrics
	ProbeRequests *prometheus.CounterVec
	ProbeDuration prometheus.Histogram

	// WebSocket metrics
	WSConnections prometheus.Gauge

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time
}

// NewMetrics creates a metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{
		startTime: time.Now(),

		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "artifactd_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "artifactd_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		ExecutionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "artifactd_executions_total",
				Help: "Sandbox executions by artifact type and terminal state",
			},
			[]string{"type", "state"},
		),
		ExecutionDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "artifactd_execution_duration_seconds",
				Help:    "Sandbox execution duration in seconds",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 15},
			},
			[]string{"type"},
		),
		SandboxTimeouts: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "artifactd_sandbox_timeouts_total",
				Help: "Executions killed by the deadline",
			},
		),
		SandboxStops: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "artifactd_sandbox_stops_total",
				Help: "Executions stopped by the user",
			},
		),

		SqlBatches: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "artifactd_sql_batches_total",
				Help: "SQL execute batches",
			},
		),
		SqlStatements: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "artifactd_sql_statements_total",
				Help: "SQL statements by outcome",
			},
			[]string{"status"},
		),
		SqlSessionsOpen: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "artifactd_sql_sessions_open",
				Help: "Live database sessions",
			},
		),
		SqlResets: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "artifactd_sql_resets_total",
				Help: "Database session resets",
			},
		),

		ProbeRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "artifactd_probe_requests_total",
				Help: "API probe requests by method and outcome",
			},
			[]string{"method", "outcome"},
		),
		ProbeDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "artifactd_probe_duration_seconds",
				Help:    "API probe wall-clock duration in seconds",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
		),

		WSConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "artifactd_ws_connections",
				Help: "Active WebSocket connections",
			},
		),

		Uptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "artifactd_uptime_seconds",
				Help: "Service uptime in seconds",
			},
		),
	}
}

// UpdateUptime refreshes the uptime gauge.
func (m *Metrics) UpdateUptime() {
	m.Uptime.Set(time.Since(m.startTime).Seconds())
}

// RecordExecution records one finished sandbox run.
func (m *Metrics) RecordExecution(artifactType, state string, duration time.Duration) {
	m.ExecutionsTotal.WithLabelValues(artifactType, state).Inc()
	m.ExecutionDuration.WithLabelValues(artifactType).Observe(duration.Seconds())
	switch state {
	case "timed_out":
		m.SandboxTimeouts.Inc()
	case "stopped":
		m.SandboxStops.Inc()
	}
}

// RecordSqlBatch records one execute batch with per-statement outcomes.
func (m *Metrics) RecordSqlBatch(succeeded, failed int) {
	m.SqlBatches.Inc()
	m.SqlStatements.WithLabelValues("success").Add(float64(succeeded))
	m.SqlStatements.WithLabelValues("error").Add(float64(failed))
}

// RecordProbe records one probe request.
func (m *Metrics) RecordProbe(method string, failed bool, duration time.Duration) {
	outcome := "success"
	if failed {
		outcome = "error"
	}
	m.ProbeRequests.WithLabelValues(method, outcome).Inc()
	m.ProbeDuration.Observe(duration.Seconds())
}
