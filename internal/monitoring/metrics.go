package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Command metrics
	CommandsTotal   *prometheus.CounterVec
	CommandDuration *prometheus.HistogramVec

	// Session metrics
	SessionsActive  prometheus.Gauge
	SessionsEvicted prometheus.Counter
	JobsActive      prometheus.Gauge

	startTime time.Time
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	return newMetrics(prometheus.DefaultRegisterer)
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	m := &Metrics{
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bashserver_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bashserver_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		CommandsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bashserver_commands_total",
				Help: "Total number of executed commands by mode and outcome",
			},
			[]string{"mode", "status"},
		),
		CommandDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bashserver_command_duration_seconds",
				Help:    "Command execution duration in seconds",
				Buckets: []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60, 300},
			},
			[]string{"mode"},
		),

		SessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "bashserver_sessions_active",
				Help: "Number of live shell sessions",
			},
		),
		SessionsEvicted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "bashserver_sessions_evicted_total",
				Help: "Total number of sessions reclaimed by the idle reaper",
			},
		),
		JobsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "bashserver_background_jobs_active",
				Help: "Number of running background jobs",
			},
		),
	}

	// Sampled at scrape time so uptime stays live on a quiet server.
	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "bashserver_uptime_seconds",
			Help: "Server uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// RecordHTTPRequest records HTTP request metrics
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordCommand records one command execution outcome
func (m *Metrics) RecordCommand(mode, status string, duration time.Duration) {
	m.CommandsTotal.WithLabelValues(mode, status).Inc()
	m.CommandDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// SetActiveSessions updates the live session gauge
func (m *Metrics) SetActiveSessions(n int) {
	m.SessionsActive.Set(float64(n))
}

// AddActiveJobs adjusts the running background job gauge
func (m *Metrics) AddActiveJobs(delta int) {
	m.JobsActive.Add(float64(delta))
}

// RecordSessionEvicted counts one idle eviction
func (m *Metrics) RecordSessionEvicted() {
	m.SessionsEvicted.Inc()
}
