package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "replenish"

// Metrics groups the scheduler and API collectors.
type Metrics struct {
	// Job run metrics
	JobRunsTotal    *prometheus.CounterVec
	JobRunDuration  *prometheus.HistogramVec
	JobSkipsTotal   *prometheus.CounterVec
	RegionConfigErr *prometheus.CounterVec

	// HTTP request metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New registers every collector on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		JobRunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "job_runs_total",
				Help:      "Total number of finished job runs",
			},
			[]string{"job", "status"},
		),
		JobRunDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "job_run_duration_seconds",
				Help:      "Duration of job runs in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"job"},
		),
		JobSkipsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "job_skips_total",
				Help:      "Total number of job attempts skipped, by reason",
			},
			[]string{"job", "reason"},
		),
		RegionConfigErr: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "region_config_errors_total",
				Help:      "Total number of region invocations aborted by configuration errors",
			},
			[]string{"region"},
		),
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
	}
}

// NewNoop returns collectors bound to a private registry.
func NewNoop() *Metrics {
	return New(prometheus.NewRegistry())
}

// RecordJobRun counts a finished run and observes its duration.
func (m *Metrics) RecordJobRun(job, status string, d time.Duration) {
	m.JobRunsTotal.WithLabelValues(job, status).Inc()
	m.JobRunDuration.WithLabelValues(job).Observe(d.Seconds())
}

// RecordSkip counts a job attempt that did not run.
func (m *Metrics) RecordSkip(job, reason string) {
	m.JobSkipsTotal.WithLabelValues(job, reason).Inc()
}

// RecordConfigError counts a region aborted by bad configuration.
func (m *Metrics) RecordConfigError(region string) {
	m.RegionConfigErr.WithLabelValues(region).Inc()
}
