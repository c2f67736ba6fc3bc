package prometheus

import (
	"time"

	"github.com/marmos91/botkit/pkg/metrics"
	"github.com/marmos91/botkit/pkg/scheduler"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// schedulerMetrics is the Prometheus implementation of scheduler.Metrics.
type schedulerMetrics struct {
	runsTotal     *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	misfiresTotal *prometheus.CounterVec
	nextRun       *prometheus.GaugeVec
}

// NewSchedulerMetrics creates a Prometheus-backed scheduler.Metrics.
//
// Returns nil if metrics are not enabled.
func NewSchedulerMetrics() scheduler.Metrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &schedulerMetrics{
		runsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "botkit_scheduler_job_runs_total",
				Help: "Scheduled job executions by job and status",
			},
			[]string{"job", "status"},
		),
		runDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "botkit_scheduler_job_duration_seconds",
				Help:    "Duration of scheduled job executions in seconds",
				Buckets: []float64{0.1, 1, 5, 30, 120, 600, 3600},
			},
			[]string{"job"},
		),
		misfiresTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "botkit_scheduler_misfires_total",
				Help: "Firings skipped because they were later than the grace period",
			},
			[]string{"job"},
		),
		nextRun: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "botkit_scheduler_next_run_timestamp_seconds",
				Help: "Unix time of the next scheduled firing",
			},
			[]string{"job"},
		),
	}
}

func (m *schedulerMetrics) ObserveJob(job string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(job, status(err)).Inc()
	m.runDuration.WithLabelValues(job).Observe(duration.Seconds())
}

func (m *schedulerMetrics) RecordMisfire(job string) {
	if m == nil {
		return
	}
	m.misfiresTotal.WithLabelValues(job).Inc()
}

func (m *schedulerMetrics) SetNextRun(job string, at time.Time) {
	if m == nil {
		return
	}
	m.nextRun.WithLabelValues(job).Set(float64(at.Unix()))
}
