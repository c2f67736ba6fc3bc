package prometheus

import (
	"time"

	"github.com/marmos91/botkit/pkg/dispatch"
	"github.com/marmos91/botkit/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// dispatchMetrics is the Prometheus implementation of dispatch.Metrics.
type dispatchMetrics struct {
	outcomesTotal *prometheus.CounterVec
	attemptsTotal *prometheus.CounterVec
	runDuration   prometheus.Histogram
}

// NewDispatchMetrics creates a Prometheus-backed dispatch.Metrics.
//
// Returns nil if metrics are not enabled.
func NewDispatchMetrics() dispatch.Metrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &dispatchMetrics{
		outcomesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "botkit_dispatch_outcomes_total",
				Help: "Per-recipient dispatch outcomes by result",
			},
			[]string{"result"},
		),
		attemptsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "botkit_dispatch_attempts_total",
				Help: "Delivery attempts by failure class",
			},
			[]string{"class"},
		),
		runDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "botkit_dispatch_run_duration_seconds",
				Help:    "Duration of dispatcher runs in seconds",
				Buckets: []float64{1, 5, 15, 60, 300, 900, 3600},
			},
		),
	}
}

func (m *dispatchMetrics) RecordOutcome(result string) {
	if m == nil {
		return
	}
	m.outcomesTotal.WithLabelValues(result).Inc()
}

func (m *dispatchMetrics) RecordAttempt(class string) {
	if m == nil {
		return
	}
	m.attemptsTotal.WithLabelValues(class).Inc()
}

func (m *dispatchMetrics) ObserveRun(duration time.Duration) {
	if m == nil {
		return
	}
	m.runDuration.Observe(duration.Seconds())
}
