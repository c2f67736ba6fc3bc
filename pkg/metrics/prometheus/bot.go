package prometheus

import (
	"time"

	"github.com/marmos91/botkit/pkg/bot"
	"github.com/marmos91/botkit/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// botMetrics is the Prometheus implementation of bot.Metrics.
type botMetrics struct {
	callsTotal   *prometheus.CounterVec
	callDuration *prometheus.HistogramVec
	updatesTotal *prometheus.CounterVec
}

// NewBotMetrics creates a Prometheus-backed bot.Metrics.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewBotMetrics() bot.Metrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &botMetrics{
		callsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "botkit_bot_api_calls_total",
				Help: "Total number of Bot API calls by method and status",
			},
			[]string{"method", "status"},
		),
		callDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "botkit_bot_api_call_duration_seconds",
				Help: "Duration of Bot API calls in seconds",
				Buckets: []float64{
					0.05, // 50ms - local API server
					0.1,
					0.25,
					0.5,
					1,
					5,
					35, // long-poll getUpdates
				},
			},
			[]string{"method"},
		),
		updatesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "botkit_bot_updates_total",
				Help: "Total number of updates handled by kind",
			},
			[]string{"kind"},
		),
	}
}

func (m *botMetrics) ObserveCall(method string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.callsTotal.WithLabelValues(method, status(err)).Inc()
	m.callDuration.WithLabelValues(method).Observe(duration.Seconds())
}

func (m *botMetrics) RecordUpdate(kind string) {
	if m == nil {
		return
	}
	m.updatesTotal.WithLabelValues(kind).Inc()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
