// Package metrics holds the process-wide Prometheus registry.
//
// Domain packages (bot, dispatch, objectstore, scheduler) declare their own
// metrics interfaces and treat a nil implementation as "disabled". The
// Prometheus implementations live in pkg/metrics/prometheus and return nil
// unless InitRegistry has been called, so a disabled build pays nothing.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	mu       sync.RWMutex
	registry *prometheus.Registry
)

// Config configures the metrics endpoint.
type Config struct {
	// Enabled starts the /metrics HTTP server.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port for the metrics HTTP server. Default: 9090
	Port int `mapstructure:"port" yaml:"port" validate:"omitempty,min=0,max=65535"`

	// Path the registry is served on. Default: /metrics
	Path string `mapstructure:"path" yaml:"path"`
}

// ApplyDefaults fills in zero values with defaults.
func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = 9090
	}
	if c.Path == "" {
		c.Path = "/metrics"
	}
}

// InitRegistry creates the registry with Go runtime and process collectors.
// Calling it again replaces the registry.
func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	mu.Lock()
	registry = reg
	mu.Unlock()
	return reg
}

// GetRegistry returns the registry, or nil when metrics are disabled.
func GetRegistry() *prometheus.Registry {
	mu.RLock()
	defer mu.RUnlock()
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	return GetRegistry() != nil
}

// Reset drops the registry, disabling metrics.
func Reset() {
	mu.Lock()
	registry = nil
	mu.Unlock()
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	reg := GetRegistry()
	if reg == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// NewMux returns a mux serving Handler at cfg.Path.
func NewMux(cfg Config) *http.ServeMux {
	cfg.ApplyDefaults()
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, Handler())
	return mux
}
