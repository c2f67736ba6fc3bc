package app

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/marmos91/botkit/pkg/api"
	"github.com/marmos91/botkit/pkg/lifecycle"
	"github.com/marmos91/botkit/pkg/metrics"
	"github.com/marmos91/botkit/pkg/supervisor"
)

const (
	ModuleServer  = "server"
	ModuleMetrics = "metrics"
)

// errNotConfigured is returned by Start when Configure never succeeded.
var errNotConfigured = errors.New("module not configured")

// serving runs one api.Server as a supervised task.
type serving struct {
	server *api.Server
	task   *supervisor.Task
}

func (s *serving) start(ctx context.Context, term lifecycle.Terminator, name string) error {
	if s.server == nil {
		return errNotConfigured
	}
	s.task = supervisor.Spawn(ctx, name, s.server.Start,
		supervisor.WithOnExit(lifecycle.ExitHook(term, name)))
	return nil
}

// stop cancels the task; api.Server performs the graceful shutdown itself
// within its own deadline.
func (s *serving) stop() error {
	if s.task == nil {
		return nil
	}
	return s.task.Cancel()
}

// Addr waits for the listener and returns its address, or nil when ctx
// ends first.
func (s *serving) Addr(ctx context.Context) net.Addr {
	if s.server == nil {
		return nil
	}
	return s.server.Addr(ctx)
}

// ServerModule serves the API handler over HTTP.
type ServerModule struct {
	lifecycle.Base
	serving
	cfg     api.APIConfig
	handler http.Handler
	term    lifecycle.Terminator
}

// NewServerModule creates the HTTP server module.
func NewServerModule(cfg api.APIConfig, handler http.Handler, term lifecycle.Terminator) *ServerModule {
	return &ServerModule{
		Base:    lifecycle.Base{ModuleName: ModuleServer},
		cfg:     cfg,
		handler: handler,
		term:    term,
	}
}

func (m *ServerModule) Configure(context.Context) error {
	if m.handler == nil {
		return errors.New("server: no handler")
	}
	m.cfg.ApplyDefaults()
	m.server = api.NewServer("api", m.cfg, m.handler)
	return nil
}

// Start spawns the listener. A listener that fails terminates the process.
func (m *ServerModule) Start(ctx context.Context) error {
	return m.start(ctx, m.term, "api-server")
}

func (m *ServerModule) Shutdown(context.Context) error {
	return m.stop()
}

// MetricsModule creates the Prometheus registry and serves it. It is
// registered before every module that records metrics.
type MetricsModule struct {
	lifecycle.Base
	serving
	cfg  metrics.Config
	term lifecycle.Terminator
}

// NewMetricsModule creates the metrics module. A zero port picks a free one.
func NewMetricsModule(cfg metrics.Config, term lifecycle.Terminator) *MetricsModule {
	return &MetricsModule{
		Base: lifecycle.Base{ModuleName: ModuleMetrics},
		cfg:  cfg,
		term: term,
	}
}

func (m *MetricsModule) Configure(context.Context) error {
	metrics.InitRegistry()

	srvCfg := api.APIConfig{Port: m.cfg.Port}
	srvCfg.ApplyDefaults()
	m.server = api.NewServer("metrics", srvCfg, metrics.NewMux(m.cfg))
	return nil
}

func (m *MetricsModule) Start(ctx context.Context) error {
	return m.start(ctx, m.term, "metrics-server")
}

// Shutdown stops the server and drops the registry.
func (m *MetricsModule) Shutdown(context.Context) error {
	err := m.stop()
	metrics.Reset()
	return err
}
