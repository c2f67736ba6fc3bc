package app

import (
	"context"
	"errors"
	"net/http"

	"github.com/marmos91/botkit/internal/logger"
	"github.com/marmos91/botkit/pkg/admin"
	"github.com/marmos91/botkit/pkg/api"
	"github.com/marmos91/botkit/pkg/lifecycle"
	"github.com/marmos91/botkit/pkg/metrics/prometheus"
	"github.com/marmos91/botkit/pkg/store"
)

const (
	ModuleAdmin = "admin"
	ModuleAPI   = "api"
)

// AdminModule builds the admin panel. It has no background work.
type AdminModule struct {
	lifecycle.Base
	cfg   admin.Config
	store store.Store
	panel *admin.Panel
}

// NewAdminModule creates the admin module. A disabled panel is not mounted.
func NewAdminModule(cfg admin.Config, s store.Store) *AdminModule {
	return &AdminModule{Base: lifecycle.Base{ModuleName: ModuleAdmin}, cfg: cfg, store: s}
}

func (m *AdminModule) Configure(ctx context.Context) error {
	if !m.cfg.Enabled {
		logger.InfoCtx(ctx, "Admin panel disabled")
		return nil
	}
	panel, err := admin.NewPanel(m.store, m.cfg)
	if err != nil {
		return err
	}
	m.panel = panel
	return nil
}

// Mounter returns the panel as an api.Mounter, or nil when disabled.
func (m *AdminModule) Mounter() api.Mounter {
	if m.panel == nil {
		return nil
	}
	return m.panel
}

// APIModule builds the HTTP handler. Serving it is the server module's job.
type APIModule struct {
	lifecycle.Base
	deps    api.Deps
	handler http.Handler
}

// NewAPIModule creates the API module. deps.Store is required.
func NewAPIModule(deps api.Deps) *APIModule {
	return &APIModule{Base: lifecycle.Base{ModuleName: ModuleAPI}, deps: deps}
}

func (m *APIModule) Configure(context.Context) error {
	if m.deps.Store == nil {
		return errors.New("api: no store")
	}
	if m.deps.Metrics == nil {
		m.deps.Metrics = prometheus.NewHTTPMetrics()
	}
	m.handler = api.NewRouter(m.deps)
	return nil
}

// Handler returns the router, or nil before Configure.
func (m *APIModule) Handler() http.Handler {
	return m.handler
}
