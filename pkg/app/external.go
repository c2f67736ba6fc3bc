package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/marmos91/botkit/internal/logger"
	"github.com/marmos91/botkit/pkg/apiclient"
	"github.com/marmos91/botkit/pkg/lifecycle"
	"github.com/marmos91/botkit/pkg/metrics/prometheus"
	"github.com/marmos91/botkit/pkg/objectstore"
)

const (
	ModuleAPIClient   = "api-client"
	ModuleObjectStore = "object-store"
)

// APIClientModule owns the HTTP session to the external REST API.
type APIClientModule struct {
	lifecycle.Base
	cfg       apiclient.Config
	client    *apiclient.Client
	closeOnce sync.Once
}

// NewAPIClientModule creates the external API module. An empty base URL
// leaves the client disabled.
func NewAPIClientModule(cfg apiclient.Config) *APIClientModule {
	return &APIClientModule{Base: lifecycle.Base{ModuleName: ModuleAPIClient}, cfg: cfg}
}

func (m *APIClientModule) Configure(ctx context.Context) error {
	if m.cfg.BaseURL == "" {
		logger.InfoCtx(ctx, "External API client disabled")
		return nil
	}
	m.client = apiclient.New(m.cfg)
	logger.InfoCtx(ctx, "External API client configured", "base_url", m.client.BaseURL())
	return nil
}

// Shutdown closes idle connections.
func (m *APIClientModule) Shutdown(context.Context) error {
	if m.client != nil {
		m.closeOnce.Do(m.client.Close)
	}
	return nil
}

// Client returns the shared client, or nil when disabled.
func (m *APIClientModule) Client() *apiclient.Client {
	return m.client
}

// ObjectStoreModule owns the S3 client used for snapshot exports.
type ObjectStoreModule struct {
	lifecycle.Base
	cfg    objectstore.Config
	newAPI func(ctx context.Context, cfg objectstore.Config) (objectstore.API, error)
	store  *objectstore.Store
}

// NewObjectStoreModule creates the object storage module.
func NewObjectStoreModule(cfg objectstore.Config) *ObjectStoreModule {
	return &ObjectStoreModule{
		Base: lifecycle.Base{ModuleName: ModuleObjectStore},
		cfg:  cfg,
		newAPI: func(ctx context.Context, cfg objectstore.Config) (objectstore.API, error) {
			return objectstore.NewClient(ctx, cfg)
		},
	}
}

// Configure builds the client and verifies the bucket is reachable.
func (m *ObjectStoreModule) Configure(ctx context.Context) error {
	m.cfg.ApplyDefaults()

	api, err := m.newAPI(ctx, m.cfg)
	if err != nil {
		return fmt.Errorf("create s3 client: %w", err)
	}

	s, err := objectstore.New(api, m.cfg, prometheus.NewObjectStoreMetrics())
	if err != nil {
		return err
	}
	if err := s.Verify(ctx); err != nil {
		return err
	}

	m.store = s
	logger.InfoCtx(ctx, "Object storage configured", "bucket", s.Bucket())
	return nil
}

// Uploader returns the upload capability, or nil before Configure.
func (m *ObjectStoreModule) Uploader() objectstore.Uploader {
	if m.store == nil {
		return nil
	}
	return m.store
}
