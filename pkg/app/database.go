package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/marmos91/botkit/internal/logger"
	"github.com/marmos91/botkit/pkg/lifecycle"
	"github.com/marmos91/botkit/pkg/metrics/prometheus"
	"github.com/marmos91/botkit/pkg/store"
)

// ModuleDatabase is the name of the database module.
const ModuleDatabase = "database"

// DatabaseModule owns the connection pool.
type DatabaseModule struct {
	lifecycle.Base
	cfg store.Config

	store     *store.GORMStore
	closeOnce sync.Once
	closeErr  error
}

// NewDatabaseModule creates the database module. Nothing is opened until
// Configure.
func NewDatabaseModule(cfg store.Config) *DatabaseModule {
	return &DatabaseModule{Base: lifecycle.Base{ModuleName: ModuleDatabase}, cfg: cfg}
}

// Configure opens the database and, when auto_migrate is set, migrates it.
func (m *DatabaseModule) Configure(ctx context.Context) error {
	s, err := store.New(ctx, &m.cfg)
	if err != nil {
		return err
	}
	m.store = s
	return nil
}

// Start exports pool statistics once the metrics registry exists.
func (m *DatabaseModule) Start(ctx context.Context) error {
	sqlDB, err := m.store.DB().DB()
	if err != nil {
		return fmt.Errorf("get sql.DB: %w", err)
	}
	if err := prometheus.RegisterDBStats(sqlDB, "botkit"); err != nil {
		logger.WarnCtx(ctx, "Database pool metrics unavailable", logger.Err(err))
	}
	return nil
}

// Shutdown closes the pool.
func (m *DatabaseModule) Shutdown(context.Context) error {
	if m.store == nil {
		return nil
	}
	m.closeOnce.Do(func() {
		m.closeErr = m.store.Close()
	})
	return m.closeErr
}

// Store returns the shared data-access capability.
func (m *DatabaseModule) Store() store.Store {
	if m.store == nil {
		return nil
	}
	return m.store
}
