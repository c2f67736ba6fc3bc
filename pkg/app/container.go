package app

import (
	"context"

	"github.com/marmos91/botkit/pkg/api"
	"github.com/marmos91/botkit/pkg/api/handlers"
	"github.com/marmos91/botkit/pkg/apiclient"
	"github.com/marmos91/botkit/pkg/config"
	"github.com/marmos91/botkit/pkg/lifecycle"
	"github.com/marmos91/botkit/pkg/objectstore"
	"github.com/marmos91/botkit/pkg/scheduler"
)

// Container wires the modules of one botkit process.
type Container struct {
	cfg  *config.Config
	orch *lifecycle.Orchestrator

	Database    *DatabaseModule
	Metrics     *MetricsModule
	APIClient   *APIClientModule
	ObjectStore *ObjectStoreModule
	Bot         *BotModule
	Admin       *AdminModule
	API         *APIModule
	Scheduler   *SchedulerModule
	Server      *ServerModule
}

// New creates a container. opts configure the orchestrator.
func New(cfg *config.Config, opts ...lifecycle.Option) *Container {
	return &Container{cfg: cfg, orch: lifecycle.New(opts...)}
}

// Orchestrator returns the orchestrator driving the modules.
func (c *Container) Orchestrator() *lifecycle.Orchestrator {
	return c.orch
}

// Configure builds and configures every module in dependency order. On
// failure the modules configured so far have already been shut down.
func (c *Container) Configure(ctx context.Context) error {
	cfg := c.cfg
	o := c.orch
	var err error

	if c.Database, err = lifecycle.Setup(ctx, o, func() (*DatabaseModule, error) {
		return NewDatabaseModule(cfg.Database), nil
	}); err != nil {
		return err
	}
	db := c.Database.Store()

	if cfg.Metrics.Enabled {
		if c.Metrics, err = lifecycle.Setup(ctx, o, func() (*MetricsModule, error) {
			return NewMetricsModule(cfg.Metrics, o), nil
		}); err != nil {
			return err
		}
	}

	if c.APIClient, err = lifecycle.Setup(ctx, o, func() (*APIClientModule, error) {
		return NewAPIClientModule(cfg.APIClient), nil
	}); err != nil {
		return err
	}

	var uploader objectstore.Uploader
	if cfg.Storage.S3.Enabled() {
		if c.ObjectStore, err = lifecycle.Setup(ctx, o, func() (*ObjectStoreModule, error) {
			return NewObjectStoreModule(cfg.Storage.S3), nil
		}); err != nil {
			return err
		}
		uploader = c.ObjectStore.Uploader()
	}

	if c.Bot, err = lifecycle.Setup(ctx, o, func() (*BotModule, error) {
		return NewBotModule(cfg.Bot, db, o), nil
	}); err != nil {
		return err
	}
	sender := c.Bot.Sender()

	if c.Admin, err = lifecycle.Setup(ctx, o, func() (*AdminModule, error) {
		return NewAdminModule(cfg.Admin, db), nil
	}); err != nil {
		return err
	}

	deps := api.Deps{
		Store:          db,
		Sender:         sender,
		Admin:          c.Admin.Mounter(),
		RequestTimeout: cfg.Server.RequestTimeout,
	}
	// typed nils must not leak into interface fields
	var remote scheduler.ItemPusher
	if client := c.APIClient.Client(); client != nil {
		deps.External = client.Users()
		remote = client.Items()
	}
	if c.API, err = lifecycle.Setup(ctx, o, func() (*APIModule, error) {
		return NewAPIModule(deps), nil
	}); err != nil {
		return err
	}

	if cfg.Scheduler.Enabled {
		if c.Scheduler, err = lifecycle.Setup(ctx, o, func() (*SchedulerModule, error) {
			return NewSchedulerModule(cfg.Scheduler, SchedulerDeps{
				Store:    db,
				Sender:   sender,
				Remote:   remote,
				Uploader: uploader,
				Policy:   cfg.Dispatch.Policy,
				Reminder: cfg.Dispatch.Reminder,
			}), nil
		}); err != nil {
			return err
		}
	}

	if c.Server, err = lifecycle.Setup(ctx, o, func() (*ServerModule, error) {
		return NewServerModule(cfg.Server, c.API.Handler(), o), nil
	}); err != nil {
		return err
	}

	return nil
}

// Run starts the configured modules and blocks until termination, then
// shuts everything down in reverse order.
func (c *Container) Run(ctx context.Context) error {
	return c.orch.Run(ctx)
}

// Shutdown tears every module down. Safe to call more than once.
func (c *Container) Shutdown(ctx context.Context) {
	c.orch.Shutdown(ctx)
}

var _ handlers.ExternalUsers = (*apiclient.Resource[apiclient.UserData])(nil)
