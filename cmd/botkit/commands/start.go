package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/marmos91/botkit/internal/logger"
	"github.com/marmos91/botkit/internal/telemetry"
	"github.com/marmos91/botkit/pkg/app"
	"github.com/marmos91/botkit/pkg/lifecycle"
	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the bot and its services",
	Long: `Start botkit in the foreground.

Modules are configured in dependency order (database, metrics, external API
client, object storage, bot, admin panel, HTTP API, scheduler, HTTP server)
and started once all of them are configured. SIGINT or SIGTERM stops the
process; modules are shut down in reverse order.

Teardown is bounded by shutdown_timeout. A second signal exits immediately.

Examples:
  # Start with the default config file
  botkit start

  # Start with a custom config file
  botkit start --config /etc/botkit/config.yaml

  # Configure through the environment only
  BOTKIT_BOT_TOKEN=123:abc BOTKIT_LOGGING_LEVEL=DEBUG botkit start`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg.Telemetry.ServiceVersion = Version
	telemetryShutdown, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(context.Background()); err != nil {
			logger.Error("telemetry shutdown error", logger.KeyError, err)
		}
	}()

	cfg.Telemetry.Profiling.ServiceVersion = Version
	profilingShutdown, err := telemetry.InitProfiling(cfg.Telemetry.Profiling)
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", logger.KeyError, err)
		}
	}()

	stopAlerts, err := startAlerts(cfg)
	if err != nil {
		return err
	}
	defer stopAlerts()

	logger.Info("Starting botkit", "version", Version, "commit", Commit)
	logger.Info("Configuration loaded", "source", configSource(GetConfigFile()))
	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	}
	if telemetry.IsProfilingEnabled() {
		logger.Info("Profiling enabled", "endpoint", cfg.Telemetry.Profiling.Endpoint)
	}

	c := app.New(cfg)
	orch := c.Orchestrator()

	stopWatchdog := watchShutdown(orch.Event(), orch.Done(), cfg.ShutdownTimeout)
	defer stopWatchdog()

	if err := c.Configure(ctx); err != nil {
		return fmt.Errorf("startup failed: %w", err)
	}

	if err := c.Run(ctx); err != nil {
		return err
	}
	logger.Info("botkit stopped")
	return nil
}

// watchShutdown bounds the teardown once termination has been requested:
// the process exits with status 1 when timeout elapses or when another
// termination signal arrives before every module is down.
func watchShutdown(ev *lifecycle.Event, stopped <-chan struct{}, timeout time.Duration) (stop func()) {
	quit := make(chan struct{})
	go func() {
		select {
		case <-ev.Done():
		case <-quit:
			return
		}

		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, lifecycle.TerminationSignals...)
		defer signal.Stop(sigs)

		timer := time.NewTimer(timeout)
		defer timer.Stop()

		select {
		case <-stopped:
		case <-quit:
		case <-timer.C:
			logger.Error("Shutdown timed out, exiting", "timeout", timeout.String())
			os.Exit(1)
		case sig := <-sigs:
			logger.Error("Forced exit", "signal", sig.String())
			os.Exit(1)
		}
	}()
	return func() { close(quit) }
}
