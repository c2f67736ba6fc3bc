package commands

import (
	"context"
	"fmt"

	"github.com/marmos91/botkit/internal/logger"
	"github.com/marmos91/botkit/pkg/bot"
	"github.com/marmos91/botkit/pkg/config"
	"github.com/marmos91/botkit/pkg/store"
)

// loadConfig loads the configuration for commands that talk to the bot or
// the database. Without --config and without a default file the process is
// configured from BOTKIT_* variables alone, which is how containers run it.
func loadConfig() (*config.Config, error) {
	path := GetConfigFile()
	if path == "" && !config.DefaultConfigExists() {
		cfg, err := config.Load("")
		if err != nil {
			return nil, fmt.Errorf("%w\n\nno configuration file found; create one with: botkit config init", err)
		}
		return cfg, nil
	}
	return config.MustLoad(path)
}

// InitLogger initializes the structured logger from configuration.
func InitLogger(cfg *config.Config) error {
	loggerCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if err := logger.Init(loggerCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// startAlerts attaches the maintainer alert sink when enabled. The returned
// function detaches it and releases its bot client.
func startAlerts(cfg *config.Config) (func(), error) {
	alerts := cfg.Logging.Alerts
	if !alerts.Enabled {
		return func() {}, nil
	}

	botCfg := cfg.Bot
	botCfg.Token = alerts.BotToken
	client, err := bot.New(botCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create alert bot client: %w", err)
	}

	stop := logger.StartAlerts(bot.NewAlerter(client, alerts.Maintainers), alerts.Level)
	logger.Info("Maintainer alerts enabled", "maintainers", len(alerts.Maintainers), "level", alerts.Level)
	return func() {
		stop()
		client.Close()
	}, nil
}

// openStore opens the configured database without applying migrations
// beyond what database.auto_migrate asks for.
func openStore(ctx context.Context, cfg *config.Config) (*store.GORMStore, error) {
	s, err := store.New(ctx, &cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return s, nil
}

// configSource describes where the configuration was loaded from.
func configSource(configFile string) string {
	if configFile != "" {
		return configFile
	}
	if config.DefaultConfigExists() {
		return config.GetDefaultConfigPath()
	}
	return "environment"
}
