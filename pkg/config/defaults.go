package config

import (
	"strings"
	"time"

	"github.com/marmos91/botkit/internal/telemetry"
	"github.com/marmos91/botkit/pkg/api"
	"github.com/marmos91/botkit/pkg/scheduler"
	"github.com/marmos91/botkit/pkg/store"
)

// DefaultServerPort is the API listener port when none is configured.
const DefaultServerPort = 8080

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Zero values (0, "", false, nil) are replaced with defaults; explicit
// values are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)

	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}

	cfg.Database.ApplyDefaults()
	cfg.Metrics.ApplyDefaults()
	applyServerDefaults(&cfg.Server)
	cfg.APIClient.ApplyDefaults()
	cfg.Admin.JWT.ApplyDefaults()
	cfg.Bot.ApplyDefaults()
	cfg.Storage.S3.ApplyDefaults()
	cfg.Scheduler.ApplyDefaults()
	cfg.Dispatch.Policy.ApplyDefaults()
	cfg.Dispatch.Reminder.ApplyDefaults()

	if cfg.Logging.Alerts.BotToken == "" {
		cfg.Logging.Alerts.BotToken = cfg.Bot.Token
	}
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}

	if cfg.Alerts.Level == "" {
		cfg.Alerts.Level = "WARN"
	}
	cfg.Alerts.Level = strings.ToUpper(cfg.Alerts.Level)
}

// applyTelemetryDefaults fills the tracing and profiling endpoints.
// Enabled flags stay opt-in.
func applyTelemetryDefaults(cfg *telemetry.Config) {
	def := telemetry.DefaultConfig()

	if cfg.ServiceName == "" {
		cfg.ServiceName = def.ServiceName
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = def.Endpoint
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = def.SampleRate
	}

	if cfg.Profiling.ServiceName == "" {
		cfg.Profiling.ServiceName = cfg.ServiceName
	}
	if cfg.Profiling.Endpoint == "" {
		cfg.Profiling.Endpoint = def.Profiling.Endpoint
	}
	if len(cfg.Profiling.ProfileTypes) == 0 {
		cfg.Profiling.ProfileTypes = def.Profiling.ProfileTypes
	}
}

// applyServerDefaults sets API server defaults. The API always runs.
func applyServerDefaults(cfg *api.APIConfig) {
	if cfg.Port == 0 {
		cfg.Port = DefaultServerPort
	}
	cfg.ApplyDefaults()
}

// GetDefaultConfig returns a Config struct with all default values applied.
// It seeds generated configuration files and tests.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Database: store.Config{
			Type:        store.DatabaseTypeSQLite,
			AutoMigrate: true,
		},
		Telemetry: telemetry.Config{Insecure: true},
		Scheduler: scheduler.Config{Enabled: true},
	}

	ApplyDefaults(cfg)
	return cfg
}
