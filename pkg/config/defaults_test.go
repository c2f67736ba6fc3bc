package config

import (
	"testing"
	"time"

	"github.com/marmos91/botkit/pkg/store"
)

func TestApplyDefaults_Logging(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default log level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default log format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("Expected default log output 'stdout', got %q", cfg.Logging.Output)
	}
	if cfg.Logging.Alerts.Level != "WARN" {
		t.Errorf("Expected default alert level 'WARN', got %q", cfg.Logging.Alerts.Level)
	}
}

func TestApplyDefaults_ShutdownTimeout(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown timeout 30s, got %v", cfg.ShutdownTimeout)
	}
}

func TestApplyDefaults_Server(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Server.Port != 8080 {
		t.Errorf("Expected default API port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 10*time.Second {
		t.Errorf("Expected default read timeout 10s, got %v", cfg.Server.ReadTimeout)
	}
	if cfg.Server.ShutdownTimeout != 5*time.Second {
		t.Errorf("Expected default graceful shutdown 5s, got %v", cfg.Server.ShutdownTimeout)
	}
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		ShutdownTimeout: time.Minute,
	}
	cfg.Server.Port = 9999
	cfg.Logging.Alerts.BotToken = "alerts-bot"
	cfg.Bot.Token = "main-bot"
	ApplyDefaults(cfg)

	if cfg.ShutdownTimeout != time.Minute {
		t.Errorf("Expected explicit shutdown timeout to survive, got %v", cfg.ShutdownTimeout)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("Expected explicit port to survive, got %d", cfg.Server.Port)
	}
	if cfg.Logging.Alerts.BotToken != "alerts-bot" {
		t.Errorf("Expected dedicated alert bot token, got %q", cfg.Logging.Alerts.BotToken)
	}
}

func TestApplyDefaults_Telemetry(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Telemetry.Enabled || cfg.Telemetry.Profiling.Enabled {
		t.Error("Expected tracing and profiling to be opt-in")
	}
	if cfg.Telemetry.Endpoint != "localhost:4317" {
		t.Errorf("Expected default OTLP endpoint, got %q", cfg.Telemetry.Endpoint)
	}
	if cfg.Telemetry.SampleRate != 1.0 {
		t.Errorf("Expected default sample rate 1.0, got %v", cfg.Telemetry.SampleRate)
	}
	if len(cfg.Telemetry.Profiling.ProfileTypes) == 0 {
		t.Error("Expected default profile types")
	}
}

func TestApplyDefaults_Domain(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Database.Type != store.DatabaseTypeSQLite {
		t.Errorf("Expected sqlite by default, got %q", cfg.Database.Type)
	}
	if cfg.Metrics.Port != 9090 || cfg.Metrics.Path != "/metrics" {
		t.Errorf("Unexpected metrics defaults: %+v", cfg.Metrics)
	}
	if cfg.Admin.JWT.AccessTokenDuration != 15*time.Minute {
		t.Errorf("Expected 15m access tokens, got %v", cfg.Admin.JWT.AccessTokenDuration)
	}
	if cfg.Scheduler.MisfireGrace != 60*time.Second {
		t.Errorf("Expected 60s misfire grace, got %v", cfg.Scheduler.MisfireGrace)
	}
	if cfg.Dispatch.MinBackoff != 2*time.Second || cfg.Dispatch.MaxBackoff != 5*time.Second {
		t.Errorf("Expected 2-5s backoff, got %v-%v", cfg.Dispatch.MinBackoff, cfg.Dispatch.MaxBackoff)
	}
	if cfg.Dispatch.Reminder.InactiveAfter != 72*time.Hour {
		t.Errorf("Expected 72h inactivity, got %v", cfg.Dispatch.Reminder.InactiveAfter)
	}
	if cfg.Storage.S3.Enabled() {
		t.Error("Expected object storage to be disabled without a bucket")
	}
}

func TestGetDefaultConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	if !cfg.Database.AutoMigrate {
		t.Error("Expected auto-migration in the default config")
	}
	if !cfg.Scheduler.Enabled {
		t.Error("Expected the scheduler to be enabled in the default config")
	}
	if !cfg.Telemetry.Insecure {
		t.Error("Expected insecure OTLP transport for local collectors")
	}
}
