package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/marmos91/botkit/pkg/store"
)

// yamlSafePath converts a filesystem path to a YAML-safe representation.
// On Windows, backslashes in double-quoted YAML strings are interpreted as
// escape sequences (e.g. \U -> Unicode escape), causing parse errors.
func yamlSafePath(p string) string {
	return filepath.ToSlash(p)
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoad_DefaultsApplied(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := writeConfig(t, `
logging:
  level: "info"

database:
  type: sqlite
  sqlite:
    path: "`+yamlSafePath(tmpDir)+`/botkit.db"

bot:
  token: "123:abc"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected normalized level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown_timeout 30s, got %v", cfg.ShutdownTimeout)
	}
	if cfg.Server.Port != DefaultServerPort {
		t.Errorf("Expected server port %d, got %d", DefaultServerPort, cfg.Server.Port)
	}
	if cfg.Bot.PollTimeout != 30*time.Second {
		t.Errorf("Expected default poll timeout 30s, got %v", cfg.Bot.PollTimeout)
	}
	if cfg.Dispatch.Rate != 25 || cfg.Dispatch.MaxAttempts != 3 {
		t.Errorf("Expected default dispatch policy 25/s x3, got %v/s x%d", cfg.Dispatch.Rate, cfg.Dispatch.MaxAttempts)
	}
	if cfg.Scheduler.RemindUsers.Schedule != "0 9 * * *" {
		t.Errorf("Expected default remind schedule, got %q", cfg.Scheduler.RemindUsers.Schedule)
	}
	if cfg.Logging.Alerts.BotToken != "123:abc" {
		t.Errorf("Expected alert bot token to default to bot.token, got %q", cfg.Logging.Alerts.BotToken)
	}
}

func TestLoad_FullFile(t *testing.T) {
	configPath := writeConfig(t, `
shutdown_timeout: 45s
database:
  type: postgres
  postgres:
    host: db
    user: botkit
    database: botkit
server:
  port: 9000
  request_timeout: 5s
bot:
  token: "123:abc"
  chat_types: [private, group]
admin:
  enabled: true
  jwt:
    secret: "0123456789abcdef0123456789abcdef"
storage:
  s3:
    bucket: snapshots
    endpoint: "http://minio:9000"
scheduler:
  enabled: true
  misfire_grace: 2m
  export_snapshot:
    schedule: "@daily"
dispatch:
  rate: 10
  max_attempts: 5
  min_backoff: 1s
  max_backoff: 3s
  reminder:
    inactive_after: 48h
    text: "Come back!"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.ShutdownTimeout != 45*time.Second {
		t.Errorf("Expected shutdown_timeout 45s, got %v", cfg.ShutdownTimeout)
	}
	if cfg.Database.Type != store.DatabaseTypePostgres || cfg.Database.Postgres.Port != 5432 {
		t.Errorf("Expected postgres on 5432, got %s on %d", cfg.Database.Type, cfg.Database.Postgres.Port)
	}
	if cfg.Server.Port != 9000 || cfg.Server.RequestTimeout != 5*time.Second {
		t.Errorf("Unexpected server config: %+v", cfg.Server)
	}
	if len(cfg.Bot.ChatTypes) != 2 {
		t.Errorf("Expected two chat types, got %v", cfg.Bot.ChatTypes)
	}
	if !cfg.Storage.S3.Enabled() || cfg.Storage.S3.Region != "us-east-1" {
		t.Errorf("Unexpected storage config: %+v", cfg.Storage.S3)
	}
	if cfg.Scheduler.MisfireGrace != 2*time.Minute || cfg.Scheduler.ExportSnapshot.Schedule != "@daily" {
		t.Errorf("Unexpected scheduler config: %+v", cfg.Scheduler)
	}
	if cfg.Dispatch.Rate != 10 || cfg.Dispatch.MaxAttempts != 5 {
		t.Errorf("Unexpected dispatch policy: %+v", cfg.Dispatch.Policy)
	}
	if cfg.Dispatch.MinBackoff != time.Second || cfg.Dispatch.MaxBackoff != 3*time.Second {
		t.Errorf("Unexpected backoff range: %v-%v", cfg.Dispatch.MinBackoff, cfg.Dispatch.MaxBackoff)
	}
	if cfg.Dispatch.Reminder.InactiveAfter != 48*time.Hour || cfg.Dispatch.Reminder.Text != "Come back!" {
		t.Errorf("Unexpected reminder config: %+v", cfg.Dispatch.Reminder)
	}
}

func TestLoad_NoConfigFileUsesEnvironment(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("BOTKIT_BOT_TOKEN", "from-env")
	t.Setenv("BOTKIT_DATABASE_SQLITE_PATH", filepath.Join(tmpDir, "botkit.db"))

	cfg, err := Load(filepath.Join(tmpDir, "nonexistent.yaml"))
	if err != nil {
		t.Fatalf("Expected no error when loading without a file, got: %v", err)
	}

	if cfg.Bot.Token != "from-env" {
		t.Errorf("Expected bot token from environment, got %q", cfg.Bot.Token)
	}
	if cfg.Server.Port != DefaultServerPort {
		t.Errorf("Expected default API port %d, got %d", DefaultServerPort, cfg.Server.Port)
	}
}

func TestLoad_NoConfigFileWithoutTokenFails(t *testing.T) {
	t.Setenv("BOTKIT_BOT_TOKEN", "")

	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err == nil {
		t.Fatal("Expected an error without a bot token")
	}
	if !strings.Contains(err.Error(), "bot.token") {
		t.Errorf("Expected bot.token in error, got: %v", err)
	}
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	configPath := writeConfig(t, `
logging:
  level: INFO
bot:
  token: "from-file"
`)
	t.Setenv("BOTKIT_LOGGING_LEVEL", "debug")
	t.Setenv("BOTKIT_BOT_TOKEN", "from-env")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected level DEBUG from environment, got %q", cfg.Logging.Level)
	}
	if cfg.Bot.Token != "from-env" {
		t.Errorf("Expected token from environment, got %q", cfg.Bot.Token)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, `
logging:
  level: INFO
  invalid yaml here [[[
`)

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected error with invalid YAML, got nil")
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	configPath := writeConfig(t, `
shutdown_timeout: soon
bot:
  token: "123:abc"
`)

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected error for an unparsable duration")
	}
}

func TestRead_SkipsValidation(t *testing.T) {
	configPath := writeConfig(t, `
logging:
  format: xml
`)

	cfg, err := Read(configPath)
	if err != nil {
		t.Fatalf("Read should not validate, got: %v", err)
	}
	if cfg.Logging.Format != "xml" {
		t.Errorf("Expected format to be preserved, got %q", cfg.Logging.Format)
	}

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected Load to reject the same file")
	}
}

func TestMustLoad_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.yaml")

	_, err := MustLoad(path)
	if err == nil {
		t.Fatal("Expected error for a missing file")
	}
	if !strings.Contains(err.Error(), "botkit config init") {
		t.Errorf("Expected init instructions, got: %v", err)
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "nested", "config.yaml")

	cfg := GetDefaultConfig()
	cfg.Bot.Token = "123:abc"
	cfg.Database.SQLite.Path = filepath.Join(tmpDir, "botkit.db")
	cfg.Dispatch.Rate = 7

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Config file not written: %v", err)
	}
	if perm := info.Mode().Perm(); perm&0077 != 0 && os.PathSeparator == '/' {
		t.Errorf("Expected owner-only permissions, got %v", perm)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load saved config: %v", err)
	}
	if loaded.Dispatch.Rate != 7 {
		t.Errorf("Expected inline dispatch rate 7, got %v", loaded.Dispatch.Rate)
	}
	if loaded.Bot.Token != "123:abc" {
		t.Errorf("Expected token to survive, got %q", loaded.Bot.Token)
	}
}

func TestGetConfigDir_XDG(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	if got := GetConfigDir(); got != filepath.Join(tmpDir, "botkit") {
		t.Errorf("Expected config dir under XDG_CONFIG_HOME, got %q", got)
	}
	if DefaultConfigExists() {
		t.Error("Expected no default config in a fresh directory")
	}
}
