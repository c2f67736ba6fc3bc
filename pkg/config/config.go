package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/marmos91/botkit/internal/telemetry"
	"github.com/marmos91/botkit/pkg/admin"
	"github.com/marmos91/botkit/pkg/api"
	"github.com/marmos91/botkit/pkg/apiclient"
	"github.com/marmos91/botkit/pkg/bot"
	"github.com/marmos91/botkit/pkg/dispatch"
	"github.com/marmos91/botkit/pkg/metrics"
	"github.com/marmos91/botkit/pkg/objectstore"
	"github.com/marmos91/botkit/pkg/scheduler"
	"github.com/marmos91/botkit/pkg/store"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. BOTKIT_BOT_TOKEN.
const EnvPrefix = "BOTKIT"

// Config represents the botkit configuration.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (BOTKIT_*)
//  2. Configuration file (YAML)
//  3. Default values
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry tracing and Pyroscope profiling
	Telemetry telemetry.Config `mapstructure:"telemetry" yaml:"telemetry"`

	// ShutdownTimeout is the hard deadline for the whole teardown once a
	// second termination signal arrives
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	// Database configures the user/item store (SQLite or PostgreSQL)
	Database store.Config `mapstructure:"database" yaml:"database"`

	// Metrics contains Prometheus metrics server configuration
	Metrics metrics.Config `mapstructure:"metrics" yaml:"metrics"`

	// Server is the HTTP listener for the REST API and the admin panel
	Server api.APIConfig `mapstructure:"server" yaml:"server"`

	// APIClient configures the external REST API the bot talks to
	APIClient apiclient.Config `mapstructure:"api_client" yaml:"api_client"`

	Admin admin.Config `mapstructure:"admin" yaml:"admin"`

	Bot bot.Config `mapstructure:"bot" yaml:"bot"`

	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`

	Scheduler scheduler.Config `mapstructure:"scheduler" yaml:"scheduler"`

	Dispatch DispatchConfig `mapstructure:"dispatch" yaml:"dispatch"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`

	// Alerts forwards warnings and errors to maintainers through the bot
	Alerts AlertsConfig `mapstructure:"alerts" yaml:"alerts"`
}

// AlertsConfig configures the maintainer alert sink.
type AlertsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// BotToken sends alerts through a separate bot. Default: bot.token
	BotToken string `mapstructure:"bot_token" yaml:"bot_token,omitempty"`

	// Maintainers are the chat ids that receive alerts
	Maintainers []int64 `mapstructure:"maintainers" yaml:"maintainers"`

	// Level is the lowest level forwarded. Default: WARN
	Level string `mapstructure:"level" validate:"omitempty,oneof=WARN ERROR warn error" yaml:"level"`
}

// StorageConfig groups the object storage backends.
type StorageConfig struct {
	// S3 enables snapshot exports when a bucket is set
	S3 objectstore.Config `mapstructure:"s3" yaml:"s3"`
}

// DispatchConfig configures the notification dispatcher and the reminder
// it delivers.
type DispatchConfig struct {
	dispatch.Policy `mapstructure:",squash" yaml:",inline"`

	Reminder dispatch.ReminderConfig `mapstructure:"reminder" yaml:"reminder"`
}

// secretKeys are bound to the environment explicitly so they can be
// supplied without a config file.
var secretKeys = []string{
	"bot.token",
	"admin.jwt.secret",
	"api_client.base_url",
	"api_client.token",
	"database.type",
	"database.sqlite.path",
	"database.postgres.host",
	"database.postgres.user",
	"database.postgres.password",
	"database.postgres.database",
	"storage.s3.bucket",
	"storage.s3.access_key_id",
	"storage.s3.secret_access_key",
	"storage.s3.endpoint",
	"logging.level",
	"logging.alerts.bot_token",
}

// Load loads configuration from file, environment, and defaults, then
// validates it.
//
// An empty configPath searches the default location. A missing file is not
// an error: environment variables and defaults still apply.
func Load(configPath string) (*Config, error) {
	cfg, err := Read(configPath)
	if err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Read is Load without validation. It backs `config show`, which must be
// able to print a configuration that does not validate yet.
func Read(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	if _, err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)
	return &cfg, nil
}

// MustLoad loads configuration with helpful error messages.
// It checks if the config file exists and provides user-friendly instructions if not.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  botkit config init\n\n"+
				"Or specify a custom config file:\n"+
				"  botkit <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s\n\n"+
			"Please create the configuration file:\n"+
			"  botkit config init --config %s",
			configPath, configPath)
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to the specified file path in YAML.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// 0600: the file carries the bot token and the JWT secret.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Example: BOTKIT_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, key := range secretKeys {
		_ = v.BindEnv(key)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
// Returns (fileFound, error) where fileFound indicates if a config file was found.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}

	return true, nil
}

// configDecodeHooks returns a combined decode hook for all custom types.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		durationDecodeHook(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// durationDecodeHook returns a mapstructure decode hook that converts strings
// to time.Duration. This enables config files to use human-readable durations
// like "30s", "5m", "1h".
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			// Assume nanoseconds for raw integers
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			// YAML often deserializes numbers as float64
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "botkit")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "botkit")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path.
func GetConfigDir() string {
	return getConfigDir()
}
