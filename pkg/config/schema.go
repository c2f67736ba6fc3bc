package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"
)

// Schema returns the JSON schema of the configuration file, keyed by the
// YAML field names.
func Schema() ([]byte, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		FieldNameTag:              "yaml",
	}

	schema := reflector.Reflect(&Config{})
	schema.Version = "https://json-schema.org/draft/2020-12/schema"
	schema.Title = "botkit configuration"
	schema.Description = "Configuration schema for the botkit server"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to generate schema: %w", err)
	}
	return data, nil
}

// Render returns cfg as YAML with secrets masked unless reveal is set.
func Render(cfg *Config, reveal bool) ([]byte, error) {
	out := *cfg
	if !reveal {
		out.Bot.Token = mask(out.Bot.Token)
		out.Logging.Alerts.BotToken = mask(out.Logging.Alerts.BotToken)
		out.Admin.JWT.Secret = mask(out.Admin.JWT.Secret)
		out.APIClient.Token = mask(out.APIClient.Token)
		out.Database.Postgres.Password = mask(out.Database.Postgres.Password)
		out.Storage.S3.SecretAccessKey = mask(out.Storage.S3.SecretAccessKey)
	}

	data, err := yaml.Marshal(&out)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "********"
}

// InitConfig writes a default configuration file to the default location
// and returns its path. An existing file is kept unless force is set.
func InitConfig(force bool) (string, error) {
	return InitConfigToPath(GetDefaultConfigPath(), force)
}

// InitConfigToPath writes a default configuration file to path.
func InitConfigToPath(path string, force bool) (string, error) {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("configuration file already exists at %s (use --force to overwrite)", path)
		}
	}

	cfg := GetDefaultConfig()
	cfg.Bot.Token = "<your bot token>"

	if err := SaveConfig(cfg, path); err != nil {
		return "", err
	}
	return path, nil
}
