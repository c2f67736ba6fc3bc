package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/marmos91/botkit/pkg/admin"
)

// minJWTSecretLength mirrors the admin JWT service requirement.
const minJWTSecretLength = 32

// ErrBotTokenRequired is returned when no bot token is configured.
var ErrBotTokenRequired = errors.New("bot.token is required (or set BOTKIT_BOT_TOKEN)")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// Report fields by their configuration key instead of the Go name.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return v
}

// Validate checks struct tag constraints and the cross-field rules tags
// cannot express. Every violated rule is reported.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("configuration is nil")
	}

	var errs []error

	if err := validate.Struct(cfg); err != nil {
		errs = append(errs, formatValidationErrors(err)...)
	}

	if cfg.Bot.Token == "" {
		errs = append(errs, ErrBotTokenRequired)
	}

	if err := cfg.Database.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("database: %w", err))
	}

	if cfg.Admin.Enabled && len(cfg.Admin.JWT.Secret) < minJWTSecretLength {
		errs = append(errs, fmt.Errorf("admin.jwt.secret: %w", admin.ErrInvalidSecretLength))
	}

	if cfg.Logging.Alerts.Enabled {
		if len(cfg.Logging.Alerts.Maintainers) == 0 {
			errs = append(errs, errors.New("logging.alerts.maintainers: at least one chat id is required when alerts are enabled"))
		}
		if cfg.Logging.Alerts.BotToken == "" {
			errs = append(errs, errors.New("logging.alerts.bot_token: required when alerts are enabled"))
		}
	}

	if err := cfg.Dispatch.Policy.Validate(); err != nil {
		errs = append(errs, err)
	}

	if _, err := cfg.Scheduler.Location(); err != nil {
		errs = append(errs, fmt.Errorf("scheduler.timezone: %w", err))
	}

	return errors.Join(errs...)
}

// formatValidationErrors turns validator output into one error per field,
// keyed by the dotted configuration path.
func formatValidationErrors(err error) []error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []error{err}
	}

	out := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		// Namespace is "Config.section.field"; drop the root type name.
		path := fe.Namespace()
		if i := strings.IndexByte(path, '.'); i >= 0 {
			path = path[i+1:]
		}

		if fe.Param() != "" {
			out = append(out, fmt.Errorf("%s: failed %q validation (%s), got %v", path, fe.Tag(), fe.Param(), fe.Value()))
		} else {
			out = append(out, fmt.Errorf("%s: failed %q validation", path, fe.Tag()))
		}
	}
	return out
}
