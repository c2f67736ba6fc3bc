package config

import (
	"fmt"

	"github.com/marmos91/botkit/pkg/config"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the botkit configuration file.

Checks for syntax errors, missing required fields, and invalid values.

Examples:
  botkit config validate
  botkit config validate --config /etc/botkit/config.yaml`,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	path := configPath(cmd)
	cfg, err := config.MustLoad(path)
	if err != nil {
		return err
	}
	if path == "" {
		path = config.GetDefaultConfigPath()
	}

	var warnings []string
	if !cfg.Admin.Enabled {
		warnings = append(warnings, "admin panel disabled")
	}
	if cfg.APIClient.BaseURL == "" {
		warnings = append(warnings, "external API not configured - sync-items job will not run")
	}
	if !cfg.Storage.S3.Enabled() {
		warnings = append(warnings, "object storage not configured - export-snapshot job will not run")
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Configuration file: %s\n", path)
	fmt.Fprintln(out, "Validation: OK")

	if len(warnings) > 0 {
		fmt.Fprintln(out, "\nWarnings:")
		for _, w := range warnings {
			fmt.Fprintf(out, "  - %s\n", w)
		}
	}

	fmt.Fprintf(out, "\nConfiguration summary:\n")
	fmt.Fprintf(out, "  Database type:   %s\n", cfg.Database.Type)
	fmt.Fprintf(out, "  API port:        %d\n", cfg.Server.Port)
	fmt.Fprintf(out, "  Metrics:         %t\n", cfg.Metrics.Enabled)
	fmt.Fprintf(out, "  Scheduler:       %t\n", cfg.Scheduler.Enabled)
	fmt.Fprintf(out, "  Log level:       %s\n", cfg.Logging.Level)

	return nil
}
