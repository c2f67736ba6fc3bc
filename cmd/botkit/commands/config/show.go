package config

import (
	"fmt"

	"github.com/marmos91/botkit/internal/cli/output"
	"github.com/marmos91/botkit/pkg/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	showOutput string
	showReveal bool
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the effective configuration",
	Long: `Display the configuration botkit would run with: file values merged with
BOTKIT_* environment overrides and defaults. Secrets are masked unless
--reveal is given. The configuration is shown even when it does not validate.

Examples:
  botkit config show
  botkit config show --output json
  botkit config show --config /etc/botkit/config.yaml --reveal`,
	RunE: runConfigShow,
}

func init() {
	showCmd.Flags().StringVarP(&showOutput, "output", "o", "yaml", "Output format (yaml|json)")
	showCmd.Flags().BoolVar(&showReveal, "reveal", false, "Print secrets in clear text")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(showOutput)
	if err != nil {
		return err
	}

	cfg, err := config.Read(configPath(cmd))
	if err != nil {
		return err
	}

	data, err := config.Render(cfg, showReveal)
	if err != nil {
		return err
	}

	if format != output.FormatJSON {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to convert config: %w", err)
	}
	return output.NewPrinter(cmd.OutOrStdout(), output.FormatJSON, false).Print(doc)
}
