package config

import (
	"fmt"

	"github.com/marmos91/botkit/pkg/config"
	"github.com/spf13/cobra"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `Write a default botkit configuration file.

By default the file is created at $XDG_CONFIG_HOME/botkit/config.yaml.
Use --config to pick another path.

Examples:
  botkit config init
  botkit config init --config /etc/botkit/config.yaml --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	path := configPath(cmd)

	var err error
	if path != "" {
		_, err = config.InitConfigToPath(path, initForce)
	} else {
		path, err = config.InitConfig(initForce)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Configuration file created at: %s\n", path)
	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintln(out, "  1. Set bot.token (or export BOTKIT_BOT_TOKEN)")
	fmt.Fprintln(out, "  2. Start the bot with: botkit start")
	fmt.Fprintf(out, "  3. Or specify the config: botkit start --config %s\n", path)
	return nil
}
