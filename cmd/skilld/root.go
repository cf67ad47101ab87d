package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootOptions are the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
}

func buildRootCmd() *cobra.Command {
	opts := &rootOptions{configPath: os.Getenv("SKILLD_CONFIG")}
	root := &cobra.Command{
		Use:           "skilld",
		Short:         "Skill host: discovers, hot-reloads and routes to voice assistant skills",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", opts.configPath, "Config file (.yaml, .json or .toml; defaults SKILLD_CONFIG)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug|info|warn|error (overrides config)")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "Log format: console|json (overrides config)")

	root.AddCommand(buildServeCmd(opts))
	root.AddCommand(buildCtlCmd())
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "skilld", version)
		},
	})
	return root
}
