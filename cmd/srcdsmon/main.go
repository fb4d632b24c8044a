package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	root := buildRoot()
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// RootFlags holds the persistent flags of the monitor.
type RootFlags struct {
	WorkDir    string
	ConfigPath string
	LogLevel   string
}

func buildRoot() *cobra.Command {
	flags := &RootFlags{}
	root := &cobra.Command{
		Use:   "srcdsmon",
		Short: "Game server monitor and restarter",
		Long: `srcdsmon starts a dedicated game server, watches it for crashes and freezes,
and restarts it. Server parameters are read from server_config.txt and
server_crashed.txt in the work directory.

Examples:
  srcdsmon                          # monitor using the current directory
  srcdsmon --workdir=/srv/tf2       # monitor a server installed elsewhere
  srcdsmon --config=srcdsmon.toml --log-level=debug`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmdContext(cmd), flags, cmd.OutOrStdout())
		},
	}

	root.PersistentFlags().StringVar(&flags.WorkDir, "workdir", "", "directory holding server_config.txt (default: current directory)")
	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to TOML monitor settings (optional)")
	root.PersistentFlags().StringVar(&flags.LogLevel, "log-level", "", "override log.level (debug, info, warn, error)")

	root.AddCommand(
		createStatusCommand(),
		createRestartCommand(),
		createShowDataCommand(),
		createVersionCommand(),
	)
	return root
}

func createVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the srcdsmon version",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "srcdsmon %s\n", version)
			return err
		},
	}
}
