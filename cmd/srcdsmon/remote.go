package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/loykin/srcdsmon/pkg/client"
	"github.com/spf13/cobra"
)

// RemoteFlags selects the status API of a running monitor.
type RemoteFlags struct {
	APIUrl     string
	APITimeout time.Duration
}

func addRemoteFlags(cmd *cobra.Command, flags *RemoteFlags) {
	cmd.Flags().StringVar(&flags.APIUrl, "api-url", client.DefaultConfig().BaseURL, "monitor API URL (api.listen plus api.base_path)")
	cmd.Flags().DurationVar(&flags.APITimeout, "api-timeout", 10*time.Second, "request timeout")
}

func newRemoteClient(flags *RemoteFlags) *client.Client {
	return client.New(client.Config{BaseURL: flags.APIUrl, Timeout: flags.APITimeout})
}

func createStatusCommand() *cobra.Command {
	flags := &RemoteFlags{}
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the state of a running monitor",
		Long: `Query the status API of a running srcdsmon. Requires api.listen to be set.

Examples:
  srcdsmon status --api-url=http://127.0.0.1:8080/api`,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := newRemoteClient(flags).Status(cmdContext(cmd))
			if err != nil {
				return err
			}
			return printJSON(cmd, st)
		},
	}
	addRemoteFlags(cmd, flags)
	return cmd
}

func createRestartCommand() *cobra.Command {
	flags := &RemoteFlags{}
	cmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart the server of a running monitor",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := newRemoteClient(flags).Restart(cmdContext(cmd)); err != nil {
				return err
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "restart requested")
			return err
		},
	}
	addRemoteFlags(cmd, flags)
	return cmd
}

func createShowDataCommand() *cobra.Command {
	flags := &RemoteFlags{}
	cmd := &cobra.Command{
		Use:   "showdata",
		Short: "Print the startup script a running monitor holds",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := newRemoteClient(flags).Config(cmdContext(cmd))
			if err != nil {
				return err
			}
			return printJSON(cmd, cfg)
		},
	}
	addRemoteFlags(cmd, flags)
	return cmd
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
