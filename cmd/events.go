package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/grovetools/dock/cli"
	"github.com/grovetools/dock/pkg/daemon"
	"github.com/grovetools/dock/tui/theme"
	"github.com/spf13/cobra"
)

func newEventsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "Stream state changes from the running daemon",
		Long: `Stream state changes from the running daemon until interrupted. The first
event carries the full state. Requires 'dock serve'.

Examples:
  dock events
  dock events --json | jq .type`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := cli.GetOptions(cmd)
			cfg, err := cli.LoadConfig(opts)
			if err != nil {
				return err
			}

			remote, err := daemon.Connect(cfg)
			if err != nil {
				return err
			}
			defer remote.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			updates, err := remote.Events(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for u := range updates {
				if opts.JSONOutput {
					data, err := json.Marshal(u)
					if err != nil {
						continue
					}
					fmt.Fprintln(out, string(data))
					continue
				}

				payload, _ := json.Marshal(u.Payload)
				fmt.Fprintf(out, "%s %s %s\n",
					theme.DefaultTheme.Accent.Render(string(u.Type)),
					theme.DefaultTheme.Muted.Render(u.Source),
					string(payload))
			}
			return nil
		},
	}
}
