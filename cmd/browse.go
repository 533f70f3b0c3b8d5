package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/grovetools/dock/logging"
	"github.com/grovetools/dock/pkg/apps"
	"github.com/grovetools/dock/pkg/daemon"
	"github.com/grovetools/dock/tui"
	"github.com/grovetools/dock/tui/picker"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

func newBrowseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "browse [dir]",
		Short: "Pick an app interactively and launch it",
		Long: `Open an interactive list of the apps in a folder. Press enter to launch the
selected app, / to filter, r to rescan and q to quit.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isatty.IsTerminal(os.Stdout.Fd()) {
				return fmt.Errorf("browse needs an interactive terminal; use 'dock scan' instead")
			}

			client, cfg, err := openClient(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			root, err := scanRoot(args, cfg)
			if err != nil {
				return err
			}
			index, err := client.ScanDirectory(cmd.Context(), root)
			if err != nil {
				return err
			}

			// Log lines on stderr would tear the alternate screen.
			prev := logging.SetStderrOutput(io.Discard)
			defer logging.SetStderrOutput(prev)

			tui.InitializeTUI()
			model := picker.New(picker.Config{
				Root:   root,
				Index:  index,
				Launch: launchWith(client),
				Rescan: func(ctx context.Context) (apps.CategoryIndex, error) {
					return client.ScanDirectory(ctx, root)
				},
			})

			_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
			return err
		},
	}
}

func launchWith(client daemon.Client) picker.LaunchFunc {
	return func(ctx context.Context, app apps.AppDescriptor) (string, string, error) {
		framework := app.Framework
		resp, err := client.RunApp(ctx, daemon.RunRequest{
			Name:      app.Name,
			Path:      app.Path,
			Framework: &framework,
		})
		if err != nil {
			return "", "", err
		}
		return resp.Message, resp.Address, nil
	}
}
