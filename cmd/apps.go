package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/grovetools/dock/cli"
	"github.com/grovetools/dock/config"
	"github.com/grovetools/dock/errors"
	"github.com/grovetools/dock/logging"
	"github.com/grovetools/dock/pkg/apps"
	"github.com/grovetools/dock/pkg/daemon"
	"github.com/grovetools/dock/util/pathutil"
	"github.com/spf13/cobra"
)

// openClient loads configuration and returns a daemon client, falling back
// to an in-process one when no daemon answers.
func openClient(cmd *cobra.Command) (daemon.Client, *config.Config, error) {
	cfg, err := cli.LoadConfig(cli.GetOptions(cmd))
	if err != nil {
		return nil, nil, err
	}

	logger := cli.GetLogger(cmd, "dock")
	client, err := daemon.New(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	if !client.IsRunning() {
		logger.Debug("Daemon not reachable, running in-process")
	}
	return client, cfg, nil
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// scanRoot picks the directory to scan: the argument, then scan.root, then
// the working directory.
func scanRoot(args []string, cfg *config.Config) (string, error) {
	root := cfg.Scan.Root
	if len(args) > 0 {
		root = args[0]
	}
	if root == "" {
		return os.Getwd()
	}
	return pathutil.Expand(root)
}

func newScanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan [dir]",
		Short: "List the apps in a folder grouped by category",
		Long: `Scan a folder for app directories named <category>-<name> and print them
grouped by category. Underscores in names are shown as spaces.

Examples:
  dock scan ~/apps
  dock scan --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			if cli.GetOptions(cmd).JSONOutput {
				return printJSON(cmd, map[string]interface{}{
					"message":   "Folder processed successfully",
					"structure": index,
				})
			}
			printIndex(logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout()), root, index)
			return nil
		},
	}
}

func printIndex(pretty *logging.PrettyLogger, root string, index apps.CategoryIndex) {
	pretty.Path("Root", root)
	if index.Len() == 0 {
		pretty.WarnPretty("No apps found")
		return
	}
	for _, category := range index.Categories() {
		pretty.Heading(category)
		for _, app := range index[category] {
			note := app.Path
			if app.Framework {
				note += " (framework)"
			}
			pretty.Item(app.Name, note)
		}
	}
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <app-dir>",
		Short: "Launch one app",
		Long: `Launch the entry point of an app folder. Apps whose name contains the
framework keyword are started in framework mode and dock waits for the
address they announce. Use --framework or --plain to choose explicitly.

Examples:
  dock run ~/apps/viz-streamlit_map
  dock run ~/apps/tools-csv_cleaner --name "CSV cleaner" --plain`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := openClient(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			path, err := pathutil.Expand(args[0])
			if err != nil {
				return errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid app path")
			}

			req := daemon.RunRequest{Path: path}
			req.Name, _ = cmd.Flags().GetString("name")
			if cmd.Flags().Changed("framework") || cmd.Flags().Changed("plain") {
				framework, _ := cmd.Flags().GetBool("framework")
				plain, _ := cmd.Flags().GetBool("plain")
				if framework && plain {
					return errors.New(errors.ErrCodeInvalidInput, "--framework and --plain are mutually exclusive")
				}
				mode := framework && !plain
				req.Framework = &mode
			}

			resp, err := client.RunApp(cmd.Context(), req)
			if err != nil {
				return err
			}

			if cli.GetOptions(cmd).JSONOutput {
				return printJSON(cmd, resp)
			}
			pretty := logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout())
			pretty.Success(resp.Message)
			if resp.Address != "" {
				pretty.Field("URL", resp.Address)
			}
			pretty.Field("PID", resp.PID)
			return nil
		},
	}

	cmd.Flags().String("name", "", "Name recorded as the last launched app (default: derived from the folder)")
	cmd.Flags().Bool("framework", false, "Launch in framework mode and wait for the address")
	cmd.Flags().Bool("plain", false, "Launch the entry point directly without waiting")

	return cmd
}

func newLastCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "last",
		Short: "Print the last successfully launched app",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := openClient(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			last, err := client.LastLaunched(cmd.Context())
			if err != nil {
				return err
			}
			if cli.GetOptions(cmd).JSONOutput {
				return printJSON(cmd, map[string]string{"last_used_app": last})
			}
			fmt.Fprintln(cmd.OutOrStdout(), last)
			return nil
		},
	}
}

func newInterpreterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "interpreter",
		Short: "Show or change the interpreter used to launch apps",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the interpreter path in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := openClient(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			st, err := client.State(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), st.Interpreter)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <path>",
		Short: "Use another interpreter for later launches",
		Long: `Replace the interpreter used for later launches. The path must exist.
Without a running daemon the change only lasts for this command.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := openClient(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			if err := client.SetInterpreter(cmd.Context(), args[0]); err != nil {
				return err
			}
			pretty := logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout())
			pretty.Success("Python interpreter path updated successfully")
			if !client.IsRunning() {
				pretty.WarnPretty("Daemon not running; set launch.interpreter in dock.yml to keep this path")
			}
			return nil
		},
	})

	return cmd
}
