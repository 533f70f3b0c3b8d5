package cmd

import (
	"fmt"

	"github.com/grovetools/dock/cli"
	"github.com/grovetools/dock/config"
	"github.com/grovetools/dock/pkg/paths"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect dock configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the merged configuration and the files it came from",
		Long: `Print the configuration dock would use here. The global config
($XDG_CONFIG_HOME/dock/dock.yml) is merged under the nearest project
dock.yml; defaults fill everything else.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cli.GetOptions(cmd))
			if err != nil {
				return err
			}

			if cli.GetOptions(cmd).JSONOutput {
				return printJSON(cmd, cfg)
			}

			out := cmd.OutOrStdout()
			if len(cfg.Sources) == 0 {
				fmt.Fprintln(out, "# Source: defaults")
			}
			for _, src := range cfg.Sources {
				fmt.Fprintf(out, "# Source: %s\n", src)
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to render configuration: %w", err)
			}
			fmt.Fprint(out, string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema for dock.yml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, err := config.GenerateSchema()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(schema))
			return nil
		},
	})

	return cmd
}

// PathsOutput lists the directories and files dock uses.
type PathsOutput struct {
	ConfigDir string `json:"config_dir"`
	StateDir  string `json:"state_dir"`
	LogDir    string `json:"log_dir"`
	PidFile   string `json:"pid_file"`
}

func newPathsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print the paths dock uses as JSON",
		Long: `Print the paths dock uses as JSON:
- config_dir: global dock.yml
- state_dir: runtime state
- log_dir: component log files
- pid_file: daemon pid and address`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printJSON(cmd, PathsOutput{
				ConfigDir: paths.ConfigDir(),
				StateDir:  paths.StateDir(),
				LogDir:    paths.LogDir(),
				PidFile:   paths.PidFilePath(),
			})
		},
	}
}
