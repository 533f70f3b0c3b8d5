package cmd

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/grovetools/dock/cli"
	"github.com/grovetools/dock/command"
	"github.com/grovetools/dock/config"
	"github.com/grovetools/dock/internal/daemon/engine"
	"github.com/grovetools/dock/internal/daemon/pidfile"
	"github.com/grovetools/dock/internal/daemon/server"
	"github.com/grovetools/dock/internal/daemon/store"
	"github.com/grovetools/dock/internal/daemon/watcher"
	"github.com/grovetools/dock/logging"
	"github.com/grovetools/dock/pkg/daemon"
	"github.com/grovetools/dock/pkg/paths"
	"github.com/grovetools/dock/util/pathutil"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dock daemon in the foreground",
		Long: `Run the dock daemon in the foreground. The daemon serves the HTTP API,
scans scan.root on startup and reloads configuration when dock.yml changes.

Examples:
  # Serve on the configured address
  dock serve

  # Serve on another port and scan ~/apps on startup
  dock serve --listen 127.0.0.1:9000 --root ~/apps`,
		RunE: runServe,
	}

	cmd.Flags().String("listen", "", "host:port to listen on (overrides server.listen)")
	cmd.Flags().String("root", "", "Directory scanned on startup (overrides scan.root)")

	return cmd
}

// serveOverrides reapplies command-line overrides on top of a loaded config
// so a reload does not drop them.
func serveOverrides(cmd *cobra.Command) func(*config.Config) error {
	listen, _ := cmd.Flags().GetString("listen")
	root, _ := cmd.Flags().GetString("root")
	return func(cfg *config.Config) error {
		if listen != "" {
			cfg.Server.Listen = listen
		}
		if root != "" {
			abs, err := pathutil.Expand(root)
			if err != nil {
				return err
			}
			cfg.Scan.Root = abs
		}
		return nil
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	opts := cli.GetOptions(cmd)
	logger := cli.GetLogger(cmd, "dockd")
	override := serveOverrides(cmd)

	load := func() (*config.Config, error) {
		cfg, err := cli.LoadConfig(opts)
		if err != nil {
			return nil, err
		}
		return cfg, override(cfg)
	}

	cfg, err := load()
	if err != nil {
		return err
	}

	if err := paths.EnsureDirs(); err != nil {
		return fmt.Errorf("failed to create dock directories: %w", err)
	}

	// 1. Bind first so the pid file records the real address.
	listener, err := net.Listen("tcp", cfg.Server.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Server.Listen, err)
	}

	// 2. Acquire lock
	pidPath := paths.PidFilePath()
	if err := pidfile.Acquire(pidPath, listener.Addr().String()); err != nil {
		listener.Close()
		return fmt.Errorf("failed to start: %w", err)
	}
	defer func() {
		if err := pidfile.Release(pidPath); err != nil {
			logger.Errorf("Failed to release pidfile: %v", err)
		}
	}()

	// 3. Store, engine and workers
	st := store.New(cfg.Launch.Interpreter)
	eng, err := engine.New(cfg, st, &command.RealExecutor{}, logger)
	if err != nil {
		listener.Close()
		return err
	}
	eng.Register(watcher.New(watcher.Options{
		Dirs:   watchDirs(cfg),
		Reload: load,
		Apply:  eng.ApplyConfig,
		Notify: st.BroadcastConfigReload,
		Logger: logger.WithField("subsystem", "watcher"),
	}))

	srv := server.New(eng, logger)

	// 4. Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engineDone := make(chan struct{})
	go func() {
		eng.Start(ctx)
		close(engineDone)
	}()

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(listener) }()

	logger.WithField("pid", os.Getpid()).WithField("addr", listener.Addr().String()).Info("Starting daemon")

	select {
	case err := <-serveErr:
		stop()
		<-engineDone
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("Received stop signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownGrace())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server shutdown error: %v", err)
	}
	<-engineDone
	return nil
}

// watchDirs returns the global config dir plus the directory of every file
// the configuration was loaded from.
func watchDirs(cfg *config.Config) []string {
	seen := map[string]bool{}
	var dirs []string
	add := func(dir string) {
		if dir == "" {
			return
		}
		key, err := pathutil.NormalizeForLookup(dir)
		if err != nil || seen[key] {
			return
		}
		seen[key] = true
		dirs = append(dirs, dir)
	}

	add(paths.ConfigDir())
	for _, src := range cfg.Sources {
		add(filepath.Dir(src))
	}
	return dirs
}

func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			pretty := logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout())

			running, info, err := pidfile.IsRunning(paths.PidFilePath())
			if err != nil {
				return fmt.Errorf("error checking status: %w", err)
			}
			if !running {
				pretty.InfoPretty("Daemon is not running")
				return nil
			}

			process, err := os.FindProcess(info.PID)
			if err != nil {
				return fmt.Errorf("failed to find process %d: %w", info.PID, err)
			}
			if err := process.Signal(syscall.SIGTERM); err != nil {
				return fmt.Errorf("failed to send stop signal: %w", err)
			}

			pretty.Success(fmt.Sprintf("Sent SIGTERM to process %d", info.PID))
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := cli.GetOptions(cmd)
			pretty := logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout())

			running, info, err := pidfile.IsRunning(paths.PidFilePath())
			if err != nil {
				return fmt.Errorf("error: %w", err)
			}

			if !running {
				if opts.JSONOutput {
					return printJSON(cmd, map[string]interface{}{"running": false})
				}
				pretty.InfoPretty("Stopped")
				os.Exit(1) // Non-zero for scripts
			}

			cfg, err := cli.LoadConfig(opts)
			if err != nil {
				return err
			}
			remote, err := daemon.Connect(cfg)
			if err != nil {
				return err
			}
			defer remote.Close()

			st, err := remote.State(cmd.Context())
			if err != nil {
				return err
			}

			if opts.JSONOutput {
				return printJSON(cmd, map[string]interface{}{
					"running": true,
					"pid":     info.PID,
					"addr":    info.Addr,
					"state":   st,
				})
			}

			pretty.Success("Running")
			pretty.Field("PID", info.PID)
			pretty.Field("Address", info.Addr)
			pretty.Field("Interpreter", st.Interpreter)
			pretty.Field("Last launched", st.LastLaunched)
			if st.ScanRoot != "" {
				pretty.Path("Scan root", st.ScanRoot)
				pretty.Field("Apps", st.Apps.Len())
			}
			return nil
		},
	}
}
