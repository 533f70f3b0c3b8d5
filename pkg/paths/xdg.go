// Package paths provides XDG-compliant path resolution for dock.
//
// Resolution order:
// 1. DOCK_HOME (portable root) → $DOCK_HOME/{config,state}
// 2. XDG env vars → $XDG_*_HOME/dock
// 3. Platform defaults → ~/.config/dock, ~/.local/state/dock
package paths

import (
	"os"
	"path/filepath"
)

const appDirName = "dock"

// getConfigHome returns the base config home directory.
func getConfigHome() string {
	if dockHome := os.Getenv("DOCK_HOME"); dockHome != "" {
		return filepath.Join(dockHome, "config")
	}
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return xdgConfigHome
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".config")
	}
	return ""
}

// getStateHome returns the base state home directory.
func getStateHome() string {
	if dockHome := os.Getenv("DOCK_HOME"); dockHome != "" {
		return filepath.Join(dockHome, "state")
	}
	if xdgStateHome := os.Getenv("XDG_STATE_HOME"); xdgStateHome != "" {
		return xdgStateHome
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".local", "state")
	}
	return ""
}

// ConfigDir returns the dock configuration directory.
// Used for the global dock.yml / dock.toml.
func ConfigDir() string {
	if dockHome := os.Getenv("DOCK_HOME"); dockHome != "" {
		return getConfigHome()
	}
	base := getConfigHome()
	if base == "" {
		return ""
	}
	return filepath.Join(base, appDirName)
}

// StateDir returns the dock state directory.
// Used for the pid file and logs.
func StateDir() string {
	if dockHome := os.Getenv("DOCK_HOME"); dockHome != "" {
		return getStateHome()
	}
	base := getStateHome()
	if base == "" {
		return ""
	}
	return filepath.Join(base, appDirName)
}

// LogDir returns the directory holding the daemon's own log files.
func LogDir() string {
	state := StateDir()
	if state == "" {
		return ""
	}
	return filepath.Join(state, "logs")
}

// PidFilePath returns the path to the dock daemon PID file.
func PidFilePath() string {
	return filepath.Join(StateDir(), "dockd.pid")
}

// EnsureDirs creates all dock directories if they don't exist.
func EnsureDirs() error {
	for _, dir := range []string{ConfigDir(), StateDir(), LogDir()} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
