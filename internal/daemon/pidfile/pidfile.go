// Package pidfile records the running daemon's PID and listen address.
package pidfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/grovetools/dock/pkg/process"
)

// Info is the content of a pid file: the PID on the first line and the
// listen address on the second.
type Info struct {
	PID  int
	Addr string
}

// Acquire writes the current PID and addr to path. It fails if another
// live daemon owns the file; a stale file is replaced.
func Acquire(path, addr string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create pid directory: %w", err)
	}

	if info, err := Read(path); err == nil {
		if info.PID != os.Getpid() && process.IsProcessAlive(info.PID) {
			return fmt.Errorf("daemon already running with PID %d on %s", info.PID, info.Addr)
		}
		_ = os.Remove(path)
	}

	content := fmt.Sprintf("%d\n%s\n", os.Getpid(), addr)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write pid file: %w", err)
	}

	return nil
}

// Release removes the PID file.
func Release(path string) error {
	return os.Remove(path)
}

// Read parses the pid file. A missing address line yields an empty Addr.
func Read(path string) (Info, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Info{}, err
	}

	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	pid, err := strconv.Atoi(strings.TrimSpace(lines[0]))
	if err != nil {
		return Info{}, fmt.Errorf("invalid pid file %s: %w", path, err)
	}

	info := Info{PID: pid}
	if len(lines) > 1 {
		info.Addr = strings.TrimSpace(lines[1])
	}
	return info, nil
}

// IsRunning checks if the daemon described by the pidfile is active.
func IsRunning(path string) (bool, Info, error) {
	info, err := Read(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, Info{}, nil
		}
		return false, Info{}, err
	}
	return process.IsProcessAlive(info.PID), info, nil
}
