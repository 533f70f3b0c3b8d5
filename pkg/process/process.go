// Package process holds the small amount of OS process plumbing dock needs:
// liveness checks for the daemon pid file and detaching launched apps from
// the daemon's process group.
package process

import (
	"os"
	"syscall"
)

// IsProcessAlive checks if a process with the given PID is still running.
// Signal 0 probes for existence without delivering anything; EPERM still
// means the process exists.
func IsProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	err = process.Signal(syscall.Signal(0))
	return err == nil || os.IsPermission(err)
}
