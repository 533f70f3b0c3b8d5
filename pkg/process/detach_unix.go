//go:build !windows

package process

import (
	"os/exec"
	"syscall"
)

// Detach puts the command in its own process group so that signals aimed at
// the daemon (Ctrl-C, SIGTERM on shutdown) do not reach launched apps.
func Detach(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}
