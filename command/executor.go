package command

import (
	"context"
	"os/exec"
)

// Executor creates exec.Cmd instances. Tests swap in an implementation that
// runs scripted stand-ins instead of a real interpreter.
type Executor interface {
	Command(name string, args ...string) *exec.Cmd
	CommandContext(ctx context.Context, name string, args ...string) *exec.Cmd
}

// RealExecutor creates commands with os/exec.
type RealExecutor struct{}

func (e *RealExecutor) Command(name string, args ...string) *exec.Cmd {
	return exec.Command(name, args...)
}

func (e *RealExecutor) CommandContext(ctx context.Context, name string, args ...string) *exec.Cmd {
	return exec.CommandContext(ctx, name, args...)
}
