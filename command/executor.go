// Package command runs the external helpers arcade shells out to: the
// desktop notifier and the URL opener.
package command

import (
	"context"
	"os/exec"
)

// Executor creates exec.Cmd instances so tests can substitute the program
// that actually runs.
type Executor interface {
	Command(name string, args ...string) *exec.Cmd
	CommandContext(ctx context.Context, name string, args ...string) *exec.Cmd
}

// RealExecutor uses os/exec directly.
type RealExecutor struct{}

func (e *RealExecutor) Command(name string, args ...string) *exec.Cmd {
	return exec.Command(name, args...)
}

func (e *RealExecutor) CommandContext(ctx context.Context, name string, args ...string) *exec.Cmd {
	return exec.CommandContext(ctx, name, args...)
}
