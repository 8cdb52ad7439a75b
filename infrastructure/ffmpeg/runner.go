package ffmpeg

import (
	"context"
	"io"
	"os/exec"
)

// CommandRunner defines the interface for running external commands
// This allows mocking exec.Command in tests
type CommandRunner interface {
	// Run executes the command with stdout and stderr both sent to out
	Run(ctx context.Context, out io.Writer, name string, args ...string) error
	// LookPath resolves name against PATH
	LookPath(name string) (string, error)
}

// ExecCommandRunner is the production implementation using os/exec
type ExecCommandRunner struct{}

// Run executes a command and returns any error
func (r *ExecCommandRunner) Run(ctx context.Context, out io.Writer, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = out
	cmd.Stderr = out
	return cmd.Run()
}

// LookPath resolves an executable on PATH
func (r *ExecCommandRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}
