package execution

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"
)

// Runner executes commands as child processes
type Runner struct {
	dir    string
	env    []string
	logger *slog.Logger
}

// NewRunner creates a new Runner. Commands run in dir with env appended to
// the current environment.
func NewRunner(dir string, env []string) *Runner {
	return &Runner{dir: dir, env: env, logger: slog.Default()}
}

// SetLogger sets the logger used for process lifecycle messages
func (r *Runner) SetLogger(logger *slog.Logger) {
	r.logger = logger
}

// Execute runs cmd and waits for it to exit, capturing stdout and stderr separately
func (r *Runner) Execute(ctx context.Context, cmd Command) (Output, error) {
	if len(cmd.Args) == 0 {
		return Output{}, fmt.Errorf("empty command")
	}

	c := exec.CommandContext(ctx, cmd.Args[0], cmd.Args[1:]...)

	// Set environment variables
	c.Env = os.Environ()
	c.Env = append(c.Env, r.env...)

	// Set working directory
	c.Dir = r.dir

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	r.logger.Debug("starting process", "command", cmd.String(), "dir", r.dir)
	start := time.Now()
	err := c.Run()
	out := Output{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		out.ExitCode = exitErr.ExitCode()
	default:
		return out, err
	}

	r.logger.Debug("process exited", "command", cmd.String(), "exit_code", out.ExitCode,
		"duration", out.Duration, "stdout_bytes", len(out.Stdout), "stderr_bytes", len(out.Stderr))
	return out, nil
}
