package execution

import (
	"context"
	"fmt"
	"time"

	"github.com/kballard/go-shellquote"
)

// Command is a program and its arguments
type Command struct {
	Args []string
}

// ParseCommand splits a shell-style command string into a Command
func ParseCommand(s string) (Command, error) {
	args, err := shellquote.Split(s)
	if err != nil {
		return Command{}, fmt.Errorf("parse command %q: %w", s, err)
	}
	if len(args) == 0 {
		return Command{}, fmt.Errorf("empty command")
	}
	return Command{Args: args}, nil
}

// String quotes the command back into a single line
func (c Command) String() string {
	return shellquote.Join(c.Args...)
}

// Output is everything a finished process left behind
type Output struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Duration time.Duration
}

// Executor runs a command to completion. A non-zero exit is reported through
// Output.ExitCode; the error is reserved for processes that could not run.
type Executor interface {
	Execute(ctx context.Context, cmd Command) (Output, error)
}
