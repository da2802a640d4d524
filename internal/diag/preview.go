package diag

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/kballard/go-shellquote"

	"tapr/internal/execution"
)

// Previewer renders a location through an external program such as
// `bat --highlight-line {line} {file}`.
type Previewer struct {
	template []string
	executor execution.Executor
}

// NewPreviewer creates a new Previewer. An empty template disables previews.
func NewPreviewer(template string, executor execution.Executor) (*Previewer, error) {
	args, err := shellquote.Split(template)
	if err != nil {
		return nil, fmt.Errorf("parse preview template %q: %w", template, err)
	}
	return &Previewer{template: args, executor: executor}, nil
}

// Enabled reports whether a template is configured
func (p *Previewer) Enabled() bool {
	return p != nil && len(p.template) > 0
}

// Command substitutes {file} and {line} in every template argument
func (p *Previewer) Command(loc Location) execution.Command {
	r := strings.NewReplacer("{file}", loc.File, "{line}", strconv.Itoa(loc.Line))
	args := make([]string, len(p.template))
	for i, arg := range p.template {
		args[i] = r.Replace(arg)
	}
	return execution.Command{Args: args}
}

// Render runs the preview program and returns its stdout
func (p *Previewer) Render(ctx context.Context, loc Location) (string, error) {
	if !p.Enabled() {
		return "", nil
	}

	cmd := p.Command(loc)
	out, err := p.executor.Execute(ctx, cmd)
	if err != nil {
		return "", &execution.SpawnError{Stage: "preview", Command: cmd.String(), Err: err}
	}
	if out.ExitCode != 0 {
		return "", fmt.Errorf("preview %s exited with code %d: %s",
			cmd.String(), out.ExitCode, strings.TrimSpace(string(out.Stderr)))
	}
	return string(out.Stdout), nil
}
