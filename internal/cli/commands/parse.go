package commands

import (
	"fmt"
	"io"
	"os"
	"time"

	"tapr/internal/config"
	"tapr/internal/execution"
	"tapr/internal/tap"
	"tapr/internal/ui"

	"github.com/spf13/cobra"
)

// ParseCommand handles the parse command
type ParseCommand struct {
	config *config.Config
	out    io.Writer
	stdin  io.Reader
}

// NewParseCommand creates a new ParseCommand
func NewParseCommand(cfg *config.Config, out io.Writer) *ParseCommand {
	return &ParseCommand{config: cfg, out: out, stdin: os.Stdin}
}

// Execute runs the command
func (pc *ParseCommand) Execute(cmd *cobra.Command, args []string) error {
	name := "-"
	if len(args) > 0 {
		name = args[0]
	}

	var r io.Reader = pc.stdin
	if name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return fmt.Errorf("open TAP file: %w", err)
		}
		defer f.Close()
		r = f
	}

	start := time.Now()
	tree, err := tap.Parse(r)
	if err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}

	query, err := compileQuery(pc.config)
	if err != nil {
		return err
	}

	res := &execution.Results{
		Tree:       tree,
		Failures:   tap.IndexFailures(tree),
		Command:    "parse " + name,
		Duration:   time.Since(start),
		FinishedAt: time.Now(),
	}
	if pc.config.Flags.JSONPath != "-" {
		ui.NewFormatter(pc.out, query).PrintRun(res)
	}
	return finish(pc.config, res, query)
}
