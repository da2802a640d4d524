package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"tapr/internal/config"
	"tapr/internal/diag"
	"tapr/internal/execution"
	"tapr/internal/report"
	"tapr/internal/ui"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// ReportCommand handles the report command
type ReportCommand struct {
	config *config.Config
	out    io.Writer
}

// NewReportCommand creates a new ReportCommand
func NewReportCommand(cfg *config.Config, out io.Writer) *ReportCommand {
	return &ReportCommand{config: cfg, out: out}
}

// Execute runs the command
func (rc *ReportCommand) Execute(cmd *cobra.Command, args []string) error {
	s, err := newSession(rc.config)
	if err != nil {
		return err
	}

	formatter := ui.NewFormatter(rc.out, s.query)
	res, err := waitForRun(cmd.Context(), s.controller, ui.NewSpinner(os.Stderr))
	if err != nil {
		return err
	}

	if rc.config.Flags.JSONPath != "-" {
		formatter.PrintRun(res)
	}
	return finish(rc.config, res, s.query)
}

// waitForRun launches one cycle and follows it to the end
func waitForRun(ctx context.Context, controller *execution.Controller, spinner *ui.Spinner) (*execution.Results, error) {
	defer spinner.Finish()

	controller.Launch(ctx)
	ticker := time.NewTicker(ui.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			spinner.Tick()
		case u := <-controller.Updates():
			spinner.Update(u.State)
			switch u.State {
			case execution.Ready:
				return u.Results, nil
			case execution.Failed:
				return nil, u.Err
			}
		}
	}
}

// finish exports the run when asked to and turns failures into an error
func finish(cfg *config.Config, res *execution.Results, query *diag.Query) error {
	if path := cfg.Flags.JSONPath; path != "" {
		if err := report.Save(path, report.Build(res, query)); err != nil {
			return fmt.Errorf("failed to save test results: %w", err)
		}
		if path != "-" {
			color.Green("Results saved to %s", path)
		}
	}

	if len(res.Failures) > 0 {
		return fmt.Errorf("%d test failure(s)", len(res.Failures))
	}
	return nil
}
