package commands

import (
	"errors"
	"fmt"
	"log/slog"

	"tapr/internal/config"
	"tapr/internal/diag"
	"tapr/internal/execution"
)

var errNoTestCommand = errors.New("no test command configured, set --cmd, TAPR_CMD or pass it after --")

// session wires the run dependencies from a merged config
type session struct {
	query      *diag.Query
	runner     *execution.Runner
	controller *execution.Controller
	previewer  *diag.Previewer
}

func newSession(cfg *config.Config) (*session, error) {
	if cfg.TestCommand == "" {
		return nil, errNoTestCommand
	}
	test, err := execution.ParseCommand(cfg.TestCommand)
	if err != nil {
		return nil, fmt.Errorf("test command: %w", err)
	}

	var build *execution.Command
	if cfg.BuildCommand != "" {
		b, err := execution.ParseCommand(cfg.BuildCommand)
		if err != nil {
			return nil, fmt.Errorf("build command: %w", err)
		}
		build = &b
	}

	query, err := compileQuery(cfg)
	if err != nil {
		return nil, err
	}

	env, err := cfg.Environ()
	if err != nil {
		return nil, err
	}

	logger := slog.Default()
	runner := execution.NewRunner(cfg.GetWorkDir(), env)
	runner.SetLogger(logger)

	controller := execution.NewController(runner, build, test)
	controller.SetLogger(logger)

	previewer, err := diag.NewPreviewer(cfg.PreviewCommand, runner)
	if err != nil {
		return nil, err
	}

	return &session{query: query, runner: runner, controller: controller, previewer: previewer}, nil
}

func compileQuery(cfg *config.Config) (*diag.Query, error) {
	query, err := diag.Compile(cfg.LocationQuery)
	if err != nil {
		return nil, fmt.Errorf("location query: %w", err)
	}
	return query, nil
}
