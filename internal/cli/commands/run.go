package commands

import (
	"tapr/internal/config"
	"tapr/internal/nav"
	"tapr/internal/ui"

	"github.com/spf13/cobra"
)

// RunCommand handles the run command
type RunCommand struct {
	config *config.Config
}

// NewRunCommand creates a new RunCommand
func NewRunCommand(cfg *config.Config) *RunCommand {
	return &RunCommand{config: cfg}
}

// Execute runs the command
func (rc *RunCommand) Execute(cmd *cobra.Command, args []string) error {
	s, err := newSession(rc.config)
	if err != nil {
		return err
	}

	viewer := ui.NewViewer(s.controller, nav.NewBrowser(s.query), s.previewer, s.query)
	return viewer.Run(cmd.Context())
}
