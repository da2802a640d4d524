package ui

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"tapr/internal/execution"
)

// Spinner shows the controller state while a run is in flight
type Spinner struct {
	bar *progressbar.ProgressBar
}

// NewSpinner creates a new spinner writing to w
func NewSpinner(w io.Writer) *Spinner {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString("Starting")),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWriter(w),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(w, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)

	return &Spinner{bar: bar}
}

// Update describes the current state
func (s *Spinner) Update(state execution.State) {
	s.bar.Describe(color.CyanString("%s: ", stateLabel(state)))
}

// Tick advances the animation
func (s *Spinner) Tick() {
	s.bar.Add(1)
}

// Finish completes the spinner
func (s *Spinner) Finish() {
	s.bar.Finish()
}

func stateLabel(state execution.State) string {
	switch state {
	case execution.Building:
		return "Building"
	case execution.Running:
		return "Running tests"
	case execution.Parsing:
		return "Parsing TAP"
	default:
		return state.String()
	}
}
