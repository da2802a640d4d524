package execution

import (
	"errors"
	"fmt"
)

// ErrBuildFailed matches any BuildError.
var ErrBuildFailed = errors.New("build failed")

// SpawnError is returned when a build or test command could not be started.
type SpawnError struct {
	Stage   string
	Command string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("start %s command %q: %v", e.Stage, e.Command, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// BuildError is returned when the build command exits non-zero.
type BuildError struct {
	ExitCode int
	Stderr   string
}

func (e *BuildError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("build failed with exit code %d", e.ExitCode)
	}
	return fmt.Sprintf("build failed with exit code %d: %s", e.ExitCode, e.Stderr)
}

func (e *BuildError) Unwrap() error {
	return ErrBuildFailed
}
