package diag

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tapr/internal/execution"
)

type recordingExecutor struct {
	got execution.Command
	out execution.Output
	err error
}

func (r *recordingExecutor) Execute(_ context.Context, cmd execution.Command) (execution.Output, error) {
	r.got = cmd
	return r.out, r.err
}

func TestPreviewer_Render(t *testing.T) {
	exec := &recordingExecutor{out: execution.Output{Stdout: []byte("\x1b[31m42\x1b[0m  panic!()")}}
	p, err := NewPreviewer(`bat --color=always --highlight-line {line} -r "{line}:" {file}`, exec)
	require.NoError(t, err)
	require.True(t, p.Enabled())

	out, err := p.Render(context.Background(), Location{File: "src/my file.rs", Line: 42})
	require.NoError(t, err)
	assert.Equal(t, "\x1b[31m42\x1b[0m  panic!()", out)
	assert.Equal(t, []string{"bat", "--color=always", "--highlight-line", "42", "-r", "42:", "src/my file.rs"}, exec.got.Args)
}

func TestPreviewer_Disabled(t *testing.T) {
	exec := &recordingExecutor{}
	p, err := NewPreviewer("", exec)
	require.NoError(t, err)
	assert.False(t, p.Enabled())

	out, err := p.Render(context.Background(), Location{File: "a.go", Line: 1})
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Nil(t, exec.got.Args)

	var nilPreviewer *Previewer
	assert.False(t, nilPreviewer.Enabled())
}

func TestPreviewer_Errors(t *testing.T) {
	_, err := NewPreviewer(`bat "{file}`, nil)
	assert.Error(t, err)

	exec := &recordingExecutor{err: errors.New("not found")}
	p, err := NewPreviewer("bat {file}", exec)
	require.NoError(t, err)
	_, err = p.Render(context.Background(), Location{File: "a.go", Line: 1})
	var spawnErr *execution.SpawnError
	assert.ErrorAs(t, err, &spawnErr)

	exec = &recordingExecutor{out: execution.Output{ExitCode: 1, Stderr: []byte("a.go: No such file\n")}}
	p, err = NewPreviewer("bat {file}", exec)
	require.NoError(t, err)
	_, err = p.Render(context.Background(), Location{File: "a.go", Line: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No such file")
}
