package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tapr/internal/cli"
	"tapr/internal/config"
)

func init() {
	color.NoColor = true
}

const failingTAP = `TAP version 14
1..2
ok 1 - first
not ok 2 - second
  ---
  at: lib/second.js:4:2
  ...
`

func testCommand() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	return cmd
}

func TestParseCommand_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.tap")
	require.NoError(t, os.WriteFile(path, []byte(failingTAP), 0o644))

	var out bytes.Buffer
	cfg := config.New()
	err := NewParseCommand(cfg, &out).Execute(testCommand(), []string{path})

	require.Error(t, err)
	assert.Equal(t, "1 test failure(s)", err.Error())
	assert.Contains(t, out.String(), "1. 2 - second  lib/second.js:4:2")
}

func TestParseCommand_StdinAndJSON(t *testing.T) {
	jsonPath := filepath.Join(t.TempDir(), "out", "run.json")
	cfg := config.New()
	cfg.Flags.JSONPath = jsonPath

	var out bytes.Buffer
	pc := NewParseCommand(cfg, &out)
	pc.stdin = strings.NewReader("1..1\nok 1 - fine\n")

	require.NoError(t, pc.Execute(testCommand(), nil))
	assert.Contains(t, out.String(), "All tests passed")

	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var doc struct {
		Meta struct {
			Total  int `json:"total"`
			Passed int `json:"passed"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, 1, doc.Meta.Total)
	assert.Equal(t, 1, doc.Meta.Passed)
}

func TestParseCommand_Errors(t *testing.T) {
	cfg := config.New()
	pc := NewParseCommand(cfg, &bytes.Buffer{})

	err := pc.Execute(testCommand(), []string{filepath.Join(t.TempDir(), "missing.tap")})
	assert.Error(t, err)

	pc.stdin = strings.NewReader("ok 1\n\xfe\n")
	err = pc.Execute(testCommand(), nil)
	assert.Error(t, err)

	cfg.LocationQuery = "not a query"
	pc.stdin = strings.NewReader("ok 1\n")
	err = pc.Execute(testCommand(), nil)
	assert.ErrorContains(t, err, "location query")
}

func TestReportCommand_Execute(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "out.tap"), []byte(failingTAP), 0o644))

	cfg := config.New()
	cfg.WorkDir = dir
	cfg.TestCommand = "cat out.tap"

	var out bytes.Buffer
	err := NewReportCommand(cfg, &out).Execute(testCommand(), nil)
	require.Error(t, err)
	assert.Equal(t, "1 test failure(s)", err.Error())
	assert.Contains(t, out.String(), "Test Execution Statistics")
	assert.Contains(t, out.String(), "2 - second")
}

func TestReportCommand_BuildFailure(t *testing.T) {
	cfg := config.New()
	cfg.WorkDir = t.TempDir()
	cfg.BuildCommand = `sh -c "echo broken >&2; exit 3"`
	cfg.TestCommand = "echo 'ok 1'"

	var out bytes.Buffer
	err := NewReportCommand(cfg, &out).Execute(testCommand(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exit code 3")
	assert.Contains(t, err.Error(), "broken")
	assert.Empty(t, out.String())
}

func TestReportCommand_NoTestCommand(t *testing.T) {
	err := NewReportCommand(config.New(), &bytes.Buffer{}).Execute(testCommand(), nil)
	assert.ErrorIs(t, err, errNoTestCommand)
}

func TestRegister_MergesFlagsAndArgsAfterDash(t *testing.T) {
	dir := t.TempDir()
	root := &cobra.Command{Use: "tapr", SilenceUsage: true, SilenceErrors: true}
	cfg := config.New()
	var flags cli.Flags
	cmds := NewCommands(cfg)
	cmds.Register(root, &flags, cfg)
	t.Cleanup(func() { cmds.Close() })

	var captured *config.Config
	for _, c := range root.Commands() {
		if c.Name() == "report" {
			c.RunE = func(*cobra.Command, []string) error {
				snapshot := *cfg
				captured = &snapshot
				return nil
			}
		}
	}

	root.SetArgs([]string{"report", "--dir", dir, "-b", "make", "--", "node", "--test", "a b.js"})
	require.NoError(t, root.Execute())
	require.NotNil(t, captured)
	assert.Equal(t, dir, captured.WorkDir)
	assert.Equal(t, "make", captured.BuildCommand)
	assert.Equal(t, "node --test 'a b.js'", captured.TestCommand)
}
