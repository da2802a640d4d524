package ui

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tapr/internal/diag"
	"tapr/internal/execution"
	"tapr/internal/tap"
)

func init() {
	color.NoColor = true
}

func formatterResults(t *testing.T, input string) *execution.Results {
	t.Helper()
	tree, err := tap.ParseBytes([]byte(input))
	require.NoError(t, err)
	return &execution.Results{
		Tree:     tree,
		Failures: tap.IndexFailures(tree),
		Command:  "cargo test",
		ExitCode: 101,
		Duration: 2 * time.Second,
	}
}

func TestFormatter_PrintRun(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(&buf, diag.MustCompile(diag.DefaultQuery))
	f.PrintRun(formatterResults(t, viewerTAP))

	out := buf.String()
	assert.Contains(t, out, "Test Execution Statistics")
	assert.Contains(t, out, "│ Failed                          │ 1")
	assert.Contains(t, out, "✗ 1 failure(s)")
	assert.Contains(t, out, "└── 1 - math\n    └── ✗ 2 - divides\n")
	assert.NotContains(t, out, "adds", "passing points are left out of the tree")
	assert.Contains(t, out, "1. math / 2 - divides  src/math.rs:10:5")
	assert.NotContains(t, out, "anomaly")
}

func TestFormatter_PrintRunAllPassed(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(&buf, diag.MustCompile(diag.DefaultQuery))
	f.PrintRun(formatterResults(t, "1..2\nok 1\nok 2\n"))

	assert.Contains(t, buf.String(), "✓ All tests passed!")
}

func TestFormatter_PrintRunAnomalies(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(&buf, diag.MustCompile(diag.DefaultQuery))
	f.PrintRun(formatterResults(t, "1..3\nok 1\nnot ok 2\n"))

	out := buf.String()
	assert.Contains(t, out, "└── ✗ 2")
	assert.Contains(t, out, "anomaly(ies)")
	assert.Contains(t, out, "plan")
}

func TestFormatter_PrintRunTodoFailure(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(&buf, diag.MustCompile(diag.DefaultQuery))
	f.PrintRun(formatterResults(t, "1..2\nok 1\nnot ok 2 - later # TODO\n"))

	out := buf.String()
	assert.Contains(t, out, "│ Failed                          │ 1 (1 todo/skip)")
	assert.Contains(t, out, "✗ 1 failure(s)")
}

func TestFormatter_PrintError(t *testing.T) {
	var buf bytes.Buffer
	NewFormatter(&buf, nil).PrintError(errors.New("build failed with exit code 2"))
	assert.Equal(t, "✗ build failed with exit code 2\n", buf.String())
}
