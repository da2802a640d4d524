package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tapr/internal/diag"
	"tapr/internal/execution"
	"tapr/internal/tap"
)

const nestedTAP = `TAP version 14
# Subtest: foo
    1..2
    ok 1 - works
    not ok 2 - breaks
      ---
      at:
        file: test/foo.js
        line: 12
      ...
not ok 1 - foo
ok 2 - skipped one # SKIP no network
1..2
`

func buildResults(t *testing.T) *execution.Results {
	t.Helper()
	tree, err := tap.ParseBytes([]byte(nestedTAP))
	require.NoError(t, err)
	return &execution.Results{
		Tree:       tree,
		Failures:   tap.IndexFailures(tree),
		Command:    "node --test",
		ExitCode:   1,
		Duration:   1500 * time.Millisecond,
		FinishedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestBuild(t *testing.T) {
	out := Build(buildResults(t), diag.MustCompile(diag.DefaultQuery))

	assert.Equal(t, Meta{
		Command:         "node --test",
		ExitCode:        1,
		TAPVersion:      14,
		Total:           3,
		Passed:          1,
		Failed:          1,
		Skipped:         1,
		Failures:        1,
		Duration:        "1.5s",
		DurationSeconds: 1.5,
		Timestamp:       "2024-05-01T12:00:00Z",
	}, out.Meta)

	require.Len(t, out.Failures, 1)
	assert.Equal(t, Failure{Path: []int{0, 1}, Title: "foo / 2 - breaks", Line: 5, Location: "test/foo.js:12"}, out.Failures[0])

	require.Len(t, out.Tree.Children, 2)
	foo := out.Tree.Children[0].Subtest
	require.NotNil(t, foo)
	assert.Equal(t, "foo", foo.Name)
	assert.Equal(t, "1..2", foo.Plan)
	assert.Equal(t, "not ok", foo.Rollup.Outcome)
	assert.Contains(t, foo.Children[1].Point.Diagnostics, "file: test/foo.js")

	skipped := out.Tree.Children[1].Point
	require.NotNil(t, skipped)
	assert.Equal(t, "SKIP", skipped.Directive)
	assert.Equal(t, "no network", skipped.Reason)
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "run.json")
	require.NoError(t, Save(path, Build(buildResults(t), diag.MustCompile(diag.DefaultQuery))))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Contains(t, doc, "meta")
	assert.Contains(t, doc, "tree")
	assert.Len(t, doc["failures"], 1)
	assert.NotContains(t, doc, "stderr")
}
