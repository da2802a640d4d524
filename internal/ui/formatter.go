package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"tapr/internal/diag"
	"tapr/internal/execution"
	"tapr/internal/tap"
)

var (
	cyan   = color.New(color.FgCyan)
	green  = color.New(color.FgGreen)
	red    = color.New(color.FgRed)
	yellow = color.New(color.FgYellow)
	white  = color.New(color.FgWhite)
	gray   = color.New(color.FgHiBlack)
)

// Formatter prints runs for non-interactive use
type Formatter struct {
	out   io.Writer
	query *diag.Query
}

// NewFormatter creates a new Formatter
func NewFormatter(out io.Writer, query *diag.Query) *Formatter {
	return &Formatter{out: out, query: query}
}

// PrintRun prints the statistics table, the failures and the anomalies
func (f *Formatter) PrintRun(res *execution.Results) {
	f.PrintStats(res)
	fmt.Fprintln(f.out)

	if len(res.Failures) == 0 {
		green.Fprintln(f.out, "✓ All tests passed!")
	} else {
		red.Fprintf(f.out, "✗ %d failure(s)\n", len(res.Failures))
		fmt.Fprintln(f.out)
		f.PrintTree(res.Tree)
		fmt.Fprintln(f.out)
		f.PrintFailures(res.Failures)
	}

	if anomalies := res.Tree.Anomalies(); len(anomalies) > 0 {
		fmt.Fprintln(f.out)
		yellow.Fprintf(f.out, "⚠ %d anomaly(ies) in the TAP output\n", len(anomalies))
		for _, a := range anomalies {
			where := ""
			if len(a.Trail) > 0 {
				where = strings.Join(a.Trail, " / ") + ": "
			}
			yellow.Fprintf(f.out, "  %s%s\n", where, a.Anomaly)
		}
	}
}

type statRow struct {
	label string
	c     *color.Color
	value string
}

// PrintStats prints the statistics table
func (f *Formatter) PrintStats(res *execution.Results) {
	st := res.Tree.Stats()

	cyan.Fprintln(f.out, "╔═══════════════════════════════════════════════════════════════╗")
	cyan.Fprintln(f.out, "║                    Test Execution Statistics                  ║")
	cyan.Fprintln(f.out, "╚═══════════════════════════════════════════════════════════════╝")

	const sep = "├─────────────────────────────────┼─────────────────────────────┤"
	fmt.Fprintln(f.out, "┌─────────────────────────────────┬─────────────────────────────┐")
	rows := []statRow{
		{"Command", white, truncateCell(res.Command, 27)},
		{"Exit Code", white, fmt.Sprint(res.ExitCode)},
		{"Total Tests", white, fmt.Sprint(st.Total)},
		{"Passed", green, fmt.Sprint(st.Passed)},
		{"Failed", red, st.FailedText()},
		{"Skipped", yellow, fmt.Sprint(st.Skipped)},
		{"Todo", yellow, fmt.Sprint(st.Todo)},
		{"Duration", white, fmt.Sprintf("%.2fs", res.Duration.Seconds())},
	}
	if !res.FinishedAt.IsZero() {
		rows = append(rows, statRow{"Timestamp", white, res.FinishedAt.Format(time.RFC3339)})
	}
	for i, row := range rows {
		if i > 0 {
			fmt.Fprintln(f.out, sep)
		}
		fmt.Fprintf(f.out, "│ %-31s │ ", row.label)
		row.c.Fprintf(f.out, "%-27s", row.value)
		fmt.Fprintln(f.out, " │")
	}
	fmt.Fprintln(f.out, "└─────────────────────────────────┴─────────────────────────────┘")
}

// PrintTree prints the branches of the result tree that contain failures
func (f *Formatter) PrintTree(tree *tap.Tree) {
	f.printSubtest(tree.Root, "")
}

func (f *Formatter) printSubtest(s *tap.Subtest, prefix string) {
	var shown []tap.Node
	for _, child := range s.Children {
		if hasFailure(child) {
			shown = append(shown, child)
		}
	}

	for i, child := range shown {
		last := i == len(shown)-1
		connector, next := "├── ", "│   "
		if last {
			connector, next = "└── ", "    "
		}

		p := child.Summary()
		if child.Subtest != nil {
			label := child.Subtest.Name
			if p != nil {
				label = p.Label()
			}
			if child.Subtest.Unterminated {
				label += " (unterminated)"
			}
			cyan.Fprintf(f.out, "%s%s\n", prefix+connector, label)
			f.printSubtest(child.Subtest, prefix+next)
			continue
		}
		red.Fprintf(f.out, "%s✗ %s\n", prefix+connector, p.Label())
	}
}

func hasFailure(n tap.Node) bool {
	if n.Subtest == nil {
		return n.Point.Failed()
	}
	if n.Subtest.Failed() {
		return true
	}
	for _, child := range n.Subtest.Children {
		if hasFailure(child) {
			return true
		}
	}
	return false
}

// PrintFailures lists every failure with its first location
func (f *Formatter) PrintFailures(failures []tap.Failure) {
	for i, failure := range failures {
		yellow.Fprintf(f.out, "%d. ", i+1)
		white.Fprint(f.out, failure.Title())
		if loc, ok := diag.FirstLocation(failure.Point.Diagnostics, f.query); ok {
			gray.Fprintf(f.out, "  %s", loc)
		}
		fmt.Fprintln(f.out)
	}
}

// PrintError reports a failed cycle
func (f *Formatter) PrintError(err error) {
	red.Fprintf(f.out, "✗ %v\n", err)
}

func truncateCell(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
