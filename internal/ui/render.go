package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"tapr/internal/execution"
	"tapr/internal/tap"
)

// nodeText is the label of a node in the result tree
func nodeText(n tap.Node) string {
	p := n.Summary()
	if n.Subtest != nil && p == nil {
		return tview.Escape(n.Subtest.Name)
	}

	mark := "✓"
	switch {
	case p.Failed():
		mark = "✗"
	case p.Outcome == tap.Unknown:
		mark = "?"
	}
	text := mark + " " + p.Label()
	if p.Directive != tap.DirectiveNone {
		text += " # " + p.Directive.String()
		if p.Reason != "" {
			text += " " + p.Reason
		}
	}
	if n.Subtest != nil && n.Subtest.Unterminated {
		text += " (unterminated)"
	}
	return tview.Escape(text)
}

// nodeColor colors a node by its outcome. Directives win over the outcome.
func nodeColor(n tap.Node) tcell.Color {
	p := n.Summary()
	switch {
	case p == nil:
		return tcell.ColorWhite
	case p.Directive != tap.DirectiveNone, p.Outcome == tap.Unknown:
		return tcell.ColorYellow
	case p.Failed():
		return tcell.ColorRed
	default:
		return tcell.ColorGreen
	}
}

// statusText formats the status bar for the latest controller update
func statusText(u execution.Update, position string) string {
	var b strings.Builder

	switch u.State {
	case execution.Ready:
		b.WriteString("[green]" + u.State.String() + "[white]")
	case execution.Failed:
		b.WriteString("[red]" + u.State.String() + "[white]")
	case execution.Idle:
		b.WriteString(u.State.String())
	default:
		b.WriteString("[yellow]" + u.State.String() + "…[white]")
	}

	if res := u.Results; res != nil {
		fmt.Fprintf(&b, " | exit %d | %s | failures %d | anomalies %d",
			res.ExitCode, res.Duration.Round(time.Millisecond), len(res.Failures), len(res.Tree.Anomalies()))
		if position != "" {
			b.WriteString(" | " + position)
		}
	}

	if u.Stale {
		b.WriteString(" [gray](stale)[white]")
	}
	if u.Err != nil {
		b.WriteString(" [red]" + tview.Escape(firstLine(u.Err.Error())) + "[white]")
	}
	return b.String()
}

// failureDetails formats a test failure for display using tview color tags
func failureDetails(f tap.Failure, locations []string) string {
	var builder strings.Builder

	p := f.Point
	fmt.Fprintf(&builder, "[red]✗ %s[white]\n\n", tview.Escape(p.Label()))
	if len(f.Trail) > 0 {
		detailRow(&builder, "cyan", "Subtest:", strings.Join(f.Trail, " / "))
	}
	if f.Rollup {
		detailRow(&builder, "cyan", "Kind:", "subtest failed without failing children")
	}
	if p.Directive != tap.DirectiveNone {
		detailRow(&builder, "yellow", "Directive:", p.Directive.String()+" "+p.Reason)
	}
	if p.Line > 0 {
		detailRow(&builder, "cyan", "Output line:", fmt.Sprint(p.Line))
	}
	for _, loc := range locations {
		detailRow(&builder, "yellow", "Location:", loc)
	}
	builder.WriteString("\n")

	if p.Diagnostics != nil {
		fmt.Fprintf(&builder, "[yellow]Diagnostics:[white]\n%s\n", tview.Escape(p.Diagnostics.Raw))
	}
	return builder.String()
}

// detailRow pads the label outside the color tags so values line up.
func detailRow(b *strings.Builder, tag, label, value string) {
	fmt.Fprintf(b, "[%s]%-14s[white]%s\n", tag, label, tview.Escape(value))
}

// overviewText is shown in the details pane while nothing is selected
func overviewText(res *execution.Results) string {
	if res == nil {
		return "[gray]Waiting for the first run…[white]"
	}

	var builder strings.Builder
	st := res.Tree.Stats()
	fmt.Fprintf(&builder, "[cyan]Command:[white] %s\n\n", tview.Escape(res.Command))
	fmt.Fprintf(&builder, "[white]Total %d  [green]passed %d  [red]failed %s  [yellow]skipped %d  todo %d[white]\n\n",
		st.Total, st.Passed, st.FailedText(), st.Skipped, st.Todo)

	if len(res.Failures) == 0 {
		builder.WriteString("[green]✓ No failures[white]\n")
	} else {
		fmt.Fprintf(&builder, "[red]✗ %d failure(s)[white], press [yellow]n[white] to select the first one\n", len(res.Failures))
	}

	if anomalies := res.Tree.Anomalies(); len(anomalies) > 0 {
		builder.WriteString("\n[yellow]Anomalies:[white]\n")
		for _, a := range anomalies {
			where := ""
			if len(a.Trail) > 0 {
				where = strings.Join(a.Trail, " / ") + ": "
			}
			fmt.Fprintf(&builder, "  %s%s\n", tview.Escape(where), tview.Escape(a.Anomaly.String()))
		}
	}

	if res.Stderr != "" {
		fmt.Fprintf(&builder, "\n[yellow]Stderr:[white]\n%s\n", tview.Escape(res.Stderr))
	}
	return builder.String()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " …"
	}
	return s
}

func pathKey(path []int) string {
	return fmt.Sprint(path)
}
