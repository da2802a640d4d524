// Package report exports a finished run as JSON.
package report

import (
	"fmt"
	"time"

	"tapr/internal/diag"
	"tapr/internal/execution"
	"tapr/internal/tap"
)

// Meta contains metadata about a run
type Meta struct {
	Command         string  `json:"command"`
	ExitCode        int     `json:"exit_code"`
	TAPVersion      int     `json:"tap_version,omitempty"`
	Total           int     `json:"total"`
	Passed          int     `json:"passed"`
	Failed          int     `json:"failed"`
	FailedDirective int     `json:"failed_with_directive,omitempty"`
	Skipped         int     `json:"skipped"`
	Todo            int     `json:"todo"`
	Failures        int     `json:"failures"`
	Anomalies       int     `json:"anomalies"`
	Duration        string  `json:"duration"`
	DurationSeconds float64 `json:"duration_seconds"`
	Timestamp       string  `json:"timestamp"`
}

// Point is a test point line
type Point struct {
	Number      int    `json:"number"`
	Description string `json:"description,omitempty"`
	Outcome     string `json:"outcome"`
	Directive   string `json:"directive,omitempty"`
	Reason      string `json:"reason,omitempty"`
	Diagnostics string `json:"diagnostics,omitempty"`
	Line        int    `json:"line,omitempty"`
	Synthetic   bool   `json:"synthetic,omitempty"`
}

// Node is either a point or a subtest with its rollup
type Node struct {
	Point   *Point   `json:"point,omitempty"`
	Subtest *Subtest `json:"subtest,omitempty"`
}

// Subtest is a nested group
type Subtest struct {
	Name         string   `json:"name,omitempty"`
	Plan         string   `json:"plan,omitempty"`
	Rollup       *Point   `json:"rollup,omitempty"`
	Children     []Node   `json:"children"`
	Anomalies    []string `json:"anomalies,omitempty"`
	Unterminated bool     `json:"unterminated,omitempty"`
}

// Failure is one entry of the failure index
type Failure struct {
	Path     []int  `json:"path"`
	Title    string `json:"title"`
	Line     int    `json:"line,omitempty"`
	Location string `json:"location,omitempty"`
	Rollup   bool   `json:"rollup,omitempty"`
}

// Output is the complete exported document
type Output struct {
	Meta     Meta      `json:"meta"`
	Tree     *Subtest  `json:"tree"`
	Failures []Failure `json:"failures"`
	Stderr   string    `json:"stderr,omitempty"`
}

// Build converts a run into its exported form. Locations are extracted
// with query.
func Build(res *execution.Results, query *diag.Query) Output {
	stats := res.Tree.Stats()
	out := Output{
		Meta: Meta{
			Command:         res.Command,
			ExitCode:        res.ExitCode,
			TAPVersion:      res.Tree.Version,
			Total:           stats.Total,
			Passed:          stats.Passed,
			Failed:          stats.Failed,
			FailedDirective: stats.FailedWithDirective,
			Skipped:         stats.Skipped,
			Todo:            stats.Todo,
			Failures:        len(res.Failures),
			Anomalies:       len(res.Tree.Anomalies()),
			Duration:        res.Duration.String(),
			DurationSeconds: res.Duration.Seconds(),
			Timestamp:       res.FinishedAt.Format(time.RFC3339),
		},
		Tree:     convertSubtest(res.Tree.Root),
		Failures: make([]Failure, 0, len(res.Failures)),
		Stderr:   res.Stderr,
	}

	for _, f := range res.Failures {
		entry := Failure{Path: f.Path, Title: f.Title(), Line: f.Point.Line, Rollup: f.Rollup}
		if loc, ok := diag.FirstLocation(f.Point.Diagnostics, query); ok {
			entry.Location = loc.String()
		}
		out.Failures = append(out.Failures, entry)
	}
	return out
}

func convertSubtest(s *tap.Subtest) *Subtest {
	out := &Subtest{
		Name:         s.Name,
		Rollup:       convertPoint(s.Rollup),
		Children:     make([]Node, 0, len(s.Children)),
		Unterminated: s.Unterminated,
	}
	if s.Plan != nil {
		out.Plan = planString(s.Plan)
	}
	for _, a := range s.Anomalies {
		out.Anomalies = append(out.Anomalies, a.String())
	}
	for _, child := range s.Children {
		if child.Subtest != nil {
			out.Children = append(out.Children, Node{Subtest: convertSubtest(child.Subtest)})
		} else {
			out.Children = append(out.Children, Node{Point: convertPoint(child.Point)})
		}
	}
	return out
}

func convertPoint(p *tap.TestPoint) *Point {
	if p == nil {
		return nil
	}
	out := &Point{
		Number:      p.Number,
		Description: p.Description,
		Outcome:     p.Outcome.String(),
		Directive:   p.Directive.String(),
		Reason:      p.Reason,
		Line:        p.Line,
		Synthetic:   p.Synthetic,
	}
	if p.Diagnostics != nil {
		out.Diagnostics = p.Diagnostics.Raw
	}
	return out
}

func planString(p *tap.Plan) string {
	s := fmt.Sprintf("%d..%d", p.Start, p.End)
	if p.Reason != "" {
		s += " # " + p.Reason
	}
	return s
}
