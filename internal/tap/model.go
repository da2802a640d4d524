package tap

import "fmt"

// Outcome is the pass/fail token of a test point line.
type Outcome int

const (
	// OK is an "ok" line.
	OK Outcome = iota
	// NotOK is a "not ok" line.
	NotOK
	// Unknown is the outcome of a subtest that never got its closing line.
	Unknown
)

// String returns the TAP token for the outcome
func (o Outcome) String() string {
	switch o {
	case NotOK:
		return "not ok"
	case Unknown:
		return "unknown"
	default:
		return "ok"
	}
}

// Directive is the optional SKIP/TODO suffix of a test point.
type Directive int

const (
	DirectiveNone Directive = iota
	DirectiveSkip
	DirectiveTodo
)

// String returns the directive keyword, or an empty string for none
func (d Directive) String() string {
	switch d {
	case DirectiveSkip:
		return "SKIP"
	case DirectiveTodo:
		return "TODO"
	default:
		return ""
	}
}

// Diagnostic is a YAML block captured verbatim after a test point.
// Raw is dedented by the column of the opening "---" line.
type Diagnostic struct {
	Raw  string
	Line int
}

// TestPoint represents a single ok/not ok line
type TestPoint struct {
	Number      int
	Description string
	Outcome     Outcome
	Directive   Directive
	Reason      string
	Diagnostics *Diagnostic
	Line        int

	// Synthetic is set on rollups made up for subtests that never closed.
	// Their outcome is Unknown.
	Synthetic bool
}

// Failed reports whether the point's outcome is "not ok".
func (p *TestPoint) Failed() bool {
	return p.Outcome == NotOK
}

// Label returns "<number> - <description>" for display.
func (p *TestPoint) Label() string {
	if p.Description == "" {
		return fmt.Sprintf("%d", p.Number)
	}
	return fmt.Sprintf("%d - %s", p.Number, p.Description)
}

// Plan is a "start..end" line.
type Plan struct {
	Start  int
	End    int
	Reason string
	Line   int
}

// ExpectedCount returns how many points the plan announces
func (p Plan) ExpectedCount() int {
	if p.End < p.Start {
		return 0
	}
	return p.End - p.Start + 1
}

// Anomaly is a non-fatal problem found while building the tree.
type Anomaly struct {
	Line    int
	Message string
}

func (a Anomaly) String() string {
	if a.Line == 0 {
		return a.Message
	}
	return fmt.Sprintf("line %d: %s", a.Line, a.Message)
}

// Node is one child of a subtest: exactly one of Point or Subtest is set.
type Node struct {
	Point   *TestPoint
	Subtest *Subtest
}

// Summary returns the point that represents the node in its parent.
func (n Node) Summary() *TestPoint {
	if n.Subtest != nil {
		return n.Subtest.Rollup
	}
	return n.Point
}

// Subtest is a nested group of nodes summarized by a rollup point.
// The root of a Tree is a Subtest without a name or rollup.
type Subtest struct {
	Name         string
	Plan         *Plan
	Children     []Node
	Rollup       *TestPoint
	Anomalies    []Anomaly
	Unterminated bool
	Line         int
}

// Failed reports whether the rollup outcome is "not ok". The rollup is
// authoritative; children are never consulted.
func (s *Subtest) Failed() bool {
	return s.Rollup != nil && s.Rollup.Failed()
}

// Tree is the parsed result of one test run. It is never mutated after Parse returns.
type Tree struct {
	Version int
	Root    *Subtest
}

// Plan returns the root plan, if any.
func (t *Tree) Plan() *Plan {
	return t.Root.Plan
}

// Children returns the top-level nodes.
func (t *Tree) Children() []Node {
	return t.Root.Children
}

// NodeAt resolves a path of child indices. It returns false if the path is out of range.
func (t *Tree) NodeAt(path []int) (Node, bool) {
	if len(path) == 0 {
		return Node{}, false
	}
	cur := t.Root
	var node Node
	for i, idx := range path {
		if cur == nil || idx < 0 || idx >= len(cur.Children) {
			return Node{}, false
		}
		node = cur.Children[idx]
		if i < len(path)-1 {
			cur = node.Subtest
		}
	}
	return node, true
}

// LocatedAnomaly is an anomaly together with the names of its enclosing subtests.
type LocatedAnomaly struct {
	Trail []string
	Anomaly
}

// Anomalies lists every anomaly in the tree, depth-first.
func (t *Tree) Anomalies() []LocatedAnomaly {
	var out []LocatedAnomaly
	var walk func(s *Subtest, trail []string)
	walk = func(s *Subtest, trail []string) {
		for _, a := range s.Anomalies {
			out = append(out, LocatedAnomaly{Trail: trail, Anomaly: a})
		}
		for _, child := range s.Children {
			if child.Subtest != nil {
				walk(child.Subtest, appendTrail(trail, child.Subtest.Name))
			}
		}
	}
	walk(t.Root, nil)
	return out
}

// Stats counts the points of the tree. Failed counts every "not ok" leaf,
// so it always matches the leaves of the failure index; Skipped and Todo
// only count "ok" points.
type Stats struct {
	Total   int
	Passed  int
	Failed  int
	Skipped int
	Todo    int
	// FailedWithDirective is the part of Failed marked SKIP or TODO.
	FailedWithDirective int
}

// Stats walks the whole tree and counts leaf points. Rollups are not counted.
func (t *Tree) Stats() Stats {
	var st Stats
	var walk func(s *Subtest)
	walk = func(s *Subtest) {
		for _, child := range s.Children {
			if child.Subtest != nil {
				walk(child.Subtest)
				continue
			}
			p := child.Point
			st.Total++
			switch {
			case p.Failed():
				st.Failed++
				if p.Directive != DirectiveNone {
					st.FailedWithDirective++
				}
			case p.Directive == DirectiveSkip:
				st.Skipped++
			case p.Directive == DirectiveTodo:
				st.Todo++
			default:
				st.Passed++
			}
		}
	}
	walk(t.Root)
	return st
}

// FailedText renders Failed, noting how many of them carry a directive.
func (st Stats) FailedText() string {
	if st.FailedWithDirective == 0 {
		return fmt.Sprint(st.Failed)
	}
	return fmt.Sprintf("%d (%d todo/skip)", st.Failed, st.FailedWithDirective)
}

func appendTrail(trail []string, name string) []string {
	out := make([]string, len(trail), len(trail)+1)
	copy(out, trail)
	return append(out, name)
}
