package tap

import "strings"

// Failure is one entry of the failure index: a failing leaf point, or a
// failing subtest that has no failing children to point at.
type Failure struct {
	Path  []int
	Trail []string
	Point *TestPoint
	// Rollup is set when the entry stands for a whole subtest.
	Rollup bool
}

// Title joins the enclosing subtest names and the point label.
func (f Failure) Title() string {
	if len(f.Trail) == 0 {
		return f.Point.Label()
	}
	return strings.Join(f.Trail, " / ") + " / " + f.Point.Label()
}

// IndexFailures flattens the failing leaves of t in depth-first order,
// matching the order they are displayed in.
func IndexFailures(t *Tree) []Failure {
	if t == nil || t.Root == nil {
		return nil
	}
	return indexSubtest(t.Root, nil, nil)
}

func indexSubtest(s *Subtest, path []int, trail []string) []Failure {
	var out []Failure
	for i, child := range s.Children {
		childPath := appendPath(path, i)
		if child.Subtest == nil {
			if child.Point.Failed() {
				out = append(out, Failure{Path: childPath, Trail: trail, Point: child.Point})
			}
			continue
		}

		sub := child.Subtest
		nested := indexSubtest(sub, childPath, appendTrail(trail, sub.Name))
		if len(nested) == 0 && sub.Failed() {
			nested = []Failure{{Path: childPath, Trail: trail, Point: sub.Rollup, Rollup: true}}
		}
		out = append(out, nested...)
	}
	return out
}

func appendPath(path []int, i int) []int {
	out := make([]int, len(path), len(path)+1)
	copy(out, path)
	return append(out, i)
}
