// Package tap parses Test Anything Protocol output into a result tree.
package tap

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hashicorp/go-version"
)

// ErrEncoding is returned when the input is not valid UTF-8 text.
var ErrEncoding = errors.New("tap: output is not valid UTF-8")

// MaxVersion is the newest TAP version whose grammar is understood.
var MaxVersion = version.Must(version.NewVersion("14"))

// Parse reads a complete TAP stream and builds its result tree.
// Malformed input never fails the parse; it is recorded as anomalies on the
// nearest enclosing node. Only undecodable input returns an error.
func Parse(r io.Reader) (*Tree, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read tap stream: %w", err)
	}
	return ParseBytes(data)
}

// ParseBytes is Parse over an in-memory buffer.
func ParseBytes(data []byte) (*Tree, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w (offset %d)", ErrEncoding, invalidOffset(data))
	}
	data = bytes.TrimPrefix(data, []byte("\uFEFF"))

	text := string(data)
	text = strings.TrimSuffix(text, "\n")
	b := newBuilder()
	if text != "" {
		for i, raw := range strings.Split(text, "\n") {
			b.feed(Lex(i+1, raw))
		}
	}
	return b.finish(), nil
}

func invalidOffset(data []byte) int {
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size <= 1 {
			return i
		}
		i += size
	}
	return len(data)
}

// frame is an open subtest on the builder stack.
type frame struct {
	node *Subtest
	// closeIndent is the column of the point line that closes the frame; -1 for the root.
	closeIndent int
	// indent is the column of the frame's children; -1 until the first child is seen.
	indent    int
	anonymous bool
}

type yamlCapture struct {
	point  *TestPoint
	indent int
	line   int
	lines  []string
}

type builder struct {
	tree    *Tree
	stack   []*frame
	last    *TestPoint
	yaml    *yamlCapture
	seenTAP bool
}

func newBuilder() *builder {
	root := &Subtest{}
	return &builder{
		tree:  &Tree{Root: root},
		stack: []*frame{{node: root, closeIndent: -1, indent: 0}},
	}
}

func (b *builder) top() *frame {
	return b.stack[len(b.stack)-1]
}

func (b *builder) anomaly(line int, format string, args ...any) {
	node := b.top().node
	node.Anomalies = append(node.Anomalies, Anomaly{Line: line, Message: fmt.Sprintf(format, args...)})
}

func (b *builder) feed(l Line) {
	if b.yaml != nil {
		if l.Kind == KindYAMLEnd {
			b.endYAML()
			return
		}
		if !b.yamlEndsAt(l) {
			b.yaml.lines = append(b.yaml.lines, dedent(l.Raw, b.yaml.indent))
			return
		}
		b.anomaly(b.yaml.line, "unterminated YAML block")
		b.endYAML()
	}

	if l.Kind == KindBlank {
		return
	}
	last := b.last
	b.last = nil

	switch l.Kind {
	case KindVersion:
		b.version(l)
	case KindYAMLStart:
		if last == nil {
			b.anomaly(l.Number, "YAML block does not follow a test point")
		}
		b.yaml = &yamlCapture{point: last, indent: l.Indent, line: l.Number}
	case KindYAMLEnd:
		b.anomaly(l.Number, "unexpected YAML block end")
	case KindSubtest:
		b.seenTAP = true
		b.openSubtest(l)
	case KindPlan:
		b.seenTAP = true
		b.settle(l)
		node := b.top().node
		if node.Plan != nil {
			b.anomaly(l.Number, "duplicate plan %d..%d (previous on line %d)", l.Plan.Start, l.Plan.End, node.Plan.Line)
		}
		plan := l.Plan
		node.Plan = &plan
	case KindPoint:
		b.seenTAP = true
		b.point(l)
	case KindBailOut:
		b.anomaly(l.Number, "bail out: %s", l.Name)
	case KindComment:
	default:
		b.anomaly(l.Number, "unrecognized line: %q", truncate(l.Text, 60))
	}
}

func (b *builder) version(l Line) {
	if b.seenTAP || b.tree.Version != 0 {
		b.anomaly(l.Number, "TAP version line is not the first line")
	}
	v, err := version.NewVersion(l.Version)
	if err != nil {
		b.anomaly(l.Number, "malformed TAP version %q", l.Version)
		return
	}
	if v.GreaterThan(MaxVersion) {
		b.anomaly(l.Number, "TAP version %s is newer than %s", v, MaxVersion)
	}
	b.tree.Version = v.Segments()[0]
	b.seenTAP = true
}

// yamlEndsAt reports whether a TAP line dedented past the block's opening
// marker, which ends a block that is missing its "..." line.
func (b *builder) yamlEndsAt(l Line) bool {
	if l.Kind == KindBlank || l.Indent >= b.yaml.indent {
		return false
	}
	switch l.Kind {
	case KindPoint, KindPlan, KindSubtest, KindVersion:
		return true
	}
	return false
}

func (b *builder) endYAML() {
	y := b.yaml
	b.yaml = nil
	if y.point == nil {
		return
	}
	y.point.Diagnostics = &Diagnostic{Raw: strings.Join(y.lines, "\n"), Line: y.line}
}

// settle makes the innermost open frame the one a non-closing line at column
// l.Indent belongs to, closing or opening frames as needed.
func (b *builder) settle(l Line) {
	for {
		f := b.top()
		c := l.Indent
		switch {
		case f.indent == -1:
			if c > f.closeIndent {
				f.indent = c
				return
			}
			b.closeUnterminated(l.Number)
		case c == f.indent:
			return
		case c > f.indent:
			if l.Kind == KindSubtest {
				return
			}
			b.stack = append(b.stack, &frame{
				node:        &Subtest{Line: l.Number},
				closeIndent: f.indent,
				indent:      c,
				anonymous:   true,
			})
			return
		case c <= f.closeIndent:
			b.closeUnterminated(l.Number)
		default:
			b.anomaly(l.Number, "inconsistent indentation (column %d, expected %d)", c, f.indent)
			return
		}
	}
}

func (b *builder) openSubtest(l Line) {
	b.settle(l)
	parent := b.top()
	f := &frame{node: &Subtest{Name: l.Name, Line: l.Number}}
	if l.Indent > parent.indent {
		// Marker already sits at the child column.
		f.closeIndent = parent.indent
		f.indent = l.Indent
	} else {
		f.closeIndent = l.Indent
		f.indent = -1
	}
	b.stack = append(b.stack, f)
}

func (b *builder) point(l Line) {
	c := l.Indent
	desc := l.Point.Description

	if i := b.closingFrame(c, desc); i > 0 {
		for len(b.stack)-1 > i {
			b.closeUnterminated(l.Number)
		}
		b.close(l)
		return
	}

	// Frames this line dedents out of never got a matching closing line.
	for len(b.stack) > 1 && b.top().closeIndent >= c {
		if f := b.top(); f.closeIndent == c {
			b.anomaly(l.Number, "subtest %q ended by test point %q with a different name", f.node.Name, desc)
		}
		b.closeUnterminated(l.Number)
	}

	b.settle(l)
	node := b.top().node
	p := l.Point
	if p.Number == 0 {
		p.Number = len(node.Children) + 1
	}
	node.Children = append(node.Children, Node{Point: &p})
	b.last = &p
}

// closingFrame returns the stack position of the innermost frame a point at
// column c named desc closes, or 0 if it closes none.
func (b *builder) closingFrame(c int, desc string) int {
	for i := len(b.stack) - 1; i > 0; i-- {
		f := b.stack[i]
		if f.closeIndent < c {
			continue
		}
		if f.anonymous && f.closeIndent == c || !f.anonymous && f.node.Name == desc {
			return i
		}
	}
	return 0
}

// close pops the innermost frame using l as its rollup.
func (b *builder) close(l Line) {
	f := b.top()
	b.stack = b.stack[:len(b.stack)-1]
	parent := b.top().node

	rollup := l.Point
	if rollup.Number == 0 {
		rollup.Number = len(parent.Children) + 1
	}
	if f.anonymous {
		f.node.Name = rollup.Description
	}
	f.node.Rollup = &rollup
	checkPlan(f.node)
	parent.Children = append(parent.Children, Node{Subtest: f.node})
	b.last = &rollup
}

// closeUnterminated pops the innermost frame without a closing line. A
// named subtest keeps an Unknown rollup; an indented block with no marker
// is folded back into its parent.
func (b *builder) closeUnterminated(line int) {
	f := b.top()
	b.stack = b.stack[:len(b.stack)-1]
	parent := b.top().node

	if f.anonymous {
		fold(f.node, parent)
		return
	}

	f.node.Unterminated = true
	f.node.Anomalies = append(f.node.Anomalies, Anomaly{Line: line, Message: fmt.Sprintf("unterminated subtest %q", f.node.Name)})
	f.node.Rollup = &TestPoint{
		Number:      len(parent.Children) + 1,
		Description: f.node.Name,
		Outcome:     Unknown,
		Line:        f.node.Line,
		Synthetic:   true,
	}
	checkPlan(f.node)
	parent.Children = append(parent.Children, Node{Subtest: f.node})
}

// fold moves the content of an unclosed indented block into parent. A block
// that is all the parent holds is just indented output.
func fold(s, parent *Subtest) {
	if len(parent.Children) > 0 || parent.Plan != nil {
		parent.Anomalies = append(parent.Anomalies, Anomaly{Line: s.Line, Message: "indented block has no closing test point"})
	}
	if s.Plan != nil && parent.Plan == nil {
		parent.Plan = s.Plan
	} else {
		checkPlan(s)
	}
	parent.Anomalies = append(parent.Anomalies, s.Anomalies...)
	parent.Children = append(parent.Children, s.Children...)
}

func (b *builder) finish() *Tree {
	if b.yaml != nil {
		b.anomaly(b.yaml.line, "unterminated YAML block")
		b.endYAML()
	}
	for len(b.stack) > 1 {
		b.closeUnterminated(0)
	}
	root := b.tree.Root
	checkPlan(root)
	if root.Plan == nil && len(root.Children) > 0 {
		root.Anomalies = append(root.Anomalies, Anomaly{Message: "missing plan"})
	}
	return b.tree
}

func checkPlan(s *Subtest) {
	if s.Plan == nil {
		return
	}
	if want, got := s.Plan.ExpectedCount(), len(s.Children); want != got {
		s.Anomalies = append(s.Anomalies, Anomaly{
			Line:    s.Plan.Line,
			Message: fmt.Sprintf("planned %d tests but saw %d", want, got),
		})
	}
}

func dedent(raw string, n int) string {
	for i := 0; i < n && raw != ""; i++ {
		r, size := utf8.DecodeRuneInString(raw)
		if !unicode.IsSpace(r) {
			break
		}
		raw = raw[size:]
	}
	return raw
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
