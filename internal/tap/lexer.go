package tap

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Kind classifies a single line of TAP output.
type Kind int

const (
	KindBlank Kind = iota
	KindVersion
	KindPlan
	KindPoint
	KindSubtest
	KindComment
	KindYAMLStart
	KindYAMLEnd
	KindBailOut
	KindUnknown
)

var kindNames = [...]string{"blank", "version", "plan", "point", "subtest", "comment", "yaml-start", "yaml-end", "bail-out", "unknown"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Line is a classified input line.
type Line struct {
	Number int // 1-based position in the input
	Indent int // leading whitespace, one column per rune
	Kind   Kind
	Raw    string // line without its trailing newline
	Text   string // line with leading whitespace removed

	Version string
	Plan    Plan
	Point   TestPoint
	Name    string // subtest name, bail out reason or comment text
}

var (
	versionPattern = regexp.MustCompile(`^(?i:TAP version)\s+(\S+)\s*$`)
	planPattern    = regexp.MustCompile(`^(\d+)\.\.(\d+)\s*(?:#\s*(.*))?$`)
	pointPattern   = regexp.MustCompile(`^(not ok|ok)\b\s*(\d+)?\s*(.*)$`)
	subtestPattern = regexp.MustCompile(`^#\s*Subtest\b:?\s*(.*)$`)
	bailPattern    = regexp.MustCompile(`^Bail out!\s*(.*)$`)
)

// Lex classifies one line of input. It never fails; lines it cannot make
// sense of come back as KindUnknown.
func Lex(number int, raw string) Line {
	raw = strings.TrimRight(raw, "\r")
	text := strings.TrimLeftFunc(raw, unicode.IsSpace)
	l := Line{
		Number: number,
		Indent: len([]rune(raw)) - len([]rune(text)),
		Raw:    raw,
		Text:   text,
	}
	trimmed := strings.TrimRightFunc(text, unicode.IsSpace)

	switch {
	case trimmed == "":
		l.Kind = KindBlank
	case trimmed == "---":
		l.Kind = KindYAMLStart
	case trimmed == "...":
		l.Kind = KindYAMLEnd
	case versionPattern.MatchString(trimmed):
		l.Kind = KindVersion
		l.Version = versionPattern.FindStringSubmatch(trimmed)[1]
	case planPattern.MatchString(trimmed):
		m := planPattern.FindStringSubmatch(trimmed)
		start, _ := strconv.Atoi(m[1])
		end, _ := strconv.Atoi(m[2])
		l.Kind = KindPlan
		l.Plan = Plan{Start: start, End: end, Reason: strings.TrimSpace(m[3]), Line: number}
	case pointPattern.MatchString(trimmed):
		l.Kind = KindPoint
		l.Point = lexPoint(number, pointPattern.FindStringSubmatch(trimmed))
	case subtestPattern.MatchString(trimmed):
		l.Kind = KindSubtest
		l.Name = strings.TrimSpace(subtestPattern.FindStringSubmatch(trimmed)[1])
	case strings.HasPrefix(trimmed, "#"):
		l.Kind = KindComment
		l.Name = strings.TrimSpace(strings.TrimPrefix(trimmed, "#"))
	case bailPattern.MatchString(trimmed):
		l.Kind = KindBailOut
		l.Name = strings.TrimSpace(bailPattern.FindStringSubmatch(trimmed)[1])
	default:
		l.Kind = KindUnknown
	}
	return l
}

func lexPoint(number int, m []string) TestPoint {
	p := TestPoint{Line: number}
	if m[1] == "not ok" {
		p.Outcome = NotOK
	}
	if m[2] != "" {
		p.Number, _ = strconv.Atoi(m[2])
	}

	desc, directive := splitDirective(m[3])
	desc = strings.TrimSpace(desc)
	desc = strings.TrimSpace(strings.TrimPrefix(desc, "-"))
	p.Description = strings.ReplaceAll(desc, `\#`, "#")

	word, reason, _ := strings.Cut(strings.TrimSpace(directive), " ")
	switch {
	case hasFoldPrefix(word, "SKIP"):
		p.Directive = DirectiveSkip
		p.Reason = strings.TrimSpace(reason)
	case hasFoldPrefix(word, "TODO"):
		p.Directive = DirectiveTodo
		p.Reason = strings.TrimSpace(reason)
	}
	return p
}

// splitDirective cuts s at the first "#" that is not escaped with a backslash.
func splitDirective(s string) (desc, directive string) {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '#':
			return s[:i], s[i+1:]
		}
	}
	return s, ""
}

// hasFoldPrefix accepts "SKIP", "skipped", "Todo:" and the like.
func hasFoldPrefix(word, keyword string) bool {
	return len(word) >= len(keyword) && strings.EqualFold(word[:len(keyword)], keyword)
}
