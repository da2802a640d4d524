package diag

import (
	"strconv"
	"strings"

	"tapr/internal/tap"
)

// Location is a source position pulled out of a diagnostic
type Location struct {
	File   string
	Line   int
	Column int
}

func (l Location) String() string {
	if l.Column > 0 {
		return l.File + ":" + strconv.Itoa(l.Line) + ":" + strconv.Itoa(l.Column)
	}
	return l.File + ":" + strconv.Itoa(l.Line)
}

// ParseLocation splits "file:line" or "file:line:column". The file part may
// itself contain colons.
func ParseLocation(s string) (string, int, bool) {
	loc, ok := parseLocation(s)
	return loc.File, loc.Line, ok
}

func parseLocation(s string) (Location, bool) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) < 2 {
		return Location{}, false
	}

	// Up to two trailing numeric fields, line then column.
	nums := 0
	for i := len(parts) - 1; i >= 1 && nums < 2; i-- {
		if _, err := strconv.Atoi(parts[i]); err != nil {
			break
		}
		nums++
	}
	if nums == 0 {
		return Location{}, false
	}

	fileEnd := len(parts) - nums
	loc := Location{File: strings.Join(parts[:fileEnd], ":")}
	if loc.File == "" {
		return Location{}, false
	}
	loc.Line, _ = strconv.Atoi(parts[fileEnd])
	if nums == 2 {
		loc.Column, _ = strconv.Atoi(parts[fileEnd+1])
	}
	if loc.Line <= 0 {
		return Location{}, false
	}
	return loc, true
}

// Locations returns every string q reaches in d, raw and in query order
func Locations(d *tap.Diagnostic, q *Query) []string {
	if d == nil || q == nil {
		return nil
	}
	return q.Eval(d.Raw)
}

// FirstLocation returns the first reached string that parses as a location
func FirstLocation(d *tap.Diagnostic, q *Query) (Location, bool) {
	for _, s := range Locations(d, q) {
		if loc, ok := parseLocation(s); ok {
			return loc, true
		}
	}
	return Location{}, false
}
