package nav

import (
	"tapr/internal/diag"
	"tapr/internal/execution"
	"tapr/internal/tap"
)

// Browser pairs the displayed run with a cursor over its failures. It is
// owned by a single goroutine.
type Browser struct {
	results *execution.Results
	cursor  Cursor
	query   *diag.Query
}

// NewBrowser creates a new Browser with no run loaded
func NewBrowser(query *diag.Query) *Browser {
	if query == nil {
		query = diag.MustCompile(diag.DefaultQuery)
	}
	return &Browser{cursor: NewCursor(0), query: query}
}

// Apply replaces the displayed run. The cursor is reset even when the new
// run has the same failures.
func (b *Browser) Apply(res *execution.Results) {
	if res == b.results {
		return
	}
	b.results = res
	if res == nil {
		b.cursor.Reset(0)
		return
	}
	b.cursor.Reset(len(res.Failures))
}

// Results returns the displayed run, or nil
func (b *Browser) Results() *execution.Results {
	return b.results
}

// Next selects the next failure
func (b *Browser) Next() {
	b.cursor.Next()
}

// Previous selects the previous failure
func (b *Browser) Previous() {
	b.cursor.Previous()
}

// Unselect clears the selection
func (b *Browser) Unselect() {
	b.cursor.Unselect()
}

// Position returns the selected index and the failure count
func (b *Browser) Position() (int, int, bool) {
	i, ok := b.cursor.Selected()
	return i, b.cursor.Len(), ok
}

// Current returns the selected failure
func (b *Browser) Current() (tap.Failure, bool) {
	i, ok := b.cursor.Selected()
	if !ok || b.results == nil {
		return tap.Failure{}, false
	}
	return b.results.Failures[i], true
}

// Location returns the first source location in the selected failure's
// diagnostics
func (b *Browser) Location() (diag.Location, bool) {
	f, ok := b.Current()
	if !ok {
		return diag.Location{}, false
	}
	return diag.FirstLocation(f.Point.Diagnostics, b.query)
}
