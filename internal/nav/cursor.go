// Package nav tracks which failure of the current run is selected.
package nav

// Cursor is either unselected or points at an index of a failure index of
// length n. It never points outside [0, n).
type Cursor struct {
	n        int
	selected int
}

// NewCursor returns an unselected cursor over n failures.
func NewCursor(n int) Cursor {
	return Cursor{n: n, selected: -1}
}

// Len returns the size of the failure index the cursor moves over.
func (c *Cursor) Len() int {
	return c.n
}

// Selected returns the selected index, if any.
func (c *Cursor) Selected() (int, bool) {
	if c.selected < 0 {
		return 0, false
	}
	return c.selected, true
}

// Next selects the first failure when unselected, otherwise moves forward
// and stays on the last one.
func (c *Cursor) Next() {
	switch {
	case c.n == 0:
	case c.selected < 0:
		c.selected = 0
	case c.selected < c.n-1:
		c.selected++
	}
}

// Previous moves back one failure. Moving back from the first one unselects.
func (c *Cursor) Previous() {
	if c.selected >= 0 {
		c.selected--
	}
}

// Unselect clears the selection.
func (c *Cursor) Unselect() {
	c.selected = -1
}

// Reset unselects and rebinds the cursor to a new failure index of length n.
func (c *Cursor) Reset(n int) {
	c.n = n
	c.selected = -1
}
