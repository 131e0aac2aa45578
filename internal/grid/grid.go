// Package grid models the 2-D position grids of storage containers.
// A container's layout string ("9x9", "5x5", "14x7") gives the grid
// dimensions; cells are addressed by a row letter plus a one-based
// column number ("A1".."I9").  IDT plates use the large 7x14 grid and
// are filled column-first by the scan workflow.
package grid

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultRows/DefaultCols are used when a layout string is missing or
// unparseable, matching the 9x9 freezer-box default of the UI.
const (
	DefaultRows = 9
	DefaultCols = 9
)

// Grid describes the dimensions of a container layout.
type Grid struct {
	Rows int
	Cols int
}

// ParseLayout parses an "RxC" layout string case-insensitively.  On a
// malformed string it falls back to the 9x9 default for the broken
// component, mirroring the lenient front-end behavior: bad inputs
// degrade, they never error.
func ParseLayout(layout string) Grid {
	g := Grid{Rows: DefaultRows, Cols: DefaultCols}
	parts := strings.Split(strings.ToLower(strings.TrimSpace(layout)), "x")
	if len(parts) != 2 {
		return g
	}
	if r, err := strconv.Atoi(strings.TrimSpace(parts[0])); err == nil && r > 0 {
		g.Rows = r
	}
	if c, err := strconv.Atoi(strings.TrimSpace(parts[1])); err == nil && c > 0 {
		g.Cols = c
	}
	return g
}

// Layout renders the grid back to its canonical "RxC" form.
func (g Grid) Layout() string { return fmt.Sprintf("%dx%d", g.Rows, g.Cols) }

// Capacity returns the number of cells in the grid.
func (g Grid) Capacity() int { return g.Rows * g.Cols }

// Label builds the position label for zero-based row and column
// indices: row letter + one-based column number ("A1", "B7", ...).
func (g Grid) Label(row, col int) string {
	return fmt.Sprintf("%c%d", 'A'+rune(row), col+1)
}

// Parse splits a position label into zero-based row and column
// indices.  It accepts lower-case input and reports false when the
// label is malformed or outside the grid.
func (g Grid) Parse(position string) (row, col int, ok bool) {
	p := Normalize(position)
	if len(p) < 2 {
		return 0, 0, false
	}
	r := p[0]
	if r < 'A' || r > 'Z' {
		return 0, 0, false
	}
	n, err := strconv.Atoi(p[1:])
	if err != nil || n < 1 {
		return 0, 0, false
	}
	row, col = int(r-'A'), n-1
	if row >= g.Rows || col >= g.Cols {
		return 0, 0, false
	}
	return row, col, true
}

// Valid reports whether the label addresses a cell of this grid.
func (g Grid) Valid(position string) bool {
	_, _, ok := g.Parse(position)
	return ok
}

// Positions lists every label of the grid in row-major order.
func (g Grid) Positions() []string {
	out := make([]string, 0, g.Capacity())
	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			out = append(out, g.Label(r, c))
		}
	}
	return out
}

// NextFreeColumnFirst returns the first unoccupied, non-disabled
// position after the given one in column-first order (top to bottom,
// then left to right), wrapping to the first free cell when nothing
// follows.  Pass an empty current position to start from the top of
// the first column.  occupied and disabled hold normalized labels.
// The empty string is returned when the grid is full.
func (g Grid) NextFreeColumnFirst(current string, occupied, disabled map[string]bool) string {
	curRow, curCol := -1, -1
	if r, c, ok := g.Parse(current); ok {
		curRow, curCol = r, c
	}
	free := func(row, col int) (string, bool) {
		p := g.Label(row, col)
		if occupied[p] || disabled[p] {
			return "", false
		}
		return p, true
	}
	for c := 0; c < g.Cols; c++ {
		for r := 0; r < g.Rows; r++ {
			if c < curCol || (c == curCol && r <= curRow) {
				continue
			}
			if p, ok := free(r, c); ok {
				return p
			}
		}
	}
	// Wrap around to the first free cell.
	for c := 0; c < g.Cols; c++ {
		for r := 0; r < g.Rows; r++ {
			if p, ok := free(r, c); ok {
				return p
			}
		}
	}
	return ""
}

// Normalize trims and upper-cases a position label.  All stored
// positions and comparisons use the normalized form.
func Normalize(position string) string {
	return strings.ToUpper(strings.TrimSpace(position))
}

// NormalizeSampleID trims and upper-cases a logical sample ID.
func NormalizeSampleID(sampleID string) string {
	return strings.ToUpper(strings.TrimSpace(sampleID))
}

// DisabledPositions returns the cells that exist in the grid but must
// not receive samples.  DP Pools in a 9x9 box reserve the last cell
// (I9) so the effective capacity is 80.
func DisabledPositions(g Grid, containerType, sampleType string) map[string]bool {
	if sampleType == "DP Pools" && g.Rows == 9 && g.Cols == 9 {
		return map[string]bool{"I9": true}
	}
	return nil
}
