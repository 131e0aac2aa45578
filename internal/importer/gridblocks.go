package importer

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseGridBlocks parses the grid-shaped export format: one block per
// container, blocks separated by blank lines.  A block starts with a
// line containing "Box Name:" followed by the container name, then a
// header row of column numbers, then one row per grid row with the
// row letter in the first cell and sample ids in the remaining cells.
//
//	Plasma Box 1,Box Name:,Plasma Box 1,,,
//	,,1,2,3,4,5,6,7,8,9
//	A,S-001,,S-003,,,,,,
//	B,,,,,,,,,
//
// Empty cells are skipped.  Column numbers come from the header row
// when present; otherwise cells map to 1-based column indexes.
func ParseGridBlocks(text string) Summary {
	var sum Summary
	var cur *gridBlock
	flush := func() {
		if cur != nil {
			cur.emit(&sum)
			cur = nil
		}
	}
	for _, line := range splitLines(text) {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		cells := splitCells(line, ",")
		if name, ok := boxName(cells); ok {
			flush()
			cur = &gridBlock{name: name}
			continue
		}
		if cur == nil {
			sum.InvalidRows++
			continue
		}
		if cols, ok := numericHeader(cells); ok {
			cur.cols = cols
			continue
		}
		if !cur.addRow(cells) {
			sum.InvalidRows++
		}
	}
	flush()
	return sum
}

type gridBlock struct {
	name string
	cols []int
	rows []gridRow
	maxC int
}

type gridRow struct {
	label string
	cells []string
}

// addRow accepts a "A,s1,s2,..." data row.  The first non-empty cell
// must be a single letter.
func (b *gridBlock) addRow(cells []string) bool {
	i := 0
	for i < len(cells) && cells[i] == "" {
		i++
	}
	if i >= len(cells) || !isRowLabel(cells[i]) {
		return false
	}
	row := gridRow{label: strings.ToUpper(cells[i]), cells: cells[i+1:]}
	if len(row.cells) > b.maxC {
		b.maxC = len(row.cells)
	}
	b.rows = append(b.rows, row)
	return true
}

func (b *gridBlock) emit(sum *Summary) {
	if b.name == "" || len(b.rows) == 0 {
		return
	}
	cols := b.maxC
	if len(b.cols) > 0 {
		cols = len(b.cols)
	}
	sum.Containers = append(sum.Containers, Container{
		Name:   b.name,
		Layout: fmt.Sprintf("%dx%d", len(b.rows), cols),
	})
	for _, row := range b.rows {
		for i, cell := range row.cells {
			if cell == "" {
				continue
			}
			col := i + 1
			if i < len(b.cols) {
				col = b.cols[i]
			}
			sum.Items = append(sum.Items, Item{
				ContainerName: b.name,
				SampleID:      cell,
				Position:      fmt.Sprintf("%s%d", row.label, col),
			})
		}
	}
}

// boxName detects the "Box Name:" marker line and returns the
// container name next to it.
func boxName(cells []string) (string, bool) {
	for i, c := range cells {
		if !strings.EqualFold(strings.TrimSuffix(c, ":"), "box name") {
			continue
		}
		for j := i + 1; j < len(cells); j++ {
			if cells[j] != "" {
				return cells[j], true
			}
		}
		if i > 0 && cells[0] != "" {
			return cells[0], true
		}
		return "", false
	}
	return "", false
}

// numericHeader reports whether the row consists only of column
// numbers (ignoring leading empties), and returns them.
func numericHeader(cells []string) ([]int, bool) {
	var cols []int
	for _, c := range cells {
		if c == "" {
			continue
		}
		n, err := strconv.Atoi(c)
		if err != nil {
			return nil, false
		}
		cols = append(cols, n)
	}
	return cols, len(cols) > 0
}

func isRowLabel(s string) bool {
	if len(s) != 1 {
		return false
	}
	ch := s[0]
	return (ch >= 'A' && ch <= 'Z') || (ch >= 'a' && ch <= 'z')
}
