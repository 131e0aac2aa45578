// Package importer turns pasted or uploaded spreadsheet content into
// placement items.  The parsers are best-effort heuristics; callers
// show the caller a preview before anything is written, so a misfire
// costs a re-upload, not data.
package importer

import (
	"strings"
)

// Container is a container discovered while parsing.
type Container struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	Layout   string `json:"layout,omitempty"`
}

// Item is one sample placement extracted from the input.
type Item struct {
	ContainerName string `json:"container_name"`
	SampleID      string `json:"sample_id"`
	Position      string `json:"position"`
}

// Summary is the parse result shown to the caller for confirmation.
type Summary struct {
	Containers  []Container `json:"containers"`
	Items       []Item      `json:"items"`
	InvalidRows int         `json:"invalid_rows"`
}

// Parse sniffs the input format and dispatches to the matching
// parser.  Grid exports carry a "Box Name:" marker; everything else is
// treated as flat location/name/sample/position rows.
func Parse(text string) Summary {
	if strings.Contains(text, "Box Name:") {
		return ParseGridBlocks(text)
	}
	return ParseLocationRows(text)
}

// ParseLocationRows parses flat comma-separated rows of the form
// location,name,sample_id,position.  Parsing starts at the first
// non-empty line and stops after ten consecutive blank lines, which is
// how spreadsheet exports with trailing formatting rows end.  Rows
// with fewer than four populated cells are skipped.
func ParseLocationRows(text string) Summary {
	var sum Summary
	seen := map[string]bool{}
	blanks := 0
	started := false
	for _, line := range splitLines(text) {
		if strings.TrimSpace(line) == "" {
			if !started {
				continue
			}
			blanks++
			if blanks >= 10 {
				break
			}
			continue
		}
		started = true
		blanks = 0

		cols := splitCells(line, ",")
		if len(cols) < 4 {
			sum.InvalidRows++
			continue
		}
		location, name, sampleID, position := cols[0], cols[1], cols[2], cols[3]
		if location == "" || name == "" || sampleID == "" || position == "" {
			sum.InvalidRows++
			continue
		}
		if !seen[name] {
			seen[name] = true
			sum.Containers = append(sum.Containers, Container{Name: name, Location: location})
		}
		sum.Items = append(sum.Items, Item{
			ContainerName: name,
			SampleID:      sampleID,
			Position:      position,
		})
	}
	return sum
}

func splitLines(text string) []string {
	return strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
}

func splitCells(line, sep string) []string {
	parts := strings.Split(line, sep)
	for i, p := range parts {
		parts[i] = strings.Trim(strings.TrimSpace(p), `"`)
	}
	return parts
}
