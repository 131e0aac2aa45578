package importer

import (
	"errors"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ParseXLSX reads the first sheet of a spreadsheet upload and runs the
// text parsers over its rows.  Cells are joined with commas so the
// sheet goes through the same heuristics as a pasted CSV.
func ParseXLSX(r io.Reader) (Summary, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Summary{}, err
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return Summary{}, errors.New("spreadsheet has no sheets")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return Summary{}, err
	}

	var b strings.Builder
	for _, row := range rows {
		b.WriteString(strings.Join(row, ","))
		b.WriteByte('\n')
	}
	return Parse(b.String()), nil
}
