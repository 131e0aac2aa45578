package importer

import (
	"errors"
	"strings"
)

// Worklist is the result of parsing an instrument worklist file.
type Worklist struct {
	SampleIDs    []string `json:"sample_ids"`
	DuplicateIDs []string `json:"duplicate_ids"`
	TotalRows    int      `json:"total_rows"`
	InvalidRows  int      `json:"invalid_rows"`
}

// Column headings instruments commonly use for the sample id.  Matched
// case-insensitively, exact match first, then substring.
var sampleIDColumns = []string{
	"Sample_SampleID", "SampleID", "Sample ID", "Sample_ID", "sampleid", "sample_id",
	"ID", "Sample", "Barcode", "sample_barcode", "Sample_Barcode",
}

// ErrNoSampleIDs is returned when a worklist yields nothing usable.
var ErrNoSampleIDs = errors.New("no valid sample ids found")

// ParseWorklist extracts unique sample ids from a CSV or tab-separated
// worklist.  The separator is sniffed from the header line.  If no
// known sample-id heading is found the first column is assumed.
// Duplicate ids are reported separately; instruments list a sample
// once per process step, so duplicates are expected, not an error.
func ParseWorklist(text string) (Worklist, error) {
	var lines []string
	for _, l := range splitLines(text) {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, strings.TrimSpace(l))
		}
	}
	if len(lines) == 0 {
		return Worklist{}, errors.New("file is empty")
	}

	sep := ","
	if strings.Contains(lines[0], "\t") {
		sep = "\t"
	}
	headers := splitCells(lines[0], sep)
	idx := sampleIDColumn(headers)

	wl := Worklist{TotalRows: len(lines) - 1}
	counts := map[string]int{}
	var order []string
	for _, line := range lines[1:] {
		row := splitCells(line, sep)
		if len(row) <= idx || row[idx] == "" {
			wl.InvalidRows++
			continue
		}
		id := row[idx]
		if counts[id] == 0 {
			order = append(order, id)
		}
		counts[id]++
	}
	for _, id := range order {
		wl.SampleIDs = append(wl.SampleIDs, id)
		if counts[id] > 1 {
			wl.DuplicateIDs = append(wl.DuplicateIDs, id)
		}
	}
	if len(wl.SampleIDs) == 0 {
		return Worklist{}, ErrNoSampleIDs
	}
	return wl, nil
}

func sampleIDColumn(headers []string) int {
	for _, want := range sampleIDColumns {
		for i, h := range headers {
			if strings.EqualFold(h, want) {
				return i
			}
		}
	}
	for _, want := range sampleIDColumns {
		for i, h := range headers {
			if strings.Contains(strings.ToLower(h), strings.ToLower(want)) {
				return i
			}
		}
	}
	return 0
}
