package importer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLocationRows(t *testing.T) {
	text := `
Freezer 2,Plasma Box 1,S-001,A1
Freezer 2,Plasma Box 1,S-002,A2
Freezer 3,DP Pool Box,S-003,B1
bad row with,three cols
Freezer 3,,S-004,B2
`
	sum := ParseLocationRows(text)

	require.Len(t, sum.Containers, 2)
	assert.Equal(t, "Plasma Box 1", sum.Containers[0].Name)
	assert.Equal(t, "Freezer 2", sum.Containers[0].Location)
	assert.Equal(t, "DP Pool Box", sum.Containers[1].Name)

	require.Len(t, sum.Items, 3)
	assert.Equal(t, Item{ContainerName: "Plasma Box 1", SampleID: "S-002", Position: "A2"}, sum.Items[1])
	assert.Equal(t, 2, sum.InvalidRows)
}

func TestParseLocationRowsStopsAfterTenBlankLines(t *testing.T) {
	text := "Freezer 1,Box A,S-001,A1\n" +
		strings.Repeat("\n", 10) +
		"Freezer 1,Box A,S-999,B9\n"
	sum := ParseLocationRows(text)

	require.Len(t, sum.Items, 1)
	assert.Equal(t, "S-001", sum.Items[0].SampleID)
}

func TestParseGridBlocks(t *testing.T) {
	text := `Plasma Box 1,Box Name:,Plasma Box 1,,,
,,1,2,3
A,S-001,,S-003
B,,S-002,

DP Pool Box,Box Name:,DP Pool Box,,,
,,1,2
A,P-100,
`
	sum := ParseGridBlocks(text)

	require.Len(t, sum.Containers, 2)
	assert.Equal(t, "Plasma Box 1", sum.Containers[0].Name)
	assert.Equal(t, "2x3", sum.Containers[0].Layout)
	assert.Equal(t, "1x2", sum.Containers[1].Layout)

	require.Len(t, sum.Items, 4)
	assert.Equal(t, Item{ContainerName: "Plasma Box 1", SampleID: "S-001", Position: "A1"}, sum.Items[0])
	assert.Equal(t, Item{ContainerName: "Plasma Box 1", SampleID: "S-003", Position: "A3"}, sum.Items[1])
	assert.Equal(t, Item{ContainerName: "Plasma Box 1", SampleID: "S-002", Position: "B2"}, sum.Items[2])
	assert.Equal(t, Item{ContainerName: "DP Pool Box", SampleID: "P-100", Position: "A1"}, sum.Items[3])
}

func TestParseGridBlocksWithoutHeaderRow(t *testing.T) {
	text := `Box X,Box Name:,Box X
A,S-001,S-002
`
	sum := ParseGridBlocks(text)
	require.Len(t, sum.Items, 2)
	assert.Equal(t, "A1", sum.Items[0].Position)
	assert.Equal(t, "A2", sum.Items[1].Position)
}

func TestParseDispatch(t *testing.T) {
	grid := "Box X,Box Name:,Box X\nA,S-001\n"
	assert.Len(t, Parse(grid).Items, 1)

	flat := "Freezer 1,Box A,S-001,A1\n"
	sum := Parse(flat)
	require.Len(t, sum.Items, 1)
	assert.Equal(t, "Box A", sum.Items[0].ContainerName)
}

func TestParseWorklistHeaderDetection(t *testing.T) {
	text := `Sample_SampleID,Sample_Type,Source_Well
M00H4FAD,Plasma,A1
M00H4FBD,Plasma,A2
M00H4FAD,Plasma,A3
,Plasma,A4
`
	wl, err := ParseWorklist(text)
	require.NoError(t, err)

	assert.Equal(t, []string{"M00H4FAD", "M00H4FBD"}, wl.SampleIDs)
	assert.Equal(t, []string{"M00H4FAD"}, wl.DuplicateIDs)
	assert.Equal(t, 4, wl.TotalRows)
	assert.Equal(t, 1, wl.InvalidRows)
}

func TestParseWorklistTabSeparatedFallsBackToFirstColumn(t *testing.T) {
	text := "Well\tVolume\nS-001\t10\nS-002\t20\n"
	wl, err := ParseWorklist(text)
	require.NoError(t, err)
	assert.Equal(t, []string{"S-001", "S-002"}, wl.SampleIDs)
}

func TestParseWorklistEmpty(t *testing.T) {
	_, err := ParseWorklist("   \n\n")
	require.Error(t, err)

	_, err = ParseWorklist("SampleID\n\n")
	require.ErrorIs(t, err, ErrNoSampleIDs)
}
