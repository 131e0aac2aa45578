package handler

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saga-lims/saga-store/internal/model"
)

func TestEscapeCSV(t *testing.T) {
	assert.Equal(t, "plain", escapeCSV("plain"))
	assert.Equal(t, `"a,b"`, escapeCSV("a,b"))
	assert.Equal(t, `"say ""hi"""`, escapeCSV(`say "hi"`))
	assert.Equal(t, "\"two\nlines\"", escapeCSV("two\nlines"))
}

func TestBuildBackupCSV(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	containers := []model.Container{
		{ID: "c2", Name: "Zebra Box", Location: "Freezer B", Layout: "5x5", Temperature: "-20°C", Type: "5x5-box"},
		{ID: "c1", Name: "Alpha, Box", Location: "Freezer A", Layout: "9x9", Temperature: "-80°C", Type: "9x9-box", Training: true},
	}
	samples := []model.Sample{
		{
			ID: "s1", SampleID: "S-001", ContainerID: strptr("c1"), Position: strptr("A1"),
			CreatedAt: created, UpdatedAt: created,
		},
		{
			ID: "s2", SampleID: "S-OUT", IsCheckedOut: true,
			PreviousContainerID: strptr("c1"), PreviousPosition: strptr("B2"),
			CheckedOutBy: strptr("AB"), CheckedOutAt: &created,
			CreatedAt: created, UpdatedAt: created,
		},
	}

	csv := buildBackupCSV(containers, samples)
	lines := strings.Split(strings.TrimRight(csv, "\n"), "\n")
	require.Len(t, lines, 4)

	assert.Equal(t, "Container ID,Container Name,Location,Layout,Temperature,"+
		"Type,Archived,Training,Sample Position,Sample ID,Sample Created,"+
		"Sample Updated,Sample Archived,Checked Out,Checked Out By,Checked Out At", lines[0])

	// Containers sort by name, so the comma-bearing "Alpha, Box" comes
	// first and gets quoted.
	assert.True(t, strings.HasPrefix(lines[1], `c1,"Alpha, Box",Freezer A,9x9`), lines[1])
	assert.Contains(t, lines[1], "A1,S-001")
	assert.Contains(t, lines[1], ",Yes,") // training flag

	// Zebra Box holds no samples but still gets a row.
	assert.True(t, strings.HasPrefix(lines[2], "c2,Zebra Box"), lines[2])
	assert.True(t, strings.HasSuffix(lines[2], ",,,,,,,,"), lines[2])

	// Checked-out section uses the literal container name and the
	// stashed position.
	assert.True(t, strings.HasPrefix(lines[3], ",CHECKED OUT,"), lines[3])
	assert.Contains(t, lines[3], "B2,S-OUT")
	assert.Contains(t, lines[3], "AB")
}

func TestBuildBackupCSVEmptyInventory(t *testing.T) {
	csv := buildBackupCSV(nil, nil)
	lines := strings.Split(strings.TrimRight(csv, "\n"), "\n")
	require.Len(t, lines, 1)
	assert.True(t, strings.HasPrefix(lines[0], "Container ID,"))
}
