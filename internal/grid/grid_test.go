package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLayout(t *testing.T) {
	g := ParseLayout("9x9")
	assert.Equal(t, 9, g.Rows)
	assert.Equal(t, 9, g.Cols)

	g = ParseLayout("14X7")
	assert.Equal(t, 14, g.Rows)
	assert.Equal(t, 7, g.Cols)

	// malformed layouts fall back to the 9x9 default
	for _, bad := range []string{"", "9", "axb", "9x9x9", "0x5"} {
		g = ParseLayout(bad)
		assert.Equal(t, DefaultRows, g.Rows, "layout %q", bad)
	}

	assert.Equal(t, "5x5", ParseLayout("5x5").Layout())
	assert.Equal(t, 98, ParseLayout("14x7").Capacity())
}

func TestParsePosition(t *testing.T) {
	g := Grid{Rows: 9, Cols: 9}

	row, col, ok := g.Parse("a1")
	require.True(t, ok)
	assert.Equal(t, 0, row)
	assert.Equal(t, 0, col)

	row, col, ok = g.Parse(" I9 ")
	require.True(t, ok)
	assert.Equal(t, 8, row)
	assert.Equal(t, 8, col)

	for _, bad := range []string{"", "A", "1A", "J1", "A10", "A0", "AA"} {
		assert.False(t, g.Valid(bad), "position %q", bad)
	}
}

func TestPositions(t *testing.T) {
	g := Grid{Rows: 2, Cols: 3}
	assert.Equal(t, []string{"A1", "A2", "A3", "B1", "B2", "B3"}, g.Positions())
}

func TestNextFreeColumnFirst(t *testing.T) {
	g := Grid{Rows: 3, Cols: 2}

	// empty grid starts at the top of the first column
	assert.Equal(t, "A1", g.NextFreeColumnFirst("", nil, nil))

	// scans down the column before moving right
	occ := map[string]bool{"A1": true, "B1": true}
	assert.Equal(t, "C1", g.NextFreeColumnFirst("", occ, nil))

	// continues after the current position
	assert.Equal(t, "A2", g.NextFreeColumnFirst("C1", occ, nil))

	// wraps around when nothing follows the current position
	occ = map[string]bool{"A2": true, "B2": true, "C2": true}
	assert.Equal(t, "B1", g.NextFreeColumnFirst("A1", occ, nil))

	// full grid yields empty
	all := map[string]bool{}
	for _, p := range g.Positions() {
		all[p] = true
	}
	assert.Equal(t, "", g.NextFreeColumnFirst("", all, nil))
}

func TestDisabledPositions(t *testing.T) {
	g := Grid{Rows: 9, Cols: 9}
	dis := DisabledPositions(g, "9x9-box", "DP Pools")
	assert.True(t, dis["I9"])

	assert.Empty(t, DisabledPositions(g, "9x9-box", "Plasma Tubes"))
	assert.Empty(t, DisabledPositions(Grid{Rows: 14, Cols: 7}, "plate", "DP Pools"))

	// DP Pools skip I9 during column-first fill
	occ := map[string]bool{}
	for _, p := range g.Positions() {
		if p != "I9" && p != "H9" {
			occ[p] = true
		}
	}
	assert.Equal(t, "H9", g.NextFreeColumnFirst("", occ, dis))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "A1", Normalize(" a1 "))
	assert.Equal(t, "SAMPLE-1", NormalizeSampleID(" sample-1 "))
}
