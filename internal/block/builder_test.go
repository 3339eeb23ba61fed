package block

import (
	"testing"

	"github.com/ctessum/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urbanstock/feature-cli/internal/model"
)

func square(x, y, side float64) geom.Polygon {
	return geom.Polygon{{
		{X: x, Y: y},
		{X: x + side, Y: y},
		{X: x + side, Y: y + side},
		{X: x, Y: y + side},
	}}
}

func building(id string, fp geom.Polygon) model.Building {
	return model.Building{ID: id, Footprint: fp}
}

// memberSets extracts each block's sorted member id slice.
func memberSets(blocks []model.Block) [][]string {
	out := make([][]string, 0, len(blocks))
	for _, bl := range blocks {
		out = append(out, bl.BuildingIDs)
	}
	return out
}

func TestBuildBlocksTouchingRow(t *testing.T) {
	// Three unit squares in a row sharing edges, plus two isolated ones.
	buildings := []model.Building{
		building("a", square(0, 0, 1)),
		building("b", square(1, 0, 1)),
		building("c", square(2, 0, 1)),
		building("x", square(10, 0, 1)),
		building("y", square(20, 0, 1)),
	}

	blocks, err := BuildBlocks(buildings, 1e-6)
	require.NoError(t, err)
	require.Len(t, blocks, 3)

	assert.ElementsMatch(t, [][]string{
		{"a", "b", "c"},
		{"x"},
		{"y"},
	}, memberSets(blocks))

	for _, bl := range blocks {
		assert.NotEmpty(t, bl.ID)
		assert.Greater(t, bl.Geometry.Area(), 0.0)
	}
}

func TestBuildBlocksDissolvedArea(t *testing.T) {
	buildings := []model.Building{
		building("a", square(0, 0, 1)),
		building("b", square(1, 0, 1)),
	}

	blocks, err := BuildBlocks(buildings, 1e-6)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.InDelta(t, 2, blocks[0].Geometry.Area(), 1e-9)
}

func TestBuildBlocksCornerContactJoins(t *testing.T) {
	// Squares sharing only a corner still count as adjacent.
	buildings := []model.Building{
		building("a", square(0, 0, 1)),
		building("b", square(1, 1, 1)),
	}

	blocks, err := BuildBlocks(buildings, 1e-6)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.ElementsMatch(t, []string{"a", "b"}, blocks[0].BuildingIDs)
}

func TestBuildBlocksSnapTolerance(t *testing.T) {
	// Gap of 0.1 joins under a 0.2 tolerance and splits under 0.05.
	buildings := []model.Building{
		building("a", square(0, 0, 1)),
		building("b", square(1.1, 0, 1)),
	}

	blocks, err := BuildBlocks(buildings, 0.2)
	require.NoError(t, err)
	assert.Len(t, blocks, 1)

	blocks, err = BuildBlocks(buildings, 0.05)
	require.NoError(t, err)
	assert.Len(t, blocks, 2)
}

func TestBuildBlocksEmptyInput(t *testing.T) {
	blocks, err := BuildBlocks(nil, 0.5)
	require.NoError(t, err)
	assert.Empty(t, blocks)
}

func TestBuildBlocksRejectsBadGeometry(t *testing.T) {
	buildings := []model.Building{
		building("ok", square(0, 0, 1)),
		building("bad", geom.Polygon{}),
	}

	_, err := BuildBlocks(buildings, 0.5)
	require.Error(t, err)
	var gerr *model.GeometryError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, "bad", gerr.ID)
}

func TestBuildBlocksRejectsDuplicateID(t *testing.T) {
	buildings := []model.Building{
		building("dup", square(0, 0, 1)),
		building("dup", square(5, 0, 1)),
	}

	_, err := BuildBlocks(buildings, 0.5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate building id")
}

func TestBuildBlocksDeterministicMembership(t *testing.T) {
	buildings := []model.Building{
		building("a", square(0, 0, 1)),
		building("b", square(1, 0, 1)),
		building("c", square(5, 0, 1)),
	}

	first, err := BuildBlocks(buildings, 1e-6)
	require.NoError(t, err)
	second, err := BuildBlocks(buildings, 1e-6)
	require.NoError(t, err)
	assert.Equal(t, memberSets(first), memberSets(second))
}

func TestBuildBlocksFromIDs(t *testing.T) {
	a := building("a", square(0, 0, 1))
	a.SetCat("district", "north")
	b := building("b", square(10, 0, 1))
	b.SetCat("district", "north")
	c := building("c", square(20, 0, 1))
	c.SetCat("district", "south")
	d := building("d", square(30, 0, 1)) // missing key

	blocks, err := BuildBlocksFromIDs([]model.Building{a, b, c, d}, "district")
	require.NoError(t, err)
	require.Len(t, blocks, 3)

	assert.ElementsMatch(t, [][]string{
		{"a", "b"},
		{"c"},
		{"d"},
	}, memberSets(blocks))
}

func TestBuildBlocksFromIDsEmptyInput(t *testing.T) {
	blocks, err := BuildBlocksFromIDs(nil, "district")
	require.NoError(t, err)
	assert.Empty(t, blocks)
}
