package hexgrid

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	h3 "github.com/uber/h3-go/v4"
)

func TestBufferAreaKm2(t *testing.T) {
	// Closed-disk cell counts: 1, 7, 19 for k = 0, 1, 2.
	a0, err := BufferAreaKm2(10, 0)
	require.NoError(t, err)
	assert.InDelta(t, 1.5047e-02, a0, 1e-9)

	a1, err := BufferAreaKm2(10, 1)
	require.NoError(t, err)
	assert.InDelta(t, 7*1.5047e-02, a1, 1e-9)

	a2, err := BufferAreaKm2(10, 2)
	require.NoError(t, err)
	assert.InDelta(t, 19*1.5047e-02, a2, 1e-9)
}

func TestBufferAreaErrors(t *testing.T) {
	_, err := BufferAreaKm2(16, 1)
	assert.Error(t, err)
	_, err = BufferAreaKm2(-1, 1)
	assert.Error(t, err)
	_, err = BufferAreaKm2(10, -1)
	assert.Error(t, err)
}

func TestBufferLabel(t *testing.T) {
	label, err := BufferLabel(10, 1)
	require.NoError(t, err)
	assert.Equal(t, "_within_buffer_0.11km2", label)

	label, err = BufferLabel(10, 0)
	require.NoError(t, err)
	assert.Equal(t, "_within_buffer_0.02km2", label)
}

// Two-stage count (count lifted to sum) must match a brute-force count of
// rows falling inside the disk.
func TestNeighborhoodCountMatchesBruteForce(t *testing.T) {
	center := cellAt(t, 52.0, 10.0, 7)
	disk, err := h3.GridDisk(center, 1)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(disk), 2)

	// Uneven per-cell multiplicities over part of the disk plus one cell
	// far outside it.
	far := cellAt(t, 40.0, -3.0, 7)
	var cells []h3.Cell
	for i, c := range disk {
		for n := 0; n <= i%3; n++ {
			cells = append(cells, c)
		}
	}
	cells = append(cells, far, far)

	rows := &Rows{Cells: cells}
	grid, err := Aggregate(rows, map[string]ColumnOp{"rows": {Op: OpCount}})
	require.NoError(t, err)

	nbh, err := NeighborhoodAggregate(grid, map[string]Op{"rows": OpCount}, 7, []int{1}, []h3.Cell{center})
	require.NoError(t, err)

	inDisk := make(map[h3.Cell]bool, len(disk))
	for _, c := range disk {
		inDisk[c] = true
	}
	want := 0
	for _, c := range cells {
		if inDisk[c] {
			want++
		}
	}

	label, err := BufferLabel(7, 1)
	require.NoError(t, err)
	got, ok := nbh.Value(center, "rows"+label)
	require.True(t, ok)
	assert.InDelta(t, float64(want), got, 1e-9)
}

// Cells absent from the grid drop out of the reduction instead of
// contributing zeros.
func TestNeighborhoodMissingCellsDropOut(t *testing.T) {
	center := cellAt(t, 52.0, 10.0, 7)

	rows := &Rows{
		Cells:   []h3.Cell{center},
		Numeric: map[string][]float64{"v": {5}},
	}
	grid, err := Aggregate(rows, map[string]ColumnOp{"v": {Source: "v", Op: OpMean}})
	require.NoError(t, err)

	nbh, err := NeighborhoodAggregate(grid, map[string]Op{"v": OpMean}, 7, []int{1}, nil)
	require.NoError(t, err)

	label, err := BufferLabel(7, 1)
	require.NoError(t, err)
	got, ok := nbh.Value(center, "v"+label)
	require.True(t, ok)
	// Only one populated cell in the disk; its mean, not mean over seven.
	assert.InDelta(t, 5, got, 1e-9)
}

func TestNeighborhoodSelfIncluded(t *testing.T) {
	center := cellAt(t, 52.0, 10.0, 7)
	disk, err := h3.GridDisk(center, 1)
	require.NoError(t, err)

	// Center holds 100, one neighbor holds 0.
	var neighbor h3.Cell
	for _, c := range disk {
		if c != center {
			neighbor = c
			break
		}
	}
	rows := &Rows{
		Cells:   []h3.Cell{center, neighbor},
		Numeric: map[string][]float64{"v": {100, 0}},
	}
	grid, err := Aggregate(rows, map[string]ColumnOp{"v": {Source: "v", Op: OpSum}})
	require.NoError(t, err)

	nbh, err := NeighborhoodAggregate(grid, map[string]Op{"v": OpSum}, 7, []int{1}, []h3.Cell{center})
	require.NoError(t, err)

	label, err := BufferLabel(7, 1)
	require.NoError(t, err)
	got, ok := nbh.Value(center, "v"+label)
	require.True(t, ok)
	// The cell's own value participates in its neighborhood.
	assert.InDelta(t, 100, got, 1e-9)
}

// Operator validation happens before any disk expansion, so a bad reducer
// yields an error and no partial output.
func TestNeighborhoodEagerValidation(t *testing.T) {
	center := cellAt(t, 52.0, 10.0, 7)
	rows := &Rows{
		Cells:   []h3.Cell{center},
		Numeric: map[string][]float64{"v": {1}},
	}
	grid, err := Aggregate(rows, map[string]ColumnOp{"v": {Source: "v", Op: OpSum}})
	require.NoError(t, err)

	out, err := NeighborhoodAggregate(grid, map[string]Op{
		"v":   OpSum,
		"bad": Op(42),
	}, 7, []int{1}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedAggregation)
	assert.Nil(t, out)
}

func TestNeighborhoodRequiresRadii(t *testing.T) {
	grid := NewCellTable(nil)
	_, err := NeighborhoodAggregate(grid, map[string]Op{}, 7, nil, nil)
	assert.Error(t, err)
}

func TestNeighborhoodMultipleRadiiColumns(t *testing.T) {
	center := cellAt(t, 52.0, 10.0, 7)
	rows := &Rows{
		Cells:   []h3.Cell{center},
		Numeric: map[string][]float64{"v": {2}},
	}
	grid, err := Aggregate(rows, map[string]ColumnOp{"v": {Source: "v", Op: OpSum}})
	require.NoError(t, err)

	nbh, err := NeighborhoodAggregate(grid, map[string]Op{"v": OpSum}, 7, []int{1, 2}, nil)
	require.NoError(t, err)

	for _, k := range []int{1, 2} {
		label, err := BufferLabel(7, k)
		require.NoError(t, err)
		v, ok := nbh.Value(center, "v"+label)
		require.True(t, ok, "column for k=%d", k)
		assert.False(t, math.IsNaN(v))
	}
	assert.Len(t, nbh.Columns, 2)
}
