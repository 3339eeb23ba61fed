package block

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urbanstock/feature-cli/internal/model"
)

func TestMergeOneRowPerBuilding(t *testing.T) {
	buildings := []model.Building{
		building("a", square(0, 0, 1)),
		building("b", square(1, 0, 1)),
		building("c", square(10, 0, 1)),
	}
	blocks, err := BuildBlocks(buildings, 1e-6)
	require.NoError(t, err)
	blocks = ComputeStats(blocks, buildings)

	merged := Merge(blocks, buildings)
	require.Len(t, merged, len(buildings))

	for i, b := range merged {
		assert.Equal(t, buildings[i].ID, b.ID, "input order preserved")
		assert.NotEmpty(t, b.Cat(AssignmentColumn))
		assert.False(t, math.IsNaN(b.Num(ColBlockArea)))
	}

	// Members of the same block carry the same assignment and attributes.
	assert.Equal(t, merged[0].Cat(AssignmentColumn), merged[1].Cat(AssignmentColumn))
	assert.NotEqual(t, merged[0].Cat(AssignmentColumn), merged[2].Cat(AssignmentColumn))
	assert.Equal(t, merged[0].Num(ColBlockArea), merged[1].Num(ColBlockArea))
}

func TestMergeUnassignedBuildingGetsNaN(t *testing.T) {
	member := building("member", square(0, 0, 1))
	orphan := building("orphan", square(50, 0, 1))

	blocks, err := BuildBlocks([]model.Building{member}, 1e-6)
	require.NoError(t, err)
	blocks = ComputeStats(blocks, []model.Building{member})

	merged := Merge(blocks, []model.Building{member, orphan})
	require.Len(t, merged, 2)

	assert.NotEmpty(t, merged[0].Cat(AssignmentColumn))
	assert.Empty(t, merged[1].Cat(AssignmentColumn))
	assert.True(t, math.IsNaN(merged[1].Num(ColBlockArea)))
	assert.True(t, math.IsNaN(merged[1].Num(ColBlockCoverage)))
}

func TestMergeDropsStaleAssignment(t *testing.T) {
	b := building("a", square(0, 0, 1))
	b.SetCat(AssignmentColumn, "stale")

	blocks, err := BuildBlocks([]model.Building{b}, 1e-6)
	require.NoError(t, err)

	merged := Merge(blocks, []model.Building{b})
	require.Len(t, merged, 1)
	assert.NotEqual(t, "stale", merged[0].Cat(AssignmentColumn))
	assert.Equal(t, blocks[0].ID, merged[0].Cat(AssignmentColumn))
}

func TestMergeDoesNotMutateInput(t *testing.T) {
	b := building("a", square(0, 0, 1))
	blocks, err := BuildBlocks([]model.Building{b}, 1e-6)
	require.NoError(t, err)
	blocks = ComputeStats(blocks, []model.Building{b})

	in := []model.Building{b}
	_ = Merge(blocks, in)
	assert.Empty(t, in[0].Cat(AssignmentColumn))
	assert.Nil(t, in[0].Numeric)
}
