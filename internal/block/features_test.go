package block

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urbanstock/feature-cli/internal/model"
)

func TestComputeStatsSingleSquare(t *testing.T) {
	buildings := []model.Building{building("a", square(0, 0, 2))}
	blocks, err := BuildBlocks(buildings, 1e-6)
	require.NoError(t, err)
	require.Len(t, blocks, 1)

	blocks = ComputeStats(blocks, buildings)
	stats := blocks[0].Numeric

	assert.InDelta(t, 4, stats[ColBlockArea], 1e-9)
	assert.InDelta(t, 8, stats[ColBlockPerimeter], 1e-9)
	assert.InDelta(t, 1, stats[ColBlockBuildingCount], 1e-9)
	// A singleton block is fully covered by its own footprint.
	assert.InDelta(t, 1, stats[ColBlockCoverage], 1e-9)
}

func TestComputeStatsDissolvedRow(t *testing.T) {
	buildings := []model.Building{
		building("a", square(0, 0, 1)),
		building("b", square(1, 0, 1)),
		building("c", square(2, 0, 1)),
	}
	blocks, err := BuildBlocks(buildings, 1e-6)
	require.NoError(t, err)
	require.Len(t, blocks, 1)

	blocks = ComputeStats(blocks, buildings)
	stats := blocks[0].Numeric

	assert.InDelta(t, 3, stats[ColBlockArea], 1e-9)
	// The dissolved 3x1 rectangle has an 8-unit boundary.
	assert.InDelta(t, 8, stats[ColBlockPerimeter], 1e-9)
	assert.InDelta(t, 3, stats[ColBlockBuildingCount], 1e-9)
	assert.InDelta(t, 1, stats[ColBlockCoverage], 1e-9)
}

func TestComputeStatsTwoBlocks(t *testing.T) {
	buildings := []model.Building{
		building("a", square(0, 0, 1)),
		building("b", square(5, 0, 2)),
	}
	blocks, err := BuildBlocks(buildings, 1e-6)
	require.NoError(t, err)
	require.Len(t, blocks, 2)

	blocks = ComputeStats(blocks, buildings)
	areas := []float64{
		blocks[0].Numeric[ColBlockArea],
		blocks[1].Numeric[ColBlockArea],
	}
	assert.ElementsMatch(t, []float64{1, 4}, areas)
	for _, bl := range blocks {
		assert.InDelta(t, 1, bl.Numeric[ColBlockBuildingCount], 1e-9)
	}
}
