package block

import (
	"math"

	"github.com/ctessum/geom"

	"github.com/urbanstock/feature-cli/internal/model"
)

// Block-level attribute column names.
const (
	ColBlockArea          = "BlockArea"
	ColBlockPerimeter     = "BlockPerimeter"
	ColBlockBuildingCount = "BlockBuildingCount"
	ColBlockCoverage      = "BlockCoverage"
)

// ComputeStats derives shape statistics for each block: dissolved area,
// perimeter, member count and coverage (summed member footprint area over
// block area). Returns the blocks with Numeric populated.
func ComputeStats(blocks []model.Block, buildings []model.Building) []model.Block {
	footprintArea := make(map[string]float64, len(buildings))
	for i := range buildings {
		footprintArea[buildings[i].ID] = buildings[i].Footprint.Area()
	}

	for i := range blocks {
		bl := &blocks[i]
		area := bl.Geometry.Area()

		var covered float64
		for _, id := range bl.BuildingIDs {
			covered += footprintArea[id]
		}
		coverage := 0.0
		if area > 0 {
			coverage = covered / area
		}

		bl.Numeric = map[string]float64{
			ColBlockArea:          area,
			ColBlockPerimeter:     perimeter(bl.Geometry),
			ColBlockBuildingCount: float64(bl.MemberCount()),
			ColBlockCoverage:      coverage,
		}
	}
	return blocks
}

// perimeter sums the exterior ring lengths of all parts.
func perimeter(p geom.Polygonal) float64 {
	var total float64
	for _, part := range p.Polygons() {
		if len(part) == 0 {
			continue
		}
		ring := part[0]
		n := len(ring)
		for i := 0; i < n; i++ {
			a, b := ring[i], ring[(i+1)%n]
			total += math.Hypot(b.X-a.X, b.Y-a.Y)
		}
	}
	return total
}
