package features

import (
	"fmt"
	"math"

	"github.com/ctessum/geom"
	h3 "github.com/uber/h3-go/v4"

	"github.com/urbanstock/feature-cli/internal/hexgrid"
)

// PopulationPoint is a population raster centroid with its head count.
type PopulationPoint struct {
	Geom       geom.Point
	Population float64
}

// PopulationInBuffer sums population points over the hex neighborhoods of
// the given building cells, one output column per radius. Cells whose
// neighborhood holds no population points map to zero.
func PopulationInBuffer(cells []h3.Cell, pop []PopulationPoint, ix *hexgrid.Indexer, radii []int) (map[string][]float64, error) {
	rows := &hexgrid.Rows{
		Cells:   make([]h3.Cell, 0, len(pop)),
		Numeric: map[string][]float64{"population": make([]float64, 0, len(pop))},
	}
	for i, p := range pop {
		cell, err := ix.IndexPoint(fmt.Sprintf("pop-%d", i), p.Geom)
		if err != nil {
			return nil, err
		}
		rows.Cells = append(rows.Cells, cell)
		rows.Numeric["population"] = append(rows.Numeric["population"], p.Population)
	}

	grid, err := hexgrid.Aggregate(rows, map[string]hexgrid.ColumnOp{
		"population": {Source: "population", Op: hexgrid.OpSum},
	})
	if err != nil {
		return nil, err
	}

	hood, err := hexgrid.NeighborhoodAggregate(grid,
		map[string]hexgrid.Op{"population": hexgrid.OpSum},
		ix.Resolution(), radii, cells)
	if err != nil {
		return nil, err
	}

	out := make(map[string][]float64, len(radii))
	for _, k := range radii {
		label, err := hexgrid.BufferLabel(ix.Resolution(), k)
		if err != nil {
			return nil, err
		}
		col := "population" + label
		vals := make([]float64, len(cells))
		for i, c := range cells {
			v, ok := hood.Value(c, col)
			if !ok || math.IsNaN(v) {
				v = 0
			}
			vals[i] = v
		}
		out[col] = vals
	}
	return out, nil
}
