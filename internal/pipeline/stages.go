package pipeline

import (
	"context"
	"math"
	"sort"

	h3 "github.com/uber/h3-go/v4"

	"github.com/urbanstock/feature-cli/internal/block"
	"github.com/urbanstock/feature-cli/internal/features"
	"github.com/urbanstock/feature-cli/internal/hexgrid"
	"github.com/urbanstock/feature-cli/internal/model"
)

// Shape feature column names.
const (
	ColFootprintArea    = "footprint_area"
	ColPerimeter        = "perimeter"
	ColPhi              = "phi"
	ColLongestAxis      = "longest_axis_length"
	ColElongation       = "elongation"
	ColConvexity        = "convexity"
	ColOrientation      = "orientation"
	ColCorners          = "corners"
	ColSharedWallLength = "shared_wall_length"
	ColTouchesCount     = "touches_count"
)

// Proximity feature column names.
const (
	ColDistClosestStreet = "distance_to_closest_street"
	ColSizeClosestStreet = "size_of_closest_street"
	ColStreetAlignment   = "street_alignment"
	ColDistClosestPOI    = "distance_to_closest_poi"
)

func (p *Pipeline) shapeStage(_ context.Context, res *Result) (columns, error) {
	bs := res.Buildings
	tol := p.cfg.Blocks.SnapTolerance
	return columns{
		ColFootprintArea:    features.FootprintAreas(bs),
		ColPerimeter:        features.Perimeters(bs),
		ColPhi:              features.Phi(bs),
		ColLongestAxis:      features.LongestAxisLengths(bs),
		ColElongation:       features.Elongations(bs),
		ColConvexity:        features.Convexities(bs),
		ColOrientation:      features.Orientations(bs),
		ColCorners:          features.Corners(bs),
		ColSharedWallLength: features.SharedWallLengths(bs, tol),
		ColTouchesCount:     features.TouchCounts(bs, tol),
	}, nil
}

// neighborhoodStage computes, per radius, the building count in the buffer
// and per-column buffer means over every numeric column present so far.
func (p *Pipeline) neighborhoodStage(_ context.Context, res *Result) (columns, error) {
	cells, err := p.cellsFor(res)
	if err != nil {
		return nil, err
	}
	valueCols := numericColumns(res.Buildings)
	rows := rowsFor(res.Buildings, cells, valueCols, nil)
	resn := p.cfg.Grid.Resolution
	radii := p.cfg.Grid.Radii

	var means map[string][]float64
	if p.cfg.Neighborhood.ExcludeSelf {
		means, err = hexgrid.BufferMeanExcludingSelf(rows, valueCols, resn, radii)
	} else {
		means, err = p.bufferMeanWithSelf(rows, valueCols)
	}
	if err != nil {
		return nil, err
	}

	counts, err := p.bufferCounts(rows, cells)
	if err != nil {
		return nil, err
	}

	cols := make(columns, len(means)+len(counts))
	for name, vals := range means {
		cols[name] = vals
	}
	for name, vals := range counts {
		cols[name] = vals
	}
	return cols, nil
}

// bufferMeanWithSelf is the non-leave-one-out variant: sum over the
// neighborhood divided by the contributing row count, self included.
func (p *Pipeline) bufferMeanWithSelf(rows *hexgrid.Rows, valueCols []string) (map[string][]float64, error) {
	resn := p.cfg.Grid.Resolution
	radii := p.cfg.Grid.Radii

	out := make(map[string][]float64)
	for _, col := range valueCols {
		grid, err := hexgrid.Aggregate(rows, map[string]hexgrid.ColumnOp{
			col + "_sum": {Source: col, Op: hexgrid.OpSum},
			col + "_n":   {Source: col, Op: hexgrid.OpCount},
		})
		if err != nil {
			return nil, err
		}
		hood, err := hexgrid.NeighborhoodAggregate(grid, map[string]hexgrid.Op{
			col + "_sum": hexgrid.OpSum,
			col + "_n":   hexgrid.OpCount,
		}, resn, radii, rows.Cells)
		if err != nil {
			return nil, err
		}

		for _, k := range radii {
			label, err := hexgrid.BufferLabel(resn, k)
			if err != nil {
				return nil, err
			}
			vals := make([]float64, rows.Len())
			for i, cell := range rows.Cells {
				sum, okS := hood.Value(cell, col+"_sum"+label)
				n, okN := hood.Value(cell, col+"_n"+label)
				if !okS || !okN || math.IsNaN(sum) || math.IsNaN(n) || n < 1 {
					vals[i] = math.NaN()
					continue
				}
				vals[i] = sum / n
			}
			out[col+"_mean"+label] = vals
		}
	}
	return out, nil
}

// bufferCounts computes the number of buildings inside each buffer.
func (p *Pipeline) bufferCounts(rows *hexgrid.Rows, cells []h3.Cell) (map[string][]float64, error) {
	resn := p.cfg.Grid.Resolution
	radii := p.cfg.Grid.Radii

	grid, err := hexgrid.Aggregate(rows, map[string]hexgrid.ColumnOp{
		"buildings": {Op: hexgrid.OpCount},
	})
	if err != nil {
		return nil, err
	}
	hood, err := hexgrid.NeighborhoodAggregate(grid,
		map[string]hexgrid.Op{"buildings": hexgrid.OpCount},
		resn, radii, cells)
	if err != nil {
		return nil, err
	}

	out := make(map[string][]float64, len(radii))
	for _, k := range radii {
		label, err := hexgrid.BufferLabel(resn, k)
		if err != nil {
			return nil, err
		}
		col := "buildings" + label
		vals := make([]float64, len(cells))
		for i, cell := range cells {
			v, ok := hood.Value(cell, col)
			if !ok || math.IsNaN(v) {
				v = 0
			}
			vals[i] = v
		}
		out[col] = vals
	}
	return out, nil
}

func (p *Pipeline) sharesStage(_ context.Context, res *Result) (columns, error) {
	catCols := categoricalColumns(res.Buildings)
	if len(catCols) == 0 {
		return nil, nil
	}
	cells, err := p.cellsFor(res)
	if err != nil {
		return nil, err
	}
	opt := hexgrid.ShareOptions{
		MinCount:    p.cfg.Neighborhood.MinCount,
		ExcludeSelf: p.cfg.Neighborhood.ExcludeSelf,
		DropNA:      p.cfg.Neighborhood.DropNA,
	}

	cols := make(columns)
	for _, cat := range catCols {
		rows := rowsFor(res.Buildings, cells, nil, []string{cat})
		shares, names, err := hexgrid.BufferShares(rows, cat, p.cfg.Grid.Resolution, p.cfg.Grid.Radii, opt)
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			cols[name] = shares[name]
		}
	}
	return cols, nil
}

func (p *Pipeline) streetStage(_ context.Context, res *Result, streets []features.Street) (columns, error) {
	dist, size, alignment := features.StreetFeatures(res.Buildings, streets, p.tables, p.cfg.Streets.MaxDistance)
	return columns{
		ColDistClosestStreet: dist,
		ColSizeClosestStreet: size,
		ColStreetAlignment:   alignment,
	}, nil
}

func (p *Pipeline) poiStage(_ context.Context, res *Result, pois []features.POI) (columns, error) {
	cols := columns{
		ColDistClosestPOI: features.DistanceToClosestPOI(res.Buildings, pois, p.cfg.POI.MaxDistance),
	}
	for _, cat := range p.cfg.POI.Categories {
		vals, err := features.DistanceToPOICategory(res.Buildings, pois, cat, p.tables, p.cfg.POI.MaxDistance)
		if err != nil {
			return nil, err
		}
		cols["distance_to_poi_"+cat] = vals
	}
	return cols, nil
}

// neighborStage mirrors each input numeric column with the value carried
// by the nearest other building.
func (p *Pipeline) neighborStage(_ context.Context, res *Result) (columns, error) {
	cols := make(columns, len(res.inputNumeric))
	for _, attr := range res.inputNumeric {
		cols[attr+"_closest_neighbor"] = features.ClosestBuildingAttr(res.Buildings, attr, p.cfg.Neighbors.AttrDistance)
	}
	return cols, nil
}

func (p *Pipeline) populationStage(_ context.Context, res *Result, pop []features.PopulationPoint) (columns, error) {
	cells, err := p.cellsFor(res)
	if err != nil {
		return nil, err
	}
	ix, err := p.indexer()
	if err != nil {
		return nil, err
	}
	vals, err := features.PopulationInBuffer(cells, pop, ix, p.cfg.Grid.Radii)
	if err != nil {
		return nil, err
	}
	return columns(vals), nil
}

func (p *Pipeline) blockStage(_ context.Context, res *Result) (columns, error) {
	blocks, err := block.BuildBlocks(res.Buildings, p.cfg.Blocks.SnapTolerance)
	if err != nil {
		return nil, err
	}
	blocks = block.ComputeStats(blocks, res.Buildings)
	res.Buildings = block.Merge(blocks, res.Buildings)
	res.CategoricalColumns = append(res.CategoricalColumns, block.AssignmentColumn)

	cols := make(columns, 4)
	for _, name := range []string{
		block.ColBlockArea,
		block.ColBlockPerimeter,
		block.ColBlockBuildingCount,
		block.ColBlockCoverage,
	} {
		vals := make([]float64, len(res.Buildings))
		for i := range res.Buildings {
			vals[i] = res.Buildings[i].Num(name)
		}
		cols[name] = vals
	}
	return cols, nil
}

// helpers

func (p *Pipeline) indexer() (*hexgrid.Indexer, error) {
	return hexgrid.NewIndexer(p.cfg.CRS.Proj, p.cfg.Grid.Resolution)
}

// cellsFor lazily indexes the buildings into hex cells, reusing the
// result across stages.
func (p *Pipeline) cellsFor(res *Result) ([]h3.Cell, error) {
	if res.cells != nil {
		return res.cells, nil
	}
	ix, err := p.indexer()
	if err != nil {
		return nil, err
	}
	cells, err := ix.IndexBuildings(res.Buildings)
	if err != nil {
		return nil, err
	}
	res.cells = cells
	return cells, nil
}

func rowsFor(bs []model.Building, cells []h3.Cell, numericCols, catCols []string) *hexgrid.Rows {
	rows := &hexgrid.Rows{
		Cells:       cells,
		Numeric:     make(map[string][]float64, len(numericCols)),
		Categorical: make(map[string][]string, len(catCols)),
	}
	for _, col := range numericCols {
		vals := make([]float64, len(bs))
		for i := range bs {
			vals[i] = bs[i].Num(col)
		}
		rows.Numeric[col] = vals
	}
	for _, col := range catCols {
		vals := make([]string, len(bs))
		for i := range bs {
			vals[i] = bs[i].Cat(col)
		}
		rows.Categorical[col] = vals
	}
	return rows
}

func applyColumns(res *Result, cols columns) {
	names := make([]string, 0, len(cols))
	for name := range cols {
		names = append(names, name)
	}
	sort.Strings(names)

	known := make(map[string]bool, len(res.NumericColumns))
	for _, name := range res.NumericColumns {
		known[name] = true
	}

	for _, name := range names {
		vals := cols[name]
		for i := range res.Buildings {
			if i < len(vals) {
				res.Buildings[i].SetNum(name, vals[i])
			}
		}
		if !known[name] {
			res.NumericColumns = append(res.NumericColumns, name)
		}
	}
}

func numericColumns(bs []model.Building) []string {
	set := make(map[string]bool)
	for i := range bs {
		for name := range bs[i].Numeric {
			set[name] = true
		}
	}
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func categoricalColumns(bs []model.Building) []string {
	set := make(map[string]bool)
	for i := range bs {
		for name := range bs[i].Categorical {
			set[name] = true
		}
	}
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
