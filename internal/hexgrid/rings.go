package hexgrid

import (
	"fmt"
	"sort"

	"github.com/rotisserie/eris"
	h3 "github.com/uber/h3-go/v4"
)

// meanCellAreaKm2 is the average hexagon area per H3 resolution 0-15, in
// km2, from https://h3geo.org/docs/core-library/restable. Buffer labels are
// derived analytically from this table instead of measuring cells so the
// same (resolution, radius) pair always yields the same column name.
var meanCellAreaKm2 = [16]float64{
	4.3574e+06,
	6.0978e+05,
	8.6801e+04,
	1.2393e+04,
	1.7703e+03,
	2.5290e+02,
	3.6129e+01,
	5.1612e+00,
	7.3732e-01,
	1.0533e-01,
	1.5047e-02,
	2.1496e-03,
	3.0709e-04,
	4.3870e-05,
	6.2671e-06,
	8.9531e-07,
}

// BufferAreaKm2 returns the physical area approximated by a radius-k disk
// of cells at the given resolution: the number of cells in the closed disk,
// 3(k+1)^2 - 3(k+1) + 1, times the mean cell area.
func BufferAreaKm2(res, k int) (float64, error) {
	if res < 0 || res > 15 {
		return 0, eris.Errorf("hexgrid: resolution %d out of range 0-15", res)
	}
	if k < 0 {
		return 0, eris.Errorf("hexgrid: negative ring radius %d", k)
	}
	n := k + 1
	cells := 3*n*n - 3*n + 1
	return float64(cells) * meanCellAreaKm2[res], nil
}

// BufferLabel renders the column suffix for a (resolution, radius) pair,
// e.g. "_within_buffer_0.11km2".
func BufferLabel(res, k int) (string, error) {
	area, err := BufferAreaKm2(res, k)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("_within_buffer_%.2fkm2", area), nil
}

// NeighborhoodAggregate expands per-cell values to k-ring buffer statistics.
// For each cell of interest and each requested radius it collects the
// closed radius-k disk (the cell itself included), reindexes the per-cell
// values onto that disk — cells absent from the grid drop out of the
// reduction rather than contributing zeros — and reduces with the
// neighborhood substitution of each column's reducer. One output column
// block is produced per radius, suffixed with the buffer-area label.
//
// ops maps an output base name to the reducer that built the per-cell
// column of the same name in grid. All operators are validated before any
// disk is expanded so a misconfigured reducer never produces partial
// output.
//
// cellsOfInterest restricts which cells get neighborhood rows; nil means
// every populated grid cell.
func NeighborhoodAggregate(grid *CellTable, ops map[string]Op, res int, radii []int, cellsOfInterest []h3.Cell) (*CellTable, error) {
	if len(radii) == 0 {
		return nil, eris.New("hexgrid: no ring radii requested")
	}

	// Fail fast on operator misconfiguration.
	names := make([]string, 0, len(ops))
	lifted := make(map[string]Op, len(ops))
	for name, op := range ops {
		nop, err := neighborhoodOp(op)
		if err != nil {
			return nil, eris.Wrapf(err, "column %q", name)
		}
		lifted[name] = nop
		names = append(names, name)
	}
	sort.Strings(names)

	labels := make(map[int]string, len(radii))
	for _, k := range radii {
		label, err := BufferLabel(res, k)
		if err != nil {
			return nil, err
		}
		labels[k] = label
	}

	cells := cellsOfInterest
	if cells == nil {
		cells = grid.Cells
	}
	out := NewCellTable(cells)

	for _, k := range radii {
		disks := make(map[h3.Cell][]h3.Cell, out.Len())
		for _, cell := range out.Cells {
			disk, err := h3.GridDisk(cell, k)
			if err != nil {
				return nil, eris.Wrapf(err, "hexgrid: grid disk for cell %s at k=%d", cell, k)
			}
			disks[cell] = disk
		}

		for _, name := range names {
			col := out.nanColumn()
			for ci, cell := range out.Cells {
				values := make([]float64, 0, len(disks[cell]))
				for _, nb := range disks[cell] {
					if v, ok := grid.Value(nb, name); ok {
						values = append(values, v)
					}
				}
				col[ci] = reduce(lifted[name], values)
			}
			out.AddColumn(name+labels[k], col)
		}
	}
	return out, nil
}
