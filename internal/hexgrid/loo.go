package hexgrid

import (
	"math"
)

// BufferMeanExcludingSelf computes, for each row, the neighborhood mean of
// the given value columns with the row's own contribution removed. The
// neighborhood sum and count come from the two-stage aggregation; for rows
// that contributed a non-missing value, the value is subtracted from the
// sum and the count decremented before dividing. Rows with a missing value
// use the uncorrected sum and count. An effective count of one or less
// yields NaN: an insufficient sample, not an error.
//
// This guards against leakage where a building's neighborhood-average
// feature trivially includes its own held-out value.
//
// Output columns are keyed "<col>_mean<buffer label>", aligned with the
// input rows.
func BufferMeanExcludingSelf(rows *Rows, valueCols []string, res int, radii []int) (map[string][]float64, error) {
	out := make(map[string][]float64)

	for _, col := range valueCols {
		grid, err := Aggregate(rows, map[string]ColumnOp{
			col + "_sum": {Source: col, Op: OpSum},
			col + "_n":   {Source: col, Op: OpCount},
		})
		if err != nil {
			return nil, err
		}

		nbh, err := NeighborhoodAggregate(grid, map[string]Op{
			col + "_sum": OpSum,
			col + "_n":   OpCount,
		}, res, radii, nil)
		if err != nil {
			return nil, err
		}

		values := rows.Numeric[col]
		for _, k := range radii {
			label, err := BufferLabel(res, k)
			if err != nil {
				return nil, err
			}

			result := make([]float64, rows.Len())
			for i := range result {
				cell := rows.Cells[i]
				sum, okS := nbh.Value(cell, col+"_sum"+label)
				n, okN := nbh.Value(cell, col+"_n"+label)
				if !okS || !okN || math.IsNaN(n) {
					result[i] = math.NaN()
					continue
				}

				if values != nil && !math.IsNaN(values[i]) {
					sum -= values[i]
					n--
				}
				if n <= 1 {
					result[i] = math.NaN()
					continue
				}
				result[i] = sum / n
			}
			out[col+"_mean"+label] = result
		}
	}
	return out, nil
}
