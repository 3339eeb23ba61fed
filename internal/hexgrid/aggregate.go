// Package hexgrid turns pointwise building attributes into multi-scale
// spatial buffer statistics over a global hexagonal tessellation. Rows are
// first aggregated locally per hex cell, then re-aggregated over k-ring
// neighborhoods with an explicit operator substitution policy.
package hexgrid

import (
	"sort"

	"github.com/rotisserie/eris"
	h3 "github.com/uber/h3-go/v4"
)

// ColumnOp names a source column and the reducer applied to it. An empty
// Source counts rows instead of column values (only meaningful with
// OpCount).
type ColumnOp struct {
	Source string
	Op     Op
}

// Aggregate groups rows by hex cell and reduces each requested column,
// producing one output row per populated cell. Cells with no rows are
// absent from the result, never zero-filled: callers that need zeros add
// them at merge time. Rows missing a value for some column drop out of that
// column's reduction only.
func Aggregate(rows *Rows, ops map[string]ColumnOp) (*CellTable, error) {
	for name, co := range ops {
		if _, ok := opNames[co.Op]; !ok {
			return nil, eris.Wrapf(ErrUnsupportedAggregation, "hexgrid: column %q", name)
		}
	}

	groups := make(map[h3.Cell][]int)
	for i, c := range rows.Cells {
		groups[c] = append(groups[c], i)
	}

	out := NewCellTable(rows.Cells)

	names := make([]string, 0, len(ops))
	for name := range ops {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		co := ops[name]
		col := out.nanColumn()
		for ci, cell := range out.Cells {
			col[ci] = reduceGroup(rows, groups[cell], co)
		}
		out.AddColumn(name, col)
	}
	return out, nil
}

// reduceGroup reduces one column over the row indices of a single cell.
func reduceGroup(rows *Rows, idx []int, co ColumnOp) float64 {
	// Row count: no source column involved.
	if co.Op == OpCount && co.Source == "" {
		return float64(len(idx))
	}

	// nunique over a categorical column counts distinct non-missing labels.
	if cat, ok := rows.Categorical[co.Source]; ok && co.Op == OpNunique {
		seen := make(map[string]struct{})
		for _, i := range idx {
			if cat[i] != "" {
				seen[cat[i]] = struct{}{}
			}
		}
		return float64(len(seen))
	}

	num := rows.Numeric[co.Source]
	values := make([]float64, 0, len(idx))
	for _, i := range idx {
		if num != nil {
			values = append(values, num[i])
		}
	}
	return reduce(co.Op, values)
}
