package hexgrid

import (
	"math"
	"sort"

	h3 "github.com/uber/h3-go/v4"
)

// Rows is the column-oriented input to the grid aggregators: one hex cell
// assignment per row plus numeric and categorical attribute columns. NaN
// and "" mark missing values. Rows is immutable from the aggregators' point
// of view; every stage returns a new table.
type Rows struct {
	Cells       []h3.Cell
	Numeric     map[string][]float64
	Categorical map[string][]string
}

// Len returns the number of rows.
func (r *Rows) Len() int { return len(r.Cells) }

// CellTable is a table indexed by hex cell id, one row per populated cell.
// Cells are kept sorted so iteration order is deterministic.
type CellTable struct {
	Cells   []h3.Cell
	Columns []string
	Data    map[string][]float64

	pos map[h3.Cell]int
}

// NewCellTable builds an empty table over the given cell index. Duplicate
// cells are collapsed; the index is sorted.
func NewCellTable(cells []h3.Cell) *CellTable {
	uniq := make(map[h3.Cell]struct{}, len(cells))
	for _, c := range cells {
		uniq[c] = struct{}{}
	}
	index := make([]h3.Cell, 0, len(uniq))
	for c := range uniq {
		index = append(index, c)
	}
	sort.Slice(index, func(i, j int) bool { return index[i] < index[j] })

	pos := make(map[h3.Cell]int, len(index))
	for i, c := range index {
		pos[c] = i
	}
	return &CellTable{
		Cells: index,
		Data:  make(map[string][]float64),
		pos:   pos,
	}
}

// AddColumn attaches a column aligned with the cell index.
func (t *CellTable) AddColumn(name string, values []float64) {
	if _, exists := t.Data[name]; !exists {
		t.Columns = append(t.Columns, name)
	}
	t.Data[name] = values
}

// Value returns the column value for a cell. Cells absent from the table
// report ok=false; they are missing, not zero.
func (t *CellTable) Value(cell h3.Cell, column string) (float64, bool) {
	i, ok := t.pos[cell]
	if !ok {
		return math.NaN(), false
	}
	col, ok := t.Data[column]
	if !ok {
		return math.NaN(), false
	}
	return col[i], true
}

// Has reports whether the cell is part of the table index.
func (t *CellTable) Has(cell h3.Cell) bool {
	_, ok := t.pos[cell]
	return ok
}

// Len returns the number of populated cells.
func (t *CellTable) Len() int { return len(t.Cells) }

// nanColumn returns a fresh column of NaN values sized to the table.
func (t *CellTable) nanColumn() []float64 {
	col := make([]float64, len(t.Cells))
	for i := range col {
		col[i] = math.NaN()
	}
	return col
}
