package block

import (
	"math"
	"sort"

	"github.com/urbanstock/feature-cli/internal/model"
)

// AssignmentColumn is the categorical column carrying a building's block id
// after merging.
const AssignmentColumn = "block_id"

// Merge explodes each block's member list into (block, building) pairs and
// left-joins the block attributes onto the buildings by building id. Any
// pre-existing block assignment is dropped first. Buildings absent from
// every block keep NaN block attributes and an empty assignment; every
// input building appears exactly once in the output.
func Merge(blocks []model.Block, buildings []model.Building) []model.Building {
	byBuilding := make(map[string]*model.Block)
	columns := make(map[string]struct{})
	for i := range blocks {
		for _, id := range blocks[i].BuildingIDs {
			byBuilding[id] = &blocks[i]
		}
		for col := range blocks[i].Numeric {
			columns[col] = struct{}{}
		}
	}
	cols := make([]string, 0, len(columns))
	for c := range columns {
		cols = append(cols, c)
	}
	sort.Strings(cols)

	out := make([]model.Building, len(buildings))
	for i := range buildings {
		b := buildings[i].Clone()
		delete(b.Categorical, AssignmentColumn)

		bl, ok := byBuilding[b.ID]
		if !ok {
			for _, col := range cols {
				b.SetNum(col, math.NaN())
			}
			out[i] = b
			continue
		}
		b.SetCat(AssignmentColumn, bl.ID)
		for _, col := range cols {
			v, has := bl.Numeric[col]
			if !has {
				v = math.NaN()
			}
			b.SetNum(col, v)
		}
		out[i] = b
	}
	return out
}
