package hexgrid

import (
	"fmt"
	"math"
	"sort"

	"github.com/rotisserie/eris"
	h3 "github.com/uber/h3-go/v4"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// UnknownCategory is the label assigned to rows with a missing category
// when missing values are counted rather than dropped.
const UnknownCategory = "unknown"

// ShareOptions configures categorical buffer shares.
type ShareOptions struct {
	// MinCount is the insufficient-sample floor: rows whose neighborhood
	// total falls below it get NaN for every share.
	MinCount int

	// ExcludeSelf removes the row's own category contribution before
	// computing its shares (leave-one-out bias correction).
	ExcludeSelf bool

	// DropNA excludes rows with a missing category from the count stage
	// entirely; when false they count as an explicit "unknown" category.
	DropNA bool
}

var foldCaser = cases.Fold()

// NormalizeCategory canonicalizes a category label: NFC normalization plus
// case folding, so "Résidential" and "résidential" count as one category.
func NormalizeCategory(label string) string {
	return foldCaser.String(norm.NFC.String(label))
}

// BufferShares computes, for each row, the share of each observed category
// within the row's k-ring neighborhoods. Per-cell category counts are
// zero-filled — unlike plain grid aggregation, absent (cell, category)
// combinations must contribute zeros so shares sum to one over all observed
// categories. Counts are additive, so the neighborhood stage is an exact
// sum. Output columns are keyed "share_<column>_<category><buffer label>",
// aligned with the input rows; the observed category list is returned in
// sorted order.
func BufferShares(rows *Rows, catCol string, res int, radii []int, opt ShareOptions) (map[string][]float64, []string, error) {
	raw, ok := rows.Categorical[catCol]
	if !ok {
		return nil, nil, eris.Errorf("hexgrid: unknown categorical column %q", catCol)
	}
	if opt.MinCount < 1 {
		return nil, nil, eris.Errorf("hexgrid: min_count %d must be at least 1", opt.MinCount)
	}

	// Canonical per-row labels; "" marks rows excluded from counting.
	labels := make([]string, rows.Len())
	catSet := make(map[string]struct{})
	for i, v := range raw {
		switch {
		case v != "":
			labels[i] = NormalizeCategory(v)
		case opt.DropNA:
			continue
		default:
			labels[i] = UnknownCategory
		}
		catSet[labels[i]] = struct{}{}
	}
	categories := make([]string, 0, len(catSet))
	for c := range catSet {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	// Zero-filled per-cell counts, one column per observed category.
	counts := make(map[h3.Cell]map[string]float64)
	for i, cell := range rows.Cells {
		if labels[i] == "" {
			continue
		}
		if counts[cell] == nil {
			counts[cell] = make(map[string]float64)
		}
		counts[cell][labels[i]]++
	}
	grid := NewCellTable(rows.Cells)
	nbhOps := make(map[string]Op, len(categories))
	for _, cat := range categories {
		col := make([]float64, grid.Len())
		for ci, cell := range grid.Cells {
			col[ci] = counts[cell][cat]
		}
		grid.AddColumn(cat, col)
		nbhOps[cat] = OpSum
	}

	nbh, err := NeighborhoodAggregate(grid, nbhOps, res, radii, nil)
	if err != nil {
		return nil, nil, err
	}

	out := make(map[string][]float64)
	for _, k := range radii {
		label, err := BufferLabel(res, k)
		if err != nil {
			return nil, nil, err
		}

		shares := make(map[string][]float64, len(categories))
		for _, cat := range categories {
			shares[cat] = make([]float64, rows.Len())
		}

		for i := range labels {
			cell := rows.Cells[i]

			total := 0.0
			catCount := make(map[string]float64, len(categories))
			for _, cat := range categories {
				v, ok := nbh.Value(cell, cat+label)
				if !ok || math.IsNaN(v) {
					v = 0
				}
				catCount[cat] = v
				total += v
			}

			// The row's own category inflates its neighborhood; pull it back
			// out unless the row never contributed.
			if opt.ExcludeSelf && labels[i] != "" && catCount[labels[i]] > 0 {
				catCount[labels[i]]--
				total--
			}

			if total < float64(opt.MinCount) {
				for _, cat := range categories {
					shares[cat][i] = math.NaN()
				}
				continue
			}
			for _, cat := range categories {
				shares[cat][i] = catCount[cat] / total
			}
		}

		for _, cat := range categories {
			out[fmt.Sprintf("share_%s_%s%s", catCol, cat, label)] = shares[cat]
		}
	}
	return out, categories, nil
}
