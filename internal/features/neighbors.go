package features

import (
	"math"

	"github.com/urbanstock/feature-cli/internal/model"
	"github.com/urbanstock/feature-cli/internal/spatial"
)

// ValueMatcher selects a subset of buildings by one attribute. Either
// Labels matches a categorical column against a set of values, or Min/Max
// matches a numeric column against an inclusive range.
type ValueMatcher struct {
	Labels   []string
	Min, Max float64
	Numeric  bool
}

func (m ValueMatcher) matches(b *model.Building, attr string) bool {
	if m.Numeric {
		v := b.Num(attr)
		return !math.IsNaN(v) && v >= m.Min && v <= m.Max
	}
	cat := b.Cat(attr)
	for _, l := range m.Labels {
		if cat == l {
			return true
		}
	}
	return false
}

// ClosestBuildingAttr returns, for each building, the value of attr on the
// nearest other building within maxDist that carries a value for it, or
// NaN when none does.
func ClosestBuildingAttr(bs []model.Building, attr string, maxDist float64) []float64 {
	index := spatial.NewIndex()
	byID := make(map[string]*model.Building, len(bs))
	for i := range bs {
		if math.IsNaN(bs[i].Num(attr)) {
			continue
		}
		index.Add(bs[i].ID, bs[i].Footprint)
		byID[bs[i].ID] = &bs[i]
	}

	out := make([]float64, len(bs))
	for i := range bs {
		if entry, _, ok := index.NearestWithin(bs[i].Footprint, maxDist, bs[i].ID); ok {
			out[i] = byID[entry.ID].Num(attr)
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// DistanceToMatching returns the distance from each building to the
// nearest other building whose attr satisfies the matcher, capped at
// maxDist for buildings with no match in range.
func DistanceToMatching(bs []model.Building, attr string, m ValueMatcher, maxDist float64) []float64 {
	index := spatial.NewIndex()
	for i := range bs {
		if m.matches(&bs[i], attr) {
			index.Add(bs[i].ID, bs[i].Footprint)
		}
	}

	out := make([]float64, len(bs))
	for i := range bs {
		if _, d, ok := index.NearestWithin(bs[i].Footprint, maxDist, bs[i].ID); ok {
			out[i] = d
		} else {
			out[i] = maxDist
		}
	}
	return out
}
