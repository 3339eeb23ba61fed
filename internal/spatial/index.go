// Package spatial wraps an R-tree with the two queries the feature stages
// need: nearest geometry within a maximum distance, and candidate pairs for
// touch/intersect tests. Distances are planar, in the units of the caller's
// projected frame.
package spatial

import (
	"math"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
)

// Entry is one indexed geometry.
type Entry struct {
	ID string
	geom.Geom

	bounds *geom.Bounds
}

// Bounds implements rtree.Spatial.
func (e *Entry) Bounds() *geom.Bounds { return e.bounds }

// Index is an immutable-after-build spatial index. Build it once per stage;
// a region's data is owned exclusively for the duration of a call.
type Index struct {
	tree    *rtree.Rtree
	entries []*Entry
}

// NewIndex builds an index over the given geometries.
func NewIndex() *Index {
	return &Index{tree: rtree.NewTree(25, 50)}
}

// Add inserts a geometry under the given id.
func (x *Index) Add(id string, g geom.Geom) {
	e := &Entry{ID: id, Geom: g, bounds: g.Bounds()}
	x.entries = append(x.entries, e)
	x.tree.Insert(e)
}

// Len returns the number of indexed geometries.
func (x *Index) Len() int { return len(x.entries) }

// Candidates returns the entries whose bounding boxes intersect b, expanded
// by pad on every side. Exact predicates are the caller's business.
func (x *Index) Candidates(b *geom.Bounds, pad float64) []*Entry {
	query := &geom.Bounds{
		Min: geom.Point{X: b.Min.X - pad, Y: b.Min.Y - pad},
		Max: geom.Point{X: b.Max.X + pad, Y: b.Max.Y + pad},
	}
	hits := x.tree.SearchIntersect(query)
	out := make([]*Entry, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.(*Entry))
	}
	return out
}

// NearestWithin returns the entry closest to g within maxDist, excluding
// the entry with id equal to exclude (pass "" to exclude nothing). Ties are
// broken by id so repeated queries are deterministic. ok is false when
// nothing lies within maxDist.
func (x *Index) NearestWithin(g geom.Geom, maxDist float64, exclude string) (*Entry, float64, bool) {
	var (
		best     *Entry
		bestDist = math.Inf(1)
	)
	for _, e := range x.Candidates(g.Bounds(), maxDist) {
		if exclude != "" && e.ID == exclude {
			continue
		}
		d := Distance(g, e.Geom)
		if d > maxDist {
			continue
		}
		if d < bestDist || (d == bestDist && best != nil && e.ID < best.ID) {
			best = e
			bestDist = d
		}
	}
	if best == nil {
		return nil, math.NaN(), false
	}
	return best, bestDist, true
}
