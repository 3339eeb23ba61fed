package hexgrid

import (
	"math"
	"sort"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"
	"github.com/rotisserie/eris"
	h3 "github.com/uber/h3-go/v4"

	"github.com/urbanstock/feature-cli/internal/model"
)

// longlatProj is the geographic frame the H3 tessellation is defined over.
const longlatProj = "+proj=longlat +datum=WGS84 +no_defs"

// Indexer assigns hex cell identifiers to geometries. The inputs live in
// the caller's projected frame; the indexer reprojects each geometry's
// representative point to lat/lon before sampling the tessellation, so
// identical coordinates always map to the same cell at a given resolution.
type Indexer struct {
	res   int
	trans proj.Transformer
}

// NewIndexer builds an indexer for geometries in the srcProj frame at the
// given H3 resolution (0-15).
func NewIndexer(srcProj string, res int) (*Indexer, error) {
	if res < 0 || res > 15 {
		return nil, eris.Errorf("hexgrid: resolution %d out of range 0-15", res)
	}
	src, err := proj.Parse(srcProj)
	if err != nil {
		return nil, eris.Wrapf(err, "hexgrid: parse source projection %q", srcProj)
	}
	dst, err := proj.Parse(longlatProj)
	if err != nil {
		return nil, eris.Wrap(err, "hexgrid: parse longlat projection")
	}
	trans, err := src.NewTransform(dst)
	if err != nil {
		return nil, eris.Wrap(err, "hexgrid: build longlat transform")
	}
	return &Indexer{res: res, trans: trans}, nil
}

// Resolution returns the H3 resolution the indexer samples at.
func (ix *Indexer) Resolution() int { return ix.res }

// IndexBuildings assigns a cell to every building's footprint. A single
// invalid geometry aborts the whole stage with a GeometryError naming the
// offending row.
func (ix *Indexer) IndexBuildings(buildings []model.Building) ([]h3.Cell, error) {
	cells := make([]h3.Cell, len(buildings))
	for i := range buildings {
		c, err := ix.IndexPolygon(buildings[i].ID, buildings[i].Footprint)
		if err != nil {
			return nil, err
		}
		cells[i] = c
	}
	return cells, nil
}

// IndexPolygon assigns a cell to one polygon, sampling its centroid or, for
// concave shapes whose centroid falls outside, a representative interior
// point.
func (ix *Indexer) IndexPolygon(id string, p geom.Polygon) (h3.Cell, error) {
	if len(p) == 0 || len(p[0]) < 3 {
		return 0, eris.Wrap(&model.GeometryError{ID: id, Reason: "empty polygon"}, "hexgrid: index")
	}
	if p.Area() <= 0 {
		return 0, eris.Wrap(&model.GeometryError{ID: id, Reason: "zero-area polygon"}, "hexgrid: index")
	}

	pt := p.Centroid()
	if pt.Within(p) == geom.Outside {
		pt = representativePoint(p)
	}
	return ix.IndexPoint(id, pt)
}

// IndexPoint assigns a cell to a point in the source frame.
func (ix *Indexer) IndexPoint(id string, pt geom.Point) (h3.Cell, error) {
	if math.IsNaN(pt.X) || math.IsNaN(pt.Y) {
		return 0, eris.Wrap(&model.GeometryError{ID: id, Reason: "NaN coordinate"}, "hexgrid: index")
	}
	gg, err := pt.Transform(ix.trans)
	if err != nil {
		return 0, eris.Wrap(&model.GeometryError{ID: id, Reason: "reprojection failed"}, "hexgrid: index")
	}
	ll := gg.(geom.Point)

	cell, err := h3.LatLngToCell(h3.LatLng{Lat: ll.Y, Lng: ll.X}, ix.res)
	if err != nil {
		return 0, eris.Wrap(&model.GeometryError{ID: id, Reason: "point outside tessellation"}, "hexgrid: index")
	}
	return cell, nil
}

// representativePoint returns a point guaranteed to lie inside the polygon:
// the midpoint of the widest horizontal interior interval at the centroid's
// latitude.
func representativePoint(p geom.Polygon) geom.Point {
	cy := p.Centroid().Y

	var xs []float64
	for _, ring := range p {
		n := len(ring)
		for i := 0; i < n; i++ {
			a, b := ring[i], ring[(i+1)%n]
			if (a.Y <= cy) == (b.Y <= cy) {
				continue
			}
			t := (cy - a.Y) / (b.Y - a.Y)
			xs = append(xs, a.X+t*(b.X-a.X))
		}
	}
	if len(xs) < 2 {
		return p.Centroid()
	}
	sort.Float64s(xs)

	best, bestWidth := geom.Point{X: (xs[0] + xs[1]) / 2, Y: cy}, 0.0
	for i := 0; i+1 < len(xs); i += 2 {
		if w := xs[i+1] - xs[i]; w > bestWidth {
			bestWidth = w
			best = geom.Point{X: (xs[i] + xs[i+1]) / 2, Y: cy}
		}
	}
	return best
}
