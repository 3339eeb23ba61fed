// Package features computes per-building engineered features: footprint
// shape statistics plus distance/attribute features against auxiliary
// layers (streets, POIs, neighboring buildings, population points).
package features

import (
	"math"
	"sort"

	"github.com/ctessum/geom"

	"github.com/urbanstock/feature-cli/internal/model"
	"github.com/urbanstock/feature-cli/internal/spatial"
)

// cornerAngleTol is the deviation from a straight edge pair, in degrees,
// beyond which a vertex counts as a corner.
const cornerAngleTol = 10.0

// FootprintAreas returns each footprint's planar area.
func FootprintAreas(bs []model.Building) []float64 {
	out := make([]float64, len(bs))
	for i := range bs {
		out[i] = bs[i].Footprint.Area()
	}
	return out
}

// Perimeters returns each footprint's exterior ring length.
func Perimeters(bs []model.Building) []float64 {
	out := make([]float64, len(bs))
	for i := range bs {
		out[i] = ringLength(exterior(bs[i].Footprint))
	}
	return out
}

// Phi returns the ratio of the footprint area to the area of the circle
// centered on the centroid that circumscribes the footprint. Compact shapes
// approach 1, elongated or ragged shapes approach 0.
func Phi(bs []model.Building) []float64 {
	out := make([]float64, len(bs))
	for i := range bs {
		p := bs[i].Footprint
		c := p.Centroid()
		var r float64
		for _, v := range exterior(p) {
			if d := math.Hypot(v.X-c.X, v.Y-c.Y); d > r {
				r = d
			}
		}
		if r == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = p.Area() / (math.Pi * r * r)
	}
	return out
}

// LongestAxisLengths returns the diameter of each footprint's convex hull.
func LongestAxisLengths(bs []model.Building) []float64 {
	out := make([]float64, len(bs))
	for i := range bs {
		hull := convexHull(exterior(bs[i].Footprint))
		var best float64
		for a := 0; a < len(hull); a++ {
			for b := a + 1; b < len(hull); b++ {
				if d := math.Hypot(hull[a].X-hull[b].X, hull[a].Y-hull[b].Y); d > best {
					best = d
				}
			}
		}
		out[i] = best
	}
	return out
}

// Elongations returns the width-over-length ratio of each footprint's
// minimum rotated bounding rectangle (1 for a square, approaching 0 for a
// sliver).
func Elongations(bs []model.Building) []float64 {
	out := make([]float64, len(bs))
	for i := range bs {
		length, width, _ := minRotatedRect(exterior(bs[i].Footprint))
		if length == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = width / length
	}
	return out
}

// Convexities returns the footprint area over its convex hull area.
func Convexities(bs []model.Building) []float64 {
	out := make([]float64, len(bs))
	for i := range bs {
		hull := geom.Polygon{convexHull(exterior(bs[i].Footprint))}
		ha := hull.Area()
		if ha == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = bs[i].Footprint.Area() / ha
	}
	return out
}

// Orientations returns the deviation of each footprint's longest bounding
// rectangle axis from the cardinal directions, in degrees (0-45).
func Orientations(bs []model.Building) []float64 {
	out := make([]float64, len(bs))
	for i := range bs {
		_, _, angle := minRotatedRect(exterior(bs[i].Footprint))
		out[i] = cardinalDeviation(angle)
	}
	return out
}

// Corners returns the number of exterior vertices where the boundary turns
// by more than cornerAngleTol degrees.
func Corners(bs []model.Building) []float64 {
	out := make([]float64, len(bs))
	for i := range bs {
		ring := exterior(bs[i].Footprint)
		n := len(ring)
		var corners int
		for v := 0; v < n; v++ {
			prev := ring[(v+n-1)%n]
			cur := ring[v]
			next := ring[(v+1)%n]
			turn := math.Abs(turnDegrees(prev, cur, next))
			if turn > cornerAngleTol {
				corners++
			}
		}
		out[i] = float64(corners)
	}
	return out
}

// SharedWallLengths returns, for each building, the total exterior length
// shared with touching neighbors. tol is the boundary snap tolerance in
// projected units.
func SharedWallLengths(bs []model.Building, tol float64) []float64 {
	index := spatial.NewIndex()
	byID := make(map[string]geom.Polygon, len(bs))
	for i := range bs {
		index.Add(bs[i].ID, bs[i].Footprint)
		byID[bs[i].ID] = bs[i].Footprint
	}

	out := make([]float64, len(bs))
	for i := range bs {
		p := bs[i].Footprint
		var shared float64
		for _, cand := range index.Candidates(p.Bounds(), tol) {
			if cand.ID == bs[i].ID {
				continue
			}
			shared += sharedEdgeLength(p, byID[cand.ID], tol)
		}
		out[i] = shared
	}
	return out
}

// TouchCounts returns the number of other buildings each building touches
// or intersects.
func TouchCounts(bs []model.Building, tol float64) []float64 {
	index := spatial.NewIndex()
	for i := range bs {
		index.Add(bs[i].ID, bs[i].Footprint)
	}

	out := make([]float64, len(bs))
	for i := range bs {
		p := bs[i].Footprint
		var n int
		for _, cand := range index.Candidates(p.Bounds(), tol) {
			if cand.ID == bs[i].ID {
				continue
			}
			if spatial.Touches(p, cand.Geom, tol) {
				n++
			}
		}
		out[i] = float64(n)
	}
	return out
}

// exterior returns the outer ring of a polygon.
func exterior(p geom.Polygon) []geom.Point {
	if len(p) == 0 {
		return nil
	}
	return p[0]
}

func ringLength(ring []geom.Point) float64 {
	n := len(ring)
	var total float64
	for i := 0; i < n; i++ {
		a, b := ring[i], ring[(i+1)%n]
		total += math.Hypot(b.X-a.X, b.Y-a.Y)
	}
	return total
}

// convexHull computes the convex hull via Andrew's monotone chain.
func convexHull(pts []geom.Point) []geom.Point {
	if len(pts) < 3 {
		return append([]geom.Point(nil), pts...)
	}
	sorted := append([]geom.Point(nil), pts...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].X != sorted[j].X {
			return sorted[i].X < sorted[j].X
		}
		return sorted[i].Y < sorted[j].Y
	})

	cross := func(o, a, b geom.Point) float64 {
		return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
	}

	var hull []geom.Point
	for _, p := range sorted {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(sorted) - 2; i >= 0; i-- {
		p := sorted[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}

// minRotatedRect computes the minimum-area rotated bounding rectangle of
// the points via rotating calipers over the convex hull. Returns the long
// side, the short side, and the long side's angle in degrees.
func minRotatedRect(pts []geom.Point) (length, width, angleDeg float64) {
	hull := convexHull(pts)
	if len(hull) < 2 {
		return 0, 0, 0
	}
	if len(hull) == 2 {
		d := math.Hypot(hull[1].X-hull[0].X, hull[1].Y-hull[0].Y)
		return d, 0, math.Atan2(hull[1].Y-hull[0].Y, hull[1].X-hull[0].X) * 180 / math.Pi
	}

	bestArea := math.Inf(1)
	for i := 0; i < len(hull); i++ {
		a := hull[i]
		b := hull[(i+1)%len(hull)]
		theta := math.Atan2(b.Y-a.Y, b.X-a.X)
		cos, sin := math.Cos(-theta), math.Sin(-theta)

		minX, minY := math.Inf(1), math.Inf(1)
		maxX, maxY := math.Inf(-1), math.Inf(-1)
		for _, p := range hull {
			x := p.X*cos - p.Y*sin
			y := p.X*sin + p.Y*cos
			minX = math.Min(minX, x)
			minY = math.Min(minY, y)
			maxX = math.Max(maxX, x)
			maxY = math.Max(maxY, y)
		}

		w := maxX - minX
		h := maxY - minY
		if area := w * h; area < bestArea {
			bestArea = area
			if w >= h {
				length, width = w, h
				angleDeg = theta * 180 / math.Pi
			} else {
				length, width = h, w
				angleDeg = (theta + math.Pi/2) * 180 / math.Pi
			}
		}
	}
	return length, width, angleDeg
}

// cardinalDeviation folds an angle into the 0-45 degree deviation from the
// nearest cardinal direction.
func cardinalDeviation(angleDeg float64) float64 {
	a := math.Mod(math.Abs(angleDeg), 90)
	if a > 45 {
		a = 90 - a
	}
	return a
}

// turnDegrees returns the signed turn at cur between the incoming and
// outgoing edges, in degrees; zero means collinear.
func turnDegrees(prev, cur, next geom.Point) float64 {
	a1 := math.Atan2(cur.Y-prev.Y, cur.X-prev.X)
	a2 := math.Atan2(next.Y-cur.Y, next.X-cur.X)
	d := (a2 - a1) * 180 / math.Pi
	for d > 180 {
		d -= 360
	}
	for d < -180 {
		d += 360
	}
	return d
}

// sharedEdgeLength sums the overlap of near-collinear exterior edge pairs
// of two polygons, within tol.
func sharedEdgeLength(a, b geom.Polygon, tol float64) float64 {
	ea, eb := exterior(a), exterior(b)
	var total float64
	na, nb := len(ea), len(eb)
	for i := 0; i < na; i++ {
		s1a, s1b := ea[i], ea[(i+1)%na]
		for j := 0; j < nb; j++ {
			total += segmentOverlap(s1a, s1b, eb[j], eb[(j+1)%nb], tol)
		}
	}
	return total
}

// segmentOverlap returns the length of the collinear overlap between two
// segments, or zero when they are not parallel and coincident within tol.
func segmentOverlap(a1, a2, b1, b2 geom.Point, tol float64) float64 {
	dx, dy := a2.X-a1.X, a2.Y-a1.Y
	la := math.Hypot(dx, dy)
	if la == 0 {
		return 0
	}
	ux, uy := dx/la, dy/la

	// Parallelism: the cross product of unit directions stays near zero.
	lb := math.Hypot(b2.X-b1.X, b2.Y-b1.Y)
	if lb == 0 {
		return 0
	}
	if math.Abs(ux*(b2.Y-b1.Y)/lb-uy*(b2.X-b1.X)/lb) > 0.01 {
		return 0
	}

	// Coincidence: both endpoints of b near the line of a.
	if math.Abs((b1.X-a1.X)*uy-(b1.Y-a1.Y)*ux) > tol {
		return 0
	}
	if math.Abs((b2.X-a1.X)*uy-(b2.Y-a1.Y)*ux) > tol {
		return 0
	}

	t0 := (b1.X-a1.X)*ux + (b1.Y-a1.Y)*uy
	t1 := (b2.X-a1.X)*ux + (b2.Y-a1.Y)*uy
	lo := math.Max(0, math.Min(t0, t1))
	hi := math.Min(la, math.Max(t0, t1))
	if hi <= lo {
		return 0
	}
	return hi - lo
}
