package spatial

import (
	"math"

	"github.com/ctessum/geom"
)

// Distance returns the planar distance between two geometries: zero when
// they intersect or touch, otherwise the minimum separation. Supported
// types are Point, LineString, MultiLineString, and anything Polygonal.
func Distance(a, b geom.Geom) float64 {
	pa, aPoly := a.(geom.Polygonal)
	pb, bPoly := b.(geom.Polygonal)

	// Containment short-circuits: any vertex of one inside the other.
	if aPoly && anyVertexInside(vertices(b), pa) {
		return 0
	}
	if bPoly && anyVertexInside(vertices(a), pb) {
		return 0
	}

	segsA, ptsA := segments(a)
	segsB, ptsB := segments(b)

	best := math.Inf(1)
	for _, sa := range segsA {
		for _, sb := range segsB {
			if d := segSegDistance(sa, sb); d < best {
				best = d
			}
		}
	}
	for _, p := range ptsA {
		for _, sb := range segsB {
			if d := pointSegDistance(p, sb); d < best {
				best = d
			}
		}
		for _, q := range ptsB {
			if d := euclid(p, q); d < best {
				best = d
			}
		}
	}
	for _, q := range ptsB {
		for _, sa := range segsA {
			if d := pointSegDistance(q, sa); d < best {
				best = d
			}
		}
	}
	return best
}

// Touches reports whether two geometries touch or intersect, using tol as
// the snap tolerance for boundary contact.
func Touches(a, b geom.Geom, tol float64) bool {
	return Distance(a, b) <= tol
}

// segment is a pair of endpoints.
type segment struct {
	a, b geom.Point
}

// segments decomposes a geometry into boundary segments and bare points.
func segments(g geom.Geom) ([]segment, []geom.Point) {
	switch t := g.(type) {
	case geom.Point:
		return nil, []geom.Point{t}
	case geom.LineString:
		return lineSegments(t), nil
	case geom.MultiLineString:
		var segs []segment
		for _, ls := range t {
			segs = append(segs, lineSegments(ls)...)
		}
		return segs, nil
	case geom.Polygonal:
		var segs []segment
		for _, poly := range t.Polygons() {
			for _, ring := range poly {
				n := len(ring)
				for i := 0; i < n; i++ {
					segs = append(segs, segment{ring[i], ring[(i+1)%n]})
				}
			}
		}
		return segs, nil
	}
	return nil, nil
}

func lineSegments(ls geom.LineString) []segment {
	segs := make([]segment, 0, len(ls))
	for i := 0; i+1 < len(ls); i++ {
		segs = append(segs, segment{ls[i], ls[i+1]})
	}
	return segs
}

// vertices collects the coordinates of a geometry.
func vertices(g geom.Geom) []geom.Point {
	switch t := g.(type) {
	case geom.Point:
		return []geom.Point{t}
	case geom.LineString:
		return t
	case geom.MultiLineString:
		var pts []geom.Point
		for _, ls := range t {
			pts = append(pts, ls...)
		}
		return pts
	case geom.Polygonal:
		var pts []geom.Point
		for _, poly := range t.Polygons() {
			for _, ring := range poly {
				pts = append(pts, ring...)
			}
		}
		return pts
	}
	return nil
}

func anyVertexInside(pts []geom.Point, poly geom.Polygonal) bool {
	for _, p := range pts {
		if p.Within(poly) != geom.Outside {
			return true
		}
	}
	return false
}

func euclid(a, b geom.Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// pointSegDistance returns the distance from p to the segment s.
func pointSegDistance(p geom.Point, s segment) float64 {
	dx := s.b.X - s.a.X
	dy := s.b.Y - s.a.Y
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return euclid(p, s.a)
	}
	t := ((p.X-s.a.X)*dx + (p.Y-s.a.Y)*dy) / l2
	t = math.Max(0, math.Min(1, t))
	return euclid(p, geom.Point{X: s.a.X + t*dx, Y: s.a.Y + t*dy})
}

// segSegDistance returns the distance between two segments: zero when they
// cross, otherwise the minimum endpoint-to-segment distance.
func segSegDistance(s1, s2 segment) float64 {
	if segmentsCross(s1, s2) {
		return 0
	}
	return math.Min(
		math.Min(pointSegDistance(s1.a, s2), pointSegDistance(s1.b, s2)),
		math.Min(pointSegDistance(s2.a, s1), pointSegDistance(s2.b, s1)),
	)
}

func segmentsCross(s1, s2 segment) bool {
	d1 := cross(s2.a, s2.b, s1.a)
	d2 := cross(s2.a, s2.b, s1.b)
	d3 := cross(s1.a, s1.b, s2.a)
	d4 := cross(s1.a, s1.b, s2.b)
	return ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0))
}

func cross(o, a, b geom.Point) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}
