package features

import (
	"math"
	"strings"

	"github.com/ctessum/geom"

	"github.com/urbanstock/feature-cli/internal/model"
	"github.com/urbanstock/feature-cli/internal/spatial"
)

// Street is a road centerline with its OSM highway classification.
type Street struct {
	ID      string
	Geom    geom.LineString
	Highway string
}

// StreetFeatures computes the distance to the closest street, the ordinal
// size class of that street, and the orientation alignment between the
// building and that street. Buildings with no street within maxDist get
// maxDist as distance and NaN for the other two columns.
func StreetFeatures(bs []model.Building, streets []Street, tables Tables, maxDist float64) (dist, size, alignment []float64) {
	index := spatial.NewIndex()
	byID := make(map[string]*Street, len(streets))
	for i := range streets {
		index.Add(streets[i].ID, streets[i].Geom)
		byID[streets[i].ID] = &streets[i]
	}

	dist = make([]float64, len(bs))
	size = make([]float64, len(bs))
	alignment = make([]float64, len(bs))
	for i := range bs {
		entry, d, ok := index.NearestWithin(bs[i].Footprint, maxDist, "")
		if !ok {
			dist[i] = maxDist
			size[i] = math.NaN()
			alignment[i] = math.NaN()
			continue
		}
		street := byID[entry.ID]
		dist[i] = d
		size[i] = roadSize(street.Highway, tables)

		_, _, bAngle := minRotatedRect(exterior(bs[i].Footprint))
		alignment[i] = math.Abs(cardinalDeviation(bAngle) - cardinalDeviation(streetAngle(street.Geom)))
	}
	return dist, size, alignment
}

// roadSize resolves an OSM highway value to its ordinal class. Multi-valued
// tags ("primary;secondary") average over the known parts; a value with no
// known part is NaN.
func roadSize(highway string, tables Tables) float64 {
	var sum float64
	var n int
	for _, part := range strings.Split(highway, ";") {
		if v, ok := tables.RoadSize[strings.TrimSpace(part)]; ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// streetAngle returns the azimuth of the chord between the line's
// endpoints, in degrees.
func streetAngle(ls geom.LineString) float64 {
	if len(ls) < 2 {
		return 0
	}
	a, b := ls[0], ls[len(ls)-1]
	return math.Atan2(b.Y-a.Y, b.X-a.X) * 180 / math.Pi
}
