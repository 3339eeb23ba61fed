package features

import (
	"github.com/ctessum/geom"
	"github.com/rotisserie/eris"

	"github.com/urbanstock/feature-cli/internal/model"
	"github.com/urbanstock/feature-cli/internal/spatial"
)

// POI is a point of interest with its OSM kind (amenity/shop value).
type POI struct {
	ID   string
	Geom geom.Point
	Kind string
}

// DistanceToClosestPOI returns the distance from each building to the
// nearest POI of any kind, capped at maxDist for buildings with none in
// range.
func DistanceToClosestPOI(bs []model.Building, pois []POI, maxDist float64) []float64 {
	return poiDistances(bs, pois, maxDist)
}

// DistanceToPOICategory returns the distance from each building to the
// nearest POI whose kind belongs to the named category, capped at maxDist.
// Unknown categories are an error so misspelled config fails loudly.
func DistanceToPOICategory(bs []model.Building, pois []POI, category string, tables Tables, maxDist float64) ([]float64, error) {
	kinds, ok := tables.POICategories[category]
	if !ok {
		return nil, eris.Errorf("features: unknown POI category %q", category)
	}
	member := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		member[k] = true
	}

	var subset []POI
	for _, p := range pois {
		if member[p.Kind] {
			subset = append(subset, p)
		}
	}
	return poiDistances(bs, subset, maxDist), nil
}

func poiDistances(bs []model.Building, pois []POI, maxDist float64) []float64 {
	index := spatial.NewIndex()
	for i := range pois {
		index.Add(pois[i].ID, pois[i].Geom)
	}

	out := make([]float64, len(bs))
	for i := range bs {
		if _, d, ok := index.NearestWithin(bs[i].Footprint, maxDist, ""); ok {
			out[i] = d
		} else {
			out[i] = maxDist
		}
	}
	return out
}
