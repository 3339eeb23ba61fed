package features

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Tables holds the lookup tables used by the street and POI feature
// stages. The defaults cover the common OSM vocabulary; deployments with
// regional tagging conventions override them from a YAML file.
type Tables struct {
	// RoadSize maps an OSM highway value to an ordinal size class.
	RoadSize map[string]float64 `yaml:"road_size"`
	// POICategories maps a category name to the POI kinds it contains.
	POICategories map[string][]string `yaml:"poi_categories"`
}

// DefaultTables returns the built-in lookup tables.
func DefaultTables() Tables {
	return Tables{
		RoadSize: map[string]float64{
			"footway":        1,
			"path":           1,
			"pedestrian":     1,
			"steps":          1,
			"cycleway":       1,
			"track":          1,
			"service":        2,
			"living_street":  2,
			"residential":    3,
			"unclassified":   3,
			"tertiary":       4,
			"tertiary_link":  4,
			"secondary":      5,
			"secondary_link": 5,
			"primary":        6,
			"primary_link":   6,
			"trunk":          7,
			"trunk_link":     7,
			"motorway":       8,
			"motorway_link":  8,
		},
		POICategories: map[string][]string{
			"food": {
				"restaurant", "cafe", "fast_food", "bar", "pub",
				"food_court", "ice_cream", "biergarten",
			},
			"education": {
				"school", "kindergarten", "university", "college",
				"library", "language_school", "music_school",
			},
			"health": {
				"hospital", "clinic", "doctors", "dentist",
				"pharmacy", "veterinary",
			},
			"transport": {
				"bus_station", "ferry_terminal", "taxi",
				"bicycle_rental", "car_rental", "fuel",
				"parking", "charging_station",
			},
			"leisure": {
				"cinema", "theatre", "nightclub", "arts_centre",
				"community_centre", "events_venue",
			},
			"shopping": {
				"marketplace", "supermarket", "convenience",
				"department_store", "mall", "bakery", "kiosk",
			},
			"finance": {
				"bank", "atm", "bureau_de_change", "post_office",
			},
			"worship": {
				"place_of_worship", "monastery",
			},
		},
	}
}

// LoadTables reads table overrides from a YAML file and merges them over
// the defaults. Keys present in the file replace the built-in entries;
// missing keys keep their defaults. An empty path returns the defaults.
func LoadTables(path string) (Tables, error) {
	tables := DefaultTables()
	if path == "" {
		return tables, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Tables{}, eris.Wrap(err, "features: read tables file")
	}

	var override Tables
	if err := yaml.Unmarshal(raw, &override); err != nil {
		return Tables{}, eris.Wrap(err, "features: parse tables file")
	}

	for k, v := range override.RoadSize {
		tables.RoadSize[k] = v
	}
	for k, v := range override.POICategories {
		tables.POICategories[k] = v
	}
	return tables, nil
}
