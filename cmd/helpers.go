package main

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/urbanstock/feature-cli/internal/loader"
	"github.com/urbanstock/feature-cli/internal/model"
	"github.com/urbanstock/feature-cli/internal/pipeline"
	"github.com/urbanstock/feature-cli/internal/store"
)

// inputFlags are the shared layer-loading flags for commands that read a
// region's data from disk.
type inputFlags struct {
	buildings      string
	idField        string
	geomField      string
	numericFields  []string
	categoryFields []string
	streets        string
	highwayField   string
	pois           string
	kindField      string
	population     string
	popField       string
}

// registerInputFlags wires the shared layer flags onto a command.
func registerInputFlags(cmd *cobra.Command, f *inputFlags) {
	flags := cmd.Flags()
	flags.StringVar(&f.buildings, "buildings", "", "building layer (.shp or WKT .csv)")
	flags.StringVar(&f.idField, "id-field", "", "building identifier field (default: record index)")
	flags.StringVar(&f.geomField, "geom-field", "geometry", "WKT geometry column for CSV input")
	flags.StringSliceVar(&f.numericFields, "numeric", nil, "numeric attribute fields to load from shapefile input")
	flags.StringSliceVar(&f.categoryFields, "categorical", nil, "categorical attribute fields to load from shapefile input")
	flags.StringVar(&f.streets, "streets", "", "street centerline shapefile (optional)")
	flags.StringVar(&f.highwayField, "highway-field", "highway", "street classification field")
	flags.StringVar(&f.pois, "pois", "", "POI point shapefile (optional)")
	flags.StringVar(&f.kindField, "kind-field", "amenity", "POI kind field")
	flags.StringVar(&f.population, "population", "", "population point shapefile (optional)")
	flags.StringVar(&f.popField, "pop-field", "population", "population count field")
	_ = cmd.MarkFlagRequired("buildings")
}

func openStore() (store.Store, error) {
	s, err := store.NewSQLite(cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// loadBuildings reads a building layer from a shapefile or a WKT CSV,
// chosen by extension.
func loadBuildings(f inputFlags) ([]model.Building, error) {
	switch {
	case strings.HasSuffix(f.buildings, ".shp"):
		return loader.BuildingsFromShapefile(f.buildings, f.idField, f.numericFields, f.categoryFields)
	case strings.HasSuffix(f.buildings, ".csv"):
		file, err := os.Open(f.buildings)
		if err != nil {
			return nil, eris.Wrapf(err, "open buildings file %s", f.buildings)
		}
		defer file.Close()
		return loader.BuildingsFromCSV(file, f.geomField, f.idField)
	default:
		return nil, eris.Errorf("unsupported buildings file %s, expected .shp or .csv", f.buildings)
	}
}

// loadInput assembles the full pipeline input from the flag set. Optional
// layers with empty paths are skipped.
func loadInput(f inputFlags) (pipeline.Input, error) {
	var in pipeline.Input

	buildings, err := loadBuildings(f)
	if err != nil {
		return in, err
	}
	in.Buildings = buildings

	if f.streets != "" {
		if in.Streets, err = loader.StreetsFromShapefile(f.streets, f.highwayField); err != nil {
			return in, err
		}
	}
	if f.pois != "" {
		if in.POIs, err = loader.POIsFromShapefile(f.pois, f.kindField); err != nil {
			return in, err
		}
	}
	if f.population != "" {
		if in.Population, err = loader.PopulationFromShapefile(f.population, f.popField); err != nil {
			return in, err
		}
	}
	return in, nil
}

// writeResult writes the feature table in the requested format.
func writeResult(res *pipeline.Result, out, format string) error {
	switch format {
	case "csv":
		file, err := os.Create(out)
		if err != nil {
			return eris.Wrapf(err, "create output file %s", out)
		}
		defer file.Close()
		return loader.WriteCSV(file, res.Buildings, res.NumericColumns, res.CategoricalColumns)
	case "xlsx":
		return loader.WriteXLSX(out, res.Buildings, res.NumericColumns, res.CategoricalColumns)
	default:
		return eris.Errorf("unsupported output format %q", format)
	}
}
