// Package loader reads building, street, POI, and population layers from
// shapefiles and WKT CSV files into the in-memory model, and writes
// feature tables back out as CSV or XLSX.
package loader

import (
	"strconv"
	"strings"

	ctgeom "github.com/ctessum/geom"
	shp "github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/urbanstock/feature-cli/internal/features"
	"github.com/urbanstock/feature-cli/internal/model"
)

// BuildingsFromShapefile reads polygon footprints and their attributes.
// idField names the identifier column; empty falls back to the record
// index. numericFields parse as float64 with NaN for blank or malformed
// cells; categoricalFields load verbatim.
func BuildingsFromShapefile(path, idField string, numericFields, categoricalFields []string) ([]model.Building, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "loader: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	fieldIdx := fieldIndex(reader)
	var buildings []model.Building
	var skipped int

	for i := 0; reader.Next(); i++ {
		_, shape := reader.Shape()
		poly, ok := shapeToPolygon(shape)
		if !ok {
			skipped++
			continue
		}

		b := model.Building{
			ID:          strconv.Itoa(i),
			Footprint:   poly,
			Numeric:     make(map[string]float64, len(numericFields)),
			Categorical: make(map[string]string, len(categoricalFields)),
		}
		if idField != "" {
			if v := attribute(reader, fieldIdx, idField); v != "" {
				b.ID = v
			}
		}
		for _, f := range numericFields {
			b.SetNum(f, parseFloat(attribute(reader, fieldIdx, f)))
		}
		for _, f := range categoricalFields {
			b.SetCat(f, attribute(reader, fieldIdx, f))
		}
		buildings = append(buildings, b)
	}

	if skipped > 0 {
		zap.L().Debug("loader: skipped building records without polygon geometry",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	return buildings, nil
}

// StreetsFromShapefile reads street centerlines with their highway tag.
func StreetsFromShapefile(path, highwayField string) ([]features.Street, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "loader: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	fieldIdx := fieldIndex(reader)
	var streets []features.Street
	var skipped int

	for i := 0; reader.Next(); i++ {
		_, shape := reader.Shape()
		pl, ok := shape.(*shp.PolyLine)
		if !ok || pl == nil || len(pl.Points) == 0 {
			skipped++
			continue
		}
		// One street per part so the nearest-line search sees each
		// physical segment independently.
		for p := int32(0); p < pl.NumParts; p++ {
			start := pl.Parts[p]
			end := int32(len(pl.Points))
			if p+1 < pl.NumParts {
				end = pl.Parts[p+1]
			}
			ls := make(ctgeom.LineString, 0, end-start)
			for j := start; j < end; j++ {
				ls = append(ls, ctgeom.Point{X: pl.Points[j].X, Y: pl.Points[j].Y})
			}
			if len(ls) < 2 {
				continue
			}
			streets = append(streets, features.Street{
				ID:      strconv.Itoa(i) + "/" + strconv.Itoa(int(p)),
				Geom:    ls,
				Highway: attribute(reader, fieldIdx, highwayField),
			})
		}
	}

	if skipped > 0 {
		zap.L().Debug("loader: skipped street records without line geometry",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	return streets, nil
}

// POIsFromShapefile reads point features with their kind tag.
func POIsFromShapefile(path, kindField string) ([]features.POI, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "loader: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	fieldIdx := fieldIndex(reader)
	var pois []features.POI

	for i := 0; reader.Next(); i++ {
		_, shape := reader.Shape()
		pt, ok := shape.(*shp.Point)
		if !ok || pt == nil {
			continue
		}
		pois = append(pois, features.POI{
			ID:   strconv.Itoa(i),
			Geom: ctgeom.Point{X: pt.X, Y: pt.Y},
			Kind: attribute(reader, fieldIdx, kindField),
		})
	}
	return pois, nil
}

// PopulationFromShapefile reads population raster centroids.
func PopulationFromShapefile(path, popField string) ([]features.PopulationPoint, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "loader: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	fieldIdx := fieldIndex(reader)
	var points []features.PopulationPoint

	for reader.Next() {
		_, shape := reader.Shape()
		pt, ok := shape.(*shp.Point)
		if !ok || pt == nil {
			continue
		}
		pop := parseFloat(attribute(reader, fieldIdx, popField))
		points = append(points, features.PopulationPoint{
			Geom:       ctgeom.Point{X: pt.X, Y: pt.Y},
			Population: pop,
		})
	}
	return points, nil
}

// fieldIndex builds a lowercase field name to column index map.
func fieldIndex(reader *shp.Reader) map[string]int {
	fields := reader.Fields()
	idx := make(map[string]int, len(fields))
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		idx[strings.ToLower(name)] = i
	}
	return idx
}

func attribute(reader *shp.Reader, fieldIdx map[string]int, name string) string {
	i, ok := fieldIdx[strings.ToLower(name)]
	if !ok {
		return ""
	}
	v := strings.TrimRight(reader.Attribute(i), "\x00")
	return strings.TrimSpace(v)
}

// shapeToPolygon converts a shapefile polygon to a planar polygon, keeping
// the largest part of multipart records.
func shapeToPolygon(shape shp.Shape) (ctgeom.Polygon, bool) {
	p, ok := shape.(*shp.Polygon)
	if !ok || p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil, false
	}

	var best ctgeom.Polygon
	var bestArea float64
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}
		ring := make([]ctgeom.Point, 0, end-start)
		for j := start; j < end; j++ {
			ring = append(ring, ctgeom.Point{X: p.Points[j].X, Y: p.Points[j].Y})
		}
		if len(ring) < 3 {
			continue
		}
		cand := ctgeom.Polygon{ring}
		if a := cand.Area(); a > bestArea {
			best, bestArea = cand, a
		}
	}
	if best == nil {
		return nil, false
	}
	return best, true
}
