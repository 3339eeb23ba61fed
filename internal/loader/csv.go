package loader

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"

	ctgeom "github.com/ctessum/geom"
	"github.com/rotisserie/eris"
	twgeom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkt"

	"github.com/urbanstock/feature-cli/internal/model"
)

// BuildingsFromCSV reads a CSV with one WKT geometry column. geomCol names
// the WKT column and idCol the identifier column; an empty idCol falls
// back to the row index. Remaining columns are typed by inference: a
// column whose every non-empty cell parses as a float loads as numeric,
// anything else as categorical.
func BuildingsFromCSV(r io.Reader, geomCol, idCol string) ([]model.Building, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = false

	header, err := cr.Read()
	if err != nil {
		return nil, eris.Wrap(err, "loader: read CSV header")
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	geomIdx, ok := col[geomCol]
	if !ok {
		return nil, eris.Errorf("loader: CSV missing geometry column %q", geomCol)
	}
	idIdx := -1
	if idCol != "" {
		if idIdx, ok = col[idCol]; !ok {
			return nil, eris.Errorf("loader: CSV missing id column %q", idCol)
		}
	}

	var records [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "loader: read CSV record")
		}
		records = append(records, rec)
	}

	numeric := inferNumericColumns(header, records, geomIdx, idIdx)

	buildings := make([]model.Building, 0, len(records))
	for i, rec := range records {
		poly, err := ParseWKTPolygon(rec[geomIdx])
		if err != nil {
			return nil, eris.Wrapf(err, "loader: row %d", i)
		}

		b := model.Building{
			ID:          strconv.Itoa(i),
			Footprint:   poly,
			Numeric:     make(map[string]float64),
			Categorical: make(map[string]string),
		}
		if idIdx >= 0 && rec[idIdx] != "" {
			b.ID = rec[idIdx]
		}
		for j, name := range header {
			if j == geomIdx || j == idIdx {
				continue
			}
			if numeric[j] {
				b.SetNum(name, parseFloat(rec[j]))
			} else {
				b.SetCat(name, rec[j])
			}
		}
		buildings = append(buildings, b)
	}
	return buildings, nil
}

// WriteCSV writes one row per building with the id, block assignment when
// present, and the given numeric and categorical columns. NaN and missing
// values serialize as empty cells.
func WriteCSV(w io.Writer, buildings []model.Building, numericCols, categoricalCols []string) error {
	cw := csv.NewWriter(w)

	header := append([]string{"id"}, categoricalCols...)
	header = append(header, numericCols...)
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "loader: write CSV header")
	}

	row := make([]string, 0, len(header))
	for i := range buildings {
		row = row[:0]
		row = append(row, buildings[i].ID)
		for _, c := range categoricalCols {
			row = append(row, buildings[i].Cat(c))
		}
		for _, c := range numericCols {
			v := buildings[i].Num(c)
			if math.IsNaN(v) {
				row = append(row, "")
			} else {
				row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
			}
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "loader: write CSV row")
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "loader: flush CSV")
}

// inferNumericColumns marks columns where every non-empty cell parses as a
// float. Columns with no values at all stay categorical.
func inferNumericColumns(header []string, records [][]string, geomIdx, idIdx int) []bool {
	numeric := make([]bool, len(header))
	for j := range header {
		if j == geomIdx || j == idIdx {
			continue
		}
		seen := false
		ok := true
		for _, rec := range records {
			if j >= len(rec) || rec[j] == "" {
				continue
			}
			seen = true
			if _, err := strconv.ParseFloat(rec[j], 64); err != nil {
				ok = false
				break
			}
		}
		numeric[j] = seen && ok
	}
	return numeric
}

// ParseWKTPolygon decodes a WKT polygon or multipolygon, reducing
// multipart geometries to their largest part.
func ParseWKTPolygon(s string) (ctgeom.Polygon, error) {
	g, err := wkt.Unmarshal(s)
	if err != nil {
		return nil, eris.Wrap(err, "loader: parse WKT geometry")
	}

	switch t := g.(type) {
	case *twgeom.Polygon:
		return polygonCoords(t.Coords()), nil
	case *twgeom.MultiPolygon:
		var best ctgeom.Polygon
		var bestArea float64
		for _, pc := range t.Coords() {
			cand := polygonCoords(pc)
			if a := cand.Area(); a > bestArea {
				best, bestArea = cand, a
			}
		}
		if best == nil {
			return nil, eris.New("loader: empty multipolygon")
		}
		return best, nil
	default:
		return nil, eris.Errorf("loader: unsupported WKT geometry type %T", g)
	}
}

func polygonCoords(rings [][]twgeom.Coord) ctgeom.Polygon {
	poly := make(ctgeom.Polygon, 0, len(rings))
	for _, ring := range rings {
		pts := make([]ctgeom.Point, 0, len(ring))
		for _, c := range ring {
			pts = append(pts, ctgeom.Point{X: c[0], Y: c[1]})
		}
		poly = append(poly, pts)
	}
	return poly
}

// parseFloat parses a float cell, mapping blank or malformed values to NaN.
func parseFloat(s string) float64 {
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
