package loader

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urbanstock/feature-cli/internal/model"
)

const squareWKT = "POLYGON ((0 0, 1 0, 1 1, 0 1, 0 0))"

func TestBuildingsFromCSV(t *testing.T) {
	input := strings.Join([]string{
		"id,geometry,height,use_kind",
		`a,"` + squareWKT + `",10.5,residential`,
		`b,"` + squareWKT + `",,commercial`,
	}, "\n")

	buildings, err := BuildingsFromCSV(strings.NewReader(input), "geometry", "id")
	require.NoError(t, err)
	require.Len(t, buildings, 2)

	assert.Equal(t, "a", buildings[0].ID)
	assert.InDelta(t, 1, buildings[0].Footprint.Area(), 1e-9)
	assert.Equal(t, 10.5, buildings[0].Num("height"))
	assert.Equal(t, "residential", buildings[0].Cat("use_kind"))

	// Blank numeric cells load as NaN, not zero.
	assert.Equal(t, "b", buildings[1].ID)
	assert.True(t, math.IsNaN(buildings[1].Num("height")))
}

func TestBuildingsFromCSVRowIndexIDs(t *testing.T) {
	input := strings.Join([]string{
		"geometry,height",
		`"` + squareWKT + `",5`,
		`"` + squareWKT + `",6`,
	}, "\n")

	buildings, err := BuildingsFromCSV(strings.NewReader(input), "geometry", "")
	require.NoError(t, err)
	require.Len(t, buildings, 2)
	assert.Equal(t, "0", buildings[0].ID)
	assert.Equal(t, "1", buildings[1].ID)
}

func TestBuildingsFromCSVTypeInference(t *testing.T) {
	// One stray non-float cell makes the whole column categorical.
	input := strings.Join([]string{
		"id,geometry,floors",
		`a,"` + squareWKT + `",3`,
		`b,"` + squareWKT + `",unknown`,
	}, "\n")

	buildings, err := BuildingsFromCSV(strings.NewReader(input), "geometry", "id")
	require.NoError(t, err)
	assert.Equal(t, "3", buildings[0].Cat("floors"))
	assert.True(t, math.IsNaN(buildings[0].Num("floors")))
}

func TestBuildingsFromCSVMissingGeometryColumn(t *testing.T) {
	input := "id,height\na,10\n"

	_, err := BuildingsFromCSV(strings.NewReader(input), "geometry", "id")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing geometry column")
}

func TestBuildingsFromCSVBadWKT(t *testing.T) {
	input := "id,geometry\na,not-wkt\n"

	_, err := BuildingsFromCSV(strings.NewReader(input), "geometry", "id")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 0")
}

func TestParseWKTPolygonMultipolygonLargestPart(t *testing.T) {
	wkt := "MULTIPOLYGON (((0 0, 1 0, 1 1, 0 1, 0 0)), ((10 10, 13 10, 13 13, 10 13, 10 10)))"

	poly, err := ParseWKTPolygon(wkt)
	require.NoError(t, err)
	assert.InDelta(t, 9, poly.Area(), 1e-9)
}

func TestParseWKTPolygonRejectsPoint(t *testing.T) {
	_, err := ParseWKTPolygon("POINT (1 2)")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported WKT geometry type")
}

func TestWriteCSV(t *testing.T) {
	a := model.Building{ID: "a"}
	a.SetCat("use_kind", "residential")
	a.SetNum("height", 12.5)
	b := model.Building{ID: "b"}
	b.SetCat("use_kind", "commercial")
	b.SetNum("height", math.NaN())

	var buf bytes.Buffer
	err := WriteCSV(&buf, []model.Building{a, b}, []string{"height"}, []string{"use_kind"})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "id,use_kind,height", lines[0])
	assert.Equal(t, "a,residential,12.5", lines[1])
	// NaN serializes as an empty cell.
	assert.Equal(t, "b,commercial,", lines[2])
}

func TestCSVRoundTrip(t *testing.T) {
	a := model.Building{ID: "a"}
	a.SetCat("use_kind", "residential")
	a.SetNum("height", 7)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []model.Building{a}, []string{"height"}, []string{"use_kind"}))

	// The output has no geometry column, so it reads back as plain
	// attributes only when a geometry column is appended.
	out := strings.TrimSpace(buf.String())
	rows := strings.Split(out, "\n")
	withGeom := rows[0] + ",geometry\n" + rows[1] + `,"` + squareWKT + `"` + "\n"

	back, err := BuildingsFromCSV(strings.NewReader(withGeom), "geometry", "id")
	require.NoError(t, err)
	require.Len(t, back, 1)
	assert.Equal(t, "a", back[0].ID)
	assert.Equal(t, 7.0, back[0].Num("height"))
	assert.Equal(t, "residential", back[0].Cat("use_kind"))
}
