package hexgrid

import (
	"math"
	"testing"

	"github.com/ctessum/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urbanstock/feature-cli/internal/model"
)

func newLonglatIndexer(t *testing.T, res int) *Indexer {
	t.Helper()
	ix, err := NewIndexer(longlatProj, res)
	require.NoError(t, err)
	return ix
}

func squareAt(x, y, size float64) geom.Polygon {
	return geom.Polygon{{
		{X: x, Y: y},
		{X: x + size, Y: y},
		{X: x + size, Y: y + size},
		{X: x, Y: y + size},
	}}
}

func TestNewIndexerBadResolution(t *testing.T) {
	_, err := NewIndexer(longlatProj, -1)
	assert.Error(t, err)
	_, err = NewIndexer(longlatProj, 16)
	assert.Error(t, err)
}

func TestNewIndexerBadProjection(t *testing.T) {
	_, err := NewIndexer("+proj=nonsense", 8)
	assert.Error(t, err)
}

func TestIndexPolygonDeterministic(t *testing.T) {
	ix := newLonglatIndexer(t, 8)
	p := squareAt(10.0, 52.0, 0.001)

	a, err := ix.IndexPolygon("a", p)
	require.NoError(t, err)
	b, err := ix.IndexPolygon("b", p)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, 8, a.Resolution())
}

func TestIndexPolygonEmpty(t *testing.T) {
	ix := newLonglatIndexer(t, 8)

	_, err := ix.IndexPolygon("bad", geom.Polygon{})
	require.Error(t, err)
	var gerr *model.GeometryError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, "bad", gerr.ID)
}

func TestIndexPolygonZeroArea(t *testing.T) {
	ix := newLonglatIndexer(t, 8)
	degenerate := geom.Polygon{{
		{X: 10, Y: 52},
		{X: 10.001, Y: 52},
		{X: 10.002, Y: 52},
	}}

	_, err := ix.IndexPolygon("flat", degenerate)
	require.Error(t, err)
	var gerr *model.GeometryError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, "flat", gerr.ID)
}

// A U-shaped footprint whose centroid falls in the notch must still index
// from a point inside the shape.
func TestIndexPolygonConcave(t *testing.T) {
	ix := newLonglatIndexer(t, 8)
	u := geom.Polygon{{
		{X: 10.000, Y: 52.000},
		{X: 10.030, Y: 52.000},
		{X: 10.030, Y: 52.020},
		{X: 10.024, Y: 52.020},
		{X: 10.024, Y: 52.004},
		{X: 10.006, Y: 52.004},
		{X: 10.006, Y: 52.020},
		{X: 10.000, Y: 52.020},
	}}

	cell, err := ix.IndexPolygon("u", u)
	require.NoError(t, err)
	assert.Equal(t, 8, cell.Resolution())
}

func TestIndexBuildingsAbortsOnInvalid(t *testing.T) {
	ix := newLonglatIndexer(t, 8)
	buildings := []model.Building{
		{ID: "ok", Footprint: squareAt(10.0, 52.0, 0.001)},
		{ID: "broken", Footprint: geom.Polygon{}},
	}

	cells, err := ix.IndexBuildings(buildings)
	require.Error(t, err)
	assert.Nil(t, cells)
	var gerr *model.GeometryError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, "broken", gerr.ID)
}

func TestIndexPointNaN(t *testing.T) {
	ix := newLonglatIndexer(t, 8)

	_, err := ix.IndexPoint("nan", geom.Point{X: 10})
	assert.NoError(t, err)

	_, err = ix.IndexPoint("nan", geom.Point{X: 10, Y: math.NaN()})
	assert.Error(t, err)
}
