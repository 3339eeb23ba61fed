package features

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTablesDefaults(t *testing.T) {
	tables, err := LoadTables("")
	require.NoError(t, err)
	assert.Equal(t, 3.0, tables.RoadSize["residential"])
	assert.Contains(t, tables.POICategories["food"], "restaurant")
}

func TestLoadTablesOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tables.yaml")
	content := `
road_size:
  residential: 9
  bridleway: 1
poi_categories:
  food:
    - imbiss
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	tables, err := LoadTables(path)
	require.NoError(t, err)

	// Overridden and added keys.
	assert.Equal(t, 9.0, tables.RoadSize["residential"])
	assert.Equal(t, 1.0, tables.RoadSize["bridleway"])
	assert.Equal(t, []string{"imbiss"}, tables.POICategories["food"])

	// Untouched keys keep their defaults.
	assert.Equal(t, 6.0, tables.RoadSize["primary"])
	assert.Contains(t, tables.POICategories["health"], "pharmacy")
}

func TestLoadTablesMissingFile(t *testing.T) {
	_, err := LoadTables(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read tables file")
}

func TestLoadTablesMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("road_size: [not a map"), 0o644))

	_, err := LoadTables(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse tables file")
}
