// Package model defines the building and block data model shared across
// the feature pipeline stages.
package model

import (
	"fmt"
	"math"

	"github.com/ctessum/geom"
)

// Building is one footprint row: a unique identifier, a single-part polygon
// and its observed attributes. Multi-part inputs are reduced to their largest
// part by the loader, so Footprint is always a simple polygon.
type Building struct {
	ID        string
	Footprint geom.Polygon

	// Numeric holds observed numeric attributes; missing values are NaN.
	Numeric map[string]float64

	// Categorical holds observed categorical attributes; missing values are
	// the empty string.
	Categorical map[string]string
}

// Num returns the named numeric attribute, or NaN when unset.
func (b *Building) Num(name string) float64 {
	if v, ok := b.Numeric[name]; ok {
		return v
	}
	return math.NaN()
}

// SetNum stores a numeric attribute, allocating the map on first use.
func (b *Building) SetNum(name string, v float64) {
	if b.Numeric == nil {
		b.Numeric = make(map[string]float64)
	}
	b.Numeric[name] = v
}

// Cat returns the named categorical attribute, or "" when unset.
func (b *Building) Cat(name string) string {
	return b.Categorical[name]
}

// SetCat stores a categorical attribute, allocating the map on first use.
func (b *Building) SetCat(name, v string) {
	if b.Categorical == nil {
		b.Categorical = make(map[string]string)
	}
	b.Categorical[name] = v
}

// Clone returns a deep copy of the building's attribute maps; the footprint
// is shared, stages never mutate geometry in place.
func (b *Building) Clone() Building {
	out := Building{ID: b.ID, Footprint: b.Footprint}
	if b.Numeric != nil {
		out.Numeric = make(map[string]float64, len(b.Numeric))
		for k, v := range b.Numeric {
			out.Numeric[k] = v
		}
	}
	if b.Categorical != nil {
		out.Categorical = make(map[string]string, len(b.Categorical))
		for k, v := range b.Categorical {
			out.Categorical[k] = v
		}
	}
	return out
}

// Block is a maximal set of mutually touching footprints dissolved into one
// polygon. The identifier is freshly generated per run and carries no
// relationship to the member building ids.
type Block struct {
	ID string

	// Geometry is the dissolved (and possibly regularized) union of the
	// member footprints.
	Geometry geom.Polygonal

	// BuildingIDs lists the member buildings in deterministic order.
	BuildingIDs []string

	// Numeric holds block-level aggregate attributes keyed by column name.
	Numeric map[string]float64
}

// MemberCount returns the number of buildings in the block.
func (bl *Block) MemberCount() int { return len(bl.BuildingIDs) }

// GeometryError reports an invalid, empty or degenerate geometry together
// with the identifier of the offending row. Geometry failures abort the
// whole stage: downstream joins assume a complete key space, so per-row
// partial success is never attempted.
type GeometryError struct {
	ID     string
	Reason string
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("geometry error for row %q: %s", e.ID, e.Reason)
}
