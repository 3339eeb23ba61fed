// Package block groups touching building footprints into urban blocks via
// graph connectivity and dissolves their geometry, then folds block-level
// statistics back onto the member buildings.
package block

import (
	"sort"

	"github.com/ctessum/geom"
	"github.com/google/uuid"
	"github.com/katalvlaran/lvlath/bfs"
	"github.com/katalvlaran/lvlath/core"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/urbanstock/feature-cli/internal/model"
	"github.com/urbanstock/feature-cli/internal/spatial"
)

// regularizeTol is the simplification tolerance, in projected units, used
// when a dissolved union comes back with topological defects.
const regularizeTol = 0.5

// BuildBlocks delineates urban blocks: a spatial self-join finds all
// footprint pairs that touch or intersect (within snapTol), the pairs form
// an undirected adjacency graph over building ids, and each connected
// component is dissolved into one block polygon. Isolated buildings become
// singleton blocks. Block ids are freshly generated per run and independent
// of the member ids, so block identity survives geometry regularization.
// Empty input yields an empty result, not an error.
func BuildBlocks(buildings []model.Building, snapTol float64) ([]model.Block, error) {
	if len(buildings) == 0 {
		return []model.Block{}, nil
	}

	footprints := make(map[string]geom.Polygon, len(buildings))
	index := spatial.NewIndex()
	graph, err := core.NewGraph()
	if err != nil {
		return nil, eris.Wrap(err, "block: new graph")
	}
	for i := range buildings {
		b := &buildings[i]
		if len(b.Footprint) == 0 || b.Footprint.Area() <= 0 {
			return nil, eris.Wrap(&model.GeometryError{ID: b.ID, Reason: "empty or zero-area footprint"}, "block: build")
		}
		if _, dup := footprints[b.ID]; dup {
			return nil, eris.Errorf("block: duplicate building id %q", b.ID)
		}
		footprints[b.ID] = b.Footprint
		index.Add(b.ID, b.Footprint)
		if err := graph.AddVertex(b.ID); err != nil {
			return nil, eris.Wrapf(err, "block: add vertex %s", b.ID)
		}
	}

	// Candidate pairs from the R-tree, exact touch/intersect test after.
	edges := 0
	for i := range buildings {
		b := &buildings[i]
		for _, cand := range index.Candidates(b.Footprint.Bounds(), snapTol) {
			if cand.ID <= b.ID {
				continue // self pair, or mirror of a pair already tested
			}
			if !spatial.Touches(b.Footprint, cand.Geom, snapTol) {
				continue
			}
			if _, err := graph.AddEdge(b.ID, cand.ID, 0); err != nil {
				return nil, eris.Wrapf(err, "block: add edge %s-%s", b.ID, cand.ID)
			}
			edges++
		}
	}

	components, err := connectedComponents(graph)
	if err != nil {
		return nil, err
	}

	blocks := make([]model.Block, 0, len(components))
	for _, members := range components {
		geoms := make([]geom.Polygonal, len(members))
		for i, id := range members {
			geoms[i] = footprints[id]
		}
		blocks = append(blocks, model.Block{
			ID:          uuid.New().String(),
			Geometry:    dissolve(geoms),
			BuildingIDs: members,
		})
	}

	zap.L().Debug("block: delineation complete",
		zap.Int("buildings", len(buildings)),
		zap.Int("edges", edges),
		zap.Int("blocks", len(blocks)),
	)
	return blocks, nil
}

// BuildBlocksFromIDs dissolves by an existing grouping key on the input,
// skipping the adjacency graph. Rows with a missing key become singleton
// blocks.
func BuildBlocksFromIDs(buildings []model.Building, keyCol string) ([]model.Block, error) {
	if len(buildings) == 0 {
		return []model.Block{}, nil
	}

	groups := make(map[string][]string)
	footprints := make(map[string]geom.Polygon, len(buildings))
	for i := range buildings {
		b := &buildings[i]
		if len(b.Footprint) == 0 || b.Footprint.Area() <= 0 {
			return nil, eris.Wrap(&model.GeometryError{ID: b.ID, Reason: "empty or zero-area footprint"}, "block: build from ids")
		}
		footprints[b.ID] = b.Footprint
		key := b.Cat(keyCol)
		if key == "" {
			key = "\x00singleton\x00" + b.ID
		}
		groups[key] = append(groups[key], b.ID)
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	blocks := make([]model.Block, 0, len(keys))
	for _, k := range keys {
		members := groups[k]
		sort.Strings(members)
		geoms := make([]geom.Polygonal, len(members))
		for i, id := range members {
			geoms[i] = footprints[id]
		}
		blocks = append(blocks, model.Block{
			ID:          uuid.New().String(),
			Geometry:    dissolve(geoms),
			BuildingIDs: members,
		})
	}
	return blocks, nil
}

// connectedComponents returns each component's member ids, sorted within
// the component and ordered by their smallest member for determinism.
func connectedComponents(g *core.Graph) ([][]string, error) {
	ids := g.Vertices()
	sort.Strings(ids)

	visited := make(map[string]struct{}, len(ids))
	var components [][]string
	for _, id := range ids {
		if _, seen := visited[id]; seen {
			continue
		}
		res, err := bfs.BFS(g, id)
		if err != nil {
			return nil, eris.Wrapf(err, "block: traverse component from %s", id)
		}
		members := append([]string(nil), res.Order...)
		sort.Strings(members)
		for _, m := range members {
			visited[m] = struct{}{}
		}
		components = append(components, members)
	}
	return components, nil
}

// dissolve unions the member footprints into one polygon. When the union
// comes back with topological defects (multiple parts, degenerate rings),
// it is regularized rather than surfaced: the largest contiguous part is
// simplified, falling back to its bounding rectangle if simplification
// cannot repair it.
func dissolve(geoms []geom.Polygonal) geom.Polygonal {
	union := geoms[0]
	for _, g := range geoms[1:] {
		union = union.Union(g)
	}
	if !defective(union) {
		return union
	}
	return regularize(union)
}

func defective(p geom.Polygonal) bool {
	parts := p.Polygons()
	if len(parts) != 1 {
		return true
	}
	for _, part := range parts {
		if part.Area() <= 0 {
			return true
		}
		for _, ring := range part {
			if len(ring) < 3 {
				return true
			}
		}
	}
	return false
}

func regularize(p geom.Polygonal) geom.Polygonal {
	largest := largestPart(p)
	if simplified, ok := largest.Simplify(regularizeTol).(geom.Polygon); ok && !defective(simplified) {
		return simplified
	}
	b := largest.Bounds()
	return geom.Polygon{{
		{X: b.Min.X, Y: b.Min.Y},
		{X: b.Max.X, Y: b.Min.Y},
		{X: b.Max.X, Y: b.Max.Y},
		{X: b.Min.X, Y: b.Max.Y},
	}}
}

func largestPart(p geom.Polygonal) geom.Polygon {
	parts := p.Polygons()
	best := parts[0]
	for _, part := range parts[1:] {
		if part.Area() > best.Area() {
			best = part
		}
	}
	return best
}
