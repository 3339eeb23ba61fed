// Package pipeline orchestrates the feature-engineering stages for a
// region: hex indexing, footprint shape features, neighborhood buffer
// aggregates, proximity features, and block delineation.
package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	h3 "github.com/uber/h3-go/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/urbanstock/feature-cli/internal/config"
	"github.com/urbanstock/feature-cli/internal/features"
	"github.com/urbanstock/feature-cli/internal/model"
	"github.com/urbanstock/feature-cli/internal/store"
)

// Input holds the loaded layers for one region. Streets, POIs, and
// population points are optional; their stages are skipped when empty.
type Input struct {
	Buildings  []model.Building
	Streets    []features.Street
	POIs       []features.POI
	Population []features.PopulationPoint
}

// Result is the enriched feature table for one region.
type Result struct {
	RunID     string
	Buildings []model.Building
	// NumericColumns and CategoricalColumns list the feature columns in
	// output order.
	NumericColumns     []string
	CategoricalColumns []string

	cells        []h3.Cell
	inputNumeric []string
}

// Pipeline runs the feature stages for one or more regions.
type Pipeline struct {
	cfg    *config.Config
	store  store.Store
	tables features.Tables
}

// New creates a Pipeline. st may be nil to disable run tracking and
// stage caching.
func New(cfg *config.Config, st store.Store, tables features.Tables) *Pipeline {
	return &Pipeline{cfg: cfg, store: st, tables: tables}
}

// columns is one stage's output: per-building numeric values keyed by
// feature column name, aligned with the building slice.
type columns map[string][]float64

// Run executes all stages for a single region.
func (p *Pipeline) Run(ctx context.Context, region string, in Input) (*Result, error) {
	log := zap.L().With(zap.String("region", region), zap.Int("buildings", len(in.Buildings)))
	log.Info("pipeline: starting feature run")

	result := &Result{
		Buildings:          cloneBuildings(in.Buildings),
		CategoricalColumns: categoricalColumns(in.Buildings),
		NumericColumns:     numericColumns(in.Buildings),
		inputNumeric:       numericColumns(in.Buildings),
	}

	var runID string
	if p.store != nil {
		run, err := p.store.CreateRun(ctx, region, model.RunParams{
			Resolution:    p.cfg.Grid.Resolution,
			Radii:         p.cfg.Grid.Radii,
			MinCount:      p.cfg.Neighborhood.MinCount,
			ExcludeSelf:   p.cfg.Neighborhood.ExcludeSelf,
			SnapTolerance: p.cfg.Blocks.SnapTolerance,
		})
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: create run")
		}
		runID = run.ID
		result.RunID = runID
		p.setStatus(ctx, runID, model.RunStatusRunning, "")
	}

	for _, stage := range p.stages(in) {
		if err := p.runStage(ctx, runID, stage, result, log); err != nil {
			if runID != "" {
				p.setStatus(ctx, runID, model.RunStatusFailed, err.Error())
			}
			return nil, err
		}
	}

	if runID != "" {
		p.setStatus(ctx, runID, model.RunStatusComplete, "")
	}
	log.Info("pipeline: feature run complete",
		zap.Int("numeric_columns", len(result.NumericColumns)),
	)
	return result, nil
}

// RunAll executes runs for several regions concurrently, bounded by the
// configured worker count. Results are keyed by region name; the first
// stage error cancels the remaining runs.
func (p *Pipeline) RunAll(ctx context.Context, inputs map[string]Input) (map[string]*Result, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Pipeline.Workers)

	results := make(map[string]*Result, len(inputs))
	type keyed struct {
		region string
		res    *Result
	}
	out := make(chan keyed, len(inputs))

	for region, in := range inputs {
		g.Go(func() error {
			res, err := p.Run(ctx, region, in)
			if err != nil {
				return eris.Wrapf(err, "pipeline: region %s", region)
			}
			out <- keyed{region: region, res: res}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	close(out)
	for kr := range out {
		results[kr.region] = kr.res
	}
	return results, nil
}

// stage is one tracked unit of work. run computes new columns over the
// current result; categorical block assignment is applied directly to
// the buildings by the blocks stage.
type stage struct {
	name string
	skip bool
	run  func(ctx context.Context, res *Result) (columns, error)
}

func (p *Pipeline) stages(in Input) []stage {
	return []stage{
		{name: "shape", run: p.shapeStage},
		{name: "neighborhood", run: p.neighborhoodStage},
		{name: "shares", run: p.sharesStage},
		{name: "streets", skip: len(in.Streets) == 0, run: func(ctx context.Context, res *Result) (columns, error) {
			return p.streetStage(ctx, res, in.Streets)
		}},
		{name: "poi", skip: len(in.POIs) == 0, run: func(ctx context.Context, res *Result) (columns, error) {
			return p.poiStage(ctx, res, in.POIs)
		}},
		{name: "neighbors", run: p.neighborStage},
		{name: "population", skip: len(in.Population) == 0, run: func(ctx context.Context, res *Result) (columns, error) {
			return p.populationStage(ctx, res, in.Population)
		}},
		{name: "blocks", run: p.blockStage},
	}
}

func (p *Pipeline) runStage(ctx context.Context, runID string, st stage, res *Result, log *zap.Logger) error {
	if st.skip {
		log.Debug("pipeline: skipping stage without input layer", zap.String("stage", st.name))
		return nil
	}

	if cached, ok := p.loadCache(ctx, runID, st.name); ok {
		applyColumns(res, cached)
		log.Debug("pipeline: stage cache hit", zap.String("stage", st.name))
		return nil
	}

	var stageID string
	if p.store != nil && runID != "" {
		rec, err := p.store.StartStage(ctx, runID, st.name)
		if err != nil {
			log.Warn("pipeline: failed to record stage start", zap.String("stage", st.name), zap.Error(err))
		} else {
			stageID = rec.ID
		}
	}

	start := time.Now()
	cols, err := st.run(ctx, res)
	if err != nil {
		if stageID != "" {
			p.finishStage(ctx, stageID, model.StageStatusFailed, 0, log)
		}
		log.Error("pipeline: stage failed", zap.String("stage", st.name), zap.Error(err))
		return eris.Wrapf(err, "pipeline: stage %s", st.name)
	}

	applyColumns(res, cols)
	p.saveCache(ctx, runID, st.name, cols, log)
	if stageID != "" {
		p.finishStage(ctx, stageID, model.StageStatusComplete, len(res.Buildings), log)
	}
	log.Debug("pipeline: stage complete",
		zap.String("stage", st.name),
		zap.Int("columns", len(cols)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

func (p *Pipeline) setStatus(ctx context.Context, runID string, status model.RunStatus, errMsg string) {
	if err := p.store.UpdateRunStatus(ctx, runID, status, errMsg); err != nil {
		zap.L().Warn("pipeline: failed to update run status", zap.String("run_id", runID), zap.Error(err))
	}
}

func (p *Pipeline) finishStage(ctx context.Context, stageID string, status model.StageStatus, rows int, log *zap.Logger) {
	if err := p.store.FinishStage(ctx, stageID, status, rows); err != nil {
		log.Warn("pipeline: failed to record stage finish", zap.String("stage_id", stageID), zap.Error(err))
	}
}

func (p *Pipeline) loadCache(ctx context.Context, runID, stage string) (columns, bool) {
	if p.store == nil || runID == "" {
		return nil, false
	}
	payload, ok, err := p.store.GetStageCache(ctx, runID, stage)
	if err != nil || !ok {
		return nil, false
	}
	var cols columns
	if err := json.Unmarshal(payload, &cols); err != nil {
		return nil, false
	}
	return cols, true
}

func (p *Pipeline) saveCache(ctx context.Context, runID, stage string, cols columns, log *zap.Logger) {
	if p.store == nil || runID == "" || len(cols) == 0 {
		return
	}
	payload, err := json.Marshal(cols)
	if err != nil {
		// NaN is not valid JSON; cache only stages without masked values.
		log.Debug("pipeline: stage output not cacheable", zap.String("stage", stage), zap.Error(err))
		return
	}
	if err := p.store.SetStageCache(ctx, runID, stage, payload); err != nil {
		log.Warn("pipeline: failed to cache stage output", zap.String("stage", stage), zap.Error(err))
	}
}

func cloneBuildings(bs []model.Building) []model.Building {
	out := make([]model.Building, len(bs))
	for i := range bs {
		out[i] = bs[i].Clone()
	}
	return out
}
