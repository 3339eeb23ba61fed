package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urbanstock/feature-cli/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func testParams() model.RunParams {
	return model.RunParams{
		Resolution:    10,
		Radii:         []int{1, 3},
		MinCount:      5,
		ExcludeSelf:   true,
		SnapTolerance: 0.5,
	}
}

func TestCreateAndGetRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "hamburg", testParams())
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusQueued, run.Status)

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, "hamburg", got.Region)
	assert.Equal(t, testParams(), got.Params)
}

func TestGetRunNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetRun(context.Background(), "nonexistent")
	assert.Error(t, err)
}

func TestUpdateRunStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "hamburg", testParams())
	require.NoError(t, err)

	require.NoError(t, s.UpdateRunStatus(ctx, run.ID, model.RunStatusFailed, "boom"))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, got.Status)
	assert.Equal(t, "boom", got.Error)
}

func TestUpdateRunStatusNotFound(t *testing.T) {
	s := newTestStore(t)

	err := s.UpdateRunStatus(context.Background(), "nonexistent", model.RunStatusRunning, "")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestListRunsFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a, err := s.CreateRun(ctx, "hamburg", testParams())
	require.NoError(t, err)
	_, err = s.CreateRun(ctx, "bremen", testParams())
	require.NoError(t, err)
	require.NoError(t, s.UpdateRunStatus(ctx, a.ID, model.RunStatusComplete, ""))

	byRegion, err := s.ListRuns(ctx, RunFilter{Region: "bremen"})
	require.NoError(t, err)
	require.Len(t, byRegion, 1)
	assert.Equal(t, "bremen", byRegion[0].Region)

	byStatus, err := s.ListRuns(ctx, RunFilter{Status: model.RunStatusComplete})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, a.ID, byStatus[0].ID)

	all, err := s.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestStageLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "hamburg", testParams())
	require.NoError(t, err)

	stage, err := s.StartStage(ctx, run.ID, "blocks")
	require.NoError(t, err)
	assert.Equal(t, model.StageStatusRunning, stage.Status)

	require.NoError(t, s.FinishStage(ctx, stage.ID, model.StageStatusComplete, 42))

	stages, err := s.ListStages(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, stages, 1)
	assert.Equal(t, "blocks", stages[0].Name)
	assert.Equal(t, model.StageStatusComplete, stages[0].Status)
	assert.Equal(t, 42, stages[0].RowCount)
}

func TestFinishStageNotFound(t *testing.T) {
	s := newTestStore(t)

	err := s.FinishStage(context.Background(), "nonexistent", model.StageStatusComplete, 0)
	assert.Error(t, err)
}

func TestStageCacheRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "hamburg", testParams())
	require.NoError(t, err)

	_, ok, err := s.GetStageCache(ctx, run.ID, "shape")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetStageCache(ctx, run.ID, "shape", []byte(`{"rows":3}`)))

	payload, ok, err := s.GetStageCache(ctx, run.ID, "shape")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"rows":3}`, string(payload))

	// Upsert replaces the payload.
	require.NoError(t, s.SetStageCache(ctx, run.ID, "shape", []byte(`{"rows":4}`)))
	payload, ok, err = s.GetStageCache(ctx, run.ID, "shape")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"rows":4}`, string(payload))
}
