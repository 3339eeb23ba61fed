package store

import (
	"context"

	"github.com/urbanstock/feature-cli/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Region string          `json:"region,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the feature pipeline.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, region string, params model.RunParams) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus, errMsg string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Stages
	StartStage(ctx context.Context, runID, name string) (*model.RunStage, error)
	FinishStage(ctx context.Context, stageID string, status model.StageStatus, rowCount int) error
	ListStages(ctx context.Context, runID string) ([]model.RunStage, error)

	// Stage output cache, keyed by run and stage name
	GetStageCache(ctx context.Context, runID, stage string) ([]byte, bool, error)
	SetStageCache(ctx context.Context, runID, stage string, payload []byte) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
