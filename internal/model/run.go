package model

import "time"

// RunStatus tracks a feature run through its lifecycle.
type RunStatus string

const (
	RunStatusQueued   RunStatus = "queued"
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// StageStatus tracks a single pipeline stage within a run.
type StageStatus string

const (
	StageStatusRunning  StageStatus = "running"
	StageStatusComplete StageStatus = "complete"
	StageStatusFailed   StageStatus = "failed"
)

// RunParams records the knobs a run was executed with, so cached stage
// output is only reused when the parameters match.
type RunParams struct {
	Resolution    int     `json:"resolution"`
	Radii         []int   `json:"radii"`
	MinCount      int     `json:"min_count"`
	ExcludeSelf   bool    `json:"exclude_self"`
	SnapTolerance float64 `json:"snap_tolerance"`
}

// Run is one feature-engineering execution over a region's layers.
type Run struct {
	ID        string    `json:"id"`
	Region    string    `json:"region"`
	Params    RunParams `json:"params"`
	Status    RunStatus `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RunStage is one pipeline stage execution within a run.
type RunStage struct {
	ID        string      `json:"id"`
	RunID     string      `json:"run_id"`
	Name      string      `json:"name"`
	Status    StageStatus `json:"status"`
	RowCount  int         `json:"row_count"`
	StartedAt time.Time   `json:"started_at"`
}
