package model

import "time"

// RunStatus represents the status of a pipeline run.
type RunStatus string

const (
	// RunStatusPending indicates the run has been recorded but not started.
	RunStatusPending RunStatus = "pending"
	// RunStatusRunning indicates the run is executing.
	RunStatusRunning RunStatus = "running"
	// RunStatusCompleted indicates all steps finished.
	RunStatusCompleted RunStatus = "completed"
	// RunStatusCancelled indicates the run stopped on a cancellation request.
	RunStatusCancelled RunStatus = "cancelled"
	// RunStatusFailed indicates a step failed.
	RunStatusFailed RunStatus = "failed"
)

// Run represents one execution of a pipeline.
type Run struct {
	ID          string
	Pipeline    string
	Status      RunStatus
	Concurrency int
	Error       string
	CreatedAt   time.Time
	StartedAt   *time.Time
	FinishedAt  *time.Time
}

// StepStatus represents the status of a single step inside a run.
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusRunning   StepStatus = "running"
	StepStatusCompleted StepStatus = "completed"
	StepStatusCancelled StepStatus = "cancelled"
	StepStatusFailed    StepStatus = "failed"
)

// Step represents a single step of a pipeline run.
type Step struct {
	ID         string
	RunID      string
	Sequence   int
	Name       string
	Status     StepStatus
	Error      string
	StartedAt  *time.Time
	FinishedAt *time.Time
}

// Progress represents the completion state of a run.
type Progress struct {
	Done  int
	Total int
}
