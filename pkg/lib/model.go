package lib

import (
	"time"

	"github.com/slok/ukit/internal/model"
)

// Sentinel errors returned by the SDK. Inspect with [errors.Is].
var (
	// ErrNotFound is returned when a resource does not exist.
	ErrNotFound = model.ErrNotFound
	// ErrAlreadyExists is returned when a resource with the same identity already exists.
	ErrAlreadyExists = model.ErrAlreadyExists
	// ErrNotValid is returned on invalid input or operations.
	ErrNotValid = model.ErrNotValid
)

// ErrorPolicy selects what a pipeline does when a step fails.
type ErrorPolicy string

const (
	// ErrorPolicyStop stops launching new steps on the first failure and
	// cancels the in-flight ones cooperatively.
	ErrorPolicyStop ErrorPolicy = "stop"
	// ErrorPolicyContinue runs every step and aggregates the failures.
	ErrorPolicyContinue ErrorPolicy = "continue"
)

// StepType identifies a pipeline step implementation.
type StepType string

const (
	// StepTypeDelay waits a fixed duration.
	StepTypeDelay StepType = "delay"
	// StepTypeCommand runs an OS command.
	StepTypeCommand StepType = "command"
)

// Pipeline describes work to execute as an ordered list of steps.
type Pipeline struct {
	// Name identifies the pipeline (required).
	Name string
	// Concurrency is the maximum number of steps in flight at once.
	// Defaults to 1 (serial execution).
	Concurrency int
	// OnError selects the failure policy. Defaults to [ErrorPolicyStop].
	OnError ErrorPolicy
	// Steps are executed in order, at least one is required.
	Steps []PipelineStep
}

// PipelineStep is a single unit of pipeline work.
type PipelineStep struct {
	// Name identifies the step, unique within the pipeline (required).
	Name string
	// Type selects the step implementation (required).
	Type StepType
	// Duration is the wait time for [StepTypeDelay] steps.
	Duration time.Duration
	// Command is the argv for [StepTypeCommand] steps.
	Command []string
	// Env is extra environment for [StepTypeCommand] steps.
	Env map[string]string
}

// RunStatus represents the lifecycle state of a pipeline run.
//
// The lifecycle is:
//
//	pending -> running -> completed | cancelled | failed
type RunStatus string

const (
	// RunStatusPending indicates the run is recorded but not started yet.
	RunStatusPending RunStatus = "pending"
	// RunStatusRunning indicates steps are executing.
	RunStatusRunning RunStatus = "running"
	// RunStatusCompleted indicates every step ran to completion.
	RunStatusCompleted RunStatus = "completed"
	// RunStatusCancelled indicates the run was cut short by cancellation.
	RunStatusCancelled RunStatus = "cancelled"
	// RunStatusFailed indicates at least one step failed.
	RunStatusFailed RunStatus = "failed"
)

// StepStatus represents the lifecycle state of a run step.
type StepStatus string

const (
	// StepStatusPending indicates the step has not started.
	StepStatusPending StepStatus = "pending"
	// StepStatusRunning indicates the step is executing.
	StepStatusRunning StepStatus = "running"
	// StepStatusCompleted indicates the step ran to completion.
	StepStatusCompleted StepStatus = "completed"
	// StepStatusCancelled indicates the step stopped on cancellation.
	StepStatusCancelled StepStatus = "cancelled"
	// StepStatusFailed indicates the step failed.
	StepStatusFailed StepStatus = "failed"
)

// Run is a read-only snapshot of a pipeline run.
type Run struct {
	// ID is the unique identifier (ULID) assigned at creation.
	ID string
	// Pipeline is the name of the executed pipeline.
	Pipeline string
	// Status is the current lifecycle state.
	Status RunStatus
	// Concurrency is the step concurrency the run used.
	Concurrency int
	// Error holds the failure description for failed runs.
	Error string
	// CreatedAt is when the run was recorded.
	CreatedAt time.Time
	// StartedAt is when the first step was launched. Nil if never started.
	StartedAt *time.Time
	// FinishedAt is when the run reached a final state. Nil while running.
	FinishedAt *time.Time
}

// Step is a read-only snapshot of a run step.
type Step struct {
	// ID is the unique identifier (ULID) assigned at creation.
	ID string
	// RunID is the run this step belongs to.
	RunID string
	// Sequence is the 1-based position in the pipeline.
	Sequence int
	// Name is the step name from the pipeline definition.
	Name string
	// Status is the current lifecycle state.
	Status StepStatus
	// Error holds the failure description for failed steps.
	Error string
	// StartedAt is when the step was launched. Nil if never started.
	StartedAt *time.Time
	// FinishedAt is when the step finished. Nil while running.
	FinishedAt *time.Time
}

// ListRunsOpts configures run listing.
//
// Pass nil to [Client.ListRuns] to list all runs.
type ListRunsOpts struct {
	// Status filters runs by status. Nil means all statuses.
	Status *RunStatus
}

// --- Internal conversion helpers ---

func toInternalPipeline(p Pipeline) *model.Pipeline {
	ip := &model.Pipeline{
		Name:        p.Name,
		Concurrency: p.Concurrency,
		OnError:     model.ErrorPolicy(p.OnError),
	}
	if ip.Concurrency == 0 {
		ip.Concurrency = 1
	}
	if ip.OnError == "" {
		ip.OnError = model.ErrorPolicyStop
	}

	for _, s := range p.Steps {
		ip.Steps = append(ip.Steps, model.PipelineStep{
			Name:     s.Name,
			Type:     model.StepType(s.Type),
			Duration: s.Duration,
			Command:  s.Command,
			Env:      s.Env,
		})
	}

	return ip
}

func fromInternalRun(r model.Run) Run {
	return Run{
		ID:          r.ID,
		Pipeline:    r.Pipeline,
		Status:      RunStatus(r.Status),
		Concurrency: r.Concurrency,
		Error:       r.Error,
		CreatedAt:   r.CreatedAt,
		StartedAt:   r.StartedAt,
		FinishedAt:  r.FinishedAt,
	}
}

func fromInternalRunList(rs []model.Run) []Run {
	result := make([]Run, len(rs))
	for i, r := range rs {
		result[i] = fromInternalRun(r)
	}
	return result
}

func fromInternalStep(s model.Step) Step {
	return Step{
		ID:         s.ID,
		RunID:      s.RunID,
		Sequence:   s.Sequence,
		Name:       s.Name,
		Status:     StepStatus(s.Status),
		Error:      s.Error,
		StartedAt:  s.StartedAt,
		FinishedAt: s.FinishedAt,
	}
}

func fromInternalStepList(ss []model.Step) []Step {
	result := make([]Step, len(ss))
	for i, s := range ss {
		result[i] = fromInternalStep(s)
	}
	return result
}
