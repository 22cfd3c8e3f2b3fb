package storage

import (
	"context"

	"github.com/slok/ukit/internal/model"
)

// RunFilter narrows down run listings.
type RunFilter struct {
	Status *model.RunStatus
}

// Repository is the interface for pipeline run persistence.
type Repository interface {
	CreateRun(ctx context.Context, run model.Run) error
	GetRun(ctx context.Context, id string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)
	UpdateRun(ctx context.Context, run model.Run) error
	// DeleteRun deletes a run and all its steps.
	DeleteRun(ctx context.Context, id string) error

	CreateSteps(ctx context.Context, steps []model.Step) error
	UpdateStep(ctx context.Context, step model.Step) error
	// ListSteps returns the steps of a run ordered by sequence.
	ListSteps(ctx context.Context, runID string) ([]model.Step, error)
}
