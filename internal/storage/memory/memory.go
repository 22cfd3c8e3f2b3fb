package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/slok/ukit/internal/log"
	"github.com/slok/ukit/internal/model"
	"github.com/slok/ukit/internal/storage"
)

// RepositoryConfig is the configuration for the memory repository.
type RepositoryConfig struct {
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.Memory"})
	return nil
}

// Repository is an in-memory implementation of storage.Repository.
type Repository struct {
	runs   map[string]model.Run
	steps  map[string]model.Step
	mu     sync.RWMutex
	logger log.Logger
}

// NewRepository creates a new memory repository.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Repository{
		runs:   map[string]model.Run{},
		steps:  map[string]model.Step{},
		logger: cfg.Logger,
	}, nil
}

// CreateRun creates a new run in the repository.
func (r *Repository) CreateRun(ctx context.Context, run model.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.runs[run.ID]; ok {
		return fmt.Errorf("run %s: %w", run.ID, model.ErrAlreadyExists)
	}
	r.runs[run.ID] = run

	r.logger.Debugf("Created run in repository: %s", run.ID)
	return nil
}

// GetRun retrieves a run by ID.
func (r *Repository) GetRun(ctx context.Context, id string) (*model.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	run, ok := r.runs[id]
	if !ok {
		return nil, fmt.Errorf("run %s: %w", id, model.ErrNotFound)
	}

	// Return a copy.
	runCopy := run
	return &runCopy, nil
}

// ListRuns returns runs matching the filter, newest first.
func (r *Repository) ListRuns(ctx context.Context, filter storage.RunFilter) ([]model.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	runs := make([]model.Run, 0, len(r.runs))
	for _, run := range r.runs {
		if filter.Status != nil && run.Status != *filter.Status {
			continue
		}
		runs = append(runs, run)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].CreatedAt.After(runs[j].CreatedAt) })

	return runs, nil
}

// UpdateRun updates an existing run.
func (r *Repository) UpdateRun(ctx context.Context, run model.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.runs[run.ID]; !ok {
		return fmt.Errorf("run %s: %w", run.ID, model.ErrNotFound)
	}
	r.runs[run.ID] = run

	r.logger.Debugf("Updated run in repository: %s", run.ID)
	return nil
}

// DeleteRun deletes a run and all its steps.
func (r *Repository) DeleteRun(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.runs[id]; !ok {
		return fmt.Errorf("run %s: %w", id, model.ErrNotFound)
	}
	delete(r.runs, id)

	for stepID, step := range r.steps {
		if step.RunID == id {
			delete(r.steps, stepID)
		}
	}

	r.logger.Debugf("Deleted run from repository: %s", id)
	return nil
}

// CreateSteps creates steps in the repository.
func (r *Repository) CreateSteps(ctx context.Context, steps []model.Step) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, step := range steps {
		if _, ok := r.steps[step.ID]; ok {
			return fmt.Errorf("step %s: %w", step.ID, model.ErrAlreadyExists)
		}
	}
	for _, step := range steps {
		r.steps[step.ID] = step
	}

	return nil
}

// UpdateStep updates an existing step.
func (r *Repository) UpdateStep(ctx context.Context, step model.Step) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.steps[step.ID]; !ok {
		return fmt.Errorf("step %s: %w", step.ID, model.ErrNotFound)
	}
	r.steps[step.ID] = step

	return nil
}

// ListSteps returns the steps of a run ordered by sequence.
func (r *Repository) ListSteps(ctx context.Context, runID string) ([]model.Step, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	steps := []model.Step{}
	for _, step := range r.steps {
		if step.RunID == runID {
			steps = append(steps, step)
		}
	}

	sort.Slice(steps, func(i, j int) bool { return steps[i].Sequence < steps[j].Sequence })

	return steps, nil
}
