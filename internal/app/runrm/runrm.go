package runrm

import (
	"context"
	"errors"
	"fmt"

	"github.com/slok/ukit/internal/log"
	"github.com/slok/ukit/internal/model"
	"github.com/slok/ukit/internal/storage"
)

// ServiceConfig is the configuration for the run remove service.
type ServiceConfig struct {
	Repository storage.Repository
	Logger     log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	return nil
}

// Service removes pipeline runs.
type Service struct {
	repo   storage.Repository
	logger log.Logger
}

// NewService creates a new run remove service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		repo:   cfg.Repository,
		logger: cfg.Logger,
	}, nil
}

// Request represents the remove request parameters.
type Request struct {
	// ID is the run ID to remove.
	ID string
}

// Run removes a run and its steps. Removing a run that is still running
// is rejected.
func (s *Service) Run(ctx context.Context, req Request) (*model.Run, error) {
	if req.ID == "" {
		return nil, fmt.Errorf("run id is required: %w", model.ErrNotValid)
	}

	run, err := s.repo.GetRun(ctx, req.ID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, fmt.Errorf("run not found: %s: %w", req.ID, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not get run: %w", err)
	}

	if run.Status == model.RunStatusRunning {
		return nil, fmt.Errorf("cannot remove a running run: %w", model.ErrNotValid)
	}

	if err := s.repo.DeleteRun(ctx, run.ID); err != nil {
		return nil, fmt.Errorf("could not delete run: %w", err)
	}

	s.logger.Infof("removed run: %s", run.ID)
	return run, nil
}
