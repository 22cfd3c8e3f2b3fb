package runlist

import (
	"context"
	"fmt"

	"github.com/slok/ukit/internal/log"
	"github.com/slok/ukit/internal/model"
	"github.com/slok/ukit/internal/storage"
)

// ServiceConfig is the configuration for the run list service.
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

// Service lists pipeline runs with optional filtering.
type Service struct {
	repo   storage.Repository
	logger log.Logger
}

// NewService creates a new run list service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		repo:   cfg.Repository,
		logger: cfg.Logger,
	}, nil
}

// Request represents the list request parameters.
type Request struct {
	// StatusFilter is an optional filter to only show runs with this status.
	StatusFilter *model.RunStatus
}

// Run lists pipeline runs newest first, optionally filtered by status.
func (s *Service) Run(ctx context.Context, req Request) ([]model.Run, error) {
	s.logger.Debugf("listing runs with filter: %v", req.StatusFilter)

	runs, err := s.repo.ListRuns(ctx, storage.RunFilter{Status: req.StatusFilter})
	if err != nil {
		return nil, fmt.Errorf("could not list runs: %w", err)
	}

	s.logger.Debugf("found %d runs", len(runs))
	return runs, nil
}
