package lib

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/slok/ukit/internal/app/runlist"
	"github.com/slok/ukit/internal/app/runpipeline"
	"github.com/slok/ukit/internal/app/runrm"
	"github.com/slok/ukit/internal/log"
	"github.com/slok/ukit/internal/model"
	"github.com/slok/ukit/internal/storage"
	"github.com/slok/ukit/internal/storage/sqlite"
)

const (
	defaultDataDir = ".ukit"
	defaultDBFile  = "ukit.db"
)

// Config configures the SDK client.
//
// All fields are optional and have sensible defaults. An empty Config{}
// uses ~/.ukit/ukit.db for storage and no logging.
type Config struct {
	// DBPath is the SQLite database path.
	// Default: ~/.ukit/ukit.db.
	DBPath string

	// Logger receives structured log output from the SDK.
	// Default: noop (silent). See the log sub-package for the interface.
	Logger log.Logger
}

func (c *Config) defaults() error {
	if c.DBPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("could not get user home dir: %w", err)
		}
		c.DBPath = filepath.Join(home, defaultDataDir, defaultDBFile)
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	return nil
}

// Client is the main SDK entry point for running pipelines programmatically.
//
// Create a Client with [New] and release its resources with [Client.Close].
// A Client is safe for concurrent use.
type Client struct {
	repo    storage.Repository
	logger  log.Logger
	closeFn func() error
}

// New creates a new SDK client backed by a SQLite database.
//
// The caller must call [Client.Close] when done to release the database
// connection. Typically used with defer:
//
//	client, err := lib.New(ctx, lib.Config{})
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
func New(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: cfg.DBPath,
		Logger: cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create repository: %w", err)
	}

	return &Client{
		repo:    repo,
		logger:  cfg.Logger,
		closeFn: repo.Close,
	}, nil
}

// Close releases resources held by the client, including the database connection.
// After Close returns, the client must not be used.
func (c *Client) Close() error {
	if c.closeFn != nil {
		return c.closeFn()
	}
	return nil
}

// RunPipelineOpts configures a pipeline run.
//
// Pass nil to [Client.RunPipeline] to use defaults (no extra env, no
// cancellation token).
type RunPipelineOpts struct {
	// Env is extra environment applied on top of each command step's env.
	Env map[string]string
	// Token allows cancelling the run cooperatively. Get one from a [Source].
	Token *Token
}

// RunPipeline executes the pipeline and returns the finished run.
//
// The run and its steps are persisted while the pipeline executes, so
// they can be observed concurrently through [Client.GetRun] and
// [Client.ListRunSteps]. Step failures land on the run itself (status
// [RunStatusFailed] and a non-empty Error), RunPipeline only returns an
// error when the pipeline is invalid ([ErrNotValid]) or persistence fails.
func (c *Client) RunPipeline(ctx context.Context, p Pipeline, opts *RunPipelineOpts) (*Run, error) {
	svc, err := runpipeline.NewService(runpipeline.ServiceConfig{
		Repository: c.repo,
		Logger:     c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	req := runpipeline.Request{Pipeline: toInternalPipeline(p)}
	if opts != nil {
		req.Env = opts.Env
		req.Token = opts.Token
	}

	run, err := svc.Run(ctx, req)
	if err != nil {
		return nil, err
	}

	result := fromInternalRun(*run)
	return &result, nil
}

// GetRun retrieves a run by ID.
//
// Returns [ErrNotFound] if the run does not exist.
func (c *Client) GetRun(ctx context.Context, id string) (*Run, error) {
	run, err := c.repo.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}

	result := fromInternalRun(*run)
	return &result, nil
}

// ListRuns lists pipeline runs newest first.
func (c *Client) ListRuns(ctx context.Context, opts *ListRunsOpts) ([]Run, error) {
	svc, err := runlist.NewService(runlist.ServiceConfig{
		Repository: c.repo,
		Logger:     c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	req := runlist.Request{}
	if opts != nil && opts.Status != nil {
		status := model.RunStatus(*opts.Status)
		req.StatusFilter = &status
	}

	runs, err := svc.Run(ctx, req)
	if err != nil {
		return nil, err
	}

	return fromInternalRunList(runs), nil
}

// ListRunSteps returns the steps of a run ordered by sequence.
func (c *Client) ListRunSteps(ctx context.Context, runID string) ([]Step, error) {
	steps, err := c.repo.ListSteps(ctx, runID)
	if err != nil {
		return nil, err
	}

	return fromInternalStepList(steps), nil
}

// RemoveRun deletes a run and its steps.
//
// Returns [ErrNotFound] if the run does not exist and [ErrNotValid] when
// the run is still running.
func (c *Client) RemoveRun(ctx context.Context, id string) error {
	svc, err := runrm.NewService(runrm.ServiceConfig{
		Repository: c.repo,
		Logger:     c.logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	_, err = svc.Run(ctx, runrm.Request{ID: id})
	return err
}
