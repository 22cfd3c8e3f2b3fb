// Package runpipeline implements the application service that executes a
// pipeline, persisting the run and its steps while they progress.
package runpipeline

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/atomic"

	"github.com/slok/ukit/internal/async"
	"github.com/slok/ukit/internal/log"
	"github.com/slok/ukit/internal/model"
	"github.com/slok/ukit/internal/storage"
	"github.com/slok/ukit/internal/utils/env"
)

// ServiceConfig is the configuration for the run pipeline service.
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
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.RunPipeline"})

	return nil
}

// Service executes pipelines.
type Service struct {
	repo   storage.Repository
	logger log.Logger
}

// NewService creates a new run pipeline service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		repo:   cfg.Repository,
		logger: cfg.Logger,
	}, nil
}

// Request represents the run pipeline request parameters.
type Request struct {
	// Pipeline is the pipeline to execute.
	Pipeline *model.Pipeline
	// Env is extra environment applied on top of each command step's env.
	Env map[string]string
	// Token allows cancelling the run cooperatively. Optional.
	Token *async.Token
}

// Run executes the pipeline and returns the finished run. The run and
// its steps are persisted up front and updated as execution progresses,
// so other processes can observe them while the pipeline runs.
//
// Execution errors are recorded on the run itself, Run only returns an
// error when the request is invalid or persistence fails.
func (s *Service) Run(ctx context.Context, req Request) (*model.Run, error) {
	if req.Pipeline == nil {
		return nil, fmt.Errorf("pipeline is required: %w", model.ErrNotValid)
	}
	if err := req.Pipeline.Validate(); err != nil {
		return nil, err
	}

	token := req.Token
	if token == nil {
		token = async.TokenNone
	}

	run := model.Run{
		ID:          ulid.Make().String(),
		Pipeline:    req.Pipeline.Name,
		Status:      model.RunStatusPending,
		Concurrency: req.Pipeline.Concurrency,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repo.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("could not create run: %w", err)
	}

	steps := make([]model.Step, 0, len(req.Pipeline.Steps))
	actions := make([]async.Action, 0, len(req.Pipeline.Steps))
	for i, ps := range req.Pipeline.Steps {
		step := model.Step{
			ID:       ulid.Make().String(),
			RunID:    run.ID,
			Sequence: i + 1,
			Name:     ps.Name,
			Status:   model.StepStatusPending,
		}
		steps = append(steps, step)

		action, err := s.stepAction(step, ps, req.Env)
		if err != nil {
			return nil, err
		}
		actions = append(actions, action)
	}
	if err := s.repo.CreateSteps(ctx, steps); err != nil {
		return nil, fmt.Errorf("could not create steps: %w", err)
	}

	queue, err := s.newQueue(req.Pipeline, actions)
	if err != nil {
		return nil, fmt.Errorf("could not create queue: %w", err)
	}

	startedAt := time.Now().UTC()
	run.Status = model.RunStatusRunning
	run.StartedAt = &startedAt
	if err := s.repo.UpdateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("could not update run: %w", err)
	}
	s.logger.Infof("Run %s started: pipeline %q, %d steps", run.ID, run.Pipeline, len(steps))

	completed, runErr := queue.Run(ctx, token)

	finishedAt := time.Now().UTC()
	run.FinishedAt = &finishedAt
	switch {
	case runErr != nil:
		run.Status = model.RunStatusFailed
		run.Error = runErr.Error()
	case completed:
		run.Status = model.RunStatusCompleted
	default:
		run.Status = model.RunStatusCancelled
	}
	if err := s.repo.UpdateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("could not update run: %w", err)
	}

	s.logger.Infof("Run %s finished: %s", run.ID, run.Status)
	return &run, nil
}

func (s *Service) newQueue(p *model.Pipeline, actions []async.Action) (*async.Queue, error) {
	onError := async.StopOnError
	if p.OnError == model.ErrorPolicyContinue {
		onError = async.ContinueOnError
	}

	if p.Concurrency == 1 {
		q, err := async.NewSerialQueue(async.SerialQueueConfig{
			Actions: actions,
			OnError: onError,
			Logger:  s.logger,
		})
		if err != nil {
			return nil, err
		}
		return q.Queue, nil
	}

	return async.NewParallelQueue(async.QueueConfig{
		Actions:     actions,
		Concurrency: p.Concurrency,
		OnError:     onError,
		Logger:      s.logger,
	})
}

func (s *Service) stepAction(step model.Step, ps model.PipelineStep, extraEnv map[string]string) (async.Action, error) {
	var inner async.Action
	switch ps.Type {
	case model.StepTypeDelay:
		inner = async.NewDelayAction(ps.Duration)
	case model.StepTypeCommand:
		inner = &commandAction{
			command:  ps.Command,
			env:      env.MergeMaps(ps.Env, extraEnv),
			progress: atomic.NewFloat64(0),
		}
	default:
		return nil, fmt.Errorf("unknown step type %q: %w", ps.Type, model.ErrNotValid)
	}

	return &stepAction{
		inner:  inner,
		step:   step,
		repo:   s.repo,
		logger: s.logger,
	}, nil
}

// stepAction wraps an action keeping the persisted step state in sync
// with its execution.
type stepAction struct {
	inner  async.Action
	step   model.Step
	repo   storage.Repository
	logger log.Logger
}

func (a *stepAction) Run(ctx context.Context, token *async.Token) (bool, error) {
	startedAt := time.Now().UTC()
	a.step.Status = model.StepStatusRunning
	a.step.StartedAt = &startedAt
	if err := a.repo.UpdateStep(ctx, a.step); err != nil {
		return false, fmt.Errorf("could not mark step as running: %w", err)
	}
	a.logger.Debugf("Step %q started", a.step.Name)

	completed, runErr := a.inner.Run(ctx, token)

	finishedAt := time.Now().UTC()
	a.step.FinishedAt = &finishedAt
	switch {
	case runErr != nil:
		a.step.Status = model.StepStatusFailed
		a.step.Error = runErr.Error()
	case completed:
		a.step.Status = model.StepStatusCompleted
	default:
		a.step.Status = model.StepStatusCancelled
	}
	// Persisting step state uses a context that survives cancellation of
	// the run itself.
	if err := a.repo.UpdateStep(context.WithoutCancel(ctx), a.step); err != nil {
		a.logger.Warningf("Could not update step %q state: %s", a.step.Name, err)
	}
	a.logger.Debugf("Step %q finished: %s", a.step.Name, a.step.Status)

	return completed, runErr
}

func (a *stepAction) Progress() float64 { return a.inner.Progress() }

// commandAction runs an OS command as an action, killing the process
// when the token is cancelled.
type commandAction struct {
	command  []string
	env      map[string]string
	progress *atomic.Float64
}

func (a *commandAction) Run(ctx context.Context, token *async.Token) (bool, error) {
	cmd := exec.CommandContext(ctx, a.command[0], a.command[1:]...)
	if len(a.env) > 0 {
		cmd.Env = append(os.Environ(), env.Environ(a.env)...)
	}

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Start(); err != nil {
		return false, fmt.Errorf("could not start command: %w", err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			msg := strings.TrimSpace(output.String())
			if msg != "" {
				return false, fmt.Errorf("command failed: %w: %s", err, msg)
			}
			return false, fmt.Errorf("command failed: %w", err)
		}
		a.progress.Store(1)
		return true, nil

	case <-token.Done():
		_ = cmd.Process.Kill()
		<-done
		return false, nil

	case <-ctx.Done():
		_ = cmd.Process.Kill()
		<-done
		return false, ctx.Err()
	}
}

func (a *commandAction) Progress() float64 { return a.progress.Load() }
