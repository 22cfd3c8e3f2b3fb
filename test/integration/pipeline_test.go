package integration

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/ukit/internal/app/runpipeline"
	"github.com/slok/ukit/internal/async"
	"github.com/slok/ukit/internal/log"
	"github.com/slok/ukit/internal/model"
	"github.com/slok/ukit/internal/storage/sqlite"
)

func newRepository(t *testing.T) *sqlite.Repository {
	t.Helper()

	repo, err := sqlite.NewRepository(context.Background(), sqlite.RepositoryConfig{
		DBPath: filepath.Join(t.TempDir(), "ukit.db"),
		Logger: log.Noop,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	return repo
}

func TestPipelineEndToEnd(t *testing.T) {
	tests := map[string]struct {
		pipeline      model.Pipeline
		expRunStatus  model.RunStatus
		expStepStatus []model.StepStatus
	}{
		"A serial pipeline of delays and commands should complete": {
			pipeline: model.Pipeline{
				Name:        "serial",
				Concurrency: 1,
				OnError:     model.ErrorPolicyStop,
				Steps: []model.PipelineStep{
					{Name: "wait", Type: model.StepTypeDelay, Duration: 5 * time.Millisecond},
					{Name: "greet", Type: model.StepTypeCommand, Command: []string{"echo", "hello"}},
				},
			},
			expRunStatus:  model.RunStatusCompleted,
			expStepStatus: []model.StepStatus{model.StepStatusCompleted, model.StepStatusCompleted},
		},

		"A parallel pipeline should complete every step": {
			pipeline: model.Pipeline{
				Name:        "parallel",
				Concurrency: 3,
				OnError:     model.ErrorPolicyStop,
				Steps: []model.PipelineStep{
					{Name: "wait-1", Type: model.StepTypeDelay, Duration: 10 * time.Millisecond},
					{Name: "wait-2", Type: model.StepTypeDelay, Duration: 10 * time.Millisecond},
					{Name: "wait-3", Type: model.StepTypeDelay, Duration: 10 * time.Millisecond},
				},
			},
			expRunStatus:  model.RunStatusCompleted,
			expStepStatus: []model.StepStatus{model.StepStatusCompleted, model.StepStatusCompleted, model.StepStatusCompleted},
		},

		"A failing step with stop policy should fail the run and skip the rest": {
			pipeline: model.Pipeline{
				Name:        "stop-on-error",
				Concurrency: 1,
				OnError:     model.ErrorPolicyStop,
				Steps: []model.PipelineStep{
					{Name: "boom", Type: model.StepTypeCommand, Command: []string{"/nonexistent-ukit-it-cmd"}},
					{Name: "skipped", Type: model.StepTypeDelay, Duration: time.Millisecond},
				},
			},
			expRunStatus:  model.RunStatusFailed,
			expStepStatus: []model.StepStatus{model.StepStatusFailed, model.StepStatusPending},
		},

		"A failing step with continue policy should still run the rest": {
			pipeline: model.Pipeline{
				Name:        "continue-on-error",
				Concurrency: 1,
				OnError:     model.ErrorPolicyContinue,
				Steps: []model.PipelineStep{
					{Name: "boom", Type: model.StepTypeCommand, Command: []string{"/nonexistent-ukit-it-cmd"}},
					{Name: "still-runs", Type: model.StepTypeDelay, Duration: time.Millisecond},
				},
			},
			expRunStatus:  model.RunStatusFailed,
			expStepStatus: []model.StepStatus{model.StepStatusFailed, model.StepStatusCompleted},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)
			ctx := context.Background()

			repo := newRepository(t)

			svc, err := runpipeline.NewService(runpipeline.ServiceConfig{
				Repository: repo,
				Logger:     log.Noop,
			})
			require.NoError(err)

			run, err := svc.Run(ctx, runpipeline.Request{Pipeline: &test.pipeline})
			require.NoError(err)
			assert.Equal(test.expRunStatus, run.Status)

			// The final state must be observable through the repository.
			stored, err := repo.GetRun(ctx, run.ID)
			require.NoError(err)
			assert.Equal(run.Status, stored.Status)

			steps, err := repo.ListSteps(ctx, run.ID)
			require.NoError(err)
			require.Len(steps, len(test.expStepStatus))
			for i, expStatus := range test.expStepStatus {
				assert.Equal(expStatus, steps[i].Status, "step %d", i)
			}
		})
	}
}

func TestPipelineCancellation(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	repo := newRepository(t)

	svc, err := runpipeline.NewService(runpipeline.ServiceConfig{
		Repository: repo,
		Logger:     log.Noop,
	})
	require.NoError(err)

	source := async.NewSource()
	go func() {
		time.Sleep(30 * time.Millisecond)
		source.Cancel()
	}()

	run, err := svc.Run(ctx, runpipeline.Request{
		Pipeline: &model.Pipeline{
			Name:        "cancelled",
			Concurrency: 1,
			OnError:     model.ErrorPolicyStop,
			Steps: []model.PipelineStep{
				{Name: "long-wait", Type: model.StepTypeDelay, Duration: time.Minute},
				{Name: "never-runs", Type: model.StepTypeDelay, Duration: time.Millisecond},
			},
		},
		Token: source.Token(),
	})
	require.NoError(err)

	assert.Equal(model.RunStatusCancelled, run.Status)

	steps, err := repo.ListSteps(ctx, run.ID)
	require.NoError(err)
	require.Len(steps, 2)
	assert.Equal(model.StepStatusCancelled, steps[0].Status)
	assert.Equal(model.StepStatusPending, steps[1].Status)
}
