package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/ukit/internal/model"
	"github.com/slok/ukit/internal/storage"
	"github.com/slok/ukit/internal/storage/memory"
)

func testRun(id string, status model.RunStatus, createdAt time.Time) model.Run {
	return model.Run{
		ID:          id,
		Pipeline:    "test-pipeline",
		Status:      status,
		Concurrency: 1,
		CreatedAt:   createdAt,
	}
}

func TestRepositoryRunCRUD(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	repo, err := memory.NewRepository(memory.RepositoryConfig{})
	require.NoError(err)

	createdAt := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	run := testRun("run-1", model.RunStatusPending, createdAt)

	// Create.
	require.NoError(repo.CreateRun(ctx, run))
	err = repo.CreateRun(ctx, run)
	assert.ErrorIs(err, model.ErrAlreadyExists)

	// Get.
	got, err := repo.GetRun(ctx, "run-1")
	require.NoError(err)
	assert.Equal(run, *got)

	_, err = repo.GetRun(ctx, "missing")
	assert.ErrorIs(err, model.ErrNotFound)

	// Update.
	run.Status = model.RunStatusCompleted
	require.NoError(repo.UpdateRun(ctx, run))
	got, err = repo.GetRun(ctx, "run-1")
	require.NoError(err)
	assert.Equal(model.RunStatusCompleted, got.Status)

	err = repo.UpdateRun(ctx, testRun("missing", model.RunStatusPending, createdAt))
	assert.ErrorIs(err, model.ErrNotFound)

	// Delete.
	require.NoError(repo.DeleteRun(ctx, "run-1"))
	_, err = repo.GetRun(ctx, "run-1")
	assert.ErrorIs(err, model.ErrNotFound)
	err = repo.DeleteRun(ctx, "run-1")
	assert.ErrorIs(err, model.ErrNotFound)
}

func TestRepositoryListRuns(t *testing.T) {
	tests := map[string]struct {
		filter storage.RunFilter
		expIDs []string
	}{
		"No filter should return every run newest first": {
			filter: storage.RunFilter{},
			expIDs: []string{"run-3", "run-2", "run-1"},
		},

		"Status filter should narrow down the listing": {
			filter: func() storage.RunFilter {
				s := model.RunStatusFailed
				return storage.RunFilter{Status: &s}
			}(),
			expIDs: []string{"run-2"},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)
			ctx := context.Background()

			repo, err := memory.NewRepository(memory.RepositoryConfig{})
			require.NoError(err)

			base := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
			require.NoError(repo.CreateRun(ctx, testRun("run-1", model.RunStatusCompleted, base)))
			require.NoError(repo.CreateRun(ctx, testRun("run-2", model.RunStatusFailed, base.Add(time.Minute))))
			require.NoError(repo.CreateRun(ctx, testRun("run-3", model.RunStatusCompleted, base.Add(2*time.Minute))))

			runs, err := repo.ListRuns(ctx, test.filter)
			require.NoError(err)

			ids := make([]string, 0, len(runs))
			for _, r := range runs {
				ids = append(ids, r.ID)
			}
			assert.Equal(test.expIDs, ids)
		})
	}
}

func TestRepositorySteps(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	repo, err := memory.NewRepository(memory.RepositoryConfig{})
	require.NoError(err)

	createdAt := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	require.NoError(repo.CreateRun(ctx, testRun("run-1", model.RunStatusPending, createdAt)))

	steps := []model.Step{
		{ID: "step-2", RunID: "run-1", Sequence: 2, Name: "second", Status: model.StepStatusPending},
		{ID: "step-1", RunID: "run-1", Sequence: 1, Name: "first", Status: model.StepStatusPending},
	}
	require.NoError(repo.CreateSteps(ctx, steps))

	// Listed ordered by sequence.
	got, err := repo.ListSteps(ctx, "run-1")
	require.NoError(err)
	require.Len(got, 2)
	assert.Equal("first", got[0].Name)
	assert.Equal("second", got[1].Name)

	// Update.
	step := got[0]
	step.Status = model.StepStatusCompleted
	require.NoError(repo.UpdateStep(ctx, step))
	got, err = repo.ListSteps(ctx, "run-1")
	require.NoError(err)
	assert.Equal(model.StepStatusCompleted, got[0].Status)

	err = repo.UpdateStep(ctx, model.Step{ID: "missing"})
	assert.ErrorIs(err, model.ErrNotFound)

	// Deleting the run should delete the steps.
	require.NoError(repo.DeleteRun(ctx, "run-1"))
	got, err = repo.ListSteps(ctx, "run-1")
	require.NoError(err)
	assert.Empty(got)
}
