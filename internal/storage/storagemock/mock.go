package storagemock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/slok/ukit/internal/model"
	"github.com/slok/ukit/internal/storage"
)

// MockRepository is a mock implementation of storage.Repository.
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateRun(ctx context.Context, run model.Run) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockRepository) GetRun(ctx context.Context, id string) (*model.Run, error) {
	args := m.Called(ctx, id)
	run, _ := args.Get(0).(*model.Run)
	return run, args.Error(1)
}

func (m *MockRepository) ListRuns(ctx context.Context, filter storage.RunFilter) ([]model.Run, error) {
	args := m.Called(ctx, filter)
	runs, _ := args.Get(0).([]model.Run)
	return runs, args.Error(1)
}

func (m *MockRepository) UpdateRun(ctx context.Context, run model.Run) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockRepository) DeleteRun(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRepository) CreateSteps(ctx context.Context, steps []model.Step) error {
	args := m.Called(ctx, steps)
	return args.Error(0)
}

func (m *MockRepository) UpdateStep(ctx context.Context, step model.Step) error {
	args := m.Called(ctx, step)
	return args.Error(0)
}

func (m *MockRepository) ListSteps(ctx context.Context, runID string) ([]model.Step, error) {
	args := m.Called(ctx, runID)
	steps, _ := args.Get(0).([]model.Step)
	return steps, args.Error(1)
}
