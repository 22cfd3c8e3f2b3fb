package dbmock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/slok/ukit/internal/db"
)

// MockBackend is a mock implementation of db.Backend.
type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) Field(ctx context.Context, query string, params db.Params) (any, bool, error) {
	args := m.Called(ctx, query, params)
	return args.Get(0), args.Bool(1), args.Error(2)
}

func (m *MockBackend) Row(ctx context.Context, query string, params db.Params) (db.Row, bool, error) {
	args := m.Called(ctx, query, params)
	row, _ := args.Get(0).(db.Row)
	return row, args.Bool(1), args.Error(2)
}

func (m *MockBackend) Rows(ctx context.Context, query string, params db.Params) ([]db.Row, error) {
	args := m.Called(ctx, query, params)
	rows, _ := args.Get(0).([]db.Row)
	return rows, args.Error(1)
}

func (m *MockBackend) Insert(ctx context.Context, query string, params db.Params) (int64, error) {
	args := m.Called(ctx, query, params)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBackend) Update(ctx context.Context, query string, params db.Params) (int64, error) {
	args := m.Called(ctx, query, params)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBackend) Transaction(ctx context.Context, fn func(ctx context.Context, tx db.Backend) error) error {
	args := m.Called(ctx, fn)
	return args.Error(0)
}
