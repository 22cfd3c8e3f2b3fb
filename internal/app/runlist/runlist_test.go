package runlist_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/slok/ukit/internal/app/runlist"
	"github.com/slok/ukit/internal/model"
	"github.com/slok/ukit/internal/storage"
	"github.com/slok/ukit/internal/storage/storagemock"
)

func TestServiceRun(t *testing.T) {
	failedStatus := model.RunStatusFailed

	tests := map[string]struct {
		request runlist.Request
		mock    func(m *storagemock.MockRepository)
		expRuns []model.Run
		expErr  bool
	}{
		"Listing without a filter should return every run": {
			request: runlist.Request{},
			mock: func(m *storagemock.MockRepository) {
				m.On("ListRuns", mock.Anything, storage.RunFilter{}).Return([]model.Run{
					{ID: "run-2"},
					{ID: "run-1"},
				}, nil)
			},
			expRuns: []model.Run{{ID: "run-2"}, {ID: "run-1"}},
		},

		"The status filter should be forwarded to the repository": {
			request: runlist.Request{StatusFilter: &failedStatus},
			mock: func(m *storagemock.MockRepository) {
				m.On("ListRuns", mock.Anything, storage.RunFilter{Status: &failedStatus}).Return([]model.Run{
					{ID: "run-1", Status: model.RunStatusFailed},
				}, nil)
			},
			expRuns: []model.Run{{ID: "run-1", Status: model.RunStatusFailed}},
		},

		"A repository failure should fail the listing": {
			request: runlist.Request{},
			mock: func(m *storagemock.MockRepository) {
				m.On("ListRuns", mock.Anything, mock.Anything).Return(nil, fmt.Errorf("boom"))
			},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			repo := &storagemock.MockRepository{}
			test.mock(repo)

			svc, err := runlist.NewService(runlist.ServiceConfig{Repository: repo})
			require.NoError(err)

			runs, err := svc.Run(context.Background(), test.request)

			if test.expErr {
				assert.Error(err)
			} else if assert.NoError(err) {
				assert.Equal(test.expRuns, runs)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestNewServiceRequiresRepository(t *testing.T) {
	_, err := runlist.NewService(runlist.ServiceConfig{})
	require.Error(t, err)
}
