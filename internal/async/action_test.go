package async_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/ukit/internal/async"
)

func TestFuncAction(t *testing.T) {
	tests := map[string]struct {
		fn           func(called *int) func(ctx context.Context) error
		expCompleted bool
		expErr       bool
		expProgress  float64
	}{
		"A successful callback should complete and reach full progress": {
			fn: func(called *int) func(ctx context.Context) error {
				return func(ctx context.Context) error {
					*called++
					return nil
				}
			},
			expCompleted: true,
			expProgress:  1,
		},

		"A failing callback should propagate the error": {
			fn: func(called *int) func(ctx context.Context) error {
				return func(ctx context.Context) error {
					*called++
					return fmt.Errorf("something failed")
				}
			},
			expCompleted: false,
			expErr:       true,
			expProgress:  0,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			called := 0
			action := async.NewFuncAction(test.fn(&called))
			assert.Equal(float64(0), action.Progress())

			completed, err := action.Run(context.Background(), async.TokenNone)

			if test.expErr {
				assert.Error(err)
			} else {
				assert.NoError(err)
			}
			assert.Equal(test.expCompleted, completed)
			assert.Equal(1, called)
			assert.Equal(test.expProgress, action.Progress())
		})
	}
}

func TestDelayActionCompletes(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	action := async.NewDelayAction(5 * time.Millisecond)
	assert.Equal(float64(0), action.Progress())

	completed, err := action.Run(context.Background(), async.TokenNone)

	require.NoError(err)
	assert.True(completed)
	assert.Equal(float64(1), action.Progress())
}

func TestDelayActionCancelled(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	source := async.NewSource()
	source.Cancel()

	action := async.NewDelayAction(10 * time.Second)

	start := time.Now()
	completed, err := action.Run(context.Background(), source.Token())

	require.NoError(err)
	assert.False(completed)
	assert.Less(time.Since(start), time.Second, "cancelled delay should return immediately")
	assert.Equal(float64(0), action.Progress())
}

func TestDelayActionContextCancelled(t *testing.T) {
	assert := assert.New(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	action := async.NewDelayAction(10 * time.Second)
	completed, err := action.Run(ctx, async.TokenNone)

	assert.Error(err)
	assert.False(completed)
}
