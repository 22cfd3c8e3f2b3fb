package async_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/ukit/internal/async"
	"github.com/slok/ukit/internal/log"
)

func TestNewParallelQueue(t *testing.T) {
	tests := map[string]struct {
		config async.QueueConfig
		expErr bool
	}{
		"Default config should be valid": {
			config: async.QueueConfig{},
			expErr: false,
		},

		"Explicit concurrency should be valid": {
			config: async.QueueConfig{Concurrency: 4},
			expErr: false,
		},

		"Negative concurrency should fail": {
			config: async.QueueConfig{Concurrency: -1},
			expErr: true,
		},

		"Unknown error policy should fail": {
			config: async.QueueConfig{OnError: "explode"},
			expErr: true,
		},

		"Nil logger should default to noop": {
			config: async.QueueConfig{Logger: nil},
			expErr: false,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)

			q, err := async.NewParallelQueue(test.config)

			if test.expErr {
				require.Error(err)
				require.Nil(q)
			} else {
				require.NoError(err)
				require.NotNil(q)
			}
		})
	}
}

func TestSerialQueueRunsInOrder(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	var mu sync.Mutex
	var order []int
	actions := make([]async.Action, 0, 5)
	for i := 0; i < 5; i++ {
		i := i
		actions = append(actions, async.NewFuncAction(func(ctx context.Context) error {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil
		}))
	}

	q, err := async.NewSerialQueue(async.SerialQueueConfig{Actions: actions, Logger: log.Noop})
	require.NoError(err)

	completed, err := q.Run(context.Background(), async.TokenNone)

	require.NoError(err)
	assert.True(completed)
	assert.Equal([]int{0, 1, 2, 3, 4}, order)
	assert.Equal(float64(1), q.Progress())
}

func TestParallelQueueRespectsConcurrencyCap(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	var mu sync.Mutex
	running := 0
	maxRunning := 0
	actions := make([]async.Action, 0, 4)
	for i := 0; i < 4; i++ {
		actions = append(actions, async.NewFuncAction(func(ctx context.Context) error {
			mu.Lock()
			running++
			if running > maxRunning {
				maxRunning = running
			}
			mu.Unlock()

			time.Sleep(20 * time.Millisecond)

			mu.Lock()
			running--
			mu.Unlock()
			return nil
		}))
	}

	q, err := async.NewParallelQueue(async.QueueConfig{Actions: actions, Concurrency: 2})
	require.NoError(err)

	completed, err := q.Run(context.Background(), async.TokenNone)

	require.NoError(err)
	assert.True(completed)
	assert.LessOrEqual(maxRunning, 2)
	assert.GreaterOrEqual(maxRunning, 1)
}

func TestQueueCancellationStopsLaunching(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	source := async.NewSource()

	executed := 0
	first := async.NewFuncAction(func(ctx context.Context) error {
		executed++
		source.Cancel() // Cancel while the queue is running.
		return nil
	})
	second := async.NewFuncAction(func(ctx context.Context) error {
		executed++
		return nil
	})

	q, err := async.NewSerialQueue(async.SerialQueueConfig{Actions: []async.Action{first, second}})
	require.NoError(err)

	completed, err := q.Run(context.Background(), source.Token())

	require.NoError(err)
	assert.False(completed)
	assert.Equal(1, executed, "actions after the cancellation should not launch")
}

func TestQueueAlreadyCancelledToken(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	source := async.NewSource()
	source.Cancel()

	executed := false
	q, err := async.NewSerialQueue(async.SerialQueueConfig{Actions: []async.Action{
		async.NewFuncAction(func(ctx context.Context) error {
			executed = true
			return nil
		}),
	}})
	require.NoError(err)

	completed, err := q.Run(context.Background(), source.Token())

	require.NoError(err)
	assert.False(completed)
	assert.False(executed)
}

func TestQueueStopOnError(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	var mu sync.Mutex
	executed := []string{}
	track := func(name string, err error) async.Action {
		return async.NewFuncAction(func(ctx context.Context) error {
			mu.Lock()
			executed = append(executed, name)
			mu.Unlock()
			return err
		})
	}

	q, err := async.NewSerialQueue(async.SerialQueueConfig{
		Actions: []async.Action{
			track("first", nil),
			track("second", fmt.Errorf("boom")),
			track("third", nil),
		},
		OnError: async.StopOnError,
	})
	require.NoError(err)

	completed, err := q.Run(context.Background(), async.TokenNone)

	assert.Error(err)
	assert.False(completed)
	assert.Equal([]string{"first", "second"}, executed)
}

func TestQueueContinueOnError(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	var mu sync.Mutex
	executed := 0
	failing := func(err error) async.Action {
		return async.NewFuncAction(func(ctx context.Context) error {
			mu.Lock()
			executed++
			mu.Unlock()
			return err
		})
	}

	q, err := async.NewSerialQueue(async.SerialQueueConfig{
		Actions: []async.Action{
			failing(fmt.Errorf("first boom")),
			failing(nil),
			failing(fmt.Errorf("second boom")),
		},
		OnError: async.ContinueOnError,
	})
	require.NoError(err)

	completed, err := q.Run(context.Background(), async.TokenNone)

	assert.Error(err)
	assert.False(completed)
	assert.Equal(3, executed, "every action should run with the continue policy")
	assert.Contains(err.Error(), "first boom")
	assert.Contains(err.Error(), "second boom")
}

func TestQueueStopOnErrorCancelsSiblings(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	slow := async.NewDelayAction(10 * time.Second)
	failing := async.NewFuncAction(func(ctx context.Context) error {
		time.Sleep(10 * time.Millisecond) // Let the slow sibling start first.
		return fmt.Errorf("boom")
	})

	q, err := async.NewParallelQueue(async.QueueConfig{
		Actions:     []async.Action{slow, failing},
		Concurrency: 2,
		OnError:     async.StopOnError,
	})
	require.NoError(err)

	start := time.Now()
	completed, err := q.Run(context.Background(), async.TokenNone)

	assert.Error(err)
	assert.False(completed)
	assert.Less(time.Since(start), 5*time.Second, "the failing action should cancel the slow sibling through the linked token")
}

func TestQueueNotRestartable(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	q, err := async.NewSerialQueue(async.SerialQueueConfig{Actions: []async.Action{
		async.NewFuncAction(func(ctx context.Context) error { return nil }),
	}})
	require.NoError(err)

	_, err = q.Run(context.Background(), async.TokenNone)
	require.NoError(err)

	_, err = q.Run(context.Background(), async.TokenNone)
	assert.Error(err)
}

func TestQueueAppend(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	executed := 0
	newAction := func() async.Action {
		return async.NewFuncAction(func(ctx context.Context) error {
			executed++
			return nil
		})
	}

	q, err := async.NewParallelQueue(async.QueueConfig{})
	require.NoError(err)
	require.Equal(0, q.Len())

	require.NoError(q.Append(newAction(), newAction()))
	assert.Equal(2, q.Len())

	completed, err := q.Run(context.Background(), async.TokenNone)
	require.NoError(err)
	assert.True(completed)
	assert.Equal(2, executed)

	// Append after run should fail.
	assert.Error(q.Append(newAction()))
}

func TestQueueProgressMidRun(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	release := make(chan struct{})
	fast := async.NewFuncAction(func(ctx context.Context) error { return nil })
	blocking := async.NewFuncAction(func(ctx context.Context) error {
		<-release
		return nil
	})

	q, err := async.NewSerialQueue(async.SerialQueueConfig{Actions: []async.Action{fast, blocking}})
	require.NoError(err)

	assert.Equal(float64(0), q.Progress())

	done := make(chan struct{})
	go func() {
		_, _ = q.Run(context.Background(), async.TokenNone)
		close(done)
	}()

	// Wait until the first action finished and the second is blocked.
	require.Eventually(func() bool { return q.Progress() == 0.5 }, time.Second, time.Millisecond)

	close(release)
	<-done
	assert.Equal(float64(1), q.Progress())
}

func TestSerialQueueCurrentAction(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	release := make(chan struct{})
	blocking := async.NewFuncAction(func(ctx context.Context) error {
		<-release
		return nil
	})

	q, err := async.NewSerialQueue(async.SerialQueueConfig{Actions: []async.Action{blocking}})
	require.NoError(err)

	assert.Nil(q.CurrentAction())

	done := make(chan struct{})
	go func() {
		_, _ = q.Run(context.Background(), async.TokenNone)
		close(done)
	}()

	require.Eventually(func() bool { return q.CurrentAction() != nil }, time.Second, time.Millisecond)
	assert.Equal(async.Action(blocking), q.CurrentAction())

	close(release)
	<-done
	assert.Nil(q.CurrentAction())
}
