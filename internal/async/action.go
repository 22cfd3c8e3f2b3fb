package async

import (
	"context"
	"time"

	"go.uber.org/atomic"
)

// Action is a unit of asynchronous work.
//
// Run executes the work exactly once and returns whether it completed
// (false means it stopped on a cancellation request, which is not an
// error). Progress reports completion in [0, 1] and can be queried
// before, during and after the run.
type Action interface {
	Run(ctx context.Context, token *Token) (completed bool, err error)
	Progress() float64
}

// FuncAction is an Action that executes a callback.
//
// Known limitation: the callback is assumed to be short-lived, so the
// cancellation token is not checked. Long callbacks should honor the
// context themselves.
type FuncAction struct {
	fn       func(ctx context.Context) error
	progress atomic.Float64
}

// NewFuncAction returns an action that runs the given callback.
func NewFuncAction(fn func(ctx context.Context) error) *FuncAction {
	return &FuncAction{fn: fn}
}

func (a *FuncAction) Run(ctx context.Context, _ *Token) (bool, error) {
	a.progress.Store(0)
	if err := a.fn(ctx); err != nil {
		return false, err
	}
	a.progress.Store(1)
	return true, nil
}

func (a *FuncAction) Progress() float64 { return a.progress.Load() }

// DelayAction is an Action that waits a fixed duration.
//
// Progress is 0 before the wait finishes and 1 after, there is no
// interpolation while waiting.
type DelayAction struct {
	duration time.Duration
	progress atomic.Float64
}

// NewDelayAction returns an action that waits for the given duration.
func NewDelayAction(duration time.Duration) *DelayAction {
	return &DelayAction{duration: duration}
}

func (a *DelayAction) Run(ctx context.Context, token *Token) (bool, error) {
	if token == nil {
		token = TokenNone
	}

	timer := time.NewTimer(a.duration)
	defer timer.Stop()

	select {
	case <-timer.C:
		a.progress.Store(1)
		return true, nil
	case <-token.Done():
		return false, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func (a *DelayAction) Progress() float64 { return a.progress.Load() }
