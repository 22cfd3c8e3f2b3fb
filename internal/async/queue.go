package async

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/slok/ukit/internal/log"
)

// ErrorPolicy tells a queue what to do when a child action fails.
type ErrorPolicy string

const (
	// StopOnError stops launching new actions on the first failure,
	// cancels the queue's linked token so cooperative children abort,
	// waits for the in-flight ones and returns the first error.
	StopOnError ErrorPolicy = "stop"
	// ContinueOnError runs every action and returns the failures
	// aggregated in a single error.
	ContinueOnError ErrorPolicy = "continue"
)

type queueState int

const (
	queueStateIdle queueState = iota
	queueStateRunning
	queueStateFinished
)

// QueueConfig is the configuration for a queue of actions.
type QueueConfig struct {
	// Actions are the child actions, launched strictly in this order.
	Actions []Action
	// Concurrency is the maximum number of actions in flight at once.
	// Defaults to 1.
	Concurrency int
	// OnError selects the failure policy. Defaults to StopOnError.
	OnError ErrorPolicy
	// Logger defaults to a noop logger.
	Logger log.Logger
}

func (c *QueueConfig) defaults() error {
	if c.Concurrency == 0 {
		c.Concurrency = 1
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be >= 1")
	}

	if c.OnError == "" {
		c.OnError = StopOnError
	}
	switch c.OnError {
	case StopOnError, ContinueOnError:
	default:
		return fmt.Errorf("unknown error policy %q", c.OnError)
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "async.Queue"})

	return nil
}

// Queue is a composite Action that runs an ordered list of child actions
// with a concurrency cap.
//
// Actions start in list order and at most Concurrency of them are in
// flight at any moment. On cancellation the queue stops launching new
// actions but lets the in-flight ones finish (cancellation stays
// cooperative, children that watch the token stop themselves).
//
// A queue runs once, calling Run on a used queue returns an error.
type Queue struct {
	actions     []Action
	concurrency int
	onError     ErrorPolicy
	logger      log.Logger

	mu       sync.Mutex
	state    queueState
	inflight map[int]Action
}

// NewParallelQueue creates a queue that runs actions with the configured
// concurrency cap.
func NewParallelQueue(cfg QueueConfig) (*Queue, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Queue{
		actions:     cfg.Actions,
		concurrency: cfg.Concurrency,
		onError:     cfg.OnError,
		logger:      cfg.Logger,
		inflight:    map[int]Action{},
	}, nil
}

// Append adds actions at the end of the queue. It fails once the queue
// has started running.
func (q *Queue) Append(actions ...Action) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.state != queueStateIdle {
		return fmt.Errorf("queue already started")
	}
	q.actions = append(q.actions, actions...)

	return nil
}

// Len returns the number of child actions.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.actions)
}

type actionResult struct {
	index     int
	completed bool
	err       error
}

// Run executes the child actions. It returns true when every action ran
// to completion, false (without error) when cancellation cut the run
// short, and an error per the queue's ErrorPolicy when a child fails.
func (q *Queue) Run(ctx context.Context, token *Token) (bool, error) {
	if token == nil {
		token = TokenNone
	}

	q.mu.Lock()
	if q.state != queueStateIdle {
		q.mu.Unlock()
		return false, fmt.Errorf("queue already ran")
	}
	q.state = queueStateRunning
	actions := q.actions
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		q.state = queueStateFinished
		q.mu.Unlock()
	}()

	// Children get a token linked to the caller's one so a failing
	// sibling can also stop them cooperatively.
	inner := NewSource(token)
	childToken := inner.Token()

	results := make(chan actionResult)
	next := 0
	running := 0
	allCompleted := true
	var firstErr error
	var merr *multierror.Error

	launch := func(index int) {
		action := actions[index]
		q.mu.Lock()
		q.inflight[index] = action
		q.mu.Unlock()

		q.logger.Debugf("launching action %d/%d", index+1, len(actions))
		go func() {
			completed, err := action.Run(ctx, childToken)
			results <- actionResult{index: index, completed: completed, err: err}
		}()
	}

	for next < len(actions) || running > 0 {
		// Top up free slots, unless cancelled or stopping on a failure.
		for running < q.concurrency && next < len(actions) {
			if childToken.IsCancelled() {
				break
			}
			launch(next)
			next++
			running++
		}

		if running == 0 {
			break
		}

		result := <-results
		running--
		q.mu.Lock()
		delete(q.inflight, result.index)
		q.mu.Unlock()

		if result.err != nil {
			q.logger.Errorf("action %d failed: %s", result.index, result.err)
			switch q.onError {
			case StopOnError:
				if firstErr == nil {
					firstErr = fmt.Errorf("action %d failed: %w", result.index, result.err)
					inner.Cancel()
				}
			case ContinueOnError:
				merr = multierror.Append(merr, fmt.Errorf("action %d failed: %w", result.index, result.err))
			}
		}
		if !result.completed {
			allCompleted = false
		}
	}

	if firstErr != nil {
		return false, firstErr
	}
	if err := merr.ErrorOrNil(); err != nil {
		return false, err
	}

	completed := next == len(actions) && allCompleted
	if !completed {
		q.logger.Debugf("queue run cancelled (%d/%d actions launched)", next, len(actions))
	}

	return completed, nil
}

// Progress returns the mean progress of the child actions. It is valid
// mid-run, actions that haven't started count as 0 and finished ones
// as 1.
func (q *Queue) Progress() float64 {
	q.mu.Lock()
	actions := q.actions
	q.mu.Unlock()

	if len(actions) == 0 {
		return 1
	}

	total := 0.0
	for _, action := range actions {
		total += action.Progress()
	}

	return total / float64(len(actions))
}

// SerialQueueConfig is the configuration for a serial queue.
type SerialQueueConfig struct {
	Actions []Action
	OnError ErrorPolicy
	Logger  log.Logger
}

// SerialQueue is a Queue fixed to one action in flight, the children run
// strictly one after another in list order.
type SerialQueue struct {
	*Queue
}

// NewSerialQueue creates a queue that runs its actions sequentially.
func NewSerialQueue(cfg SerialQueueConfig) (*SerialQueue, error) {
	q, err := NewParallelQueue(QueueConfig{
		Actions:     cfg.Actions,
		Concurrency: 1,
		OnError:     cfg.OnError,
		Logger:      cfg.Logger,
	})
	if err != nil {
		return nil, err
	}

	return &SerialQueue{Queue: q}, nil
}

// CurrentAction returns the action in flight, or nil when the queue is
// idle or finished.
func (q *SerialQueue) CurrentAction() Action {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, action := range q.inflight {
		return action
	}

	return nil
}
