package lib

import (
	"context"
	"time"

	"github.com/slok/ukit/internal/async"
)

// Token signals cancellation to cooperative work. Tokens only observe
// cancellation, only a [Source] can trigger it.
type Token = async.Token

// Source owns a [Token] and can cancel it. Sources can be linked to
// parent tokens, cancellation flows from parents to children only.
type Source = async.Source

// Action is a unit of asynchronous work with progress reporting.
type Action = async.Action

// FuncAction is an [Action] that executes a callback.
type FuncAction = async.FuncAction

// DelayAction is an [Action] that waits a fixed duration.
type DelayAction = async.DelayAction

// Queue is a composite [Action] that runs child actions with a
// concurrency cap.
type Queue = async.Queue

// QueueConfig is the configuration for a parallel [Queue].
type QueueConfig = async.QueueConfig

// SerialQueue is a [Queue] fixed to one action in flight.
type SerialQueue = async.SerialQueue

// SerialQueueConfig is the configuration for a [SerialQueue].
type SerialQueueConfig = async.SerialQueueConfig

// QueueErrorPolicy tells a queue what to do when a child action fails.
type QueueErrorPolicy = async.ErrorPolicy

const (
	// StopOnError stops launching new actions on the first failure.
	StopOnError = async.StopOnError
	// ContinueOnError runs every action and aggregates the failures.
	ContinueOnError = async.ContinueOnError
)

// TokenNone is a shared token that is never cancelled.
var TokenNone = async.TokenNone

// NewSource creates a cancellation source, optionally linked to parent
// tokens: when any parent is cancelled the source cancels too.
func NewSource(parents ...*Token) *Source { return async.NewSource(parents...) }

// NewFuncAction returns an action that runs the given callback.
func NewFuncAction(fn func(ctx context.Context) error) *FuncAction { return async.NewFuncAction(fn) }

// NewDelayAction returns an action that waits for the given duration.
func NewDelayAction(duration time.Duration) *DelayAction { return async.NewDelayAction(duration) }

// NewParallelQueue creates a queue that runs actions with a concurrency cap.
func NewParallelQueue(cfg QueueConfig) (*Queue, error) { return async.NewParallelQueue(cfg) }

// NewSerialQueue creates a queue that runs its actions sequentially.
func NewSerialQueue(cfg SerialQueueConfig) (*SerialQueue, error) { return async.NewSerialQueue(cfg) }
