package async

import (
	"sync"

	"go.uber.org/atomic"
)

// Token is a read-only handle that tells whether cooperative cancellation
// has been requested. Cancellation is advisory: running work has to check
// the token and stop itself, nothing gets interrupted forcefully.
//
// The flag is monotonic, once cancelled it never reverts.
type Token struct {
	cancelled atomic.Bool
	mu        sync.Mutex
	done      chan struct{}
	callbacks []func()
}

func newToken() *Token {
	return &Token{done: make(chan struct{})}
}

// TokenNone is a token that can never be cancelled. Use it when an API
// requires a token and the caller doesn't need cancellation.
var TokenNone = newToken()

// IsCancelled returns whether cancellation has been requested.
func (t *Token) IsCancelled() bool { return t.cancelled.Load() }

// Done returns a channel that is closed when cancellation is requested,
// so select-based waiters don't need to poll.
func (t *Token) Done() <-chan struct{} { return t.done }

func (t *Token) cancel() {
	t.mu.Lock()
	if t.cancelled.Load() {
		t.mu.Unlock()
		return
	}
	t.cancelled.Store(true)
	close(t.done)
	callbacks := t.callbacks
	t.callbacks = nil
	t.mu.Unlock()

	for _, callback := range callbacks {
		callback()
	}
}

// onCancel registers a callback invoked once on cancellation. If the
// token is already cancelled the callback runs immediately.
func (t *Token) onCancel(callback func()) {
	t.mu.Lock()
	if t.cancelled.Load() {
		t.mu.Unlock()
		callback()
		return
	}
	t.callbacks = append(t.callbacks, callback)
	t.mu.Unlock()
}

// Source owns a cancellation token and is the only way to cancel it.
type Source struct {
	token *Token
}

// NewSource creates a new cancellation source. When parent tokens are
// given, cancelling any parent also cancels this source. Propagation is
// one-directional: cancelling this source never touches the parents.
func NewSource(parents ...*Token) *Source {
	s := &Source{token: newToken()}

	for _, parent := range parents {
		if parent == nil {
			continue
		}
		parent.onCancel(s.Cancel)
	}

	return s
}

// Token returns the read-only token controlled by this source.
func (s *Source) Token() *Token { return s.token }

// Cancel requests cancellation. It is idempotent.
func (s *Source) Cancel() { s.token.cancel() }
