package async_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/ukit/internal/async"
)

func TestSourceCancel(t *testing.T) {
	assert := assert.New(t)

	source := async.NewSource()
	token := source.Token()

	assert.False(token.IsCancelled())

	source.Cancel()
	assert.True(token.IsCancelled())

	// Idempotent.
	source.Cancel()
	assert.True(token.IsCancelled())
}

func TestSourceCancelClosesDone(t *testing.T) {
	require := require.New(t)

	source := async.NewSource()

	select {
	case <-source.Token().Done():
		require.Fail("done channel should not be closed before cancel")
	default:
	}

	source.Cancel()

	select {
	case <-source.Token().Done():
	case <-time.After(time.Second):
		require.Fail("done channel should be closed after cancel")
	}
}

func TestLinkedSources(t *testing.T) {
	tests := map[string]struct {
		exec               func(parent, child *async.Source)
		expParentCancelled bool
		expChildCancelled  bool
	}{
		"Cancelling the parent should cancel the child": {
			exec: func(parent, child *async.Source) {
				parent.Cancel()
			},
			expParentCancelled: true,
			expChildCancelled:  true,
		},

		"Cancelling the child should not cancel the parent": {
			exec: func(parent, child *async.Source) {
				child.Cancel()
			},
			expParentCancelled: false,
			expChildCancelled:  true,
		},

		"No cancellation should leave both untouched": {
			exec:               func(parent, child *async.Source) {},
			expParentCancelled: false,
			expChildCancelled:  false,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			parent := async.NewSource()
			child := async.NewSource(parent.Token())

			test.exec(parent, child)

			assert.Equal(test.expParentCancelled, parent.Token().IsCancelled())
			assert.Equal(test.expChildCancelled, child.Token().IsCancelled())
		})
	}
}

func TestLinkedSourceAlreadyCancelledParent(t *testing.T) {
	assert := assert.New(t)

	parent := async.NewSource()
	parent.Cancel()

	child := async.NewSource(parent.Token())
	assert.True(child.Token().IsCancelled())
}

func TestLinkedSourceMultipleParents(t *testing.T) {
	assert := assert.New(t)

	parent1 := async.NewSource()
	parent2 := async.NewSource()
	child := async.NewSource(parent1.Token(), parent2.Token())

	parent2.Cancel()

	assert.True(child.Token().IsCancelled())
	assert.False(parent1.Token().IsCancelled())
}

func TestTokenNone(t *testing.T) {
	assert := assert.New(t)

	assert.False(async.TokenNone.IsCancelled())

	select {
	case <-async.TokenNone.Done():
		assert.Fail("TokenNone done channel should never be closed")
	default:
	}
}
