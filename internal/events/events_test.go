package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collector[T any] struct {
	mu  sync.Mutex
	got []T
}

func (c *collector[T]) handle(_ context.Context, v T) error {
	c.mu.Lock()
	c.got = append(c.got, v)
	c.mu.Unlock()
	return nil
}

func (c *collector[T]) items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]T(nil), c.got...)
}

func TestSyncDeliveryPreservesOrder(t *testing.T) {
	s := NewSubject(WithSyncDelivery())
	defer Complete(s)

	c := &collector[int]{}
	sub := Subscribe(s, "n", c.handle)
	defer sub.Unsubscribe()

	for i := 0; i < 100; i++ {
		require.NoError(t, Emit(s, "n", i))
	}
	require.Eventually(t, func() bool { return len(c.items()) == 100 }, time.Second, 5*time.Millisecond)
	for i, v := range c.items() {
		assert.Equal(t, i, v)
	}
}

func TestTopicsAreIsolated(t *testing.T) {
	s := NewSubject(WithSyncDelivery())
	defer Complete(s)

	a := &collector[string]{}
	b := &collector[string]{}
	Subscribe(s, "a", a.handle)
	Subscribe(s, "b", b.handle)

	require.NoError(t, Emit(s, "a", "x"))
	require.Eventually(t, func() bool { return len(a.items()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Empty(t, b.items())
}

func TestUnsubscribe(t *testing.T) {
	s := NewSubject(WithSyncDelivery())
	defer Complete(s)

	c := &collector[int]{}
	sub := Subscribe(s, "n", c.handle)
	require.NoError(t, Emit(s, "n", 1))
	require.Eventually(t, func() bool { return len(c.items()) == 1 }, time.Second, 5*time.Millisecond)

	sub.Unsubscribe()
	sub.Unsubscribe()
	require.NoError(t, Emit(s, "n", 2))

	// A later subscriber proves the loop processed event 2.
	done := &collector[int]{}
	Subscribe(s, "n", done.handle)
	require.NoError(t, Emit(s, "n", 3))
	require.Eventually(t, func() bool { return len(done.items()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []int{1}, c.items())
}

func TestReplay(t *testing.T) {
	s := NewSubject(WithSyncDelivery(), WithReplay(2))
	defer Complete(s)

	for i := 1; i <= 3; i++ {
		require.NoError(t, Emit(s, "n", i))
	}
	require.Eventually(t, func() bool { return s.EventCount() == 3 }, time.Second, 5*time.Millisecond)

	c := &collector[int]{}
	Subscribe(s, "n", c.handle, true)
	assert.Equal(t, []int{2, 3}, c.items())

	plain := &collector[int]{}
	Subscribe(s, "n", plain.handle)
	assert.Empty(t, plain.items())
}

func TestWrongPayloadTypeIsSkipped(t *testing.T) {
	s := NewSubject(WithSyncDelivery())
	defer Complete(s)

	c := &collector[int]{}
	Subscribe(s, "n", c.handle)
	require.NoError(t, Emit(s, "n", "not an int"))
	require.NoError(t, Emit(s, "n", 5))
	require.Eventually(t, func() bool { return len(c.items()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []int{5}, c.items())
}

func TestEmitAfterComplete(t *testing.T) {
	s := NewSubject()
	Complete(s)
	Complete(s)
	assert.ErrorIs(t, Emit(s, "n", 1), ErrClosed)
}
