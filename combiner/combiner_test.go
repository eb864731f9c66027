package combiner

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithRunsExclusive(t *testing.T) {
	lock := NewLock()
	const numGoroutines = 8
	const iterations = 50000
	counter := 0
	var wg sync.WaitGroup

	wg.Add(numGoroutines)
	for range numGoroutines {
		go func() {
			defer wg.Done()
			for range iterations {
				lock.With(func() { counter++ })
			}
		}()
	}
	wg.Wait()

	expected := numGoroutines * iterations
	assert.Equal(t, expected, counter, "Expected counter to be %d, got %d", expected, counter)
}

func TestWithReturnsAfterClosureRan(t *testing.T) {
	lock := NewLock()
	ran := false
	lock.With(func() { ran = true })
	assert.True(t, ran, "With must not return before the closure has run")
}

func TestClosuresObserveEachOther(t *testing.T) {
	// Every closure appends; if combining lost or reordered a batch the
	// slice would end up short.
	lock := NewLock()
	const numGoroutines = 16
	const iterations = 1000
	var log []int
	var wg sync.WaitGroup

	wg.Add(numGoroutines)
	for i := range numGoroutines {
		go func(id int) {
			defer wg.Done()
			for range iterations {
				lock.With(func() { log = append(log, id) })
			}
		}(i)
	}
	wg.Wait()

	assert.Len(t, log, numGoroutines*iterations)
}

// A push loses its CAS whenever another waiter publishes first. The retry
// must reuse the already-armed parker; re-arming it panics.
func TestPushRetryAfterLostPublish(t *testing.T) {
	lock := NewLock()
	require.True(t, atomic.CompareAndSwapUintptr(&lock.state, 0, heldNoWaiters),
		"test owns the lock from here")

	first := &node{fn: func() {}}
	firstPrepared := false
	require.True(t, lock.tryPush(first, &firstPrepared, heldNoWaiters))

	ran := false
	n := &node{fn: func() { ran = true }}
	prepared := false

	// Stale observation: the word moved on when first was published.
	require.False(t, lock.tryPush(n, &prepared, heldNoWaiters))
	assert.NotPanics(t, func() {
		require.True(t, lock.tryPush(n, &prepared, atomic.LoadUintptr(&lock.state)))
	}, "retrying a lost push must not re-arm the parker")

	// Drain as the holder: both queued closures run, both waiters are woken.
	lock.combine(func() {})
	assert.True(t, ran, "the retried node's closure must run")
	assert.Zero(t, atomic.LoadUintptr(&lock.state), "the word must return to free")

	first.event.Park()
	n.event.Park()
}

func BenchmarkWithContended(b *testing.B) {
	lock := NewLock()
	counter := 0
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			lock.With(func() { counter++ })
		}
	})
}
