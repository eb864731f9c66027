package ticket

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

func TestLockConcurrentAccess(t *testing.T) {
	lock := NewLock()
	const numGoroutines = 100
	const iterations = 500
	counter := 0
	var wg sync.WaitGroup

	wg.Add(numGoroutines)
	for range numGoroutines {
		go func() {
			defer wg.Done()
			for range iterations {
				lock.Lock()
				counter++
				lock.Unlock()
			}
		}()
	}
	wg.Wait()

	expected := numGoroutines * iterations
	assert.Equal(t, expected, counter, "Expected counter to be %d, got %d", expected, counter)
}

func TestLockFairness(t *testing.T) {
	lock := NewLock()
	const numGoroutines = 50

	// Track the served ticket at the moment each goroutine got in; sequential
	// head values mean strictly FIFO service.
	var served []uint32
	var mu sync.Mutex
	var wg sync.WaitGroup

	var ready sync.WaitGroup
	ready.Add(1)

	wg.Add(numGoroutines)
	for range numGoroutines {
		go func() {
			defer wg.Done()
			ready.Wait()

			lock.Lock()
			mu.Lock()
			served = append(served, atomic.LoadUint32(&lock.head))
			mu.Unlock()
			lock.Unlock()
		}()
	}

	ready.Done()
	wg.Wait()

	for i := 1; i < len(served); i++ {
		assert.Equal(t, served[i-1]+1, served[i],
			"Served tickets should be sequential. Order: %v", served)
	}
}

func TestTryLock(t *testing.T) {
	lock := NewLock()

	assert.True(t, lock.TryLock(), "TryLock on a fresh lock should succeed")
	assert.False(t, lock.TryLock(), "TryLock on a held lock should fail")

	lock.Unlock()
	assert.True(t, lock.TryLock(), "TryLock after Unlock should succeed")
	lock.Unlock()
	assert.True(t, lock.isFree())
}

// packCounters must describe the struct's actual memory regardless of byte
// order, or the packed CAS in TryLock compares against garbage.
func TestPackCountersMatchesMemoryLayout(t *testing.T) {
	l := &Lock{head: 0x11223344, tail: 0x55667788}
	assert.Equal(t,
		atomic.LoadUint64((*uint64)(unsafe.Pointer(l))),
		packCounters(l.head, l.tail),
		"packCounters must reproduce the in-memory word")
}

// A held lock with a waiter queued behind it (head one behind the issued
// tail) must never satisfy TryLock: succeeding here would both grant the
// caller and bump head, admitting the queued waiter at the same time.
func TestTryLockCannotStealFromHolder(t *testing.T) {
	lock := NewLock()
	atomic.StoreUint32(&lock.head, 1) // holder serving ticket 1
	atomic.StoreUint32(&lock.tail, 2) // ticket 2 already issued and waiting

	assert.False(t, lock.TryLock(), "TryLock must fail while the lock is held with a waiter")
	assert.Equal(t, uint32(1), atomic.LoadUint32(&lock.head), "a failed TryLock must not advance head")
	assert.Equal(t, uint32(2), atomic.LoadUint32(&lock.tail), "a failed TryLock must not issue a ticket")
}

func TestTryLockFailsWithWaiters(t *testing.T) {
	lock := NewLock()
	lock.Lock()

	released := make(chan struct{})
	go func() {
		lock.Lock()
		lock.Unlock()
		close(released)
	}()

	// Whether or not the waiter has taken its ticket yet, TryLock must fail
	// while the lock is held.
	assert.False(t, lock.TryLock())

	lock.Unlock()
	select {
	case <-released:
	case <-time.After(5 * time.Second):
		t.Fatal("queued waiter never acquired the lock")
	}
}

func TestSubAbs(t *testing.T) {
	tests := []struct {
		a, b     uint32
		expected uint32
	}{
		{0, 0, 0},
		{1, 1, 0},
		{5, 3, 2},
		{3, 5, 2},
		{0, ^uint32(0), ^uint32(0)},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, subAbs(tt.a, tt.b))
	}
}

func BenchmarkLockContended(b *testing.B) {
	lock := NewLock()
	counter := 0
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			lock.Lock()
			counter++
			lock.Unlock()
		}
	})
}
