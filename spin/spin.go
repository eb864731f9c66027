// Package spin provides the simplest possible exclusive locks: a
// test-and-set lock with bounded backoff, and a test-and-test-and-set
// variant that reads before attempting the swap so waiters spin on their
// local cache line instead of hammering the bus.
//
// Both are reference baselines for the adaptive lock: they never park in the
// OS, so they burn CPU whenever the critical section outlasts the backoff
// policy. Prefer them only for very short, very low-contention sections.
package spin

import (
	"sync/atomic"

	"github.com/ahrav/go-adaptive-locks/internal/spinwait"
)

// Lock is a test-and-set spin lock. The zero value is an unlocked Lock.
type Lock struct {
	flag uint32
}

// NewLock creates a new test-and-set lock.
func NewLock() *Lock { return new(Lock) }

// TryLock attempts to acquire the lock without blocking.
func (l *Lock) TryLock() bool {
	return atomic.SwapUint32(&l.flag, 1) == 0
}

// Lock acquires the lock, spinning with backoff until it is available.
func (l *Lock) Lock() {
	var spin spinwait.SpinWait
	for atomic.SwapUint32(&l.flag, 1) != 0 {
		if !spin.Spin() {
			// No blocking path to fall into; start the backoff over.
			spin.Reset()
		}
	}
}

// Unlock releases the lock. Calling it without holding the lock is undefined.
func (l *Lock) Unlock() {
	atomic.StoreUint32(&l.flag, 0)
}

// TTASLock is a test-and-test-and-set spin lock: it watches the flag with
// plain loads and only attempts the swap once the lock looks free, which
// keeps waiting cores out of each other's cache lines.
// The zero value is an unlocked TTASLock.
type TTASLock struct {
	flag uint32
}

// NewTTASLock creates a new test-and-test-and-set lock.
func NewTTASLock() *TTASLock { return new(TTASLock) }

// TryLock attempts to acquire the lock without blocking.
func (l *TTASLock) TryLock() bool {
	return atomic.LoadUint32(&l.flag) == 0 && atomic.SwapUint32(&l.flag, 1) == 0
}

// Lock acquires the lock.
func (l *TTASLock) Lock() {
	var spin spinwait.SpinWait
	for {
		if atomic.LoadUint32(&l.flag) == 0 && atomic.SwapUint32(&l.flag, 1) == 0 {
			return
		}
		if !spin.Spin() {
			spin.Reset()
		}
	}
}

// Unlock releases the lock. Calling it without holding the lock is undefined.
func (l *TTASLock) Unlock() {
	atomic.StoreUint32(&l.flag, 0)
}
