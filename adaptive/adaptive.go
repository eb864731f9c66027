// Package adaptive implements a word-sized adaptive mutex: an exclusive lock
// whose entire state, including its wait queue, is packed into a single
// machine word. Uncontended acquire and release are one atomic operation
// each. Under contention a goroutine spins briefly and then parks on an OS
// primitive, so the lock stays cheap whether the critical section is tens of
// nanoseconds or milliseconds.
//
// Waiters link themselves into an intrusive LIFO stack whose head address
// shares the state word with the LOCKED and WAKING flags. Release wakes the
// longest-waiting goroutine, converting the stack to FIFO order lazily and
// at most once per node. Wakeup does not transfer ownership: the woken
// goroutine re-races for the lock, and a goroutine arriving at the fast path
// may barge ahead of queued waiters. That trade puts throughput ahead of
// strict fairness; among goroutines that do queue, wake order is FIFO.
//
// Example usage:
//
//	var mu adaptive.Lock
//
//	mu.Lock()
//	// ... critical section ...
//	mu.Unlock()
//
//	if mu.TryLockFor(time.Millisecond) {
//	    // ... critical section ...
//	    mu.Unlock()
//	}
package adaptive

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/ahrav/go-adaptive-locks/internal/spinwait"
)

// Lock is a word-sized adaptive mutex. The zero value is an unlocked Lock.
// A Lock must not be copied after first use.
type Lock struct {
	state uintptr
}

var _ sync.Locker = (*Lock)(nil)

// NewLock creates a new adaptive lock.
func NewLock() *Lock { return new(Lock) }

// TryLock attempts to acquire the lock without blocking. It returns true if
// the lock was acquired, false otherwise. It never spins and never blocks.
func (l *Lock) TryLock() bool {
	for {
		state := atomic.LoadUintptr(&l.state)
		if state&lockedBit != 0 {
			return false
		}
		if atomic.CompareAndSwapUintptr(&l.state, state, state|lockedBit) {
			return true
		}
	}
}

// Lock acquires the lock, blocking until it is available.
func (l *Lock) Lock() {
	if atomic.CompareAndSwapUintptr(&l.state, 0, lockedBit) {
		return
	}
	l.lockSlow(time.Time{})
}

// TryLockFor acquires the lock like Lock but gives up roughly d from now.
// It reports whether the lock was acquired. See TryLockUntil for the exact
// timeout semantics.
func (l *Lock) TryLockFor(d time.Duration) bool {
	return l.TryLockUntil(time.Now().Add(d))
}

// TryLockUntil acquires the lock like Lock but gives up once deadline has
// passed, reporting whether the lock was acquired. A deadline already in the
// past degrades to TryLock: no spinning and no blocking call.
//
// A waiter that times out while queued is not unlinked: it stays on the
// queue until a release drains it, then declines ownership and returns
// false. The deadline therefore bounds when the acquire stops competing,
// not when the call returns; with no intervening Unlock the call waits for
// one. Splicing a node out of the middle of the queue without the drain
// serialization would race with a concurrent conversion walk.
func (l *Lock) TryLockUntil(deadline time.Time) bool {
	if atomic.CompareAndSwapUintptr(&l.state, 0, lockedBit) {
		return true
	}
	return l.lockSlow(deadline)
}

// lockSlow is the contended path. A zero deadline means wait forever.
// Returns whether the lock was acquired.
func (l *Lock) lockSlow(deadline time.Time) bool {
	timed := !deadline.IsZero()
	var spin spinwait.SpinWait

	// The node is heap-allocated: its address gets packed into the state
	// word as a plain integer, invisible to the garbage collector and to
	// stack growth. The node stays reachable through this frame until this
	// goroutine has been dequeued and woken.
	n := new(waitNode)
	prepared := false

	state := atomic.LoadUintptr(&l.state)
	for {
		// The lock is free: race for it. This is also how a woken waiter
		// and a barging newcomer compete.
		if state&lockedBit == 0 {
			if atomic.CompareAndSwapUintptr(&l.state, state, state|lockedBit) {
				return true
			}
			state = atomic.LoadUintptr(&l.state)
			continue
		}

		if timed && !time.Now().Before(deadline) {
			return false
		}

		// Spin only while nobody is queued yet. Spinning behind an existing
		// waiter would just starve it.
		if state&queueMask == 0 && spin.Spin() {
			state = atomic.LoadUintptr(&l.state)
			continue
		}

		// Push ourselves onto the stack, preserving the flag bits.
		if !l.tryEnqueue(n, &prepared, state) {
			state = atomic.LoadUintptr(&l.state)
			continue
		}

		if timed {
			if !n.event.ParkUntil(deadline) {
				// Timed out while still queued. Wait out our dequeue wake,
				// hand the wake on so the queue keeps draining, and give up.
				n.event.Park()
				l.wake()
				return false
			}
		} else {
			n.event.Park()
		}

		// Dequeued and woken: the node is exclusively ours again and may be
		// reused, and re-armed, for another round.
		prepared = false
		spin.Reset()
		state = atomic.LoadUintptr(&l.state)
	}
}

// Unlock releases the lock. It panics if the lock is not held. It must be
// called by the current holder; releasing on another goroutine's behalf is
// undefined.
func (l *Lock) Unlock() {
	state := atomic.AndUintptr(&l.state, ^lockedBit)
	if state&lockedBit == 0 {
		panic("adaptive: Unlock of unlocked Lock")
	}
	if state&queueMask != 0 && state&wakingBit == 0 {
		l.wake()
	}
}

// wake dequeues and unparks the longest waiter, if any. Any goroutine may
// call it after observing the lock unlocked with a non-empty queue; the
// WAKING bit makes sure only one of them does the queue surgery.
func (l *Lock) wake() {
	// Claim WAKING. Give up if the queue emptied, someone else claimed it,
	// or the lock was re-acquired (the new holder's Unlock will drain).
	state := atomic.LoadUintptr(&l.state)
	for {
		if state&queueMask == 0 || state&flagMask != 0 {
			return
		}
		if atomic.CompareAndSwapUintptr(&l.state, state, state|wakingBit) {
			state |= wakingBit
			break
		}
		state = atomic.LoadUintptr(&l.state)
	}

	for {
		// A fast-path racer got the lock while we were draining. Drop
		// WAKING and make its release responsible for the queue; waking a
		// goroutine now would only have it lose the race and re-park.
		if state&lockedBit != 0 {
			if atomic.CompareAndSwapUintptr(&l.state, state, state&^wakingBit) {
				return
			}
			state = atomic.LoadUintptr(&l.state)
			continue
		}

		head := unpackHead(state)
		t := findTail(head)

		if prev := t.prev.Load(); prev != nil {
			// More waiters remain: shrink the cached tail, then release
			// WAKING before the unpark so the woken goroutine can drain on
			// its own next release.
			head.tail.Store(prev)
			atomic.AndUintptr(&l.state, ^wakingBit)
			t.event.Unpark()
			return
		}

		// t is the only waiter. Zero the queue and WAKING together; a
		// concurrent enqueue beats the CAS, in which case the conversion
		// restarts from the refreshed state.
		if atomic.CompareAndSwapUintptr(&l.state, state, state&flagMask&^wakingBit) {
			t.event.Unpark()
			return
		}
		state = atomic.LoadUintptr(&l.state)
	}
}
