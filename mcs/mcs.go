// Package mcs implements the Mellor-Crummey Scott queue lock. Each waiter
// spins on a flag inside its own queue node rather than on the lock word, so
// heavy contention stays off the shared cache line and acquisition is FIFO.
//
// Each goroutine supplies its own QNode and must not share it with another
// goroutine or reuse it while a previous acquisition is still outstanding.
// The wait is pure spinning with bounded backoff; there is no OS parking,
// which makes this the closest spin-only relative of the adaptive lock.
//
// Example usage:
//
//	lock := mcs.NewLock()
//	node := &mcs.QNode{}
//
//	lock.Lock(node)
//	// ... critical section ...
//	lock.Unlock(node)
package mcs

import (
	"sync/atomic"

	"github.com/ahrav/go-adaptive-locks/internal/spinwait"
)

// QNode is a per-goroutine queue entry. The zero value is ready to use.
type QNode struct {
	next    atomic.Pointer[QNode]
	waiting uint32
}

// Lock is the MCS lock: a single pointer to the tail of the waiter queue.
type Lock struct {
	tail atomic.Pointer[QNode]
}

// NewLock creates a new MCS lock.
func NewLock() *Lock { return new(Lock) }

// TryLock attempts to acquire the lock without blocking. It returns true if
// the lock was acquired, false otherwise.
func (l *Lock) TryLock(node *QNode) bool {
	node.next.Store(nil)
	return l.tail.CompareAndSwap(nil, node)
}

// Lock acquires the lock, queueing node behind any current waiters.
func (l *Lock) Lock(node *QNode) {
	node.next.Store(nil)
	pred := l.tail.Swap(node)
	if pred == nil {
		return
	}

	// Publish ourselves to the predecessor, then spin on our own flag until
	// it hands the lock over.
	atomic.StoreUint32(&node.waiting, 1)
	pred.next.Store(node)

	var spin spinwait.SpinWait
	for atomic.LoadUint32(&node.waiting) != 0 {
		if !spin.Spin() {
			spin.Reset()
		}
	}
}

// Unlock releases the lock, handing it to the successor if one is queued.
// node must be the same node passed to the matching Lock or TryLock.
func (l *Lock) Unlock(node *QNode) {
	if node.next.Load() == nil {
		// Looks like no successor; if the tail is still us the queue is
		// truly empty and we are done.
		if l.tail.CompareAndSwap(node, nil) {
			return
		}

		// A successor is mid-enqueue: it has swapped the tail but not yet
		// linked itself. Wait for the link to appear.
		var spin spinwait.SpinWait
		for node.next.Load() == nil {
			if !spin.Spin() {
				spin.Reset()
			}
		}
	}

	atomic.StoreUint32(&node.next.Load().waiting, 0)
}

// IsFree reports whether the lock is currently free.
func (l *Lock) IsFree() bool { return l.tail.Load() == nil }
