// Package combiner implements a flat-combining lock. Instead of handing the
// lock from waiter to waiter, a contended caller publishes its critical
// section as a closure; whichever goroutine currently holds the lock drains
// the queue and runs the published closures itself before releasing. The
// data protected by the lock then stays hot in the combiner's cache, and
// each waiter pays one enqueue instead of a sleep/wake round trip.
//
// The whole lock is one machine word: 0 when free, 1 when held with no
// waiters, otherwise the address of the most recently pushed waiter node.
//
// Closures run on the combiner's goroutine, so they must not assume goroutine
// identity (no goroutine-local state, no re-entrant With on the same lock).
package combiner

import (
	"sync/atomic"
	"unsafe"

	"github.com/ahrav/go-adaptive-locks/internal/park"
	"github.com/ahrav/go-adaptive-locks/internal/spinwait"
)

const heldNoWaiters uintptr = 1

// node is a waiter's stack entry. Owned by the waiting goroutine; the
// combiner reads fn and next and fires the event exactly once.
type node struct {
	next  *node
	fn    func()
	event park.Parker
}

// Lock is a flat-combining lock. The zero value is ready to use. A Lock
// must not be copied after first use.
type Lock struct {
	state uintptr
}

// NewLock creates a new combining lock.
func NewLock() *Lock { return new(Lock) }

// With runs f while holding the lock. f may run on this goroutine or, under
// contention, on the goroutine currently combining; With returns once f has
// run either way. f must not call With on the same lock.
func (l *Lock) With(f func()) {
	if atomic.CompareAndSwapUintptr(&l.state, 0, heldNoWaiters) {
		l.combine(f)
		return
	}
	l.withSlow(f)
}

func (l *Lock) withSlow(f func()) {
	var spin spinwait.SpinWait
	n := new(node) // heap-allocated; its address is packed into the word
	n.fn = f
	prepared := false

	state := atomic.LoadUintptr(&l.state)
	for {
		if state == 0 {
			if atomic.CompareAndSwapUintptr(&l.state, 0, heldNoWaiters) {
				l.combine(f)
				return
			}
			state = atomic.LoadUintptr(&l.state)
			continue
		}

		// Held with no queue yet: the holder may be about to finish, so a
		// short spin often beats publishing a node.
		if state == heldNoWaiters && spin.Spin() {
			state = atomic.LoadUintptr(&l.state)
			continue
		}

		if !l.tryPush(n, &prepared, state) {
			state = atomic.LoadUintptr(&l.state)
			continue
		}

		// The combiner runs fn and unparks us when it is done.
		n.event.Park()
		return
	}
}

// tryPush publishes n as the new waiter-stack head for the observed state.
// The node's parker is armed on first use only and stays armed across a lost
// CAS: no combiner can unpark an unpublished node, so re-arming on retry
// would trip the parker's pending-park check.
func (l *Lock) tryPush(n *node, prepared *bool, state uintptr) bool {
	if state == heldNoWaiters {
		n.next = nil
	} else {
		n.next = (*node)(unsafe.Pointer(state))
	}
	if !*prepared {
		n.event.Prepare()
		*prepared = true
	}
	return atomic.CompareAndSwapUintptr(&l.state, state, uintptr(unsafe.Pointer(n)))
}

// combine runs f and then keeps draining until the word can be swapped back
// to zero. last marks the head of the previously drained batch; each pass
// runs only the nodes pushed since.
func (l *Lock) combine(f func()) {
	f()

	var last *node
	state := heldNoWaiters
	for {
		if atomic.CompareAndSwapUintptr(&l.state, state, 0) {
			return
		}
		state = atomic.LoadUintptr(&l.state)

		head := (*node)(unsafe.Pointer(state))
		for cur := head; cur != last; {
			next := cur.next
			cur.fn()
			// After the unpark the node belongs to its owner again; next
			// was read first for exactly that reason.
			cur.event.Unpark()
			cur = next
		}
		last = head
	}
}
