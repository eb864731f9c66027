package adaptive

import (
	"sync/atomic"
	"unsafe"

	"github.com/ahrav/go-adaptive-locks/internal/park"
)

// The whole lock lives in one uintptr:
//
//	bit 0        LOCKED  - set while a holder owns the lock
//	bit 1        WAKING  - set while one goroutine drains the wait queue
//	bits 2..N    address of the head waitNode, or zero for an empty queue
//
// waitNode contains pointers, so its alignment is at least the word size on
// every supported architecture and the two low bits of its address are
// always clear.
const (
	lockedBit uintptr = 1 << 0
	wakingBit uintptr = 1 << 1

	flagMask  = lockedBit | wakingBit
	queueMask = ^flagMask
)

// waitNode is the per-waiter entry in the intrusive wait stack. It is
// exclusively owned by its blocked goroutine: the owner publishes next once
// at enqueue time, the drainer (serialized by WAKING) fills prev and tail,
// and nobody touches the node after its owner has been unparked.
type waitNode struct {
	// next points toward the tail (the longest waiter). Set once by the
	// enqueuing goroutine before the publishing CAS.
	next atomic.Pointer[waitNode]

	// prev points toward the head. Written only by the WAKING holder while
	// converting the stack to FIFO order.
	prev atomic.Pointer[waitNode]

	// tail caches the queue tail. Valid only on the current head; lets a
	// later drain skip the already-converted prefix.
	tail atomic.Pointer[waitNode]

	event park.Parker
}

// tryEnqueue publishes n as the new stack head for the observed state,
// preserving the flag bits. The node's parker is armed on first use only and
// stays armed across a lost CAS: no wake can target an unpublished node, so
// re-arming on retry would trip the parker's pending-park check. The caller
// clears *prepared after consuming a wake.
func (l *Lock) tryEnqueue(n *waitNode, prepared *bool, state uintptr) bool {
	head := unpackHead(state)
	n.next.Store(head)
	n.prev.Store(nil)
	if head == nil {
		n.tail.Store(n)
	} else {
		n.tail.Store(nil)
	}
	if !*prepared {
		n.event.Prepare()
		*prepared = true
	}
	return atomic.CompareAndSwapUintptr(&l.state, state, pack(n, state&flagMask))
}

func pack(head *waitNode, flags uintptr) uintptr {
	return uintptr(unsafe.Pointer(head)) | flags
}

func unpackHead(state uintptr) *waitNode {
	return (*waitNode)(unsafe.Pointer(state & queueMask))
}

// findTail walks head's next chain until it hits a node that already knows
// the tail, filling prev links along the way so the suffix can be walked in
// FIFO order. The tail is then cached on head so the next drain stops here.
// Must only be called while holding WAKING.
func findTail(head *waitNode) *waitNode {
	cur := head
	t := cur.tail.Load()
	for t == nil {
		next := cur.next.Load()
		next.prev.Store(cur)
		cur = next
		t = cur.tail.Load()
	}
	head.tail.Store(t)
	return t
}
