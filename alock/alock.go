// Package alock implements an array-based queue lock for a fixed number of
// goroutines. Slots are handed out round-robin; each waiter spins on its own
// cache-line-padded flag, so waiting goroutines never invalidate each
// other's lines, and service order is FIFO by slot.
//
// The capacity passed to NewLock bounds how many goroutines may contend at
// once. More simultaneous contenders than slots wrap around and share flags,
// which breaks the fairness guarantee; size the lock for the worst case.
//
// Example usage:
//
//	lock := alock.NewLock(8) // up to 8 concurrent contenders
//
//	slot := lock.Lock()
//	// ... critical section ...
//	lock.Unlock(slot)
package alock

import (
	"sync/atomic"

	"github.com/ahrav/go-adaptive-locks/internal/pad"
	"github.com/ahrav/go-adaptive-locks/internal/spinwait"
)

// slot is one waiter's flag, alone on its cache line.
type slot struct {
	flag uint32
	_    pad.CacheLinePad
}

// Lock is an array-based queue lock.
type Lock struct {
	slots []slot
	size  uint32
	tail  uint32
}

// NewLock creates an array lock with capacity for n concurrent contenders.
// The capacity is rounded up to a power of two so the slot counter can wrap
// without skewing the ring.
func NewLock(n uint32) *Lock {
	size := uint32(1)
	for size < n {
		size <<= 1
	}
	l := &Lock{
		slots: make([]slot, size),
		size:  size,
	}
	l.slots[0].flag = 1 // first arrival may enter immediately
	return l
}

// Lock acquires the lock and returns the slot token that must be passed to
// the matching Unlock.
func (l *Lock) Lock() uint32 {
	mySlot := (atomic.AddUint32(&l.tail, 1) - 1) % l.size

	var spin spinwait.SpinWait
	for atomic.LoadUint32(&l.slots[mySlot].flag) == 0 {
		if !spin.Spin() {
			spin.Reset()
		}
	}
	return mySlot
}

// TryLock attempts to acquire the lock without blocking. On success it
// returns the slot token and true. It only succeeds when the next slot is
// already enabled, i.e. the lock is free and no waiter is queued ahead.
func (l *Lock) TryLock() (uint32, bool) {
	t := atomic.LoadUint32(&l.tail)
	mySlot := t % l.size
	if atomic.LoadUint32(&l.slots[mySlot].flag) == 0 {
		return 0, false
	}
	// The flag was up before we claimed the slot, and only the claimant
	// ever lowers it, so winning the tail is winning the lock.
	if !atomic.CompareAndSwapUint32(&l.tail, t, t+1) {
		return 0, false
	}
	return mySlot, true
}

// Unlock releases the lock, enabling the next slot in the ring. slot must be
// the token returned by the matching Lock or TryLock.
func (l *Lock) Unlock(slot uint32) {
	atomic.StoreUint32(&l.slots[slot].flag, 0)
	atomic.StoreUint32(&l.slots[(slot+1)%l.size].flag, 1)
}
