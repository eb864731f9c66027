// Package ticket implements a strict FIFO spin lock built from two monotonic
// counters. Arriving goroutines take the next ticket; the lock serves
// tickets in issue order, so acquisition is perfectly fair with no queue
// structure at all. Waiters back off proportionally to their distance from
// the currently served ticket, so a goroutine far back in line mostly yields
// or sleeps instead of spinning.
//
// Like the other baselines in this module it never parks in the OS; it
// exists as a fairness and throughput reference for the adaptive lock.
package ticket

import (
	"encoding/binary"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/ahrav/go-adaptive-locks/internal/spinwait"
)

// Lock is a ticket lock: the lock is free exactly when head == tail+1. head
// is the ticket currently being served and tail the last ticket issued. The
// two counters share one 8-byte word so TryLock can claim a ticket and
// verify the lock is free in a single compare-and-swap. The field order is
// the memory layout; do not reorder.
type Lock struct {
	head uint32 // ticket currently served
	tail uint32 // last ticket issued
}

// NewLock creates a new ticket lock.
func NewLock() *Lock { return &Lock{head: 1, tail: 0} }

// packCounters builds the uint64 the Lock struct occupies in memory for the
// given counter values: head at offset 0, tail at offset 4, read in native
// byte order. Keeping the encoding here makes the packed CAS below correct
// on both little- and big-endian targets.
func packCounters(head, tail uint32) uint64 {
	var b [8]byte
	binary.NativeEndian.PutUint32(b[0:4], head)
	binary.NativeEndian.PutUint32(b[4:8], tail)
	return binary.NativeEndian.Uint64(b[:])
}

// TryLock attempts to acquire the lock without blocking. It returns true if
// the lock was acquired, false otherwise. The packed compare-and-swap only
// succeeds against the free state, so it can neither jump the queue nor
// steal from a holder.
func (l *Lock) TryLock() bool {
	me := atomic.LoadUint32(&l.tail)
	return atomic.CompareAndSwapUint64(
		(*uint64)(unsafe.Pointer(l)),
		packCounters(me+1, me),   // free
		packCounters(me+1, me+1), // taken: our ticket is the one served
	)
}

// Lock acquires the lock, waiting until our ticket comes up.
func (l *Lock) Lock() {
	me := atomic.AddUint32(&l.tail, 1) // take a ticket

	if atomic.LoadUint32(&l.head) == me {
		return
	}

	var spin spinwait.SpinWait
	for {
		cur := atomic.LoadUint32(&l.head)
		if cur == me {
			return
		}

		if distance := subAbs(cur, me); distance > 1 {
			// Still behind others: keep off the head counter's cache line
			// for a while. Far back in line, give up the processor outright.
			if distance > 20 {
				time.Sleep(time.Millisecond)
			} else {
				for range distance * 8 {
					// Busy loop proportional to queue position.
				}
			}
			spin.Reset()
			continue
		}

		// Next in line: tight bounded backoff.
		if !spin.Spin() {
			spin.Reset()
		}
	}
}

// Unlock releases the lock, admitting the next ticket. Calling it without
// holding the lock is undefined.
func (l *Lock) Unlock() { atomic.AddUint32(&l.head, 1) }

// isFree reports whether the lock is currently available.
func (l *Lock) isFree() bool {
	return atomic.LoadUint32(&l.head) == atomic.LoadUint32(&l.tail)+1
}

func subAbs(a, b uint32) uint32 {
	if a > b {
		return a - b
	}
	return b - a
}
