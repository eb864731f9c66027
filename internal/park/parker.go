// Package park provides the blocking primitive the queue-based locks fall
// back to when spinning is not enough. A Parker is a one-shot event with a
// three-state protocol:
//
//	empty --Prepare--> waiting --Unpark--> notified
//
// The waiter calls Prepare, publishes itself wherever the waker will find it,
// and then calls Park (or ParkUntil). The waker calls Unpark exactly once per
// episode. Because the state transition happens before any OS-level blocking,
// an Unpark that races ahead of the matching Park simply makes Park return
// without blocking: no wakeup can be missed.
//
// The OS-level wait is supplied per platform: a private futex on Linux and a
// condition-variable pair elsewhere. If the kernel rejects futex operations
// the process degrades, once, to a spin-and-yield wait with the same
// semantics.
package park

import (
	"sync/atomic"
	"time"

	"github.com/ahrav/go-adaptive-locks/internal/spinwait"
)

const (
	stateEmpty uint32 = iota
	stateWaiting
	stateNotified
)

// Parker is a single-waiter, single-waker event. The zero value is in the
// empty state. A Parker must not be copied after first use and must be
// re-Prepared for every blocking episode.
type Parker struct {
	state uint32
	ev    osEvent
}

// Prepare resets the parker to the waiting state. Only the goroutine that is
// about to park may call it. Calling Prepare while a previous park is still
// pending is a protocol violation.
func (p *Parker) Prepare() {
	if atomic.LoadUint32(&p.state) == stateWaiting {
		panic("park: Prepare while a park is pending")
	}
	p.ev.prepare()
	atomic.StoreUint32(&p.state, stateWaiting)
}

// Park blocks until the parker is notified. It returns immediately if Unpark
// already ran. Spurious OS wakeups are absorbed by re-checking the state.
func (p *Parker) Park() {
	for atomic.LoadUint32(&p.state) == stateWaiting {
		p.ev.wait(&p.state, time.Time{})
	}
}

// ParkUntil blocks like Park but gives up once deadline passes. It reports
// whether the parker was notified. A deadline already in the past returns
// false without any blocking call. After a false return the episode is still
// open: the parker remains waiting and the owner may Park again to wait out
// the eventual Unpark.
func (p *Parker) ParkUntil(deadline time.Time) bool {
	for atomic.LoadUint32(&p.state) == stateWaiting {
		if !time.Now().Before(deadline) {
			return atomic.LoadUint32(&p.state) == stateNotified
		}
		p.ev.wait(&p.state, deadline)
	}
	return true
}

// Unpark notifies the parker. Any goroutine other than the waiter may call
// it, at any point relative to Park. Exactly one Unpark is allowed per
// episode; a duplicate, or an Unpark before Prepare, is a protocol violation.
func (p *Parker) Unpark() {
	switch atomic.SwapUint32(&p.state, stateNotified) {
	case stateWaiting:
		p.ev.wake(&p.state)
	case stateNotified:
		panic("park: duplicate Unpark")
	default:
		panic("park: Unpark without Prepare")
	}
}

// spinWaitFallback implements the wait side of the contract with no OS
// support at all. It burns the SpinWait policy in a loop, so it is only used
// when the platform primitive is unavailable.
func spinWaitFallback(state *uint32, deadline time.Time) {
	var s spinwait.SpinWait
	for atomic.LoadUint32(state) == stateWaiting {
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			return
		}
		if !s.Spin() {
			s.Reset()
		}
	}
}
