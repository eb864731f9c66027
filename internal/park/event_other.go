//go:build !linux

package park

import (
	"sync"
	"sync/atomic"
	"time"
)

// osEvent on platforms without a usable futex is a condition-variable pair.
// The state word stays authoritative; the mutex and cond only order the
// block against the wake.
type osEvent struct {
	mu   sync.Mutex
	cond *sync.Cond
}

func (e *osEvent) prepare() {
	if e.cond == nil {
		e.cond = sync.NewCond(&e.mu)
	}
}

func (e *osEvent) wait(state *uint32, deadline time.Time) {
	e.mu.Lock()
	for atomic.LoadUint32(state) == stateWaiting {
		if deadline.IsZero() {
			e.cond.Wait()
			continue
		}
		d := time.Until(deadline)
		if d <= 0 {
			break
		}
		// sync.Cond has no timed wait; a timer broadcast bounds this round.
		t := time.AfterFunc(d, e.cond.Broadcast)
		e.cond.Wait()
		t.Stop()
	}
	e.mu.Unlock()
}

func (e *osEvent) wake(state *uint32) {
	// Taking the mutex orders this wake after the waiter either saw the
	// notified state or entered cond.Wait.
	e.mu.Lock()
	e.mu.Unlock()
	e.cond.Signal()
}
