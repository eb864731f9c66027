//go:build linux

package park

import (
	"sync/atomic"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Futex operation codes from <linux/futex.h>. x/sys/unix exports the
// syscall number but not the ops, so they are spelled out here.
const (
	futexWait        = 0
	futexWake        = 1
	futexPrivateFlag = 0x80
)

// futexBroken flips permanently if the kernel rejects futex operations, at
// which point every parker in the process uses the spin fallback instead.
var futexBroken atomic.Bool

// osEvent on Linux is stateless: the futex waits directly on the parker's
// state word.
type osEvent struct{}

func (*osEvent) prepare() {}

func (*osEvent) wait(state *uint32, deadline time.Time) {
	if futexBroken.Load() {
		spinWaitFallback(state, deadline)
		return
	}

	var ts *unix.Timespec
	if !deadline.IsZero() {
		d := time.Until(deadline)
		if d <= 0 {
			return
		}
		t := unix.NsecToTimespec(int64(d))
		ts = &t
	}

	// EAGAIN (state changed first), EINTR, and ETIMEDOUT are all fine: the
	// caller re-checks the state word in its loop.
	_, _, errno := unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(state)),
		uintptr(futexWait|futexPrivateFlag),
		uintptr(stateWaiting),
		uintptr(unsafe.Pointer(ts)),
		0, 0,
	)
	if errno == unix.ENOSYS {
		futexBroken.Store(true)
	}
}

func (*osEvent) wake(state *uint32) {
	if futexBroken.Load() {
		return
	}
	_, _, errno := unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(state)),
		uintptr(futexWake|futexPrivateFlag),
		1,
		0, 0, 0,
	)
	if errno == unix.ENOSYS {
		futexBroken.Store(true)
	}
}
