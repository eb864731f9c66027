// Package spinwait provides the bounded spin-then-yield backoff policy shared
// by the lock implementations. A goroutine about to block asks the policy
// whether one more round of busy-waiting is still worthwhile; once the policy
// is exhausted the caller should fall through to its blocking path.
package spinwait

import "runtime"

const (
	// pauseRounds rounds of doubling busy-loops come first, cheap enough to
	// win when the lock churns within a few hundred cycles.
	pauseRounds = 3

	// spinLimit is the total number of rounds before Spin gives up.
	spinLimit = 10
)

// SpinWait tracks how long the calling goroutine has been busy-waiting.
// The zero value is ready to use. A SpinWait must not be shared between
// goroutines.
type SpinWait struct {
	count uint32
}

// Spin performs one round of backoff and reports whether the caller should
// keep spinning. The first rounds are short busy-loops of doubling length,
// the later rounds yield the processor. After spinLimit rounds Spin performs
// no work and returns false: the caller should block instead.
func (s *SpinWait) Spin() bool {
	if s.count >= spinLimit {
		return false
	}
	s.count++
	if s.count <= pauseRounds {
		for range 1 << s.count {
			// Busy loop. Go has no portable pause hint.
		}
	} else {
		runtime.Gosched()
	}
	return true
}

// Reset restarts the policy. Call it whenever the goroutine re-enters its
// acquire loop for a new reason, such as after being woken from a park.
func (s *SpinWait) Reset() { s.count = 0 }
