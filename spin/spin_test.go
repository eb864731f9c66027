package spin

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// locker is what both variants in this package and the tests agree on.
type locker interface {
	Lock()
	TryLock() bool
	Unlock()
}

func TestConcurrentAccess(t *testing.T) {
	tests := []struct {
		name string
		lock locker
	}{
		{"tas", NewLock()},
		{"ttas", NewTTASLock()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			const numGoroutines = 8
			const iterations = 20000
			counter := 0
			var wg sync.WaitGroup

			wg.Add(numGoroutines)
			for range numGoroutines {
				go func() {
					defer wg.Done()
					for range iterations {
						tt.lock.Lock()
						counter++
						tt.lock.Unlock()
					}
				}()
			}
			wg.Wait()

			expected := numGoroutines * iterations
			assert.Equal(t, expected, counter, "Expected counter to be %d, got %d", expected, counter)
		})
	}
}

func TestTryLock(t *testing.T) {
	tests := []struct {
		name string
		lock locker
	}{
		{"tas", NewLock()},
		{"ttas", NewTTASLock()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.lock.TryLock(), "TryLock on a fresh lock should succeed")
			assert.False(t, tt.lock.TryLock(), "TryLock on a held lock should fail")
			tt.lock.Unlock()
			assert.True(t, tt.lock.TryLock(), "TryLock after Unlock should succeed")
			tt.lock.Unlock()
		})
	}
}

func BenchmarkLockContended(b *testing.B) {
	lock := NewLock()
	counter := 0
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			lock.Lock()
			counter++
			lock.Unlock()
		}
	})
}

func BenchmarkTTASLockContended(b *testing.B) {
	lock := NewTTASLock()
	counter := 0
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			lock.Lock()
			counter++
			lock.Unlock()
		}
	})
}
