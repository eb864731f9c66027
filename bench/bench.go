// Package bench measures lock throughput the way the lock variants will be
// used: N OS-thread-pinned workers loop acquiring a shared lock, doing some
// busy work inside and outside the critical section, and the harness counts
// completed cycles over a fixed measurement window. Results are reported per
// worker, so besides raw throughput the spread exposes how fairly each
// variant schedules its waiters.
package bench

import (
	"fmt"
	"math/rand/v2"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ahrav/go-adaptive-locks/adaptive"
	"github.com/ahrav/go-adaptive-locks/alock"
	"github.com/ahrav/go-adaptive-locks/combiner"
	"github.com/ahrav/go-adaptive-locks/internal/pad"
	"github.com/ahrav/go-adaptive-locks/mcs"
	"github.com/ahrav/go-adaptive-locks/spin"
	"github.com/ahrav/go-adaptive-locks/ticket"
)

// withFunc runs a critical section under one worker's view of the lock.
type withFunc func(crit func())

// variant wires one lock implementation into the harness. newShared builds
// the lock shared by a benchmark case and returns a constructor for each
// worker's withFunc, so per-worker state (an MCS node, a slot token) has a
// place to live.
type variant struct {
	name      string
	newShared func(threads int) func() withFunc
}

var variants = []variant{
	{"adaptive", func(int) func() withFunc {
		l := adaptive.NewLock()
		return func() withFunc {
			return func(crit func()) { l.Lock(); crit(); l.Unlock() }
		}
	}},
	{"combiner", func(int) func() withFunc {
		l := combiner.NewLock()
		return func() withFunc { return l.With }
	}},
	{"spin", func(int) func() withFunc {
		l := spin.NewLock()
		return func() withFunc {
			return func(crit func()) { l.Lock(); crit(); l.Unlock() }
		}
	}},
	{"ttas", func(int) func() withFunc {
		l := spin.NewTTASLock()
		return func() withFunc {
			return func(crit func()) { l.Lock(); crit(); l.Unlock() }
		}
	}},
	{"ticket", func(int) func() withFunc {
		l := ticket.NewLock()
		return func() withFunc {
			return func(crit func()) { l.Lock(); crit(); l.Unlock() }
		}
	}},
	{"mcs", func(int) func() withFunc {
		l := mcs.NewLock()
		return func() withFunc {
			node := &mcs.QNode{}
			return func(crit func()) { l.Lock(node); crit(); l.Unlock(node) }
		}
	}},
	{"alock", func(threads int) func() withFunc {
		l := alock.NewLock(uint32(threads))
		return func() withFunc {
			return func(crit func()) { slot := l.Lock(); crit(); l.Unlock(slot) }
		}
	}},
	{"sync", func(int) func() withFunc {
		var mu sync.Mutex
		return func() withFunc {
			return func(crit func()) { mu.Lock(); crit(); mu.Unlock() }
		}
	}},
}

// Names lists the lock variants the harness knows, in reporting order.
func Names() []string {
	out := make([]string, len(variants))
	for i, v := range variants {
		out[i] = v.name
	}
	return out
}

func lookup(name string) (variant, error) {
	for _, v := range variants {
		if v.name == name {
			return v, nil
		}
	}
	return variant{}, fmt.Errorf("bench: unknown lock %q (have %v)", name, Names())
}

// Config is one harness invocation. Every combination of Measure, Threads,
// Locked, and Unlocked becomes a benchmark case, run once per lock in Locks.
type Config struct {
	Measure  []DurationRange // measurement window per case
	Threads  []int           // worker count per case
	Locked   []DurationRange // busy work inside the critical section
	Unlocked []DurationRange // busy work between acquisitions
	Locks    []string        // variant names; empty means all
}

// Result is one lock's numbers for one benchmark case. Ops holds completed
// lock/unlock cycles per worker.
type Result struct {
	Name     string
	Threads  int
	Measure  time.Duration
	Locked   DurationRange
	Unlocked DurationRange
	Ops      []float64
}

// Total returns the combined cycle count across workers.
func (r Result) Total() float64 {
	var t float64
	for _, n := range r.Ops {
		t += n
	}
	return t
}

// Throughput returns combined cycles per second.
func (r Result) Throughput() float64 {
	return r.Total() / r.Measure.Seconds()
}

// Run executes every case in cfg and returns one Result per (case, lock)
// pair, grouped case-by-case in the order generated.
func Run(cfg Config) ([]Result, error) {
	if len(cfg.Measure) == 0 || len(cfg.Threads) == 0 ||
		len(cfg.Locked) == 0 || len(cfg.Unlocked) == 0 {
		return nil, fmt.Errorf("bench: measure, threads, locked, and unlocked must each have at least one value")
	}

	names := cfg.Locks
	if len(names) == 0 {
		names = Names()
	}
	locks := make([]variant, 0, len(names))
	for _, name := range names {
		v, err := lookup(name)
		if err != nil {
			return nil, err
		}
		locks = append(locks, v)
	}
	for _, n := range cfg.Threads {
		if n <= 0 {
			return nil, fmt.Errorf("bench: thread count must be positive, got %d", n)
		}
	}

	rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))

	var results []Result
	for _, measure := range cfg.Measure {
		window := measure.draw(rng)
		for _, threads := range cfg.Threads {
			for _, locked := range cfg.Locked {
				for _, unlocked := range cfg.Unlocked {
					for _, v := range locks {
						results = append(results, runCase(v, window, threads, locked, unlocked))
					}
				}
			}
		}
	}
	return results, nil
}

// paddedCount keeps each worker's counter on its own cache line; the whole
// point of several variants is avoiding false sharing, so the harness must
// not reintroduce it.
type paddedCount struct {
	n uint64
	_ pad.CacheLinePad
}

func runCase(v variant, measure time.Duration, threads int, locked, unlocked DurationRange) Result {
	perWorker := v.newShared(threads)
	counts := make([]paddedCount, threads)

	var stop atomic.Bool
	start := make(chan struct{})
	var ready, done sync.WaitGroup

	for i := range threads {
		ready.Add(1)
		done.Add(1)
		go func(id int) {
			defer done.Done()
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()

			with := perWorker()
			rng := rand.New(rand.NewPCG(uint64(id), rand.Uint64()))

			ready.Done()
			<-start

			for !stop.Load() {
				with(func() { busyWork(locked.draw(rng)) })
				busyWork(unlocked.draw(rng))
				counts[id].n++
			}
		}(i)
	}

	ready.Wait()
	close(start)
	timer := time.AfterFunc(measure, func() { stop.Store(true) })
	done.Wait()
	timer.Stop()

	ops := make([]float64, threads)
	for i := range counts {
		ops[i] = float64(counts[i].n)
	}
	return Result{
		Name:     v.name,
		Threads:  threads,
		Measure:  measure,
		Locked:   locked,
		Unlocked: unlocked,
		Ops:      ops,
	}
}

// busyWork spins for roughly d without yielding, emulating real work.
func busyWork(d time.Duration) {
	if d <= 0 {
		return
	}
	end := time.Now().Add(d)
	for time.Now().Before(end) {
	}
}
