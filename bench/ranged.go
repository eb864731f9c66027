package bench

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"golang.org/x/exp/constraints"
)

// DurationRange is a half-open spread of busy-work durations. A fixed value
// has Lo == Hi; otherwise each cycle draws uniformly from [Lo, Hi].
type DurationRange struct {
	Lo, Hi time.Duration
}

// Fixed wraps a single duration as a degenerate range.
func Fixed(d time.Duration) DurationRange { return DurationRange{Lo: d, Hi: d} }

func (r DurationRange) draw(rng *rand.Rand) time.Duration {
	if r.Hi <= r.Lo {
		return r.Lo
	}
	return r.Lo + time.Duration(rng.Int64N(int64(r.Hi-r.Lo)+1))
}

func (r DurationRange) String() string {
	if r.Hi <= r.Lo {
		return r.Lo.String()
	}
	return r.Lo.String() + "-" + r.Hi.String()
}

// seq enumerates lo..hi inclusive.
func seq[T constraints.Integer](lo, hi T) []T {
	out := make([]T, 0, hi-lo+1)
	for v := lo; v <= hi; v++ {
		out = append(out, v)
	}
	return out
}

// ParseCounts parses a CSV list of positive integers where an item may be a
// range: "1,2,4-8" yields 1,2,4,5,6,7,8. Ranges are enumerated, one
// benchmark case per value.
func ParseCounts(s string) ([]int, error) {
	var out []int
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		lo, hi, isRange := strings.Cut(item, "-")
		a, err := strconv.Atoi(lo)
		if err != nil {
			return nil, fmt.Errorf("bench: bad count %q: %w", item, err)
		}
		if !isRange {
			out = append(out, a)
			continue
		}
		b, err := strconv.Atoi(hi)
		if err != nil {
			return nil, fmt.Errorf("bench: bad count range %q: %w", item, err)
		}
		if b < a {
			return nil, fmt.Errorf("bench: bad count range %q: %d < %d", item, b, a)
		}
		out = append(out, seq(a, b)...)
	}
	return out, nil
}

// ParseDurationRanges parses a CSV list of durations where an item may be a
// range: "0s,10ns-1us" yields a fixed zero and a randomized spread. Range
// items are drawn per cycle, not enumerated.
func ParseDurationRanges(s string) ([]DurationRange, error) {
	var out []DurationRange
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		lo, hi, isRange := cutDurationRange(item)
		a, err := time.ParseDuration(lo)
		if err != nil {
			return nil, fmt.Errorf("bench: bad duration %q: %w", item, err)
		}
		if !isRange {
			out = append(out, Fixed(a))
			continue
		}
		b, err := time.ParseDuration(hi)
		if err != nil {
			return nil, fmt.Errorf("bench: bad duration range %q: %w", item, err)
		}
		if b < a {
			return nil, fmt.Errorf("bench: bad duration range %q: %v < %v", item, b, a)
		}
		out = append(out, DurationRange{Lo: a, Hi: b})
	}
	return out, nil
}

// cutDurationRange splits "10ns-1us" at the dash that separates the two
// durations. A plain "-" cut would break on negative signs; durations here
// are never negative, so the first dash wins.
func cutDurationRange(item string) (lo, hi string, isRange bool) {
	return strings.Cut(item, "-")
}
