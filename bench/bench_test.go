package bench

import (
	"bytes"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCounts(t *testing.T) {
	tests := []struct {
		input    string
		expected []int
		wantErr  bool
	}{
		{"1", []int{1}, false},
		{"1,2,4", []int{1, 2, 4}, false},
		{"4-8", []int{4, 5, 6, 7, 8}, false},
		{"1, 2-3", []int{1, 2, 3}, false},
		{"8-4", nil, true},
		{"x", nil, true},
		{"", nil, true},
	}

	for _, tt := range tests {
		got, err := ParseCounts(tt.input)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.input)
			continue
		}
		require.NoError(t, err, "input %q", tt.input)
		assert.Equal(t, tt.expected, got, "input %q", tt.input)
	}
}

func TestParseDurationRanges(t *testing.T) {
	got, err := ParseDurationRanges("0s,10ns-1us")
	require.NoError(t, err)
	assert.Equal(t, []DurationRange{
		Fixed(0),
		{Lo: 10 * time.Nanosecond, Hi: time.Microsecond},
	}, got)

	_, err = ParseDurationRanges("1us-10ns")
	assert.Error(t, err, "inverted ranges must be rejected")

	_, err = ParseDurationRanges("banana")
	assert.Error(t, err)
}

func TestDurationRangeDraw(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	fixed := Fixed(time.Microsecond)
	assert.Equal(t, time.Microsecond, fixed.draw(rng))

	spread := DurationRange{Lo: 10, Hi: 100}
	for range 1000 {
		d := spread.draw(rng)
		assert.GreaterOrEqual(t, d, spread.Lo)
		assert.LessOrEqual(t, d, spread.Hi)
	}
}

func TestRunRejectsUnknownLock(t *testing.T) {
	_, err := Run(Config{
		Measure:  []DurationRange{Fixed(time.Millisecond)},
		Threads:  []int{1},
		Locked:   []DurationRange{Fixed(0)},
		Unlocked: []DurationRange{Fixed(0)},
		Locks:    []string{"nosuchlock"},
	})
	assert.Error(t, err)
}

func TestRunSmoke(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping harness smoke test in short mode")
	}

	results, err := Run(Config{
		Measure:  []DurationRange{Fixed(50 * time.Millisecond)},
		Threads:  []int{2},
		Locked:   []DurationRange{Fixed(0)},
		Unlocked: []DurationRange{Fixed(0)},
		Locks:    []string{"adaptive", "sync"},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)

	for _, r := range results {
		assert.Len(t, r.Ops, 2)
		assert.Positive(t, r.Total(), "%s did no work at all", r.Name)
	}

	var buf bytes.Buffer
	require.NoError(t, Report(&buf, results))
	out := buf.String()
	assert.True(t, strings.Contains(out, "adaptive") && strings.Contains(out, "sync"),
		"report should mention both locks:\n%s", out)
	assert.Contains(t, out, "relative")
}
