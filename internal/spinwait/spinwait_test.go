package spinwait

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSpinIsBounded(t *testing.T) {
	var s SpinWait

	rounds := 0
	for s.Spin() {
		rounds++
		assert.LessOrEqual(t, rounds, spinLimit, "Spin kept going past its limit")
	}

	assert.Equal(t, spinLimit, rounds, "Expected exactly %d rounds before giving up", spinLimit)
	assert.False(t, s.Spin(), "An exhausted SpinWait must keep returning false")
}

func TestResetRestartsPolicy(t *testing.T) {
	var s SpinWait

	for s.Spin() {
	}
	s.Reset()

	assert.True(t, s.Spin(), "Reset should make spinning worthwhile again")
}
