package idle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func fire(t *Tracker, n int, active bool) int {
	nudges := 0
	for i := 0; i < n; i++ {
		if t.OnActivity(active) {
			nudges++
		}
	}
	return nudges
}

func TestThreshold(t *testing.T) {
	tr := New(DefaultThreshold, nil)

	assert.Equal(t, 0, fire(tr, 4, false))
	assert.True(t, tr.OnActivity(false), "5th event nudges")
	assert.False(t, tr.OnActivity(false), "6th event is silent")
	assert.Equal(t, 0, fire(tr, 20, false))
}

func TestActiveSessionResetsPeriod(t *testing.T) {
	tr := New(DefaultThreshold, nil)
	assert.Equal(t, 1, fire(tr, 5, false))

	tr.OnActivity(true)
	count, nudged := tr.Snapshot()
	assert.Equal(t, 0, count)
	assert.False(t, nudged)

	assert.Equal(t, 1, fire(tr, 5, false))
}

func TestResetAllowsAnotherNudge(t *testing.T) {
	tr := New(DefaultThreshold, nil)
	assert.Equal(t, 1, fire(tr, 6, false))
	tr.Reset()
	assert.Equal(t, 1, fire(tr, 5, false))
}

func TestEventsWhileActiveNeverNudge(t *testing.T) {
	tr := New(DefaultThreshold, nil)
	assert.Equal(t, 0, fire(tr, 50, true))
}

func TestDisabled(t *testing.T) {
	enabled := false
	tr := New(3, func() bool { return enabled })

	assert.Equal(t, 0, fire(tr, 10, false))
	enabled = true
	assert.Equal(t, 1, fire(tr, 3, false))
}

func TestInvalidThresholdUsesDefault(t *testing.T) {
	tr := New(0, nil)
	assert.Equal(t, 0, fire(tr, 4, false))
	assert.True(t, tr.OnActivity(false))
}
