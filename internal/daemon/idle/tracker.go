// Package idle counts user activity while no session is running and decides
// when to remind the user to start one.
package idle

import "sync"

// DefaultThreshold is the number of activity events before a reminder.
const DefaultThreshold = 5

// Tracker is the idle nudge state machine. It is safe for concurrent use
// because activity arrives from several sources.
type Tracker struct {
	mu        sync.Mutex
	threshold int
	enabled   func() bool
	count     int
	nudged    bool
}

// New creates a tracker. enabled is consulted on every event; nil means
// always enabled.
func New(threshold int, enabled func() bool) *Tracker {
	if threshold < 1 {
		threshold = DefaultThreshold
	}
	return &Tracker{threshold: threshold, enabled: enabled}
}

// OnActivity records one activity event and returns true exactly when the
// one-shot reminder should fire.
func (t *Tracker) OnActivity(sessionActive bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if sessionActive || (t.enabled != nil && !t.enabled()) {
		t.count = 0
		t.nudged = false
		return false
	}
	if t.nudged {
		t.count = 0
		return false
	}

	t.count++
	if t.count >= t.threshold {
		t.nudged = true
		return true
	}
	return false
}

// Reset starts a new idle period.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.count = 0
	t.nudged = false
}

// Snapshot returns the event count and whether a reminder already fired.
func (t *Tracker) Snapshot() (count int, nudged bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count, t.nudged
}
