package reconciler

import (
	"fmt"
	"testing"
	"time"

	"github.com/grovetools/arcade/errors"
	"github.com/grovetools/arcade/pkg/arcade"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func activeSession(goal string) *arcade.Session {
	return &arcade.Session{
		ID:        "rec1",
		CreatedAt: t0,
		Duration:  60 * time.Minute,
		Remaining: 45 * time.Minute,
		EndTime:   t0.Add(45 * time.Minute),
		Goal:      goal,
		Work:      "shipping",
	}
}

func pausedSession() *arcade.Session {
	s := activeSession("A")
	s.Paused = true
	return s
}

func completedSession() *arcade.Session {
	s := activeSession("A")
	s.Completed = true
	return s
}

// runner feeds outcomes with increasing sequence numbers and collects
// notification kinds.
type runner struct {
	state State
	seq   uint64
	kinds []NotificationKind
	fx    Effects
}

func newRunner() *runner {
	return &runner{state: NewState()}
}

func (r *runner) apply(out Outcome) *runner {
	r.seq++
	out.Seq = r.seq
	r.state, r.fx = Reconcile(r.state, out, t0, DefaultPolicy())
	for _, n := range r.fx.Notifications {
		r.kinds = append(r.kinds, n.Kind)
	}
	return r
}

func (r *runner) fetched(s *arcade.Session) *runner {
	return r.apply(Fetched(0, "U1", s))
}

func (r *runner) failed(err error) *runner {
	return r.apply(Failed(0, "U1", err))
}

func transportErr(msg string) error {
	return errors.Transport("fetch session", fmt.Errorf("%s", msg))
}

func TestRenderIsIdempotent(t *testing.T) {
	r := newRunner().fetched(activeSession("A"))
	now := t0.Add(90 * time.Second)

	assert.Equal(t, Render(r.state, now), Render(r.state, now))
	assert.Equal(t, "43:30", Render(r.state, now).Text)
}

func TestRepeatedActiveSnapshotNotifiesOnce(t *testing.T) {
	r := newRunner()
	for i := 0; i < 5; i++ {
		r.fetched(activeSession("A"))
	}
	assert.Equal(t, []NotificationKind{NotifyStart}, r.kinds)
	assert.Equal(t, PhaseActive, r.state.Phase)
}

func TestPauseResumePairing(t *testing.T) {
	r := newRunner().
		fetched(activeSession("A")).
		fetched(pausedSession()).
		fetched(pausedSession()).
		fetched(activeSession("A")).
		fetched(activeSession("A"))

	assert.Equal(t, []NotificationKind{NotifyStart, NotifyPause, NotifyResume}, r.kinds)
}

func TestCompletionNotifiedOncePerSession(t *testing.T) {
	r := newRunner().
		fetched(activeSession("A")).
		fetched(completedSession()).
		fetched(completedSession()).
		fetched(activeSession("B"))

	assert.Equal(t, []NotificationKind{NotifyStart, NotifyComplete, NotifyStart}, r.kinds)
}

func TestAlreadyCompletedAtStartupIsSilent(t *testing.T) {
	r := newRunner().fetched(completedSession())
	assert.Empty(t, r.kinds)
	assert.Equal(t, PhaseCompleted, r.state.Phase)
	assert.Equal(t, "No Session", r.fx.Display.Text)
}

func TestStartMessageDependsOnGoal(t *testing.T) {
	tests := []struct {
		goal string
		want string
	}{
		{"No Goal", "⌨️ Your session has started! Don't forget to set your goal!"},
		{"", "⌨️ Your session has started! Don't forget to set your goal!"},
		{"Compiler", "⌨️ Your session has started! Time to get to work on Compiler"},
	}
	for _, tt := range tests {
		t.Run(tt.goal, func(t *testing.T) {
			_, fx := Reconcile(NewState(), Fetched(1, "U1", activeSession(tt.goal)), t0, DefaultPolicy())
			require.Len(t, fx.Notifications, 1)
			assert.Equal(t, tt.want, fx.Notifications[0].Message)
		})
	}
}

func TestBackoffMonotonicAndCapped(t *testing.T) {
	r := newRunner()
	var delays []time.Duration
	for i := 0; i < 8; i++ {
		r.failed(transportErr("connection refused"))
		delays = append(delays, r.state.NextDelay)
	}

	want := []time.Duration{
		10 * time.Second, 20 * time.Second, 40 * time.Second, 80 * time.Second,
		160 * time.Second, 300 * time.Second, 300 * time.Second, 300 * time.Second,
	}
	assert.Equal(t, want, delays)
	for i := 1; i < len(delays); i++ {
		assert.GreaterOrEqual(t, delays[i], delays[i-1])
		assert.LessOrEqual(t, delays[i], 5*time.Minute)
	}
}

func TestPolicyBackoffEdgeCases(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, 10*time.Second, p.Backoff(0))
	assert.Equal(t, 300*time.Second, p.Backoff(1000))

	p.ErrorFactor = 0.5
	assert.Equal(t, 10*time.Second, p.Backoff(4))
}

func TestStickyErrorDedup(t *testing.T) {
	r := newRunner().
		failed(transportErr("connection refused")).
		failed(transportErr("connection refused"))
	assert.Equal(t, []NotificationKind{NotifyError}, r.kinds)
	assert.Equal(t, 2, r.state.ConsecutiveFailures)

	r.failed(transportErr("timeout"))
	assert.Equal(t, []NotificationKind{NotifyError, NotifyError}, r.kinds)
	assert.Contains(t, r.fx.Display.Tooltip, "3 failed")
}

func TestProtocolErrorRendersDistinctMessage(t *testing.T) {
	r := newRunner().
		failed(transportErr("boom")).
		failed(errors.Protocol("fetch session", fmt.Errorf("boom")))

	require.Len(t, r.kinds, 2)
	assert.Contains(t, r.state.LastErrorMessage, "unexpected response")
}

func TestErrorRetainsPreviousSnapshot(t *testing.T) {
	sess := activeSession("A")
	r := newRunner().fetched(sess).failed(transportErr("down"))

	assert.Equal(t, PhaseError, r.state.Phase)
	assert.Same(t, sess, r.state.Previous)
	assert.Same(t, sess, r.fx.Display.Session)
	assert.True(t, r.fx.Display.Warning)
	assert.Equal(t, "arcade refresh", r.fx.Display.Command)
}

func TestSuccessResetsFailures(t *testing.T) {
	r := newRunner().
		failed(transportErr("down")).
		failed(transportErr("down")).
		fetched(activeSession("A"))

	assert.Equal(t, 0, r.state.ConsecutiveFailures)
	assert.Empty(t, r.state.LastErrorMessage)
	assert.Equal(t, 10*time.Second, r.state.NextDelay)

	r.failed(transportErr("down"))
	assert.Equal(t, []NotificationKind{NotifyError, NotifyStart, NotifyError}, r.kinds)
}

func TestInvalidCredentialFromAnyPhase(t *testing.T) {
	setups := map[string]func(*runner){
		"loading":   func(*runner) {},
		"active":    func(r *runner) { r.fetched(activeSession("A")) },
		"paused":    func(r *runner) { r.fetched(pausedSession()) },
		"completed": func(r *runner) { r.fetched(completedSession()) },
		"error":     func(r *runner) { r.failed(transportErr("down")) },
		"setup":     func(r *runner) { r.apply(NoCredential(0)) },
	}
	for name, setup := range setups {
		t.Run(name, func(t *testing.T) {
			r := newRunner()
			setup(r)
			r.kinds = nil
			r.failed(errors.InvalidCredential("User not found"))

			assert.Equal(t, PhaseSetup, r.state.Phase)
			assert.True(t, r.fx.ClearCredential)
			assert.Equal(t, []NotificationKind{NotifyInvalidCredential}, r.kinds)
			assert.Nil(t, r.state.Previous)
			assert.Equal(t, "Setup Arcade", r.fx.Display.Text)
		})
	}
}

func TestNoCredentialShowsSetup(t *testing.T) {
	r := newRunner().apply(NoCredential(0))
	assert.Equal(t, PhaseSetup, r.state.Phase)
	assert.False(t, r.fx.ClearCredential)
	assert.Empty(t, r.kinds)
	assert.Equal(t, "arcade init", r.fx.Display.Command)
}

func TestStaleOutcomeIgnored(t *testing.T) {
	s, _ := Reconcile(NewState(), Fetched(5, "U1", activeSession("A")), t0, DefaultPolicy())
	next, fx := Reconcile(s, Failed(3, "U1", transportErr("late")), t0, DefaultPolicy())

	assert.True(t, fx.Stale)
	assert.Empty(t, fx.Notifications)
	assert.Equal(t, s, next)
}

func TestForceResetClearsFailureCount(t *testing.T) {
	r := newRunner().failed(transportErr("down")).failed(transportErr("down"))
	s := ForceReset(r.state)
	assert.Equal(t, 0, s.ConsecutiveFailures)

	s, _ = Reconcile(s, Failed(10, "U1", transportErr("down")), t0, DefaultPolicy())
	assert.Equal(t, 10*time.Second, s.NextDelay)
}

func TestPhaseChanged(t *testing.T) {
	r := newRunner().fetched(activeSession("A"))
	assert.True(t, r.fx.PhaseChanged())
	r.fetched(activeSession("A"))
	assert.False(t, r.fx.PhaseChanged())
}
