package reconciler

import (
	"time"

	"github.com/grovetools/arcade/errors"
	"github.com/grovetools/arcade/pkg/arcade"
)

// Effects are the side effects the caller must carry out after a transition.
type Effects struct {
	Notifications   []Notification
	ClearCredential bool
	Display         Display
	// From and To are the phases before and after the transition.
	From, To Phase
	// Stale is set when the outcome was older than the applied state and
	// was ignored.
	Stale bool
}

// PhaseChanged reports whether the transition moved to a different phase.
func (e Effects) PhaseChanged() bool {
	return e.From != e.To
}

// Reconcile applies one poll outcome to s.
func Reconcile(s State, out Outcome, now time.Time, p Policy) (State, Effects) {
	if out.Seq != 0 && out.Seq <= s.AppliedSeq {
		return s, Effects{Stale: true, From: s.Phase, To: s.Phase, Display: Render(s, now)}
	}

	from := s.Phase
	var fx Effects
	if out.Seq != 0 {
		s.AppliedSeq = out.Seq
	}

	switch out.Kind {
	case OutcomeNoCredential:
		s = toSetup(s, p)

	case OutcomeFailed:
		switch errors.GetCode(out.Err) {
		case errors.ErrCodeInvalidCredential:
			s = toSetup(s, p)
			fx.Notifications = append(fx.Notifications, invalidCredentialNotification())
			fx.ClearCredential = true
		case errors.ErrCodeInvalidInput:
			// Partial credential: nothing to fetch with.
			s = toSetup(s, p)
		default:
			s.Identity = identity(s, out)
			s.Phase = PhaseError
			s.ConsecutiveFailures++
			s.NextDelay = p.Backoff(s.ConsecutiveFailures)
			msg := errorMessage(out.Err)
			if msg != s.LastErrorMessage {
				fx.Notifications = append(fx.Notifications, Notification{
					Kind:    NotifyError,
					Level:   LevelError,
					Message: msg,
					Action:  &Action{Label: "Retry", Command: "arcade refresh"},
				})
				s.LastErrorMessage = msg
			}
		}

	case OutcomeFetched:
		s.Identity = identity(s, out)
		s.ConsecutiveFailures = 0
		s.LastErrorMessage = ""
		s.NextDelay = p.Interval
		var n *Notification
		s, n = classify(s, out.Session)
		if n != nil {
			fx.Notifications = append(fx.Notifications, *n)
		}
		s.Previous = out.Session
	}

	fx.From, fx.To = from, s.Phase
	fx.Display = Render(s, now)
	return s, fx
}

func toSetup(s State, p Policy) State {
	s.Phase = PhaseSetup
	s.Previous = nil
	s.Identity = ""
	s.ConsecutiveFailures = 0
	s.LastErrorMessage = ""
	s.NextDelay = p.Interval
	return s
}

func identity(s State, out Outcome) string {
	if out.Identity != "" {
		return out.Identity
	}
	return s.Identity
}

// classify sets the phase for a fetched session and flips the edge-triggered
// notification flags.
func classify(s State, sess *arcade.Session) (State, *Notification) {
	var n *Notification
	switch {
	case sess.Completed:
		s.Phase = PhaseCompleted
		if !s.NotifiedComplete {
			c := completeNotification()
			n = &c
			s.NotifiedComplete = true
		}
		s.NotifiedStart = false
		s.NotifiedPause = false
		s.NotifiedResume = false

	case sess.Paused:
		s.Phase = PhasePaused
		if !s.NotifiedPause {
			ps := pauseNotification()
			n = &ps
			s.NotifiedPause = true
		}
		s.NotifiedStart = false
		s.NotifiedComplete = false
		s.NotifiedResume = false

	default:
		s.Phase = PhaseActive
		if !s.NotifiedPause && !s.NotifiedStart {
			st := startNotification(sess.Goal)
			n = &st
			s.NotifiedStart = true
			s.NotifiedResume = true
		} else if s.NotifiedPause && !s.NotifiedResume {
			r := resumeNotification()
			n = &r
			s.NotifiedResume = true
			s.NotifiedStart = true
		}
		s.NotifiedComplete = false
		s.NotifiedPause = false
	}
	return s, n
}
