// Package reconciler turns polled session outcomes into a stable local view.
//
// Reconcile is a pure function: it takes the previous State and one poll
// Outcome and returns the next State together with the side effects the
// caller should perform (notifications, credential clearing, display). The
// engine owns the only State value and threads it through the poll loop.
package reconciler

import (
	"time"

	"github.com/grovetools/arcade/pkg/arcade"
)

// Phase is the coarse status of the tracked session.
type Phase string

const (
	PhaseSetup     Phase = "setup"
	PhaseLoading   Phase = "loading"
	PhaseActive    Phase = "active"
	PhasePaused    Phase = "paused"
	PhaseCompleted Phase = "completed"
	PhaseError     Phase = "error"
)

// State is the reconciliation state carried between polls.
type State struct {
	// Previous is the last successfully fetched snapshot. It survives
	// errors so the last known session can still be shown.
	Previous *arcade.Session `json:"previous,omitempty"`
	Phase    Phase           `json:"phase"`
	Identity string          `json:"identity,omitempty"`

	NotifiedStart    bool `json:"notified_start"`
	NotifiedComplete bool `json:"notified_complete"`
	NotifiedPause    bool `json:"notified_pause"`
	NotifiedResume   bool `json:"notified_resume"`

	ConsecutiveFailures int    `json:"consecutive_failures"`
	LastErrorMessage    string `json:"last_error_message,omitempty"`

	// NextDelay is how long the scheduler should wait before the next poll.
	NextDelay time.Duration `json:"next_delay"`
	// AppliedSeq is the sequence number of the newest outcome applied.
	AppliedSeq uint64 `json:"applied_seq"`
}

// NewState returns the state at process start. NotifiedComplete starts true
// so a session that was already over when first observed is not announced.
func NewState() State {
	return State{
		Phase:            PhaseLoading,
		NotifiedComplete: true,
	}
}

// Active reports whether a session is currently running.
func (s State) Active() bool {
	return s.Phase == PhaseActive
}

// ForceReset clears the failure counter, used when the user forces a refresh.
func ForceReset(s State) State {
	s.ConsecutiveFailures = 0
	return s
}

// Policy holds the timing parameters of the poll loop.
type Policy struct {
	// Interval is the delay between polls while healthy.
	Interval time.Duration
	// ErrorFactor multiplies the delay for each consecutive failure.
	ErrorFactor float64
	// RetryCap bounds the failure backoff.
	RetryCap time.Duration
}

// DefaultPolicy polls every 10s and backs off x2 up to 5 minutes.
func DefaultPolicy() Policy {
	return Policy{
		Interval:    10 * time.Second,
		ErrorFactor: 2,
		RetryCap:    5 * time.Minute,
	}
}

// Backoff returns the delay after the given number of consecutive failures:
// Interval * ErrorFactor^(failures-1), never above RetryCap.
func (p Policy) Backoff(failures int) time.Duration {
	d := p.Interval
	factor := p.ErrorFactor
	if factor < 1 {
		factor = 1
	}
	for i := 1; i < failures; i++ {
		if p.RetryCap > 0 && d >= p.RetryCap {
			break
		}
		d = time.Duration(float64(d) * factor)
	}
	if p.RetryCap > 0 && d > p.RetryCap {
		return p.RetryCap
	}
	return d
}

// OutcomeKind classifies a poll result.
type OutcomeKind int

const (
	// OutcomeNoCredential means no identity is configured; nothing was fetched.
	OutcomeNoCredential OutcomeKind = iota
	// OutcomeFetched carries a session snapshot.
	OutcomeFetched
	// OutcomeFailed carries the fetch error.
	OutcomeFailed
)

// Outcome is the result of one poll cycle.
type Outcome struct {
	// Seq increases with every fetch started. Zero disables the staleness check.
	Seq      uint64
	Kind     OutcomeKind
	Identity string
	Session  *arcade.Session
	Err      error
}

// NoCredential builds an outcome for a missing identity.
func NoCredential(seq uint64) Outcome {
	return Outcome{Seq: seq, Kind: OutcomeNoCredential}
}

// Fetched builds an outcome for a successful fetch.
func Fetched(seq uint64, identity string, s *arcade.Session) Outcome {
	return Outcome{Seq: seq, Kind: OutcomeFetched, Identity: identity, Session: s}
}

// Failed builds an outcome for a failed fetch.
func Failed(seq uint64, identity string, err error) Outcome {
	return Outcome{Seq: seq, Kind: OutcomeFailed, Identity: identity, Err: err}
}
