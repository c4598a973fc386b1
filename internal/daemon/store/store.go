package store

import (
	"sync"
	"time"

	"github.com/grovetools/arcade/internal/daemon/reconciler"
)

// Store is the in-memory state store for the daemon.
// It is thread-safe and supports pub/sub for real-time updates.
type Store struct {
	mu          sync.RWMutex
	state       State
	subscribers map[chan Update]struct{}
	dropped     uint64
	now         func() time.Time
}

// New creates a new Store in the loading phase.
func New() *Store {
	initial := reconciler.NewState()
	return &Store{
		state: State{
			Phase:   initial.Phase,
			Display: reconciler.Render(initial, time.Now()),
		},
		subscribers: make(map[chan Update]struct{}),
		now:         time.Now,
	}
}

// Get returns a copy of the current state.
func (s *Store) Get() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// ApplyUpdate modifies the state and notifies subscribers.
func (s *Store) ApplyUpdate(u Update) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch u.Type {
	case UpdateSnapshot:
		if snap, ok := u.Payload.(Snapshot); ok {
			s.state.Phase = snap.Phase
			s.state.Session = snap.Session
			s.state.Identity = snap.Identity
			s.state.Failures = snap.Failures
			s.state.LastError = snap.LastError
			s.state.NextPoll = snap.NextPoll
		}
	case UpdateDisplay:
		if d, ok := u.Payload.(reconciler.Display); ok {
			s.state.Display = d
			s.state.Phase = d.Phase
		}
	case UpdateNotification:
		if n, ok := u.Payload.(Notification); ok {
			s.state.LastNotification = &n
		}
	case UpdateCredentialCleared:
		s.state.Identity = ""
		s.state.Session = nil
	}
	s.state.UpdatedAt = s.now()

	s.broadcast(u)
}

// broadcast must be called with s.mu held.
func (s *Store) broadcast(u Update) {
	for ch := range s.subscribers {
		select {
		case ch <- u:
		default:
			// Non-blocking send to prevent slow clients from stalling the daemon
			s.dropped++
		}
	}
}

// Subscribe creates a new subscription channel for state updates.
func (s *Store) Subscribe() chan Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan Update, 100)
	s.subscribers[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (s *Store) Unsubscribe(ch chan Update) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subscribers[ch]; !ok {
		return
	}
	delete(s.subscribers, ch)
	close(ch)
}

// Subscribers returns the number of live subscriptions.
func (s *Store) Subscribers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscribers)
}

// Dropped returns how many updates were skipped for slow subscribers.
func (s *Store) Dropped() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dropped
}

// BroadcastConfigReload tells subscribers that a config file changed.
func (s *Store) BroadcastConfigReload(file string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broadcast(Update{
		Type:    UpdateConfigReload,
		Source:  "config",
		Payload: file,
	})
}
