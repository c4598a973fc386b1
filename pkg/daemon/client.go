// Package daemon provides a client interface for interacting with the arcade
// daemon (arcaded). It implements a transparent fallback pattern: if the
// daemon is running, use its socket API; if not, fall back to a one-shot
// in-process poll.
package daemon

import (
	"context"

	"github.com/grovetools/arcade/internal/daemon/reconciler"
	"github.com/grovetools/arcade/internal/daemon/server"
	"github.com/grovetools/arcade/internal/daemon/store"
	"github.com/grovetools/arcade/pkg/arcade"
)

// Client defines the interface for interacting with the arcade daemon.
// Both RemoteClient (socket) and LocalClient (direct calls) implement this interface.
type Client interface {
	// State returns the tracked session state.
	State(ctx context.Context) (*store.State, error)

	// Display returns the status-bar rendering of the current state.
	Display(ctx context.Context) (*reconciler.Display, error)

	// Refresh forces an immediate poll. It reports whether a new poll was
	// started rather than coalesced.
	Refresh(ctx context.Context) (bool, error)

	// Activity reports one editing activity event. It reports whether the
	// event triggered the start reminder.
	Activity(ctx context.Context, source string) (bool, error)

	StartSession(ctx context.Context, work string) (*arcade.StartResult, error)
	PauseSession(ctx context.Context) (*arcade.PauseResult, error)
	EndSession(ctx context.Context) error

	// Stats returns the user's session totals.
	Stats(ctx context.Context) (*arcade.Stats, error)

	// ServiceStatus returns the session service health.
	ServiceStatus(ctx context.Context) (*arcade.Status, error)

	// GetConfig returns the configuration the daemon is running with.
	GetConfig(ctx context.Context) (*RunningConfig, error)

	// StreamState subscribes to real-time state updates from the daemon.
	// For LocalClient, this returns an error since streaming is only available via daemon.
	StreamState(ctx context.Context) (<-chan StateUpdate, error)

	// IsRunning returns true if the daemon is available and responding.
	IsRunning() bool

	// Close cleans up any resources used by the client.
	Close() error
}

// StateUpdate represents an update pushed from the daemon to subscribers.
type StateUpdate = server.StreamUpdate

// RunningConfig is the configuration reported by /api/config.
type RunningConfig = server.RunningConfig
