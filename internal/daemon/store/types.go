// Package store provides the in-memory state store for the arcade daemon.
package store

import (
	"time"

	"github.com/grovetools/arcade/internal/daemon/reconciler"
	"github.com/grovetools/arcade/pkg/arcade"
)

// State is the daemon's published view of the tracked session.
type State struct {
	Phase            reconciler.Phase   `json:"phase"`
	Display          reconciler.Display `json:"display"`
	Session          *arcade.Session    `json:"session,omitempty"`
	Identity         string             `json:"identity,omitempty"`
	Failures         int                `json:"consecutive_failures"`
	LastError        string             `json:"last_error,omitempty"`
	NextPoll         time.Time          `json:"next_poll,omitempty"`
	LastNotification *Notification      `json:"last_notification,omitempty"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// Notification is a reconciler notification stamped for delivery.
type Notification struct {
	ID string `json:"id"`
	reconciler.Notification
	CreatedAt time.Time `json:"created_at"`
}

// Snapshot is the reconciliation summary published after every applied poll.
type Snapshot struct {
	Phase     reconciler.Phase
	Session   *arcade.Session
	Identity  string
	Failures  int
	LastError string
	NextPoll  time.Time
}

// UpdateType defines what kind of data changed.
type UpdateType string

const (
	UpdateSnapshot          UpdateType = "state"
	UpdateDisplay           UpdateType = "display"
	UpdateNotification      UpdateType = "notification"
	UpdateCredentialCleared UpdateType = "credential_cleared"
	UpdateConfigReload      UpdateType = "config_reload"
)

// Update represents a change to the state.
type Update struct {
	Type    UpdateType
	Source  string // "poller", "tick", "activity", "config"
	Payload interface{}
}
