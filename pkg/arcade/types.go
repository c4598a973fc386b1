// Package arcade is the client for the hack hour session service.
package arcade

import (
	"strings"
	"time"
)

// Credential identifies the user to the session service. The tracker only
// ever checks it for emptiness; the service decides whether it is valid.
type Credential struct {
	ID     string `yaml:"id" json:"id"`
	APIKey string `yaml:"api_key" json:"-"`
}

// IsEmpty reports whether no identity has been configured at all.
func (c Credential) IsEmpty() bool {
	return strings.TrimSpace(c.ID) == "" && strings.TrimSpace(c.APIKey) == ""
}

// Session is one polled, immutable snapshot of the remote session. A new
// poll replaces it wholesale.
type Session struct {
	ID        string        `json:"id"`
	CreatedAt time.Time     `json:"created_at"`
	Duration  time.Duration `json:"duration"`
	Elapsed   time.Duration `json:"elapsed"`
	Remaining time.Duration `json:"remaining"`
	EndTime   time.Time     `json:"end_time"`
	Paused    bool          `json:"paused"`
	Completed bool          `json:"completed"`
	Work      string        `json:"work"`
	Goal      string        `json:"goal"`
}

// RemainingAt returns the time left until EndTime, as seen at now.
func (s *Session) RemainingAt(now time.Time) time.Duration {
	return s.EndTime.Sub(now)
}

// Status is the service health payload.
type Status struct {
	ActiveSessions    int  `json:"activeSessions"`
	AirtableConnected bool `json:"airtableConnected"`
	SlackConnected    bool `json:"slackConnected"`
}

// Healthy reports whether both backing integrations are up.
func (s *Status) Healthy() bool {
	return s != nil && s.AirtableConnected && s.SlackConnected
}

// Stats summarizes a user's completed sessions.
type Stats struct {
	Sessions int           `json:"sessions"`
	Total    time.Duration `json:"total"`
}

// StartResult is returned by a successful start.
type StartResult struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// PauseResult is returned by a successful pause toggle.
type PauseResult struct {
	Paused bool `json:"paused"`
}

// wire formats

type envelope struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

type rawSession struct {
	ID        string  `json:"id"`
	CreatedAt string  `json:"createdAt"`
	Time      float64 `json:"time"`
	Elapsed   float64 `json:"elapsed"`
	Remaining float64 `json:"remaining"`
	EndTime   string  `json:"endTime"`
	Paused    bool    `json:"paused"`
	Completed bool    `json:"completed"`
	Work      string  `json:"work"`
	Goal      string  `json:"goal"`
}

type rawStats struct {
	Sessions int     `json:"sessions"`
	Total    float64 `json:"total"`
}

type rawStart struct {
	ID        string `json:"id"`
	CreatedAt string `json:"createdAt"`
}

type rawPause struct {
	Paused bool `json:"paused"`
}

// minutes converts the service's minute counts.
func minutes(v float64) time.Duration {
	return time.Duration(v * float64(time.Minute))
}
