package reconciler

import (
	"fmt"
	"time"

	"github.com/grovetools/arcade/pkg/arcade"
)

// Display is what a status surface should show. It is derived only from the
// state and the current time, so it can be recomputed on every tick.
type Display struct {
	Phase   Phase  `json:"phase"`
	Icon    string `json:"icon"`
	Text    string `json:"text"`
	Tooltip string `json:"tooltip"`
	// Command is the CLI invocation bound to clicking the indicator.
	Command string `json:"command,omitempty"`
	// Warning asks the surface to use warning colors.
	Warning   bool            `json:"warning,omitempty"`
	Remaining time.Duration   `json:"remaining,omitempty"`
	Session   *arcade.Session `json:"session,omitempty"`
}

// Icon names. Surfaces map them to glyphs.
const (
	IconLoading = "loading"
	IconWatch   = "watch"
	IconPause   = "pause"
	IconError   = "error"
	IconSetup   = "gear"
	IconIdle    = "idle"
)

// Render computes the display for s at now.
func Render(s State, now time.Time) Display {
	d := Display{Phase: s.Phase, Session: s.Previous}

	switch s.Phase {
	case PhaseSetup:
		d.Icon = IconSetup
		d.Text = "Setup Arcade"
		d.Tooltip = "Run arcade init to set up Arcade"
		d.Command = "arcade init"

	case PhaseError:
		d.Icon = IconError
		d.Text = "Arcade Error"
		d.Tooltip = "An error occurred while fetching the status"
		if s.ConsecutiveFailures > 0 {
			d.Tooltip += fmt.Sprintf(" (%d failed, retrying in %ds)",
				s.ConsecutiveFailures, int(s.NextDelay/time.Second))
		}
		if s.LastErrorMessage != "" {
			d.Tooltip += "\n" + s.LastErrorMessage
		}
		d.Command = "arcade refresh"
		d.Warning = true

	case PhaseActive:
		d.Tooltip = idTooltip(s.Identity)
		d.Command = "arcade slack"
		if s.Previous == nil {
			d.Icon = IconLoading
			d.Text = "Ending..."
			break
		}
		remaining := s.Previous.RemainingAt(now)
		if remaining > 0 {
			d.Icon = IconWatch
			d.Text = FormatCountdown(remaining)
			d.Remaining = remaining
		} else {
			d.Icon = IconLoading
			d.Text = "Ending..."
		}

	case PhasePaused:
		d.Icon = IconPause
		mins := 0
		if s.Previous != nil {
			mins = int(s.Previous.Remaining / time.Minute)
			d.Remaining = s.Previous.Remaining
		}
		d.Text = fmt.Sprintf("Paused: %d mins", mins)
		d.Tooltip = idTooltip(s.Identity)
		d.Command = "arcade resume"

	case PhaseCompleted:
		d.Icon = IconIdle
		d.Text = "No Session"
		d.Tooltip = idTooltip(s.Identity)
		d.Command = "arcade tui"

	default:
		d.Phase = PhaseLoading
		d.Icon = IconLoading
		d.Text = "Arcade Loading..."
		d.Tooltip = "Please wait..."
	}
	return d
}

// FormatCountdown renders d as MM:SS; minutes are not wrapped at 60.
func FormatCountdown(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

func idTooltip(id string) string {
	return fmt.Sprintf("Hack Club Arcade (ID: %s)", id)
}
