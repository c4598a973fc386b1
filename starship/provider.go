package starship

import (
	"context"
	"strings"
	"time"

	"github.com/grovetools/arcade/internal/daemon/reconciler"
	"github.com/grovetools/arcade/pkg/daemon"
	"github.com/grovetools/arcade/tui/theme"
)

// statusTimeout bounds the prompt segment so a slow daemon never stalls
// the shell.
const statusTimeout = 300 * time.Millisecond

// DisplaySource returns the current status-bar display.
type DisplaySource func(ctx context.Context) (*reconciler.Display, error)

// DaemonSource reads the display from the daemon, falling back to an
// in-process engine when it is not running.
func DaemonSource(ctx context.Context) (*reconciler.Display, error) {
	client := daemon.New()
	defer client.Close()
	return client.Display(ctx)
}

// Status renders the prompt segment, or "" when nothing should be shown.
func Status(ctx context.Context, source DisplaySource) string {
	ctx, cancel := context.WithTimeout(ctx, statusTimeout)
	defer cancel()

	d, err := source(ctx)
	if err != nil || d == nil {
		return ""
	}
	return Format(*d)
}

// Format renders a display as "<icon> <text>". Setup is left out of the
// prompt since it carries no session information.
func Format(d reconciler.Display) string {
	if d.Phase == reconciler.PhaseSetup || d.Text == "" {
		return ""
	}
	parts := []string{}
	if icon := theme.ForDisplay(d.Icon); icon != "" {
		parts = append(parts, icon)
	}
	parts = append(parts, d.Text)
	out := strings.Join(parts, " ")
	if d.Warning {
		return theme.DefaultTheme.Warning.Render(out)
	}
	return out
}
