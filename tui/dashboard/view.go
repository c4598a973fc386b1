package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/grovetools/arcade/internal/daemon/reconciler"
	"github.com/grovetools/arcade/tui/theme"
)

// countdownText recomputes the active countdown locally so it keeps moving
// between daemon updates.
func (m Model) countdownText() string {
	d := m.state.Display
	if d.Phase == reconciler.PhaseActive && m.state.Session != nil {
		if remaining := m.state.Session.RemainingAt(m.now()); remaining > 0 {
			return reconciler.FormatCountdown(remaining)
		}
	}
	return d.Text
}

// View implements tea.Model.
func (m Model) View() string {
	t := theme.DefaultTheme
	var b strings.Builder

	b.WriteString(t.Header.Render("Arcade"))
	if m.streaming {
		b.WriteString(t.Muted.Render("  live"))
	}
	b.WriteString("\n\n")

	if !m.loaded {
		b.WriteString(t.Muted.Render(theme.IconLoading + " Loading..."))
		b.WriteString("\n")
		return m.footer(&b)
	}

	d := m.state.Display
	icon := theme.ForDisplay(d.Icon)
	switch d.Phase {
	case reconciler.PhaseActive:
		b.WriteString(icon + " " + t.Countdown.Render(m.countdownText()))
	case reconciler.PhaseError:
		b.WriteString(t.Error.Render(icon + " " + d.Text))
	default:
		b.WriteString(t.Bold.Render(icon + " " + d.Text))
	}
	b.WriteString("\n")

	if s := m.state.Session; s != nil && (d.Phase == reconciler.PhaseActive || d.Phase == reconciler.PhasePaused) {
		b.WriteString(field("Work", s.Work))
		if s.Goal != "" && s.Goal != reconciler.NoGoal {
			b.WriteString(field("Goal", s.Goal))
		}
		b.WriteString(field("Ends", s.EndTime.Local().Format("15:04")))
	}
	if d.Tooltip != "" && d.Phase != reconciler.PhaseActive {
		b.WriteString(t.Muted.Render(d.Tooltip))
		b.WriteString("\n")
	}

	if n := m.state.LastNotification; n != nil {
		b.WriteString("\n")
		style := t.Info
		if n.Level == reconciler.LevelError {
			style = t.Error
		}
		b.WriteString(style.Render(n.Message))
		b.WriteString("\n")
	}

	if m.editing {
		b.WriteString("\n")
		b.WriteString(t.Input.Render(m.input.View()))
		b.WriteString("\n")
	}
	return m.footer(&b)
}

func field(label, value string) string {
	t := theme.DefaultTheme
	return fmt.Sprintf("%s %s\n", t.Muted.Render(fmt.Sprintf("%-5s", label)), value)
}

func (m Model) footer(b *strings.Builder) string {
	t := theme.DefaultTheme
	b.WriteString("\n")
	switch {
	case m.err != nil:
		b.WriteString(t.Error.Render(m.err.Error()))
		b.WriteString("\n")
	case m.status != "":
		b.WriteString(t.Success.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString(m.help.View(m.keys))

	out := b.String()
	if m.width > 0 {
		out = lipgloss.NewStyle().MaxWidth(m.width).Render(out)
	}
	return out
}
