// Package tui holds terminal setup shared by arcade's full-screen views.
package tui

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/grovetools/arcade/logging"
	"github.com/grovetools/arcade/tui/theme"
	"github.com/muesli/termenv"
)

// InitializeTUI picks the color profile and icon set before a program
// starts. CLICOLOR_FORCE and COLORTERM force true color so runs under a
// test harness render like an interactive terminal; NO_COLOR wins over both.
func InitializeTUI() {
	switch {
	case os.Getenv("NO_COLOR") != "":
		lipgloss.SetColorProfile(termenv.Ascii)
	case os.Getenv("CLICOLOR_FORCE") == "1" || os.Getenv("COLORTERM") == "truecolor":
		lipgloss.SetColorProfile(termenv.TrueColor)
	}
	if os.Getenv("TERM") == "dumb" && os.Getenv("ARCADE_ICONS") == "" {
		theme.SetASCII(true)
	}
}

// QuietLogs redirects the shared stderr log sink to w and returns a func
// that restores it. File sinks are unaffected.
func QuietLogs(w io.Writer) (restore func()) {
	prev := logging.SetGlobalOutput(w)
	return func() { logging.SetGlobalOutput(prev) }
}
