package dashboard

import (
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/grovetools/arcade/tui"
)

// Run starts the dashboard full screen and blocks until the user quits.
func Run(opts Options) error {
	tui.InitializeTUI()
	restore := tui.QuietLogs(io.Discard)
	defer restore()

	_, err := tea.NewProgram(New(opts), tea.WithAltScreen()).Run()
	return err
}
