// Package cmd implements the arcade command tree.
package cmd

import (
	"os"

	"github.com/grovetools/arcade/cli"
	"github.com/grovetools/arcade/pkg/daemon"
	"github.com/grovetools/arcade/starship"
	"github.com/spf13/cobra"
)

// newClient is swapped in tests.
var newClient = func() daemon.Client { return daemon.New() }

// NewRootCmd builds the arcade command tree.
func NewRootCmd() *cobra.Command {
	root := cli.NewStandardCommand("arcade", "Track Hack Club Arcade sessions from the terminal")
	root.Long = `Shows your Arcade session countdown, reminds you to start a session
while you code, and starts, pauses and ends sessions.

Run 'arcade init' once to save your Slack ID and API key, then
'arcade daemon start' to keep the status up to date in the background.`

	// Make --config visible to everything that loads configuration on its
	// own, including the in-process fallback client and the logger.
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if path := cli.GetOptions(cmd).ConfigFile; path != "" {
			return os.Setenv("ARCADE_CONFIG", path)
		}
		return nil
	}

	root.AddCommand(
		newInitCmd(),
		newClearCmd(),
		newStatusCmd(),
		newWatchCmd(),
		newRefreshCmd(),
		newActivityCmd(),
		newStartCmd(),
		newPauseCmd(),
		newResumeCmd(),
		newEndCmd(),
		newStatsCmd(),
		newHealthCmd(),
		newSlackCmd(),
		newNotificationsCmd(),
		newConfigCmd(),
		newLogsCmd(),
		newDaemonCmd(),
		newTUICmd(),
		starship.NewStarshipCmd("arcade"),
		cli.NewVersionCommand("arcade"),
	)
	return root
}
