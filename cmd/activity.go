package cmd

import (
	"fmt"

	"github.com/grovetools/arcade/internal/daemon/reconciler"
	"github.com/grovetools/arcade/pkg/daemon"
	"github.com/spf13/cobra"
)

func newActivityCmd() *cobra.Command {
	var source string
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Report editing activity to the daemon",
		Long: `Report one editing activity event. Editors and shell hooks call this on
save so the daemon can remind you to start a session. Without a running
daemon the event is dropped.`,
		Example: `  arcade activity --source nvim`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c daemon.Client) error {
				reminded, err := c.Activity(cmd.Context(), source)
				if err != nil {
					return err
				}
				if ok, err := printJSON(cmd, map[string]bool{"reminded": reminded}); ok {
					return err
				}
				if reminded {
					n := reconciler.ReminderNotification()
					fmt.Fprintln(cmd.OutOrStdout(), n.Message)
					if n.Action != nil {
						fmt.Fprintf(cmd.OutOrStdout(), "  %s: %s\n", n.Action.Label, n.Action.Command)
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&source, "source", "cli", "Name of the reporting editor or hook")
	return cmd
}
