package cmd

import (
	"fmt"

	"github.com/grovetools/arcade/errors"
	"github.com/grovetools/arcade/internal/daemon/engine"
	"github.com/grovetools/arcade/internal/daemon/reconciler"
	"github.com/grovetools/arcade/logging"
	"github.com/grovetools/arcade/state"
	"github.com/spf13/cobra"
)

func newNotificationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "Show or change notification settings",
		Long: `Without arguments, shows whether session notifications and start
reminders are enabled. The settings are saved in the state file and a
running daemon picks them up immediately.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := state.Load()
			if err != nil {
				return err
			}
			settings := engine.ResolveSettings(loadConfigOrDefault(cmd), st)
			if ok, err := printJSON(cmd, map[string]bool{
				"session":         settings.SessionNotifications,
				"start_reminders": settings.StartReminders,
			}); ok {
				return err
			}
			pretty := logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout())
			pretty.Field("Session", onOff(settings.SessionNotifications))
			pretty.Field("Reminders", onOff(settings.StartReminders))
			return nil
		},
	}

	cmd.AddCommand(
		newToggleCmd("session", "Turn session notifications on or off", state.KeySessionNotifications, nil),
		newToggleCmd("reminders", "Turn start-session reminders on or off", state.KeyStartReminders,
			func(cmd *cobra.Command) {
				fmt.Fprintln(cmd.OutOrStdout(), reconciler.RemindersDisabledNotification().Message)
			}),
	)
	return cmd
}

// newToggleCmd persists an on/off setting. onDisable runs after turning it off.
func newToggleCmd(use, short, key string, onDisable func(*cobra.Command)) *cobra.Command {
	return &cobra.Command{
		Use:       use + " on|off",
		Short:     short,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var enabled bool
			switch args[0] {
			case "on":
				enabled = true
			case "off":
			default:
				return errors.InvalidInput(use, fmt.Sprintf("expected on or off, got %q", args[0]))
			}
			if err := state.Set(key, enabled); err != nil {
				return err
			}
			logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout()).
				Success(fmt.Sprintf("%s notifications %s", use, onOff(enabled)))
			if !enabled && onDisable != nil {
				onDisable(cmd)
			}
			return nil
		},
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
