package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/grovetools/arcade/command"
	"github.com/grovetools/arcade/errors"
	"github.com/grovetools/arcade/internal/daemon/reconciler"
	"github.com/grovetools/arcade/logging"
	"github.com/grovetools/arcade/pkg/daemon"
	"github.com/spf13/cobra"
)

// withClient runs fn against a daemon client and closes it afterwards.
func withClient(fn func(daemon.Client) error) error {
	client := newClient()
	defer client.Close()
	return fn(client)
}

func newRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Fetch the session status now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c daemon.Client) error {
				started, err := c.Refresh(cmd.Context())
				if err != nil {
					return err
				}
				if ok, err := printJSON(cmd, map[string]bool{"started": started}); ok {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Force refreshed status")
				return nil
			})
		},
	}
}

func newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start <work>",
		Short: "Start a session for the given piece of work",
		Example: `  arcade start "Add dark mode to the website"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			work := strings.TrimSpace(strings.Join(args, " "))
			return withClient(func(c daemon.Client) error {
				res, err := c.StartSession(cmd.Context(), work)
				if err != nil {
					return err
				}
				if ok, err := printJSON(cmd, res); ok {
					return err
				}
				logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout()).Success("Session started")
				return nil
			})
		},
	}
}

func newPauseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pause",
		Short: "Pause the active session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return togglePause(cmd, reconciler.PhaseActive, "no active session to pause")
		},
	}
}

func newResumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Resume the paused session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return togglePause(cmd, reconciler.PhasePaused, "no paused session to resume")
		},
	}
}

// togglePause flips the pause state, but only from the expected phase, since
// the service endpoint toggles.
func togglePause(cmd *cobra.Command, want reconciler.Phase, reason string) error {
	return withClient(func(c daemon.Client) error {
		ctx := cmd.Context()
		st, err := c.State(ctx)
		if err != nil {
			return err
		}
		if st.Phase != want {
			return errors.InvalidInput("session", reason)
		}
		res, err := c.PauseSession(ctx)
		if err != nil {
			return err
		}
		if ok, err := printJSON(cmd, res); ok {
			return err
		}
		msg := "Session resumed"
		if res.Paused {
			msg = "Session paused"
		}
		logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout()).Success(msg)
		return nil
	})
}

func newEndCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "end",
		Short: "End the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c daemon.Client) error {
				if err := c.EndSession(cmd.Context()); err != nil {
					return err
				}
				logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout()).Success("Session ended")
				return nil
			})
		},
	}
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show your session count and total minutes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c daemon.Client) error {
				stats, err := c.Stats(cmd.Context())
				if err != nil {
					return err
				}
				if ok, err := printJSON(cmd, stats); ok {
					return err
				}
				pretty := logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout())
				pretty.Field("Sessions", stats.Sessions)
				pretty.Field("Minutes", int(stats.Total.Minutes()))
				return nil
			})
		},
	}
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show the session service health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c daemon.Client) error {
				st, err := c.ServiceStatus(cmd.Context())
				if err != nil {
					return err
				}
				if ok, err := printJSON(cmd, st); ok {
					return err
				}
				pretty := logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout())
				if st.Healthy() {
					pretty.Success("Arcade service is healthy")
				} else {
					pretty.WarnPretty("Arcade service is degraded")
				}
				pretty.Field("Active", st.ActiveSessions)
				pretty.Field("Airtable", st.AirtableConnected)
				pretty.Field("Slack", st.SlackConnected)
				return nil
			})
		},
	}
}

// urlOpener opens a URL in the browser; swapped in tests.
var urlOpener = func(ctx context.Context, url string) error {
	return command.NewSafeBuilder().OpenURL(ctx, url)
}

func newSlackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "slack",
		Short: "Open the Arcade Slack channel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			url := loadConfigOrDefault(cmd).SlackURL
			if err := urlOpener(cmd.Context(), url); err != nil {
				return errors.Wrap(err, errors.ErrCodeInternal, "failed to open browser").WithDetail("url", url)
			}
			fmt.Fprintln(cmd.OutOrStdout(), url)
			return nil
		},
	}
}
