package cmd

import (
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/grovetools/arcade/cli"
	"github.com/grovetools/arcade/errors"
	"github.com/grovetools/arcade/internal/daemon/reconciler"
	"github.com/grovetools/arcade/internal/daemon/store"
	"github.com/grovetools/arcade/pkg/daemon"
	"github.com/grovetools/arcade/tui/theme"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the session status line",
		Long: `Prints the same one-line status the daemon shows in status bars.
Without a running daemon the status is fetched once in-process.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c daemon.Client) error {
				st, err := c.State(cmd.Context())
				if err != nil {
					return err
				}
				if ok, err := printJSON(cmd, st); ok {
					return err
				}
				writeDisplay(cmd.OutOrStdout(), st.Display)
				return nil
			})
		},
	}
}

// writeDisplay prints the display line and its tooltip.
func writeDisplay(w io.Writer, d reconciler.Display) {
	t := theme.DefaultTheme
	line := d.Text
	if icon := theme.ForDisplay(d.Icon); icon != "" {
		line = icon + " " + line
	}
	if d.Warning {
		line = t.Warning.Render(line)
	} else {
		line = t.Bold.Render(line)
	}
	fmt.Fprintln(w, line)
	if d.Tooltip != "" {
		fmt.Fprintln(w, t.Muted.Render(d.Tooltip))
	}
	if d.Command != "" && d.Phase != reconciler.PhaseActive {
		fmt.Fprintln(w, t.Muted.Render("→ "+d.Command))
	}
}

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream status changes and notifications from the daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := daemon.Connect()
			if err != nil {
				return err
			}
			defer client.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			updates, err := client.StreamState(ctx)
			if err != nil {
				return err
			}
			jsonOut := cli.GetOptions(cmd).JSONOutput
			printer := &watchPrinter{w: cmd.OutOrStdout()}
			for {
				select {
				case <-ctx.Done():
					return nil
				case u, ok := <-updates:
					if !ok {
						if ctx.Err() != nil {
							return nil
						}
						return errors.New(errors.ErrCodeDaemonNotRunning, "daemon closed the stream")
					}
					if jsonOut {
						if err := writeJSON(cmd.OutOrStdout(), u); err != nil {
							return err
						}
						continue
					}
					printer.print(u, time.Now())
				}
			}
		},
	}
}

// watchPrinter prints stream updates as timestamped lines. Countdown ticks
// are skipped; only phase changes of the display are shown.
type watchPrinter struct {
	w         io.Writer
	lastPhase reconciler.Phase
}

func (p *watchPrinter) print(u daemon.StateUpdate, now time.Time) {
	t := theme.DefaultTheme
	stamp := t.Muted.Render(now.Format("15:04:05"))
	switch {
	case u.Notification != nil:
		n := u.Notification
		style := t.Info
		if n.Level == reconciler.LevelError {
			style = t.Error
		}
		line := style.Render(n.Message)
		if n.Action != nil {
			line += t.Muted.Render(fmt.Sprintf("  [%s: %s]", n.Action.Label, n.Action.Command))
		}
		fmt.Fprintf(p.w, "%s %s\n", stamp, line)
	case u.Display != nil:
		if u.Display.Phase == p.lastPhase {
			return
		}
		p.lastPhase = u.Display.Phase
		fmt.Fprintf(p.w, "%s %s %s\n", stamp, theme.ForDisplay(u.Display.Icon), u.Display.Text)
	case u.UpdateType == string(store.UpdateCredentialCleared):
		fmt.Fprintf(p.w, "%s %s\n", stamp, t.Warning.Render("credentials cleared"))
	case u.ConfigFile != "":
		fmt.Fprintf(p.w, "%s %s\n", stamp, t.Muted.Render("config reloaded: "+u.ConfigFile))
	}
}
