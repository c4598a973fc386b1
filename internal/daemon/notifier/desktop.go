package notifier

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/grovetools/arcade/command"
	"github.com/grovetools/arcade/internal/daemon/reconciler"
	"github.com/grovetools/arcade/internal/daemon/store"
)

const desktopTitle = "Hack Club Arcade"

// Desktop shows notifications with notify-send on Linux and osascript on macOS.
type Desktop struct {
	builder *command.SafeBuilder
	goos    string
}

// NewDesktop creates a desktop sink for the current platform.
func NewDesktop(builder *command.SafeBuilder) *Desktop {
	return &Desktop{builder: builder, goos: runtime.GOOS}
}

func (d *Desktop) Name() string { return "desktop" }

// Notify renders n as a desktop notification. Actions cannot be clicked
// there, so the command is appended to the body instead.
func (d *Desktop) Notify(ctx context.Context, n store.Notification) error {
	body := n.Message
	if n.Action != nil {
		body = fmt.Sprintf("%s\n%s: %s", body, n.Action.Label, n.Action.Command)
	}
	if err := d.builder.Validate("message", body); err != nil {
		return err
	}

	name, args, err := d.argv(n.Level, body)
	if err != nil {
		return err
	}
	cmd, err := d.builder.Build(ctx, name, args...)
	if err != nil {
		return err
	}
	_, err = cmd.Run()
	return err
}

func (d *Desktop) argv(level reconciler.Level, body string) (string, []string, error) {
	switch d.goos {
	case "linux", "freebsd", "openbsd":
		urgency := "normal"
		if level == reconciler.LevelError {
			urgency = "critical"
		}
		return "notify-send", []string{"--app-name=arcade", "--urgency=" + urgency, desktopTitle, body}, nil
	case "darwin":
		script := fmt.Sprintf("display notification %s with title %s",
			appleScriptString(body), appleScriptString(desktopTitle))
		return "osascript", []string{"-e", script}, nil
	default:
		return "", nil, fmt.Errorf("desktop notifications are not supported on %s", d.goos)
	}
}

func (d *Desktop) Close() error { return nil }

// appleScriptString quotes s as an AppleScript string literal.
func appleScriptString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)
	return `"` + r.Replace(s) + `"`
}
