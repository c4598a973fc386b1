package main

import (
	"github.com/grovetools/tend/pkg/assert"
	"github.com/grovetools/tend/pkg/harness"
)

// NotificationsToggleScenario turns the reminder and session toggles off and
// back on and checks they persist across invocations.
func NotificationsToggleScenario() *harness.Scenario {
	return &harness.Scenario{
		Name:        "arcade-notifications-toggle",
		Description: "Notification toggles are saved in the state file.",
		Tags:        []string{"cli", "notifications"},
		Steps: []harness.Step{
			harness.NewStep("Disable start reminders", func(ctx *harness.Context) error {
				bin, err := findArcadeBinary()
				if err != nil {
					return err
				}
				result := ctx.Command(bin, "notifications", "reminders", "off").Run()
				ctx.ShowCommandOutput("arcade notifications reminders off", result.Stdout, result.Stderr)
				if err := assert.Equal(0, result.ExitCode, "toggle should succeed"); err != nil {
					return err
				}
				return assert.Contains(result.Stdout, "Start reminder notifications have been disabled", "should confirm")
			}),
			harness.NewStep("Disable session notifications", func(ctx *harness.Context) error {
				bin, err := findArcadeBinary()
				if err != nil {
					return err
				}
				result := ctx.Command(bin, "notifications", "session", "off").Run()
				return assert.Equal(0, result.ExitCode, "toggle should succeed")
			}),
			harness.NewStep("Read settings back", func(ctx *harness.Context) error {
				bin, err := findArcadeBinary()
				if err != nil {
					return err
				}
				result := ctx.Command(bin, "notifications", "--json").Run()
				if err := assert.Equal(0, result.ExitCode, "notifications should succeed"); err != nil {
					return err
				}
				if err := assert.Contains(result.Stdout, `"start_reminders": false`, "reminders off"); err != nil {
					return err
				}
				return assert.Contains(result.Stdout, `"session": false`, "session notifications off")
			}),
			harness.NewStep("Re-enable and reject bad values", func(ctx *harness.Context) error {
				bin, err := findArcadeBinary()
				if err != nil {
					return err
				}
				if result := ctx.Command(bin, "notifications", "reminders", "on").Run(); result.ExitCode != 0 {
					return assert.Equal(0, result.ExitCode, "re-enable should succeed")
				}
				result := ctx.Command(bin, "notifications", "session", "maybe").Run()
				return assert.Equal(1, result.ExitCode, "unknown value should fail")
			}),
		},
	}
}

// InitRejectsBadInputScenario feeds malformed answers to 'arcade init' and
// checks nothing is saved and no request is made.
func InitRejectsBadInputScenario() *harness.Scenario {
	return &harness.Scenario{
		Name:        "arcade-init-validation",
		Description: "Malformed Slack IDs are rejected before any request.",
		Tags:        []string{"cli", "init"},
		Steps: []harness.Step{
			harness.NewStep("Run 'arcade init' with a lower-case Slack ID", func(ctx *harness.Context) error {
				bin, err := findArcadeBinary()
				if err != nil {
					return err
				}
				result := ctx.Command(bin, "init", "--slack-id", "not-valid").Run()
				ctx.ShowCommandOutput("arcade init", result.Stdout, result.Stderr)
				if err := assert.Equal(1, result.ExitCode, "init should fail"); err != nil {
					return err
				}
				return assert.Contains(result.Stderr, "slack ID", "error should name the field")
			}),
			harness.NewStep("Status still asks for setup", func(ctx *harness.Context) error {
				bin, err := findArcadeBinary()
				if err != nil {
					return err
				}
				result := ctx.Command(bin, "status").Run()
				return assert.Contains(result.Stdout, "Setup Arcade", "no credentials were saved")
			}),
		},
	}
}
