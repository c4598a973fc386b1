package main

import (
	"github.com/grovetools/tend/pkg/assert"
	"github.com/grovetools/tend/pkg/harness"
)

// VersionScenario tests the 'version' command.
func VersionScenario() *harness.Scenario {
	return &harness.Scenario{
		Name:        "arcade-version",
		Description: "Prints build information.",
		Tags:        []string{"cli"},
		Steps: []harness.Step{
			harness.NewStep("Run 'arcade version'", func(ctx *harness.Context) error {
				bin, err := findArcadeBinary()
				if err != nil {
					return err
				}
				cmd := ctx.Command(bin, "version")
				result := cmd.Run()
				ctx.ShowCommandOutput(cmd.String(), result.Stdout, result.Stderr)

				if err := assert.Equal(0, result.ExitCode, "arcade version should exit successfully"); err != nil {
					return err
				}
				if err := assert.Contains(result.Stdout, "Version:", "Output should contain Version"); err != nil {
					return err
				}
				return assert.Contains(result.Stdout, "Go Version:", "Output should contain Go Version")
			}),
		},
	}
}

// StatusSetupScenario checks that without credentials the status line asks
// the user to set up, without a daemon and without touching the network.
func StatusSetupScenario() *harness.Scenario {
	return &harness.Scenario{
		Name:        "arcade-status-setup",
		Description: "Status falls back to an in-process fetch and reports the setup phase.",
		Tags:        []string{"cli", "status"},
		Steps: []harness.Step{
			harness.NewStep("Run 'arcade status' without credentials", func(ctx *harness.Context) error {
				bin, err := findArcadeBinary()
				if err != nil {
					return err
				}
				cmd := ctx.Command(bin, "status")
				result := cmd.Run()
				ctx.ShowCommandOutput(cmd.String(), result.Stdout, result.Stderr)

				if err := assert.Equal(0, result.ExitCode, "status should succeed"); err != nil {
					return err
				}
				if err := assert.Contains(result.Stdout, "Setup Arcade", "status should ask for setup"); err != nil {
					return err
				}
				return assert.Contains(result.Stdout, "arcade init", "status should point at arcade init")
			}),
			harness.NewStep("Run 'arcade status --json'", func(ctx *harness.Context) error {
				bin, err := findArcadeBinary()
				if err != nil {
					return err
				}
				result := ctx.Command(bin, "status", "--json").Run()
				if err := assert.Equal(0, result.ExitCode, "status --json should succeed"); err != nil {
					return err
				}
				return assert.Contains(result.Stdout, `"phase": "setup"`, "JSON should report the setup phase")
			}),
		},
	}
}

// DaemonNotRunningScenario checks the commands that need a live daemon.
func DaemonNotRunningScenario() *harness.Scenario {
	return &harness.Scenario{
		Name:        "arcade-daemon-not-running",
		Description: "Daemon status and watch fail with a hint when no daemon runs.",
		Tags:        []string{"cli", "daemon"},
		Steps: []harness.Step{
			harness.NewStep("Run 'arcade daemon status'", func(ctx *harness.Context) error {
				bin, err := findArcadeBinary()
				if err != nil {
					return err
				}
				result := ctx.Command(bin, "daemon", "status").Run()
				ctx.ShowCommandOutput("arcade daemon status", result.Stdout, result.Stderr)
				if err := assert.Equal(1, result.ExitCode, "daemon status should fail"); err != nil {
					return err
				}
				return assert.Contains(result.Stderr, "arcade daemon start", "should suggest starting the daemon")
			}),
			harness.NewStep("Run 'arcade daemon stop'", func(ctx *harness.Context) error {
				bin, err := findArcadeBinary()
				if err != nil {
					return err
				}
				result := ctx.Command(bin, "daemon", "stop").Run()
				if err := assert.Equal(0, result.ExitCode, "stopping a stopped daemon is not an error"); err != nil {
					return err
				}
				return assert.Contains(result.Stdout, "not running", "should report the daemon is not running")
			}),
			harness.NewStep("Run 'arcade watch'", func(ctx *harness.Context) error {
				bin, err := findArcadeBinary()
				if err != nil {
					return err
				}
				result := ctx.Command(bin, "watch").Run()
				return assert.Equal(1, result.ExitCode, "watch needs the daemon")
			}),
		},
	}
}
