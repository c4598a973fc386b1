package main

import (
	"path/filepath"

	"github.com/grovetools/tend/pkg/assert"
	"github.com/grovetools/tend/pkg/fs"
	"github.com/grovetools/tend/pkg/harness"
)

// ConfigSchemaScenario checks that the schema is generated from the config.
func ConfigSchemaScenario() *harness.Scenario {
	return &harness.Scenario{
		Name:        "arcade-config-schema",
		Description: "Prints the JSON schema for arcade.yml.",
		Tags:        []string{"config"},
		Steps: []harness.Step{
			harness.NewStep("Run 'arcade config schema'", func(ctx *harness.Context) error {
				bin, err := findArcadeBinary()
				if err != nil {
					return err
				}
				result := ctx.Command(bin, "config", "schema").Run()
				if err := assert.Equal(0, result.ExitCode, "schema should succeed"); err != nil {
					return err
				}
				if err := assert.Contains(result.Stdout, `"title": "Arcade Configuration"`, "schema title"); err != nil {
					return err
				}
				return assert.Contains(result.Stdout, `"poll"`, "schema should describe the poll section")
			}),
		},
	}
}

// ConfigFileScenario loads a TOML file passed with --config and checks the
// merged values and the reported paths.
func ConfigFileScenario() *harness.Scenario {
	return &harness.Scenario{
		Name:        "arcade-config-file",
		Description: "An explicit --config file is loaded with defaults filled in.",
		Tags:        []string{"config"},
		Steps: []harness.Step{
			harness.NewStep("Write arcade.toml", func(ctx *harness.Context) error {
				dir := ctx.NewDir("project")
				path := filepath.Join(dir, "arcade.toml")
				ctx.Set("config_path", path)
				return fs.WriteString(path, `
[poll]
interval = "20s"

[activity]
threshold = 3
`)
			}),
			harness.NewStep("Run 'arcade config show'", func(ctx *harness.Context) error {
				bin, err := findArcadeBinary()
				if err != nil {
					return err
				}
				cmd := ctx.Command(bin, "config", "show", "--config", ctx.GetString("config_path"))
				result := cmd.Run()
				ctx.ShowCommandOutput(cmd.String(), result.Stdout, result.Stderr)

				if err := assert.Equal(0, result.ExitCode, "config show should succeed"); err != nil {
					return err
				}
				if err := assert.Contains(result.Stdout, "interval: 20s", "file value should win"); err != nil {
					return err
				}
				if err := assert.Contains(result.Stdout, "threshold: 3", "activity threshold from file"); err != nil {
					return err
				}
				return assert.Contains(result.Stdout, "retry_cap: 5m0s", "defaults should be filled in")
			}),
			harness.NewStep("Run 'arcade config path'", func(ctx *harness.Context) error {
				bin, err := findArcadeBinary()
				if err != nil {
					return err
				}
				result := ctx.Command(bin, "config", "path", "--json", "--config", ctx.GetString("config_path")).Run()
				if err := assert.Equal(0, result.ExitCode, "config path should succeed"); err != nil {
					return err
				}
				if err := assert.Contains(result.Stdout, "arcade.toml", "explicit config should be listed"); err != nil {
					return err
				}
				return assert.Contains(result.Stdout, "credentials.yml", "credentials path should be listed")
			}),
		},
	}
}

// ConfigInvalidScenario checks that schema violations are reported.
func ConfigInvalidScenario() *harness.Scenario {
	return &harness.Scenario{
		Name:        "arcade-config-invalid",
		Description: "Unknown keys and bad durations are rejected with a hint.",
		Tags:        []string{"config"},
		Steps: []harness.Step{
			harness.NewStep("Load an invalid config", func(ctx *harness.Context) error {
				path := filepath.Join(ctx.NewDir("bad"), "arcade.yml")
				if err := fs.WriteString(path, "poll:\n  interval: soon\n"); err != nil {
					return err
				}
				bin, err := findArcadeBinary()
				if err != nil {
					return err
				}
				result := ctx.Command(bin, "config", "show", "--config", path).Run()
				ctx.ShowCommandOutput("arcade config show", result.Stdout, result.Stderr)
				if err := assert.Equal(1, result.ExitCode, "invalid config should fail"); err != nil {
					return err
				}
				return assert.Contains(result.Stderr, "arcade config schema", "should point at the schema")
			}),
		},
	}
}
