// Package cli holds the shared pieces of the arcade command line: standard
// flags, styled help and error rendering.
package cli

import (
	"github.com/grovetools/arcade/config"
	"github.com/grovetools/arcade/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// CommandOptions holds common options for arcade commands
type CommandOptions struct {
	ConfigFile string
	Verbose    bool
	JSONOutput bool
}

// NewStandardCommand creates a new command with the standard arcade flags.
func NewStandardCommand(use, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           use,
		Short:         short,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("json", false, "Output in JSON format")
	cmd.PersistentFlags().StringP("config", "c", "", "Path to an arcade.yml or arcade.toml config file")

	SetStyledHelp(cmd)
	return cmd
}

// GetLogger returns the CLI logger, switched to debug by --verbose.
func GetLogger(cmd *cobra.Command) *logrus.Entry {
	entry := logging.NewLogger("cli")
	if GetOptions(cmd).Verbose {
		entry.Logger.SetLevel(logrus.DebugLevel)
	}
	return entry
}

// GetOptions extracts common options from a command. Lookups go through
// cmd.Flag so persistent flags are found before cobra has merged them.
func GetOptions(cmd *cobra.Command) CommandOptions {
	return CommandOptions{
		ConfigFile: flagValue(cmd, "config"),
		Verbose:    flagValue(cmd, "verbose") == "true",
		JSONOutput: flagValue(cmd, "json") == "true",
	}
}

func flagValue(cmd *cobra.Command, name string) string {
	if f := cmd.Flag(name); f != nil {
		return f.Value.String()
	}
	return ""
}

// LoadConfig loads the file named by --config, or the default layers. A
// missing --config file is an error; missing default layers are not.
func LoadConfig(cmd *cobra.Command) (*config.Config, error) {
	if path := GetOptions(cmd).ConfigFile; path != "" {
		return config.Load(path)
	}
	return config.LoadDefault()
}
