package cmd

import (
	"fmt"

	"github.com/grovetools/arcade/cli"
	"github.com/grovetools/arcade/config"
	"github.com/grovetools/arcade/logging"
	"github.com/grovetools/arcade/pkg/paths"
	"github.com/grovetools/arcade/state"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the arcade configuration",
	}
	cmd.AddCommand(newConfigShowCmd(), newConfigSchemaCmd(), newConfigPathCmd())
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the merged configuration with defaults applied",
		Long: `Shows how the final configuration is built from the layers:
1. Built-in defaults
2. arcade.yml or arcade.toml
3. arcade.override.yml
A file passed with --config or ARCADE_CONFIG replaces the layers.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}
			if ok, err := printJSON(cmd, cfg); ok {
				return err
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to encode config: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}

func newConfigSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema for arcade.yml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := config.GenerateSchema()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}

// pathInfo lists every file and directory arcade reads or writes.
type pathInfo struct {
	ConfigDir   string   `json:"config_dir"`
	ConfigFiles []string `json:"config_files"`
	Credentials string   `json:"credentials"`
	State       string   `json:"state"`
	Socket      string   `json:"socket"`
	PidFile     string   `json:"pid_file"`
	Logs        string   `json:"logs"`
}

func currentPaths(cmd *cobra.Command) pathInfo {
	info := pathInfo{
		ConfigDir:   paths.ConfigDir(),
		ConfigFiles: config.Files(paths.ConfigDir()),
		Credentials: paths.CredentialsPath(),
		State:       state.Path(),
		Socket:      paths.SocketPath(),
		PidFile:     paths.PidFilePath(),
		Logs:        paths.LogDir(),
	}
	if path := cli.GetOptions(cmd).ConfigFile; path != "" {
		info.ConfigFiles = []string{path}
	}
	return info
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show where arcade keeps its files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := currentPaths(cmd)
			if ok, err := printJSON(cmd, info); ok {
				return err
			}
			pretty := logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout())
			pretty.Path("Config dir", info.ConfigDir)
			for _, f := range info.ConfigFiles {
				pretty.Path("Config", f)
			}
			pretty.Path("Credentials", info.Credentials)
			pretty.Path("State", info.State)
			pretty.Path("Socket", info.Socket)
			pretty.Path("Pid file", info.PidFile)
			pretty.Path("Logs", info.Logs)
			return nil
		},
	}
}
