package cli

import (
	"encoding/json"
	"fmt"

	"github.com/grovetools/arcade/version"
	"github.com/spf13/cobra"
)

// NewVersionCommand creates a standard version command. With --json it
// prints the full build info.
func NewVersionCommand(componentName string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: fmt.Sprintf("Print the version number of %s", componentName),
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.GetInfo()
			out := cmd.OutOrStdout()
			if GetOptions(cmd).JSONOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}
			fmt.Fprintln(out, info.String())
			return nil
		},
	}
}
