package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/grovetools/arcade/cli"
	"github.com/spf13/cobra"
)

// printJSON writes v indented when --json is set and reports whether it did.
func printJSON(cmd *cobra.Command, v interface{}) (bool, error) {
	if !cli.GetOptions(cmd).JSONOutput {
		return false, nil
	}
	return true, writeJSON(cmd.OutOrStdout(), v)
}

func writeJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
