package starship

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

const moduleHeader = "[custom.arcade]"

// NewStarshipCmd creates the starship command and its subcommands.
// binaryName is the executable the prompt module invokes.
func NewStarshipCmd(binaryName string) *cobra.Command {
	starshipCmd := &cobra.Command{
		Use:   "starship",
		Short: "Manage Starship prompt integration",
		Long:  `Shows the Arcade session countdown in the Starship prompt.`,
	}

	installCmd := &cobra.Command{
		Use:   "install",
		Short: "Add the arcade module to your starship.toml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := ConfigPath()
			if err != nil {
				return err
			}
			return Install(cmd.OutOrStdout(), path, binaryName)
		},
	}

	statusCmd := &cobra.Command{
		Use:    "status",
		Short:  "Print status for Starship prompt (for internal use)",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Prompt output must stay clean; errors print nothing.
			fmt.Fprint(cmd.OutOrStdout(), Status(cmd.Context(), DaemonSource))
			return nil
		},
	}

	starshipCmd.AddCommand(installCmd, statusCmd)
	return starshipCmd
}

// ConfigPath honors STARSHIP_CONFIG, then ~/.config/starship.toml.
func ConfigPath() (string, error) {
	if path := os.Getenv("STARSHIP_CONFIG"); path != "" {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "starship.toml"), nil
}

func moduleBlock(binaryName string) string {
	return fmt.Sprintf(`
# Added by '%s starship install'
%s
description = "Shows the Arcade session countdown"
command = "%s starship status"
when = true
format = " $output "
`, binaryName, moduleHeader, binaryName)
}

// Install adds or refreshes the arcade module in the starship config at path
// and adds it to the prompt format when a known anchor is present.
func Install(w io.Writer, path, binaryName string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("starship config not found at %s. Please ensure starship is installed and configured", path)
		}
		return fmt.Errorf("could not read starship config: %w", err)
	}
	content := string(data)
	block := moduleBlock(binaryName)

	if start := strings.Index(content, moduleHeader); start != -1 {
		end := len(content)
		if next := strings.Index(content[start+1:], "\n["); next != -1 {
			end = start + 1 + next
		}
		// Drop the comment line we wrote above the header last time.
		head := strings.TrimSuffix(content[:start], fmt.Sprintf("\n# Added by '%s starship install'\n", binaryName))
		content = head + block + content[end:]
		fmt.Fprintln(w, "✓ Updated existing arcade starship module.")
	} else {
		content += block
		fmt.Fprintln(w, "✓ Added [custom.arcade] module to starship config.")
	}

	switch {
	case strings.Contains(content, "${custom.arcade}") || strings.Contains(content, "$custom.arcade"):
		fmt.Fprintln(w, "✓ Arcade module already in starship format.")
	case strings.Contains(content, "$git_metrics\\"):
		content = strings.Replace(content, "$git_metrics\\", "$git_metrics\\\n${custom.arcade}\\", 1)
		fmt.Fprintln(w, "✓ Added arcade module to starship format.")
	default:
		fmt.Fprintf(w, "⚠️  Could not automatically add '${custom.arcade}' to your starship format.\n")
		fmt.Fprintf(w, "   Please add it manually to the 'format' string in %s\n", path)
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write updated starship config: %w", err)
	}
	fmt.Fprintf(w, "\nSuccessfully updated %s. Please restart your shell to see the changes.\n", path)
	return nil
}
