// Package pathutil expands and normalizes user-supplied paths from
// configuration files.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExpandHome replaces a leading "~" with the user's home directory. Paths
// without a tilde, or with "~user" forms, are returned unchanged.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// Expand expands the home directory and environment variables in path and
// returns it as an absolute path.
func Expand(path string) (string, error) {
	if strings.HasPrefix(path, "~") && path != "~" && !strings.HasPrefix(path, "~/") {
		return "", fmt.Errorf("unsupported home reference in %q", path)
	}
	path = os.ExpandEnv(ExpandHome(path))
	return filepath.Abs(path)
}
