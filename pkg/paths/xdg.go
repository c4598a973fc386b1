// Package paths provides XDG-compliant path resolution for arcade.
//
// Resolution order:
// 1. ARCADE_HOME (portable root) → $ARCADE_HOME/{config,state,cache,run}
// 2. XDG env vars → $XDG_*_HOME/arcade
// 3. Platform defaults → ~/.config/arcade, ~/.local/state/arcade, etc.
package paths

import (
	"os"
	"path/filepath"
)

const appName = "arcade"

// homeSubdir returns $ARCADE_HOME/<sub> when the portable root is set.
func homeSubdir(sub string) string {
	if root := os.Getenv("ARCADE_HOME"); root != "" {
		return filepath.Join(root, sub)
	}
	return ""
}

// xdgDir resolves an XDG base directory, falling back to ~/<fallback>.
func xdgDir(envVar string, fallback ...string) string {
	if dir := os.Getenv(envVar); dir != "" {
		return filepath.Join(dir, appName)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	parts := append([]string{homeDir}, fallback...)
	return filepath.Join(append(parts, appName)...)
}

// ConfigDir returns the arcade configuration directory.
// Used for arcade.yml and arcade.toml.
func ConfigDir() string {
	if dir := homeSubdir("config"); dir != "" {
		return dir
	}
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// StateDir returns the arcade state directory.
// Used for credentials, persisted toggles, the pid file and logs.
func StateDir() string {
	if dir := homeSubdir("state"); dir != "" {
		return dir
	}
	return xdgDir("XDG_STATE_HOME", ".local", "state")
}

// CacheDir returns the arcade cache directory.
func CacheDir() string {
	if dir := homeSubdir("cache"); dir != "" {
		return dir
	}
	return xdgDir("XDG_CACHE_HOME", ".cache")
}

// RuntimeDir returns the arcade runtime directory for the daemon socket.
// Uses XDG_RUNTIME_DIR when available (Linux), falls back to StateDir (macOS).
func RuntimeDir() string {
	if dir := homeSubdir("run"); dir != "" {
		return dir
	}
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, appName)
	}
	return StateDir()
}

// SocketPath returns the path to the arcade daemon unix socket.
func SocketPath() string {
	return filepath.Join(RuntimeDir(), "arcaded.sock")
}

// PidFilePath returns the path to the arcade daemon PID file.
func PidFilePath() string {
	return filepath.Join(StateDir(), "arcaded.pid")
}

// CredentialsPath returns the path to the credential file.
func CredentialsPath() string {
	return filepath.Join(StateDir(), "credentials.yml")
}

// StatePath returns the path to the persisted toggle state.
func StatePath() string {
	return filepath.Join(StateDir(), "state.yml")
}

// LogDir returns the directory for component log files.
func LogDir() string {
	return filepath.Join(StateDir(), "logs")
}

// EnsureDirs creates all arcade directories if they don't exist.
func EnsureDirs() error {
	dirs := []string{
		ConfigDir(),
		StateDir(),
		CacheDir(),
		RuntimeDir(),
		LogDir(),
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0700); err != nil {
			return err
		}
	}
	return nil
}
