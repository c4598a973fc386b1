package paths

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPortableHome(t *testing.T) {
	root := t.TempDir()
	t.Setenv("ARCADE_HOME", root)

	assert.Equal(t, filepath.Join(root, "config"), ConfigDir())
	assert.Equal(t, filepath.Join(root, "state"), StateDir())
	assert.Equal(t, filepath.Join(root, "run", "arcaded.sock"), SocketPath())
	assert.Equal(t, filepath.Join(root, "state", "credentials.yml"), CredentialsPath())
	assert.Equal(t, filepath.Join(root, "state", "logs"), LogDir())
}

func TestXDGOverrides(t *testing.T) {
	t.Setenv("ARCADE_HOME", "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg/config")
	t.Setenv("XDG_STATE_HOME", "/xdg/state")
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")

	assert.Equal(t, "/xdg/config/arcade", ConfigDir())
	assert.Equal(t, "/xdg/state/arcade/arcaded.pid", PidFilePath())
	assert.Equal(t, "/run/user/1000/arcade/arcaded.sock", SocketPath())
}

func TestRuntimeFallsBackToState(t *testing.T) {
	t.Setenv("ARCADE_HOME", "")
	t.Setenv("XDG_STATE_HOME", "/xdg/state")
	t.Setenv("XDG_RUNTIME_DIR", "")

	assert.Equal(t, StateDir(), RuntimeDir())
}

func TestEnsureDirs(t *testing.T) {
	root := t.TempDir()
	t.Setenv("ARCADE_HOME", root)

	assert.NoError(t, EnsureDirs())
	assert.DirExists(t, LogDir())
	assert.DirExists(t, RuntimeDir())
}
