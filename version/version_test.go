package version

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromBuildInfo(t *testing.T) {
	bi := &debug.BuildInfo{
		Main: debug.Module{Version: "v0.3.1"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef0123"},
			{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
			{Key: "vcs.modified", Value: "true"},
		},
	}
	info := Info{Version: "dev"}
	fromBuildInfo(&info, bi)

	assert.Equal(t, "v0.3.1", info.Version)
	assert.Equal(t, "0123456789ab", info.Commit)
	assert.Equal(t, "2026-01-02T03:04:05Z", info.BuildDate)
	assert.True(t, info.Modified)
}

func TestFromBuildInfoKeepsLinkerValues(t *testing.T) {
	bi := &debug.BuildInfo{
		Main:     debug.Module{Version: "(devel)"},
		Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "feedface"}},
	}
	info := Info{Version: "dev", Commit: "release1"}
	fromBuildInfo(&info, bi)

	assert.Equal(t, "dev", info.Version)
	assert.Equal(t, "release1", info.Commit)
}

func TestString(t *testing.T) {
	out := Info{Version: "dev", Commit: "abc", Modified: true, BuildDate: "unknown", GoVersion: "go1.24", Platform: "linux/amd64"}.String()
	assert.Contains(t, out, "Version:")
	assert.Contains(t, out, "abc (modified)")
	assert.Contains(t, out, "Go Version: go1.24")
}
