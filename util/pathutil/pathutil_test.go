package pathutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	tests := []struct {
		in   string
		want string
	}{
		{"~", home},
		{"~/code", filepath.Join(home, "code")},
		{"/abs/path", "/abs/path"},
		{"relative", "relative"},
		{"~other/x", "~other/x"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandHome(tt.in))
		})
	}
}

func TestExpand(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("ARCADE_PROJECT", "game")

	got, err := Expand("~/src/$ARCADE_PROJECT")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "src", "game"), got)

	_, err = Expand("~someone/src")
	assert.Error(t, err)
}

func TestSameAndWithin(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "sub")
	require.NoError(t, os.Mkdir(sub, 0755))

	same, err := Same(root, filepath.Join(sub, ".."))
	require.NoError(t, err)
	assert.True(t, same)

	assert.True(t, Within(root, sub))
	assert.True(t, Within(root, root))
	assert.False(t, Within(sub, root))
	assert.False(t, Within(root, root+"-sibling"))
}
