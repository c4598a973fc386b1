package tui

import (
	"bytes"
	"testing"

	"github.com/grovetools/arcade/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuietLogsRestores(t *testing.T) {
	var outer, inner bytes.Buffer
	prev := logging.SetGlobalOutput(&outer)
	defer logging.SetGlobalOutput(prev)

	restore := QuietLogs(&inner)
	_, err := logging.GetGlobalOutput().Write([]byte("hidden"))
	require.NoError(t, err)
	restore()
	_, err = logging.GetGlobalOutput().Write([]byte("shown"))
	require.NoError(t, err)

	assert.Equal(t, "hidden", inner.String())
	assert.Equal(t, "shown", outer.String())
}
