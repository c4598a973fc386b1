package command

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingExecutor returns commands that run `true` and remembers the
// requested program and arguments.
type recordingExecutor struct {
	name string
	args []string
}

func (r *recordingExecutor) Command(name string, args ...string) *exec.Cmd {
	return r.CommandContext(context.Background(), name, args...)
}

func (r *recordingExecutor) CommandContext(ctx context.Context, name string, args ...string) *exec.Cmd {
	r.name = name
	r.args = args
	return exec.CommandContext(ctx, "true")
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"https", "https://hackclub.slack.com/archives/C06SBHMQU8G", false},
		{"http", "http://localhost:8080", false},
		{"slack deep link", "slack://channel?team=T0266FRGM&id=C06SBHMQU8G", false},
		{"file scheme", "file:///etc/passwd", true},
		{"flag", "--help", true},
		{"no host", "https://", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewSafeBuilder().Validate("url", tt.input)
			assert.Equal(t, tt.wantErr, err != nil, "err = %v", err)
		})
	}
}

func TestValidateMessage(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"plain", "Session started. Your goal: No Goal", false},
		{"multi-line", "Line one\nLine two", false},
		{"empty", "   ", true},
		{"flag", "-u critical", true},
		{"control", "bell\a", true},
		{"too long", string(make([]byte, maxMessageLength+1)), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateMessage(tt.input)
			assert.Equal(t, tt.wantErr, err != nil, "err = %v", err)
		})
	}
}

func TestValidateUnknownType(t *testing.T) {
	assert.Error(t, NewSafeBuilder().Validate("gitRef", "main"))
}

func TestBuildRejectsBadProgram(t *testing.T) {
	_, err := NewSafeBuilder().Build(context.Background(), "/bin/sh -c", "x")
	assert.Error(t, err)
}

func TestBuildAndRun(t *testing.T) {
	exec := &recordingExecutor{}
	sb := NewSafeBuilderWithExecutor(exec).WithTimeout(time.Second)

	cmd, err := sb.Build(context.Background(), "notify-send", "Arcade", "hello")
	require.NoError(t, err)
	assert.Equal(t, "notify-send Arcade hello", cmd.String())

	_, err = cmd.Run()
	require.NoError(t, err)
	assert.Equal(t, "notify-send", exec.name)
	assert.Equal(t, []string{"Arcade", "hello"}, exec.args)
}

func TestWithTimeoutClamped(t *testing.T) {
	sb := NewSafeBuilder().WithTimeout(time.Hour)
	assert.Equal(t, MaxTimeout, sb.defaultTimeout)
	sb.WithTimeout(0)
	assert.Equal(t, MaxTimeout, sb.defaultTimeout)
}

func TestOpenURLValidatesFirst(t *testing.T) {
	exec := &recordingExecutor{}
	err := NewSafeBuilderWithExecutor(exec).OpenURL(context.Background(), "javascript:alert(1)")
	assert.Error(t, err)
	assert.Empty(t, exec.name, "nothing executed")

	require.NoError(t, NewSafeBuilderWithExecutor(exec).OpenURL(context.Background(), "https://hackclub.com"))
	assert.Equal(t, []string{"https://hackclub.com"}, exec.args)
}
