package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerIsCachedPerComponent(t *testing.T) {
	t.Setenv("ARCADE_HOME", t.TempDir())

	a := NewLogger("cache-test")
	b := NewLogger("cache-test")
	assert.Same(t, a, b)
	assert.Equal(t, "cache-test", a.Data["component"])
}

func TestTextFormatter(t *testing.T) {
	tests := []struct {
		name    string
		config  FormatConfig
		entry   *logrus.Entry
		want    []string
		notWant []string
	}{
		{
			name:   "default format",
			config: FormatConfig{},
			entry: &logrus.Entry{
				Level:   logrus.InfoLevel,
				Message: "session fetched",
				Data:    logrus.Fields{"component": "engine", "phase": "active"},
			},
			want: []string{"[INFO]", "engine", "session fetched", "phase=active"},
		},
		{
			name:   "simple format",
			config: FormatConfig{DisableTimestamp: true, DisableComponent: true},
			entry: &logrus.Entry{
				Level:   logrus.WarnLevel,
				Message: "poll failed",
				Data:    logrus.Fields{"component": "engine"},
			},
			want:    []string{"[WARN]", "poll failed"},
			notWant: []string{"engine"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.entry.Time = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
			f := &TextFormatter{Config: tt.config}
			out, err := f.Format(tt.entry)
			require.NoError(t, err)
			for _, w := range tt.want {
				assert.Contains(t, string(out), w)
			}
			for _, nw := range tt.notWant {
				assert.NotContains(t, string(out), nw)
			}
			if tt.config.DisableTimestamp {
				assert.False(t, strings.HasPrefix(string(out), "2024"))
			} else {
				assert.True(t, strings.HasPrefix(string(out), "2024-06-01 12:00:00"))
			}
		})
	}
}

func TestTextFormatterSortsFields(t *testing.T) {
	f := &TextFormatter{Config: FormatConfig{DisableTimestamp: true}}
	out, err := f.Format(&logrus.Entry{
		Level:   logrus.InfoLevel,
		Message: "m",
		Data:    logrus.Fields{"b": 2, "a": 1, "c": 3},
	})
	require.NoError(t, err)
	assert.Equal(t, "[INFO] m a=1 b=2 c=3\n", string(out))
}

func TestShouldLogToStderr(t *testing.T) {
	tests := []struct {
		name        string
		mode        string
		level       logrus.Level
		interactive bool
		want        bool
	}{
		{"always", "always", logrus.InfoLevel, true, true},
		{"never", "never", logrus.DebugLevel, false, false},
		{"auto interactive info", "", logrus.InfoLevel, true, false},
		{"auto interactive debug", "auto", logrus.DebugLevel, true, true},
		{"auto piped", "auto", logrus.InfoLevel, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ARCADE_DEBUG", "")
			assert.Equal(t, tt.want, shouldLogToStderr(tt.mode, tt.level, tt.interactive))
		})
	}
}

func TestNewLoggerWritesFileAndStderr(t *testing.T) {
	t.Setenv("ARCADE_LOG_LEVEL", "debug")
	path := filepath.Join(t.TempDir(), "logs", "engine.log")
	var stderr bytes.Buffer

	entry := newLogger("engine", Config{
		File:   FileSinkConfig{Path: path},
		Format: FormatConfig{StructuredToStderr: "always"},
	}, &stderr, true)

	entry.Debug("poll scheduled")
	assert.Equal(t, logrus.DebugLevel, entry.Logger.GetLevel())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "poll scheduled")
	assert.Contains(t, stderr.String(), "poll scheduled")
}

func TestNewLoggerDisabledSinks(t *testing.T) {
	t.Setenv("ARCADE_LOG_LEVEL", "")
	var stderr bytes.Buffer
	entry := newLogger("quiet", Config{
		Level:  "bogus",
		File:   FileSinkConfig{Disabled: true},
		Format: FormatConfig{StructuredToStderr: "never"},
	}, &stderr, true)

	entry.Info("nothing")
	assert.Empty(t, stderr.String())
	assert.Equal(t, logrus.InfoLevel, entry.Logger.GetLevel(), "invalid level falls back to info")
}

func TestJSONPreset(t *testing.T) {
	var stderr bytes.Buffer
	entry := newLogger("json", Config{
		File:   FileSinkConfig{Disabled: true},
		Format: FormatConfig{Preset: "json", StructuredToStderr: "always"},
	}, &stderr, false)

	entry.WithField("seq", 3).Info("applied")
	assert.Contains(t, stderr.String(), `"component":"json"`)
	assert.Contains(t, stderr.String(), `"seq":3`)
}

func TestLogFilePath(t *testing.T) {
	t.Setenv("ARCADE_HOME", "/tmp/arcade-home")
	day := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "/tmp/arcade-home/state/logs/daemon-2024-06-01.log", LogFilePath("daemon", Config{}, day))
	assert.Equal(t, "/var/log/arcade.log", LogFilePath("daemon", Config{File: FileSinkConfig{Path: "/var/log/arcade.log"}}, day))
}

func TestGlobalOutput(t *testing.T) {
	var buf bytes.Buffer
	SetGlobalOutput(&buf)
	defer SetGlobalOutput(os.Stderr)

	_, err := GetGlobalOutput().Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, "hello", buf.String())
}

func TestPrettyLogger(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrettyLogger().WithWriter(&buf)

	p.Success("Credentials saved")
	p.Field("Session", "abc123")
	p.ErrorPretty("Failed", assert.AnError)

	out := buf.String()
	assert.Contains(t, out, "Credentials saved")
	assert.Contains(t, out, "abc123")
	assert.Contains(t, out, assert.AnError.Error())
}
