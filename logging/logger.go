package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/grovetools/arcade/config"
	"github.com/grovetools/arcade/pkg/paths"
	"github.com/grovetools/arcade/util/pathutil"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

var (
	loggers   = make(map[string]*logrus.Entry)
	loggersMu sync.Mutex
)

// NewLogger creates and returns a pre-configured logger for a specific component.
// Loggers are cached per component.
func NewLogger(component string) *logrus.Entry {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	if logger, exists := loggers[component]; exists {
		return logger
	}

	var logCfg Config
	if cfg, err := config.LoadDefault(); err == nil {
		if err := cfg.UnmarshalExtension("logging", &logCfg); err != nil {
			logrus.Warnf("Failed to parse 'logging' config: %v", err)
		}
	}

	entry := newLogger(component, logCfg, GetGlobalOutput(), isInteractive())
	loggers[component] = entry
	return entry
}

// newLogger builds a logger from an explicit config. stderr is the writer
// used for the structured stderr sink.
func newLogger(component string, logCfg Config, stderr io.Writer, interactive bool) *logrus.Entry {
	logger := logrus.New()

	levelStr := "info"
	if env := os.Getenv("ARCADE_LOG_LEVEL"); env != "" {
		levelStr = env
	} else if logCfg.Level != "" {
		levelStr = logCfg.Level
	}
	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if os.Getenv("ARCADE_LOG_CALLER") == "true" || logCfg.ReportCaller {
		logger.SetReportCaller(true)
	}

	switch logCfg.Format.Preset {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "simple":
		logger.SetFormatter(&TextFormatter{Config: FormatConfig{
			DisableTimestamp: true,
			DisableComponent: true,
		}})
	default:
		logger.SetFormatter(&TextFormatter{Config: logCfg.Format})
	}

	var writers []io.Writer
	if !logCfg.File.Disabled {
		path := LogFilePath(component, logCfg, time.Now())
		if file, err := openLogFile(path); err == nil {
			writers = append(writers, file)
		} else if logCfg.File.Path != "" {
			logger.Warnf("Failed to open log file %s: %v", path, err)
		}
	}

	if shouldLogToStderr(logCfg.Format.StructuredToStderr, level, interactive) {
		writers = append(writers, stderr)
	}

	switch len(writers) {
	case 0:
		logger.SetOutput(io.Discard)
	case 1:
		logger.SetOutput(writers[0])
	default:
		logger.SetOutput(io.MultiWriter(writers...))
	}

	return logger.WithField("component", component)
}

// LogFilePath returns the log file a component writes to on the given day.
func LogFilePath(component string, logCfg Config, now time.Time) string {
	if logCfg.File.Path != "" {
		return pathutil.ExpandHome(logCfg.File.Path)
	}
	return filepath.Join(paths.LogDir(), fmt.Sprintf("%s-%s.log", component, now.Format("2006-01-02")))
}

// LoadConfig reads the "logging" section of the default configuration.
func LoadConfig() Config {
	var logCfg Config
	if cfg, err := config.LoadDefault(); err == nil {
		_ = cfg.UnmarshalExtension("logging", &logCfg)
	}
	return logCfg
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
}

// shouldLogToStderr resolves the structured_to_stderr mode. In "auto" mode
// structured logs reach stderr only when debugging or when stderr is not a
// terminal, so interactive commands stay quiet.
func shouldLogToStderr(mode string, level logrus.Level, interactive bool) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	default:
		isDebug := os.Getenv("ARCADE_DEBUG") == "1" || level >= logrus.DebugLevel
		return isDebug || !interactive
	}
}

func isInteractive() bool {
	return isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
}
