package daemon

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/grovetools/arcade/logging"
	"github.com/grovetools/arcade/pkg/paths"
	"github.com/sirupsen/logrus"
)

// watchedFiles are the base names whose changes trigger a reload.
var watchedFiles = map[string]bool{
	"arcade.yml":           true,
	"arcade.yaml":          true,
	"arcade.toml":          true,
	"arcade.override.yml":  true,
	"arcade.override.yaml": true,
	"arcade.override.toml": true,
	"state.yml":            true,
}

// ConfigWatcher watches the config and state files and reports changes
// through onReload.
type ConfigWatcher struct {
	watcher      *fsnotify.Watcher
	debounce     time.Duration
	lastChange   map[string]time.Time
	mu           sync.Mutex
	logger       *logrus.Entry
	onReload     func(file string)
	targetToLink map[string]string // Maps symlink targets to the link path
}

// NewConfigWatcher creates a watcher for the config directory and the
// directory holding state.yml. The onReload callback receives the base name
// of the changed file.
func NewConfigWatcher(debounce time.Duration, onReload func(string)) (*ConfigWatcher, error) {
	return NewConfigWatcherFor([]string{paths.ConfigDir(), filepath.Dir(paths.StatePath())}, debounce, onReload)
}

// NewConfigWatcherFor watches the given directories. Missing directories
// are created so a config written later is still seen.
// It also watches symlink target directories so changes to linked files are detected.
func NewConfigWatcherFor(dirs []string, debounce time.Duration, onReload func(string)) (*ConfigWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	logger := logging.NewLogger("config-watcher")
	watchedDirs := make(map[string]bool)
	targetToLink := make(map[string]string)

	for _, dir := range dirs {
		if watchedDirs[dir] {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			watcher.Close()
			return nil, err
		}
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return nil, err
		}
		watchedDirs[dir] = true

		// fsnotify doesn't follow symlinks, so we need to watch targets explicitly
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if !watchedFiles[entry.Name()] || entry.Type()&os.ModeSymlink == 0 {
				continue
			}
			link := filepath.Join(dir, entry.Name())
			target, err := filepath.EvalSymlinks(link)
			if err != nil {
				logger.WithError(err).Warnf("Failed to resolve symlink %s", entry.Name())
				continue
			}
			targetToLink[target] = link

			targetDir := filepath.Dir(target)
			if watchedDirs[targetDir] {
				continue
			}
			if err := watcher.Add(targetDir); err != nil {
				logger.WithError(err).Warnf("Failed to watch symlink target dir %s", targetDir)
				continue
			}
			watchedDirs[targetDir] = true
			logger.Debugf("Watching symlink target directory: %s", targetDir)
		}
	}

	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}

	return &ConfigWatcher{
		watcher:      watcher,
		debounce:     debounce,
		lastChange:   make(map[string]time.Time),
		logger:       logger,
		onReload:     onReload,
		targetToLink: targetToLink,
	}, nil
}

// Start begins watching for config changes. It blocks until the context is cancelled.
func (w *ConfigWatcher) Start(ctx context.Context) {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.logger.Debugf("fsnotify event: %s op=%v", event.Name, event.Op)

			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			name := event.Name
			if link, ok := w.targetToLink[name]; ok {
				w.logger.Debugf("Mapped symlink target %s -> %s", name, link)
				name = link
			}
			if watchedFiles[filepath.Base(name)] {
				w.handleChange(name)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Errorf("Watcher error: %v", err)
		case <-ctx.Done():
			w.watcher.Close()
			return
		}
	}
}

// handleChange processes a config file change with debouncing.
func (w *ConfigWatcher) handleChange(file string) {
	base := filepath.Base(file)

	w.mu.Lock()
	elapsed := time.Since(w.lastChange[base])
	if elapsed < w.debounce {
		w.mu.Unlock()
		w.logger.Debugf("Debounced: %s (only %v since last change)", base, elapsed)
		return
	}
	w.lastChange[base] = time.Now()
	w.mu.Unlock()

	w.logger.Infof("Config changed: %s", base)
	if w.onReload != nil {
		w.onReload(base)
	}
}

// Close stops the watcher and releases resources.
func (w *ConfigWatcher) Close() error {
	return w.watcher.Close()
}
