// Package activity turns file writes under the configured watch paths into
// editing activity events for the idle nudge tracker.
package activity

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/grovetools/arcade/util/pathutil"
	"github.com/moby/patternmatcher"
	"github.com/sirupsen/logrus"
)

// DefaultIgnore is always applied on top of the configured patterns.
var DefaultIgnore = []string{".git", "**/.git", "**/node_modules", "**/vendor", "**/*.swp", "**/*~", "**/.DS_Store"}

// DefaultDebounce collapses the burst of events a single save produces.
const DefaultDebounce = time.Second

// Watcher watches directory trees recursively.
type Watcher struct {
	watcher    *fsnotify.Watcher
	roots      []string
	matcher    *patternmatcher.PatternMatcher
	debounce   time.Duration
	onActivity func(path string)
	logger     *logrus.Entry

	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

// New creates a watcher over roots. Paths starting with ~ are expanded.
// onActivity is called at most once per debounce window.
func New(roots, ignore []string, debounce time.Duration, onActivity func(string), logger *logrus.Entry) (*Watcher, error) {
	matcher, err := patternmatcher.New(append(append([]string{}, DefaultIgnore...), ignore...))
	if err != nil {
		return nil, fmt.Errorf("invalid ignore pattern: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w := &Watcher{
		watcher:    fw,
		matcher:    matcher,
		debounce:   debounce,
		onActivity: onActivity,
		logger:     logger,
		now:        time.Now,
	}
	for _, root := range roots {
		abs, err := pathutil.Expand(root)
		if err != nil {
			logger.WithError(err).WithField("path", root).Warn("Skipping activity watch path")
			continue
		}
		if w.covered(abs) {
			continue
		}
		if info, err := os.Stat(abs); err != nil || !info.IsDir() {
			logger.WithField("path", root).Warn("Skipping activity watch path: not a directory")
			continue
		}
		w.roots = append(w.roots, abs)
		if err := w.addTree(abs); err != nil {
			_ = fw.Close()
			return nil, err
		}
	}
	return w, nil
}

// Roots returns the absolute watched roots.
func (w *Watcher) Roots() []string {
	return w.roots
}

// addTree registers dir and every non-ignored subdirectory.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtrees are skipped, not fatal.
			if d != nil && d.IsDir() && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && w.ignored(path) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			w.logger.WithError(err).WithField("path", path).Debug("Failed to watch directory")
		}
		return nil
	})
}

// ignored matches path, relative to its root, against the ignore patterns.
func (w *Watcher) ignored(path string) bool {
	for _, root := range w.roots {
		rel, err := filepath.Rel(root, path)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		match, err := w.matcher.MatchesOrParentMatches(filepath.ToSlash(rel))
		return err == nil && match
	}
	return false
}

// Start processes events until ctx is canceled.
func (w *Watcher) Start(ctx context.Context) {
	defer w.watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.WithError(err).Warn("Activity watcher error")
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 || w.ignored(event.Name) {
		return
	}
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			_ = w.addTree(event.Name)
			return
		}
	}

	w.mu.Lock()
	now := w.now()
	if !w.last.IsZero() && now.Sub(w.last) < w.debounce {
		w.mu.Unlock()
		return
	}
	w.last = now
	w.mu.Unlock()

	w.logger.WithField("path", event.Name).Debug("Editing activity")
	if w.onActivity != nil {
		w.onActivity(event.Name)
	}
}

// Close stops the underlying watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// covered reports whether dir is already inside a watched root.
func (w *Watcher) covered(dir string) bool {
	for _, r := range w.roots {
		if pathutil.Within(r, dir) {
			return true
		}
	}
	return false
}
