// pattern: Imperative Shell

package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"devagent/internal/logging"
)

// debounceWindow collapses the burst of Write/Chmod events a single editor
// save tends to produce (temp file, rename, chmod) into one log line.
const debounceWindow = 300 * time.Millisecond

// Watcher watches a config file's parent directory for changes and logs
// them, debounced. It does not reload or apply config live — a running
// gateway keeps the Config it started with — but flags edits so an operator
// notices a change was saved without yet taking effect.
type Watcher struct {
	watcher    *fsnotify.Watcher
	configPath string
	logger     *logging.ScopedLogger
}

// NewWatcher creates a Watcher for configPath. Callers must call Start and
// then Close (or cancel the context passed to Start, which closes it).
func NewWatcher(configPath string, logger *logging.ScopedLogger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{watcher: w, configPath: configPath, logger: logger}, nil
}

// Start watches configPath's parent directory until ctx is cancelled.
// The directory (rather than the file itself) is watched so a save that
// replaces the file via rename is still observed.
func (w *Watcher) Start(ctx context.Context) error {
	dir := filepath.Dir(w.configPath)
	if err := w.watcher.Add(dir); err != nil {
		return err
	}
	defer func() { _ = w.watcher.Close() }()

	var debounce *time.Timer
	debounced := make(chan struct{})

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.configPath) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceWindow, func() {
				select {
				case debounced <- struct{}{}:
				case <-ctx.Done():
				}
			})

		case <-debounced:
			if w.logger != nil {
				w.logger.Info("config file changed on disk; restart to apply", "path", w.configPath)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			if w.logger != nil {
				w.logger.Warn("config watch error", "error", err)
			}
		}
	}
}
