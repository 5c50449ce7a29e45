package config

import (
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/therealutkarshpriyadarshi/csvlog/internal/logging"
)

// Watcher reloads the configuration file when it changes on disk and
// delivers each successfully parsed config on Changes. Edits that no
// longer validate are logged and skipped, keeping the last good config in
// effect.
type Watcher struct {
	path    string
	logger  *logging.Logger
	watcher *fsnotify.Watcher
	changes chan *Config
	done    chan struct{}
}

// NewWatcher starts watching the config file's directory. Watching the
// directory rather than the file survives editors that replace the file
// on save.
func NewWatcher(path string, logger *logging.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create config watcher: %w", err)
	}

	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch config directory: %w", err)
	}

	w := &Watcher{
		path:    path,
		logger:  logger.WithComponent("config-watcher"),
		watcher: fsw,
		changes: make(chan *Config, 1),
		done:    make(chan struct{}),
	}

	go w.loop()

	return w, nil
}

// Changes delivers reloaded configurations.
func (w *Watcher) Changes() <-chan *Config {
	return w.changes
}

// Close stops watching.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}

func (w *Watcher) loop() {
	defer close(w.changes)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			cfg, err := Load(w.path)
			if err != nil {
				w.logger.Warn().Err(err).Msg("Ignoring invalid config change")
				continue
			}

			w.logger.Info().Str("path", w.path).Msg("Configuration reloaded")

			// Drop a stale pending config so the consumer always sees
			// the newest one.
			select {
			case <-w.changes:
			default:
			}
			w.changes <- cfg

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn().Err(err).Msg("Config watcher error")

		case <-w.done:
			return
		}
	}
}
