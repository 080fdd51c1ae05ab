package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"simonwaldherr.de/go/mockserv/pkg/logging"
)

// Watcher reloads a Config whenever its file is written.
type Watcher struct {
	filename string
	config   *Config
	watcher  *fsnotify.Watcher
	onReload func(Settings)
}

// NewWatcher starts watching filename. The parent directory is watched
// instead of the file itself so that editors which save by rename are
// picked up too. onReload, if non-nil, runs after every successful reload.
func NewWatcher(filename string, config *Config, onReload func(Settings)) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create config watcher: %w", err)
	}
	abs, err := filepath.Abs(filename)
	if err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filename, err)
	}
	return &Watcher{filename: abs, config: config, watcher: w, onReload: onReload}, nil
}

// Run processes file events until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.filename {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			logging.Error("Config", err, "Config watcher error")
		}
	}
}

func (w *Watcher) reload() {
	logging.Info("Config", "Config file changed. Reloading...")
	s, err := Load(w.filename)
	if err != nil {
		logging.Error("Config", err, "Failed to reload config, keeping previous settings")
		return
	}
	w.config.Update(s)
	if w.onReload != nil {
		w.onReload(s)
	}
}
