// Package filewatch reports changes to a single file, coalescing bursts of
// filesystem events into one callback.
package filewatch

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/KirkDiggler/rpg-compendium/internal/errors"
)

// DefaultDebounce is the quiet period after the last event before OnChange
// runs
const DefaultDebounce = 500 * time.Millisecond

// Config configures a Watcher
type Config struct {
	// Path of the watched file. The file does not need to exist yet.
	Path     string
	Debounce time.Duration
	OnChange func()
}

// Validate checks the config and sets defaults
func (c *Config) Validate() error {
	if c == nil {
		return errors.InvalidArgument("config cannot be nil")
	}
	vb := errors.NewValidationBuilder()
	if c.Path == "" {
		vb.RequiredField("Path")
	}
	if c.OnChange == nil {
		vb.RequiredField("OnChange")
	}
	if c.Debounce < 0 {
		vb.InvalidField("Debounce", "must not be negative")
	}
	if c.Debounce == 0 {
		c.Debounce = DefaultDebounce
	}
	return vb.Build()
}

// Watcher watches the parent directory of a file so that atomic
// replace-by-rename is observed
type Watcher struct {
	path     string
	debounce time.Duration
	onChange func()

	mu    sync.Mutex
	timer *time.Timer
}

// New creates a watcher. Nothing is watched until Run is called.
func New(cfg *Config) (*Watcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	path, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve %s", cfg.Path)
	}
	return &Watcher{
		path:     filepath.Clean(path),
		debounce: cfg.Debounce,
		onChange: cfg.OnChange,
	}, nil
}

// Run blocks until ctx is done. A pending callback is dropped on return.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create watcher")
	}
	defer fw.Close()

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		return errors.Unavailablef("failed to watch %s: %v", dir, err)
	}
	slog.Debug("Watching file", "path", w.path)

	defer w.stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				w.schedule()
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("File watch error", "path", w.path, "error", err)
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.onChange)
}

func (w *Watcher) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}
