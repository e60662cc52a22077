// Package watch re-ingests the source exports when they change on disk.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ReloadFunc rebuilds the dataset.
type ReloadFunc func(ctx context.Context) error

// Watcher calls a ReloadFunc once a burst of changes to any watched file has
// settled for the debounce interval.
type Watcher struct {
	logger   *slog.Logger
	debounce time.Duration
	reload   ReloadFunc
	files    map[string]struct{}
	dirs     map[string]struct{}
}

// New constructs a watcher for paths. Parent directories are watched so that
// files replaced by rename are still seen.
func New(logger *slog.Logger, debounce time.Duration, reload ReloadFunc, paths ...string) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if reload == nil {
		return nil, fmt.Errorf("reload func is required")
	}
	if debounce <= 0 {
		debounce = time.Second
	}
	w := &Watcher{
		logger:   logger,
		debounce: debounce,
		reload:   reload,
		files:    make(map[string]struct{}, len(paths)),
		dirs:     make(map[string]struct{}, len(paths)),
	}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", p, err)
		}
		w.files[abs] = struct{}{}
		w.dirs[filepath.Dir(abs)] = struct{}{}
	}
	return w, nil
}

// Run blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	for dir := range w.dirs {
		if err := fsw.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	w.logger.Info("watching sources", slog.Int("files", len(w.files)), slog.Duration("debounce", w.debounce))

	// Reset discards any stale fire, so the timer needs no draining.
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("source changed", slog.String("path", event.Name), slog.String("op", event.Op.String()))
			timer.Reset(w.debounce)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", slog.Any("error", err))
		case <-timer.C:
			if err := w.reload(ctx); err != nil {
				w.logger.Error("reload after change failed", slog.Any("error", err))
			}
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	_, ok := w.files[abs]
	return ok
}
