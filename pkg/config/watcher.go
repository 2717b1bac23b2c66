package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Notifier receives changed-file paths from a Watcher. *Cache implements
// it.
type Notifier interface {
	NotifyPathChanged(path string)
}

const defaultDebounce = 100 * time.Millisecond

// Watcher pushes filesystem changes under the configuration root into a
// Notifier. Invalidation happens immediately per event; the optional
// onChange callback is debounced so that a burst of writes, as editors and
// sync tools produce, triggers one rebuild.
type Watcher struct {
	root     string
	notifier Notifier
	logger   *slog.Logger
	onChange func()
	debounce time.Duration

	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	done    chan struct{}
}

// WatcherOption adjusts a Watcher at construction.
type WatcherOption func(*Watcher)

// WithOnChange installs a callback invoked, debounced, after invalidations.
func WithOnChange(fn func()) WatcherOption {
	return func(w *Watcher) { w.onChange = fn }
}

// WithDebounce overrides the callback debounce interval.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.debounce = d }
}

// NewWatcher watches root and its immediate subdirectories. Profile
// directories created later are picked up from their create events.
func NewWatcher(root string, notifier Notifier, logger *slog.Logger, opts ...WatcherOption) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating filesystem watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		root:     root,
		notifier: notifier,
		logger:   logger,
		debounce: defaultDebounce,
		watcher:  fsw,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	if err := fsw.Add(root); err != nil {
		cancel()
		_ = fsw.Close()
		return nil, fmt.Errorf("watching %s: %w", root, err)
	}
	entries, err := os.ReadDir(root)
	if err == nil {
		for _, entry := range entries {
			if entry.IsDir() {
				w.addDir(filepath.Join(root, entry.Name()))
			}
		}
	}

	go w.loop(ctx)
	return w, nil
}

// Close stops the watch loop and releases the notification handle.
func (w *Watcher) Close() error {
	w.cancel()
	err := w.watcher.Close()
	<-w.done
	return err
}

func (w *Watcher) addDir(path string) {
	if err := w.watcher.Add(path); err != nil {
		w.logger.Warn("Watching configuration directory failed", "path", path, "error", err)
	}
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)
	var debounceTimer *time.Timer

	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Remove) &&
				!event.Has(fsnotify.Rename) {
				continue
			}
			path := filepath.Clean(event.Name)
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(path); err == nil && info.IsDir() {
					w.addDir(path)
				}
			}
			w.notifier.NotifyPathChanged(path)

			if w.onChange != nil {
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(w.debounce, w.onChange)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Filesystem watcher error", "error", err)
		}
	}
}
