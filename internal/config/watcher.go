package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/sercha-search/internal/core/ports/driving"
)

// DefaultDebounce coalesces the burst of events an editor save produces
const DefaultDebounce = 250 * time.Millisecond

// Watcher reloads the configuration when its file changes. It watches the
// file's directory, so atomic replace-by-rename saves are seen too.
type Watcher struct {
	path     string
	reloader driving.ConfigReloader
	debounce time.Duration
	logger   *slog.Logger

	// Internal state
	mu      sync.Mutex
	running bool
	fsw     *fsnotify.Watcher
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// WatcherConfig holds configuration for the watcher.
type WatcherConfig struct {
	Path     string
	Reloader driving.ConfigReloader
	Debounce time.Duration // Quiet period before reloading (default: 250ms)
	Logger   *slog.Logger
}

// NewWatcher creates a new config file watcher.
func NewWatcher(cfg WatcherConfig) *Watcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	return &Watcher{
		path:     filepath.Clean(cfg.Path),
		reloader: cfg.Reloader,
		debounce: debounce,
		logger:   logger,
	}
}

// Start begins watching. It runs until Stop is called or ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(w.path), err)
	}

	w.fsw = fsw
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})

	w.logger.Info("config watcher starting", "path", w.path, "debounce", w.debounce)

	go w.run(ctx, fsw, w.stopCh, w.doneCh)
	return nil
}

// Stop stops watching and waits for a pending reload to finish.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	close(w.stopCh)
	doneCh := w.doneCh
	w.mu.Unlock()

	<-doneCh

	w.mu.Lock()
	_ = w.fsw.Close()
	w.fsw = nil
	w.running = false
	w.mu.Unlock()

	w.logger.Info("config watcher stopped")
}

func (w *Watcher) run(ctx context.Context, fsw *fsnotify.Watcher, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			timer.Reset(w.debounce)

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", "error", err)

		case <-timer.C:
			if err := w.reloader.Reload(ctx); err != nil {
				w.logger.Warn("config change not applied", "path", w.path, "error", err)
			}
		}
	}
}

// relevant reports whether event touches the config file in a way that can
// change its content.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}
