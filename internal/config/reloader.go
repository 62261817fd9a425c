package config

import (
	"context"
	"log/slog"
	"sync"

	"github.com/custodia-labs/sercha-search/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-search/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-search/internal/runtime"
)

// Ensure Reloader implements ConfigReloader
var _ driving.ConfigReloader = (*Reloader)(nil)

// Reloader re-reads the configuration file into the index registry. The
// registry swap also invalidates the result cache.
type Reloader struct {
	path     string
	registry *runtime.Registry
	observer driven.SearchObserver
	logger   *slog.Logger

	// mu serializes reloads from the watcher, signals and the admin API
	mu sync.Mutex
}

// ReloaderConfig holds configuration for the reloader.
type ReloaderConfig struct {
	Path     string
	Registry *runtime.Registry
	Observer driven.SearchObserver // Optional: metrics
	Logger   *slog.Logger
}

// NewReloader creates a new Reloader
func NewReloader(cfg ReloaderConfig) *Reloader {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	observer := cfg.Observer
	if observer == nil {
		observer = driven.NopObserver{}
	}
	return &Reloader{
		path:     cfg.Path,
		registry: cfg.Registry,
		observer: observer,
		logger:   logger,
	}
}

// Path returns the watched configuration file
func (r *Reloader) Path() string {
	return r.path
}

// Reload loads the file and swaps in its indexes. A file that fails to
// load or validate leaves the current indexes in place.
func (r *Reloader) Reload(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfg, err := Load(r.path)
	if err != nil {
		r.observer.ObserveReload(false, 0)
		r.logger.Error("config reload failed", "path", r.path, "error", err)
		return err
	}

	indexes, err := cfg.IndexConfigs()
	if err == nil {
		err = r.registry.Reload(ctx, indexes)
	}
	if err != nil {
		r.observer.ObserveReload(false, 0)
		r.logger.Error("config reload failed", "path", r.path, "error", err)
		return err
	}

	r.observer.ObserveReload(true, len(indexes))
	r.logger.Info("config reloaded", "path", r.path, "indexes", r.registry.Names())
	return nil
}
