package config

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

// countingReloader counts Reload calls
type countingReloader struct {
	calls atomic.Int32
}

func (c *countingReloader) Reload(ctx context.Context) error {
	c.calls.Add(1)
	return nil
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "search.yaml")
	if err := os.WriteFile(path, []byte(validConfig), 0o600); err != nil {
		t.Fatal(err)
	}

	reloader := &countingReloader{}
	w := NewWatcher(WatcherConfig{Path: path, Reloader: reloader, Debounce: 20 * time.Millisecond})
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(path, []byte(validConfig+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if !waitFor(t, 2*time.Second, func() bool { return reloader.calls.Load() >= 1 }) {
		t.Fatal("expected a reload after writing the config file")
	}
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "search.yaml")
	if err := os.WriteFile(path, []byte(validConfig), 0o600); err != nil {
		t.Fatal(err)
	}

	reloader := &countingReloader{}
	w := NewWatcher(WatcherConfig{Path: path, Reloader: reloader, Debounce: 200 * time.Millisecond})
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer w.Stop()

	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte(validConfig), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	if !waitFor(t, 2*time.Second, func() bool { return reloader.calls.Load() >= 1 }) {
		t.Fatal("expected a reload")
	}
	time.Sleep(400 * time.Millisecond)
	if got := reloader.calls.Load(); got != 1 {
		t.Errorf("reloads = %d, want 1", got)
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "search.yaml")
	if err := os.WriteFile(path, []byte(validConfig), 0o600); err != nil {
		t.Fatal(err)
	}

	reloader := &countingReloader{}
	w := NewWatcher(WatcherConfig{Path: path, Reloader: reloader, Debounce: 20 * time.Millisecond})
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x: 1"), 0o600); err != nil {
		t.Fatal(err)
	}

	time.Sleep(200 * time.Millisecond)
	if got := reloader.calls.Load(); got != 0 {
		t.Errorf("reloads = %d, want 0", got)
	}
}

func TestWatcher_StartStop(t *testing.T) {
	dir := t.TempDir()
	w := NewWatcher(WatcherConfig{Path: filepath.Join(dir, "search.yaml"), Reloader: &countingReloader{}})

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	// second Start is a no-op
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	w.Stop()
	w.Stop()
}

func TestWatcher_MissingDirectory(t *testing.T) {
	w := NewWatcher(WatcherConfig{Path: filepath.Join(t.TempDir(), "nope", "search.yaml"), Reloader: &countingReloader{}})
	if err := w.Start(context.Background()); err == nil {
		w.Stop()
		t.Fatal("expected error watching a missing directory")
	}
}
