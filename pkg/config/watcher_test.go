package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcher_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "throttle.yaml")
	if err := os.WriteFile(path, []byte("rates:\n  per_second: 10\n"), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Config, 1)
	watcher := NewWatcher(path, 20*time.Millisecond)

	watchErr := make(chan error, 1)
	go func() {
		watchErr <- watcher.Watch(ctx, func(cfg *Config) {
			select {
			case reloaded <- cfg:
			default:
			}
		})
	}()

	// Give the watcher a moment to install before mutating the file.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("rates:\n  per_second: 99\n"), 0o644); err != nil {
		t.Fatalf("Failed to rewrite config: %v", err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.Rates.PerSecond != 99 {
			t.Errorf("Expected the reloaded rate, got %d", cfg.Rates.PerSecond)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Expected a reload after the file changed")
	}

	cancel()
	select {
	case err := <-watchErr:
		if err != nil {
			t.Errorf("Expected a clean shutdown, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Expected Watch to return after cancellation")
	}
}

func TestWatcher_SkipsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "throttle.yaml")
	if err := os.WriteFile(path, []byte("rates:\n  per_second: 10\n"), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Config, 4)
	watcher := NewWatcher(path, 20*time.Millisecond)
	go func() {
		_ = watcher.Watch(ctx, func(cfg *Config) { reloaded <- cfg })
	}()

	time.Sleep(100 * time.Millisecond)

	// An invalid rewrite must not reach the callback.
	if err := os.WriteFile(path, []byte("rates:\n  per_second: -1\n"), 0o644); err != nil {
		t.Fatalf("Failed to rewrite config: %v", err)
	}

	select {
	case <-reloaded:
		t.Fatal("Expected no callback for an invalid configuration")
	case <-time.After(500 * time.Millisecond):
	}

	// A subsequent valid rewrite recovers.
	if err := os.WriteFile(path, []byte("rates:\n  per_second: 25\n"), 0o644); err != nil {
		t.Fatalf("Failed to rewrite config: %v", err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.Rates.PerSecond != 25 {
			t.Errorf("Expected the recovered rate, got %d", cfg.Rates.PerSecond)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Expected a reload once the file is valid again")
	}
}

func TestWatcher_RejectsDoubleWatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "throttle.yaml")
	if err := os.WriteFile(path, []byte("rates:\n  per_second: 10\n"), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watcher := NewWatcher(path, 0)
	go func() { _ = watcher.Watch(ctx, func(*Config) {}) }()
	time.Sleep(100 * time.Millisecond)

	if err := watcher.Watch(ctx, func(*Config) {}); err == nil {
		t.Error("Expected the second concurrent Watch to be rejected")
	}
}
