// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWatcherValidation(t *testing.T) {
	_, err := NewWatcher(Config{}, func(context.Context, string) {})
	require.Error(t, err)

	_, err = NewWatcher(Config{Root: t.TempDir()}, nil)
	require.Error(t, err)

	_, err = NewWatcher(Config{Root: filepath.Join(t.TempDir(), "missing")},
		func(context.Context, string) {})
	require.Error(t, err)
}

// startWatcher builds a watcher whose handler forwards paths to a channel
// and runs it until the test ends.
func startWatcher(t *testing.T, root string, debounce time.Duration) <-chan string {
	t.Helper()

	paths := make(chan string, 32)
	w, err := NewWatcher(Config{Root: root, Debounce: debounce},
		func(_ context.Context, path string) {
			paths <- path
		})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Start(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, w.Stop())
		<-done
	})
	return paths
}

func waitForPath(t *testing.T, paths <-chan string, timeout time.Duration) (string, bool) {
	t.Helper()
	select {
	case p := <-paths:
		return p, true
	case <-time.After(timeout):
		return "", false
	}
}

func TestWatcherReportsSettledWrite(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "app"), 0o755))

	paths := startWatcher(t, root, 30*time.Millisecond)

	file := filepath.Join(root, "app", "Cart.php")
	require.NoError(t, os.WriteFile(file, []byte("<?php class Cart {}\n"), 0o644))

	got, ok := waitForPath(t, paths, 3*time.Second)
	require.True(t, ok, "expected a change notification")
	assert.Equal(t, "app/Cart.php", got)
}

func TestWatcherDebouncesBursts(t *testing.T) {
	root := t.TempDir()

	var calls atomic.Int64
	w, err := NewWatcher(Config{Root: root, Debounce: 150 * time.Millisecond},
		func(context.Context, string) {
			calls.Add(1)
		})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)
	t.Cleanup(func() { _ = w.Stop() })

	file := filepath.Join(root, "Order.php")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(file, []byte("<?php // rev\n"), 0o644))
		time.Sleep(10 * time.Millisecond)
	}

	// All five writes land inside one debounce window.
	time.Sleep(600 * time.Millisecond)
	assert.Equal(t, int64(1), calls.Load())
}

func TestWatcherIgnoresOtherExtensions(t *testing.T) {
	root := t.TempDir()
	paths := startWatcher(t, root, 30*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"),
		[]byte("not source\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "Cart.php"),
		[]byte("<?php class Cart {}\n"), 0o644))

	// The text file was written first. If it triggered the handler its
	// path would arrive ahead of the PHP one.
	got, ok := waitForPath(t, paths, 3*time.Second)
	require.True(t, ok)
	assert.Equal(t, "Cart.php", got)
}

func TestWatcherPicksUpNewDirectories(t *testing.T) {
	root := t.TempDir()
	paths := startWatcher(t, root, 30*time.Millisecond)

	sub := filepath.Join(root, "src")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	// The directory registration races the first write into it, so keep
	// rewriting until a notification arrives.
	file := filepath.Join(sub, "Invoice.php")
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		require.NoError(t, os.WriteFile(file, []byte("<?php class Invoice {}\n"), 0o644))
		if got, ok := waitForPath(t, paths, 200*time.Millisecond); ok {
			assert.Equal(t, "src/Invoice.php", got)
			return
		}
	}
	t.Fatal("no notification for file in newly created directory")
}

func TestWatcherStopEndsStart(t *testing.T) {
	root := t.TempDir()
	w, err := NewWatcher(Config{Root: root},
		func(context.Context, string) {})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Start(ctx)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after context cancellation")
	}
	require.NoError(t, w.Stop())
}

func TestWatcherSerializesRunsPerPath(t *testing.T) {
	root := t.TempDir()

	var inHandler atomic.Int64
	var overlapped atomic.Bool
	w, err := NewWatcher(Config{Root: root},
		func(context.Context, string) {
			if inHandler.Add(1) > 1 {
				overlapped.Store(true)
			}
			time.Sleep(20 * time.Millisecond)
			inHandler.Add(-1)
		})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.runHandler(context.Background(), "app/Cart.php")
		}()
	}
	wg.Wait()
	assert.False(t, overlapped.Load(), "handler runs for one path overlapped")
}

func TestMatchesExtension(t *testing.T) {
	w := &Watcher{extensions: []string{".php"}}
	assert.True(t, w.matchesExtension("app/Cart.php"))
	assert.False(t, w.matchesExtension("app/Cart.phps"))
	assert.False(t, w.matchesExtension("README.md"))
	assert.False(t, w.matchesExtension("no-extension"))
}
