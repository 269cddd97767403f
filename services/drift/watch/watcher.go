// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package watch re-analyzes source files as they change on disk. Editor
// save bursts are debounced per path and analyses for the same path never
// overlap.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Handler is invoked with the root-relative slash path of a settled file
// change.
type Handler func(ctx context.Context, path string)

// Config holds watcher configuration.
type Config struct {
	// Root is the directory watched recursively. Required.
	Root string

	// Extensions filters which files trigger the handler.
	// Empty means [".php"].
	Extensions []string

	// Debounce is how long a path must stay quiet before the handler
	// fires. Zero means 500ms.
	Debounce time.Duration

	// Logger for watch events. Defaults to slog.Default().
	Logger *slog.Logger
}

// Watcher drives a Handler from filesystem events.
//
// # Thread Safety
//
// Safe for concurrent use. Start should only be called once.
type Watcher struct {
	root       string
	extensions []string
	debounce   time.Duration
	watcher    *fsnotify.Watcher
	handler    Handler
	logger     *slog.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer

	// inFlight serializes handler runs per path.
	inFlight sync.Map
}

// NewWatcher creates a watcher over cfg.Root and registers all existing
// subdirectories, so events raised before Start is called are not lost.
//
// # Inputs
//
//   - cfg: Watcher configuration. Root is required.
//   - handler: Callback for settled changes. Must not be nil.
//
// # Outputs
//
//   - *Watcher: Ready-to-start watcher.
//   - error: Non-nil if the root cannot be walked or watches cannot be
//     registered.
func NewWatcher(cfg Config, handler Handler) (*Watcher, error) {
	if cfg.Root == "" {
		return nil, errors.New("root must not be empty")
	}
	if handler == nil {
		return nil, errors.New("handler must not be nil")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	extensions := cfg.Extensions
	if len(extensions) == 0 {
		extensions = []string{".php"}
	}
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	w := &Watcher{
		root:       cfg.Root,
		extensions: extensions,
		debounce:   debounce,
		watcher:    fsw,
		handler:    handler,
		logger:     logger,
		pending:    make(map[string]*time.Timer),
	}

	if err := w.addRecursive(cfg.Root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Start processes filesystem events. Blocks until ctx is cancelled or the
// watcher is stopped. Should be run in a goroutine.
func (w *Watcher) Start(ctx context.Context) {
	w.logger.Debug("watching for source changes",
		slog.String("root", w.root),
		slog.Duration("debounce", w.debounce))

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", slog.String("error", err.Error()))

		case <-ctx.Done():
			w.logger.Debug("watcher stopping")
			w.cancelPending()
			return
		}
	}
}

// Stop releases the underlying watcher. Safe to call multiple times.
func (w *Watcher) Stop() error {
	w.cancelPending()
	return w.watcher.Close()
}

// handleEvent routes one fsnotify event.
func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if event.Op&fsnotify.Create != 0 {
		// New directories must be registered to keep the watch
		// recursive. Stat through the watcher's view of the path.
		if w.isDirectory(event.Name) {
			if err := w.addRecursive(event.Name); err != nil {
				w.logger.Warn("failed to watch new directory",
					slog.String("path", event.Name),
					slog.String("error", err.Error()))
			}
			return
		}
	}

	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}
	if !w.matchesExtension(event.Name) {
		return
	}

	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil {
		return
	}
	w.schedule(ctx, filepath.ToSlash(rel))
}

// schedule debounces a changed path, resetting the timer on every new
// event for it.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[path]; ok {
		timer.Reset(w.debounce)
		return
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		w.runHandler(ctx, path)
	})
}

// runHandler invokes the handler, serialized per path.
func (w *Watcher) runHandler(ctx context.Context, path string) {
	muIface, _ := w.inFlight.LoadOrStore(path, &sync.Mutex{})
	pathMu := muIface.(*sync.Mutex)

	pathMu.Lock()
	defer pathMu.Unlock()

	w.handler(ctx, path)
}

func (w *Watcher) cancelPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
}

// addRecursive registers dir and every subdirectory, skipping hidden
// trees and vendor directories.
func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if path != dir && (strings.HasPrefix(name, ".") || name == "vendor" || name == "node_modules") {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
}

func (w *Watcher) isDirectory(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func (w *Watcher) matchesExtension(path string) bool {
	ext := filepath.Ext(path)
	for _, e := range w.extensions {
		if ext == e {
			return true
		}
	}
	return false
}
