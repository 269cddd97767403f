// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/DocDrift/services/drift/analyze"
	"github.com/AleutianAI/DocDrift/services/drift/watch"
)

// runWatch is the CLI handler for "docdrift watch".
//
// Watches the repository (or the given directory) and re-analyzes each
// source file shortly after it settles on disk. Runs until interrupted.
//
// # Exit Codes
//
//   - 0: Stopped by signal
//   - 2: Error
func runWatch(cmd *cobra.Command, args []string) {
	root := cfg.RepoRoot
	if len(args) > 0 {
		root = args[0]
	}
	os.Exit(watchRun(cmd.Context(), root))
}

func watchRun(parent context.Context, root string) int {
	out := outputConfig()

	svc, cleanup, err := buildService(cfg, appLogger)
	if err != nil {
		OutputError(out.JSON, "Building service", err)
		return CLIExitError
	}
	defer cleanup()

	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	styled := styledOutput() && !out.JSON
	handler := func(ctx context.Context, path string) {
		report, err := svc.Analyze(ctx, analyze.Options{
			BaseRev: watchBaseRev,
			Files:   []string{path},
		})
		if err != nil {
			OutputError(out.JSON, "Analyzing "+path, err)
			return
		}
		if out.JSON {
			OutputJSON(report)
			return
		}
		for i := range report.Results {
			r := &report.Results[i]
			if r.Error != "" {
				fmt.Printf("%s %s  %s\n", glyphFailed, r.FilePath, r.Error)
				continue
			}
			if r.Decision != nil {
				renderVerdictLine(r.FilePath, r.Decision, styled)
			}
		}
	}

	watcher, err := watch.NewWatcher(watch.Config{
		Root:       root,
		Extensions: cfg.Extensions,
		Debounce:   time.Duration(watchDebounceMs) * time.Millisecond,
		Logger:     appLogger.Slog(),
	}, handler)
	if err != nil {
		OutputError(out.JSON, "Starting watcher", err)
		return CLIExitError
	}
	defer watcher.Stop()

	if !out.JSON && !out.Quiet {
		fmt.Printf("watching %s (Ctrl+C to stop)\n", root)
	}

	watcher.Start(ctx)
	return CLIExitSuccess
}
