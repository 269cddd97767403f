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
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/DocDrift/services/drift/analyze"
)

// runAnalyze is the CLI handler for "docdrift analyze".
//
// With path arguments only those files are analyzed; without them the
// change set against the base revision (or the index with --staged) is
// detected from git.
//
// # Exit Codes
//
//   - 0: All documentation still matches
//   - 1: At least one file needs its documentation regenerated
//   - 2: Error
func runAnalyze(cmd *cobra.Command, args []string) {
	os.Exit(analyzeRun(cmd.Context(), args))
}

func analyzeRun(ctx context.Context, files []string) int {
	start := time.Now()
	out := outputConfig()

	svc, cleanup, err := buildService(cfg, appLogger)
	if err != nil {
		return OutputResult(out, "analyze", start, nil, false, err)
	}
	defer cleanup()

	report, err := svc.Analyze(ctx, analyze.Options{
		BaseRev:  analyzeBaseRev,
		Staged:   analyzeStaged,
		Files:    files,
		Jobs:     analyzeJobs,
		MaxFiles: analyzeMaxFiles,
	})
	if err != nil {
		return OutputResult(out, "analyze", start, nil, false, err)
	}

	stale := report.RegenerateCount > 0
	if out.JSON || out.Quiet {
		return OutputResult(out, "analyze", start, report, stale, nil)
	}

	RenderReport(report, styledOutput())
	if stale {
		return CLIExitStale
	}
	return CLIExitSuccess
}
