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
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	cfgFile  string
	jsonOut  bool
	plainOut bool
	quietOut bool

	analyzeBaseRev  string
	analyzeStaged   bool
	analyzeJobs     int
	analyzeMaxFiles int

	watchDebounceMs int
	watchBaseRev    string

	servePort int

	historyLimit int

	rootCmd = &cobra.Command{
		Use:   "docdrift",
		Short: "Decide when generated documentation went stale",
		Long: `DocDrift inspects how a source file changed and decides whether its
				generated documentation still describes it, without spending a model
				call to find out. Changes that touch only whitespace, comments, or
				private internals keep the existing docs; public API and structural
				changes flag them for regeneration.`,
	}

	// --- Analysis ---
	analyzeCmd = &cobra.Command{
		Use:   "analyze [path...]",
		Short: "Analyze changed files and report which docs need regeneration",
		Run:   runAnalyze, // Defined in cmd_analyze.go
	}

	watchCmd = &cobra.Command{
		Use:   "watch [dir]",
		Short: "Re-analyze source files continuously as they change on disk",
		Args:  cobra.MaximumNArgs(1),
		Run:   runWatch, // Defined in cmd_watch.go
	}

	// --- Server ---
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the drift analysis HTTP service",
		Run:   runServe, // Defined in cmd_serve.go
	}

	// --- History ---
	historyCmd = &cobra.Command{
		Use:   "history [path]",
		Short: "Print stored decisions for a file, newest first",
		Args:  cobra.ExactArgs(1),
		Run:   runHistory, // Defined in cmd_history.go
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run:   runVersion,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"Path to docdrift.yaml (default: ./docdrift.yaml when present)")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	rootCmd.PersistentFlags().BoolVar(&plainOut, "plain", false, "Disable styled terminal output")
	rootCmd.PersistentFlags().BoolVarP(&quietOut, "quiet", "q", false, "Suppress output, exit code only")

	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVar(&analyzeBaseRev, "base", "",
		"Base revision to compare against (default: HEAD)")
	analyzeCmd.Flags().BoolVar(&analyzeStaged, "staged", false,
		"Analyze staged changes instead of the working tree diff")
	analyzeCmd.Flags().IntVar(&analyzeJobs, "jobs", 0, "Analysis concurrency (default from config)")
	analyzeCmd.Flags().IntVar(&analyzeMaxFiles, "max-files", 0, "Cap on analyzed files (default from config)")

	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().IntVar(&watchDebounceMs, "debounce-ms", 500,
		"Settle time before re-analyzing a changed file")
	watchCmd.Flags().StringVar(&watchBaseRev, "base", "",
		"Base revision each change is compared against (default: HEAD)")

	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default from config)")

	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum entries to print")

	rootCmd.AddCommand(versionCmd)
}

// outputConfig collects the persistent output flags.
func outputConfig() OutputConfig {
	return OutputConfig{JSON: jsonOut, Quiet: quietOut}
}
