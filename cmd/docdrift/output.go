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
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/AleutianAI/DocDrift/services/drift/analyze"
	"github.com/AleutianAI/DocDrift/services/drift/decision"
	"github.com/AleutianAI/DocDrift/services/drift/storage"
)

// Exit codes for CLI commands.
const (
	CLIExitSuccess = 0 // Operation completed, nothing stale
	CLIExitStale   = 1 // Operation completed, stale documentation found
	CLIExitError   = 2 // Operation failed
)

// OutputConfig controls output behavior.
type OutputConfig struct {
	JSON  bool // Output as JSON
	Quiet bool // No output, exit code only
}

// CommandResult wraps command output with metadata.
type CommandResult struct {
	APIVersion string      `json:"api_version"`
	Command    string      `json:"command"`
	Timestamp  time.Time   `json:"timestamp"`
	DurationMs int64       `json:"duration_ms"`
	Success    bool        `json:"success"`
	Data       interface{} `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// OutputJSON writes structured data as indented JSON to stdout.
func OutputJSON(data interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// OutputError writes an error in the appropriate format.
func OutputError(jsonMode bool, msg string, err error) {
	if jsonMode {
		result := CommandResult{
			APIVersion: "1.0",
			Timestamp:  time.Now(),
			Success:    false,
			Error:      fmt.Sprintf("%s: %v", msg, err),
		}
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		encoder.Encode(result)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
	}
}

// OutputResult handles the JSON and quiet output paths and picks the
// exit code.
//
// # Inputs
//
//   - cfg: Output configuration.
//   - cmd: Command name for metadata.
//   - start: Start time for duration calculation.
//   - data: The data to output in JSON mode.
//   - stale: Whether stale documentation was found (for exit code).
//   - err: Any error that occurred.
//
// # Outputs
//
//   - int: The exit code to use.
func OutputResult(cfg OutputConfig, cmd string, start time.Time, data interface{}, stale bool, err error) int {
	if cfg.Quiet {
		if err != nil {
			return CLIExitError
		}
		if stale {
			return CLIExitStale
		}
		return CLIExitSuccess
	}

	if err != nil {
		OutputError(cfg.JSON, "Command failed", err)
		return CLIExitError
	}

	if cfg.JSON {
		result := CommandResult{
			APIVersion: "1.0",
			Command:    cmd,
			Timestamp:  time.Now(),
			DurationMs: time.Since(start).Milliseconds(),
			Success:    true,
			Data:       data,
		}
		if encErr := OutputJSON(result); encErr != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", encErr)
			return CLIExitError
		}
	}

	if stale {
		return CLIExitStale
	}
	return CLIExitSuccess
}

// DocDrift palette, the organization's teal family plus semantic colors.
var (
	colorAccent  = lipgloss.Color("#20B9B4") // Primary teal
	colorSuccess = lipgloss.Color("#2CD7C7") // Bright teal for fresh docs
	colorWarning = lipgloss.Color("#F4D03F") // Gold for stale docs
	colorError   = lipgloss.Color("#E74C3C") // Red for failures
	colorMuted   = lipgloss.Color("#2C4A54") // Slate for secondary text
)

// styles holds the pre-configured lipgloss styles for report rendering.
var styles = struct {
	Title  lipgloss.Style
	File   lipgloss.Style
	Muted  lipgloss.Style
	Stale  lipgloss.Style
	Fresh  lipgloss.Style
	Failed lipgloss.Style
}{
	Title:  lipgloss.NewStyle().Bold(true).Foreground(colorAccent),
	File:   lipgloss.NewStyle().Bold(true),
	Muted:  lipgloss.NewStyle().Foreground(colorMuted),
	Stale:  lipgloss.NewStyle().Foreground(colorWarning),
	Fresh:  lipgloss.NewStyle().Foreground(colorSuccess),
	Failed: lipgloss.NewStyle().Foreground(colorError),
}

// Verdict glyphs.
const (
	glyphStale  = "↻"
	glyphFresh  = "✓"
	glyphFailed = "✗"
)

// styledOutput reports whether stdout wants styled rendering. Piped
// output and --plain fall back to plain text.
func styledOutput() bool {
	if plainOut {
		return false
	}
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// RenderReport prints a batch report, one line per file plus a summary.
func RenderReport(report *analyze.Report, styled bool) {
	for i := range report.Results {
		renderFileResult(&report.Results[i], styled)
	}
	for _, warning := range report.Warnings {
		if styled {
			fmt.Println(styles.Muted.Render("! " + warning))
		} else {
			fmt.Printf("! %s\n", warning)
		}
	}

	summary := fmt.Sprintf("regenerate %d of %d files (%dms)",
		report.RegenerateCount, len(report.Results), report.DurationMs)
	if len(report.Results) == 0 {
		summary = "no changed files to analyze"
	}
	if styled {
		fmt.Println(styles.Title.Render(summary))
	} else {
		fmt.Println(summary)
	}
}

func renderFileResult(r *analyze.FileResult, styled bool) {
	if r.Error != "" {
		if styled {
			fmt.Printf("%s %s  %s\n",
				styles.Failed.Render(glyphFailed),
				styles.File.Render(r.FilePath),
				styles.Muted.Render(r.Error))
		} else {
			fmt.Printf("%s %s  %s\n", glyphFailed, r.FilePath, r.Error)
		}
		return
	}
	if r.Decision == nil {
		return
	}
	renderVerdictLine(r.FilePath, r.Decision, styled)
}

// RenderDecision prints a single verdict with its reasoning.
func RenderDecision(filePath string, res *decision.Result, styled bool) {
	renderVerdictLine(filePath, res, styled)
	for _, line := range res.Reasoning {
		if styled {
			fmt.Println("  " + styles.Muted.Render(line))
		} else {
			fmt.Printf("  %s\n", line)
		}
	}
	if len(res.AffectedSections) > 0 {
		sections := fmt.Sprintf("  sections: %v", res.AffectedSections)
		if styled {
			fmt.Println(styles.Muted.Render(sections))
		} else {
			fmt.Println(sections)
		}
	}
}

func renderVerdictLine(filePath string, res *decision.Result, styled bool) {
	detail := fmt.Sprintf("%s  (confidence %.2f, %s)", res.ReasonCode, res.Confidence, res.Severity)

	if !styled {
		glyph := glyphFresh
		if res.ShouldRegenerate {
			glyph = glyphStale
		}
		fmt.Printf("%s %s  %s\n", glyph, filePath, detail)
		return
	}

	glyph := styles.Fresh.Render(glyphFresh)
	if res.ShouldRegenerate {
		glyph = styles.Stale.Render(glyphStale)
	}
	fmt.Printf("%s %s  %s\n", glyph, styles.File.Render(filePath), styles.Muted.Render(detail))
}

// RenderHistory prints stored decisions, newest first.
func RenderHistory(records []*storage.StoredDecision, styled bool) {
	if len(records) == 0 {
		fmt.Println("no stored decisions")
		return
	}
	for _, rec := range records {
		when := rec.DecidedAt().Format(time.RFC3339)
		rev := rec.TargetRevision
		if rev == "" {
			rev = "-"
		}
		line := fmt.Sprintf("%s  %s", when, rev)
		if styled {
			fmt.Println(styles.Muted.Render(line))
		} else {
			fmt.Println(line)
		}
		renderVerdictLine(rec.FilePath, rec.Result, styled)
	}
}
