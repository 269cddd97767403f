// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package analyze

import (
	"time"

	"github.com/AleutianAI/DocDrift/services/drift/decision"
)

// Options configures one batch analysis run.
type Options struct {
	// BaseRev is the revision old content is read from. Empty means HEAD.
	BaseRev string

	// Staged analyzes the staged change set instead of the working tree.
	Staged bool

	// Files analyzes these explicit paths instead of detecting changes.
	// Explicit paths bypass the extension filter.
	Files []string

	// Jobs bounds parallel engine workers. Zero or negative means
	// DefaultJobs.
	Jobs int

	// MaxFiles caps the number of files analyzed in one run. Zero means
	// DefaultMaxFiles.
	MaxFiles int

	// Extensions restricts detected changes to these source extensions.
	// Empty means DefaultExtensions.
	Extensions []string
}

const (
	DefaultJobs     = 4
	DefaultMaxFiles = 500
)

// DefaultExtensions lists the source extensions analyzed when none are
// configured.
var DefaultExtensions = []string{".php"}

// FileResult is the outcome for one analyzed file.
type FileResult struct {
	FilePath     string           `json:"file_path"`
	DocPath      string           `json:"doc_path,omitempty"`
	Decision     *decision.Result `json:"decision,omitempty"`
	LinesAdded   int              `json:"lines_added,omitempty"`
	LinesRemoved int              `json:"lines_removed,omitempty"`
	// Error reports a per-file failure; the rest of the batch still runs.
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// Report is the outcome of one batch run.
type Report struct {
	Results         []FileResult `json:"results"`
	RegenerateCount int          `json:"regenerate_count"`
	Truncated       bool         `json:"truncated,omitempty"`
	Warnings        []string     `json:"warnings,omitempty"`
	DurationMs      int64        `json:"duration_ms"`
}

// NewReport creates an empty report.
func NewReport() *Report {
	return &Report{
		Results:  make([]FileResult, 0),
		Warnings: make([]string, 0),
	}
}

func (r *Report) finish(start time.Time) *Report {
	for i := range r.Results {
		if r.Results[i].Decision != nil && r.Results[i].Decision.ShouldRegenerate {
			r.RegenerateCount++
		}
	}
	r.DurationMs = time.Since(start).Milliseconds()
	return r
}
