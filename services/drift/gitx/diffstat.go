// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package gitx

import (
	"context"
	"fmt"
	"strings"

	"github.com/sourcegraph/go-diff/diff"
)

// FileStat summarizes line churn for one file in a change set.
type FileStat struct {
	Path         string `json:"path"`
	LinesAdded   int    `json:"lines_added"`
	LinesRemoved int    `json:"lines_removed"`
}

// Touched reports whether the file has any line-level churn. Files with
// zero touched lines (mode-only changes) are skipped by the batch
// pre-filter.
func (s FileStat) Touched() bool {
	return s.LinesAdded > 0 || s.LinesRemoved > 0
}

// DiffStats computes per-file line churn for the selected change set.
//
// # Inputs
//
//   - ctx: Context for cancellation. Must not be nil.
//   - opts: Change-set selection, same semantics as ChangedFiles.
//
// # Outputs
//
//   - []FileStat: One entry per file in the diff, in git output order.
//   - error: Non-nil if the git invocation or diff parsing fails.
func (c *Client) DiffStats(ctx context.Context, opts ChangeOptions) ([]FileStat, error) {
	args := []string{"diff"}
	switch {
	case opts.BaseRev != "":
		if err := c.verifyRevision(ctx, opts.BaseRev); err != nil {
			return nil, err
		}
		args = append(args, opts.BaseRev)
	case opts.Staged:
		args = append(args, "--cached")
	}

	out, err := c.run(ctx, args...)
	if err != nil {
		return nil, err
	}
	return ParseDiffStats(out)
}

// ParseDiffStats parses a unified multi-file diff into per-file line
// counts.
//
// # Inputs
//
//   - diffText: Unified diff output, possibly empty.
//
// # Outputs
//
//   - []FileStat: One entry per file diff. Empty input yields nil.
//   - error: Non-nil if the diff is malformed.
func ParseDiffStats(diffText string) ([]FileStat, error) {
	if strings.TrimSpace(diffText) == "" {
		return nil, nil
	}

	fileDiffs, err := diff.NewMultiFileDiffReader(strings.NewReader(diffText)).ReadAllFiles()
	if err != nil {
		return nil, fmt.Errorf("parsing diff: %w", err)
	}

	stats := make([]FileStat, 0, len(fileDiffs))
	for _, fd := range fileDiffs {
		st := FileStat{Path: diffFilePath(fd)}
		for _, hunk := range fd.Hunks {
			for _, line := range strings.Split(string(hunk.Body), "\n") {
				switch {
				case strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++"):
					st.LinesAdded++
				case strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "---"):
					st.LinesRemoved++
				}
			}
		}
		stats = append(stats, st)
	}
	return stats, nil
}

// diffFilePath resolves the post-image path of a file diff, falling back
// to the pre-image for deletions, with git's a/ b/ prefixes stripped.
func diffFilePath(fd *diff.FileDiff) string {
	path := fd.NewName
	if path == "" || path == "/dev/null" {
		path = fd.OrigName
	}
	path = strings.TrimPrefix(path, "a/")
	path = strings.TrimPrefix(path, "b/")
	return path
}
