// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package gitx reads source versions out of a git work tree by shelling out
// to the git binary. It supplies the old/new content pairs the analysis
// pipeline feeds into the decision engine.
package gitx

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ChangeKind classifies a changed path.
type ChangeKind string

const (
	ChangeAdded    ChangeKind = "added"
	ChangeModified ChangeKind = "modified"
	ChangeDeleted  ChangeKind = "deleted"
	ChangeRenamed  ChangeKind = "renamed"
	ChangeCopied   ChangeKind = "copied"
)

// ChangedFile is one entry from a name-status listing.
type ChangedFile struct {
	// Path is the current path, slash-separated, relative to the repo root.
	Path string
	// OldPath is set for renames and copies.
	OldPath string
	Kind    ChangeKind
}

// ChangeOptions selects which change set to list.
//
// Zero value means the unstaged working-tree diff against the index.
type ChangeOptions struct {
	// BaseRev compares the working tree against a revision (branch, tag,
	// or commit). Takes precedence over Staged.
	BaseRev string
	// Staged compares the index against HEAD.
	Staged bool
}

// Client runs git operations for change detection.
//
// # Thread Safety
//
// Client is safe for concurrent use.
type Client struct {
	repoRoot string
}

// NewClient creates a Client rooted at the given directory.
//
// # Inputs
//
//   - repoRoot: Repository root directory. Must not be empty.
//
// # Outputs
//
//   - *Client: The git client instance.
//   - error: Non-nil if repoRoot is empty.
func NewClient(repoRoot string) (*Client, error) {
	if repoRoot == "" {
		return nil, fmt.Errorf("repoRoot must not be empty")
	}
	return &Client{repoRoot: repoRoot}, nil
}

// Root returns the configured repository root.
func (c *Client) Root() string {
	return c.repoRoot
}

// IsRepo reports whether the root is inside a git work tree.
func (c *Client) IsRepo(ctx context.Context) bool {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--git-dir")
	cmd.Dir = c.repoRoot
	return cmd.Run() == nil
}

// HeadRevision returns the full hash of HEAD.
//
// # Outputs
//
//   - string: The commit hash.
//   - error: Non-nil if the repository has no resolvable HEAD.
func (c *Client) HeadRevision(ctx context.Context) (string, error) {
	out, err := c.run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// FileAtRevision returns the file content at `rev:path`.
//
// # Inputs
//
//   - ctx: Context for cancellation. Must not be nil.
//   - rev: Revision to read from. Must not be empty.
//   - path: Repo-relative path, slash-separated.
//
// # Outputs
//
//   - string: The file content at that revision.
//   - error: ErrPathNotInRevision when the path did not exist at rev
//     (the caller's new-file case), ErrUnknownRevision when rev does not
//     resolve, otherwise the wrapped git failure.
func (c *Client) FileAtRevision(ctx context.Context, rev, path string) (string, error) {
	if rev == "" {
		return "", fmt.Errorf("rev must not be empty")
	}
	out, err := c.run(ctx, "show", rev+":"+filepath.ToSlash(path))
	if err != nil {
		return "", classifyShowError(err, rev, path)
	}
	return out, nil
}

// WorktreeFile reads the current working-tree content of a repo-relative
// path. A missing file returns ErrPathNotInRevision so deletions flow
// through the same sentinel as historical absence.
func (c *Client) WorktreeFile(path string) (string, error) {
	data, err := os.ReadFile(filepath.Join(c.repoRoot, filepath.FromSlash(path)))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s in working tree", ErrPathNotInRevision, path)
		}
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}

// ChangedFiles lists changed paths per the options.
//
// # Inputs
//
//   - ctx: Context for cancellation. Must not be nil.
//   - opts: Change-set selection. Zero value lists unstaged changes.
//
// # Outputs
//
//   - []ChangedFile: Parsed name-status entries, in git output order.
//   - error: Non-nil if the git invocation fails.
func (c *Client) ChangedFiles(ctx context.Context, opts ChangeOptions) ([]ChangedFile, error) {
	args := []string{"diff", "--name-status"}
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
	return parseNameStatus(out)
}

// verifyRevision checks that a revision resolves before using it in a diff.
func (c *Client) verifyRevision(ctx context.Context, rev string) error {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--verify", rev)
	cmd.Dir = c.repoRoot

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %q: %s", ErrUnknownRevision, rev, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// run executes git with the given args and returns stdout.
func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = c.repoRoot

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// classifyShowError maps git-show stderr text onto package sentinels.
func classifyShowError(err error, rev, path string) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "does not exist in"),
		strings.Contains(msg, "exists on disk, but not in"):
		return fmt.Errorf("%w: %s at %s", ErrPathNotInRevision, path, rev)
	case strings.Contains(msg, "invalid object name"),
		strings.Contains(msg, "unknown revision"),
		strings.Contains(msg, "bad revision"):
		return fmt.Errorf("%w: %q", ErrUnknownRevision, rev)
	default:
		return err
	}
}

// parseNameStatus parses `git diff --name-status` output.
// Format: M\tpath/to/file.php
//
//	R100\told/path.php\tnew/path.php
func parseNameStatus(output string) ([]ChangedFile, error) {
	var result []ChangedFile

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Split(line, "\t")
		if len(parts) < 2 {
			continue
		}

		status := parts[0]
		cf := ChangedFile{
			Path: filepath.ToSlash(parts[1]),
		}

		// First character only: rename and copy statuses carry scores
		// like R100.
		switch {
		case strings.HasPrefix(status, "A"):
			cf.Kind = ChangeAdded
		case strings.HasPrefix(status, "M"):
			cf.Kind = ChangeModified
		case strings.HasPrefix(status, "D"):
			cf.Kind = ChangeDeleted
		case strings.HasPrefix(status, "R"):
			cf.Kind = ChangeRenamed
			if len(parts) >= 3 {
				cf.OldPath = filepath.ToSlash(parts[1])
				cf.Path = filepath.ToSlash(parts[2])
			}
		case strings.HasPrefix(status, "C"):
			cf.Kind = ChangeCopied
			if len(parts) >= 3 {
				cf.OldPath = filepath.ToSlash(parts[1])
				cf.Path = filepath.ToSlash(parts[2])
			}
		default:
			cf.Kind = ChangeModified
		}

		result = append(result, cf)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("parsing git output: %w", err)
	}

	return result, nil
}
