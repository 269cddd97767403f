// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package analyze runs the decision engine over a change set: detect
// changed files through git, load both source versions and any existing
// documentation, decide per file, and optionally persist the verdicts.
package analyze

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/DocDrift/services/drift/decision"
	"github.com/AleutianAI/DocDrift/services/drift/docmeta"
	"github.com/AleutianAI/DocDrift/services/drift/gitx"
	"github.com/AleutianAI/DocDrift/services/drift/storage"
	"github.com/AleutianAI/DocDrift/services/drift/telemetry"
)

// SourceReader is the slice of the git client the pipeline needs.
// *gitx.Client satisfies it; tests substitute an in-memory fake.
type SourceReader interface {
	FileAtRevision(ctx context.Context, rev, path string) (string, error)
	WorktreeFile(path string) (string, error)
	ChangedFiles(ctx context.Context, opts gitx.ChangeOptions) ([]gitx.ChangedFile, error)
	DiffStats(ctx context.Context, opts gitx.ChangeOptions) ([]gitx.FileStat, error)
	HeadRevision(ctx context.Context) (string, error)
}

// Pipeline fans the decision engine out over a change set.
//
// # Thread Safety
//
// Safe for concurrent use.
type Pipeline struct {
	git     SourceReader
	engine  *decision.Engine
	locator *docmeta.Locator
	store   *storage.DecisionStore
	logger  *slog.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithStore persists every verdict to the decision store.
func WithStore(store *storage.DecisionStore) PipelineOption {
	return func(p *Pipeline) {
		p.store = store
	}
}

// WithLogger sets the pipeline logger.
func WithLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// NewPipeline creates a Pipeline.
//
// # Inputs
//
//   - git: Source reader. Must not be nil.
//   - engine: Decision engine. Must not be nil.
//   - locator: Documentation locator. Must not be nil.
//   - opts: Optional store and logger.
//
// # Outputs
//
//   - *Pipeline: The pipeline instance.
//   - error: Non-nil if a required collaborator is nil.
func NewPipeline(git SourceReader, engine *decision.Engine, locator *docmeta.Locator, opts ...PipelineOption) (*Pipeline, error) {
	if git == nil {
		return nil, errors.New("git must not be nil")
	}
	if engine == nil {
		return nil, errors.New("engine must not be nil")
	}
	if locator == nil {
		return nil, errors.New("locator must not be nil")
	}

	p := &Pipeline{
		git:     git,
		engine:  engine,
		locator: locator,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Run analyzes the selected change set.
//
// # Description
//
// Performs the following steps:
// 1. Detect changed files (via git or the explicit list)
// 2. Pre-filter on line churn and source extension
// 3. Load old/new content and documentation per file
// 4. Decide per file across a bounded worker group
// 5. Persist verdicts when a store is configured
//
// Per-file failures land in FileResult.Error; the run only fails on
// change detection errors or context cancellation.
//
// # Inputs
//
//   - ctx: Context for cancellation. Must not be nil.
//   - opts: Run options.
//
// # Outputs
//
//   - *Report: Per-file results in change-set order.
//   - error: Non-nil if the change set cannot be determined.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Report, error) {
	if ctx == nil {
		return nil, fmt.Errorf("ctx must not be nil")
	}

	start := time.Now()
	report := NewReport()

	files, stats, err := p.collectFiles(ctx, opts, report)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return report.finish(start), nil
	}

	maxFiles := opts.MaxFiles
	if maxFiles <= 0 {
		maxFiles = DefaultMaxFiles
	}
	if len(files) > maxFiles {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("too many changed files (%d), limiting to %d", len(files), maxFiles))
		files = files[:maxFiles]
		report.Truncated = true
	}

	oldRev := opts.BaseRev
	if oldRev == "" {
		oldRev = "HEAD"
	}
	targetRev, err := p.git.HeadRevision(ctx)
	if err != nil {
		// Decisions still work without revision metadata.
		targetRev = ""
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = DefaultJobs
	}

	results := make([]FileResult, len(files))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)

	for i, file := range files {
		i, file := i, file

		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			results[i] = p.analyzeOne(gCtx, file, oldRev, targetRev, stats[file])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report.Results = results
	return report.finish(start), nil
}

// collectFiles resolves the candidate file list and line-churn stats.
func (p *Pipeline) collectFiles(ctx context.Context, opts Options, report *Report) ([]string, map[string]gitx.FileStat, error) {
	stats := make(map[string]gitx.FileStat)

	if len(opts.Files) > 0 {
		files := make([]string, 0, len(opts.Files))
		for _, f := range opts.Files {
			files = append(files, filepath.ToSlash(f))
		}
		return files, stats, nil
	}

	changeOpts := gitx.ChangeOptions{BaseRev: opts.BaseRev, Staged: opts.Staged}
	changed, err := p.git.ChangedFiles(ctx, changeOpts)
	if err != nil {
		return nil, nil, fmt.Errorf("detecting changed files: %w", err)
	}

	if fileStats, err := p.git.DiffStats(ctx, changeOpts); err != nil {
		p.logger.Warn("diff stats unavailable, skipping churn pre-filter",
			slog.String("error", err.Error()))
	} else {
		for _, st := range fileStats {
			stats[st.Path] = st
		}
	}

	extensions := opts.Extensions
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}

	files := make([]string, 0, len(changed))
	for _, cf := range changed {
		if cf.Kind == gitx.ChangeDeleted {
			continue
		}
		if !hasExtension(cf.Path, extensions) {
			continue
		}
		if st, ok := stats[cf.Path]; ok && !st.Touched() {
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("%s: no line changes, skipped", cf.Path))
			continue
		}
		files = append(files, cf.Path)
	}
	return files, stats, nil
}

// analyzeOne runs the engine for a single file. Failures are reported in
// the result, never returned.
func (p *Pipeline) analyzeOne(ctx context.Context, path, oldRev, targetRev string, stat gitx.FileStat) FileResult {
	start := time.Now()
	logger := telemetry.LoggerWithFile(ctx, p.logger, path)
	result := FileResult{
		FilePath:     path,
		DocPath:      p.locator.DocPath(path),
		LinesAdded:   stat.LinesAdded,
		LinesRemoved: stat.LinesRemoved,
	}

	newSource, err := p.git.WorktreeFile(path)
	if err != nil {
		result.Error = fmt.Sprintf("reading working tree: %v", err)
		result.DurationMs = time.Since(start).Milliseconds()
		return result
	}

	oldSource, err := p.git.FileAtRevision(ctx, oldRev, path)
	if err != nil {
		if !errors.Is(err, gitx.ErrPathNotInRevision) {
			result.Error = fmt.Sprintf("reading %s: %v", oldRev, err)
			result.DurationMs = time.Since(start).Milliseconds()
			return result
		}
		// Absent at the base revision: the new-file sentinel.
		oldSource = ""
	}

	doc, err := p.locator.Load(ctx, path)
	if err != nil && !errors.Is(err, docmeta.ErrNotFound) {
		logger.Warn("documentation unreadable, treating as missing",
			slog.String("error", err.Error()))
		doc = nil
	}

	res := p.engine.Decide(ctx, decision.Input{
		FilePath:  path,
		OldSource: oldSource,
		NewSource: newSource,
		Doc:       doc,
	})
	result.Decision = res

	if p.store != nil {
		saveErr := p.store.Save(ctx, &storage.StoredDecision{
			FilePath:       path,
			BaseRevision:   oldRev,
			TargetRevision: targetRev,
			Result:         res,
		})
		if saveErr != nil {
			logger.Warn("failed to persist decision",
				slog.String("error", saveErr.Error()))
		}
	}

	result.DurationMs = time.Since(start).Milliseconds()
	return result
}

func hasExtension(path string, extensions []string) bool {
	ext := filepath.Ext(path)
	for _, e := range extensions {
		if ext == e {
			return true
		}
	}
	return false
}
