// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package drift

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/DocDrift/services/drift/analyze"
	"github.com/AleutianAI/DocDrift/services/drift/decision"
	"github.com/AleutianAI/DocDrift/services/drift/generate"
	"github.com/AleutianAI/DocDrift/services/drift/gitx"
	"github.com/AleutianAI/DocDrift/services/drift/storage"
)

const cartOld = `<?php
class Cart {
    public function total() {}
}
`

const cartNew = `<?php
class Cart {
    public function total() {}
    public function clear() {}
}
`

const cartDoc = `# Cart

Shopping cart aggregate.

## Overview

Holds line items and computes totals.

## Methods

- total
`

type fakeGit struct {
	worktree   map[string]string
	atBase     map[string]string
	changed    []gitx.ChangedFile
	stats      []gitx.FileStat
	head       string
	isRepo     bool
	changedErr error
}

func (f *fakeGit) FileAtRevision(ctx context.Context, rev, path string) (string, error) {
	if content, ok := f.atBase[path]; ok {
		return content, nil
	}
	return "", fmt.Errorf("%w: %s at %s", gitx.ErrPathNotInRevision, path, rev)
}

func (f *fakeGit) WorktreeFile(path string) (string, error) {
	if content, ok := f.worktree[path]; ok {
		return content, nil
	}
	return "", fmt.Errorf("%w: %s in working tree", gitx.ErrPathNotInRevision, path)
}

func (f *fakeGit) ChangedFiles(ctx context.Context, opts gitx.ChangeOptions) ([]gitx.ChangedFile, error) {
	if f.changedErr != nil {
		return nil, f.changedErr
	}
	return f.changed, nil
}

func (f *fakeGit) DiffStats(ctx context.Context, opts gitx.ChangeOptions) ([]gitx.FileStat, error) {
	return f.stats, nil
}

func (f *fakeGit) HeadRevision(ctx context.Context) (string, error) {
	if f.head == "" {
		return "", errors.New("no commits")
	}
	return f.head, nil
}

func (f *fakeGit) IsRepo(ctx context.Context) bool {
	return f.isRepo
}

type fakeGenerator struct {
	markdown string
	err      error
	calls    atomic.Int64
}

func (g *fakeGenerator) Generate(ctx context.Context, req generate.Request) (*generate.Generated, error) {
	g.calls.Add(1)
	if g.err != nil {
		return nil, g.err
	}
	return &generate.Generated{
		Markdown: g.markdown,
		Model:    "fake-model",
	}, nil
}

// newTestService builds a service over a temp directory. A non-nil git
// fake replaces the real client and the pipeline is rebuilt around it.
func newTestService(t *testing.T, git *fakeGit, opts ...ServiceOption) *Service {
	t.Helper()

	svc, err := NewService(ServiceConfig{RepoRoot: t.TempDir()}, opts...)
	require.NoError(t, err)

	if git != nil {
		svc.git = git
		pipelineOpts := []analyze.PipelineOption{analyze.WithLogger(svc.logger)}
		if svc.store != nil {
			pipelineOpts = append(pipelineOpts, analyze.WithStore(svc.store))
		}
		pipeline, err := analyze.NewPipeline(git, svc.engine, svc.locator, pipelineOpts...)
		require.NoError(t, err)
		svc.pipeline = pipeline
	}
	return svc
}

func newTestStore(t *testing.T) *storage.DecisionStore {
	t.Helper()
	db, err := storage.OpenDB(storage.InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store, err := storage.NewDecisionStore(db)
	require.NoError(t, err)
	return store
}

// writeDoc places documentation where the service's locator expects it.
func writeDoc(t *testing.T, svc *Service, sourcePath, content string) {
	t.Helper()
	docPath := svc.DocPath(sourcePath)
	require.NoError(t, os.MkdirAll(filepath.Dir(docPath), 0o750))
	require.NoError(t, os.WriteFile(docPath, []byte(content), 0o640))
}

func TestNewService_Defaults(t *testing.T) {
	svc := newTestService(t, nil)

	cfg := svc.Config()
	assert.Equal(t, "docs", cfg.DocsRoot)
	assert.Equal(t, analyze.DefaultJobs, cfg.Jobs)
	assert.Equal(t, analyze.DefaultMaxFiles, cfg.MaxFiles)
	assert.Equal(t, analyze.DefaultExtensions, cfg.Extensions)
	assert.Equal(t, 256, cfg.CacheSize)

	docPath := svc.DocPath("app/Cart.php")
	assert.Equal(t, filepath.Join(cfg.RepoRoot, "docs", "app", "Cart.md"), docPath)
}

func TestNewService_EmptyRepoRootDefaults(t *testing.T) {
	svc, err := NewService(ServiceConfig{})
	require.NoError(t, err)
	assert.Equal(t, ".", svc.Config().RepoRoot)
}

func TestService_AnalyzeFile_PublicAPIChange(t *testing.T) {
	svc := newTestService(t, nil)
	writeDoc(t, svc, "app/Cart.php", cartDoc)

	res, err := svc.AnalyzeFile(context.Background(), "app/Cart.php", cartOld, cartNew, "")
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.True(t, res.ShouldRegenerate)
	assert.Equal(t, decision.ReasonPublicAPIChanges, res.ReasonCode)
	assert.Contains(t, res.AffectedSections, "Overview")
}

func TestService_AnalyzeFile_MissingDoc(t *testing.T) {
	svc := newTestService(t, nil)

	res, err := svc.AnalyzeFile(context.Background(), "app/Cart.php", cartOld, cartNew, "")
	require.NoError(t, err)

	assert.True(t, res.ShouldRegenerate)
	assert.Equal(t, decision.ReasonNoExistingDoc, res.ReasonCode)
}

func TestService_AnalyzeFile_ExplicitDocPath(t *testing.T) {
	svc := newTestService(t, nil)

	docPath := filepath.Join(t.TempDir(), "Cart.md")
	require.NoError(t, os.WriteFile(docPath, []byte(cartDoc), 0o640))

	res, err := svc.AnalyzeFile(context.Background(), "app/Cart.php", cartOld, cartNew, docPath)
	require.NoError(t, err)

	assert.Equal(t, decision.ReasonPublicAPIChanges, res.ReasonCode)
}

func TestService_AnalyzeFile_Validation(t *testing.T) {
	svc := newTestService(t, nil)

	_, err := svc.AnalyzeFile(context.Background(), "", cartOld, cartNew, "")
	assert.ErrorIs(t, err, ErrMissingFilePath)

	_, err = svc.AnalyzeFile(context.Background(), "app/Cart.php", cartOld, "", "")
	assert.ErrorIs(t, err, ErrMissingSource)
}

func TestService_AnalyzeFile_CachesVerdicts(t *testing.T) {
	svc := newTestService(t, nil)

	first, err := svc.AnalyzeFile(context.Background(), "app/Cart.php", cartOld, cartNew, "")
	require.NoError(t, err)

	second, err := svc.AnalyzeFile(context.Background(), "app/Cart.php", cartOld, cartNew, "")
	require.NoError(t, err)

	assert.Same(t, first, second)

	hits, _, _ := svc.cache.Stats()
	assert.GreaterOrEqual(t, hits, int64(1))
}

func TestService_AnalyzeFile_PersistsWhenStoreConfigured(t *testing.T) {
	store := newTestStore(t)
	svc := newTestService(t, nil, WithStore(store))

	_, err := svc.AnalyzeFile(context.Background(), "app/Cart.php", cartOld, cartNew, "")
	require.NoError(t, err)

	records, err := svc.History(context.Background(), "app/Cart.php", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "app/Cart.php", records[0].FilePath)
	assert.Empty(t, records[0].BaseRevision)
	assert.True(t, records[0].Result.ShouldRegenerate)
}

func TestService_History_NoStore(t *testing.T) {
	svc := newTestService(t, nil)

	_, err := svc.History(context.Background(), "app/Cart.php", 10)
	assert.ErrorIs(t, err, ErrStoreDisabled)
}

func TestService_History_NewestFirst(t *testing.T) {
	store := newTestStore(t)
	svc := newTestService(t, nil, WithStore(store))

	older := &storage.StoredDecision{
		FilePath:       "app/Cart.php",
		Result:         &decision.Result{ReasonCode: decision.ReasonNoExistingDoc},
		DecidedAtMilli: 1000,
	}
	newer := &storage.StoredDecision{
		FilePath:       "app/Cart.php",
		Result:         &decision.Result{ReasonCode: decision.ReasonPublicAPIChanges},
		DecidedAtMilli: 2000,
	}
	require.NoError(t, store.Save(context.Background(), older))
	require.NoError(t, store.Save(context.Background(), newer))

	records, err := svc.History(context.Background(), "app/Cart.php", 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, decision.ReasonPublicAPIChanges, records[0].Result.ReasonCode)
	assert.Equal(t, decision.ReasonNoExistingDoc, records[1].Result.ReasonCode)
}

func TestService_Analyze_Batch(t *testing.T) {
	git := &fakeGit{
		worktree: map[string]string{"app/Cart.php": cartNew},
		atBase:   map[string]string{"app/Cart.php": cartOld},
		changed:  []gitx.ChangedFile{{Path: "app/Cart.php", Kind: gitx.ChangeModified}},
		stats:    []gitx.FileStat{{Path: "app/Cart.php", LinesAdded: 1}},
		head:     "abc1234",
		isRepo:   true,
	}
	svc := newTestService(t, git)

	report, err := svc.Analyze(context.Background(), analyze.Options{BaseRev: "main"})
	require.NoError(t, err)
	require.Len(t, report.Results, 1)

	result := report.Results[0]
	assert.Equal(t, "app/Cart.php", result.FilePath)
	require.NotNil(t, result.Decision)
	assert.True(t, result.Decision.ShouldRegenerate)
	assert.Equal(t, 1, report.RegenerateCount)
}

func TestService_Generate_DryRun(t *testing.T) {
	git := &fakeGit{
		worktree: map[string]string{"app/Cart.php": cartNew},
		atBase:   map[string]string{"app/Cart.php": cartOld},
		head:     "abc1234",
		isRepo:   true,
	}
	gen := &fakeGenerator{markdown: "# Cart\n"}
	svc := newTestService(t, git, WithGenerator(gen))

	res, generated, err := svc.Generate(context.Background(), GenerateRequest{
		FilePath: "app/Cart.php",
		DryRun:   true,
	})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.True(t, res.ShouldRegenerate)
	assert.Nil(t, generated)
	assert.Equal(t, int64(0), gen.calls.Load())
}

func TestService_Generate_ProducesMarkdown(t *testing.T) {
	git := &fakeGit{
		worktree: map[string]string{"app/Cart.php": cartNew},
		atBase:   map[string]string{"app/Cart.php": cartOld},
		head:     "abc1234",
		isRepo:   true,
	}
	gen := &fakeGenerator{markdown: "# Cart\n\nRegenerated.\n"}
	svc := newTestService(t, git, WithGenerator(gen))

	res, generated, err := svc.Generate(context.Background(), GenerateRequest{FilePath: "app/Cart.php"})
	require.NoError(t, err)
	assert.True(t, res.ShouldRegenerate)
	require.NotNil(t, generated)
	assert.Equal(t, "# Cart\n\nRegenerated.\n", generated.Markdown)
	assert.Equal(t, int64(1), gen.calls.Load())
}

func TestService_Generate_SkipsFreshDocumentation(t *testing.T) {
	git := &fakeGit{
		worktree: map[string]string{"app/Cart.php": cartOld},
		atBase:   map[string]string{"app/Cart.php": cartOld},
		head:     "abc1234",
		isRepo:   true,
	}
	gen := &fakeGenerator{markdown: "# Cart\n"}
	svc := newTestService(t, git, WithGenerator(gen))

	res, generated, err := svc.Generate(context.Background(), GenerateRequest{FilePath: "app/Cart.php"})
	require.NoError(t, err)
	assert.False(t, res.ShouldRegenerate)
	assert.Equal(t, decision.ReasonIdenticalContent, res.ReasonCode)
	assert.Nil(t, generated)
	assert.Equal(t, int64(0), gen.calls.Load())
}

func TestService_Generate_ForceOverridesSkip(t *testing.T) {
	git := &fakeGit{
		worktree: map[string]string{"app/Cart.php": cartOld},
		atBase:   map[string]string{"app/Cart.php": cartOld},
		head:     "abc1234",
		isRepo:   true,
	}
	gen := &fakeGenerator{markdown: "# Cart\n"}
	svc := newTestService(t, git, WithGenerator(gen))

	res, generated, err := svc.Generate(context.Background(), GenerateRequest{
		FilePath: "app/Cart.php",
		Force:    true,
	})
	require.NoError(t, err)
	assert.False(t, res.ShouldRegenerate)
	require.NotNil(t, generated)
	assert.Equal(t, int64(1), gen.calls.Load())
}

func TestService_Generate_NewFile(t *testing.T) {
	git := &fakeGit{
		worktree: map[string]string{"app/Coupon.php": cartNew},
		head:     "abc1234",
		isRepo:   true,
	}
	gen := &fakeGenerator{markdown: "# Coupon\n"}
	svc := newTestService(t, git, WithGenerator(gen))

	res, generated, err := svc.Generate(context.Background(), GenerateRequest{FilePath: "app/Coupon.php"})
	require.NoError(t, err)
	assert.Equal(t, decision.ReasonNewFile, res.ReasonCode)
	require.NotNil(t, generated)
}

func TestService_Generate_NoGenerator(t *testing.T) {
	svc := newTestService(t, nil)

	_, _, err := svc.Generate(context.Background(), GenerateRequest{FilePath: "app/Cart.php"})
	assert.ErrorIs(t, err, ErrGeneratorDisabled)
}

func TestService_Generate_MissingWorktreeFile(t *testing.T) {
	git := &fakeGit{
		worktree: map[string]string{},
		head:     "abc1234",
		isRepo:   true,
	}
	svc := newTestService(t, git, WithGenerator(&fakeGenerator{markdown: "x"}))

	_, _, err := svc.Generate(context.Background(), GenerateRequest{FilePath: "app/Ghost.php"})
	assert.ErrorIs(t, err, gitx.ErrPathNotInRevision)
}

func TestService_Generate_MissingFilePath(t *testing.T) {
	svc := newTestService(t, nil, WithGenerator(&fakeGenerator{markdown: "x"}))

	_, _, err := svc.Generate(context.Background(), GenerateRequest{})
	assert.ErrorIs(t, err, ErrMissingFilePath)
}

func TestService_Generate_PersistsVerdict(t *testing.T) {
	git := &fakeGit{
		worktree: map[string]string{"app/Cart.php": cartNew},
		atBase:   map[string]string{"app/Cart.php": cartOld},
		head:     "abc1234",
		isRepo:   true,
	}
	store := newTestStore(t)
	svc := newTestService(t, git, WithStore(store), WithGenerator(&fakeGenerator{markdown: "# Cart\n"}))

	_, _, err := svc.Generate(context.Background(), GenerateRequest{FilePath: "app/Cart.php"})
	require.NoError(t, err)

	records, err := svc.History(context.Background(), "app/Cart.php", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "HEAD", records[0].BaseRevision)
	assert.Equal(t, "abc1234", records[0].TargetRevision)
}

func TestService_Ready(t *testing.T) {
	svc := newTestService(t, &fakeGit{isRepo: true},
		WithStore(newTestStore(t)),
		WithGenerator(&fakeGenerator{markdown: "x"}))

	resp := svc.Ready(context.Background())
	assert.True(t, resp.Ready)
	assert.True(t, resp.RepoOK)
	assert.True(t, resp.StoreOK)
	assert.True(t, resp.GeneratorOK)
}

func TestService_Ready_NotARepo(t *testing.T) {
	svc := newTestService(t, &fakeGit{isRepo: false})

	resp := svc.Ready(context.Background())
	assert.False(t, resp.Ready)
	assert.False(t, resp.RepoOK)
	assert.False(t, resp.StoreOK)
	assert.False(t, resp.GeneratorOK)
}
