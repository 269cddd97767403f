// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package drift provides the docdrift HTTP service for documentation
// drift analysis.
//
// The service exposes endpoints for:
//   - Analyzing changed files against a base revision
//   - Deciding a single file from sources supplied in the request
//   - Querying persisted decision history
//   - Regenerating stale documentation
package drift

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/AleutianAI/DocDrift/services/drift/analyze"
	"github.com/AleutianAI/DocDrift/services/drift/ast"
	"github.com/AleutianAI/DocDrift/services/drift/decision"
	"github.com/AleutianAI/DocDrift/services/drift/docmeta"
	"github.com/AleutianAI/DocDrift/services/drift/generate"
	"github.com/AleutianAI/DocDrift/services/drift/gitx"
	"github.com/AleutianAI/DocDrift/services/drift/storage"
)

// ServiceVersion is the docdrift service version.
const ServiceVersion = "0.1.0"

// gitClient is the service's view of the repository. *gitx.Client
// satisfies it; tests substitute an in-memory fake.
type gitClient interface {
	analyze.SourceReader
	IsRepo(ctx context.Context) bool
}

// ServiceConfig configures the drift service.
type ServiceConfig struct {
	// RepoRoot is the repository the service analyzes.
	// Default: "."
	RepoRoot string

	// DocsRoot is the directory generated documentation lives under.
	// Relative paths resolve under RepoRoot.
	// Default: "docs"
	DocsRoot string

	// Jobs is the analysis concurrency for batch runs.
	// Default: analyze.DefaultJobs
	Jobs int

	// MaxFiles caps how many changed files a batch run analyzes.
	// Default: analyze.DefaultMaxFiles
	MaxFiles int

	// Extensions lists the source extensions considered.
	// Default: analyze.DefaultExtensions
	Extensions []string

	// CacheSize is the number of direct-analysis verdicts kept in
	// memory. Default: 256
	CacheSize int
}

// DefaultServiceConfig returns sensible defaults.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		RepoRoot:  ".",
		DocsRoot:  "docs",
		Jobs:      analyze.DefaultJobs,
		MaxFiles:  analyze.DefaultMaxFiles,
		CacheSize: 256,
	}
}

// Service is the drift analysis service.
//
// Thread Safety:
//
//	Service is safe for concurrent use. Multiple goroutines can call
//	any combination of methods simultaneously.
type Service struct {
	config    ServiceConfig
	git       gitClient
	engine    *decision.Engine
	locator   *docmeta.Locator
	pipeline  *analyze.Pipeline
	extractor ast.Extractor
	store     *storage.DecisionStore
	generator generate.Generator
	cache     *decisionCache
	logger    *slog.Logger
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithStore attaches a decision store; verdicts are persisted and the
// history endpoint becomes available.
func WithStore(store *storage.DecisionStore) ServiceOption {
	return func(s *Service) { s.store = store }
}

// WithGenerator attaches a documentation generator; the generate
// endpoint becomes available.
func WithGenerator(g generate.Generator) ServiceOption {
	return func(s *Service) { s.generator = g }
}

// WithEngine replaces the default decision engine, usually to carry a
// custom keyword assessor.
func WithEngine(engine *decision.Engine) ServiceOption {
	return func(s *Service) { s.engine = engine }
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

// NewService creates a drift service over the configured repository.
//
// Description:
//
//	Builds the git client, decision engine, documentation locator, and
//	batch pipeline. The store and generator are optional; endpoints
//	needing them report their absence per request.
//
// Inputs:
//
//	cfg - Service configuration. Zero fields take defaults.
//	opts - Optional store, generator, and logger.
//
// Outputs:
//
//	*Service - The configured service.
//	error - Non-nil if the repository root is unusable.
func NewService(cfg ServiceConfig, opts ...ServiceOption) (*Service, error) {
	if cfg.RepoRoot == "" {
		cfg.RepoRoot = "."
	}
	if cfg.DocsRoot == "" {
		cfg.DocsRoot = "docs"
	}
	if cfg.Jobs <= 0 {
		cfg.Jobs = analyze.DefaultJobs
	}
	if cfg.MaxFiles <= 0 {
		cfg.MaxFiles = analyze.DefaultMaxFiles
	}
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = analyze.DefaultExtensions
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 256
	}

	git, err := gitx.NewClient(cfg.RepoRoot)
	if err != nil {
		return nil, fmt.Errorf("git client: %w", err)
	}

	docsRoot := cfg.DocsRoot
	if !filepath.IsAbs(docsRoot) {
		docsRoot = filepath.Join(cfg.RepoRoot, docsRoot)
	}
	locator := docmeta.NewLocator(docsRoot)

	svc := &Service{
		config:    cfg,
		git:       git,
		locator:   locator,
		extractor: ast.NewPHPExtractor(),
		cache:     newDecisionCache(cfg.CacheSize),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}

	if svc.engine == nil {
		engine, err := decision.NewEngine()
		if err != nil {
			return nil, fmt.Errorf("decision engine: %w", err)
		}
		svc.engine = engine
	}

	pipelineOpts := []analyze.PipelineOption{analyze.WithLogger(svc.logger)}
	if svc.store != nil {
		pipelineOpts = append(pipelineOpts, analyze.WithStore(svc.store))
	}
	pipeline, err := analyze.NewPipeline(git, svc.engine, locator, pipelineOpts...)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	svc.pipeline = pipeline

	return svc, nil
}

// Config returns the resolved service configuration.
func (s *Service) Config() ServiceConfig {
	return s.config
}

// DocPath returns where the documentation for a source file belongs.
func (s *Service) DocPath(filePath string) string {
	return s.locator.DocPath(filePath)
}

// Analyze runs the batch pipeline over the changed files.
//
// Zero-valued option fields take the service defaults.
func (s *Service) Analyze(ctx context.Context, opts analyze.Options) (*analyze.Report, error) {
	if opts.Jobs <= 0 {
		opts.Jobs = s.config.Jobs
	}
	if opts.MaxFiles <= 0 {
		opts.MaxFiles = s.config.MaxFiles
	}
	if len(opts.Extensions) == 0 {
		opts.Extensions = s.config.Extensions
	}
	return s.pipeline.Run(ctx, opts)
}

// AnalyzeFile decides a single file from sources supplied by the
// caller.
//
// Description:
//
//	Runs the decision engine directly, without touching git. The
//	documentation is located by convention from filePath unless docPath
//	overrides it. Verdicts are memoized by content, so repeated
//	requests for unchanged inputs skip the engine.
//
// Outputs:
//
//	*decision.Result - The verdict. Never nil on nil error.
//	error - Non-nil on invalid input.
func (s *Service) AnalyzeFile(ctx context.Context, filePath, oldSource, newSource, docPath string) (*decision.Result, error) {
	if filePath == "" {
		return nil, ErrMissingFilePath
	}
	if newSource == "" {
		return nil, ErrMissingSource
	}
	filePath = filepath.ToSlash(filePath)

	doc := s.loadDoc(ctx, filePath, docPath)

	key := s.cache.key(filePath, oldSource, newSource, doc)
	result := s.cache.getOrDecide(key, func() *decision.Result {
		return s.engine.Decide(ctx, decision.Input{
			FilePath:  filePath,
			OldSource: oldSource,
			NewSource: newSource,
			Doc:       doc,
		})
	})

	s.persist(ctx, filePath, "", "", result)
	return result, nil
}

// History returns persisted verdicts for a file, newest first.
func (s *Service) History(ctx context.Context, filePath string, limit int) ([]*storage.StoredDecision, error) {
	if s.store == nil {
		return nil, ErrStoreDisabled
	}
	if filePath == "" {
		return nil, ErrMissingFilePath
	}
	if limit <= 0 {
		limit = 20
	}
	return s.store.History(ctx, filepath.ToSlash(filePath), limit)
}

// Generate decides a file against a base revision and, when the verdict
// says the documentation is stale, produces the replacement markdown.
//
// Description:
//
//	Reads the worktree and base versions from git, runs the engine, and
//	calls the generator for regenerate verdicts. DryRun stops after the
//	decision; Force generates even on a skip verdict.
//
// Outputs:
//
//	*decision.Result - The verdict. Never nil on nil error.
//	*generate.Generated - The replacement markdown, nil when skipped or
//	  on a dry run.
//	error - Non-nil on git failures, generator absence, or generation
//	  failure.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (*decision.Result, *generate.Generated, error) {
	if req.FilePath == "" {
		return nil, nil, ErrMissingFilePath
	}
	if s.generator == nil && !req.DryRun {
		return nil, nil, ErrGeneratorDisabled
	}
	filePath := filepath.ToSlash(req.FilePath)

	newSource, err := s.git.WorktreeFile(filePath)
	if err != nil {
		return nil, nil, fmt.Errorf("reading working tree: %w", err)
	}

	baseRev := req.BaseRev
	if baseRev == "" {
		baseRev = "HEAD"
	}
	oldSource, err := s.git.FileAtRevision(ctx, baseRev, filePath)
	if err != nil {
		if !errors.Is(err, gitx.ErrPathNotInRevision) {
			return nil, nil, fmt.Errorf("reading %s at %s: %w", filePath, baseRev, err)
		}
		// Absent at the base revision: the new-file sentinel.
		oldSource = ""
	}

	doc := s.loadDoc(ctx, filePath, "")

	result := s.engine.Decide(ctx, decision.Input{
		FilePath:  filePath,
		OldSource: oldSource,
		NewSource: newSource,
		Doc:       doc,
	})

	targetRev, revErr := s.git.HeadRevision(ctx)
	if revErr != nil {
		targetRev = ""
	}
	s.persist(ctx, filePath, baseRev, targetRev, result)

	if req.DryRun {
		return result, nil, nil
	}
	if !result.ShouldRegenerate && !req.Force {
		return result, nil, nil
	}

	model, err := s.extractor.Extract(ctx, []byte(newSource), filePath)
	if err != nil {
		// The prompt degrades to raw source when no model is available.
		s.logger.Warn("structural model unavailable for prompt",
			slog.String("file", filePath),
			slog.String("error", err.Error()))
		model = nil
	}

	gen, err := s.generator.Generate(ctx, generate.Request{
		FilePath:    filePath,
		Source:      newSource,
		Decision:    result,
		ExistingDoc: doc,
		Model:       model,
	})
	if err != nil {
		return result, nil, fmt.Errorf("generating documentation: %w", err)
	}
	return result, gen, nil
}

// Ready reports whether the service's collaborators are usable.
func (s *Service) Ready(ctx context.Context) ReadyResponse {
	repoOK := s.git.IsRepo(ctx)
	return ReadyResponse{
		Ready:       repoOK,
		RepoOK:      repoOK,
		StoreOK:     s.store != nil,
		GeneratorOK: s.generator != nil,
	}
}

// loadDoc locates and loads the documentation for a file. Missing
// documentation is the nil-doc case, not a failure; unreadable
// documentation is logged and treated as missing.
func (s *Service) loadDoc(ctx context.Context, filePath, docPath string) *docmeta.Metadata {
	var (
		doc *docmeta.Metadata
		err error
	)
	if docPath != "" {
		doc, err = s.locator.LoadPath(ctx, docPath)
	} else {
		doc, err = s.locator.Load(ctx, filePath)
	}
	if err != nil {
		if !errors.Is(err, docmeta.ErrNotFound) {
			s.logger.Warn("documentation unreadable, treating as missing",
				slog.String("file", filePath),
				slog.String("error", err.Error()))
		}
		return nil
	}
	return doc
}

// persist saves a verdict when a store is configured. Failures are
// logged, never propagated.
func (s *Service) persist(ctx context.Context, filePath, baseRev, targetRev string, result *decision.Result) {
	if s.store == nil {
		return
	}
	rec := &storage.StoredDecision{
		FilePath:       filePath,
		BaseRevision:   baseRev,
		TargetRevision: targetRev,
		Result:         result,
		DecidedAtMilli: time.Now().UnixMilli(),
	}
	if err := s.store.Save(ctx, rec); err != nil {
		s.logger.Warn("failed to persist decision",
			slog.String("file", filePath),
			slog.String("error", err.Error()))
	}
}
