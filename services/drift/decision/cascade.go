// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package decision

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/AleutianAI/DocDrift/services/drift/ast"
	"github.com/AleutianAI/DocDrift/services/drift/docmeta"
	"github.com/AleutianAI/DocDrift/services/drift/impact"
	"github.com/AleutianAI/DocDrift/services/drift/normalize"
	"github.com/AleutianAI/DocDrift/services/drift/structdiff"
)

// Input carries everything one decision needs. The engine performs no I/O;
// callers supply both source versions and the documentation snapshot.
type Input struct {
	// FilePath is the source file path, used for diagnostics only.
	FilePath string

	// OldSource is the previous version's full text. Empty string is the
	// sentinel for a new file.
	OldSource string

	// NewSource is the current version's full text.
	NewSource string

	// Doc is the existing documentation snapshot, nil when none exists.
	Doc *docmeta.Metadata
}

// Engine runs the decision cascade.
//
// Description:
//
//	Rules are evaluated in fixed priority order and the first match
//	terminates evaluation. The order encodes the product's risk
//	tolerance; rules must not be reordered without re-deriving the
//	safety argument. Parse failures degrade structural rules to a
//	keyword heuristic instead of failing: every call returns a Result.
//
// Thread Safety:
//
//	Safe for concurrent use. The engine holds only read-only
//	collaborators and each Decide call works on its own data.
type Engine struct {
	extractor ast.Extractor
	assessor  *impact.Assessor
}

// Option configures an Engine.
type Option func(*Engine)

// WithExtractor replaces the default PHP structure extractor.
func WithExtractor(e ast.Extractor) Option {
	return func(eng *Engine) {
		eng.extractor = e
	}
}

// WithAssessor replaces the default private-change assessor.
func WithAssessor(a *impact.Assessor) Option {
	return func(eng *Engine) {
		eng.assessor = a
	}
}

// NewEngine creates a decision engine. Defaults: PHP extractor, embedded
// significance keywords.
func NewEngine(opts ...Option) (*Engine, error) {
	eng := &Engine{}
	for _, opt := range opts {
		opt(eng)
	}
	if eng.extractor == nil {
		eng.extractor = ast.NewPHPExtractor()
	}
	if eng.assessor == nil {
		a, err := impact.NewAssessor()
		if err != nil {
			return nil, fmt.Errorf("creating assessor: %w", err)
		}
		eng.assessor = a
	}
	return eng, nil
}

// Decide runs the cascade and returns the verdict. It never returns an
// error: ambiguity and internal failure both resolve to a regenerate
// verdict with reduced confidence.
func (e *Engine) Decide(ctx context.Context, in Input) *Result {
	ctx, span := startDecideSpan(ctx, in.FilePath)
	defer span.End()
	start := time.Now()

	res := e.decide(ctx, in)

	recordDecideMetrics(ctx, res, time.Since(start))
	setDecideSpanResult(span, res)
	return res
}

func (e *Engine) decide(ctx context.Context, in Input) *Result {
	// Rule 0: identical content.
	if in.OldSource == in.NewSource {
		return &Result{
			ShouldRegenerate: false,
			Confidence:       1.0,
			ReasonCode:       ReasonIdenticalContent,
			Severity:         SeverityNone,
			Reasoning:        []string{"old and new content are byte-identical"},
		}
	}

	// Rule 1: new file.
	if in.OldSource == "" {
		return &Result{
			ShouldRegenerate: true,
			Confidence:       1.0,
			ReasonCode:       ReasonNewFile,
			Severity:         SeverityMajor,
			Reasoning:        []string{"old content is empty; treating as a new file"},
			Score:            impact.MaxScore,
		}
	}

	// Rule 2: text-level fast paths, cheaper than parsing.
	if normalize.WhitespaceOnly(in.OldSource, in.NewSource) {
		return &Result{
			ShouldRegenerate: false,
			Confidence:       0.95,
			ReasonCode:       ReasonWhitespaceOnly,
			Severity:         SeverityMinimal,
			Reasoning:        []string{"only whitespace differs between versions"},
		}
	}
	if normalize.CommentOnly(in.OldSource, in.NewSource) {
		return &Result{
			ShouldRegenerate: false,
			Confidence:       0.85,
			ReasonCode:       ReasonCommentsOnly,
			Severity:         SeverityMinor,
			Reasoning:        []string{"only comments differ between versions"},
		}
	}

	// Rule 3: no documentation to protect; every change is relevant.
	if in.Doc == nil {
		return &Result{
			ShouldRegenerate: true,
			Confidence:       1.0,
			ReasonCode:       ReasonNoExistingDoc,
			Severity:         SeverityMajor,
			Reasoning:        []string{"no existing documentation found; relevance score fixed at 100"},
			Score:            impact.MaxScore,
		}
	}

	oldModel, oldErr := e.extractor.Extract(ctx, []byte(in.OldSource), in.FilePath)
	newModel, newErr := e.extractor.Extract(ctx, []byte(in.NewSource), in.FilePath)
	if oldErr != nil || newErr != nil {
		return e.degraded(in, oldErr, newErr)
	}

	report := structdiff.Diff(oldModel, newModel)
	score := impact.Score(report, in.Doc, true)

	// Rule 4: the public surface is untouched; judge magnitude instead.
	if report.OnlyNonPublicChanges() {
		return e.assessPrivate(in, score)
	}

	// Rule 5: public API changed.
	if report.PublicAPIChanged() {
		reasoning := append([]string{"public API changed"}, describePublicChanges(report)...)
		return &Result{
			ShouldRegenerate: true,
			Confidence:       0.95,
			ReasonCode:       ReasonPublicAPIChanges,
			Severity:         SeverityMajor,
			Reasoning:        reasoning,
			AffectedSections: in.Doc.SectionTitles(),
			Score:            score,
		}
	}

	// Rule 6: something the documentation references is gone.
	if removed := impact.RemovedDocumentedElements(report, in.Doc); len(removed) > 0 {
		reasoning := make([]string, 0, len(removed))
		for _, el := range removed {
			reasoning = append(reasoning, fmt.Sprintf("documented element no longer resolves: %s %s", el.Type, el.Name))
		}
		return &Result{
			ShouldRegenerate: true,
			Confidence:       0.9,
			ReasonCode:       ReasonDocumentedPartsChanged,
			Severity:         SeverityMajor,
			Reasoning:        reasoning,
			Score:            score,
		}
	}

	// Rule 7: coarse structural churn.
	if report.CountsChanged() {
		return &Result{
			ShouldRegenerate: true,
			Confidence:       0.85,
			ReasonCode:       ReasonStructuralChanges,
			Severity:         SeverityMajor,
			Reasoning:        describeCountChanges(report.OldCounts, report.NewCounts),
			Score:            score,
		}
	}

	// Rule 8: nothing decisive, but the content differs. Regenerate.
	return &Result{
		ShouldRegenerate: true,
		Confidence:       0.6,
		ReasonCode:       ReasonUncertainImpact,
		Severity:         SeverityUnknown,
		Reasoning:        []string{"declaration-level comparison found no decisive signal; content still differs"},
		Score:            score,
	}
}

// assessPrivate is rule 4: line and keyword magnitude of a change that
// left every public signature alone.
func (e *Engine) assessPrivate(in Input, score int) *Result {
	a := e.assessor.Assess(in.OldSource, in.NewSource)

	reasoning := []string{
		"public surface unchanged",
		fmt.Sprintf("changed lines: %d (%.1f%%)", a.ChangedLines, a.ChangePercentage),
		fmt.Sprintf("keyword count deltas: %d", a.KeywordChanges),
	}

	if a.IsSignificant {
		return &Result{
			ShouldRegenerate: true,
			Confidence:       0.7,
			ReasonCode:       ReasonSignificantPrivateChanges,
			Severity:         SeverityModerate,
			Reasoning:        append(reasoning, "private change magnitude is significant"),
			Score:            score,
		}
	}
	return &Result{
		ShouldRegenerate: false,
		Confidence:       0.8,
		ReasonCode:       ReasonMinorPrivateChanges,
		Severity:         SeverityMinor,
		Reasoning:        append(reasoning, "private change magnitude is below significance thresholds"),
		Score:            score,
	}
}

// degraded handles parse failure on either version: structural rules are
// unavailable, so report the keyword-count shifts and fall back to the
// safety default.
func (e *Engine) degraded(in Input, oldErr, newErr error) *Result {
	var reasoning []string
	if oldErr != nil {
		reasoning = append(reasoning, fmt.Sprintf("failed to parse old version: %v", oldErr))
	}
	if newErr != nil {
		reasoning = append(reasoning, fmt.Sprintf("failed to parse new version: %v", newErr))
	}

	shifts := CountFallbackSignals(in.OldSource).Shifts(CountFallbackSignals(in.NewSource))
	reasoning = append(reasoning, shifts...)
	if len(shifts) == 0 {
		reasoning = append(reasoning, "declaration keyword counts look stable")
	}
	reasoning = append(reasoning, "structure unavailable; defaulting to regenerate")

	// Scoring follows the documented recovery: substitute empty models.
	empty := ast.NewStructuralModel()
	score := impact.Score(structdiff.Diff(empty, empty), in.Doc, true)

	return &Result{
		ShouldRegenerate: true,
		Confidence:       0.6,
		ReasonCode:       ReasonUncertainImpact,
		Severity:         SeverityUnknown,
		Reasoning:        reasoning,
		Score:            score,
	}
}

// describePublicChanges renders one reasoning line per public member
// delta, grouped by type, sorted for deterministic output.
func describePublicChanges(report *structdiff.Report) []string {
	var lines []string
	categories := []struct {
		label string
		diffs structdiff.TypeDiffs
	}{
		{"class", report.Classes},
		{"interface", report.Interfaces},
		{"trait", report.Traits},
	}

	for _, cat := range categories {
		names := make([]string, 0, len(cat.diffs.Modified))
		for name := range cat.diffs.Modified {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			cd := cat.diffs.Modified[name]
			lines = append(lines, describeMemberChanges(cat.label, name, "method", cd.Methods)...)
			lines = append(lines, describeMemberChanges(cat.label, name, "property", cd.Properties)...)
		}
	}
	return lines
}

func describeMemberChanges(typeLabel, typeName, memberLabel string, mc structdiff.MemberChanges) []string {
	var lines []string
	for _, c := range mc.Added {
		if c.TouchesPublicSurface() {
			lines = append(lines, fmt.Sprintf("%s %s: public %s added: %s", typeLabel, typeName, memberLabel, c.NewSignature))
		}
	}
	for _, c := range mc.Removed {
		if c.TouchesPublicSurface() {
			lines = append(lines, fmt.Sprintf("%s %s: public %s removed: %s", typeLabel, typeName, memberLabel, c.OldSignature))
		}
	}
	for _, c := range mc.Modified {
		if c.TouchesPublicSurface() {
			lines = append(lines, fmt.Sprintf("%s %s: public %s changed: %s -> %s", typeLabel, typeName, memberLabel, c.OldSignature, c.NewSignature))
		}
	}
	return lines
}

// describeCountChanges renders the per-category declaration counts that
// moved.
func describeCountChanges(oldCounts, newCounts structdiff.Counts) []string {
	var lines []string
	add := func(label string, oldN, newN int) {
		if oldN != newN {
			lines = append(lines, fmt.Sprintf("%s count changed: %d -> %d", label, oldN, newN))
		}
	}
	add("class", oldCounts.Classes, newCounts.Classes)
	add("interface", oldCounts.Interfaces, newCounts.Interfaces)
	add("trait", oldCounts.Traits, newCounts.Traits)
	add("function", oldCounts.Functions, newCounts.Functions)
	return lines
}
