// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package impact

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/DocDrift/services/drift/ast"
	"github.com/AleutianAI/DocDrift/services/drift/docmeta"
	"github.com/AleutianAI/DocDrift/services/drift/structdiff"
)

func modelWithPublicMethods(className string, methodNames ...string) *ast.StructuralModel {
	m := ast.NewStructuralModel()
	c := ast.NewClassInfo(className)
	for _, name := range methodNames {
		c.Methods = append(c.Methods, &ast.MethodInfo{Name: name, Visibility: ast.VisibilityPublic})
	}
	m.Classes[className] = c
	return m
}

func TestScoreNoDocumentationIsMax(t *testing.T) {
	report := structdiff.Diff(ast.NewStructuralModel(), ast.NewStructuralModel())
	assert.Equal(t, MaxScore, Score(report, nil, false))
	assert.Equal(t, MaxScore, Score(report, nil, true))
}

func TestScoreUnchangedIsZero(t *testing.T) {
	m := modelWithPublicMethods("Svc", "run")
	report := structdiff.Diff(m, m)
	assert.Equal(t, 0, Score(report, &docmeta.Metadata{Path: "docs/Svc.md"}, false))
}

func TestScoreRawChangeOnly(t *testing.T) {
	m := modelWithPublicMethods("Svc", "run")
	report := structdiff.Diff(m, m)
	assert.Equal(t, 10, Score(report, &docmeta.Metadata{Path: "docs/Svc.md"}, true))
}

func TestScorePublicAPIChange(t *testing.T) {
	oldM := modelWithPublicMethods("Svc", "run")
	newM := modelWithPublicMethods("Svc", "run", "stop")
	report := structdiff.Diff(oldM, newM)

	score := Score(report, &docmeta.Metadata{Path: "docs/Svc.md"}, true)
	assert.Equal(t, 40+10, score)
}

func TestScoreDocumentedElementRemoved(t *testing.T) {
	oldM := modelWithPublicMethods("Svc", "run")
	oldM.Classes["Gone"] = ast.NewClassInfo("Gone")
	newM := modelWithPublicMethods("Svc", "run")

	report := structdiff.Diff(oldM, newM)
	doc := &docmeta.Metadata{
		Path:               "docs/Svc.md",
		DocumentedElements: []docmeta.DocumentedElement{{Type: docmeta.ElementClass, Name: "Gone"}},
	}

	// removed documented element 30, class count churn 20, raw change 10
	assert.Equal(t, 30+20+10, Score(report, doc, true))
}

func TestScoreCapsAtHundred(t *testing.T) {
	oldM := modelWithPublicMethods("Svc", "run")
	oldM.Classes["Gone"] = ast.NewClassInfo("Gone")
	newM := modelWithPublicMethods("Svc", "run", "stop")

	report := structdiff.Diff(oldM, newM)
	doc := &docmeta.Metadata{
		Path:               "docs/Svc.md",
		DocumentedElements: []docmeta.DocumentedElement{{Type: docmeta.ElementClass, Name: "Gone"}},
	}

	score := Score(report, doc, true)
	assert.Equal(t, MaxScore, score)
}

func TestRemovedDocumentedElements(t *testing.T) {
	oldM := modelWithPublicMethods("Svc", "run", "helper")
	newM := modelWithPublicMethods("Svc", "run")

	report := structdiff.Diff(oldM, newM)
	doc := &docmeta.Metadata{
		DocumentedElements: []docmeta.DocumentedElement{
			{Type: docmeta.ElementMethod, Name: "Svc::helper"},
			{Type: docmeta.ElementMethod, Name: "Svc::run"},
			{Type: docmeta.ElementClass, Name: "NeverExisted"},
		},
	}

	removed := RemovedDocumentedElements(report, doc)
	require.Len(t, removed, 2)
	assert.Equal(t, "Svc::helper", removed[0].Name)
	assert.Equal(t, "NeverExisted", removed[1].Name, "an element that never resolved is equally stale")
}

func TestRemovedDocumentedElementsNilDoc(t *testing.T) {
	report := structdiff.Diff(nil, nil)
	assert.Nil(t, RemovedDocumentedElements(report, nil))
}

// ----- assessor -----

func numberedLines(n int) []string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf("alpha beta %d", i)
	}
	return lines
}

func newTestAssessor(t *testing.T) *Assessor {
	t.Helper()
	a, err := NewAssessor()
	require.NoError(t, err)
	return a
}

func TestAssessIdenticalSource(t *testing.T) {
	a := newTestAssessor(t)
	src := strings.Join(numberedLines(20), "\n")

	got := a.Assess(src, src)
	assert.False(t, got.IsSignificant)
	assert.Zero(t, got.ChangedLines)
	assert.Zero(t, got.ChangePercentage)
	assert.Zero(t, got.KeywordChanges)
}

func TestAssessTenChangedLinesNotSignificant(t *testing.T) {
	a := newTestAssessor(t)
	oldLines := numberedLines(100)
	newLines := numberedLines(100)
	for i := 40; i < 50; i++ {
		newLines[i] += " edited"
	}

	got := a.Assess(strings.Join(oldLines, "\n"), strings.Join(newLines, "\n"))
	assert.Equal(t, 10, got.ChangedLines)
	assert.False(t, got.IsSignificant, "thresholds are strict inequalities")
}

func TestAssessElevenChangedLinesSignificant(t *testing.T) {
	a := newTestAssessor(t)
	oldLines := numberedLines(100)
	newLines := numberedLines(100)
	for i := 40; i < 51; i++ {
		newLines[i] += " edited"
	}

	got := a.Assess(strings.Join(oldLines, "\n"), strings.Join(newLines, "\n"))
	assert.Equal(t, 11, got.ChangedLines)
	assert.True(t, got.IsSignificant)
}

func TestAssessPercentageThreshold(t *testing.T) {
	a := newTestAssessor(t)
	oldLines := numberedLines(8)
	newLines := numberedLines(8)
	newLines[2] += " edited"
	newLines[5] += " edited"

	got := a.Assess(strings.Join(oldLines, "\n"), strings.Join(newLines, "\n"))
	assert.Equal(t, 2, got.ChangedLines)
	assert.InDelta(t, 25.0, got.ChangePercentage, 0.01)
	assert.True(t, got.IsSignificant, "25% clears the 20% threshold")
}

func TestAssessKeywordThreshold(t *testing.T) {
	a := newTestAssessor(t)
	oldLines := numberedLines(30)
	newLines := numberedLines(30)
	newLines[10] = "process payment now"
	newLines[11] = "validate input"
	newLines[12] = "throw on failure"
	newLines[13] = "open transaction"

	got := a.Assess(strings.Join(oldLines, "\n"), strings.Join(newLines, "\n"))
	assert.Equal(t, 4, got.ChangedLines)
	assert.Equal(t, 4, got.KeywordChanges)
	assert.True(t, got.IsSignificant, "4 keyword deltas clear the >3 threshold")
}

func TestAssessThreeKeywordDeltasNotSignificant(t *testing.T) {
	a := newTestAssessor(t)
	oldLines := numberedLines(30)
	newLines := numberedLines(30)
	newLines[10] = "process payment now"
	newLines[11] = "validate input"
	newLines[12] = "throw on failure"

	got := a.Assess(strings.Join(oldLines, "\n"), strings.Join(newLines, "\n"))
	assert.Equal(t, 3, got.KeywordChanges)
	assert.False(t, got.IsSignificant)
}

func TestAssessEmptyToContent(t *testing.T) {
	a := newTestAssessor(t)
	got := a.Assess("", strings.Join(numberedLines(5), "\n"))
	assert.True(t, got.IsSignificant, "100% of lines changed")
	assert.InDelta(t, 100.0, got.ChangePercentage, 0.01)
}

// ----- keywords -----

func TestDefaultKeywordsLoad(t *testing.T) {
	ks, err := DefaultKeywords()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, ks.Len(), 30)

	terms := ks.Terms()
	for _, want := range []string{"if", "throw", "payment", "validate", "transaction"} {
		assert.Contains(t, terms, want)
	}
}

func TestKeywordWordBoundaries(t *testing.T) {
	ks, err := DefaultKeywords()
	require.NoError(t, err)

	// "diff" must not count as "if"; "notify" must not count either.
	assert.Equal(t, 0, ks.CountDeltas("the diff", "notify"))
	assert.Equal(t, 1, ks.CountDeltas("if ($x) {}", "$x;"))
}

func TestKeywordCaseInsensitive(t *testing.T) {
	ks, err := DefaultKeywords()
	require.NoError(t, err)
	assert.Equal(t, 0, ks.CountDeltas("THROW new X;", "throw new X;"))
}

func TestParseKeywordsRejectsEmpty(t *testing.T) {
	_, err := ParseKeywords([]byte("categories: []"))
	assert.Error(t, err)
}

func TestParseKeywordsDeduplicates(t *testing.T) {
	yaml := []byte("categories:\n  - name: a\n    terms: [save, Save]\n  - name: b\n    terms: [save]\n")
	ks, err := ParseKeywords(yaml)
	require.NoError(t, err)
	assert.Equal(t, 1, ks.Len())
	assert.Equal(t, []string{"save"}, ks.Terms())
}
