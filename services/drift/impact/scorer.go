// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package impact turns a structural diff into a 0-100 relevance score and
// assesses the magnitude of private-only changes.
package impact

import (
	"github.com/AleutianAI/DocDrift/services/drift/docmeta"
	"github.com/AleutianAI/DocDrift/services/drift/structdiff"
)

// MaxScore is the score ceiling and the fixed score when no documentation
// exists yet.
const MaxScore = 100

// Score weights. They sum to exactly MaxScore; the cap guards against
// future additions.
const (
	weightPublicAPI         = 40
	weightDocumentedRemoved = 30
	weightCountChurn        = 20
	weightRawChange         = 10
)

// Score computes how relevant a change is to existing documentation.
//
// Description:
//
//	Missing documentation short-circuits to MaxScore: with nothing
//	written yet, every change is maximally relevant. Otherwise the score
//	accumulates fixed weights for public-surface deltas, removed
//	documented declarations, declaration-count churn, and any raw text
//	change, capped at MaxScore.
//
// Inputs:
//   - report: structural comparison of the two versions. Must not be nil.
//   - doc: existing documentation snapshot, or nil when none exists.
//   - rawChanged: whether the raw source text differs at all.
//
// Outputs:
//   - int: relevance score in [0, MaxScore].
func Score(report *structdiff.Report, doc *docmeta.Metadata, rawChanged bool) int {
	if doc == nil {
		return MaxScore
	}

	score := 0
	if report.PublicAPIChanged() {
		score += weightPublicAPI
	}
	if len(RemovedDocumentedElements(report, doc)) > 0 {
		score += weightDocumentedRemoved
	}
	if report.CountsChanged() {
		score += weightCountChurn
	}
	if rawChanged {
		score += weightRawChange
	}

	if score > MaxScore {
		score = MaxScore
	}
	return score
}

// RemovedDocumentedElements returns the documented declarations that no
// longer resolve in the new structural model, in documentation order.
//
// Resolution is against the new version only: a documented element that
// never existed is equally unresolvable and equally stale.
func RemovedDocumentedElements(report *structdiff.Report, doc *docmeta.Metadata) []docmeta.DocumentedElement {
	if doc == nil || report == nil || report.New == nil {
		return nil
	}
	var removed []docmeta.DocumentedElement
	for _, el := range doc.DocumentedElements {
		if !report.New.Resolves(el.Type, el.Name) {
			removed = append(removed, el)
		}
	}
	return removed
}
