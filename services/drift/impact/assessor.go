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
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Significance thresholds. A private change is significant when it clears
// any one of them (strict inequalities).
const (
	significantChangePercent = 20.0
	significantChangedLines  = 10
	significantKeywordDeltas = 3
)

// Assessment is the magnitude estimate for a change that left the public
// surface untouched.
type Assessment struct {
	// IsSignificant is true when the change is large enough that the
	// documented behavior has likely shifted even though signatures did
	// not.
	IsSignificant bool `json:"is_significant"`

	// ChangePercentage is changed lines over the larger version's line
	// count, 0-100.
	ChangePercentage float64 `json:"change_percentage"`

	// ChangedLines is the number of inserted, deleted, or replaced lines.
	ChangedLines int `json:"changed_lines"`

	// KeywordChanges is the number of significance keywords whose
	// occurrence count differs between versions.
	KeywordChanges int `json:"keyword_changes"`
}

// Assessor estimates whether a private-only change matters.
//
// Description:
//
//	Structure alone cannot judge edits inside method bodies. The assessor
//	uses two coarse proxies instead: the line-level diff magnitude and
//	occurrence-count deltas of behavior keywords (control flow, errors,
//	persistence, framework idioms). Either proxy clearing its threshold
//	marks the change significant.
//
// Thread Safety:
//
//	Safe for concurrent use; the assessor holds only the read-only
//	keyword set.
type Assessor struct {
	keywords *KeywordSet
}

// NewAssessor creates an Assessor with the embedded keyword set.
func NewAssessor() (*Assessor, error) {
	ks, err := DefaultKeywords()
	if err != nil {
		return nil, err
	}
	return &Assessor{keywords: ks}, nil
}

// NewAssessorWithKeywords creates an Assessor with a custom keyword set.
func NewAssessorWithKeywords(ks *KeywordSet) *Assessor {
	return &Assessor{keywords: ks}
}

// Assess computes the change magnitude between two source versions.
func (a *Assessor) Assess(oldSource, newSource string) Assessment {
	changed := changedLineCount(oldSource, newSource)

	oldLines := lineTotal(oldSource)
	newLines := lineTotal(newSource)
	denom := oldLines
	if newLines > denom {
		denom = newLines
	}

	pct := 0.0
	if denom > 0 {
		pct = float64(changed) / float64(denom) * 100
	}

	kw := a.keywords.CountDeltas(oldSource, newSource)

	return Assessment{
		IsSignificant:    pct > significantChangePercent || changed > significantChangedLines || kw > significantKeywordDeltas,
		ChangePercentage: pct,
		ChangedLines:     changed,
		KeywordChanges:   kw,
	}
}

// changedLineCount runs a line-level sequence match and sums the lines
// touched by every non-equal opcode. A replaced block counts the larger
// side.
func changedLineCount(oldSource, newSource string) int {
	if oldSource == newSource {
		return 0
	}

	oldLines := strings.Split(oldSource, "\n")
	newLines := strings.Split(newSource, "\n")

	matcher := difflib.NewMatcher(oldLines, newLines)
	changed := 0
	for _, op := range matcher.GetOpCodes() {
		switch op.Tag {
		case 'r':
			oldSpan := op.I2 - op.I1
			newSpan := op.J2 - op.J1
			if newSpan > oldSpan {
				changed += newSpan
			} else {
				changed += oldSpan
			}
		case 'd':
			changed += op.I2 - op.I1
		case 'i':
			changed += op.J2 - op.J1
		}
	}
	return changed
}

func lineTotal(source string) int {
	if source == "" {
		return 0
	}
	return strings.Count(source, "\n") + 1
}
