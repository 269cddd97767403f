// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package decision implements the ordered rule cascade that turns two
// source versions plus documentation metadata into a regenerate/skip
// verdict.
//
// The cascade is total: every input produces a Result, never an error.
// Ambiguity resolves toward regeneration, so a missed stale document costs
// a wasted generation call rather than silently drifting documentation.
package decision

// ReasonCode identifies which cascade rule produced a verdict.
type ReasonCode string

const (
	ReasonIdenticalContent          ReasonCode = "identical_content"
	ReasonNewFile                   ReasonCode = "new_file"
	ReasonWhitespaceOnly            ReasonCode = "whitespace_only"
	ReasonCommentsOnly              ReasonCode = "comments_only"
	ReasonNoExistingDoc             ReasonCode = "no_existing_doc"
	ReasonSignificantPrivateChanges ReasonCode = "significant_private_changes"
	ReasonMinorPrivateChanges       ReasonCode = "minor_private_changes"
	ReasonPublicAPIChanges          ReasonCode = "public_api_changes"
	ReasonDocumentedPartsChanged    ReasonCode = "documented_parts_changed"
	ReasonStructuralChanges         ReasonCode = "structural_changes"
	ReasonUncertainImpact           ReasonCode = "uncertain_impact"
)

// Severity grades how much of the documentation the change likely affects.
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityMinimal  Severity = "minimal"
	SeverityMinor    Severity = "minor"
	SeverityModerate Severity = "moderate"
	SeverityMajor    Severity = "major"
	SeverityUnknown  Severity = "unknown"
)

// Result is the engine's sole output.
type Result struct {
	// ShouldRegenerate is the verdict: true to regenerate documentation,
	// false to skip.
	ShouldRegenerate bool `json:"should_regenerate"`

	// Confidence is how certain the deciding rule is, in [0,1].
	Confidence float64 `json:"confidence"`

	// ReasonCode names the rule that decided.
	ReasonCode ReasonCode `json:"reason_code"`

	// Reasoning itemizes the evidence in human-readable lines.
	Reasoning []string `json:"reasoning"`

	// Severity grades the change.
	Severity Severity `json:"severity"`

	// AffectedSections lists documentation section titles the change
	// touches. Populated for public API changes.
	AffectedSections []string `json:"affected_sections,omitempty"`

	// Score is the 0-100 relevance score, when one was computed.
	Score int `json:"score"`
}
