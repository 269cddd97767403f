// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package docmeta loads and introspects existing generated documentation.
//
// The decision engine does not read documentation files itself; it consumes
// a Metadata snapshot describing what the documentation covers. This package
// produces that snapshot: it locates the Markdown file belonging to a source
// file, splits it into titled sections, and records which code declarations
// the text references.
package docmeta

// Element type values used in DocumentedElement.Type.
const (
	ElementClass     = "class"
	ElementInterface = "interface"
	ElementTrait     = "trait"
	ElementFunction  = "function"
	ElementMethod    = "method"
	ElementProperty  = "property"
	ElementConstant  = "constant"
)

// DocumentedElement is one code declaration the documentation refers to.
// Member names are qualified as "Owner::member".
type DocumentedElement struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// Section is one titled region of a documentation file.
type Section struct {
	// Title is the heading text without markers.
	Title string `json:"title"`

	// Level is the heading depth (1-6).
	Level int `json:"level"`

	// StartLine and EndLine bound the section (1-indexed, inclusive).
	// EndLine is the line before the next heading of any level, or the last
	// line of the file.
	StartLine int `json:"start_line"`
	EndLine   int `json:"end_line"`
}

// Metadata is the snapshot of one documentation file that the decision
// engine consumes. A nil *Metadata means no documentation exists for the
// source file.
type Metadata struct {
	// Path is the documentation file path.
	Path string `json:"path"`

	// Content is the raw documentation text.
	Content string `json:"content,omitempty"`

	// Sections lists the titled regions in document order. Ordered slice
	// rather than a map: duplicate titles are legal in Markdown and order
	// matters for reporting affected sections.
	Sections []Section `json:"sections,omitempty"`

	// DocumentedElements lists the code declarations the text references,
	// first occurrence order, deduplicated.
	DocumentedElements []DocumentedElement `json:"documented_elements,omitempty"`

	// LastModifiedMilli is the file mtime (Unix milliseconds UTC).
	LastModifiedMilli int64 `json:"last_modified_milli,omitempty"`
}

// SectionTitles returns every section title in document order.
func (m *Metadata) SectionTitles() []string {
	if m == nil || len(m.Sections) == 0 {
		return nil
	}
	titles := make([]string, 0, len(m.Sections))
	for _, s := range m.Sections {
		titles = append(titles, s.Title)
	}
	return titles
}
