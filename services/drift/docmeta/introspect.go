// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package docmeta

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	tree_sitter_markdown "github.com/smacker/go-tree-sitter/markdown/tree-sitter-markdown"
)

// Markdown block-grammar node types used for section extraction.
const (
	nodeDocument   = "document"
	nodeSection    = "section"
	nodeAtxHeading = "atx_heading"
	nodeH1Marker   = "atx_h1_marker"
	nodeH2Marker   = "atx_h2_marker"
	nodeH3Marker   = "atx_h3_marker"
	nodeH4Marker   = "atx_h4_marker"
	nodeH5Marker   = "atx_h5_marker"
	nodeH6Marker   = "atx_h6_marker"
	nodeInline     = "inline"
)

// Code references are recognized inside backtick spans and heading titles.
var (
	codeSpanPattern = regexp.MustCompile("`([^`\n]+)`")
	methodPattern   = regexp.MustCompile(`^\\?(?:\w+\\)*(\w+)::(\w+)\([^)]*\)$`)
	propertyPattern = regexp.MustCompile(`^\\?(?:\w+\\)*(\w+)::\$(\w+)$`)
	constantPattern = regexp.MustCompile(`^\\?(?:\w+\\)*(\w+)::([A-Z][A-Z0-9_]*)$`)
	functionPattern = regexp.MustCompile(`^([a-z_]\w*)\([^)]*\)$`)
	classPattern    = regexp.MustCompile(`^\\?(?:\w+\\)*([A-Z]\w*)$`)

	// Bare heading titles need two capital humps before they count as a
	// class name, so prose headings like "Overview" stay out.
	camelHeadingPattern = regexp.MustCompile(`^\\?(?:\w+\\)*([A-Z][a-z0-9_]*[A-Z]\w*)$`)
)

// IntrospectorOptions configures Introspector behavior.
type IntrospectorOptions struct {
	// MaxFileSize is the maximum documentation size in bytes.
	// Default: 10MB
	MaxFileSize int

	// MaxHeadingDepth is the deepest heading level recorded as a section
	// (1-6). Default: 6
	MaxHeadingDepth int
}

// DefaultIntrospectorOptions returns the default options.
func DefaultIntrospectorOptions() IntrospectorOptions {
	return IntrospectorOptions{
		MaxFileSize:     10 * 1024 * 1024, // 10MB
		MaxHeadingDepth: 6,
	}
}

// IntrospectorOption is a functional option for configuring Introspector.
type IntrospectorOption func(*IntrospectorOptions)

// WithMaxFileSize sets the maximum documentation file size.
func WithMaxFileSize(size int) IntrospectorOption {
	return func(o *IntrospectorOptions) {
		o.MaxFileSize = size
	}
}

// WithMaxHeadingDepth sets the deepest heading level recorded as a section.
func WithMaxHeadingDepth(depth int) IntrospectorOption {
	return func(o *IntrospectorOptions) {
		o.MaxHeadingDepth = depth
	}
}

// Introspector extracts Metadata from Markdown documentation.
//
// Description:
//
//	Uses the tree-sitter Markdown block grammar to find ATX headings, then
//	derives section line ranges from heading positions. Code declarations
//	referenced in backtick spans or heading titles become
//	DocumentedElements.
//
// Thread Safety:
//
//	Safe for concurrent use. Each Introspect call creates its own
//	tree-sitter parser instance.
type Introspector struct {
	options IntrospectorOptions
}

// NewIntrospector creates an Introspector with the given options.
func NewIntrospector(opts ...IntrospectorOption) *Introspector {
	options := DefaultIntrospectorOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return &Introspector{options: options}
}

// Introspect parses documentation content into a Metadata snapshot.
//
// Inputs:
//   - ctx: context for cancellation, checked before and after parsing.
//   - content: raw Markdown bytes. Must be valid UTF-8.
//   - path: documentation file path, recorded verbatim.
//
// Outputs:
//   - *Metadata: the snapshot. Never nil on success.
//   - error: non-nil for oversized or non-UTF-8 content.
func (in *Introspector) Introspect(ctx context.Context, content []byte, path string) (*Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("doc introspection canceled before start: %w", err)
	}
	if len(content) > in.options.MaxFileSize {
		return nil, ErrFileTooLarge
	}
	if !utf8.Valid(content) {
		return nil, ErrInvalidContent
	}

	text := string(content)
	meta := &Metadata{
		Path:    path,
		Content: text,
	}

	parser := sitter.NewParser()
	parser.SetLanguage(tree_sitter_markdown.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("doc introspection canceled after parse: %w", err)
	}

	var headings []Section
	in.collectHeadings(tree.RootNode(), content, &headings)
	meta.Sections = closeSections(headings, lineCount(text))
	meta.DocumentedElements = scanDocumentedElements(text, meta.Sections)

	return meta, nil
}

// collectHeadings walks the block tree and records every ATX heading with
// its level and start line. EndLine is filled in afterwards.
func (in *Introspector) collectHeadings(node *sitter.Node, content []byte, out *[]Section) {
	if node == nil {
		return
	}

	if node.Type() == nodeAtxHeading {
		level := 0
		title := ""
		for i := 0; i < int(node.ChildCount()); i++ {
			child := node.Child(i)
			switch child.Type() {
			case nodeH1Marker:
				level = 1
			case nodeH2Marker:
				level = 2
			case nodeH3Marker:
				level = 3
			case nodeH4Marker:
				level = 4
			case nodeH5Marker:
				level = 5
			case nodeH6Marker:
				level = 6
			case nodeInline:
				title = strings.TrimSpace(string(content[child.StartByte():child.EndByte()]))
			}
		}
		if level > 0 && level <= in.options.MaxHeadingDepth && title != "" {
			*out = append(*out, Section{
				Title:     title,
				Level:     level,
				StartLine: int(node.StartPoint().Row) + 1,
			})
		}
		return
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		in.collectHeadings(node.Child(i), content, out)
	}
}

// closeSections assigns each heading an EndLine: the line before the next
// heading of any level, or the last line of the file.
func closeSections(headings []Section, totalLines int) []Section {
	for i := range headings {
		if i+1 < len(headings) {
			headings[i].EndLine = headings[i+1].StartLine - 1
		} else {
			headings[i].EndLine = totalLines
		}
		if headings[i].EndLine < headings[i].StartLine {
			headings[i].EndLine = headings[i].StartLine
		}
	}
	return headings
}

func lineCount(text string) int {
	if text == "" {
		return 0
	}
	n := strings.Count(text, "\n") + 1
	if strings.HasSuffix(text, "\n") {
		n--
	}
	return n
}

// scanDocumentedElements finds code declarations referenced by the text.
// Backtick spans anywhere in the document are classified first, in document
// order, then bare heading titles. Duplicates keep the first occurrence.
func scanDocumentedElements(text string, sections []Section) []DocumentedElement {
	var elements []DocumentedElement
	seen := make(map[DocumentedElement]bool)

	add := func(el DocumentedElement, ok bool) {
		if !ok || seen[el] {
			return
		}
		seen[el] = true
		elements = append(elements, el)
	}

	for _, span := range codeSpanPattern.FindAllStringSubmatch(text, -1) {
		add(classifyReference(span[1]))
	}

	// Backticked heading titles were already covered by the span scan.
	// Bare titles are accepted only when they plainly name a declaration.
	for _, s := range sections {
		title := strings.TrimSpace(s.Title)
		if strings.ContainsAny(title, " \t`") {
			continue
		}
		if strings.Contains(title, "::") || strings.HasSuffix(title, ")") {
			add(classifyReference(title))
			continue
		}
		if m := camelHeadingPattern.FindStringSubmatch(title); m != nil {
			add(DocumentedElement{Type: ElementClass, Name: m[1]}, true)
		}
	}

	return elements
}

// classifyReference decides whether a snippet names a code declaration and
// of what kind. Member references must be "Owner::member" qualified; the
// stored name drops any namespace prefix and property sigil so it matches
// structural-model naming.
func classifyReference(snippet string) (DocumentedElement, bool) {
	snippet = strings.TrimSpace(snippet)
	if snippet == "" {
		return DocumentedElement{}, false
	}

	if m := methodPattern.FindStringSubmatch(snippet); m != nil {
		return DocumentedElement{Type: ElementMethod, Name: m[1] + "::" + m[2]}, true
	}
	if m := propertyPattern.FindStringSubmatch(snippet); m != nil {
		return DocumentedElement{Type: ElementProperty, Name: m[1] + "::" + m[2]}, true
	}
	if m := constantPattern.FindStringSubmatch(snippet); m != nil {
		return DocumentedElement{Type: ElementConstant, Name: m[1] + "::" + m[2]}, true
	}
	if m := functionPattern.FindStringSubmatch(snippet); m != nil {
		return DocumentedElement{Type: ElementFunction, Name: m[1]}, true
	}
	if m := classPattern.FindStringSubmatch(snippet); m != nil {
		return DocumentedElement{Type: ElementClass, Name: m[1]}, true
	}
	return DocumentedElement{}, false
}
