package generate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/AleutianAI/DocDrift/services/drift/ast"
)

const systemPrompt = "You are a technical writer maintaining source code documentation. " +
	"Write a complete, accurate markdown document for the given source file. " +
	"Keep the existing document's structure and tone where it is still correct, " +
	"and rewrite what the change summary says went stale. " +
	"Output only the markdown document, with no preamble or code fences around it."

// Prompt assembly truncation limits, in bytes.
const (
	maxSourceChars = 48000
	maxDocChars    = 16000
)

// BuildPrompt assembles the user prompt for one generation request.
//
// Sections appear in fixed order and all structure listings are sorted,
// so identical requests produce identical prompts.
func BuildPrompt(req Request) string {
	var b strings.Builder

	b.WriteString("# File\n")
	b.WriteString(req.FilePath)
	b.WriteString("\n\n")

	if req.Decision != nil {
		b.WriteString("# Why regeneration was requested\n")
		fmt.Fprintf(&b, "- reason: %s (severity %s, confidence %.2f)\n",
			req.Decision.ReasonCode, req.Decision.Severity, req.Decision.Confidence)
		for _, line := range req.Decision.Reasoning {
			fmt.Fprintf(&b, "- %s\n", line)
		}
		if len(req.Decision.AffectedSections) > 0 {
			fmt.Fprintf(&b, "- sections likely affected: %s\n",
				strings.Join(req.Decision.AffectedSections, ", "))
		}
		b.WriteString("\n")
	}

	if req.Model != nil {
		if summary := summarizeModel(req.Model); summary != "" {
			b.WriteString("# Current public structure\n")
			b.WriteString(summary)
			b.WriteString("\n")
		}
	}

	if req.ExistingDoc != nil && req.ExistingDoc.Content != "" {
		b.WriteString("# Existing documentation (may be stale)\n")
		b.WriteString(truncate(req.ExistingDoc.Content, maxDocChars))
		b.WriteString("\n\n")
	}

	b.WriteString("# Current source\n```\n")
	b.WriteString(truncate(req.Source, maxSourceChars))
	b.WriteString("\n```\n\n")
	b.WriteString("Write the replacement markdown document now.\n")

	return b.String()
}

// summarizeModel lists the public declaration surface, one line per
// symbol, sorted by name within each kind.
func summarizeModel(m *ast.StructuralModel) string {
	var b strings.Builder

	writeClassKind(&b, "class", m.Classes)
	writeClassKind(&b, "interface", m.Interfaces)
	writeClassKind(&b, "trait", m.Traits)

	for _, name := range sortedKeys(m.Functions) {
		fmt.Fprintf(&b, "function %s\n", m.Functions[name].Signature())
	}
	for _, name := range sortedKeys(m.Constants) {
		fmt.Fprintf(&b, "const %s\n", m.Constants[name].Descriptor())
	}

	return b.String()
}

func writeClassKind(b *strings.Builder, kind string, classes map[string]*ast.ClassInfo) {
	for _, name := range sortedKeys(classes) {
		c := classes[name]

		line := kind + " " + c.Name
		if c.Extends != "" {
			line += " extends " + c.Extends
		}
		if len(c.Implements) > 0 {
			line += " implements " + strings.Join(c.Implements, ", ")
		}
		if c.IsAbstract {
			line += " (abstract)"
		}
		if c.IsFinal {
			line += " (final)"
		}
		b.WriteString(line + "\n")

		for _, mName := range sortedKeys(c.Methods) {
			method := c.Methods[mName]
			if method.Visibility != ast.VisibilityPublic {
				continue
			}
			fmt.Fprintf(b, "  public method %s\n", method.Signature())
		}
		for _, pName := range sortedKeys(c.Properties) {
			prop := c.Properties[pName]
			if prop.Visibility != ast.VisibilityPublic {
				continue
			}
			fmt.Fprintf(b, "  public property %s\n", prop.Descriptor())
		}
		for _, cName := range sortedKeys(c.Constants) {
			konst := c.Constants[cName]
			if konst.Visibility != ast.VisibilityPublic {
				continue
			}
			fmt.Fprintf(b, "  public const %s\n", konst.Descriptor())
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// truncate cuts text at the last newline before limit, marking the cut.
func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	cut := strings.LastIndexByte(text[:limit], '\n')
	if cut <= 0 {
		cut = limit
	}
	return text[:cut] + "\n... (truncated)"
}
