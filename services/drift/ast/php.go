// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ast

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/php"
)

const (
	// DefaultMaxFileSize is the largest source file an extractor accepts.
	DefaultMaxFileSize int64 = 10 * 1024 * 1024

	// WarnFileSize is the size above which extraction logs a warning.
	WarnFileSize = 1 * 1024 * 1024
)

// PHPExtractorOption configures a PHPExtractor instance.
type PHPExtractorOption func(*PHPExtractor)

// WithPHPMaxFileSize sets the maximum file size the extractor will accept.
//
// Example:
//
//	e := NewPHPExtractor(WithPHPMaxFileSize(5 * 1024 * 1024))
func WithPHPMaxFileSize(bytes int64) PHPExtractorOption {
	return func(e *PHPExtractor) {
		if bytes > 0 {
			e.maxFileSize = bytes
		}
	}
}

// PHPExtractor implements Extractor for PHP source files.
//
// Description:
//
//	PHPExtractor parses PHP with tree-sitter and folds the syntax tree into
//	a StructuralModel in a single walk: namespace, use statements, classes,
//	interfaces, traits with their members, free functions, and top-level
//	constants. Visibility defaults to public at construction time and every
//	type annotation passes through CanonicalType.
//
// Thread Safety:
//
//	Safe for concurrent use. Each Extract call creates its own tree-sitter
//	parser instance.
//
// Limitations:
//
//   - Enum declarations and readonly modifiers are not represented in the
//     model and are skipped.
//   - define() calls are not recorded as constants; only const statements.
//   - Declarations nested inside conditionals are not visited.
type PHPExtractor struct {
	maxFileSize int64
}

// NewPHPExtractor creates a PHPExtractor with the given options.
func NewPHPExtractor(opts ...PHPExtractorOption) *PHPExtractor {
	e := &PHPExtractor{
		maxFileSize: DefaultMaxFileSize,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Language returns "php".
func (e *PHPExtractor) Language() string {
	return "php"
}

// Extensions returns the PHP file extensions.
func (e *PHPExtractor) Extensions() []string {
	return []string{".php"}
}

// Extract parses PHP source into a StructuralModel.
//
// Description:
//
//	Validates content, parses once with tree-sitter, and walks the program
//	node collecting declarations. When the tree contains syntax errors the
//	recovered partial model is returned together with a *ParseError
//	locating the first error region, so callers choose between using the
//	partial model and substituting an empty one.
//
// Inputs:
//
//	ctx - Checked before and after parsing; tree-sitter itself honors it
//	      through ParseCtx.
//	content - Raw PHP source bytes. Must be valid UTF-8.
//	filePath - Used for error reporting only.
//
// Outputs:
//
//	*StructuralModel - The extracted model; partial when err is a
//	                   *ParseError, nil for content-level failures.
//	error - ErrFileTooLarge, ErrInvalidContent, context errors, or a
//	        *ParseError for syntax-level failures.
//
// Thread Safety: safe for concurrent use.
func (e *PHPExtractor) Extract(ctx context.Context, content []byte, filePath string) (*StructuralModel, error) {
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: before parse: %w", ErrContextCanceled, err)
	}

	if int64(len(content)) > e.maxFileSize {
		return nil, fmt.Errorf("%w: size %d exceeds limit %d", ErrFileTooLarge, len(content), e.maxFileSize)
	}

	if len(content) > WarnFileSize {
		slog.Warn("extracting large file",
			slog.String("file", filePath),
			slog.Int("size_bytes", len(content)))
	}

	if !utf8.Valid(content) {
		return nil, fmt.Errorf("%w: content is not valid UTF-8", ErrInvalidContent)
	}

	ctx, span := startExtractSpan(ctx, "php", filePath, len(content))
	defer span.End()

	// New parser per call for thread safety.
	parser := sitter.NewParser()
	parser.SetLanguage(php.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		recordExtractMetrics(ctx, "php", time.Since(start), 0, false)
		return nil, fmt.Errorf("%w: tree-sitter: %w", ErrExtractFailed, err)
	}
	defer tree.Close()

	if err := ctx.Err(); err != nil {
		recordExtractMetrics(ctx, "php", time.Since(start), 0, false)
		return nil, fmt.Errorf("%w: after parse: %w", ErrContextCanceled, err)
	}

	root := tree.RootNode()
	if root == nil {
		recordExtractMetrics(ctx, "php", time.Since(start), 0, false)
		return nil, fmt.Errorf("%w: nil root node", ErrExtractFailed)
	}

	model := NewStructuralModel()
	e.walkProgram(root, content, model)

	declCount := len(model.Classes) + len(model.Interfaces) + len(model.Traits) +
		len(model.Functions) + len(model.Constants)

	if root.HasError() {
		perr := syntaxError(root, filePath)
		recordExtractMetrics(ctx, "php", time.Since(start), declCount, false)
		setExtractSpanResult(span, declCount, perr)
		return model, perr
	}

	recordExtractMetrics(ctx, "php", time.Since(start), declCount, true)
	setExtractSpanResult(span, declCount, nil)
	return model, nil
}

// walkProgram visits top-level statements, descending into namespace bodies.
func (e *PHPExtractor) walkProgram(node *sitter.Node, content []byte, model *StructuralModel) {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "namespace_definition":
			e.processNamespace(child, content, model)
		case "namespace_use_declaration":
			e.processUse(child, content, model)
		case "class_declaration":
			if c := e.processClassLike(child, content); c != nil {
				model.Classes[c.Name] = c
			}
		case "interface_declaration":
			if c := e.processClassLike(child, content); c != nil {
				model.Interfaces[c.Name] = c
			}
		case "trait_declaration":
			if c := e.processClassLike(child, content); c != nil {
				model.Traits[c.Name] = c
			}
		case "function_definition":
			if f := e.processFunction(child, content); f != nil {
				model.Functions = append(model.Functions, f)
			}
		case "const_declaration":
			model.Constants = append(model.Constants, e.processConstants(child, content)...)
		}
	}
}

// processNamespace records the namespace name and walks a braced body.
//
// Only the first namespace name is kept; declarations from every namespace
// block still land in the same model.
func (e *PHPExtractor) processNamespace(node *sitter.Node, content []byte, model *StructuralModel) {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "namespace_name", "qualified_name", "name":
			if model.Namespace == "" {
				model.Namespace = nodeText(child, content)
			}
		case "compound_statement":
			e.walkProgram(child, content, model)
		}
	}
}

// processUse records use statements, expanding grouped imports.
func (e *PHPExtractor) processUse(node *sitter.Node, content []byte, model *StructuralModel) {
	prefix := ""
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "namespace_use_clause":
			model.AddImport(CanonicalExpr(nodeText(child, content)))
		case "namespace_name", "qualified_name":
			// Prefix of a grouped use: use App\Services\{A, B};
			prefix = nodeText(child, content)
		case "namespace_use_group":
			for j := 0; j < int(child.ChildCount()); j++ {
				gc := child.Child(j)
				if gc.Type() == "namespace_use_group_clause" || gc.Type() == "namespace_use_clause" {
					target := CanonicalExpr(nodeText(gc, content))
					if prefix != "" {
						target = prefix + "\\" + target
					}
					model.AddImport(target)
				}
			}
		}
	}
}

// processClassLike handles class, interface, and trait declarations.
//
// Interfaces may extend several interfaces; the whole extends list lands in
// Implements so the set semantics survive, and Extends stays empty for them.
func (e *PHPExtractor) processClassLike(node *sitter.Node, content []byte) *ClassInfo {
	var class *ClassInfo
	isInterface := node.Type() == "interface_declaration"
	isAbstract := false
	isFinal := false

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "abstract_modifier":
			isAbstract = true
		case "final_modifier":
			isFinal = true
		case "name":
			if class == nil {
				class = NewClassInfo(nodeText(child, content))
			}
		case "base_clause":
			if class == nil {
				continue
			}
			names := clauseNames(child, content)
			if isInterface {
				for _, n := range names {
					class.AddImplements(n)
				}
			} else if len(names) > 0 {
				class.Extends = names[0]
			}
		case "class_interface_clause":
			if class == nil {
				continue
			}
			for _, n := range clauseNames(child, content) {
				class.AddImplements(n)
			}
		case "declaration_list":
			if class == nil {
				continue
			}
			e.processMembers(child, content, class)
		}
	}

	if class == nil {
		return nil
	}
	class.IsAbstract = isAbstract
	class.IsFinal = isFinal
	return class
}

// processMembers walks a declaration_list collecting methods, properties,
// and constants.
func (e *PHPExtractor) processMembers(node *sitter.Node, content []byte, class *ClassInfo) {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "method_declaration":
			e.processMethod(child, content, class)
		case "property_declaration":
			class.Properties = append(class.Properties, e.processProperties(child, content)...)
		case "const_declaration":
			class.Constants = append(class.Constants, e.processConstants(child, content)...)
		}
	}
}

// processMethod extracts one method; promoted constructor parameters also
// become properties of the owning class.
func (e *PHPExtractor) processMethod(node *sitter.Node, content []byte, class *ClassInfo) {
	method := &MethodInfo{
		Visibility: VisibilityPublic,
		Parameters: []ParameterInfo{},
	}
	sawName := false
	sawParams := false

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "visibility_modifier":
			method.Visibility = ParseVisibility(nodeText(child, content))
		case "static_modifier":
			method.IsStatic = true
		case "abstract_modifier":
			method.IsAbstract = true
		case "final_modifier":
			method.IsFinal = true
		case "var_modifier", "readonly_modifier", "function", "comment", ":", ";", "attribute_list":
			// Not represented in the model.
		case "name":
			if !sawName {
				method.Name = nodeText(child, content)
				sawName = true
			}
		case "formal_parameters":
			params, promoted := e.processParameters(child, content)
			method.Parameters = params
			sawParams = true
			for _, p := range promoted {
				class.Properties = append(class.Properties, p)
			}
		case "compound_statement":
			// Body is irrelevant to the structural model.
		default:
			// The only node following the parameter list besides the body
			// is the return type annotation.
			if sawName && sawParams && method.ReturnType == "" && child.IsNamed() {
				method.ReturnType = CanonicalType(nodeText(child, content))
			}
		}
	}

	if method.Name == "" {
		return
	}
	class.Methods = append(class.Methods, method)
}

// processParameters extracts the ordered parameter list and any promoted
// constructor properties.
func (e *PHPExtractor) processParameters(node *sitter.Node, content []byte) ([]ParameterInfo, []*PropertyInfo) {
	params := []ParameterInfo{}
	var promoted []*PropertyInfo

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "simple_parameter", "variadic_parameter":
			if p, ok := e.processParameter(child, content); ok {
				p.Variadic = child.Type() == "variadic_parameter"
				params = append(params, p)
			}
		case "property_promotion_parameter":
			p, visibility, ok := e.processPromotedParameter(child, content)
			if !ok {
				continue
			}
			params = append(params, p)
			promoted = append(promoted, &PropertyInfo{
				Name:       p.Name,
				Visibility: visibility,
				Type:       p.Type,
				Default:    p.Default,
			})
		}
	}

	return params, promoted
}

// processParameter handles a plain or variadic parameter node.
func (e *PHPExtractor) processParameter(node *sitter.Node, content []byte) (ParameterInfo, bool) {
	var p ParameterInfo
	sawAssign := false

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "variable_name":
			p.Name = variableName(child, content)
		case "reference_modifier":
			p.ByRef = true
		case "=":
			sawAssign = true
		case "...", ",", "(", ")", "comment", "attribute_list":
		default:
			if sawAssign {
				if p.Default == "" {
					p.Default = CanonicalExpr(nodeText(child, content))
				}
			} else if p.Name == "" && p.Type == "" {
				p.Type = CanonicalType(nodeText(child, content))
			}
		}
	}

	return p, p.Name != ""
}

// processPromotedParameter handles constructor property promotion.
func (e *PHPExtractor) processPromotedParameter(node *sitter.Node, content []byte) (ParameterInfo, Visibility, bool) {
	var p ParameterInfo
	visibility := VisibilityPublic
	sawAssign := false

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "visibility_modifier":
			visibility = ParseVisibility(nodeText(child, content))
		case "readonly_modifier", "var_modifier":
		case "variable_name":
			p.Name = variableName(child, content)
		case "reference_modifier":
			p.ByRef = true
		case "=":
			sawAssign = true
		case ",", "(", ")", "comment", "attribute_list":
		default:
			if sawAssign {
				if p.Default == "" {
					p.Default = CanonicalExpr(nodeText(child, content))
				}
			} else if p.Name == "" && p.Type == "" {
				p.Type = CanonicalType(nodeText(child, content))
			}
		}
	}

	return p, visibility, p.Name != ""
}

// processProperties expands one property_declaration into its elements.
func (e *PHPExtractor) processProperties(node *sitter.Node, content []byte) []*PropertyInfo {
	visibility := VisibilityPublic
	isStatic := false
	propType := ""
	var props []*PropertyInfo

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "visibility_modifier":
			visibility = ParseVisibility(nodeText(child, content))
		case "static_modifier":
			isStatic = true
		case "var_modifier", "readonly_modifier", "abstract_modifier", "final_modifier", ";", ",", "comment", "attribute_list":
		case "property_element":
			p := &PropertyInfo{Visibility: visibility, IsStatic: isStatic, Type: propType}
			sawAssign := false
			for j := 0; j < int(child.ChildCount()); j++ {
				gc := child.Child(j)
				switch gc.Type() {
				case "variable_name":
					p.Name = variableName(gc, content)
				case "=":
					sawAssign = true
				case "property_initializer":
					p.Default = propertyInitializer(gc, content)
				default:
					if sawAssign && p.Default == "" {
						p.Default = CanonicalExpr(nodeText(gc, content))
					}
				}
			}
			if p.Name != "" {
				props = append(props, p)
			}
		default:
			if propType == "" && child.IsNamed() {
				propType = CanonicalType(nodeText(child, content))
			}
		}
	}

	return props
}

// propertyInitializer extracts the expression from a property_initializer
// node, dropping the leading "=".
func propertyInitializer(node *sitter.Node, content []byte) string {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() != "=" {
			return CanonicalExpr(nodeText(child, content))
		}
	}
	return ""
}

// processConstants expands a const_declaration into its elements. Used for
// both class constants and top-level constants.
func (e *PHPExtractor) processConstants(node *sitter.Node, content []byte) []*ConstantInfo {
	visibility := VisibilityPublic
	constType := ""
	var consts []*ConstantInfo

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "visibility_modifier":
			visibility = ParseVisibility(nodeText(child, content))
		case "final_modifier", "const", ";", ",", "comment", "attribute_list":
		case "const_element":
			c := &ConstantInfo{Visibility: visibility, Type: constType}
			sawAssign := false
			for j := 0; j < int(child.ChildCount()); j++ {
				gc := child.Child(j)
				switch gc.Type() {
				case "name":
					if c.Name == "" {
						c.Name = nodeText(gc, content)
					}
				case "=":
					sawAssign = true
				default:
					if sawAssign && c.Value == "" {
						c.Value = CanonicalExpr(nodeText(gc, content))
					}
				}
			}
			if c.Name != "" {
				consts = append(consts, c)
			}
		default:
			if constType == "" && child.IsNamed() {
				constType = CanonicalType(nodeText(child, content))
			}
		}
	}

	return consts
}

// processFunction extracts a free function declaration.
func (e *PHPExtractor) processFunction(node *sitter.Node, content []byte) *FunctionInfo {
	fn := &FunctionInfo{Parameters: []ParameterInfo{}}
	sawName := false
	sawParams := false

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "name":
			if !sawName {
				fn.Name = nodeText(child, content)
				sawName = true
			}
		case "formal_parameters":
			params, _ := e.processParameters(child, content)
			fn.Parameters = params
			sawParams = true
		case "function", ":", ";", "comment", "attribute_list", "reference_modifier":
		case "compound_statement":
		default:
			if sawName && sawParams && fn.ReturnType == "" && child.IsNamed() {
				fn.ReturnType = CanonicalType(nodeText(child, content))
			}
		}
	}

	if fn.Name == "" {
		return nil
	}
	return fn
}

// clauseNames collects the names from a base_clause or
// class_interface_clause.
func clauseNames(node *sitter.Node, content []byte) []string {
	var names []string
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "name", "qualified_name":
			names = append(names, nodeText(child, content))
		}
	}
	return names
}

// nodeText returns the source text covered by a node.
func nodeText(node *sitter.Node, content []byte) string {
	return string(content[node.StartByte():node.EndByte()])
}

// variableName returns a variable_name node's identifier without the sigil.
func variableName(node *sitter.Node, content []byte) string {
	return strings.TrimPrefix(nodeText(node, content), "$")
}

// syntaxError locates the first error region in the tree and wraps it as a
// ParseError. Uses an explicit stack; tree depth is not trusted.
func syntaxError(root *sitter.Node, filePath string) *ParseError {
	stack := []*sitter.Node{root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if node.Type() == "ERROR" || node.IsMissing() {
			point := node.StartPoint()
			return NewParseError(filePath, int(point.Row)+1, int(point.Column), "syntax error")
		}

		// Push children in reverse so the leftmost error is found first.
		for i := int(node.ChildCount()) - 1; i >= 0; i-- {
			child := node.Child(i)
			if child.HasError() || child.Type() == "ERROR" || child.IsMissing() {
				stack = append(stack, child)
			}
		}
	}

	return NewParseError(filePath, 0, 0, "source contains syntax errors")
}
