// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ast extracts declaration-level structural models from source text.
//
// A StructuralModel is a formatting-independent snapshot of one version of a
// source file: namespace, imports, classes/interfaces/traits with their
// members, free functions, and constants. Two models of the same file at
// different revisions are the inputs to structural diffing; nothing in this
// package looks at more than one version at a time.
package ast

import (
	"sort"
	"strings"
)

// =============================================================================
// Visibility
// =============================================================================

// Visibility is the declared access level of a member.
//
// When source omits the modifier, VisibilityPublic applies. The default is
// assigned exactly once, at model construction, so comparison code never
// re-derives it.
type Visibility string

const (
	VisibilityPublic    Visibility = "public"
	VisibilityProtected Visibility = "protected"
	VisibilityPrivate   Visibility = "private"
)

// ParseVisibility maps a source modifier token to a Visibility.
//
// Unrecognized or empty input yields VisibilityPublic, which encodes the
// default-public policy in one place.
func ParseVisibility(s string) Visibility {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "protected":
		return VisibilityProtected
	case "private":
		return VisibilityPrivate
	default:
		return VisibilityPublic
	}
}

// IsPublic reports whether the member is part of the public surface.
func (v Visibility) IsPublic() bool {
	return v == VisibilityPublic || v == ""
}

// =============================================================================
// Structural Model
// =============================================================================

// StructuralModel is an immutable snapshot of one source version.
//
// Description:
//
//	Holds every declaration found in a single parse pass. All collections
//	are non-nil by construction; absence is an empty collection, never nil.
//	Classes, interfaces, and traits are keyed by name; a duplicate
//	declaration overwrites the earlier one (last declaration wins).
//
// Thread Safety: a model is written only during extraction and read-only
// afterwards; concurrent reads are safe.
type StructuralModel struct {
	// Namespace is the declared namespace, or "" when the file has none.
	Namespace string `json:"namespace,omitempty"`

	// Imports holds use/import targets, sorted and deduplicated.
	Imports []string `json:"imports"`

	// Classes maps class name to its declaration.
	Classes map[string]*ClassInfo `json:"classes"`

	// Interfaces maps interface name to its declaration. Interfaces reuse
	// ClassInfo; their methods are public and bodiless.
	Interfaces map[string]*ClassInfo `json:"interfaces"`

	// Traits maps trait name to its declaration.
	Traits map[string]*ClassInfo `json:"traits"`

	// Functions lists free functions in declaration order.
	Functions []*FunctionInfo `json:"functions"`

	// Constants lists file-level constants in declaration order.
	Constants []*ConstantInfo `json:"constants"`
}

// NewStructuralModel returns an empty model with all collections allocated.
//
// Callers that need the "no declarations" fallback after a parse failure use
// this directly.
func NewStructuralModel() *StructuralModel {
	return &StructuralModel{
		Imports:    []string{},
		Classes:    map[string]*ClassInfo{},
		Interfaces: map[string]*ClassInfo{},
		Traits:     map[string]*ClassInfo{},
		Functions:  []*FunctionInfo{},
		Constants:  []*ConstantInfo{},
	}
}

// AddImport records an import target, keeping Imports sorted and unique.
func (m *StructuralModel) AddImport(target string) {
	if target == "" {
		return
	}
	i := sort.SearchStrings(m.Imports, target)
	if i < len(m.Imports) && m.Imports[i] == target {
		return
	}
	m.Imports = append(m.Imports, "")
	copy(m.Imports[i+1:], m.Imports[i:])
	m.Imports[i] = target
}

// IsEmpty reports whether the model holds no declarations at all.
func (m *StructuralModel) IsEmpty() bool {
	return m.Namespace == "" &&
		len(m.Imports) == 0 &&
		len(m.Classes) == 0 &&
		len(m.Interfaces) == 0 &&
		len(m.Traits) == 0 &&
		len(m.Functions) == 0 &&
		len(m.Constants) == 0
}

// Resolves reports whether a named declaration still exists in the model.
//
// Description:
//
//	Used to answer "does the element this documentation references still
//	exist?". elemType narrows the search ("class", "interface", "trait",
//	"method", "function", "property", "constant"); an empty or unknown
//	elemType searches every category. Member names may be qualified as
//	"Owner::member", which restricts the member search to that owner.
//
// Inputs:
//
//	elemType - Category hint from documentation metadata. May be "".
//	name - Declaration name, optionally "Owner::member" qualified.
//
// Outputs:
//
//	true when a matching declaration exists in this model.
func (m *StructuralModel) Resolves(elemType, name string) bool {
	if name == "" {
		return false
	}
	owner := ""
	if idx := strings.Index(name, "::"); idx >= 0 {
		owner, name = name[:idx], name[idx+2:]
	}

	switch strings.ToLower(elemType) {
	case "class":
		// Documentation rarely distinguishes class-like kinds; accept any.
		if _, ok := m.Classes[name]; ok {
			return true
		}
		if _, ok := m.Interfaces[name]; ok {
			return true
		}
		_, ok := m.Traits[name]
		return ok
	case "interface":
		_, ok := m.Interfaces[name]
		return ok
	case "trait":
		_, ok := m.Traits[name]
		return ok
	case "function":
		return m.findFunction(name)
	case "method":
		return m.findMember(owner, name, memberMethod)
	case "property":
		return m.findMember(owner, name, memberProperty)
	case "constant":
		if m.findMember(owner, name, memberConstant) {
			return true
		}
		for _, c := range m.Constants {
			if c.Name == name {
				return true
			}
		}
		return false
	default:
		if _, ok := m.Classes[name]; ok {
			return true
		}
		if _, ok := m.Interfaces[name]; ok {
			return true
		}
		if _, ok := m.Traits[name]; ok {
			return true
		}
		if m.findFunction(name) {
			return true
		}
		return m.findMember(owner, name, memberAny)
	}
}

type memberKind int

const (
	memberAny memberKind = iota
	memberMethod
	memberProperty
	memberConstant
)

func (m *StructuralModel) findFunction(name string) bool {
	for _, f := range m.Functions {
		if f.Name == name {
			return true
		}
	}
	return false
}

func (m *StructuralModel) findMember(owner, name string, kind memberKind) bool {
	check := func(c *ClassInfo) bool {
		if kind == memberAny || kind == memberMethod {
			for _, meth := range c.Methods {
				if meth.Name == name {
					return true
				}
			}
		}
		if kind == memberAny || kind == memberProperty {
			for _, p := range c.Properties {
				if p.Name == name {
					return true
				}
			}
		}
		if kind == memberAny || kind == memberConstant {
			for _, cst := range c.Constants {
				if cst.Name == name {
					return true
				}
			}
		}
		return false
	}

	for _, group := range []map[string]*ClassInfo{m.Classes, m.Interfaces, m.Traits} {
		if owner != "" {
			if c, ok := group[owner]; ok && check(c) {
				return true
			}
			continue
		}
		for _, c := range group {
			if check(c) {
				return true
			}
		}
	}
	return false
}

// =============================================================================
// Class-like declarations
// =============================================================================

// ClassInfo describes one class, interface, or trait declaration.
type ClassInfo struct {
	// Name is the declared name, always equal to the model map key.
	Name string `json:"name"`

	// Extends is the parent name, or "" when the declaration extends nothing.
	Extends string `json:"extends,omitempty"`

	// Implements holds implemented interface names, sorted and deduplicated.
	Implements []string `json:"implements"`

	// IsAbstract is true for abstract class declarations.
	IsAbstract bool `json:"is_abstract"`

	// IsFinal is true for final classes.
	IsFinal bool `json:"is_final"`

	// Methods lists member methods in declaration order.
	Methods []*MethodInfo `json:"methods"`

	// Properties lists member properties in declaration order.
	Properties []*PropertyInfo `json:"properties"`

	// Constants lists member constants in declaration order.
	Constants []*ConstantInfo `json:"constants"`
}

// NewClassInfo returns a ClassInfo with all collections allocated.
func NewClassInfo(name string) *ClassInfo {
	return &ClassInfo{
		Name:       name,
		Implements: []string{},
		Methods:    []*MethodInfo{},
		Properties: []*PropertyInfo{},
		Constants:  []*ConstantInfo{},
	}
}

// AddImplements records an implemented interface, keeping the list sorted
// and unique.
func (c *ClassInfo) AddImplements(name string) {
	if name == "" {
		return
	}
	i := sort.SearchStrings(c.Implements, name)
	if i < len(c.Implements) && c.Implements[i] == name {
		return
	}
	c.Implements = append(c.Implements, "")
	copy(c.Implements[i+1:], c.Implements[i:])
	c.Implements[i] = name
}

// Method returns the named method, or nil.
func (c *ClassInfo) Method(name string) *MethodInfo {
	for _, m := range c.Methods {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// PublicMethodCount counts methods on the public surface.
func (c *ClassInfo) PublicMethodCount() int {
	n := 0
	for _, m := range c.Methods {
		if m.Visibility.IsPublic() {
			n++
		}
	}
	return n
}

// PublicPropertyCount counts properties on the public surface.
func (c *ClassInfo) PublicPropertyCount() int {
	n := 0
	for _, p := range c.Properties {
		if p.Visibility.IsPublic() {
			n++
		}
	}
	return n
}

// =============================================================================
// Members
// =============================================================================

// MethodInfo describes a member method.
type MethodInfo struct {
	Name       string          `json:"name"`
	Visibility Visibility      `json:"visibility"`
	IsStatic   bool            `json:"is_static"`
	IsAbstract bool            `json:"is_abstract"`
	IsFinal    bool            `json:"is_final"`
	Parameters []ParameterInfo `json:"parameters"`
	// ReturnType is the canonical return type, or "" when undeclared.
	ReturnType string `json:"return_type,omitempty"`
}

// Signature renders the method as "name(params): return" for display and
// comparison. Modifiers are not part of the signature string; they are
// compared as separate fields.
func (m *MethodInfo) Signature() string {
	var b strings.Builder
	b.WriteString(m.Name)
	b.WriteByte('(')
	for i, p := range m.Parameters {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.String())
	}
	b.WriteByte(')')
	if m.ReturnType != "" {
		b.WriteString(": ")
		b.WriteString(m.ReturnType)
	}
	return b.String()
}

// Equal reports full structural equality with another method: visibility,
// static/abstract/final flags, return type, and the ordered parameter list.
func (m *MethodInfo) Equal(other *MethodInfo) bool {
	if m == nil || other == nil {
		return m == other
	}
	if m.Name != other.Name ||
		m.Visibility != other.Visibility ||
		m.IsStatic != other.IsStatic ||
		m.IsAbstract != other.IsAbstract ||
		m.IsFinal != other.IsFinal ||
		m.ReturnType != other.ReturnType {
		return false
	}
	return ParametersEqual(m.Parameters, other.Parameters)
}

// ParameterInfo describes one formal parameter.
//
// Two parameters are equal iff name, type, default, by-ref, and variadic all
// match; parameter lists are positional, so list equality is pairwise in
// order.
type ParameterInfo struct {
	Name string `json:"name"`
	// Type is the canonical type string, or "" when untyped.
	Type string `json:"type,omitempty"`
	// Default is the default value expression verbatim, or "" when none.
	Default  string `json:"default,omitempty"`
	ByRef    bool   `json:"by_ref"`
	Variadic bool   `json:"variadic"`
}

// String renders the parameter the way it reads in a signature.
func (p ParameterInfo) String() string {
	var b strings.Builder
	if p.Type != "" {
		b.WriteString(p.Type)
		b.WriteByte(' ')
	}
	if p.ByRef {
		b.WriteByte('&')
	}
	if p.Variadic {
		b.WriteString("...")
	}
	b.WriteByte('$')
	b.WriteString(p.Name)
	if p.Default != "" {
		b.WriteString(" = ")
		b.WriteString(p.Default)
	}
	return b.String()
}

// ParametersEqual reports ordered pairwise equality of two parameter lists.
func ParametersEqual(a, b []ParameterInfo) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// PropertyInfo describes a member property.
type PropertyInfo struct {
	Name       string     `json:"name"`
	Visibility Visibility `json:"visibility"`
	IsStatic   bool       `json:"is_static"`
	Type       string     `json:"type,omitempty"`
	Default    string     `json:"default,omitempty"`
}

// Descriptor renders the property for comparison and display.
func (p *PropertyInfo) Descriptor() string {
	var b strings.Builder
	b.WriteString(string(p.Visibility))
	if p.IsStatic {
		b.WriteString(" static")
	}
	if p.Type != "" {
		b.WriteByte(' ')
		b.WriteString(p.Type)
	}
	b.WriteString(" $")
	b.WriteString(p.Name)
	if p.Default != "" {
		b.WriteString(" = ")
		b.WriteString(p.Default)
	}
	return b.String()
}

// Equal reports full structural equality with another property.
func (p *PropertyInfo) Equal(other *PropertyInfo) bool {
	if p == nil || other == nil {
		return p == other
	}
	return *p == *other
}

// ConstantInfo describes a class constant or a file-level constant.
type ConstantInfo struct {
	Name       string     `json:"name"`
	Visibility Visibility `json:"visibility"`
	Type       string     `json:"type,omitempty"`
	Value      string     `json:"value,omitempty"`
}

// Descriptor renders the constant for comparison and display.
func (c *ConstantInfo) Descriptor() string {
	var b strings.Builder
	b.WriteString(string(c.Visibility))
	b.WriteString(" const ")
	if c.Type != "" {
		b.WriteString(c.Type)
		b.WriteByte(' ')
	}
	b.WriteString(c.Name)
	if c.Value != "" {
		b.WriteString(" = ")
		b.WriteString(c.Value)
	}
	return b.String()
}

// Equal reports full structural equality with another constant.
func (c *ConstantInfo) Equal(other *ConstantInfo) bool {
	if c == nil || other == nil {
		return c == other
	}
	return *c == *other
}

// FunctionInfo describes a free function.
type FunctionInfo struct {
	Name       string          `json:"name"`
	Parameters []ParameterInfo `json:"parameters"`
	ReturnType string          `json:"return_type,omitempty"`
}

// Signature renders the function as "name(params): return".
func (f *FunctionInfo) Signature() string {
	m := MethodInfo{Name: f.Name, Parameters: f.Parameters, ReturnType: f.ReturnType}
	return m.Signature()
}

// Equal reports full structural equality with another function.
func (f *FunctionInfo) Equal(other *FunctionInfo) bool {
	if f == nil || other == nil {
		return f == other
	}
	return f.Name == other.Name &&
		f.ReturnType == other.ReturnType &&
		ParametersEqual(f.Parameters, other.Parameters)
}
