// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package structdiff compares two structural models at declaration
// granularity and reports what was added, removed, or modified.
//
// The report is a pure value derived from the two models. It carries enough
// visibility and signature detail for downstream policy code to distinguish
// public-surface changes from private-only churn without re-walking the
// models.
package structdiff

import (
	"github.com/AleutianAI/DocDrift/services/drift/ast"
)

// SetDiff holds the added and removed entries of a name set, sorted.
type SetDiff struct {
	Added   []string `json:"added,omitempty"`
	Removed []string `json:"removed,omitempty"`
}

// IsEmpty reports whether the set comparison found no differences.
func (d SetDiff) IsEmpty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0
}

// MemberChange records one added, removed, or modified member. For an added
// member the Old fields are zero; for a removed member the New fields are
// zero.
type MemberChange struct {
	Name          string         `json:"name"`
	OldVisibility ast.Visibility `json:"old_visibility,omitempty"`
	NewVisibility ast.Visibility `json:"new_visibility,omitempty"`
	OldSignature  string         `json:"old_signature,omitempty"`
	NewSignature  string         `json:"new_signature,omitempty"`
}

// TouchesPublicSurface reports whether either side of the change is public.
// An added public member, a removed public member, and a visibility flip
// into or out of public all count.
func (c MemberChange) TouchesPublicSurface() bool {
	return c.OldVisibility == ast.VisibilityPublic || c.NewVisibility == ast.VisibilityPublic
}

// MemberChanges groups the member-level differences of one category
// (methods, properties, constants, or free functions). All three lists are
// sorted by member name.
type MemberChanges struct {
	Added    []MemberChange `json:"added,omitempty"`
	Removed  []MemberChange `json:"removed,omitempty"`
	Modified []MemberChange `json:"modified,omitempty"`
}

// IsEmpty reports whether no members changed in this category.
func (mc MemberChanges) IsEmpty() bool {
	return len(mc.Added) == 0 && len(mc.Removed) == 0 && len(mc.Modified) == 0
}

// Len returns the total number of recorded changes.
func (mc MemberChanges) Len() int {
	return len(mc.Added) + len(mc.Removed) + len(mc.Modified)
}

// TouchesPublicSurface reports whether any recorded change involves a
// public member on either side.
func (mc MemberChanges) TouchesPublicSurface() bool {
	for _, list := range [][]MemberChange{mc.Added, mc.Removed, mc.Modified} {
		for _, c := range list {
			if c.TouchesPublicSurface() {
				return true
			}
		}
	}
	return false
}

// ClassDiff describes how a class, interface, or trait present in both
// versions changed.
type ClassDiff struct {
	Name string `json:"name"`

	ExtendsChanged bool   `json:"extends_changed,omitempty"`
	OldExtends     string `json:"old_extends,omitempty"`
	NewExtends     string `json:"new_extends,omitempty"`

	ImplementsAdded   []string `json:"implements_added,omitempty"`
	ImplementsRemoved []string `json:"implements_removed,omitempty"`

	AbstractChanged bool `json:"abstract_changed,omitempty"`
	FinalChanged    bool `json:"final_changed,omitempty"`

	Methods    MemberChanges `json:"methods,omitempty"`
	Properties MemberChanges `json:"properties,omitempty"`
	Constants  MemberChanges `json:"constants,omitempty"`
}

// HasChanges reports whether any difference was recorded for this type.
func (d *ClassDiff) HasChanges() bool {
	return d.ExtendsChanged ||
		len(d.ImplementsAdded) > 0 || len(d.ImplementsRemoved) > 0 ||
		d.AbstractChanged || d.FinalChanged ||
		!d.Methods.IsEmpty() || !d.Properties.IsEmpty() || !d.Constants.IsEmpty()
}

// PublicSurfaceChanged reports whether the type's public method or property
// surface differs: a public member was added or removed, a member crossed
// the public boundary, or a public member's signature changed.
func (d *ClassDiff) PublicSurfaceChanged() bool {
	return d.Methods.TouchesPublicSurface() || d.Properties.TouchesPublicSurface()
}

// OnlyNonPublicMembers reports whether every recorded difference is a
// non-public member change. Inheritance, implements, and modifier changes
// disqualify, as does any public constant change.
func (d *ClassDiff) OnlyNonPublicMembers() bool {
	if d.ExtendsChanged || d.AbstractChanged || d.FinalChanged {
		return false
	}
	if len(d.ImplementsAdded) > 0 || len(d.ImplementsRemoved) > 0 {
		return false
	}
	return !d.Methods.TouchesPublicSurface() &&
		!d.Properties.TouchesPublicSurface() &&
		!d.Constants.TouchesPublicSurface()
}

// TypeDiffs holds the comparison of one keyed type category. Added and
// Removed are sorted name lists; Modified maps each surviving name to its
// detailed diff and only contains entries with actual changes.
type TypeDiffs struct {
	Added    []string              `json:"added,omitempty"`
	Removed  []string              `json:"removed,omitempty"`
	Modified map[string]*ClassDiff `json:"modified,omitempty"`
}

// IsEmpty reports whether the category is unchanged.
func (td TypeDiffs) IsEmpty() bool {
	return len(td.Added) == 0 && len(td.Removed) == 0 && len(td.Modified) == 0
}

// Counts is the coarse churn signal: how many declarations of each counted
// category a model holds. Constants are deliberately excluded.
type Counts struct {
	Classes    int `json:"classes"`
	Interfaces int `json:"interfaces"`
	Traits     int `json:"traits"`
	Functions  int `json:"functions"`
}

// ModelCounts derives the counted categories from a model.
func ModelCounts(m *ast.StructuralModel) Counts {
	if m == nil {
		return Counts{}
	}
	return Counts{
		Classes:    len(m.Classes),
		Interfaces: len(m.Interfaces),
		Traits:     len(m.Traits),
		Functions:  len(m.Functions),
	}
}

// Report is the full comparison of two structural models.
//
// Description:
//
//	Each category carries its own added/removed/modified sets. The report
//	retains references to both source models so policy code can resolve
//	documented elements against the new version without re-parsing.
//
// Thread Safety:
//
//	Reports are built once and read-only afterwards; concurrent reads are
//	safe.
type Report struct {
	Uses       SetDiff       `json:"uses,omitempty"`
	Classes    TypeDiffs     `json:"classes,omitempty"`
	Interfaces TypeDiffs     `json:"interfaces,omitempty"`
	Traits     TypeDiffs     `json:"traits,omitempty"`
	Functions  MemberChanges `json:"functions,omitempty"`
	Constants  MemberChanges `json:"constants,omitempty"`

	OldCounts Counts `json:"old_counts"`
	NewCounts Counts `json:"new_counts"`

	Old *ast.StructuralModel `json:"-"`
	New *ast.StructuralModel `json:"-"`
}

// HasChanges reports whether any category recorded a difference.
func (r *Report) HasChanges() bool {
	return !r.Uses.IsEmpty() ||
		!r.Classes.IsEmpty() || !r.Interfaces.IsEmpty() || !r.Traits.IsEmpty() ||
		!r.Functions.IsEmpty() || !r.Constants.IsEmpty()
}

// PublicAPIChanged reports whether any type present in both versions
// changed its public method or property surface. Added and removed types
// are not considered here; they surface through CountsChanged.
func (r *Report) PublicAPIChanged() bool {
	for _, td := range []TypeDiffs{r.Classes, r.Interfaces, r.Traits} {
		for _, cd := range td.Modified {
			if cd.PublicSurfaceChanged() {
				return true
			}
		}
	}
	return false
}

// OnlyNonPublicChanges reports whether every structural difference is
// confined to non-public members of types present in both versions. Import
// changes are ignored. An empty diff satisfies the predicate too: a pure
// body edit changes nothing at declaration granularity and is exactly the
// case the line/keyword assessor exists for.
func (r *Report) OnlyNonPublicChanges() bool {
	if len(r.Classes.Added) > 0 || len(r.Classes.Removed) > 0 ||
		len(r.Interfaces.Added) > 0 || len(r.Interfaces.Removed) > 0 ||
		len(r.Traits.Added) > 0 || len(r.Traits.Removed) > 0 {
		return false
	}
	// Free functions and top-level constants are always public.
	if !r.Functions.IsEmpty() || !r.Constants.IsEmpty() {
		return false
	}
	for _, td := range []TypeDiffs{r.Classes, r.Interfaces, r.Traits} {
		for _, cd := range td.Modified {
			if !cd.OnlyNonPublicMembers() {
				return false
			}
		}
	}
	return true
}

// CountsChanged reports whether the number of classes, interfaces, traits,
// or free functions differs between the two versions.
func (r *Report) CountsChanged() bool {
	return r.OldCounts != r.NewCounts
}
