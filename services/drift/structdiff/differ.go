// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package structdiff

import (
	"sort"

	"github.com/AleutianAI/DocDrift/services/drift/ast"
)

// Diff compares two structural models and returns the full report.
//
// Description:
//
//	Every category is compared by name: set difference on the key universe
//	yields added/removed, and keys present on both sides are compared
//	field by field. Comparison is structural, never textual, so formatting
//	differences that survived extraction cannot register here. All output
//	lists are sorted by name, which keeps repeated runs bit-identical.
//
// Inputs:
//   - oldModel: structural model of the previous version. Nil is treated
//     as an empty model.
//   - newModel: structural model of the current version. Nil is treated
//     as an empty model.
//
// Outputs:
//   - *Report: the comparison result. Never nil.
func Diff(oldModel, newModel *ast.StructuralModel) *Report {
	if oldModel == nil {
		oldModel = ast.NewStructuralModel()
	}
	if newModel == nil {
		newModel = ast.NewStructuralModel()
	}

	r := &Report{
		Old:       oldModel,
		New:       newModel,
		OldCounts: ModelCounts(oldModel),
		NewCounts: ModelCounts(newModel),
	}

	r.Uses = diffStringSets(oldModel.Imports, newModel.Imports)
	r.Classes = diffTypeMaps(oldModel.Classes, newModel.Classes)
	r.Interfaces = diffTypeMaps(oldModel.Interfaces, newModel.Interfaces)
	r.Traits = diffTypeMaps(oldModel.Traits, newModel.Traits)
	r.Functions = diffFunctions(oldModel.Functions, newModel.Functions)
	r.Constants = diffConstants(oldModel.Constants, newModel.Constants)

	return r
}

func diffStringSets(oldSet, newSet []string) SetDiff {
	oldHas := make(map[string]bool, len(oldSet))
	for _, s := range oldSet {
		oldHas[s] = true
	}
	newHas := make(map[string]bool, len(newSet))
	for _, s := range newSet {
		newHas[s] = true
	}

	var d SetDiff
	for _, s := range newSet {
		if !oldHas[s] {
			d.Added = append(d.Added, s)
		}
	}
	for _, s := range oldSet {
		if !newHas[s] {
			d.Removed = append(d.Removed, s)
		}
	}
	sort.Strings(d.Added)
	sort.Strings(d.Removed)
	return d
}

func diffTypeMaps(oldMap, newMap map[string]*ast.ClassInfo) TypeDiffs {
	var td TypeDiffs
	for name := range newMap {
		if _, ok := oldMap[name]; !ok {
			td.Added = append(td.Added, name)
		}
	}
	for name := range oldMap {
		if _, ok := newMap[name]; !ok {
			td.Removed = append(td.Removed, name)
		}
	}
	sort.Strings(td.Added)
	sort.Strings(td.Removed)

	for name, oldC := range oldMap {
		newC, ok := newMap[name]
		if !ok {
			continue
		}
		if cd := diffClass(name, oldC, newC); cd.HasChanges() {
			if td.Modified == nil {
				td.Modified = make(map[string]*ClassDiff)
			}
			td.Modified[name] = cd
		}
	}
	return td
}

func diffClass(name string, oldC, newC *ast.ClassInfo) *ClassDiff {
	cd := &ClassDiff{Name: name}

	if oldC.Extends != newC.Extends {
		cd.ExtendsChanged = true
		cd.OldExtends = oldC.Extends
		cd.NewExtends = newC.Extends
	}

	impl := diffStringSets(oldC.Implements, newC.Implements)
	cd.ImplementsAdded = impl.Added
	cd.ImplementsRemoved = impl.Removed

	cd.AbstractChanged = oldC.IsAbstract != newC.IsAbstract
	cd.FinalChanged = oldC.IsFinal != newC.IsFinal

	cd.Methods = diffMethods(oldC.Methods, newC.Methods)
	cd.Properties = diffProperties(oldC.Properties, newC.Properties)
	cd.Constants = diffConstants(oldC.Constants, newC.Constants)

	return cd
}

// Member lists are compared through name-keyed maps; a duplicate name in
// one version keeps the last declaration, mirroring extraction.

func diffMethods(oldList, newList []*ast.MethodInfo) MemberChanges {
	oldByName := make(map[string]*ast.MethodInfo, len(oldList))
	for _, m := range oldList {
		oldByName[m.Name] = m
	}
	newByName := make(map[string]*ast.MethodInfo, len(newList))
	for _, m := range newList {
		newByName[m.Name] = m
	}

	var mc MemberChanges
	for name, newM := range newByName {
		oldM, ok := oldByName[name]
		switch {
		case !ok:
			mc.Added = append(mc.Added, MemberChange{
				Name:          name,
				NewVisibility: newM.Visibility,
				NewSignature:  newM.Signature(),
			})
		case !oldM.Equal(newM):
			mc.Modified = append(mc.Modified, MemberChange{
				Name:          name,
				OldVisibility: oldM.Visibility,
				NewVisibility: newM.Visibility,
				OldSignature:  oldM.Signature(),
				NewSignature:  newM.Signature(),
			})
		}
	}
	for name, oldM := range oldByName {
		if _, ok := newByName[name]; !ok {
			mc.Removed = append(mc.Removed, MemberChange{
				Name:          name,
				OldVisibility: oldM.Visibility,
				OldSignature:  oldM.Signature(),
			})
		}
	}
	sortChanges(&mc)
	return mc
}

func diffProperties(oldList, newList []*ast.PropertyInfo) MemberChanges {
	oldByName := make(map[string]*ast.PropertyInfo, len(oldList))
	for _, p := range oldList {
		oldByName[p.Name] = p
	}
	newByName := make(map[string]*ast.PropertyInfo, len(newList))
	for _, p := range newList {
		newByName[p.Name] = p
	}

	var mc MemberChanges
	for name, newP := range newByName {
		oldP, ok := oldByName[name]
		switch {
		case !ok:
			mc.Added = append(mc.Added, MemberChange{
				Name:          name,
				NewVisibility: newP.Visibility,
				NewSignature:  newP.Descriptor(),
			})
		case !oldP.Equal(newP):
			mc.Modified = append(mc.Modified, MemberChange{
				Name:          name,
				OldVisibility: oldP.Visibility,
				NewVisibility: newP.Visibility,
				OldSignature:  oldP.Descriptor(),
				NewSignature:  newP.Descriptor(),
			})
		}
	}
	for name, oldP := range oldByName {
		if _, ok := newByName[name]; !ok {
			mc.Removed = append(mc.Removed, MemberChange{
				Name:          name,
				OldVisibility: oldP.Visibility,
				OldSignature:  oldP.Descriptor(),
			})
		}
	}
	sortChanges(&mc)
	return mc
}

// diffConstants serves both class constants and top-level constants.
func diffConstants(oldList, newList []*ast.ConstantInfo) MemberChanges {
	oldByName := make(map[string]*ast.ConstantInfo, len(oldList))
	for _, c := range oldList {
		oldByName[c.Name] = c
	}
	newByName := make(map[string]*ast.ConstantInfo, len(newList))
	for _, c := range newList {
		newByName[c.Name] = c
	}

	var mc MemberChanges
	for name, newC := range newByName {
		oldC, ok := oldByName[name]
		switch {
		case !ok:
			mc.Added = append(mc.Added, MemberChange{
				Name:          name,
				NewVisibility: newC.Visibility,
				NewSignature:  newC.Descriptor(),
			})
		case !oldC.Equal(newC):
			mc.Modified = append(mc.Modified, MemberChange{
				Name:          name,
				OldVisibility: oldC.Visibility,
				NewVisibility: newC.Visibility,
				OldSignature:  oldC.Descriptor(),
				NewSignature:  newC.Descriptor(),
			})
		}
	}
	for name, oldC := range oldByName {
		if _, ok := newByName[name]; !ok {
			mc.Removed = append(mc.Removed, MemberChange{
				Name:          name,
				OldVisibility: oldC.Visibility,
				OldSignature:  oldC.Descriptor(),
			})
		}
	}
	sortChanges(&mc)
	return mc
}

func diffFunctions(oldList, newList []*ast.FunctionInfo) MemberChanges {
	oldByName := make(map[string]*ast.FunctionInfo, len(oldList))
	for _, f := range oldList {
		oldByName[f.Name] = f
	}
	newByName := make(map[string]*ast.FunctionInfo, len(newList))
	for _, f := range newList {
		newByName[f.Name] = f
	}

	var mc MemberChanges
	for name, newF := range newByName {
		oldF, ok := oldByName[name]
		switch {
		case !ok:
			mc.Added = append(mc.Added, MemberChange{
				Name:          name,
				NewVisibility: ast.VisibilityPublic,
				NewSignature:  newF.Signature(),
			})
		case !oldF.Equal(newF):
			mc.Modified = append(mc.Modified, MemberChange{
				Name:          name,
				OldVisibility: ast.VisibilityPublic,
				NewVisibility: ast.VisibilityPublic,
				OldSignature:  oldF.Signature(),
				NewSignature:  newF.Signature(),
			})
		}
	}
	for name, oldF := range oldByName {
		if _, ok := newByName[name]; !ok {
			mc.Removed = append(mc.Removed, MemberChange{
				Name:          name,
				OldVisibility: ast.VisibilityPublic,
				OldSignature:  oldF.Signature(),
			})
		}
	}
	sortChanges(&mc)
	return mc
}

func sortChanges(mc *MemberChanges) {
	byName := func(list []MemberChange) func(i, j int) bool {
		return func(i, j int) bool { return list[i].Name < list[j].Name }
	}
	sort.Slice(mc.Added, byName(mc.Added))
	sort.Slice(mc.Removed, byName(mc.Removed))
	sort.Slice(mc.Modified, byName(mc.Modified))
}
