// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package decision

import (
	"fmt"
	"strings"
)

// FallbackSignals are crude declaration-keyword counts taken from raw
// source text. They stand in for the structural model when parsing fails.
type FallbackSignals struct {
	Classes       int `json:"classes"`
	Functions     int `json:"functions"`
	Interfaces    int `json:"interfaces"`
	Traits        int `json:"traits"`
	PublicMembers int `json:"public_members"`
}

// CountFallbackSignals counts declaration keywords by plain substring
// search. Comments and strings are not excluded; the counts only need to
// be comparable between two versions of the same file.
func CountFallbackSignals(source string) FallbackSignals {
	return FallbackSignals{
		Classes:       strings.Count(source, "class "),
		Functions:     strings.Count(source, "function "),
		Interfaces:    strings.Count(source, "interface "),
		Traits:        strings.Count(source, "trait "),
		PublicMembers: strings.Count(source, "public "),
	}
}

// Shifts itemizes the signal counts that differ from other, one line per
// shifted signal. An empty slice means the keyword surface looks stable.
func (s FallbackSignals) Shifts(other FallbackSignals) []string {
	var shifts []string
	add := func(label string, oldN, newN int) {
		if oldN != newN {
			shifts = append(shifts, fmt.Sprintf("%s keyword count changed: %d -> %d", label, oldN, newN))
		}
	}
	add("class", s.Classes, other.Classes)
	add("function", s.Functions, other.Functions)
	add("interface", s.Interfaces, other.Interfaces)
	add("trait", s.Traits, other.Traits)
	add("public", s.PublicMembers, other.PublicMembers)
	return shifts
}
