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
	"strings"
	"unicode"
)

// CanonicalType renders a type annotation as its canonical string.
//
// Description:
//
//	Every type string stored in a StructuralModel passes through this one
//	function so that the same syntax form always renders identically:
//	whitespace around nullable/union/intersection punctuation is dropped
//	("int | string" and "int|string" canonicalize the same way).
//
//	Semantically equivalent but syntactically different spellings stay
//	distinct on purpose: "?Foo" and "Foo|null" produce different canonical
//	strings, and union member order is preserved. A change between such
//	spellings in source therefore counts as a signature change.
func CanonicalType(raw string) string {
	if raw == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// CanonicalExpr renders a default-value or constant expression for storage.
//
// Runs of whitespace collapse to a single space so line wrapping inside an
// expression does not register as a change; the expression text is otherwise
// verbatim.
func CanonicalExpr(raw string) string {
	if raw == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(raw))
	inSpace := false
	for _, r := range raw {
		if unicode.IsSpace(r) {
			inSpace = true
			continue
		}
		if inSpace && b.Len() > 0 {
			b.WriteByte(' ')
		}
		inSpace = false
		b.WriteRune(r)
	}
	return b.String()
}
