// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package normalize implements the text-level fast paths that run before any
// structural parsing.
//
// Two cheap O(n) checks decide the common no-op-commit cases without
// invoking a parser: a whitespace-only change (formatting, indentation,
// blank lines) and a comment-only change (comments added, removed, or
// edited). Both operate on raw text and are deliberately independent of the
// ast package.
package normalize

import (
	"regexp"
	"strings"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// NormalizeWhitespace collapses every whitespace run to a single space and
// trims the result. Comments are retained.
func NormalizeWhitespace(source string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(source, " "))
}

// Normalize strips line comments, block comments, and doc-comments, then
// collapses whitespace like NormalizeWhitespace.
//
// Description:
//
//	Comment markers inside single- or double-quoted string literals are
//	left alone; the scanner tracks quoting state including backslash
//	escapes. The "#" marker is only a comment when not immediately
//	followed by "[", so PHP 8 attributes survive.
//
// Limitations:
//
//   - Heredoc/nowdoc bodies are scanned as plain code, so comment markers
//     inside them are stripped. Acceptable for a fast path that only feeds
//     equality checks.
func Normalize(source string) string {
	return NormalizeWhitespace(StripComments(source))
}

// WhitespaceOnly reports whether two versions differ only in whitespace.
func WhitespaceOnly(oldSource, newSource string) bool {
	return NormalizeWhitespace(oldSource) == NormalizeWhitespace(newSource)
}

// CommentOnly reports whether two versions differ only in comments
// (or comments plus whitespace).
func CommentOnly(oldSource, newSource string) bool {
	return Normalize(oldSource) == Normalize(newSource)
}

type scanState int

const (
	stateCode scanState = iota
	stateLineComment
	stateBlockComment
	stateSingleQuote
	stateDoubleQuote
)

// StripComments removes // #, /* */ and /** */ comments, respecting string
// literals. Each removed comment is replaced by a single space so token
// boundaries survive.
func StripComments(source string) string {
	var b strings.Builder
	b.Grow(len(source))

	state := stateCode
	escaped := false

	for i := 0; i < len(source); i++ {
		c := source[i]

		switch state {
		case stateCode:
			switch {
			case c == '/' && i+1 < len(source) && source[i+1] == '/':
				state = stateLineComment
				i++ // consume second slash
			case c == '#' && !(i+1 < len(source) && source[i+1] == '['):
				state = stateLineComment
			case c == '/' && i+1 < len(source) && source[i+1] == '*':
				state = stateBlockComment
				i++
			case c == '\'':
				state = stateSingleQuote
				b.WriteByte(c)
			case c == '"':
				state = stateDoubleQuote
				b.WriteByte(c)
			default:
				b.WriteByte(c)
			}

		case stateLineComment:
			if c == '\n' {
				state = stateCode
				b.WriteByte(c)
			}

		case stateBlockComment:
			if c == '*' && i+1 < len(source) && source[i+1] == '/' {
				state = stateCode
				i++
				b.WriteByte(' ')
			}

		case stateSingleQuote:
			b.WriteByte(c)
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '\'' {
				state = stateCode
			}

		case stateDoubleQuote:
			b.WriteByte(c)
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				state = stateCode
			}
		}
	}

	return b.String()
}
