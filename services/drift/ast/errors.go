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
	"errors"
	"fmt"
)

// Sentinel errors for extraction failures.
//
// Check with errors.Is() to branch on the failure category without
// inspecting messages.
var (
	// ErrUnsupportedLanguage indicates no extractor is registered for the
	// requested language or file extension.
	ErrUnsupportedLanguage = errors.New("unsupported language")

	// ErrExtractFailed indicates extraction produced no usable model.
	//
	// Distinct from a recoverable syntax error: a ParseError may accompany
	// a partial model, while ErrExtractFailed means nothing was recovered.
	ErrExtractFailed = errors.New("extraction failed")

	// ErrInvalidContent indicates the source bytes cannot be processed.
	//
	// Common causes: non-UTF-8 encoding, binary content.
	ErrInvalidContent = errors.New("invalid content")

	// ErrFileTooLarge indicates the source exceeds the configured size cap.
	ErrFileTooLarge = errors.New("file too large")

	// ErrContextCanceled indicates extraction was canceled via context.
	ErrContextCanceled = errors.New("extraction canceled")
)

// ParseError reports a syntax-level failure with its source location.
//
// The decision cascade treats any ParseError as the signal to substitute an
// empty model and degrade to keyword heuristics, so extractors should return
// one whenever the syntax tree contains error nodes, even when a partial
// model was recovered alongside it.
//
// Example:
//
//	model, err := extractor.Extract(ctx, content, "app/User.php")
//	var perr *ParseError
//	if errors.As(err, &perr) {
//	    slog.Warn("source did not parse cleanly",
//	        "file", perr.FilePath, "line", perr.Line)
//	}
type ParseError struct {
	// FilePath is the file the error occurred in.
	FilePath string

	// Line is the 1-indexed line of the first error, 0 when unknown.
	Line int

	// Column is the 0-indexed column of the first error, 0 when unknown.
	Column int

	// Message describes the failure.
	Message string

	// Cause is the underlying error, nil for primary syntax errors.
	Cause error
}

// Error formats as "path:line:column: message", omitting unknown positions.
func (e *ParseError) Error() string {
	if e.Line > 0 && e.Column > 0 {
		return fmt.Sprintf("%s:%d:%d: %s", e.FilePath, e.Line, e.Column, e.Message)
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.FilePath, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.FilePath, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/errors.As chains.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// NewParseError creates a ParseError at the given location.
func NewParseError(filePath string, line, column int, message string) *ParseError {
	return &ParseError{
		FilePath: filePath,
		Line:     line,
		Column:   column,
		Message:  message,
	}
}

// NewParseErrorWithCause creates a ParseError wrapping an underlying error.
func NewParseErrorWithCause(filePath string, line, column int, message string, cause error) *ParseError {
	return &ParseError{
		FilePath: filePath,
		Line:     line,
		Column:   column,
		Message:  message,
		Cause:    cause,
	}
}

// WrapParseError adds file context to an error, leaving existing ParseErrors
// unchanged. Returns nil for nil input.
func WrapParseError(err error, filePath string) error {
	if err == nil {
		return nil
	}

	var perr *ParseError
	if errors.As(err, &perr) {
		return err
	}

	return &ParseError{
		FilePath: filePath,
		Message:  err.Error(),
		Cause:    err,
	}
}

// IsParseError reports whether err is or wraps a ParseError.
func IsParseError(err error) bool {
	var perr *ParseError
	return errors.As(err, &perr)
}
