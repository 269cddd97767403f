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
	"sync"
)

// Extractor defines the contract for language-specific structure extraction.
//
// Description:
//
//	An Extractor walks one version of a source file and produces the
//	language-agnostic StructuralModel the diff engine compares. Each
//	implementation handles one language; all produce the common model
//	defined in types.go.
//
//	Implementations are:
//	- Context-aware: cancellation is honored between tree-walk stages.
//	- Error-tolerant: a partial model may accompany a ParseError when the
//	  syntax tree contains error nodes.
//	- Single-pass: the tree is walked once, no re-parsing per declaration.
//
// Thread Safety: implementations must be safe for concurrent use; parser
// state is created per call, never shared.
type Extractor interface {
	// Extract parses content and returns its structural model.
	//
	// Parameters:
	//   - ctx: Context for cancellation.
	//   - content: Raw source bytes. Must be valid UTF-8.
	//   - filePath: Path for error reporting; forward slashes.
	//
	// Returns:
	//   - *StructuralModel: The extracted model. On a syntax error this may
	//     be non-nil alongside the error, holding whatever declarations
	//     were recovered; callers that need totality substitute
	//     NewStructuralModel() instead.
	//   - error: *ParseError for syntax-level failures, a sentinel from
	//     errors.go for content-level ones.
	Extract(ctx context.Context, content []byte, filePath string) (*StructuralModel, error)

	// Language returns the lowercase canonical language name, e.g. "php".
	Language() string

	// Extensions returns the file extensions handled, dot included,
	// lowercase, e.g. [".php"].
	Extensions() []string
}

// Registry manages extractors by language and file extension.
//
// Thread Safety: fully thread-safe; registration takes the write lock,
// lookups the read lock.
type Registry struct {
	mu sync.RWMutex

	byLanguage  map[string]Extractor
	byExtension map[string]Extractor
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byLanguage:  make(map[string]Extractor),
		byExtension: make(map[string]Extractor),
	}
}

// Register adds an extractor under its language name and every extension it
// reports. Later registrations overwrite earlier ones. Nil is ignored.
func (r *Registry) Register(e Extractor) {
	if e == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.byLanguage[e.Language()] = e
	for _, ext := range e.Extensions() {
		r.byExtension[ext] = e
	}
}

// GetByLanguage returns the extractor for a language name.
func (r *Registry) GetByLanguage(language string) (Extractor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.byLanguage[language]
	return e, ok
}

// GetByExtension returns the extractor for a file extension (dot included).
func (r *Registry) GetByExtension(ext string) (Extractor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.byExtension[ext]
	return e, ok
}

// Languages lists all registered language names.
func (r *Registry) Languages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.byLanguage))
	for lang := range r.byLanguage {
		out = append(out, lang)
	}
	return out
}

// Extensions lists all registered file extensions.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.byExtension))
	for ext := range r.byExtension {
		out = append(out, ext)
	}
	return out
}
