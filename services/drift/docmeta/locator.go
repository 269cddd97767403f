// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package docmeta

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Locator maps source files to their generated documentation files and
// loads the documentation as Metadata.
//
// The convention mirrors generation output: a source file
// "app/Services/UserService.php" documents to
// "<DocsRoot>/app/Services/UserService.md".
type Locator struct {
	// DocsRoot is the directory documentation lives under.
	DocsRoot string

	// introspector parses located files.
	introspector *Introspector
}

// NewLocator creates a Locator rooted at docsRoot.
func NewLocator(docsRoot string, opts ...IntrospectorOption) *Locator {
	return &Locator{
		DocsRoot:     docsRoot,
		introspector: NewIntrospector(opts...),
	}
}

// DocPath returns the documentation path for a source file. The source
// path keeps its directory structure; the extension becomes ".md".
func (l *Locator) DocPath(sourcePath string) string {
	rel := filepath.ToSlash(filepath.Clean(sourcePath))
	rel = strings.TrimPrefix(rel, "./")
	ext := filepath.Ext(rel)
	if ext != "" {
		rel = strings.TrimSuffix(rel, ext)
	}
	return filepath.Join(l.DocsRoot, rel+".md")
}

// Load reads and introspects the documentation for a source file.
//
// Outputs:
//   - *Metadata: the introspected documentation. Nil when err is non-nil.
//   - error: ErrNotFound when no documentation file exists; otherwise the
//     read or introspection failure.
func (l *Locator) Load(ctx context.Context, sourcePath string) (*Metadata, error) {
	docPath := l.DocPath(sourcePath)

	info, err := os.Stat(docPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, docPath)
		}
		return nil, fmt.Errorf("stat documentation %s: %w", docPath, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrNotFound, docPath)
	}

	content, err := os.ReadFile(docPath)
	if err != nil {
		return nil, fmt.Errorf("read documentation %s: %w", docPath, err)
	}

	meta, err := l.introspector.Introspect(ctx, content, docPath)
	if err != nil {
		return nil, fmt.Errorf("introspect documentation %s: %w", docPath, err)
	}
	meta.LastModifiedMilli = info.ModTime().UnixMilli()
	return meta, nil
}

// LoadPath reads and introspects an explicit documentation file,
// bypassing the source-to-doc convention. Callers that let users point
// at an arbitrary markdown file use this instead of Load.
func (l *Locator) LoadPath(ctx context.Context, docPath string) (*Metadata, error) {
	info, err := os.Stat(docPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, docPath)
		}
		return nil, fmt.Errorf("stat documentation %s: %w", docPath, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrNotFound, docPath)
	}

	content, err := os.ReadFile(docPath)
	if err != nil {
		return nil, fmt.Errorf("read documentation %s: %w", docPath, err)
	}

	meta, err := l.introspector.Introspect(ctx, content, docPath)
	if err != nil {
		return nil, fmt.Errorf("introspect documentation %s: %w", docPath, err)
	}
	meta.LastModifiedMilli = info.ModTime().UnixMilli()
	return meta, nil
}
