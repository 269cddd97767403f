// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package drift

import (
	"github.com/AleutianAI/DocDrift/services/drift/analyze"
	"github.com/AleutianAI/DocDrift/services/drift/decision"
	"github.com/AleutianAI/DocDrift/services/drift/generate"
	"github.com/AleutianAI/DocDrift/services/drift/storage"
)

// AnalyzeRequest is the request for POST /v1/drift/analyze.
type AnalyzeRequest struct {
	// BaseRev is the revision the worktree is compared against.
	// Empty means HEAD.
	BaseRev string `json:"base_rev,omitempty"`

	// Staged compares the index against HEAD instead of the worktree.
	Staged bool `json:"staged,omitempty"`

	// Files bypasses change detection and analyzes exactly these
	// repository-relative paths.
	Files []string `json:"files,omitempty"`

	// MaxFiles caps how many changed files are analyzed. Zero uses the
	// service default.
	MaxFiles int `json:"max_files,omitempty"`

	// Jobs sets the analysis concurrency. Zero uses the service default.
	Jobs int `json:"jobs,omitempty"`
}

// AnalyzeResponse is the response for POST /v1/drift/analyze.
type AnalyzeResponse struct {
	// RequestID echoes the X-Request-ID header.
	RequestID string `json:"request_id"`

	// Report holds the per-file verdicts and batch counters.
	Report *analyze.Report `json:"report"`
}

// AnalyzeFileRequest is the request for POST /v1/drift/analyze/file.
//
// Both source versions travel in the request body, so this endpoint
// works without a git checkout on the server.
type AnalyzeFileRequest struct {
	// FilePath is the repository-relative source path. Required.
	FilePath string `json:"file_path"`

	// OldSource is the previous version's full text. Empty means the
	// file is new.
	OldSource string `json:"old_source,omitempty"`

	// NewSource is the current version's full text. Required.
	NewSource string `json:"new_source"`

	// DocPath optionally points at the documentation file to check
	// against, overriding the source-to-doc convention.
	DocPath string `json:"doc_path,omitempty"`
}

// AnalyzeFileResponse is the response for POST /v1/drift/analyze/file.
type AnalyzeFileResponse struct {
	// RequestID echoes the X-Request-ID header.
	RequestID string `json:"request_id"`

	// FilePath is the analyzed source path.
	FilePath string `json:"file_path"`

	// Decision is the regeneration verdict.
	Decision *decision.Result `json:"decision"`
}

// HistoryResponse is the response for GET /v1/drift/history.
type HistoryResponse struct {
	// FilePath is the queried source path.
	FilePath string `json:"file_path"`

	// Decisions lists persisted verdicts, newest first.
	Decisions []*storage.StoredDecision `json:"decisions"`
}

// GenerateRequest is the request for POST /v1/drift/generate.
type GenerateRequest struct {
	// FilePath is the repository-relative source path. Required.
	FilePath string `json:"file_path"`

	// BaseRev is the revision the worktree is compared against.
	// Empty means HEAD.
	BaseRev string `json:"base_rev,omitempty"`

	// DryRun decides without calling the generator.
	DryRun bool `json:"dry_run,omitempty"`

	// Force regenerates even when the verdict is skip.
	Force bool `json:"force,omitempty"`
}

// GenerateResponse is the response for POST /v1/drift/generate.
type GenerateResponse struct {
	// RequestID echoes the X-Request-ID header.
	RequestID string `json:"request_id"`

	// FilePath is the source path the document belongs to.
	FilePath string `json:"file_path"`

	// DocPath is where the replacement document belongs on disk.
	DocPath string `json:"doc_path"`

	// Decision is the regeneration verdict the generation was based on.
	Decision *decision.Result `json:"decision"`

	// Generated holds the replacement markdown. Nil when skipped or on
	// a dry run.
	Generated *generate.Generated `json:"generated,omitempty"`

	// Skipped is true when the verdict said the documentation is still
	// current and Force was not set.
	Skipped bool `json:"skipped,omitempty"`
}

// HealthResponse is the response for GET /v1/drift/health.
type HealthResponse struct {
	// Status is "healthy" or "degraded".
	Status string `json:"status"`

	// Version is the service version.
	Version string `json:"version"`
}

// ReadyResponse is the response for GET /v1/drift/ready.
type ReadyResponse struct {
	// Ready is true if the service is ready to accept requests.
	Ready bool `json:"ready"`

	// RepoOK is true if the repository root is a git repository.
	RepoOK bool `json:"repo_ok"`

	// StoreOK is true if a decision store is configured.
	StoreOK bool `json:"store_ok"`

	// GeneratorOK is true if a generator is configured.
	GeneratorOK bool `json:"generator_ok"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is the error code (optional).
	Code string `json:"code,omitempty"`

	// Details provides additional error context (optional).
	Details string `json:"details,omitempty"`
}
