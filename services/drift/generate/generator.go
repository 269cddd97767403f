// Package generate rewrites documentation for files the decision engine
// marked stale. The engine decides WHETHER to regenerate; this package
// only produces the replacement markdown.
package generate

import (
	"context"

	"github.com/AleutianAI/DocDrift/services/drift/ast"
	"github.com/AleutianAI/DocDrift/services/drift/decision"
	"github.com/AleutianAI/DocDrift/services/drift/docmeta"
)

// Request carries everything the generator needs to write fresh
// documentation for one file.
type Request struct {
	// FilePath is the repo-relative source path, used for context in the
	// prompt. Required.
	FilePath string

	// Source is the current source content. Required.
	Source string

	// Decision is the verdict that triggered regeneration. Optional; when
	// present its reasoning is surfaced to the model so the new text
	// addresses what actually changed.
	Decision *decision.Result

	// ExistingDoc is the prior documentation, if any. Optional.
	ExistingDoc *docmeta.Metadata

	// Model is the parsed structure of Source. Optional; when present the
	// prompt lists the public surface explicitly.
	Model *ast.StructuralModel
}

// Generated is the output of one documentation generation.
type Generated struct {
	// Markdown is the full replacement document.
	Markdown string `json:"markdown"`

	// Model is the model identifier that produced the text.
	Model string `json:"model"`

	// PromptTokens and CompletionTokens report usage for cost tracking.
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// Generator produces replacement documentation.
//
// Implementations must honor ctx cancellation and return errors rather
// than partial documents.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Generated, error)
}
