// Package mcp provides an MCP (Model Context Protocol) server adapter for medrag.
// It lets AI assistants retrieve evidence from the medical knowledge base,
// score it and ask grounded questions.
package mcp

import "errors"

var (
	// ErrMissingRetriever is returned when the retriever service is not provided.
	ErrMissingRetriever = errors.New("mcp: retriever service is required")

	// ErrMissingScorer is returned when the confidence scorer is not provided.
	ErrMissingScorer = errors.New("mcp: confidence scorer is required")

	// ErrAnswersDisabled is returned by the ask tool when no LLM is configured.
	ErrAnswersDisabled = errors.New("mcp: answering is disabled, no LLM is configured")
)
