// Package domain defines the core business entities for medrag.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: A normalised source document from the corpus
//   - Section: A heading-delimited span of a document (transient)
//   - Chunk: The retrieval unit persisted in the vector store
//   - RetrievedChunk / RetrievalResult: Query-time views of chunks
//   - Confidence: The answer-confidence signal derived from retrieval
//   - Answer / AnswerEvent: The outcome of the gated answer pipeline
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
