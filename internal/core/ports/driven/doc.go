// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - CorpusLoader: Reads raw markdown documents from the corpus directory
//   - Normaliser: Transforms raw documents into normalised Documents
//   - PostProcessorPipeline: Splits documents into tagged chunks
//   - EmbeddingService: Generates vector embeddings for chunks and queries
//   - VectorStore: Stores vectors in named collections behind an alias
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - LLMService: Answer generation. Without it, only retrieval and scoring work.
//   - KeywordSearcher: BM25 scoring. Without it, hybrid retrieval falls back to vector-only.
//   - BuildStore: Build history. Without it, Stats reports nothing.
//   - QueryLog: Per-query audit records.
//   - ArtifactWriter: Build artifacts on disk.
//   - PromptStore: Customisable prompt templates. Defaults are built in.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, normaliser, or postprocessor package
package driven
