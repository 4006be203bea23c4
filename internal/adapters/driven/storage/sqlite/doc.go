// Package sqlite provides a unified SQLite-based implementation of driven port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements multiple store interfaces
// through a single database connection:
//
//   - VectorStore: Collections of chunk embeddings with alias pointers
//   - BuildStore: Index build reports and the documents each build indexed
//   - QueryLog: Per-query audit records
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Vector Search
//
// Embeddings are stored as little-endian float32 blobs and searched by brute-force
// cosine similarity. The corpus is tens of documents, so a scan per query is cheap.
//
// # Data Location
//
// By default, the database is stored at ~/.medrag/data/medrag.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
