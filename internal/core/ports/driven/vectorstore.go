package driven

import (
	"context"

	"github.com/custodia-labs/medrag/internal/core/domain"
)

// VectorRecord is one stored chunk and its embedding.
type VectorRecord struct {
	Chunk  domain.Chunk
	Vector []float32
}

// VectorMatch is a similarity search hit.
type VectorMatch struct {
	Record VectorRecord

	// Similarity is the cosine similarity between query and record vectors.
	Similarity float64
}

// VectorStore persists embeddings in named collections.
//
// Readers address a collection through an alias. Rebuilds write a fresh
// collection and Promote the alias to it, so a reader resolving the alias
// sees either the old generation or the new one, never a partial build.
// Every method that takes a name accepts either an alias or a collection name.
type VectorStore interface {
	// CreateCollection creates an empty collection for vectors of the given size.
	CreateCollection(ctx context.Context, name string, dims int) error

	// Add appends records to a collection.
	// Returns ErrDimensionMismatch if a vector has the wrong size.
	Add(ctx context.Context, name string, records []VectorRecord) error

	// Query returns the k records most similar to vector, best first.
	// Only records matching filters are considered.
	Query(ctx context.Context, name string, vector []float32, k int, filters domain.Filters) ([]VectorMatch, error)

	// List returns every record matching filters in insertion order.
	List(ctx context.Context, name string, filters domain.Filters) ([]VectorRecord, error)

	// Count returns the number of records in a collection.
	Count(ctx context.Context, name string) (int, error)

	// DropCollection removes a collection and its records.
	DropCollection(ctx context.Context, name string) error

	// Collections returns the names of all collections.
	Collections(ctx context.Context) ([]string, error)

	// Promote points alias at collection atomically.
	// Returns the collection the alias pointed to before, or "" if it was unset.
	Promote(ctx context.Context, alias, collection string) (string, error)

	// Resolve returns the collection an alias points to.
	// A name that is already a collection resolves to itself.
	// Returns ErrCollectionNotFound if neither exists.
	Resolve(ctx context.Context, alias string) (string, error)

	// Close releases resources.
	Close() error
}
