package driven

import "context"

// EmbeddingService turns text into vectors. The same model must embed the
// corpus at build time and the query at retrieval time; VectorStore records
// the dimension so a mismatch is caught.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per text, in input order. Implementations
	// may split the batch across several requests.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions is the vector length, or 0 until the first embedding when
	// the model's size is not known in advance.
	Dimensions() int

	ModelName() string

	// Ping fails when the provider is unreachable or the model is missing.
	Ping(ctx context.Context) error

	Close() error
}
