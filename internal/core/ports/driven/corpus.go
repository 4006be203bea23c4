package driven

import (
	"context"

	"github.com/custodia-labs/medrag/internal/core/domain"
)

// CorpusLoader reads raw documents from the corpus.
type CorpusLoader interface {
	// Load returns every document in the corpus, ordered by ID.
	// Returns ErrCorpusNotFound if the corpus location does not exist
	// and ErrEmptyCorpus if it holds no documents.
	Load(ctx context.Context) ([]domain.RawDocument, error)

	// Location describes where documents are read from.
	Location() string
}

// CorpusWatcher observes the corpus for changes.
type CorpusWatcher interface {
	// Watch emits changes until ctx is cancelled, then closes the channel.
	Watch(ctx context.Context) (<-chan domain.CorpusChange, error)
}
