package driven

import (
	"context"

	"github.com/custodia-labs/medrag/internal/core/domain"
)

// Normaliser transforms raw corpus files into normalised Documents.
type Normaliser interface {
	// SupportedExtensions returns the file extensions this normaliser handles.
	SupportedExtensions() []string

	// Normalise strips markup noise and derives the document's title, counts and hash.
	// Heading lines are preserved for the chunker.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*domain.Document, error)
}
