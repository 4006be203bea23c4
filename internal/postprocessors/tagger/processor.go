// Package tagger assigns topic and tier tags to chunks.
package tagger

import (
	"context"

	"github.com/custodia-labs/medrag/internal/core/domain"
	"github.com/custodia-labs/medrag/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.PostProcessor = (*Processor)(nil)

// Processor tags chunks from the owning document's title and identifier.
// Tags come from static lookup tables, so the output is deterministic.
type Processor struct{}

// New creates a tagger processor.
func New() *Processor {
	return &Processor{}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "tagger"
}

// Process sets Topic and Tier on every chunk.
func (p *Processor) Process(_ context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, domain.ErrInvalidInput
	}

	topic := domain.TopicForTitle(doc.Title)
	tier := domain.TierForID(doc.ID)

	for i := range chunks {
		chunks[i].Topic = topic
		chunks[i].Tier = tier
	}
	return chunks, nil
}
