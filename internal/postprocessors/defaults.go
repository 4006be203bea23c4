package postprocessors

import (
	"github.com/custodia-labs/medrag/internal/core/domain"
	"github.com/custodia-labs/medrag/internal/core/ports/driven"
	"github.com/custodia-labs/medrag/internal/postprocessors/chunker"
	"github.com/custodia-labs/medrag/internal/postprocessors/tagger"
)

// DefaultOrder is the processor sequence of the build pipeline. The tagger
// reads the document the chunker has already split.
var DefaultOrder = []string{"chunker", "tagger"}

// RegisterDefaults registers the built-in processors.
func RegisterDefaults(r *Registry) {
	r.Register("chunker", buildChunker)
	r.Register("tagger", buildTagger)
}

// NewDefaultPipeline builds the chunker and tagger from chunking settings.
// Invalid chunk bounds fail here, before any document is processed.
func NewDefaultPipeline(s domain.ChunkingSettings) (*Pipeline, error) {
	r := NewRegistry()
	RegisterDefaults(r)
	return r.Pipeline(DefaultOrder, s)
}

func buildChunker(s domain.ChunkingSettings) (driven.PostProcessor, error) {
	proc, err := chunker.New(chunker.ConfigFromSettings(s))
	if err != nil {
		return nil, err
	}
	return proc, nil
}

func buildTagger(_ domain.ChunkingSettings) (driven.PostProcessor, error) {
	return tagger.New(), nil
}
