package driven

import (
	"io"

	"github.com/custodia-labs/medrag/internal/core/domain"
)

// EvalSetLoader reads labelled evaluation datasets.
type EvalSetLoader interface {
	// Load parses the dataset at path.
	Load(path string) ([]domain.EvalCase, error)
}

// AnswerExporter renders an answer as a standalone document.
type AnswerExporter interface {
	// Export writes the rendered answer to w.
	Export(w io.Writer, answer *domain.Answer) error

	// Extension returns the file extension of the rendered format, e.g. ".html".
	Extension() string
}
