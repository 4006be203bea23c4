// Package yaml loads evaluation datasets from YAML files.
package yaml

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/medrag/internal/core/domain"
	"github.com/custodia-labs/medrag/internal/core/ports/driven"
)

// Ensure Loader implements the interface.
var _ driven.EvalSetLoader = (*Loader)(nil)

// Loader reads a dataset that is either a top-level list of cases or a
// mapping with a "questions" list:
//
//	questions:
//	  - question: What is acute rejection?
//	    relevant_docs: [02_acute_rejection, 13_kidney_rejection]
//	    category: rejection
//
// Unknown fields such as ground_truth_answer are ignored.
type Loader struct{}

// NewLoader creates a YAML dataset loader.
func NewLoader() *Loader {
	return &Loader{}
}

type dataset struct {
	Questions []domain.EvalCase `yaml:"questions"`
}

// Load parses the dataset at path.
func (l *Loader) Load(path string) ([]domain.EvalCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a dataset.
func Parse(data []byte) ([]domain.EvalCase, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: parse dataset: %w", domain.ErrInvalidInput, err)
	}
	if len(root.Content) == 0 {
		return nil, fmt.Errorf("%w: dataset is empty", domain.ErrInvalidInput)
	}

	var cases []domain.EvalCase
	switch doc := root.Content[0]; doc.Kind {
	case yaml.SequenceNode:
		if err := doc.Decode(&cases); err != nil {
			return nil, fmt.Errorf("%w: decode cases: %w", domain.ErrInvalidInput, err)
		}
	case yaml.MappingNode:
		var ds dataset
		if err := doc.Decode(&ds); err != nil {
			return nil, fmt.Errorf("%w: decode dataset: %w", domain.ErrInvalidInput, err)
		}
		cases = ds.Questions
	default:
		return nil, fmt.Errorf("%w: dataset must be a list or a mapping with questions", domain.ErrInvalidInput)
	}

	if len(cases) == 0 {
		return nil, fmt.Errorf("%w: dataset has no questions", domain.ErrInvalidInput)
	}

	var errs []error
	for i := range cases {
		c := &cases[i]
		c.Question = strings.TrimSpace(c.Question)
		if c.Question == "" {
			errs = append(errs, fmt.Errorf("case %d: question is required", i+1))
		}
		if len(c.RelevantDocs) == 0 {
			errs = append(errs, fmt.Errorf("case %d: relevant_docs is required", i+1))
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, errors.Join(errs...))
	}

	return cases, nil
}
