package yaml

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/medrag/internal/core/domain"
)

func TestLoader_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eval.yaml")
	content := `questions:
  - question: What is acute rejection in kidney transplant?
    ground_truth_answer: An immune response against the graft.
    relevant_docs:
      - 02_acute_rejection
      - Kidney Transplant - Acute Rejection
    category: rejection
  - question: "  How does tacrolimus work?  "
    relevant_docs: [04_immunosuppressive_drugs]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cases, err := NewLoader().Load(path)

	require.NoError(t, err)
	require.Len(t, cases, 2)
	assert.Equal(t, domain.EvalCase{
		Question:     "What is acute rejection in kidney transplant?",
		RelevantDocs: []string{"02_acute_rejection", "Kidney Transplant - Acute Rejection"},
		Category:     "rejection",
	}, cases[0])
	assert.Equal(t, "How does tacrolimus work?", cases[1].Question)
	assert.Empty(t, cases[1].Category)
}

func TestParse_TopLevelList(t *testing.T) {
	cases, err := Parse([]byte(`
- question: What is a crossmatch?
  relevant_docs: [01_immunology]
  category: immunology
`))

	require.NoError(t, err)
	require.Len(t, cases, 1)
	assert.Equal(t, []string{"01_immunology"}, cases[0].RelevantDocs)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{"empty", "", "dataset is empty"},
		{"scalar", "just a string", "list or a mapping"},
		{"no questions", "questions: []", "no questions"},
		{"malformed", "questions: [", "parse dataset"},
		{"missing question", "- relevant_docs: [a]", "case 1: question is required"},
		{"missing docs", "- question: q\n- question: r\n  relevant_docs: [a]", "case 1: relevant_docs is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.content))

			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			assert.ErrorContains(t, err, tt.wantMsg)
		})
	}
}

func TestLoader_Load_MissingFile(t *testing.T) {
	_, err := NewLoader().Load(filepath.Join(t.TempDir(), "missing.yaml"))

	assert.ErrorContains(t, err, "read dataset")
}
