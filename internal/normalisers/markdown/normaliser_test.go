package markdown

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/medrag/internal/core/domain"
)

func TestNew(t *testing.T) {
	normaliser := New()
	require.NotNil(t, normaliser)
	assert.IsType(t, &Normaliser{}, normaliser)
}

func TestSupportedExtensions(t *testing.T) {
	assert.Equal(t, []string{".md"}, New().SupportedExtensions())
}

func TestNormaliseText(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"emphasis", "# Title\n\nSome **bold** and *italic* text.", "# Title\n\nSome bold and italic text."},
		{"underscore emphasis", "A __strong__ claim", "A strong claim"},
		{"fenced code", "Before\n```go\nx := 1\n```\nAfter", "Before\n\nAfter"},
		{"inline code", "Use `kubectl` now", "Use now"},
		{"image alt text", "![Kidney diagram](img.png) here", "Kidney diagram here"},
		{"link text", "See [the guide](http://example.com/g) today", "See the guide today"},
		{"bullets", "- one\n* two\n+ three", "one\ntwo\nthree"},
		{"blockquote", "> quoted line", "quoted line"},
		{"horizontal rule", "above\n\n---\n\nbelow", "above\n\nbelow"},
		{"tabs and spaces", "a\tb    c   ", "a b c"},
		{"headings kept", "## Section Two\nbody", "## Section Two\nbody"},
		{"newline runs", "a\n\n\n\n\nb", "a\n\nb"},
		{"crlf", "line one\r\nline two", "line one\nline two"},
		{"empty", "", ""},
		{"whitespace only", "  \n\n\t ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalise(tt.raw))
		})
	}
}

func TestNormaliseText_Idempotent(t *testing.T) {
	raw := "# Heart\n\n- **Cardiac** output\n> see [notes](n.md)\n\n\n\nEnd."
	once := Normalise(raw)
	assert.Equal(t, once, Normalise(once))
}

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		fallback string
		want     string
	}{
		{"first h1", "intro\n# Main Title\n## Sub", "doc", "Main Title"},
		{"indented h1", "   # Spaced  ", "doc", "Spaced"},
		{"no h1 uses fallback", "## Only sub", "07_kidney", "07_kidney"},
		{"fallback drops extension", "text", "notes.md", "notes"},
		{"empty fallback", "text", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractTitle(tt.raw, tt.fallback))
		})
	}
}

func TestCountSections(t *testing.T) {
	assert.Equal(t, 3, CountSections("# A\ntext\n## B\n### C\n#### D"))
	assert.Equal(t, 0, CountSections("no headings here"))
	assert.Equal(t, 0, CountSections("#hashtag is not a heading"))
}

func TestNormalise_Success(t *testing.T) {
	fixed := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	normaliser := New()
	normaliser.now = func() time.Time { return fixed }

	raw := &domain.RawDocument{
		ID:      "07_kidney_transplant",
		Path:    "/corpus/07_kidney_transplant.md",
		Content: []byte("# Kidney Transplant\n\nThe **kidney** is an organ.\n\n## Rejection\n\nAcute rejection occurs."),
	}

	doc, err := normaliser.Normalise(context.Background(), raw)
	require.NoError(t, err)
	require.NotNil(t, doc)

	want := "# Kidney Transplant\n\nThe kidney is an organ.\n\n## Rejection\n\nAcute rejection occurs."
	assert.Equal(t, "07_kidney_transplant", doc.ID)
	assert.Equal(t, "Kidney Transplant", doc.Title)
	assert.Equal(t, want, doc.Content)
	assert.Equal(t, raw.Path, doc.Path)
	assert.Equal(t, 13, doc.WordCount)
	assert.Equal(t, 2, doc.SectionCount)
	assert.Equal(t, domain.ContentHash(want), doc.ContentHash)
	assert.Equal(t, fixed, doc.LoadedAt)
}

func TestNormalise_TitleFallsBackToID(t *testing.T) {
	doc, err := New().Normalise(context.Background(), &domain.RawDocument{
		ID:      "12_dialysis",
		Content: []byte("No heading at all."),
	})
	require.NoError(t, err)
	assert.Equal(t, "12_dialysis", doc.Title)
	assert.Equal(t, 0, doc.SectionCount)
}

func TestNormalise_Errors(t *testing.T) {
	normaliser := New()

	t.Run("nil document", func(t *testing.T) {
		_, err := normaliser.Normalise(context.Background(), nil)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("empty id", func(t *testing.T) {
		_, err := normaliser.Normalise(context.Background(), &domain.RawDocument{
			Path:    "/corpus/.md",
			Content: []byte("# Title"),
		})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}
