package markdown

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/custodia-labs/medrag/internal/core/domain"
	"github.com/custodia-labs/medrag/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

var (
	codeBlock     = regexp.MustCompile("(?s)```.*?```")
	inlineCode    = regexp.MustCompile("`[^`\n]+`")
	images        = regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`)
	links         = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	listMarkers   = regexp.MustCompile(`(?m)^[ \t]*[-*+][ \t]+`)
	blockquote    = regexp.MustCompile(`(?m)^[ \t]*>[ \t]?`)
	horizontal    = regexp.MustCompile(`(?m)^[ \t]*([-*_][ \t]*){3,}$`)
	emphasis      = regexp.MustCompile(`(\*{1,3}|_{1,3})([^*_\n]+)(\*{1,3}|_{1,3})`)
	multiSpaces   = regexp.MustCompile(` {2,}`)
	trailing      = regexp.MustCompile(`(?m)[ ]+$`)
	multiNewlines = regexp.MustCompile(`\n{3,}`)
	sectionHeads  = regexp.MustCompile(`(?m)^#{1,3}\s+\S`)
)

// Normaliser turns raw markdown files into domain documents.
type Normaliser struct {
	now func() time.Time
}

// New creates a new Markdown normaliser.
func New() *Normaliser {
	return &Normaliser{now: time.Now}
}

// SupportedExtensions returns the file extensions this normaliser handles.
func (n *Normaliser) SupportedExtensions() []string {
	return []string{".md"}
}

// Normalise converts a raw markdown file into a Document.
// Heading lines survive so the chunker can recover sections.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}
	if strings.TrimSpace(raw.ID) == "" {
		return nil, fmt.Errorf("%w: document id is empty (%s)", domain.ErrInvalidInput, raw.Path)
	}

	rawContent := string(raw.Content)
	content := Normalise(rawContent)

	return &domain.Document{
		ID:           raw.ID,
		Title:        ExtractTitle(rawContent, raw.ID),
		Content:      content,
		Path:         raw.Path,
		WordCount:    len(strings.Fields(content)),
		SectionCount: CountSections(content),
		ContentHash:  domain.ContentHash(content),
		LoadedAt:     n.now(),
	}, nil
}

// Normalise strips markdown formatting from raw while keeping headings.
// It is pure and never fails.
func Normalise(raw string) string {
	text := strings.ReplaceAll(raw, "\r\n", "\n")

	text = codeBlock.ReplaceAllString(text, "")
	text = inlineCode.ReplaceAllString(text, "")
	text = images.ReplaceAllString(text, "$1")
	text = links.ReplaceAllString(text, "$1")
	text = listMarkers.ReplaceAllString(text, "")
	text = blockquote.ReplaceAllString(text, "")
	text = horizontal.ReplaceAllString(text, "")
	text = emphasis.ReplaceAllString(text, "$2")
	text = strings.ReplaceAll(text, "\t", " ")
	text = multiSpaces.ReplaceAllString(text, " ")
	text = trailing.ReplaceAllString(text, "")
	text = multiNewlines.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}

// ExtractTitle returns the text of the first top-level heading, or fallback.
func ExtractTitle(raw, fallback string) string {
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			if title := strings.TrimSpace(strings.TrimPrefix(line, "#")); title != "" {
				return title
			}
		}
	}
	if fallback == "" {
		return fallback
	}
	return titleFromFilename(fallback)
}

// CountSections counts level 1-3 headings in normalised text.
func CountSections(normalized string) int {
	return len(sectionHeads.FindAllStringIndex(normalized, -1))
}

// titleFromFilename keeps the identifier as-is apart from its extension.
func titleFromFilename(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
