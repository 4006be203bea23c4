// Package artifacts writes human-readable build artifacts: chunk text per
// document plus JSON metadata and a build manifest.
package artifacts

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/custodia-labs/medrag/internal/core/domain"
	"github.com/custodia-labs/medrag/internal/core/ports/driven"
	"github.com/custodia-labs/medrag/internal/logger"
)

// Ensure Writer implements the interface.
var _ driven.ArtifactWriter = (*Writer)(nil)

const ruleWidth = 80

// Writer writes artifacts under a root directory:
//
//	chunks/<doc>_chunks.txt
//	metadata/chunks.json
//	metadata/documents.json
//	metadata/build_manifest.json
//
// Each build overwrites the previous one.
type Writer struct {
	dir string
}

// NewWriter creates a writer rooted at dir.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// Dir returns the artifact root.
func (w *Writer) Dir() string {
	return w.dir
}

// chunkRecord is the JSON form of a chunk.
type chunkRecord struct {
	ID            string `json:"id"`
	DocID         string `json:"doc_id"`
	DocTitle      string `json:"doc_title"`
	SectionTitle  string `json:"section_title"`
	SectionLevel  int    `json:"section_level"`
	ChunkIndex    int    `json:"chunk_index"`
	TokenCount    int    `json:"token_count"`
	CharCount     int    `json:"char_count"`
	StartPosition int    `json:"start_position"`
	EndPosition   int    `json:"end_position"`
	ContentHash   string `json:"content_hash"`
	Topic         string `json:"topic"`
	Tier          string `json:"tier"`
	Text          string `json:"text"`
}

// documentRecord is the JSON form of a document. Content is left out.
type documentRecord struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Path         string    `json:"path"`
	WordCount    int       `json:"word_count"`
	SectionCount int       `json:"section_count"`
	ContentHash  string    `json:"content_hash"`
	LoadedAt     time.Time `json:"loaded_at"`
}

// manifest is the build_manifest.json layout.
type manifest struct {
	BuildID    string              `json:"build_id"`
	Collection string              `json:"collection"`
	StartedAt  time.Time           `json:"build_timestamp"`
	ConfigHash string              `json:"config_hash"`
	Stats      *domain.BuildReport `json:"stats"`
}

// Write persists chunk text and metadata for a build.
func (w *Writer) Write(ctx context.Context, report *domain.BuildReport, docs []domain.Document, chunks []domain.Chunk) error {
	chunksDir := filepath.Join(w.dir, "chunks")
	metadataDir := filepath.Join(w.dir, "metadata")
	for _, dir := range []string{chunksDir, metadataDir} {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("create artifact directory: %w", err)
		}
	}

	if err := w.writeChunkTexts(ctx, chunksDir, chunks); err != nil {
		return err
	}

	records := make([]chunkRecord, len(chunks))
	for i, c := range chunks {
		records[i] = chunkRecord{
			ID:            c.ID,
			DocID:         c.DocID,
			DocTitle:      c.DocTitle,
			SectionTitle:  c.SectionTitle,
			SectionLevel:  c.SectionLevel,
			ChunkIndex:    c.Index,
			TokenCount:    c.TokenCount,
			CharCount:     c.CharCount,
			StartPosition: c.StartPosition,
			EndPosition:   c.EndPosition,
			ContentHash:   c.ContentHash,
			Topic:         c.Topic,
			Tier:          c.Tier,
			Text:          c.Text,
		}
	}
	if err := writeJSON(filepath.Join(metadataDir, "chunks.json"), records); err != nil {
		return err
	}

	documents := make([]documentRecord, len(docs))
	for i, d := range docs {
		documents[i] = documentRecord{
			ID:           d.ID,
			Title:        d.Title,
			Path:         d.Path,
			WordCount:    d.WordCount,
			SectionCount: d.SectionCount,
			ContentHash:  d.ContentHash,
			LoadedAt:     d.LoadedAt,
		}
	}
	if err := writeJSON(filepath.Join(metadataDir, "documents.json"), documents); err != nil {
		return err
	}

	if err := writeJSON(filepath.Join(metadataDir, "build_manifest.json"), manifest{
		BuildID:    report.ID,
		Collection: report.Collection,
		StartedAt:  report.StartedAt,
		ConfigHash: report.ConfigHash,
		Stats:      report,
	}); err != nil {
		return err
	}

	logger.Info("Saved artifacts to %s", w.dir)
	return nil
}

// writeChunkTexts writes one readable file per document, in chunk order.
func (w *Writer) writeChunkTexts(ctx context.Context, dir string, chunks []domain.Chunk) error {
	var order []string
	byDoc := make(map[string][]domain.Chunk)
	for _, c := range chunks {
		if _, ok := byDoc[c.DocID]; !ok {
			order = append(order, c.DocID)
		}
		byDoc[c.DocID] = append(byDoc[c.DocID], c)
	}

	for _, docID := range order {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := filepath.Join(dir, docID+"_chunks.txt")
		if err := os.WriteFile(path, []byte(FormatChunks(byDoc[docID])), 0600); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	return nil
}

// FormatChunks renders the chunks of one document for reading.
func FormatChunks(chunks []domain.Chunk) string {
	if len(chunks) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Document: %s\n", chunks[0].DocTitle)
	fmt.Fprintf(&b, "Chunks: %d\n", len(chunks))
	fmt.Fprintf(&b, "Topic: %s\n", chunks[0].Topic)
	fmt.Fprintf(&b, "Tier: %s\n", chunks[0].Tier)
	b.WriteString(strings.Repeat("=", ruleWidth) + "\n\n")

	for _, c := range chunks {
		fmt.Fprintf(&b, "[%s] %s\n", c.ID, c.SectionTitle)
		fmt.Fprintf(&b, "Tokens: %d\n", c.TokenCount)
		b.WriteString(strings.Repeat("-", ruleWidth) + "\n")
		b.WriteString(c.Text + "\n\n")
	}
	return b.String()
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
