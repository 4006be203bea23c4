package artifacts

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/medrag/internal/core/domain"
)

func testBuild() (*domain.BuildReport, []domain.Document, []domain.Chunk) {
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	report := &domain.BuildReport{
		ID:         "b1",
		Collection: "kb",
		Documents:  2,
		Chunks:     3,
		ConfigHash: "abc123",
		StartedAt:  started,
	}
	docs := []domain.Document{
		{ID: "02_acute_rejection", Title: "Acute Rejection", Content: "full text", WordCount: 120},
		{ID: "04_drugs", Title: "Immunosuppressive Drugs", WordCount: 80},
	}
	chunks := []domain.Chunk{
		{ID: "02_acute_rejection:chunk_000", DocID: "02_acute_rejection", DocTitle: "Acute Rejection",
			SectionTitle: "Diagnosis", Text: "Biopsy confirms rejection.", TokenCount: 3, Topic: "general", Tier: "Tier 1"},
		{ID: "04_drugs:chunk_000", DocID: "04_drugs", DocTitle: "Immunosuppressive Drugs",
			SectionTitle: "Tacrolimus", Text: "Tacrolimus inhibits calcineurin.", TokenCount: 3},
		{ID: "02_acute_rejection:chunk_001", DocID: "02_acute_rejection", DocTitle: "Acute Rejection",
			SectionTitle: "Treatment", Text: "Steroid pulses are first line.", Index: 1, TokenCount: 5},
	}
	return report, docs, chunks
}

func TestWriter_Write(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "artifacts")
	report, docs, chunks := testBuild()

	require.NoError(t, NewWriter(dir).Write(context.Background(), report, docs, chunks))

	text, err := os.ReadFile(filepath.Join(dir, "chunks", "02_acute_rejection_chunks.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(text), "Document: Acute Rejection\nChunks: 2\n")
	assert.Contains(t, string(text), "[02_acute_rejection:chunk_001] Treatment\nTokens: 5\n")
	assert.FileExists(t, filepath.Join(dir, "chunks", "04_drugs_chunks.txt"))

	var records []chunkRecord
	readJSON(t, filepath.Join(dir, "metadata", "chunks.json"), &records)
	require.Len(t, records, 3)
	assert.Equal(t, "Diagnosis", records[0].SectionTitle)
	assert.Equal(t, 1, records[2].ChunkIndex)

	var documents []map[string]any
	readJSON(t, filepath.Join(dir, "metadata", "documents.json"), &documents)
	require.Len(t, documents, 2)
	assert.Equal(t, "Acute Rejection", documents[0]["title"])
	assert.NotContains(t, documents[0], "content")

	var m map[string]any
	readJSON(t, filepath.Join(dir, "metadata", "build_manifest.json"), &m)
	assert.Equal(t, "b1", m["build_id"])
	assert.Equal(t, "abc123", m["config_hash"])
	assert.Equal(t, "2026-03-01T12:00:00Z", m["build_timestamp"])
	stats, ok := m["stats"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 3, stats["n_chunks"])
}

func TestWriter_Write_Overwrites(t *testing.T) {
	dir := t.TempDir()
	report, docs, chunks := testBuild()
	w := NewWriter(dir)

	require.NoError(t, w.Write(context.Background(), report, docs, chunks))
	require.NoError(t, w.Write(context.Background(), report, docs[:1], chunks[:1]))

	var records []chunkRecord
	readJSON(t, filepath.Join(dir, "metadata", "chunks.json"), &records)
	assert.Len(t, records, 1)
}

func TestWriter_Write_UnwritableDir(t *testing.T) {
	report, docs, chunks := testBuild()

	err := NewWriter("/dev/null/artifacts").Write(context.Background(), report, docs, chunks)

	assert.Error(t, err)
}

func TestFormatChunks(t *testing.T) {
	assert.Empty(t, FormatChunks(nil))

	_, _, chunks := testBuild()
	out := FormatChunks(chunks[:1])

	assert.Contains(t, out, "Topic: general\nTier: Tier 1\n")
	assert.Contains(t, out, "Biopsy confirms rejection.\n\n")
}

func readJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, v))
}
