package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// contentHashLength is the number of hex characters kept from a sha256 digest.
const contentHashLength = 16

// Document represents one normalised source file from the corpus.
// It is created once per build and is immutable afterwards.
type Document struct {
	// ID is the stable identifier (the file name without extension).
	ID string

	// Title is derived from the first top-level heading, falling back to ID.
	Title string

	// Content is the normalised text with heading lines preserved.
	Content string

	// Path is the original location on disk.
	Path string

	// WordCount is the number of whitespace-delimited words in Content.
	WordCount int

	// SectionCount is the number of level 1-3 headings in Content.
	SectionCount int

	// ContentHash fingerprints Content for change detection.
	ContentHash string

	// LoadedAt is when the document was read from the corpus.
	LoadedAt time.Time
}

// Section is a contiguous span of a Document bounded by a heading of level 1-3.
// Sections are derived transiently during chunking and never persisted.
type Section struct {
	// Title is the heading text ("Introduction" for untitled leading text).
	Title string

	// Level is the heading depth (0 for untitled leading text, 1-3 otherwise).
	Level int

	// Body is the raw section text without the heading line.
	Body string
}

// Chunk is the retrieval unit.
// Chunks are immutable once written to the index; the only mutation path
// is a full rebuild that replaces the whole collection.
type Chunk struct {
	// ID is the document ID plus the zero-padded ordinal, e.g. "07_kidney:chunk_003".
	ID string

	// Text is the chunk content.
	Text string

	// DocID links to the owning Document.
	DocID string

	// DocTitle is the owning document's title.
	DocTitle string

	// SectionTitle is the heading the chunk was cut from.
	SectionTitle string

	// SectionLevel is the heading depth (0-3).
	SectionLevel int

	// Index is the ordinal position within the document.
	Index int

	// TokenCount approximates tokens as whitespace-delimited words.
	TokenCount int

	// CharCount is the length of Text in bytes.
	CharCount int

	// StartPosition and EndPosition delimit the chunk text.
	StartPosition int
	EndPosition   int

	// ContentHash fingerprints Text.
	ContentHash string

	// Topic is the topic category inferred from the document title.
	Topic string

	// Tier is the priority bucket inferred from the document ID.
	Tier string

	// CreatedAt is when the chunk was produced.
	CreatedAt time.Time
}

// ChunkID builds the chunk identifier for a document ordinal.
func ChunkID(docID string, index int) string {
	return fmt.Sprintf("%s:chunk_%03d", docID, index)
}

// ContentHash returns the truncated sha256 hex digest of text.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])[:contentHashLength]
}
