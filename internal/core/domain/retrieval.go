package domain

import (
	"fmt"
	"strings"
	"time"
)

// Filters restricts retrieval to chunks with matching tags.
// Empty fields do not filter.
type Filters struct {
	// Topic matches Chunk.Topic exactly.
	Topic string

	// Tier matches Chunk.Tier exactly.
	Tier string
}

// IsEmpty reports whether no filter is set.
func (f Filters) IsEmpty() bool {
	return f.Topic == "" && f.Tier == ""
}

// Matches reports whether the chunk satisfies every set filter.
func (f Filters) Matches(c *Chunk) bool {
	if f.Topic != "" && c.Topic != f.Topic {
		return false
	}
	if f.Tier != "" && c.Tier != f.Tier {
		return false
	}
	return true
}

// RetrieveOptions configures a retrieval.
type RetrieveOptions struct {
	// TopK is the number of candidates to keep. Zero uses the configured default.
	TopK int

	// Filters restricts candidates by tag.
	Filters Filters

	// Hybrid overrides the configured hybrid mode when non-nil.
	Hybrid *bool
}

// RetrievedChunk is a Chunk plus query-time attributes.
// It is a copy; the index-owned chunk is never mutated.
type RetrievedChunk struct {
	Chunk

	// Similarity is the cosine similarity between query and chunk vectors.
	// The confidence scorer reads this field.
	Similarity float64

	// FusionScore is the reciprocal rank fusion score (zero in vector-only mode).
	FusionScore float64

	// Score is the value the candidate list was ranked by.
	Score float64

	// Rank is the 1-based position after fusion, deduplication and budget trimming.
	Rank int
}

// Citation formats the chunk's provenance as "<document> - <section>".
func (c *RetrievedChunk) Citation() string {
	return c.DocTitle + " - " + c.SectionTitle
}

// RetrievalResult is the outcome of one retrieval.
type RetrievalResult struct {
	// Query is the query as received.
	Query string

	// Chunks is the ranked, deduplicated, budget-bounded list.
	Chunks []RetrievedChunk

	// TotalTokens sums TokenCount over Chunks.
	TotalTokens int

	// Elapsed is the wall time spent retrieving.
	Elapsed time.Duration
}

// IsEmpty reports whether no chunks survived retrieval.
func (r *RetrievalResult) IsEmpty() bool {
	return len(r.Chunks) == 0
}

// FormatContext renders the chunks as a numbered context block for a prompt.
func (r *RetrievalResult) FormatContext() string {
	parts := make([]string, 0, len(r.Chunks))
	for i := range r.Chunks {
		parts = append(parts, fmt.Sprintf("[Source %d: %s]\n%s\n", r.Chunks[i].Rank, r.Chunks[i].Citation(), r.Chunks[i].Text))
	}
	return strings.Join(parts, "\n")
}

// Citations returns the unique citations in rank order.
func (r *RetrievalResult) Citations() []string {
	seen := make(map[string]bool, len(r.Chunks))
	citations := make([]string, 0, len(r.Chunks))
	for i := range r.Chunks {
		c := r.Chunks[i].Citation()
		if seen[c] {
			continue
		}
		seen[c] = true
		citations = append(citations, c)
	}
	return citations
}

// DocIDs returns the owning document IDs in rank order, without duplicates.
func (r *RetrievalResult) DocIDs() []string {
	seen := make(map[string]bool, len(r.Chunks))
	ids := make([]string, 0, len(r.Chunks))
	for i := range r.Chunks {
		id := r.Chunks[i].DocID
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}
