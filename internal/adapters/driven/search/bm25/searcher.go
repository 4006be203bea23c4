// Package bm25 provides an in-memory Okapi BM25 keyword searcher.
//
// The index is built per call from the corpus the caller passes in, so
// topic and tier filters are applied before term statistics are computed.
package bm25

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/custodia-labs/medrag/internal/core/domain"
	"github.com/custodia-labs/medrag/internal/core/ports/driven"
)

// Ensure Searcher implements the interface.
var _ driven.KeywordSearcher = (*Searcher)(nil)

// Okapi defaults.
const (
	DefaultK1      = 1.5
	DefaultB       = 0.75
	DefaultEpsilon = 0.25
)

// Searcher ranks chunks with Okapi BM25.
type Searcher struct {
	k1      float64
	b       float64
	epsilon float64
}

// Option configures a Searcher.
type Option func(*Searcher)

// WithParameters overrides k1 and b.
func WithParameters(k1, b float64) Option {
	return func(s *Searcher) {
		s.k1 = k1
		s.b = b
	}
}

// WithEpsilon sets the floor, as a fraction of the mean IDF, applied to
// terms whose IDF would be negative.
func WithEpsilon(epsilon float64) Option {
	return func(s *Searcher) {
		s.epsilon = epsilon
	}
}

// New creates a BM25 searcher.
func New(opts ...Option) *Searcher {
	s := &Searcher{k1: DefaultK1, b: DefaultB, epsilon: DefaultEpsilon}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search scores every chunk in corpus against query and returns up to limit
// hits with a positive score. Equal scores keep corpus order.
func (s *Searcher) Search(ctx context.Context, query string, corpus []domain.Chunk, limit int) ([]driven.SearchHit, error) {
	terms := Tokenize(query)
	if len(terms) == 0 || len(corpus) == 0 || limit <= 0 {
		return nil, nil
	}

	idx := newIndex(corpus, s.epsilon)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scores := idx.scores(terms, s.k1, s.b)

	hits := make([]driven.SearchHit, 0, len(corpus))
	for i, score := range scores {
		if score > 0 {
			hits = append(hits, driven.SearchHit{ChunkID: corpus[i].ID, Score: score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// Tokenize lower-cases text and splits it on whitespace.
func Tokenize(text string) []string {
	return strings.Fields(strings.ToLower(text))
}

// index holds the term statistics of one corpus.
type index struct {
	freqs  []map[string]int
	lens   []int
	avgLen float64
	idf    map[string]float64
}

func newIndex(corpus []domain.Chunk, epsilon float64) *index {
	idx := &index{
		freqs: make([]map[string]int, len(corpus)),
		lens:  make([]int, len(corpus)),
		idf:   make(map[string]float64),
	}

	docFreq := make(map[string]int)
	total := 0
	for i := range corpus {
		tokens := Tokenize(corpus[i].Text)
		tf := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			tf[tok]++
		}
		for term := range tf {
			docFreq[term]++
		}
		idx.freqs[i] = tf
		idx.lens[i] = len(tokens)
		total += len(tokens)
	}
	idx.avgLen = float64(total) / float64(len(corpus))

	n := float64(len(corpus))
	sum := 0.0
	var negative []string
	for term, df := range docFreq {
		v := math.Log((n - float64(df) + 0.5) / (float64(df) + 0.5))
		idx.idf[term] = v
		sum += v
		if v < 0 {
			negative = append(negative, term)
		}
	}

	if len(docFreq) > 0 {
		floor := epsilon * sum / float64(len(docFreq))
		for _, term := range negative {
			idx.idf[term] = floor
		}
	}

	return idx
}

func (idx *index) scores(terms []string, k1, b float64) []float64 {
	out := make([]float64, len(idx.freqs))
	for i, tf := range idx.freqs {
		norm := 1.0
		if idx.avgLen > 0 {
			norm = 1 - b + b*float64(idx.lens[i])/idx.avgLen
		}
		for _, term := range terms {
			f := float64(tf[term])
			if f == 0 {
				continue
			}
			out[i] += idx.idf[term] * f * (k1 + 1) / (f + k1*norm)
		}
	}
	return out
}
