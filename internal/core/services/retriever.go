package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/medrag/internal/core/domain"
	"github.com/custodia-labs/medrag/internal/core/ports/driven"
	"github.com/custodia-labs/medrag/internal/core/ports/driving"
	"github.com/custodia-labs/medrag/internal/logger"
)

// Ensure RetrieverService implements the interface.
var _ driving.RetrieverService = (*RetrieverService)(nil)

// RetrieverService finds relevant chunks by vector similarity, optionally
// fused with keyword ranking. It holds no mutable state and is safe for
// concurrent use.
type RetrieverService struct {
	embedder   driven.EmbeddingService
	store      driven.VectorStore
	keyword    driven.KeywordSearcher
	collection string
	cfg        domain.RetrievalSettings
}

// NewRetrieverService creates a retriever reading the collection alias.
// The keyword searcher is optional; without it hybrid requests run vector-only.
func NewRetrieverService(
	embedder driven.EmbeddingService,
	store driven.VectorStore,
	keyword driven.KeywordSearcher,
	collection string,
	cfg domain.RetrievalSettings,
) *RetrieverService {
	return &RetrieverService{
		embedder:   embedder,
		store:      store,
		keyword:    keyword,
		collection: collection,
		cfg:        cfg,
	}
}

// Retrieve returns ranked, deduplicated, budget-bounded chunks for query.
func (s *RetrieverService) Retrieve(
	ctx context.Context, query string, opts domain.RetrieveOptions,
) (*domain.RetrievalResult, error) {
	start := time.Now()
	result := &domain.RetrievalResult{Query: query}

	q := strings.TrimSpace(query)
	if q == "" {
		return result, nil
	}
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if s.store == nil {
		return nil, domain.ErrVectorStoreUnavailable
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = s.cfg.TopK
	}
	hybrid := s.cfg.Hybrid
	if opts.Hybrid != nil {
		hybrid = *opts.Hybrid
	}
	if hybrid && s.keyword == nil {
		logger.Warn("Hybrid retrieval requested without a keyword searcher, using vector only")
		hybrid = false
	}

	logger.Section("Retrieval")
	logger.Debug("Query: %q, top_k=%d, hybrid=%t, filters=%+v", q, topK, hybrid, opts.Filters)

	collection, err := s.store.Resolve(ctx, s.collection)
	if errors.Is(err, domain.ErrCollectionNotFound) {
		logger.Debug("Collection %q not built, returning empty result", s.collection)
		result.Elapsed = time.Since(start)
		return result, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve collection: %w", err)
	}

	var candidates []domain.RetrievedChunk
	if hybrid {
		candidates, err = s.hybridCandidates(ctx, collection, q, topK, opts.Filters)
	} else {
		candidates, err = s.vectorCandidates(ctx, collection, q, topK, opts.Filters)
	}
	if errors.Is(err, domain.ErrCollectionNotFound) {
		result.Elapsed = time.Since(start)
		return result, nil
	}
	if err != nil {
		return nil, err
	}
	logger.Debug("Candidates: %d", len(candidates))

	chunks := Deduplicate(candidates, s.cfg.DedupThreshold)
	logger.Debug("After dedup: %d", len(chunks))

	chunks, total := EnforceBudget(chunks, s.cfg.ContextBudget)
	logger.Debug("After budget: %d chunks, %d tokens", len(chunks), total)

	for i := range chunks {
		chunks[i].Rank = i + 1
	}

	result.Chunks = chunks
	result.TotalTokens = total
	result.Elapsed = time.Since(start)
	return result, nil
}

func (s *RetrieverService) vectorCandidates(
	ctx context.Context, collection, query string, topK int, filters domain.Filters,
) ([]domain.RetrievedChunk, error) {
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	matches, err := s.store.Query(ctx, collection, vec, topK, filters)
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}

	out := make([]domain.RetrievedChunk, len(matches))
	for i, m := range matches {
		out[i] = domain.RetrievedChunk{
			Chunk:      m.Record.Chunk,
			Similarity: m.Similarity,
			Score:      m.Similarity,
		}
	}
	return out, nil
}

// fusionCandidate accumulates reciprocal rank contributions for one chunk.
// A rank of zero means the chunk is absent from that ranking.
type fusionCandidate struct {
	chunk       domain.Chunk
	similarity  float64
	score       float64
	vectorRank  int
	keywordRank int
}

func (s *RetrieverService) hybridCandidates(
	ctx context.Context, collection, query string, topK int, filters domain.Filters,
) ([]domain.RetrievedChunk, error) {
	records, err := s.store.List(ctx, collection, filters)
	if err != nil {
		return nil, fmt.Errorf("list corpus: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	depth := 2 * topK
	vectorDepth := depth
	if vectorDepth > len(records) {
		vectorDepth = len(records)
	}

	var (
		queryVec []float32
		matches  []driven.VectorMatch
		hits     []driven.SearchHit
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		vec, err := s.embedder.Embed(gctx, query)
		if err != nil {
			return fmt.Errorf("embed query: %w", err)
		}
		queryVec = vec
		m, err := s.store.Query(gctx, collection, vec, vectorDepth, filters)
		if err != nil {
			return fmt.Errorf("vector query: %w", err)
		}
		matches = m
		return nil
	})
	g.Go(func() error {
		corpus := make([]domain.Chunk, len(records))
		for i := range records {
			corpus[i] = records[i].Chunk
		}
		h, err := s.keyword.Search(gctx, query, corpus, depth)
		if err != nil {
			return fmt.Errorf("keyword search: %w", err)
		}
		hits = h
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	logger.Debug("Hybrid: %d vector + %d keyword candidates", len(matches), len(hits))

	byID := make(map[string]*driven.VectorRecord, len(records))
	for i := range records {
		byID[records[i].Chunk.ID] = &records[i]
	}

	fused := s.fuse(queryVec, matches, hits, byID)
	if len(fused) > topK {
		fused = fused[:topK]
	}
	return fused, nil
}

// fuse combines both rankings with weighted reciprocal rank fusion.
func (s *RetrieverService) fuse(
	queryVec []float32,
	matches []driven.VectorMatch,
	hits []driven.SearchHit,
	byID map[string]*driven.VectorRecord,
) []domain.RetrievedChunk {
	rrfK := float64(s.cfg.RRFK)
	acc := make(map[string]*fusionCandidate, len(matches)+len(hits))

	for i, m := range matches {
		rank := i + 1
		acc[m.Record.Chunk.ID] = &fusionCandidate{
			chunk:      m.Record.Chunk,
			similarity: m.Similarity,
			score:      s.cfg.VectorWeight / (float64(rank) + rrfK),
			vectorRank: rank,
		}
	}

	rank := 0
	for _, h := range hits {
		if h.Score <= 0 {
			continue
		}
		rec, ok := byID[h.ChunkID]
		if !ok {
			continue
		}
		rank++
		c, ok := acc[h.ChunkID]
		if !ok {
			c = &fusionCandidate{
				chunk:      rec.Chunk,
				similarity: domain.CosineSimilarity(queryVec, rec.Vector),
			}
			acc[h.ChunkID] = c
		}
		c.keywordRank = rank
		c.score += s.cfg.KeywordWeight / (float64(rank) + rrfK)
	}

	list := make([]*fusionCandidate, 0, len(acc))
	for _, c := range acc {
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if ar, br := rankOrMax(a.vectorRank), rankOrMax(b.vectorRank); ar != br {
			return ar < br
		}
		if ar, br := rankOrMax(a.keywordRank), rankOrMax(b.keywordRank); ar != br {
			return ar < br
		}
		return a.chunk.ID < b.chunk.ID
	})

	out := make([]domain.RetrievedChunk, len(list))
	for i, c := range list {
		out[i] = domain.RetrievedChunk{
			Chunk:       c.chunk,
			Similarity:  c.similarity,
			FusionScore: c.score,
			Score:       c.score,
		}
	}
	return out
}

func rankOrMax(rank int) int {
	if rank == 0 {
		return math.MaxInt
	}
	return rank
}

// Deduplicate keeps candidates in order, dropping any whose token-set Jaccard
// overlap with an already kept chunk exceeds threshold.
func Deduplicate(chunks []domain.RetrievedChunk, threshold float64) []domain.RetrievedChunk {
	if len(chunks) == 0 {
		return chunks
	}

	kept := make([]domain.RetrievedChunk, 0, len(chunks))
	keptTokens := make([]map[string]struct{}, 0, len(chunks))

	for i := range chunks {
		tokens := tokenSet(chunks[i].Text)
		duplicate := false
		for _, other := range keptTokens {
			if Jaccard(tokens, other) > threshold {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}
		kept = append(kept, chunks[i])
		keptTokens = append(keptTokens, tokens)
	}
	return kept
}

// EnforceBudget keeps chunks in order until the next one would push the token
// total over budget. It returns the kept chunks and their token total.
func EnforceBudget(chunks []domain.RetrievedChunk, budget int) ([]domain.RetrievedChunk, int) {
	total := 0
	for i := range chunks {
		if total+chunks[i].TokenCount > budget {
			return chunks[:i], total
		}
		total += chunks[i].TokenCount
	}
	return chunks, total
}

// Jaccard returns |a ∩ b| / |a ∪ b|, or 0 when both sets are empty.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) > len(b) {
		a, b = b, a
	}
	inter := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func tokenSet(text string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(text))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}
