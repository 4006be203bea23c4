package services

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/medrag/internal/core/domain"
	"github.com/custodia-labs/medrag/internal/core/ports/driven"
	"github.com/custodia-labs/medrag/internal/core/ports/driving"
	"github.com/custodia-labs/medrag/internal/logger"
)

// Ensure IndexService implements the interface.
var _ driving.IndexService = (*IndexService)(nil)

// SampleQuery is the retrieval smoke test run by Validate.
const SampleQuery = "What are the immunosuppressive drugs?"

const (
	sampleTopK         = 3
	samplePreviewRunes = 100
	generationSep      = "__"
)

// IndexConfig holds the settings a build depends on.
type IndexConfig struct {
	Collection string
	Chunking   domain.ChunkingSettings
	Embedding  domain.EmbeddingSettings
}

// IndexConfigFromSettings extracts index settings from application settings.
func IndexConfigFromSettings(s *domain.AppSettings) IndexConfig {
	return IndexConfig{
		Collection: s.Index.Collection,
		Chunking:   s.Chunking,
		Embedding:  s.Embedding,
	}
}

// Hash fingerprints everything that changes the stored vectors.
func (c IndexConfig) Hash() string {
	return domain.ContentHash(fmt.Sprintf("%+v|%s|%s|%d|%t",
		c.Chunking, c.Embedding.Provider, c.Embedding.Model, c.Embedding.MaxSeqLength, c.Embedding.Normalize))
}

// IndexService rebuilds the vector index from the corpus.
// Each build writes a fresh collection generation and swaps the alias to it
// only after every record is stored.
type IndexService struct {
	loader     driven.CorpusLoader
	normaliser driven.Normaliser
	pipeline   driven.PostProcessorPipeline
	embedder   driven.EmbeddingService
	store      driven.VectorStore
	cfg        IndexConfig

	builds    driven.BuildStore
	artifacts driven.ArtifactWriter
	retriever driving.RetrieverService

	// mu is held for the duration of a build.
	mu sync.Mutex

	now   func() time.Time
	newID func() string
}

// NewIndexService creates an index service.
func NewIndexService(
	loader driven.CorpusLoader,
	normaliser driven.Normaliser,
	pipeline driven.PostProcessorPipeline,
	embedder driven.EmbeddingService,
	store driven.VectorStore,
	cfg IndexConfig,
) *IndexService {
	return &IndexService{
		loader:     loader,
		normaliser: normaliser,
		pipeline:   pipeline,
		embedder:   embedder,
		store:      store,
		cfg:        cfg,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// SetBuildStore enables build history for Stats and Validate.
func (s *IndexService) SetBuildStore(builds driven.BuildStore) {
	s.builds = builds
}

// SetArtifactWriter enables on-disk build artifacts.
func (s *IndexService) SetArtifactWriter(w driven.ArtifactWriter) {
	s.artifacts = w
}

// SetRetriever enables the sample retrieval in Validate.
func (s *IndexService) SetRetriever(r driving.RetrieverService) {
	s.retriever = r
}

// Build loads, normalises, chunks and embeds the whole corpus into a new
// collection generation, then promotes it. A failed build leaves the
// previous generation in place.
//
//nolint:gocyclo // Orchestration function with necessary sequential steps
func (s *IndexService) Build(ctx context.Context) (*domain.BuildReport, error) {
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if s.store == nil {
		return nil, domain.ErrVectorStoreUnavailable
	}
	if !s.mu.TryLock() {
		return nil, domain.ErrBuildInProgress
	}
	defer s.mu.Unlock()

	start := s.now()

	// 1. Load
	logger.Section("Document Loading")
	raws, err := s.loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}
	logger.Info("Loaded %d documents from %s", len(raws), s.loader.Location())

	// 2. Normalise
	docs := make([]domain.Document, 0, len(raws))
	for i := range raws {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, err := s.normaliser.Normalise(ctx, &raws[i])
		if err != nil {
			logger.Warn("Skipping %s: %v", raws[i].Path, err)
			continue
		}
		docs = append(docs, *doc)
	}
	if len(docs) == 0 {
		return nil, domain.ErrEmptyCorpus
	}

	// 3. Chunk
	logger.Section("Chunking")
	var chunks []domain.Chunk
	for i := range docs {
		docChunks, err := s.pipeline.Process(ctx, &docs[i])
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", docs[i].ID, err)
		}
		logger.Debug("%s: %d chunks", docs[i].ID, len(docChunks))
		chunks = append(chunks, docChunks...)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: no chunks produced from %d documents", domain.ErrEmptyCorpus, len(docs))
	}
	logger.Info("Created %d chunks from %d documents", len(chunks), len(docs))

	// 4-5. Embed into a new generation
	logger.Section("Vector Indexing")
	buildID := s.newID()
	generation := s.cfg.Collection + generationSep + buildID
	if err := s.index(ctx, generation, chunks); err != nil {
		s.discard(ctx, generation)
		return nil, err
	}

	// 6. Promote
	previous, err := s.store.Promote(ctx, s.cfg.Collection, generation)
	if err != nil {
		s.discard(ctx, generation)
		return nil, fmt.Errorf("promote %s: %w", generation, err)
	}
	logger.Info("Collection %s now points at %s", s.cfg.Collection, generation)

	// 7. Drop older generations
	s.dropStale(ctx, generation, previous)

	report := NewBuildReport(buildID, s.cfg.Collection, docs, chunks)
	report.ConfigHash = s.cfg.Hash()
	report.StartedAt = start.UTC()
	report.Elapsed = s.now().Sub(start)

	if s.builds != nil {
		if err := s.builds.SaveBuild(ctx, report, docs); err != nil {
			logger.Warn("Failed to save build report: %v", err)
		}
	}
	if s.artifacts != nil {
		if err := s.artifacts.Write(ctx, report, docs, chunks); err != nil {
			logger.Warn("Failed to write build artifacts: %v", err)
		}
	}

	logger.Info("Indexed %d chunks (%d tokens) in %s", report.Chunks, report.TotalTokens, report.Elapsed)
	return report, nil
}

// index embeds chunks in batches and stores them in generation.
// The collection is created from the first batch's vector width.
func (s *IndexService) index(ctx context.Context, generation string, chunks []domain.Chunk) error {
	emb := s.cfg.Embedding
	batchSize := emb.BatchSize
	if batchSize <= 0 {
		batchSize = domain.DefaultAppSettings().Embedding.BatchSize
	}

	created := false
	batches := 0
	for start := 0; start < len(chunks); start += batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+batchSize, len(chunks))
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i := range batch {
			texts[i] = TruncateWords(batch[i].Text, emb.MaxSeqLength)
		}

		vectors, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed chunks %d-%d: %w", start, end-1, err)
		}
		if len(vectors) != len(batch) {
			return fmt.Errorf("embed chunks %d-%d: got %d vectors for %d texts",
				start, end-1, len(vectors), len(batch))
		}

		if !created {
			if err := s.store.CreateCollection(ctx, generation, len(vectors[0])); err != nil {
				return fmt.Errorf("create collection %s: %w", generation, err)
			}
			created = true
		}

		records := make([]driven.VectorRecord, len(batch))
		for i := range batch {
			if emb.Normalize {
				domain.L2Normalize(vectors[i])
			}
			records[i] = driven.VectorRecord{Chunk: batch[i], Vector: vectors[i]}
		}
		if err := s.store.Add(ctx, generation, records); err != nil {
			return fmt.Errorf("store chunks %d-%d: %w", start, end-1, err)
		}

		batches++
		logger.Debug("Embedded %d/%d chunks", end, len(chunks))
		if emb.ReclaimEvery > 0 && batches%emb.ReclaimEvery == 0 {
			runtime.GC()
			debug.FreeOSMemory()
		}
	}
	return nil
}

// discard drops a half-built generation. It runs even if ctx is cancelled.
func (s *IndexService) discard(ctx context.Context, generation string) {
	err := s.store.DropCollection(context.WithoutCancel(ctx), generation)
	if err != nil && !errors.Is(err, domain.ErrCollectionNotFound) {
		logger.Warn("Failed to drop incomplete collection %s: %v", generation, err)
	}
}

// dropStale removes the previous generation and any leftovers from crashed builds.
func (s *IndexService) dropStale(ctx context.Context, current, previous string) {
	stale := map[string]bool{}
	if previous != "" && previous != current {
		stale[previous] = true
	}
	names, err := s.store.Collections(ctx)
	if err != nil {
		logger.Warn("Failed to list collections: %v", err)
	}
	prefix := s.cfg.Collection + generationSep
	for _, name := range names {
		if name != current && strings.HasPrefix(name, prefix) {
			stale[name] = true
		}
	}
	for name := range stale {
		if err := s.store.DropCollection(ctx, name); err != nil && !errors.Is(err, domain.ErrCollectionNotFound) {
			logger.Warn("Failed to drop collection %s: %v", name, err)
			continue
		}
		logger.Debug("Dropped collection %s", name)
	}
}

// Validate checks the active collection is populated and answers a sample query.
func (s *IndexService) Validate(ctx context.Context) (*domain.ValidationReport, error) {
	if s.store == nil {
		return nil, domain.ErrVectorStoreUnavailable
	}

	collection, err := s.store.Resolve(ctx, s.cfg.Collection)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", s.cfg.Collection, err)
	}
	count, err := s.store.Count(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("count %s: %w", collection, err)
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: collection %s has no chunks", domain.ErrEmptyCorpus, collection)
	}

	report := &domain.ValidationReport{
		Collection:  collection,
		Chunks:      count,
		SampleQuery: SampleQuery,
	}

	if s.retriever != nil {
		result, err := s.retriever.Retrieve(ctx, SampleQuery, domain.RetrieveOptions{TopK: sampleTopK})
		if err != nil {
			return nil, fmt.Errorf("sample query: %w", err)
		}
		report.SampleHits = len(result.Chunks)
		if len(result.Chunks) > 0 {
			report.SamplePreview = Preview(result.Chunks[0].Text, samplePreviewRunes)
		}
	}

	if last, err := s.Stats(ctx); err == nil {
		report.LastBuild = last
	}
	return report, nil
}

// Stats returns the report of the most recent successful build.
func (s *IndexService) Stats(ctx context.Context) (*domain.BuildReport, error) {
	if s.builds == nil {
		return nil, domain.ErrNotFound
	}
	return s.builds.LatestBuild(ctx, s.cfg.Collection)
}

// NewBuildReport computes corpus and chunk statistics for a build.
func NewBuildReport(id, collection string, docs []domain.Document, chunks []domain.Chunk) *domain.BuildReport {
	report := &domain.BuildReport{
		ID:          id,
		Collection:  collection,
		Documents:   len(docs),
		Chunks:      len(chunks),
		TopicCounts: make(map[string]int),
		TierCounts:  make(map[string]int),
	}
	for i := range docs {
		report.TotalWords += docs[i].WordCount
	}
	if len(chunks) == 0 {
		return report
	}

	sizes := make([]int, len(chunks))
	for i := range chunks {
		sizes[i] = chunks[i].TokenCount
		report.TotalTokens += chunks[i].TokenCount
		report.TopicCounts[chunks[i].Topic]++
		report.TierCounts[chunks[i].Tier]++
	}
	sort.Ints(sizes)

	report.MinChunkTokens = sizes[0]
	report.MaxChunkTokens = sizes[len(sizes)-1]
	report.AvgChunkTokens = float64(report.TotalTokens) / float64(len(sizes))

	mid := len(sizes) / 2
	if len(sizes)%2 == 1 {
		report.MedianChunkTokens = float64(sizes[mid])
	} else {
		report.MedianChunkTokens = float64(sizes[mid-1]+sizes[mid]) / 2
	}
	return report
}

// TruncateWords keeps at most n whitespace-delimited words. n <= 0 disables truncation.
func TruncateWords(text string, n int) string {
	if n <= 0 {
		return text
	}
	words := strings.Fields(text)
	if len(words) <= n {
		return text
	}
	return strings.Join(words[:n], " ")
}
