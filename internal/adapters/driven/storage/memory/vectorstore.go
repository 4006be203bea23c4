package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/medrag/internal/core/domain"
	"github.com/custodia-labs/medrag/internal/core/ports/driven"
)

// Ensure VectorStore implements the interface.
var _ driven.VectorStore = (*VectorStore)(nil)

type collection struct {
	dims    int
	records []driven.VectorRecord
}

// VectorStore is an in-memory implementation of driven.VectorStore.
// It backs tests and ephemeral indexing runs.
type VectorStore struct {
	mu          sync.RWMutex
	collections map[string]*collection
	aliases     map[string]string
}

// NewVectorStore creates a new in-memory vector store.
func NewVectorStore() *VectorStore {
	return &VectorStore{
		collections: make(map[string]*collection),
		aliases:     make(map[string]string),
	}
}

// CreateCollection creates an empty collection.
func (s *VectorStore) CreateCollection(_ context.Context, name string, dims int) error {
	if name == "" || dims <= 0 {
		return fmt.Errorf("%w: collection needs a name and positive dimensions", domain.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.collections[name]; exists {
		return fmt.Errorf("%w: collection %q already exists", domain.ErrInvalidInput, name)
	}
	s.collections[name] = &collection{dims: dims}
	return nil
}

// Add appends records to a collection.
func (s *VectorStore) Add(_ context.Context, name string, records []driven.VectorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.lookup(name)
	if err != nil {
		return err
	}
	for i := range records {
		if len(records[i].Vector) != c.dims {
			return fmt.Errorf("%w: chunk %s has %d dimensions, collection has %d",
				domain.ErrDimensionMismatch, records[i].Chunk.ID, len(records[i].Vector), c.dims)
		}
	}
	for _, r := range records {
		vec := make([]float32, len(r.Vector))
		copy(vec, r.Vector)
		c.records = append(c.records, driven.VectorRecord{Chunk: r.Chunk, Vector: vec})
	}
	return nil
}

// Query returns the k most similar records.
func (s *VectorStore) Query(
	_ context.Context, name string, vector []float32, k int, filters domain.Filters,
) ([]driven.VectorMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, err := s.lookup(name)
	if err != nil {
		return nil, err
	}
	if len(vector) != c.dims {
		return nil, fmt.Errorf("%w: query has %d dimensions, collection has %d",
			domain.ErrDimensionMismatch, len(vector), c.dims)
	}

	matches := make([]driven.VectorMatch, 0, len(c.records))
	for i := range c.records {
		if !filters.Matches(&c.records[i].Chunk) {
			continue
		}
		matches = append(matches, driven.VectorMatch{
			Record:     c.records[i],
			Similarity: domain.CosineSimilarity(vector, c.records[i].Vector),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if k >= 0 && len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// List returns every matching record in insertion order.
func (s *VectorStore) List(_ context.Context, name string, filters domain.Filters) ([]driven.VectorRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, err := s.lookup(name)
	if err != nil {
		return nil, err
	}
	records := make([]driven.VectorRecord, 0, len(c.records))
	for i := range c.records {
		if filters.Matches(&c.records[i].Chunk) {
			records = append(records, c.records[i])
		}
	}
	return records, nil
}

// Count returns the number of records in a collection.
func (s *VectorStore) Count(_ context.Context, name string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, err := s.lookup(name)
	if err != nil {
		return 0, err
	}
	return len(c.records), nil
}

// DropCollection removes a collection. Aliases pointing at it are removed too.
func (s *VectorStore) DropCollection(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[name]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, name)
	}
	delete(s.collections, name)
	for alias, target := range s.aliases {
		if target == name {
			delete(s.aliases, alias)
		}
	}
	return nil
}

// Collections returns all collection names, sorted.
func (s *VectorStore) Collections(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Promote points alias at collection.
func (s *VectorStore) Promote(_ context.Context, alias, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[name]; !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, name)
	}
	previous := s.aliases[alias]
	s.aliases[alias] = name
	return previous, nil
}

// Resolve returns the collection an alias points to.
func (s *VectorStore) Resolve(_ context.Context, alias string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if target, ok := s.aliases[alias]; ok {
		return target, nil
	}
	if _, ok := s.collections[alias]; ok {
		return alias, nil
	}
	return "", fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, alias)
}

// Close is a no-op for the memory store.
func (s *VectorStore) Close() error {
	return nil
}

// lookup resolves name through aliases. Callers hold the lock.
func (s *VectorStore) lookup(name string) (*collection, error) {
	if target, ok := s.aliases[name]; ok {
		name = target
	}
	c, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, name)
	}
	return c, nil
}
