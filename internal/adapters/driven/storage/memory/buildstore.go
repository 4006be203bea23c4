package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/medrag/internal/core/domain"
	"github.com/custodia-labs/medrag/internal/core/ports/driven"
)

// Ensure stores implement the interfaces.
var (
	_ driven.BuildStore = (*BuildStore)(nil)
	_ driven.QueryLog   = (*QueryLog)(nil)
)

// BuildStore is an in-memory implementation of driven.BuildStore.
type BuildStore struct {
	mu     sync.RWMutex
	builds []domain.BuildReport
	docs   map[string][]domain.Document
}

// NewBuildStore creates a new in-memory build store.
func NewBuildStore() *BuildStore {
	return &BuildStore{docs: make(map[string][]domain.Document)}
}

// SaveBuild stores a report and its documents. Document content is dropped.
func (s *BuildStore) SaveBuild(_ context.Context, report *domain.BuildReport, docs []domain.Document) error {
	if report == nil || report.ID == "" {
		return fmt.Errorf("%w: build report needs an id", domain.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.builds = append(s.builds, *report)
	stored := make([]domain.Document, len(docs))
	for i, d := range docs {
		d.Content = ""
		stored[i] = d
	}
	s.docs[report.ID] = stored
	return nil
}

// LatestBuild returns the newest build for a collection.
func (s *BuildStore) LatestBuild(_ context.Context, collection string) (*domain.BuildReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.builds) - 1; i >= 0; i-- {
		if s.builds[i].Collection == collection {
			report := s.builds[i]
			return &report, nil
		}
	}
	return nil, domain.ErrNotFound
}

// ListBuilds returns up to limit reports, newest first.
func (s *BuildStore) ListBuilds(_ context.Context, limit int) ([]domain.BuildReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.BuildReport, len(s.builds))
	copy(out, s.builds)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// BuildDocuments returns the documents indexed by a build.
func (s *BuildStore) BuildDocuments(_ context.Context, buildID string) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs, ok := s.docs[buildID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := make([]domain.Document, len(docs))
	copy(out, docs)
	return out, nil
}

// QueryLog is an in-memory implementation of driven.QueryLog.
type QueryLog struct {
	mu      sync.RWMutex
	entries []domain.QueryLogEntry
}

// NewQueryLog creates a new in-memory query log.
func NewQueryLog() *QueryLog {
	return &QueryLog{}
}

// Record appends an entry.
func (l *QueryLog) Record(_ context.Context, entry *domain.QueryLogEntry) error {
	if entry == nil {
		return fmt.Errorf("%w: nil entry", domain.ErrInvalidInput)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, *entry)
	return nil
}

// Recent returns up to limit entries, newest first.
func (l *QueryLog) Recent(_ context.Context, limit int) ([]domain.QueryLogEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	n := len(l.entries)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]domain.QueryLogEntry, 0, n)
	for i := len(l.entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, l.entries[i])
	}
	return out, nil
}
