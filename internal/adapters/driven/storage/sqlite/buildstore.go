package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/medrag/internal/core/domain"
	"github.com/custodia-labs/medrag/internal/core/ports/driven"
)

// buildStore implements driven.BuildStore.
type buildStore struct {
	store *Store
}

var _ driven.BuildStore = (*buildStore)(nil)

const buildColumns = `id, collection, started_at, elapsed_ns, n_documents, n_chunks, total_tokens, total_words,
	avg_chunk_tokens, median_chunk_tokens, min_chunk_tokens, max_chunk_tokens, topic_counts, tier_counts, config_hash`

// SaveBuild stores a report together with its documents.
func (s *buildStore) SaveBuild(ctx context.Context, report *domain.BuildReport, docs []domain.Document) error {
	if report == nil || report.ID == "" {
		return fmt.Errorf("%w: build report needs an id", domain.ErrInvalidInput)
	}

	topics, err := json.Marshal(report.TopicCounts)
	if err != nil {
		return fmt.Errorf("marshalling topic counts: %w", err)
	}
	tiers, err := json.Marshal(report.TierCounts)
	if err != nil {
		return fmt.Errorf("marshalling tier counts: %w", err)
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO builds (`+buildColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, report.ID, report.Collection, toUnixNano(report.StartedAt), int64(report.Elapsed),
		report.Documents, report.Chunks, report.TotalTokens, report.TotalWords,
		report.AvgChunkTokens, report.MedianChunkTokens, report.MinChunkTokens, report.MaxChunkTokens,
		string(topics), string(tiers), report.ConfigHash,
	); err != nil {
		return fmt.Errorf("saving build: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO documents (build_id, id, title, path, word_count, section_count, content_hash, loaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for i := range docs {
		d := &docs[i]
		if _, err := stmt.ExecContext(ctx, report.ID, d.ID, d.Title, d.Path,
			d.WordCount, d.SectionCount, d.ContentHash, toUnixNano(d.LoadedAt)); err != nil {
			return fmt.Errorf("saving document %s: %w", d.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// LatestBuild returns the newest build for a collection.
func (s *buildStore) LatestBuild(ctx context.Context, collection string) (*domain.BuildReport, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT `+buildColumns+` FROM builds
		WHERE collection = ?
		ORDER BY started_at DESC, rowid DESC
		LIMIT 1
	`, collection)

	report, err := scanBuild(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return report, err
}

// ListBuilds returns up to limit reports, newest first.
func (s *buildStore) ListBuilds(ctx context.Context, limit int) ([]domain.BuildReport, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+buildColumns+` FROM builds
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying builds: %w", err)
	}
	defer rows.Close()

	var reports []domain.BuildReport //nolint:prealloc // size unknown from query
	for rows.Next() {
		report, err := scanBuild(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating builds: %w", err)
	}
	return reports, nil
}

// BuildDocuments returns the documents indexed by a build.
func (s *buildStore) BuildDocuments(ctx context.Context, buildID string) ([]domain.Document, error) {
	var exists int
	if err := s.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM builds WHERE id = ?", buildID,
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("checking build: %w", err)
	}
	if exists == 0 {
		return nil, domain.ErrNotFound
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, title, path, word_count, section_count, content_hash, loaded_at
		FROM documents WHERE build_id = ?
		ORDER BY id
	`, buildID)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	docs := []domain.Document{}
	for rows.Next() {
		var d domain.Document
		var loadedAt int64
		if err := rows.Scan(&d.ID, &d.Title, &d.Path, &d.WordCount, &d.SectionCount,
			&d.ContentHash, &loadedAt); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		d.LoadedAt = fromUnixNano(loadedAt)
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanBuild scans a build row. sql.ErrNoRows is returned unwrapped.
func scanBuild(row rowScanner) (*domain.BuildReport, error) {
	var r domain.BuildReport
	var startedAt, elapsed int64
	var topics, tiers string

	if err := row.Scan(&r.ID, &r.Collection, &startedAt, &elapsed,
		&r.Documents, &r.Chunks, &r.TotalTokens, &r.TotalWords,
		&r.AvgChunkTokens, &r.MedianChunkTokens, &r.MinChunkTokens, &r.MaxChunkTokens,
		&topics, &tiers, &r.ConfigHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning build: %w", err)
	}

	r.StartedAt = fromUnixNano(startedAt)
	r.Elapsed = time.Duration(elapsed)
	if err := json.Unmarshal([]byte(topics), &r.TopicCounts); err != nil {
		return nil, fmt.Errorf("unmarshalling topic counts: %w", err)
	}
	if err := json.Unmarshal([]byte(tiers), &r.TierCounts); err != nil {
		return nil, fmt.Errorf("unmarshalling tier counts: %w", err)
	}
	return &r, nil
}
