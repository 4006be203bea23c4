package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/medrag/internal/core/domain"
	"github.com/custodia-labs/medrag/internal/core/ports/driven"
)

// vectorStore implements driven.VectorStore.
type vectorStore struct {
	store *Store
}

var _ driven.VectorStore = (*vectorStore)(nil)

const recordColumns = `chunk_id, doc_id, doc_title, section_title, section_level, chunk_index, text,
	token_count, char_count, start_position, end_position, content_hash, topic, tier, created_at, embedding`

// CreateCollection creates an empty collection.
func (s *vectorStore) CreateCollection(ctx context.Context, name string, dims int) error {
	if name == "" || dims <= 0 {
		return fmt.Errorf("%w: collection needs a name and positive dimensions", domain.ErrInvalidInput)
	}
	_, err := s.store.db.ExecContext(ctx,
		"INSERT INTO collections (name, dimensions, created_at) VALUES (?, ?, ?)",
		name, dims, time.Now().UnixNano())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return fmt.Errorf("%w: collection %q already exists", domain.ErrInvalidInput, name)
		}
		return fmt.Errorf("creating collection: %w", err)
	}
	return nil
}

// Add appends records to a collection in one transaction.
func (s *vectorStore) Add(ctx context.Context, name string, records []driven.VectorRecord) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	collection, dims, err := lookupCollection(ctx, tx, name)
	if err != nil {
		return err
	}

	var next int
	if err := tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(seq), -1) + 1 FROM vectors WHERE collection = ?", collection,
	).Scan(&next); err != nil {
		return fmt.Errorf("reading sequence: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO vectors (collection, seq, `+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for i := range records {
		r := &records[i]
		if len(r.Vector) != dims {
			return fmt.Errorf("%w: chunk %s has %d dimensions, collection has %d",
				domain.ErrDimensionMismatch, r.Chunk.ID, len(r.Vector), dims)
		}
		c := &r.Chunk
		if _, err := stmt.ExecContext(ctx, collection, next+i,
			c.ID, c.DocID, c.DocTitle, c.SectionTitle, c.SectionLevel, c.Index, c.Text,
			c.TokenCount, c.CharCount, c.StartPosition, c.EndPosition, c.ContentHash,
			c.Topic, c.Tier, toUnixNano(c.CreatedAt), float32SliceToBytes(r.Vector),
		); err != nil {
			return fmt.Errorf("saving vector %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Query scans the collection and returns the k most similar records.
func (s *vectorStore) Query(
	ctx context.Context, name string, vector []float32, k int, filters domain.Filters,
) ([]driven.VectorMatch, error) {
	collection, dims, err := lookupCollection(ctx, s.store.db, name)
	if err != nil {
		return nil, err
	}
	if len(vector) != dims {
		return nil, fmt.Errorf("%w: query has %d dimensions, collection has %d",
			domain.ErrDimensionMismatch, len(vector), dims)
	}

	records, err := s.list(ctx, collection, filters)
	if err != nil {
		return nil, err
	}

	matches := make([]driven.VectorMatch, len(records))
	for i := range records {
		matches[i] = driven.VectorMatch{
			Record:     records[i],
			Similarity: domain.CosineSimilarity(vector, records[i].Vector),
		}
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
func (s *vectorStore) List(ctx context.Context, name string, filters domain.Filters) ([]driven.VectorRecord, error) {
	collection, _, err := lookupCollection(ctx, s.store.db, name)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, collection, filters)
}

func (s *vectorStore) list(ctx context.Context, collection string, filters domain.Filters) ([]driven.VectorRecord, error) {
	query := "SELECT " + recordColumns + " FROM vectors WHERE collection = ?"
	args := []any{collection}
	if filters.Topic != "" {
		query += " AND topic = ?"
		args = append(args, filters.Topic)
	}
	if filters.Tier != "" {
		query += " AND tier = ?"
		args = append(args, filters.Tier)
	}
	query += " ORDER BY seq"

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	var records []driven.VectorRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating vectors: %w", err)
	}
	return records, nil
}

// Count returns the number of records in a collection.
func (s *vectorStore) Count(ctx context.Context, name string) (int, error) {
	collection, _, err := lookupCollection(ctx, s.store.db, name)
	if err != nil {
		return 0, err
	}
	var n int
	if err := s.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM vectors WHERE collection = ?", collection,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting vectors: %w", err)
	}
	return n, nil
}

// DropCollection removes a collection. Its vectors and aliases cascade.
func (s *vectorStore) DropCollection(ctx context.Context, name string) error {
	res, err := s.store.db.ExecContext(ctx, "DELETE FROM collections WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("dropping collection: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, name)
	}
	return nil
}

// Collections returns all collection names, sorted.
func (s *vectorStore) Collections(ctx context.Context) ([]string, error) {
	rows, err := s.store.db.QueryContext(ctx, "SELECT name FROM collections ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("querying collections: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning collection: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Promote points alias at collection in one transaction.
func (s *vectorStore) Promote(ctx context.Context, alias, collection string) (string, error) {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var exists int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM collections WHERE name = ?", collection,
	).Scan(&exists); err != nil {
		return "", fmt.Errorf("checking collection: %w", err)
	}
	if exists == 0 {
		return "", fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, collection)
	}

	var previous string
	err = tx.QueryRowContext(ctx,
		"SELECT collection FROM collection_aliases WHERE alias = ?", alias,
	).Scan(&previous)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("reading alias: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO collection_aliases (alias, collection, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(alias) DO UPDATE SET
			collection = excluded.collection,
			updated_at = excluded.updated_at
	`, alias, collection, time.Now().UnixNano()); err != nil {
		return "", fmt.Errorf("updating alias: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing transaction: %w", err)
	}
	return previous, nil
}

// Resolve returns the collection an alias points to.
func (s *vectorStore) Resolve(ctx context.Context, alias string) (string, error) {
	collection, _, err := lookupCollection(ctx, s.store.db, alias)
	return collection, err
}

// Close is a no-op; the owning Store closes the database.
func (s *vectorStore) Close() error {
	return nil
}

// lookupCollection resolves name through aliases and returns the collection and its dimensions.
func lookupCollection(ctx context.Context, q querier, name string) (string, int, error) {
	var collection string
	var dims int
	err := q.QueryRowContext(ctx, `
		SELECT c.name, c.dimensions FROM collection_aliases a
		JOIN collections c ON c.name = a.collection
		WHERE a.alias = ?
	`, name).Scan(&collection, &dims)
	if err == nil {
		return collection, dims, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", 0, fmt.Errorf("resolving alias: %w", err)
	}

	err = q.QueryRowContext(ctx,
		"SELECT name, dimensions FROM collections WHERE name = ?", name,
	).Scan(&collection, &dims)
	if errors.Is(err, sql.ErrNoRows) {
		return "", 0, fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, name)
	}
	if err != nil {
		return "", 0, fmt.Errorf("reading collection: %w", err)
	}
	return collection, dims, nil
}

// scanRecord scans a vector row.
func scanRecord(rows *sql.Rows) (*driven.VectorRecord, error) {
	var r driven.VectorRecord
	var createdAt int64
	var blob []byte
	c := &r.Chunk

	if err := rows.Scan(&c.ID, &c.DocID, &c.DocTitle, &c.SectionTitle, &c.SectionLevel, &c.Index, &c.Text,
		&c.TokenCount, &c.CharCount, &c.StartPosition, &c.EndPosition, &c.ContentHash,
		&c.Topic, &c.Tier, &createdAt, &blob); err != nil {
		return nil, fmt.Errorf("scanning vector: %w", err)
	}
	c.CreatedAt = fromUnixNano(createdAt)
	r.Vector = bytesToFloat32Slice(blob)
	return &r, nil
}
