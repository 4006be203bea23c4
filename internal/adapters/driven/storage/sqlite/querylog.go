package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/medrag/internal/core/domain"
	"github.com/custodia-labs/medrag/internal/core/ports/driven"
)

// queryLog implements driven.QueryLog.
type queryLog struct {
	store *Store
}

var _ driven.QueryLog = (*queryLog)(nil)

// Record appends an entry.
func (l *queryLog) Record(ctx context.Context, entry *domain.QueryLogEntry) error {
	if entry == nil || entry.ID == "" {
		return fmt.Errorf("%w: query log entry needs an id", domain.ErrInvalidInput)
	}
	_, err := l.store.db.ExecContext(ctx, `
		INSERT INTO query_log (id, timestamp, query, confidence, score, chunks_used,
			total_time_ns, model, gated, streamed, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, toUnixNano(entry.Timestamp), entry.Query, entry.Confidence.String(), entry.Score,
		entry.ChunksUsed, int64(entry.TotalTime), entry.Model,
		boolToInt(entry.Gated), boolToInt(entry.Streamed), entry.Error)
	if err != nil {
		return fmt.Errorf("recording query: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (l *queryLog) Recent(ctx context.Context, limit int) ([]domain.QueryLogEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := l.store.db.QueryContext(ctx, `
		SELECT id, timestamp, query, confidence, score, chunks_used, total_time_ns, model, gated, streamed, error
		FROM query_log
		ORDER BY rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying query log: %w", err)
	}
	defer rows.Close()

	entries := []domain.QueryLogEntry{}
	for rows.Next() {
		var e domain.QueryLogEntry
		var ts, total int64
		var confidence string
		var gated, streamed int
		if err := rows.Scan(&e.ID, &ts, &e.Query, &confidence, &e.Score, &e.ChunksUsed,
			&total, &e.Model, &gated, &streamed, &e.Error); err != nil {
			return nil, fmt.Errorf("scanning query log: %w", err)
		}
		e.Timestamp = fromUnixNano(ts)
		e.Confidence = domain.ConfidenceLabel(confidence)
		e.TotalTime = time.Duration(total)
		e.Gated = gated == 1
		e.Streamed = streamed == 1
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating query log: %w", err)
	}
	return entries, nil
}
