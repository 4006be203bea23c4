package driven

import (
	"context"

	"github.com/custodia-labs/medrag/internal/core/domain"
)

// BuildStore persists index build reports and the documents each build indexed.
type BuildStore interface {
	// SaveBuild stores a report together with its documents.
	SaveBuild(ctx context.Context, report *domain.BuildReport, docs []domain.Document) error

	// LatestBuild returns the most recent build for a collection.
	// Returns ErrNotFound if the collection was never built.
	LatestBuild(ctx context.Context, collection string) (*domain.BuildReport, error)

	// ListBuilds returns up to limit reports, newest first.
	ListBuilds(ctx context.Context, limit int) ([]domain.BuildReport, error)

	// BuildDocuments returns the documents indexed by a build.
	// Content is not stored, so it is empty.
	BuildDocuments(ctx context.Context, buildID string) ([]domain.Document, error)
}

// ArtifactWriter exports a finished build for inspection.
type ArtifactWriter interface {
	// Write persists chunk text and metadata for a build.
	Write(ctx context.Context, report *domain.BuildReport, docs []domain.Document, chunks []domain.Chunk) error
}

// QueryLog records one audit entry per answered query.
type QueryLog interface {
	// Record appends an entry.
	Record(ctx context.Context, entry *domain.QueryLogEntry) error

	// Recent returns up to limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]domain.QueryLogEntry, error)
}
