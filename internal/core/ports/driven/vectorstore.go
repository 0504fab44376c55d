package driven

import (
	"context"

	"github.com/halcyon-labs/ragchat/internal/core/domain"
)

// VectorStore persists chunk vectors with metadata and serves
// similarity queries scoped to named collections. A store client is a
// long-lived shared resource; concurrent pipeline invocations rely on
// the backend's last-write-wins upsert semantics rather than in-process
// locking.
type VectorStore interface {
	// EnsureCollection creates the collection if absent and is a no-op
	// when an identical collection already exists. A collection with a
	// different dimension fails with domain.ErrDimensionConflict.
	// Against a remote backend this blocks, within a bounded wait,
	// until the collection is queryable, or fails with
	// domain.ErrIndexNotReady.
	EnsureCollection(ctx context.Context, name string, dimension int, metric string) error

	// Upsert inserts or replaces records by id, batched internally to
	// bound request size. Partial failures are reported through the
	// returned stats and error, never rolled back silently; surviving
	// batches stay written.
	Upsert(ctx context.Context, collection string, records []domain.VectorRecord) (domain.UpsertStats, error)

	// Query returns up to topK records whose similarity meets
	// minSimilarity, ordered descending, ties stable by insertion
	// order. An empty result is valid, not an error.
	Query(ctx context.Context, collection string, vector []float32, topK int, minSimilarity float64) ([]domain.RetrievalMatch, error)

	// ListCollections returns the names of existing collections.
	ListCollections(ctx context.Context) ([]string, error)

	// DeleteCollection removes a collection and its records. Used for
	// chat/session teardown, not by the pipeline itself.
	DeleteCollection(ctx context.Context, name string) error

	// Close releases resources.
	Close() error
}
