// Package memory provides an in-memory vector store for development
// and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/halcyon-labs/ragchat/internal/adapters/driven/vector"
	"github.com/halcyon-labs/ragchat/internal/core/domain"
	"github.com/halcyon-labs/ragchat/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// collection holds the fixed parameters and the records of one
// namespace. Records keep insertion order so similarity ties break
// stably.
type collection struct {
	dimension int
	metric    string
	order     []string
	records   map[string]domain.VectorRecord
}

// Store is an in-memory implementation of driven.VectorStore.
type Store struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

// NewStore creates a new in-memory vector store.
func NewStore() *Store {
	return &Store{
		collections: make(map[string]*collection),
	}
}

// EnsureCollection creates the collection if absent. Identical repeat
// calls are no-ops; a different dimension fails with
// domain.ErrDimensionConflict.
func (s *Store) EnsureCollection(_ context.Context, name string, dimension int, metric string) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.collections[name]; ok {
		if existing.dimension != dimension {
			return fmt.Errorf("%w: collection %q has dimension %d, want %d",
				domain.ErrDimensionConflict, name, existing.dimension, dimension)
		}
		return nil
	}

	s.collections[name] = &collection{
		dimension: dimension,
		metric:    metric,
		records:   make(map[string]domain.VectorRecord),
	}
	return nil
}

// Upsert inserts or replaces records by id.
func (s *Store) Upsert(_ context.Context, name string, records []domain.VectorRecord) (domain.UpsertStats, error) {
	stats := domain.UpsertStats{Records: len(records)}
	if len(records) == 0 {
		return stats, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	coll, ok := s.collections[name]
	if !ok {
		return stats, fmt.Errorf("%w: %q", domain.ErrCollectionNotFound, name)
	}

	stats.Batches = 1
	for _, rec := range records {
		if len(rec.Vector) != coll.dimension {
			stats.FailedBatches = []int{0}
			return stats, fmt.Errorf("%w: record %q has dimension %d, collection %q wants %d",
				domain.ErrDimensionConflict, rec.ID, len(rec.Vector), name, coll.dimension)
		}
	}

	for _, rec := range records {
		if _, exists := coll.records[rec.ID]; !exists {
			coll.order = append(coll.order, rec.ID)
		}
		coll.records[rec.ID] = rec
	}
	stats.Upserted = len(records)
	return stats, nil
}

// Query returns up to topK matches with similarity >= minSimilarity,
// descending, ties stable by insertion order.
func (s *Store) Query(_ context.Context, name string, queryVector []float32, topK int, minSimilarity float64) ([]domain.RetrievalMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	coll, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrCollectionNotFound, name)
	}
	if len(queryVector) != coll.dimension {
		return nil, fmt.Errorf("%w: query vector has dimension %d, collection %q wants %d",
			domain.ErrDimensionConflict, len(queryVector), name, coll.dimension)
	}
	if topK <= 0 {
		return []domain.RetrievalMatch{}, nil
	}

	matches := make([]domain.RetrievalMatch, 0, len(coll.order))
	for _, id := range coll.order {
		rec := coll.records[id]
		sim := vector.Cosine(queryVector, rec.Vector)
		if sim < minSimilarity {
			continue
		}
		matches = append(matches, domain.RetrievalMatch{
			ID:         rec.ID,
			Content:    rec.Content,
			Metadata:   rec.Metadata,
			Similarity: sim,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})

	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// ListCollections returns the names of existing collections.
func (s *Store) ListCollections(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// DeleteCollection removes a collection and its records.
func (s *Store) DeleteCollection(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[name]; !ok {
		return fmt.Errorf("%w: %q", domain.ErrCollectionNotFound, name)
	}
	delete(s.collections, name)
	return nil
}

// Close releases resources.
func (s *Store) Close() error {
	return nil
}
