package services

import (
	"context"
	"fmt"

	"github.com/halcyon-labs/ragchat/internal/core/domain"
	"github.com/halcyon-labs/ragchat/internal/core/ports/driven"
	"github.com/halcyon-labs/ragchat/internal/logger"
)

// Default retrieval parameters, applied when the caller passes zero
// values.
const (
	DefaultTopK          = 3
	DefaultMinSimilarity = 0.7
)

// Retriever finds the passages most similar to a query.
type Retriever struct {
	embedder driven.Embedder
	store    driven.VectorStore
}

// NewRetriever creates a retriever over the given embedder and store.
func NewRetriever(embedder driven.Embedder, store driven.VectorStore) *Retriever {
	return &Retriever{embedder: embedder, store: store}
}

// Retrieve embeds the query and returns up to topK matches at or above
// minSimilarity, ordered by descending similarity. topK <= 0 and
// minSimilarity <= 0 fall back to the defaults.
func (r *Retriever) Retrieve(ctx context.Context, collection, query string, topK int, minSimilarity float64) ([]domain.RetrievalMatch, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if minSimilarity <= 0 {
		minSimilarity = DefaultMinSimilarity
	}

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	matches, err := r.store.Query(ctx, collection, vector, topK, minSimilarity)
	if err != nil {
		return nil, fmt.Errorf("query store: %w", err)
	}

	logger.Debug("retrieved %d matches from %q (topK=%d, minSimilarity=%.2f)",
		len(matches), collection, topK, minSimilarity)
	return matches, nil
}
