package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyon-labs/ragchat/internal/core/domain"
)

func TestRetriever_Retrieve(t *testing.T) {
	store := &mockStore{
		queryFunc: func(_ context.Context, collection string, vector []float32, topK int, minSimilarity float64) ([]domain.RetrievalMatch, error) {
			assert.Equal(t, "docs", collection)
			assert.Equal(t, []float32{1, 0}, vector)
			assert.Equal(t, 5, topK)
			assert.Equal(t, 0.5, minSimilarity)
			return []domain.RetrievalMatch{{Content: "match", Similarity: 0.9}}, nil
		},
	}

	r := NewRetriever(&mockEmbedder{}, store)

	matches, err := r.Retrieve(context.Background(), "docs", "query", 5, 0.5)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "match", matches[0].Content)
}

func TestRetriever_AppliesDefaults(t *testing.T) {
	store := &mockStore{
		queryFunc: func(_ context.Context, _ string, _ []float32, topK int, minSimilarity float64) ([]domain.RetrievalMatch, error) {
			assert.Equal(t, DefaultTopK, topK)
			assert.Equal(t, DefaultMinSimilarity, minSimilarity)
			return nil, nil
		},
	}

	r := NewRetriever(&mockEmbedder{}, store)

	_, err := r.Retrieve(context.Background(), "docs", "query", 0, 0)
	require.NoError(t, err)
}

func TestRetriever_EmbedError(t *testing.T) {
	embedder := &mockEmbedder{
		embedFunc: func(_ context.Context, _ string) ([]float32, error) {
			return nil, errBoom
		},
	}

	r := NewRetriever(embedder, &mockStore{})

	_, err := r.Retrieve(context.Background(), "docs", "query", 3, 0.7)
	assert.ErrorIs(t, err, errBoom)
}

func TestRetriever_QueryError(t *testing.T) {
	store := &mockStore{
		queryFunc: func(_ context.Context, _ string, _ []float32, _ int, _ float64) ([]domain.RetrievalMatch, error) {
			return nil, errBoom
		},
	}

	r := NewRetriever(&mockEmbedder{}, store)

	_, err := r.Retrieve(context.Background(), "docs", "query", 3, 0.7)
	assert.ErrorIs(t, err, errBoom)
}
