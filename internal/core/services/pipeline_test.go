package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyon-labs/ragchat/internal/core/domain"
)

func newTestPipeline(embedder *mockEmbedder, generator *mockGenerator, store *mockStore) *PipelineService {
	if embedder == nil {
		embedder = &mockEmbedder{}
	}
	if generator == nil {
		generator = &mockGenerator{}
	}
	if store == nil {
		store = &mockStore{}
	}
	return NewPipelineService(embedder, generator, store, nil, Config{})
}

func collect(t *testing.T, stream domain.TokenStream) string {
	t.Helper()

	var sb strings.Builder
	for {
		frag, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		sb.WriteString(frag)
	}
	return sb.String()
}

func TestPipeline_Ingest(t *testing.T) {
	store := &mockStore{}
	p := newTestPipeline(nil, nil, store)

	docs := []domain.Document{
		{ID: "1", Source: "a.txt", Content: "alpha content"},
		{ID: "2", Source: "b.txt", Content: "beta content"},
	}

	stats, err := p.Ingest(context.Background(), "docs", docs)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Documents)
	assert.Equal(t, 2, stats.Chunks)
	assert.Equal(t, 2, stats.Upserted)
	assert.Zero(t, stats.FailedBatches)

	assert.Equal(t, []string{"docs"}, store.ensured)
	require.Len(t, store.upserted, 2)
	assert.True(t, strings.HasPrefix(store.upserted[0].ID, "a.txt_0_"))
	assert.Equal(t, "alpha content", store.upserted[0].Content)
}

func TestPipeline_IngestEmptyDocument(t *testing.T) {
	store := &mockStore{}
	p := newTestPipeline(nil, nil, store)

	stats, err := p.Ingest(context.Background(), "docs", []domain.Document{
		{ID: "1", Source: "empty.txt", Content: "   "},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Documents)
	assert.Zero(t, stats.Chunks)
	assert.Empty(t, store.upserted)
}

func TestPipeline_IngestEnsureError(t *testing.T) {
	store := &mockStore{
		ensureFunc: func(_ context.Context, _ string, _ int, _ string) error {
			return domain.ErrDimensionConflict
		},
	}
	p := newTestPipeline(nil, nil, store)

	_, err := p.Ingest(context.Background(), "docs", []domain.Document{
		{Source: "a.txt", Content: "alpha"},
	})
	assert.ErrorIs(t, err, domain.ErrDimensionConflict)
}

func TestPipeline_IngestEmbedError(t *testing.T) {
	embedder := &mockEmbedder{
		embedBatchFunc: func(_ context.Context, _ []string) ([][]float32, error) {
			return nil, errBoom
		},
	}
	p := newTestPipeline(embedder, nil, &mockStore{})

	stats, err := p.Ingest(context.Background(), "docs", []domain.Document{
		{Source: "a.txt", Content: "alpha"},
	})
	assert.ErrorIs(t, err, errBoom)
	assert.Zero(t, stats.Chunks)
}

func TestPipeline_Answer(t *testing.T) {
	store := &mockStore{
		queryFunc: func(_ context.Context, _ string, _ []float32, _ int, _ float64) ([]domain.RetrievalMatch, error) {
			return []domain.RetrievalMatch{{Content: "context passage", Similarity: 0.9}}, nil
		},
	}
	generator := &mockGenerator{}
	p := newTestPipeline(nil, generator, store)

	answer, err := p.Answer(context.Background(), "docs", "what?")
	require.NoError(t, err)
	assert.Equal(t, "generated answer", answer)

	assert.Contains(t, generator.lastPrompt, "context passage")
	assert.Contains(t, generator.lastPrompt, "Question: what?")
	assert.True(t, strings.HasSuffix(generator.lastPrompt, "Answer:"))
}

func TestPipeline_AnswerNoMatches(t *testing.T) {
	generator := &mockGenerator{}
	p := newTestPipeline(nil, generator, &mockStore{})

	answer, err := p.Answer(context.Background(), "docs", "what?")
	require.NoError(t, err)
	assert.Equal(t, NoContextAnswer, answer)
	assert.Empty(t, generator.lastPrompt)
}

func TestPipeline_AnswerRetrievalError(t *testing.T) {
	store := &mockStore{
		queryFunc: func(_ context.Context, _ string, _ []float32, _ int, _ float64) ([]domain.RetrievalMatch, error) {
			return nil, errBoom
		},
	}
	p := newTestPipeline(nil, nil, store)

	answer, err := p.Answer(context.Background(), "docs", "what?")
	require.NoError(t, err)
	assert.Equal(t, NoContextAnswer, answer)
}

func TestPipeline_AnswerGenerationError(t *testing.T) {
	store := &mockStore{
		queryFunc: func(_ context.Context, _ string, _ []float32, _ int, _ float64) ([]domain.RetrievalMatch, error) {
			return []domain.RetrievalMatch{{Content: "ctx"}}, nil
		},
	}
	generator := &mockGenerator{
		generateFunc: func(_ context.Context, _ string) (string, error) {
			return "", errBoom
		},
	}
	p := newTestPipeline(nil, generator, store)

	answer, err := p.Answer(context.Background(), "docs", "what?")
	require.NoError(t, err)
	assert.Equal(t, ErrorAnswer, answer)
}

func TestPipeline_AnswerContextCancelled(t *testing.T) {
	store := &mockStore{
		queryFunc: func(_ context.Context, _ string, _ []float32, _ int, _ float64) ([]domain.RetrievalMatch, error) {
			return []domain.RetrievalMatch{{Content: "ctx"}}, nil
		},
	}
	generator := &mockGenerator{
		generateFunc: func(ctx context.Context, _ string) (string, error) {
			return "", ctx.Err()
		},
	}
	p := newTestPipeline(nil, generator, store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Answer(ctx, "docs", "what?")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPipeline_AnswerStream(t *testing.T) {
	store := &mockStore{
		queryFunc: func(_ context.Context, _ string, _ []float32, _ int, _ float64) ([]domain.RetrievalMatch, error) {
			return []domain.RetrievalMatch{{Content: "ctx"}}, nil
		},
	}
	p := newTestPipeline(nil, &mockGenerator{}, store)

	stream, err := p.AnswerStream(context.Background(), "docs", "what?")
	require.NoError(t, err)
	defer stream.Close()

	assert.Equal(t, "generated answer", collect(t, stream))
}

func TestPipeline_AnswerStreamNoMatches(t *testing.T) {
	p := newTestPipeline(nil, nil, &mockStore{})

	stream, err := p.AnswerStream(context.Background(), "docs", "what?")
	require.NoError(t, err)
	defer stream.Close()

	assert.Equal(t, NoContextAnswer, collect(t, stream))

	_, err = stream.Recv()
	assert.ErrorIs(t, err, io.EOF)
}

func TestPipeline_AnswerStreamMidStreamFailure(t *testing.T) {
	store := &mockStore{
		queryFunc: func(_ context.Context, _ string, _ []float32, _ int, _ float64) ([]domain.RetrievalMatch, error) {
			return []domain.RetrievalMatch{{Content: "ctx"}}, nil
		},
	}
	inner := &sliceStream{fragments: []string{"partial "}, failAfter: 1, failErr: errBoom}
	generator := &mockGenerator{
		streamFunc: func(_ context.Context, _ string) (domain.TokenStream, error) {
			return inner, nil
		},
	}
	p := newTestPipeline(nil, generator, store)

	stream, err := p.AnswerStream(context.Background(), "docs", "what?")
	require.NoError(t, err)

	frag, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, "partial ", frag)

	frag, err = stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, ErrorAnswer, frag)

	_, err = stream.Recv()
	assert.ErrorIs(t, err, io.EOF)
	assert.True(t, inner.closed)
}

func TestPipeline_AnswerStreamOpenError(t *testing.T) {
	store := &mockStore{
		queryFunc: func(_ context.Context, _ string, _ []float32, _ int, _ float64) ([]domain.RetrievalMatch, error) {
			return []domain.RetrievalMatch{{Content: "ctx"}}, nil
		},
	}
	generator := &mockGenerator{
		streamFunc: func(_ context.Context, _ string) (domain.TokenStream, error) {
			return nil, errBoom
		},
	}
	p := newTestPipeline(nil, generator, store)

	stream, err := p.AnswerStream(context.Background(), "docs", "what?")
	require.NoError(t, err)
	defer stream.Close()

	assert.Equal(t, ErrorAnswer, collect(t, stream))
}

func TestPipeline_RetrieveUsesConfiguredDefaults(t *testing.T) {
	store := &mockStore{
		queryFunc: func(_ context.Context, _ string, _ []float32, topK int, minSimilarity float64) ([]domain.RetrievalMatch, error) {
			assert.Equal(t, 7, topK)
			assert.Equal(t, 0.4, minSimilarity)
			return nil, nil
		},
	}
	p := NewPipelineService(&mockEmbedder{}, &mockGenerator{}, store, nil, Config{TopK: 7, MinSimilarity: 0.4})

	_, err := p.Retrieve(context.Background(), "docs", "q", 0, 0)
	require.NoError(t, err)
}
