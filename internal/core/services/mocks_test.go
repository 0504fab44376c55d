package services

import (
	"context"
	"errors"
	"io"

	"github.com/halcyon-labs/ragchat/internal/core/domain"
)

// mockEmbedder is a configurable Embedder for tests.
type mockEmbedder struct {
	embedFunc      func(ctx context.Context, text string) ([]float32, error)
	embedBatchFunc func(ctx context.Context, texts []string) ([][]float32, error)
	dimensions     int
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if m.embedFunc != nil {
		return m.embedFunc(ctx, text)
	}
	return []float32{1, 0}, nil
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if m.embedBatchFunc != nil {
		return m.embedBatchFunc(ctx, texts)
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{1, 0}
	}
	return vectors, nil
}

func (m *mockEmbedder) Dimensions() int {
	if m.dimensions > 0 {
		return m.dimensions
	}
	return 2
}

func (m *mockEmbedder) ModelName() string            { return "mock-embed" }
func (m *mockEmbedder) Ping(_ context.Context) error { return nil }
func (m *mockEmbedder) Close() error                 { return nil }

// mockGenerator is a configurable Generator for tests.
type mockGenerator struct {
	generateFunc func(ctx context.Context, prompt string) (string, error)
	streamFunc   func(ctx context.Context, prompt string) (domain.TokenStream, error)
	lastPrompt   string
}

func (m *mockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	m.lastPrompt = prompt
	if m.generateFunc != nil {
		return m.generateFunc(ctx, prompt)
	}
	return "generated answer", nil
}

func (m *mockGenerator) GenerateStream(ctx context.Context, prompt string) (domain.TokenStream, error) {
	m.lastPrompt = prompt
	if m.streamFunc != nil {
		return m.streamFunc(ctx, prompt)
	}
	return &sliceStream{fragments: []string{"generated ", "answer"}}, nil
}

func (m *mockGenerator) ModelName() string            { return "mock-gen" }
func (m *mockGenerator) Ping(_ context.Context) error { return nil }
func (m *mockGenerator) Close() error                 { return nil }

// mockStore is a configurable VectorStore for tests.
type mockStore struct {
	ensureFunc func(ctx context.Context, name string, dimension int, metric string) error
	upsertFunc func(ctx context.Context, collection string, records []domain.VectorRecord) (domain.UpsertStats, error)
	queryFunc  func(ctx context.Context, collection string, vector []float32, topK int, minSimilarity float64) ([]domain.RetrievalMatch, error)

	ensured  []string
	upserted []domain.VectorRecord
}

func (m *mockStore) EnsureCollection(ctx context.Context, name string, dimension int, metric string) error {
	m.ensured = append(m.ensured, name)
	if m.ensureFunc != nil {
		return m.ensureFunc(ctx, name, dimension, metric)
	}
	return nil
}

func (m *mockStore) Upsert(ctx context.Context, collection string, records []domain.VectorRecord) (domain.UpsertStats, error) {
	m.upserted = append(m.upserted, records...)
	if m.upsertFunc != nil {
		return m.upsertFunc(ctx, collection, records)
	}
	return domain.UpsertStats{Records: len(records), Upserted: len(records), Batches: 1}, nil
}

func (m *mockStore) Query(ctx context.Context, collection string, vector []float32, topK int, minSimilarity float64) ([]domain.RetrievalMatch, error) {
	if m.queryFunc != nil {
		return m.queryFunc(ctx, collection, vector, topK, minSimilarity)
	}
	return nil, nil
}

func (m *mockStore) ListCollections(_ context.Context) ([]string, error) { return nil, nil }
func (m *mockStore) DeleteCollection(_ context.Context, _ string) error  { return nil }
func (m *mockStore) Close() error                                        { return nil }

// sliceStream yields fixed fragments, optionally failing after some.
type sliceStream struct {
	fragments []string
	failAfter int
	failErr   error
	pos       int
	closed    bool
}

func (s *sliceStream) Recv() (string, error) {
	if s.failErr != nil && s.pos >= s.failAfter {
		return "", s.failErr
	}
	if s.pos >= len(s.fragments) {
		return "", io.EOF
	}
	frag := s.fragments[s.pos]
	s.pos++
	return frag, nil
}

func (s *sliceStream) Close() error {
	s.closed = true
	return nil
}

var errBoom = errors.New("boom")
