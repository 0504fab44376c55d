// Package services implements the core pipeline logic, independent of
// any concrete adapter.
package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/halcyon-labs/ragchat/internal/core/domain"
	"github.com/halcyon-labs/ragchat/internal/core/ports/driven"
	"github.com/halcyon-labs/ragchat/internal/core/ports/driving"
	"github.com/halcyon-labs/ragchat/internal/logger"
	"github.com/halcyon-labs/ragchat/internal/splitter"
)

// Ensure PipelineService implements the interface.
var _ driving.Pipeline = (*PipelineService)(nil)

// Config holds the tunables of the pipeline.
type Config struct {
	// TopK is the number of passages retrieved per question
	// (default: 3).
	TopK int

	// MinSimilarity is the similarity floor for retrieved passages
	// (default: 0.7).
	MinSimilarity float64
}

// PipelineService orchestrates ingestion, retrieval and answer
// generation over the configured adapters.
type PipelineService struct {
	embedder  driven.Embedder
	generator driven.Generator
	store     driven.VectorStore
	splitter  *splitter.Splitter
	retriever *Retriever
	topK      int
	minSim    float64
}

// NewPipelineService creates a pipeline over the given adapters.
func NewPipelineService(embedder driven.Embedder, generator driven.Generator, store driven.VectorStore, split *splitter.Splitter, cfg Config) *PipelineService {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.MinSimilarity <= 0 {
		cfg.MinSimilarity = DefaultMinSimilarity
	}
	if split == nil {
		split = splitter.New()
	}

	return &PipelineService{
		embedder:  embedder,
		generator: generator,
		store:     store,
		splitter:  split,
		retriever: NewRetriever(embedder, store),
		topK:      cfg.TopK,
		minSim:    cfg.MinSimilarity,
	}
}

// Ingest splits, embeds and stores the documents in the named
// collection, creating the collection if needed. Stats report partial
// progress even when an error is returned.
func (p *PipelineService) Ingest(ctx context.Context, collection string, docs []domain.Document) (domain.IngestStats, error) {
	stats := domain.IngestStats{}

	err := p.store.EnsureCollection(ctx, collection, p.embedder.Dimensions(), domain.MetricCosine)
	if err != nil {
		return stats, fmt.Errorf("ensure collection %q: %w", collection, err)
	}

	for _, doc := range docs {
		chunks := p.splitter.SplitDocument(doc)
		if len(chunks) == 0 {
			logger.Debug("document %q produced no chunks, skipping", doc.Source)
			stats.Documents++
			continue
		}

		texts := make([]string, len(chunks))
		for i, chunk := range chunks {
			texts[i] = chunk.Content
		}

		vectors, err := p.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return stats, fmt.Errorf("embed document %q: %w", doc.Source, err)
		}
		if len(vectors) != len(chunks) {
			return stats, fmt.Errorf("embed document %q: got %d vectors for %d chunks", doc.Source, len(vectors), len(chunks))
		}

		now := time.Now()
		records := make([]domain.VectorRecord, len(chunks))
		for i, chunk := range chunks {
			records[i] = domain.VectorRecord{
				ID:        fmt.Sprintf("%s_%d_%d", doc.Source, chunk.Index, now.UnixMilli()),
				Vector:    vectors[i],
				Content:   chunk.Content,
				Metadata:  chunk.Metadata,
				CreatedAt: now,
			}
		}

		upsert, err := p.store.Upsert(ctx, collection, records)
		stats.Documents++
		stats.Chunks += len(chunks)
		stats.Upserted += upsert.Upserted
		stats.FailedBatches += len(upsert.FailedBatches)
		if err != nil {
			return stats, fmt.Errorf("upsert document %q: %w", doc.Source, err)
		}

		logger.Debug("ingested %q: %d chunks", doc.Source, len(chunks))
	}

	return stats, nil
}

// Retrieve returns the passages most similar to the query. Zero topK
// or minSimilarity fall back to the pipeline's configured values.
func (p *PipelineService) Retrieve(ctx context.Context, collection, query string, topK int, minSimilarity float64) ([]domain.RetrievalMatch, error) {
	if topK <= 0 {
		topK = p.topK
	}
	if minSimilarity <= 0 {
		minSimilarity = p.minSim
	}
	return p.retriever.Retrieve(ctx, collection, query, topK, minSimilarity)
}

// Answer produces a complete grounded answer to the question.
// Retrieval and generation failures degrade to canned answers rather
// than surfacing as errors, so a chat session keeps working when the
// index or model misbehaves.
func (p *PipelineService) Answer(ctx context.Context, collection, question string) (string, error) {
	matches, err := p.retriever.Retrieve(ctx, collection, question, p.topK, p.minSim)
	if err != nil {
		logger.Warn("retrieval failed, answering without context: %v", err)
		matches = nil
	}
	if len(matches) == 0 {
		return NoContextAnswer, nil
	}

	answer, err := p.generator.Generate(ctx, BuildPrompt(matches, question))
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		logger.Warn("generation failed: %v", err)
		return ErrorAnswer, nil
	}
	return answer, nil
}

// AnswerStream is the streaming variant of Answer. Fallback answers
// are delivered as single-fragment streams so callers handle one
// shape.
func (p *PipelineService) AnswerStream(ctx context.Context, collection, question string) (domain.TokenStream, error) {
	matches, err := p.retriever.Retrieve(ctx, collection, question, p.topK, p.minSim)
	if err != nil {
		logger.Warn("retrieval failed, answering without context: %v", err)
		matches = nil
	}
	if len(matches) == 0 {
		return newStaticStream(NoContextAnswer), nil
	}

	stream, err := p.generator.GenerateStream(ctx, BuildPrompt(matches, question))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.Warn("generation failed: %v", err)
		return newStaticStream(ErrorAnswer), nil
	}
	return &answerStream{inner: stream}, nil
}

// staticStream yields a fixed text once, then EOF.
type staticStream struct {
	text string
	sent bool
}

func newStaticStream(text string) *staticStream {
	return &staticStream{text: text}
}

func (s *staticStream) Recv() (string, error) {
	if s.sent {
		return "", io.EOF
	}
	s.sent = true
	return s.text, nil
}

func (s *staticStream) Close() error {
	s.sent = true
	return nil
}

// answerStream wraps a generator stream and converts a mid-stream
// failure into a terminal apology fragment, mirroring Answer's
// degradation.
type answerStream struct {
	inner  domain.TokenStream
	failed bool
	done   bool
}

func (s *answerStream) Recv() (string, error) {
	if s.done || s.failed {
		return "", io.EOF
	}

	frag, err := s.inner.Recv()
	if err == io.EOF {
		s.done = true
		return "", io.EOF
	}
	if err != nil {
		logger.Warn("stream failed: %v", err)
		s.failed = true
		s.inner.Close()
		return ErrorAnswer, nil
	}
	return frag, nil
}

func (s *answerStream) Close() error {
	s.done = true
	return s.inner.Close()
}
