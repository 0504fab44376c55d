package cli

import (
	"context"
	"io"

	"github.com/halcyon-labs/ragchat/internal/adapters/driven/vector/memory"
	"github.com/halcyon-labs/ragchat/internal/core/domain"
)

// fakePipeline is a canned driving.Pipeline for command tests.
type fakePipeline struct {
	answer  string
	matches []domain.RetrievalMatch
	stats   domain.IngestStats
	err     error

	lastCollection string
	lastQuestion   string
	ingestedDocs   []domain.Document
}

func (f *fakePipeline) Ingest(_ context.Context, collection string, docs []domain.Document) (domain.IngestStats, error) {
	f.lastCollection = collection
	f.ingestedDocs = append(f.ingestedDocs, docs...)
	if f.err != nil {
		return domain.IngestStats{}, f.err
	}
	if f.stats == (domain.IngestStats{}) {
		return domain.IngestStats{Documents: len(docs), Chunks: len(docs), Upserted: len(docs)}, nil
	}
	return f.stats, nil
}

func (f *fakePipeline) Retrieve(_ context.Context, collection, query string, _ int, _ float64) ([]domain.RetrievalMatch, error) {
	f.lastCollection = collection
	f.lastQuestion = query
	return f.matches, f.err
}

func (f *fakePipeline) Answer(_ context.Context, collection, question string) (string, error) {
	f.lastCollection = collection
	f.lastQuestion = question
	return f.answer, f.err
}

func (f *fakePipeline) AnswerStream(_ context.Context, collection, question string) (domain.TokenStream, error) {
	f.lastCollection = collection
	f.lastQuestion = question
	if f.err != nil {
		return nil, f.err
	}
	return &cannedStream{text: f.answer}, nil
}

type cannedStream struct {
	text string
	sent bool
}

func (s *cannedStream) Recv() (string, error) {
	if s.sent {
		return "", io.EOF
	}
	s.sent = true
	return s.text, nil
}

func (s *cannedStream) Close() error { return nil }

// setupTestServices wires fake services into the package globals and
// returns a cleanup restoring the previous state.
func setupTestServices(p *fakePipeline) func() {
	prevPipeline := pipelineService
	prevStore := vectorStore
	prevCfg := cfg

	pipelineService = p
	vectorStore = memory.NewStore()

	return func() {
		pipelineService = prevPipeline
		vectorStore = prevStore
		cfg = prevCfg
	}
}
