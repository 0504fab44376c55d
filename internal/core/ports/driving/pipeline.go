// Package driving provides interfaces for application entry points
// (primary/inbound ports).
package driving

import (
	"context"

	"github.com/halcyon-labs/ragchat/internal/core/domain"
)

// Pipeline wires ingestion (chunk, embed, upsert) and query (retrieve,
// prompt, generate) end to end for one collection at a time. The
// collection name is an opaque scope supplied by the caller (derived
// from a chat/session identifier); the pipeline knows nothing about
// users, chat history or sessions.
type Pipeline interface {
	// Ingest chunks, embeds and upserts the documents into the named
	// collection, creating it on first use. Safe to call repeatedly:
	// creation is idempotent and re-ingestion appends fresh records
	// (duplicate content across re-ingestions is accepted, not
	// deduplicated).
	Ingest(ctx context.Context, collection string, docs []domain.Document) (domain.IngestStats, error)

	// Retrieve embeds the query and returns the most similar chunks.
	// Errors propagate unchanged; this is the tooling path with no
	// best-effort fallback. Zero topK and minSimilarity select the
	// configured defaults.
	Retrieve(ctx context.Context, collection, query string, topK int, minSimilarity float64) ([]domain.RetrievalMatch, error)

	// Answer retrieves context for the question and generates a
	// complete reply. Best-effort chat mode: failures degrade to fixed
	// fallback text instead of surfacing raw errors to the end user.
	Answer(ctx context.Context, collection, question string) (string, error)

	// AnswerStream is Answer with incremental output. A terminal
	// failure mid-stream is delivered as a final fragment before the
	// stream closes.
	AnswerStream(ctx context.Context, collection, question string) (domain.TokenStream, error)
}
