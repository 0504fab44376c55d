package driven

import "context"

// Embedder generates fixed-dimension vector embeddings from text.
//
// Empty or whitespace-only input is rejected with domain.ErrInvalidInput
// rather than embedded as a zero vector; that choice is uniform across
// implementations. Endpoint failures surface as domain.UpstreamError
// wrapping domain.ErrEmbeddingFailed and are not retried locally.
type Embedder interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts. When the
	// endpoint has no native batch form this is concurrent per-item
	// calls with bounded fan-out; results are ordered by input index,
	// not completion order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (model-dependent,
	// e.g. 4096 for mistral). It must match the collection dimension.
	Dimensions() int

	// ModelName returns the name of the embedding model in use.
	ModelName() string

	// Ping validates the endpoint is reachable without running
	// inference.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
