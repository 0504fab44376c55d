package domain

// RetrievalMatch is one similarity search hit. Matches are ephemeral:
// produced per query, used for prompt assembly, then discarded.
type RetrievalMatch struct {
	// ID is the matched record's identifier.
	ID string

	// Content is the stored chunk text.
	Content string

	// Metadata is the stored record metadata.
	Metadata map[string]any

	// Similarity is the normalised score in [0,1], 1 being most similar.
	Similarity float64
}

// UpsertStats reports the outcome of a batched upsert. A partial
// failure is not rolled back; FailedBatches identifies which batches
// did not make it so the caller can decide what to do.
type UpsertStats struct {
	// Records is the number of records submitted.
	Records int

	// Upserted is the number of records confirmed written.
	Upserted int

	// Batches is the total number of batches sent.
	Batches int

	// FailedBatches holds the zero-based indices of failed batches.
	FailedBatches []int
}

// IngestStats reports the outcome of a pipeline ingestion run.
type IngestStats struct {
	// Documents is the number of documents processed.
	Documents int

	// Chunks is the number of chunks produced across all documents.
	Chunks int

	// Upserted is the number of vector records confirmed written.
	Upserted int

	// FailedBatches is the number of upsert batches that failed.
	FailedBatches int
}

// TokenStream is a single-pass, cancellable sequence of generated text
// fragments. Recv blocks until the next fragment is available and
// returns io.EOF once the stream is exhausted. The consumer must either
// drain the stream or call Close; Close releases the underlying
// connection, is safe on every exit path and may be called more than
// once.
type TokenStream interface {
	Recv() (string, error)
	Close() error
}
