package domain

import "time"

// Document is a unit of ingested source content. Documents are created
// by a loader (or supplied directly by the caller), chunked once, and
// never mutated afterwards; re-ingestion supersedes rather than updates.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// Source is the stable origin identifier (file path or name).
	// Vector record ids are derived from it.
	Source string

	// Content is the full raw text of the document.
	Content string

	// Metadata contains arbitrary key-value pairs (origin, page, flags).
	Metadata map[string]any
}

// Chunk is a bounded slice of a document's text produced by the
// splitter. Chunks are embedded once and then persisted as vector
// records; they are never updated in place.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// Source is the parent document's source identifier.
	Source string

	// Index is the ordinal position within the parent document.
	Index int

	// Content is the text content of this chunk.
	Content string

	// Metadata is inherited from the parent document.
	Metadata map[string]any
}

// VectorRecord is the persisted unit in a vector store: an embedded
// chunk together with its display text and metadata. Records are owned
// by the store; callers only upsert by id or delete by collection.
type VectorRecord struct {
	// ID uniquely identifies the record within its collection.
	// Upserting an existing id replaces the record (last write wins).
	ID string

	// Vector is the embedding. All vectors in one collection share the
	// same dimensionality.
	Vector []float32

	// Content is the original chunk text, stored for retrieval display.
	Content string

	// Metadata contains structured fields (source, page, flags).
	Metadata map[string]any

	// CreatedAt is when the record was built.
	CreatedAt time.Time
}

// MetricCosine is the distance metric used for all collections.
const MetricCosine = "cosine"
