package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent pipeline failures. Adapters convert
// transport-level problems into these at the component boundary.
var (
	// ErrEmbeddingFailed indicates the embedding endpoint was
	// unreachable or returned an error. Not retried locally.
	ErrEmbeddingFailed = errors.New("embedding failed")

	// ErrGenerationFailed indicates the generation endpoint failed or
	// returned a malformed response.
	ErrGenerationFailed = errors.New("generation failed")

	// ErrDimensionConflict indicates an ingestion attempt against a
	// collection with a different vector dimensionality. Fatal for the
	// affected batch.
	ErrDimensionConflict = errors.New("vector dimension conflict")

	// ErrIndexNotReady indicates collection creation did not become
	// queryable within the configured wait. The caller may retry later.
	ErrIndexNotReady = errors.New("index not ready")

	// ErrCollectionNotFound indicates a query or delete against a
	// collection that does not exist.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrInvalidInput indicates malformed or empty input, such as an
	// empty embedding prompt.
	ErrInvalidInput = errors.New("invalid input")
)

// UpstreamError carries the HTTP status returned by a model-serving
// endpoint. It unwraps to the sentinel matching the failed operation so
// callers can test with errors.Is while still reading the status.
type UpstreamError struct {
	// Op sentinel, ErrEmbeddingFailed or ErrGenerationFailed.
	Op error

	// Status is the upstream HTTP status code.
	Status int

	// Body is the upstream response body, truncated for logging.
	Body string
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%v: status %d: %s", e.Op, e.Status, e.Body)
}

// Unwrap returns the operation sentinel.
func (e *UpstreamError) Unwrap() error {
	return e.Op
}
