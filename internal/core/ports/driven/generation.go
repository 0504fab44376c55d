package driven

import (
	"context"

	"github.com/halcyon-labs/ragchat/internal/core/domain"
)

// Generator produces language-model completions for assembled prompts.
//
// The streaming form yields fragments as they arrive from the endpoint;
// a stream is finite and not restartable, a new call produces a new
// generation. Abandoning a stream without draining it requires Close so
// the underlying connection is released within one read cycle.
type Generator interface {
	// Generate produces a complete response for the prompt.
	Generate(ctx context.Context, prompt string) (string, error)

	// GenerateStream opens a streaming generation for the prompt.
	// Malformed fragments from the endpoint are skipped, not fatal.
	GenerateStream(ctx context.Context, prompt string) (domain.TokenStream, error)

	// ModelName returns the name of the generation model in use.
	ModelName() string

	// Ping validates the endpoint is reachable without running
	// inference.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
