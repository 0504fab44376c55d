// Package ollama provides a generation service adapter using Ollama.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/halcyon-labs/ragchat/internal/core/domain"
	"github.com/halcyon-labs/ragchat/internal/core/ports/driven"
	"github.com/halcyon-labs/ragchat/internal/logger"
)

// Ensure Generator implements the interface.
var _ driven.Generator = (*Generator)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "mistral"
	DefaultTimeout = 120 * time.Second
)

// maxFragmentSize bounds a single NDJSON line from the endpoint.
const maxFragmentSize = 1 << 20

// Config holds configuration for the Ollama generator.
type Config struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the generation model to use (default: mistral).
	Model string

	// Timeout is the request timeout for complete generations
	// (default: 120s). Streaming requests are bounded by the caller's
	// context instead, since a fixed client timeout would sever
	// long-running streams.
	Timeout time.Duration
}

// Generator produces completions using Ollama.
type Generator struct {
	client       *http.Client
	streamClient *http.Client
	baseURL      string
	model        string
}

// generateRequest is the Ollama /api/generate request format.
type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// generateResponse is one Ollama /api/generate response object. In
// streaming mode each NDJSON line is one of these.
type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// NewGenerator creates a new Ollama generator.
func NewGenerator(cfg Config) *Generator {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Generator{
		client:       &http.Client{Timeout: cfg.Timeout},
		streamClient: &http.Client{},
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		model:        cfg.Model,
	}
}

// Generate produces a complete response for the prompt.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.post(ctx, g.client, generateRequest{
		Model:  g.model,
		Prompt: prompt,
		Stream: false,
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("%w: decode response: %w", domain.ErrGenerationFailed, err)
	}
	return genResp.Response, nil
}

// GenerateStream opens a streaming generation. The returned stream is
// single-pass: the caller must drain it or call Close so the
// connection is released.
func (g *Generator) GenerateStream(ctx context.Context, prompt string) (domain.TokenStream, error) {
	resp, err := g.post(ctx, g.streamClient, generateRequest{
		Model:  g.model,
		Prompt: prompt,
		Stream: true,
	})
	if err != nil {
		return nil, err
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), maxFragmentSize)

	return &tokenStream{body: resp.Body, scanner: scanner}, nil
}

func (g *Generator) post(ctx context.Context, client *http.Client, body generateRequest) (*http.Response, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		g.baseURL+"/api/generate",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrGenerationFailed, err)
	}

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &domain.UpstreamError{
			Op:     domain.ErrGenerationFailed,
			Status: resp.StatusCode,
			Body:   string(data),
		}
	}
	return resp, nil
}

// ModelName returns the name of the generation model being used.
func (g *Generator) ModelName() string {
	return g.model
}

// Ping validates the service is reachable by checking the /api/tags
// endpoint.
func (g *Generator) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return fmt.Errorf("ollama: failed to create ping request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama: ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("ollama: API returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// Close releases resources.
func (g *Generator) Close() error {
	return nil
}

// tokenStream reads NDJSON fragments off a live response body. It is
// not safe for concurrent use; the pipeline hands one stream to one
// consumer.
type tokenStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	once    sync.Once
	done    bool
}

// Recv returns the next text fragment. Malformed lines are skipped and
// logged rather than aborting the stream. io.EOF marks the end.
func (s *tokenStream) Recv() (string, error) {
	if s.done {
		return "", io.EOF
	}

	for s.scanner.Scan() {
		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var frag generateResponse
		if err := json.Unmarshal(line, &frag); err != nil {
			logger.Warn("skipping malformed stream fragment: %v", err)
			continue
		}

		if frag.Done {
			s.finish()
			if frag.Response != "" {
				return frag.Response, nil
			}
			return "", io.EOF
		}
		if frag.Response != "" {
			return frag.Response, nil
		}
	}

	if err := s.scanner.Err(); err != nil {
		s.finish()
		return "", fmt.Errorf("%w: read stream: %w", domain.ErrGenerationFailed, err)
	}
	s.finish()
	return "", io.EOF
}

// Close releases the underlying connection. Safe to call multiple
// times and on every exit path.
func (s *tokenStream) Close() error {
	var err error
	s.once.Do(func() {
		err = s.body.Close()
	})
	s.done = true
	return err
}

func (s *tokenStream) finish() {
	s.done = true
	s.once.Do(func() {
		s.body.Close()
	})
}
