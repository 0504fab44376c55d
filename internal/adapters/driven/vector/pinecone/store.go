// Package pinecone provides a vector store adapter for the Pinecone
// REST API. Each collection maps to one serverless index; index
// creation is asynchronous on the Pinecone side, so EnsureCollection
// polls until the index is queryable within a bounded wait.
package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/halcyon-labs/ragchat/internal/adapters/driven/vector"
	"github.com/halcyon-labs/ragchat/internal/core/domain"
	"github.com/halcyon-labs/ragchat/internal/core/ports/driven"
	"github.com/halcyon-labs/ragchat/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// Default configuration values.
const (
	DefaultControlURL   = "https://api.pinecone.io"
	DefaultCloud        = "aws"
	DefaultRegion       = "us-east-1"
	DefaultTimeout      = 30 * time.Second
	DefaultReadyTimeout = 80 * time.Second
	DefaultPollInterval = 5 * time.Second
	DefaultBatchSize    = 100
)

// contentKey is the metadata field carrying the original chunk text.
const contentKey = "pageContent"

// Config holds configuration for the Pinecone store.
type Config struct {
	// APIKey authenticates every request.
	APIKey string

	// ControlURL is the control-plane base URL (default: https://api.pinecone.io).
	ControlURL string

	// Cloud and Region select where serverless indexes are created.
	Cloud  string
	Region string

	// Timeout is the per-request timeout (default: 30s).
	Timeout time.Duration

	// ReadyTimeout bounds how long EnsureCollection waits for a new
	// index to become queryable (default: 80s).
	ReadyTimeout time.Duration

	// PollInterval is the readiness poll cadence (default: 5s).
	PollInterval time.Duration

	// BatchSize bounds the records per upsert request (default: 100).
	BatchSize int
}

// Store talks to Pinecone over its REST API.
type Store struct {
	apiKey       string
	controlURL   string
	cloud        string
	region       string
	readyTimeout time.Duration
	pollInterval time.Duration
	batchSize    int
	client       *http.Client

	mu    sync.Mutex
	hosts map[string]string // index name -> data-plane host
}

// apiError carries a non-2xx response.
type apiError struct {
	Status int
	Body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("pinecone: status %d: %s", e.Status, e.Body)
}

// indexModel is the Pinecone index description.
type indexModel struct {
	Name      string `json:"name"`
	Dimension int    `json:"dimension"`
	Metric    string `json:"metric"`
	Host      string `json:"host"`
	Status    struct {
		Ready bool   `json:"ready"`
		State string `json:"state"`
	} `json:"status"`
}

// NewStore creates a new Pinecone store.
func NewStore(cfg Config) *Store {
	if cfg.ControlURL == "" {
		cfg.ControlURL = DefaultControlURL
	}
	if cfg.Cloud == "" {
		cfg.Cloud = DefaultCloud
	}
	if cfg.Region == "" {
		cfg.Region = DefaultRegion
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.ReadyTimeout == 0 {
		cfg.ReadyTimeout = DefaultReadyTimeout
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultBatchSize
	}

	return &Store{
		apiKey:       cfg.APIKey,
		controlURL:   strings.TrimRight(cfg.ControlURL, "/"),
		cloud:        cfg.Cloud,
		region:       cfg.Region,
		readyTimeout: cfg.ReadyTimeout,
		pollInterval: cfg.PollInterval,
		batchSize:    cfg.BatchSize,
		client:       &http.Client{Timeout: cfg.Timeout},
		hosts:        make(map[string]string),
	}
}

// EnsureCollection creates the index if absent and blocks until it is
// queryable. A concurrent create racing this call surfaces as a 409,
// which is treated the same as "already exists".
func (s *Store) EnsureCollection(ctx context.Context, name string, dimension int, metric string) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive", domain.ErrInvalidInput)
	}

	idx, err := s.describeIndex(ctx, name)
	switch {
	case err == nil:
		if idx.Dimension != dimension {
			return fmt.Errorf("%w: collection %q has dimension %d, want %d",
				domain.ErrDimensionConflict, name, idx.Dimension, dimension)
		}
		if idx.Status.Ready {
			s.cacheHost(name, idx.Host)
			return nil
		}
		return s.waitReady(ctx, name)

	case errors.Is(err, domain.ErrCollectionNotFound):
		// Fall through to create.

	default:
		return err
	}

	logger.Info("creating pinecone index %q (dimension %d, metric %s)", name, dimension, metric)
	body := map[string]any{
		"name":      name,
		"dimension": dimension,
		"metric":    metric,
		"spec": map[string]any{
			"serverless": map[string]any{
				"cloud":  s.cloud,
				"region": s.region,
			},
		},
	}
	err = s.doJSON(ctx, http.MethodPost, s.controlURL+"/indexes", body, nil)
	var apiErr *apiError
	if err != nil && !(errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict) {
		return fmt.Errorf("create index %q: %w", name, err)
	}

	return s.waitReady(ctx, name)
}

// waitReady polls the index description until it reports ready, or
// fails with domain.ErrIndexNotReady once the bounded wait elapses.
func (s *Store) waitReady(ctx context.Context, name string) error {
	deadline := time.Now().Add(s.readyTimeout)

	for {
		idx, err := s.describeIndex(ctx, name)
		if err == nil && idx.Status.Ready {
			s.cacheHost(name, idx.Host)
			return nil
		}
		if err != nil && !errors.Is(err, domain.ErrCollectionNotFound) {
			return err
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("%w: index %q not queryable after %s",
				domain.ErrIndexNotReady, name, s.readyTimeout)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.pollInterval):
		}
	}
}

// Upsert sends records in batches of batchSize. Failed batches are
// reported through the stats and the joined error; earlier batches
// stay written.
func (s *Store) Upsert(ctx context.Context, collection string, records []domain.VectorRecord) (domain.UpsertStats, error) {
	stats := domain.UpsertStats{Records: len(records)}
	if len(records) == 0 {
		return stats, nil
	}

	idx, err := s.describeIndex(ctx, collection)
	if err != nil {
		return stats, err
	}
	for _, rec := range records {
		if len(rec.Vector) != idx.Dimension {
			return stats, fmt.Errorf("%w: record %q has dimension %d, collection %q wants %d",
				domain.ErrDimensionConflict, rec.ID, len(rec.Vector), collection, idx.Dimension)
		}
	}
	host := s.hostURL(idx.Host)

	var errs []error
	for start := 0; start < len(records); start += s.batchSize {
		end := start + s.batchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[start:end]
		batchIndex := start / s.batchSize
		stats.Batches++

		vectors := make([]map[string]any, len(batch))
		for i, rec := range batch {
			metadata := make(map[string]any, len(rec.Metadata)+1)
			for k, v := range rec.Metadata {
				metadata[k] = v
			}
			metadata[contentKey] = rec.Content
			vectors[i] = map[string]any{
				"id":       rec.ID,
				"values":   rec.Vector,
				"metadata": metadata,
			}
		}

		if err := s.doJSON(ctx, http.MethodPost, host+"/vectors/upsert", map[string]any{"vectors": vectors}, nil); err != nil {
			logger.Warn("upsert batch %d of collection %q failed: %v", batchIndex, collection, err)
			stats.FailedBatches = append(stats.FailedBatches, batchIndex)
			errs = append(errs, fmt.Errorf("batch %d: %w", batchIndex, err))
			continue
		}
		stats.Upserted += len(batch)
		logger.Debug("upserted batch %d/%d into %q", batchIndex+1, (len(records)+s.batchSize-1)/s.batchSize, collection)
	}
	return stats, errors.Join(errs...)
}

// Query runs a similarity search. Pinecone's cosine score is already a
// similarity; it is clamped to [0,1] and filtered by minSimilarity.
func (s *Store) Query(ctx context.Context, collection string, queryVector []float32, topK int, minSimilarity float64) ([]domain.RetrievalMatch, error) {
	if topK <= 0 {
		return []domain.RetrievalMatch{}, nil
	}

	host, err := s.ensureHost(ctx, collection)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Matches []struct {
			ID       string         `json:"id"`
			Score    float64        `json:"score"`
			Metadata map[string]any `json:"metadata"`
		} `json:"matches"`
	}
	body := map[string]any{
		"vector":          queryVector,
		"topK":            topK,
		"includeMetadata": true,
	}
	if err := s.doJSON(ctx, http.MethodPost, host+"/query", body, &resp); err != nil {
		return nil, fmt.Errorf("query collection %q: %w", collection, err)
	}

	matches := make([]domain.RetrievalMatch, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		sim := vector.Clamp01(m.Score)
		if sim < minSimilarity {
			continue
		}

		content, _ := m.Metadata[contentKey].(string)
		metadata := make(map[string]any, len(m.Metadata))
		for k, v := range m.Metadata {
			if k == contentKey {
				continue
			}
			metadata[k] = v
		}

		matches = append(matches, domain.RetrievalMatch{
			ID:         m.ID,
			Content:    content,
			Metadata:   metadata,
			Similarity: sim,
		})
	}
	return matches, nil
}

// ListCollections returns the names of existing indexes.
func (s *Store) ListCollections(ctx context.Context) ([]string, error) {
	var resp struct {
		Indexes []indexModel `json:"indexes"`
	}
	if err := s.doJSON(ctx, http.MethodGet, s.controlURL+"/indexes", nil, &resp); err != nil {
		return nil, fmt.Errorf("list indexes: %w", err)
	}

	names := make([]string, 0, len(resp.Indexes))
	for _, idx := range resp.Indexes {
		names = append(names, idx.Name)
	}
	return names, nil
}

// DeleteCollection removes an index.
func (s *Store) DeleteCollection(ctx context.Context, name string) error {
	err := s.doJSON(ctx, http.MethodDelete, s.controlURL+"/indexes/"+name, nil, nil)
	var apiErr *apiError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return fmt.Errorf("%w: %q", domain.ErrCollectionNotFound, name)
	}
	if err != nil {
		return fmt.Errorf("delete index %q: %w", name, err)
	}

	s.mu.Lock()
	delete(s.hosts, name)
	s.mu.Unlock()
	return nil
}

// Close releases resources.
func (s *Store) Close() error {
	return nil
}

func (s *Store) describeIndex(ctx context.Context, name string) (*indexModel, error) {
	var idx indexModel
	err := s.doJSON(ctx, http.MethodGet, s.controlURL+"/indexes/"+name, nil, &idx)
	var apiErr *apiError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %q", domain.ErrCollectionNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("describe index %q: %w", name, err)
	}
	return &idx, nil
}

// ensureHost resolves the data-plane host for an index, using the
// cached value when available.
func (s *Store) ensureHost(ctx context.Context, name string) (string, error) {
	s.mu.Lock()
	host, ok := s.hosts[name]
	s.mu.Unlock()
	if ok {
		return s.hostURL(host), nil
	}

	idx, err := s.describeIndex(ctx, name)
	if err != nil {
		return "", err
	}
	s.cacheHost(name, idx.Host)
	return s.hostURL(idx.Host), nil
}

func (s *Store) cacheHost(name, host string) {
	s.mu.Lock()
	s.hosts[name] = host
	s.mu.Unlock()
}

// hostURL turns a described host into a base URL. Pinecone reports
// bare hosts; tests may inject full URLs.
func (s *Store) hostURL(host string) string {
	if strings.Contains(host, "://") {
		return strings.TrimRight(host, "/")
	}
	return "https://" + host
}

func (s *Store) doJSON(ctx context.Context, method, url string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Api-Key", s.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &apiError{Status: resp.StatusCode, Body: string(data)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
