// Package sqlite provides a local vector store backed by SQLite.
// Embeddings are serialised as JSON and similarity is computed
// client-side, which is plenty for per-chat collections of a few
// thousand chunks and keeps the pipeline runnable without a managed
// vector service.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	_ "modernc.org/sqlite"

	"github.com/halcyon-labs/ragchat/internal/adapters/driven/vector"
	"github.com/halcyon-labs/ragchat/internal/core/domain"
	"github.com/halcyon-labs/ragchat/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// DefaultBatchSize bounds how many records go into one transaction.
const DefaultBatchSize = 100

// Store is a SQLite-backed implementation of driven.VectorStore.
type Store struct {
	db        *sql.DB
	batchSize int
}

// Option configures the store.
type Option func(*Store)

// WithBatchSize sets the upsert batch size.
func WithBatchSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// NewStore opens (creating if needed) the database at path.
func NewStore(path string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db, batchSize: DefaultBatchSize}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.setupTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setup tables: %w", err)
	}
	return s, nil
}

func (s *Store) setupTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS collections (
			name TEXT PRIMARY KEY,
			dimension INTEGER NOT NULL,
			metric TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS records (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			collection TEXT NOT NULL,
			id TEXT NOT NULL,
			vector TEXT NOT NULL,
			content TEXT NOT NULL,
			metadata TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(collection, id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_collection ON records(collection)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("execute %q: %w", query, err)
		}
	}
	return nil
}

// EnsureCollection creates the collection row if absent. Repeat calls
// with the same dimension are no-ops; a different dimension fails with
// domain.ErrDimensionConflict. INSERT OR IGNORE keeps concurrent
// creation safe: both callers succeed, one row exists.
func (s *Store) EnsureCollection(ctx context.Context, name string, dimension int, metric string) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive", domain.ErrInvalidInput)
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO collections (name, dimension, metric) VALUES (?, ?, ?)`,
		name, dimension, metric,
	); err != nil {
		return fmt.Errorf("create collection: %w", err)
	}

	existing, _, err := s.collectionDimension(ctx, name)
	if err != nil {
		return err
	}
	if existing != dimension {
		return fmt.Errorf("%w: collection %q has dimension %d, want %d",
			domain.ErrDimensionConflict, name, existing, dimension)
	}
	return nil
}

func (s *Store) collectionDimension(ctx context.Context, name string) (int, string, error) {
	var dimension int
	var metric string
	err := s.db.QueryRowContext(ctx,
		`SELECT dimension, metric FROM collections WHERE name = ?`, name,
	).Scan(&dimension, &metric)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, "", fmt.Errorf("%w: %q", domain.ErrCollectionNotFound, name)
	}
	if err != nil {
		return 0, "", fmt.Errorf("read collection: %w", err)
	}
	return dimension, metric, nil
}

// Upsert inserts or replaces records by id in transactions of batchSize
// rows. A failed batch does not roll back the batches before it; the
// stats report which batches failed.
func (s *Store) Upsert(ctx context.Context, collection string, records []domain.VectorRecord) (domain.UpsertStats, error) {
	stats := domain.UpsertStats{Records: len(records)}
	if len(records) == 0 {
		return stats, nil
	}

	dimension, _, err := s.collectionDimension(ctx, collection)
	if err != nil {
		return stats, err
	}
	for _, rec := range records {
		if len(rec.Vector) != dimension {
			return stats, fmt.Errorf("%w: record %q has dimension %d, collection %q wants %d",
				domain.ErrDimensionConflict, rec.ID, len(rec.Vector), collection, dimension)
		}
	}

	var errs []error
	for start := 0; start < len(records); start += s.batchSize {
		end := start + s.batchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[start:end]
		batchIndex := start / s.batchSize
		stats.Batches++

		if err := s.upsertBatch(ctx, collection, batch); err != nil {
			stats.FailedBatches = append(stats.FailedBatches, batchIndex)
			errs = append(errs, fmt.Errorf("batch %d: %w", batchIndex, err))
			continue
		}
		stats.Upserted += len(batch)
	}
	return stats, errors.Join(errs...)
}

func (s *Store) upsertBatch(ctx context.Context, collection string, batch []domain.VectorRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (collection, id, vector, content, metadata)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
			vector = excluded.vector,
			content = excluded.content,
			metadata = excluded.metadata`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, rec := range batch {
		vectorJSON, err := json.Marshal(rec.Vector)
		if err != nil {
			return fmt.Errorf("marshal vector for %q: %w", rec.ID, err)
		}
		metadataJSON, err := json.Marshal(rec.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata for %q: %w", rec.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, collection, rec.ID, string(vectorJSON), rec.Content, string(metadataJSON)); err != nil {
			return fmt.Errorf("insert record %q: %w", rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Query loads the collection's records in insertion order and scores
// them client-side.
func (s *Store) Query(ctx context.Context, collection string, queryVector []float32, topK int, minSimilarity float64) ([]domain.RetrievalMatch, error) {
	dimension, _, err := s.collectionDimension(ctx, collection)
	if err != nil {
		return nil, err
	}
	if len(queryVector) != dimension {
		return nil, fmt.Errorf("%w: query vector has dimension %d, collection %q wants %d",
			domain.ErrDimensionConflict, len(queryVector), collection, dimension)
	}
	if topK <= 0 {
		return []domain.RetrievalMatch{}, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, vector, content, metadata FROM records WHERE collection = ? ORDER BY seq`,
		collection,
	)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var matches []domain.RetrievalMatch
	for rows.Next() {
		var id, vectorJSON, content, metadataJSON string
		if err := rows.Scan(&id, &vectorJSON, &content, &metadataJSON); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}

		var vec []float32
		if err := json.Unmarshal([]byte(vectorJSON), &vec); err != nil {
			return nil, fmt.Errorf("unmarshal vector for %q: %w", id, err)
		}
		var metadata map[string]any
		if err := json.Unmarshal([]byte(metadataJSON), &metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata for %q: %w", id, err)
		}

		sim := vector.Cosine(queryVector, vec)
		if sim < minSimilarity {
			continue
		}
		matches = append(matches, domain.RetrievalMatch{
			ID:         id,
			Content:    content,
			Metadata:   metadata,
			Similarity: sim,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	if matches == nil {
		matches = []domain.RetrievalMatch{}
	}
	return matches, nil
}

// ListCollections returns the names of existing collections.
func (s *Store) ListCollections(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM collections ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan collection: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// DeleteCollection removes a collection and its records.
func (s *Store) DeleteCollection(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM collections WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %q", domain.ErrCollectionNotFound, name)
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE collection = ?`, name); err != nil {
		return fmt.Errorf("delete records: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
