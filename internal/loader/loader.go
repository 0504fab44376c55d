// Package loader reads documents from the filesystem.
package loader

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/halcyon-labs/ragchat/internal/core/domain"
	"github.com/halcyon-labs/ragchat/internal/logger"
)

// DefaultExtensions are the file extensions loaded when none are
// configured.
var DefaultExtensions = []string{".txt", ".md"}

// Loader turns files into documents.
type Loader struct {
	extensions map[string]struct{}
}

// New creates a loader accepting the given extensions (with leading
// dot, case-insensitive). Empty means DefaultExtensions.
func New(extensions []string) *Loader {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	set := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		set[strings.ToLower(ext)] = struct{}{}
	}
	return &Loader{extensions: set}
}

// Accepts reports whether the loader handles the file's extension.
func (l *Loader) Accepts(path string) bool {
	_, ok := l.extensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// LoadFile reads a single file into a document. Source is the path as
// given; callers wanting relative sources should pass relative paths.
func (l *Loader) LoadFile(path string) (domain.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Document{}, fmt.Errorf("read %s: %w", path, err)
	}

	return domain.Document{
		ID:      uuid.New().String(),
		Source:  filepath.ToSlash(path),
		Content: string(data),
		Metadata: map[string]any{
			"source":   filepath.ToSlash(path),
			"filename": filepath.Base(path),
		},
	}, nil
}

// LoadPath loads a file or, for a directory, every accepted file under
// it.
func (l *Loader) LoadPath(path string) ([]domain.Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		doc, err := l.LoadFile(path)
		if err != nil {
			return nil, err
		}
		return []domain.Document{doc}, nil
	}
	return l.LoadDir(path)
}

// LoadDir walks root and loads every accepted file, with Source set to
// the slash-separated path relative to root.
func (l *Loader) LoadDir(root string) ([]domain.Document, error) {
	var docs []domain.Document

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if !l.Accepts(path) {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)

		docs = append(docs, domain.Document{
			ID:      uuid.New().String(),
			Source:  rel,
			Content: string(data),
			Metadata: map[string]any{
				"source":   rel,
				"filename": d.Name(),
			},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Debug("loaded %d documents from %s", len(docs), root)
	return docs, nil
}
