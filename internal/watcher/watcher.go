// Package watcher ingests documents as they change on disk.
package watcher

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/halcyon-labs/ragchat/internal/core/domain"
	"github.com/halcyon-labs/ragchat/internal/loader"
	"github.com/halcyon-labs/ragchat/internal/logger"
)

// DefaultDebounce coalesces rapid successive writes to one file.
const DefaultDebounce = 500 * time.Millisecond

// DefaultCollection receives files placed directly in the watched
// root.
const DefaultCollection = "default"

// Ingestor is the slice of the pipeline the watcher needs.
type Ingestor interface {
	Ingest(ctx context.Context, collection string, docs []domain.Document) (domain.IngestStats, error)
}

// Watcher monitors a directory tree and ingests created or modified
// documents. The first path element below the root names the target
// collection; files directly in the root go to DefaultCollection.
type Watcher struct {
	root     string
	ingestor Ingestor
	loader   *loader.Loader
	debounce time.Duration
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the event coalescing window.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLoader sets the loader deciding which files to ingest.
func WithLoader(l *loader.Loader) Option {
	return func(w *Watcher) {
		w.loader = l
	}
}

// New creates a watcher over root feeding the ingestor.
func New(root string, ingestor Ingestor, opts ...Option) *Watcher {
	w := &Watcher{
		root:     root,
		ingestor: ingestor,
		loader:   loader.New(nil),
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches until ctx is cancelled. Ingestion failures are logged
// and do not stop the watch.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	if err := w.addTree(fsw, w.root); err != nil {
		return err
	}
	logger.Info("watching %s", w.root)

	// pending maps path to its debounce deadline
	pending := make(map[string]time.Time)
	ticker := time.NewTicker(w.debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(fsw, event, pending)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error: %v", err)

		case now := <-ticker.C:
			for path, deadline := range pending {
				if now.Before(deadline) {
					continue
				}
				delete(pending, path)
				w.ingest(ctx, path)
			}
		}
	}
}

func (w *Watcher) handleEvent(fsw *fsnotify.Watcher, event fsnotify.Event, pending map[string]time.Time) {
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}

	// new directories need their own watch
	if event.Op&fsnotify.Create != 0 {
		if err := w.addTree(fsw, event.Name); err == nil {
			return
		}
	}

	if !w.loader.Accepts(event.Name) {
		return
	}
	pending[event.Name] = time.Now().Add(w.debounce)
}

// addTree registers watches on dir and its subdirectories. Returns an
// error when dir is not a directory.
func (w *Watcher) addTree(fsw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			if path == dir {
				return fs.ErrInvalid
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && path != dir {
			return filepath.SkipDir
		}
		return fsw.Add(path)
	})
}

func (w *Watcher) ingest(ctx context.Context, path string) {
	doc, err := w.loader.LoadFile(path)
	if err != nil {
		logger.Warn("load %s: %v", path, err)
		return
	}

	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)
	doc.Source = rel
	doc.Metadata["source"] = rel

	collection := CollectionFor(rel)

	stats, err := w.ingestor.Ingest(ctx, collection, []domain.Document{doc})
	if err != nil {
		logger.Warn("ingest %s into %q: %v", rel, collection, err)
		return
	}
	logger.Info("ingested %s into %q (%d chunks)", rel, collection, stats.Chunks)
}

// CollectionFor maps a slash-separated path relative to the watch root
// to its collection name.
func CollectionFor(rel string) string {
	if i := strings.IndexByte(rel, '/'); i > 0 {
		return rel[:i]
	}
	return DefaultCollection
}
