// Package search maintains a bleve full-text index over shelf entries.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/bookberryapp/bookberry-server/internal/domain"
	"github.com/bookberryapp/bookberry-server/internal/store"
)

var _ store.SearchIndexer = (*ShelfIndex)(nil)

// ShelfIndex wraps a bleve index of shelf entries.
// All methods are safe for concurrent use.
type ShelfIndex struct {
	index  bleve.Index
	logger *slog.Logger
	mu     sync.RWMutex
}

// Options configures the search index.
type Options struct {
	DataPath string       // Directory for index storage; empty keeps the index in memory
	Logger   *slog.Logger // Uses discard if nil
}

// mappingVersion is bumped whenever buildIndexMapping changes so stale
// on-disk indexes are rebuilt at startup.
const mappingVersion = "1"

// NewShelfIndex opens the index under opts.DataPath, recreating it when it is
// missing, unreadable or built with an older mapping.
func NewShelfIndex(opts Options) (*ShelfIndex, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	}

	if opts.DataPath == "" {
		index, err := bleve.NewMemOnly(buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create in-memory index: %w", err)
		}
		return &ShelfIndex{index: index, logger: logger}, nil
	}

	if err := os.MkdirAll(opts.DataPath, 0o755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}
	indexPath := filepath.Join(opts.DataPath, "shelf.bleve")
	versionPath := filepath.Join(opts.DataPath, "shelf.version")

	var index bleve.Index
	if _, err := os.Stat(indexPath); err == nil {
		version, readErr := os.ReadFile(versionPath)
		if readErr == nil && string(version) == mappingVersion {
			index, err = bleve.Open(indexPath)
			if err != nil {
				logger.Warn("failed to open existing index, will recreate", "path", indexPath, "error", err)
				index = nil
			}
		} else {
			logger.Info("search index mapping changed, will rebuild", "new_version", mappingVersion)
		}
		if index == nil {
			if err := os.RemoveAll(indexPath); err != nil {
				return nil, fmt.Errorf("remove old index: %w", err)
			}
		}
	}

	if index == nil {
		var err error
		index, err = bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
		if err := os.WriteFile(versionPath, []byte(mappingVersion), 0o644); err != nil {
			logger.Warn("failed to write search version file", "error", err)
		}
		logger.Info("created new search index", "path", indexPath, "mapping_version", mappingVersion)
	}

	return &ShelfIndex{index: index, logger: logger}, nil
}

// Close closes the index and releases resources.
func (s *ShelfIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

// Shutdown implements do.Shutdownable.
func (s *ShelfIndex) Shutdown() error {
	return s.Close()
}

// IndexEntry adds or replaces the document for an entry.
func (s *ShelfIndex) IndexEntry(_ context.Context, entry *domain.ShelfEntry) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc := NewEntryDocument(entry)
	return s.index.Index(doc.ID(), doc.ToMap())
}

// DeleteEntry removes an owner's entry from the index.
func (s *ShelfIndex) DeleteEntry(_ context.Context, ownerID, bookID string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Delete(DocumentID(ownerID, bookID))
}

// DeleteOwner removes every document belonging to ownerID.
func (s *ShelfIndex) DeleteOwner(ctx context.Context, ownerID string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	const pageSize = 500
	for {
		q := bleve.NewTermQuery(ownerID)
		q.SetField("owner_id")
		req := bleve.NewSearchRequestOptions(q, pageSize, 0, false)

		res, err := s.index.SearchInContext(ctx, req)
		if err != nil {
			return fmt.Errorf("find owner documents: %w", err)
		}
		if len(res.Hits) == 0 {
			return nil
		}

		batch := s.index.NewBatch()
		for _, hit := range res.Hits {
			batch.Delete(hit.ID)
		}
		if err := s.index.Batch(batch); err != nil {
			return fmt.Errorf("delete owner documents: %w", err)
		}
	}
}

// DocumentCount returns the total number of indexed documents.
func (s *ShelfIndex) DocumentCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DocCount()
}

// Rebuild replaces an owner's documents with entries.
func (s *ShelfIndex) Rebuild(ctx context.Context, ownerID string, entries []*domain.ShelfEntry) error {
	if err := s.DeleteOwner(ctx, ownerID); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	batch := s.index.NewBatch()
	for _, e := range entries {
		doc := NewEntryDocument(e)
		if err := batch.Index(doc.ID(), doc.ToMap()); err != nil {
			return fmt.Errorf("batch index %s: %w", doc.ID(), err)
		}
	}
	return s.index.Batch(batch)
}
