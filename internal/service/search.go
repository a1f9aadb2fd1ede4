package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bookberryapp/bookberry-server/internal/domain"
	"github.com/bookberryapp/bookberry-server/internal/search"
	"github.com/bookberryapp/bookberry-server/internal/store"
)

// SearchService searches an owner's shelf through the bleve index and
// resolves hits back to stored entries.
type SearchService struct {
	index  *search.ShelfIndex
	store  store.Store
	logger *slog.Logger
}

// NewSearchService creates a new search service.
func NewSearchService(index *search.ShelfIndex, st store.Store, logger *slog.Logger) *SearchService {
	return &SearchService{
		index:  index,
		store:  st,
		logger: logger,
	}
}

// Search returns the owner's entries matching query, best match first.
// Without an owner the result is empty.
func (s *SearchService) Search(ctx context.Context, ownerID, query string, status domain.ReadingStatus, limit int) ([]*domain.ShelfEntry, error) {
	if ownerID == "" {
		return []*domain.ShelfEntry{}, nil
	}

	hits, err := s.index.Search(ctx, search.Params{
		OwnerID: ownerID,
		Query:   query,
		Status:  string(status),
		Limit:   limit,
	})
	if err != nil {
		return nil, fmt.Errorf("search shelf: %w", err)
	}

	entries := make([]*domain.ShelfEntry, 0, len(hits))
	for _, hit := range hits {
		entry, err := s.store.GetEntry(ctx, ownerID, hit.BookID)
		if errors.Is(err, store.ErrEntryNotFound) {
			// Stale index document; the entry was removed.
			s.logger.Debug("dropping stale search hit", "owner_id", ownerID, "book_id", hit.BookID)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load search hit: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Reindex rebuilds the owner's documents from the store.
func (s *SearchService) Reindex(ctx context.Context, ownerID string) error {
	entries, err := s.store.ListEntries(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("list entries: %w", err)
	}
	if err := s.index.Rebuild(ctx, ownerID, entries); err != nil {
		return fmt.Errorf("rebuild index: %w", err)
	}
	s.logger.Info("shelf search index rebuilt", "owner_id", ownerID, "entries", len(entries))
	return nil
}

// ReindexAll rebuilds every owner's documents from the store.
func (s *SearchService) ReindexAll(ctx context.Context) error {
	entries, err := s.store.ListAllEntries(ctx)
	if err != nil {
		return fmt.Errorf("list all entries: %w", err)
	}

	owners := 0
	for start := 0; start < len(entries); {
		ownerID := entries[start].OwnerID
		end := start + 1
		for end < len(entries) && entries[end].OwnerID == ownerID {
			end++
		}
		if err := s.index.Rebuild(ctx, ownerID, entries[start:end]); err != nil {
			return fmt.Errorf("rebuild index for %s: %w", ownerID, err)
		}
		owners++
		start = end
	}

	s.logger.Info("shelf search index rebuilt for all owners", "owners", owners, "entries", len(entries))
	return nil
}

// DocumentCount returns the number of indexed entries.
func (s *SearchService) DocumentCount() (uint64, error) {
	return s.index.DocumentCount()
}
