// Package store defines the persistence contract for the Bookberry server.
package store

import (
	"context"

	"github.com/bookberryapp/bookberry-server/internal/domain"
)

// EntryMutator changes an entry inside an UpdateEntry transaction.
type EntryMutator func(entry *domain.ShelfEntry) error

// ProfileMutator changes a profile inside an UpsertProfile transaction.
type ProfileMutator func(profile *domain.UserProfile)

// Store defines all persistence operations.
type Store interface {
	Close() error
	// Ping verifies the backing database is reachable.
	Ping(ctx context.Context) error

	// Shelf entries

	// UpsertEntry inserts entry, or when (OwnerID, BookID) already exists,
	// overwrites only its status and UpdatedAt. Returns the stored row and
	// whether it was newly created.
	UpsertEntry(ctx context.Context, entry *domain.ShelfEntry) (*domain.ShelfEntry, bool, error)
	GetEntry(ctx context.Context, ownerID, bookID string) (*domain.ShelfEntry, error)
	// UpdateEntry loads the entry, applies fn and writes the mutable fields back
	// in one transaction. Returns ErrEntryNotFound when absent.
	UpdateEntry(ctx context.Context, ownerID, bookID string, fn EntryMutator) (*domain.ShelfEntry, error)
	DeleteEntry(ctx context.Context, ownerID, bookID string) error
	// DeleteEntriesForOwner removes every entry of ownerID atomically.
	DeleteEntriesForOwner(ctx context.Context, ownerID string) (int, error)
	ListEntries(ctx context.Context, ownerID string) ([]*domain.ShelfEntry, error)
	// ListAllEntries returns every entry of every owner, grouped by owner.
	ListAllEntries(ctx context.Context) ([]*domain.ShelfEntry, error)
	// ListReviewedEntries returns completed, rated entries for a book across all owners.
	ListReviewedEntries(ctx context.Context, bookID string) ([]*domain.ShelfEntry, error)

	// Profiles

	GetProfile(ctx context.Context, ownerID string) (*domain.UserProfile, error)
	GetProfilesByIDs(ctx context.Context, ownerIDs []string) (map[string]*domain.UserProfile, error)
	// UpsertProfile applies fn to the existing profile, or to a fresh default
	// profile when none exists, and saves the result.
	UpsertProfile(ctx context.Context, ownerID string, fn ProfileMutator) (*domain.UserProfile, error)
}

// SearchIndexer keeps the shelf search index in sync with the store.
type SearchIndexer interface {
	IndexEntry(ctx context.Context, entry *domain.ShelfEntry) error
	DeleteEntry(ctx context.Context, ownerID, bookID string) error
	DeleteOwner(ctx context.Context, ownerID string) error
}

// NoopSearchIndexer discards index updates.
type NoopSearchIndexer struct{}

// NewNoopSearchIndexer creates a search indexer that does nothing.
func NewNoopSearchIndexer() *NoopSearchIndexer { return &NoopSearchIndexer{} }

// IndexEntry does nothing.
func (NoopSearchIndexer) IndexEntry(context.Context, *domain.ShelfEntry) error { return nil }

// DeleteEntry does nothing.
func (NoopSearchIndexer) DeleteEntry(context.Context, string, string) error { return nil }

// DeleteOwner does nothing.
func (NoopSearchIndexer) DeleteOwner(context.Context, string) error { return nil }
