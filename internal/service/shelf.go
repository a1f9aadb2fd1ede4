// Package service holds the Bookberry business logic between the API and the store.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bookberryapp/bookberry-server/internal/domain"
	domainerrors "github.com/bookberryapp/bookberry-server/internal/errors"
	"github.com/bookberryapp/bookberry-server/internal/id"
	"github.com/bookberryapp/bookberry-server/internal/sse"
	"github.com/bookberryapp/bookberry-server/internal/store"
	"github.com/bookberryapp/bookberry-server/internal/validation"
)

// errAuthRequired is returned by mutations called without an owner.
func errAuthRequired() error {
	return domainerrors.Unauthorized("authentication required")
}

// ShelfService manages each owner's shelf of tracked books and publishes a
// fresh snapshot after every change.
type ShelfService struct {
	store     store.Store
	index     store.SearchIndexer
	events    EventEmitter
	validator *validation.Validator
	logger    *slog.Logger
	now       func() time.Time
}

// NewShelfService creates a new shelf service.
func NewShelfService(st store.Store, index store.SearchIndexer, events EventEmitter, v *validation.Validator, logger *slog.Logger) *ShelfService {
	if index == nil {
		index = store.NewNoopSearchIndexer()
	}
	if events == nil {
		events = NewNoopEmitter()
	}
	return &ShelfService{
		store:     st,
		index:     index,
		events:    events,
		validator: v,
		logger:    logger,
		now:       time.Now,
	}
}

// List returns the owner's entries filtered and ordered by q.
// Without an owner the list is empty.
func (s *ShelfService) List(ctx context.Context, ownerID string, q domain.ShelfQuery) ([]*domain.ShelfEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ownerID == "" {
		return []*domain.ShelfEntry{}, nil
	}

	entries, err := s.store.ListEntries(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return q.Apply(entries), nil
}

// ListPublic returns another owner's shelf. No ownership check is made.
func (s *ShelfService) ListPublic(ctx context.Context, ownerID string, q domain.ShelfQuery) ([]*domain.ShelfEntry, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, domainerrors.Validation("user ID is required")
	}
	return s.List(ctx, ownerID, q)
}

// Get returns the owner's entry for bookID, or nil when the book is not shelved.
func (s *ShelfService) Get(ctx context.Context, ownerID, bookID string) (*domain.ShelfEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ownerID == "" {
		return nil, nil
	}

	entry, err := s.store.GetEntry(ctx, ownerID, bookID)
	if errors.Is(err, store.ErrEntryNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}
	return entry, nil
}

// AddOrUpsert puts book on the owner's shelf. If the book is already there only
// its status changes; the stored snapshot, progress and rating are kept.
// An empty status means WANT_TO_READ.
func (s *ShelfService) AddOrUpsert(ctx context.Context, ownerID string, book domain.Book, status domain.ReadingStatus) (*domain.ShelfEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ownerID == "" {
		return nil, errAuthRequired()
	}
	if status != "" && !status.Valid() {
		return nil, domainerrors.Validationf("invalid status %q", status)
	}

	book.Title = strings.TrimSpace(book.Title)
	book.Authors = book.AuthorsOrDefault()
	if err := s.validator.Validate(&book); err != nil {
		return nil, err
	}

	entryID, err := id.Generate(id.PrefixEntry)
	if err != nil {
		return nil, fmt.Errorf("generate entry ID: %w", err)
	}

	entry := domain.NewShelfEntry(entryID, ownerID, book, status, s.now())
	stored, created, err := s.store.UpsertEntry(ctx, entry)
	if err != nil {
		return nil, fmt.Errorf("upsert entry: %w", err)
	}

	s.logger.Info("shelf entry saved",
		"owner_id", ownerID,
		"book_id", book.ID,
		"status", stored.Status,
		"created", created,
	)

	s.reindex(ctx, stored)
	s.publish(ctx, ownerID)
	return stored, nil
}

// UpdateStatus moves a shelved book to another status.
// Returns nil, nil when the book is not on the owner's shelf.
func (s *ShelfService) UpdateStatus(ctx context.Context, ownerID, bookID string, status domain.ReadingStatus) (*domain.ShelfEntry, error) {
	if !status.Valid() {
		return nil, domainerrors.Validationf("invalid status %q", status)
	}
	return s.mutate(ctx, ownerID, bookID, "status updated", func(e *domain.ShelfEntry) error {
		e.SetStatus(status, s.now())
		return nil
	})
}

// UpdateProgress records the current page. The page is clamped to the book's
// length and reaching the last page completes the book.
// Returns nil, nil when the book is not on the owner's shelf.
func (s *ShelfService) UpdateProgress(ctx context.Context, ownerID, bookID string, page int) (*domain.ShelfEntry, error) {
	return s.mutate(ctx, ownerID, bookID, "progress updated", func(e *domain.ShelfEntry) error {
		e.SetProgress(page, s.now())
		return nil
	})
}

// Rate stores a rating and optional review and completes the book.
// Returns nil, nil when the book is not on the owner's shelf.
func (s *ShelfService) Rate(ctx context.Context, ownerID, bookID string, rating float64, review *string) (*domain.ShelfEntry, error) {
	if err := domain.ValidateRating(rating); err != nil {
		return nil, domainerrors.ValidationWithDetails(err.Error(), map[string]string{"rating": "must be between 0 and 5 in steps of 0.5"})
	}
	review, err := domain.NormalizeReview(review)
	if err != nil {
		return nil, domainerrors.Validation(err.Error())
	}

	return s.mutate(ctx, ownerID, bookID, "book rated", func(e *domain.ShelfEntry) error {
		e.Rate(rating, review, s.now())
		return nil
	})
}

// Remove deletes the owner's entry for bookID. Removing an unshelved book is a no-op.
func (s *ShelfService) Remove(ctx context.Context, ownerID, bookID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ownerID == "" {
		return errAuthRequired()
	}

	err := s.store.DeleteEntry(ctx, ownerID, bookID)
	if errors.Is(err, store.ErrEntryNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}

	s.logger.Info("shelf entry removed", "owner_id", ownerID, "book_id", bookID)

	if err := s.index.DeleteEntry(ctx, ownerID, bookID); err != nil {
		s.logger.Warn("failed to remove entry from search index",
			"owner_id", ownerID,
			"book_id", bookID,
			"error", err,
		)
	}
	s.publish(ctx, ownerID)
	return nil
}

// ClearAll removes every entry of the owner in one transaction and returns
// how many were removed. Without an owner nothing happens.
func (s *ShelfService) ClearAll(ctx context.Context, ownerID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if ownerID == "" {
		return 0, nil
	}

	removed, err := s.store.DeleteEntriesForOwner(ctx, ownerID)
	if err != nil {
		return 0, fmt.Errorf("clear shelf: %w", err)
	}

	s.logger.Info("shelf cleared", "owner_id", ownerID, "removed", removed)

	if err := s.index.DeleteOwner(ctx, ownerID); err != nil {
		s.logger.Warn("failed to clear owner from search index", "owner_id", ownerID, "error", err)
	}
	s.publish(ctx, ownerID)
	return removed, nil
}

// Stats counts the owner's books per status and measures completed books
// against the profile's reading goal.
func (s *ShelfService) Stats(ctx context.Context, ownerID string) (*domain.ReadingStats, error) {
	goal := domain.DefaultReadingGoal
	if ownerID != "" {
		profile, err := s.store.GetProfile(ctx, ownerID)
		switch {
		case err == nil:
			goal = profile.ReadingGoal
		case !errors.Is(err, store.ErrProfileNotFound):
			return nil, fmt.Errorf("get profile: %w", err)
		}
	}

	entries, err := s.List(ctx, ownerID, domain.ShelfQuery{})
	if err != nil {
		return nil, err
	}

	stats := domain.ComputeReadingStats(entries, goal)
	return &stats, nil
}

// Snapshot builds the current shelf snapshot event for ownerID.
// It is handed to subscription handlers as their initial state.
func (s *ShelfService) Snapshot(ctx context.Context, ownerID string) (sse.Event, error) {
	entries, err := s.List(ctx, ownerID, domain.ShelfQuery{})
	if err != nil {
		return sse.Event{}, err
	}
	return sse.NewShelfSnapshotEvent(ownerID, derefEntries(entries)), nil
}

// mutate runs fn against an existing entry inside a store transaction.
func (s *ShelfService) mutate(ctx context.Context, ownerID, bookID, action string, fn store.EntryMutator) (*domain.ShelfEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ownerID == "" {
		return nil, errAuthRequired()
	}

	entry, err := s.store.UpdateEntry(ctx, ownerID, bookID, fn)
	if errors.Is(err, store.ErrEntryNotFound) {
		s.logger.Debug("ignoring update for unshelved book", "owner_id", ownerID, "book_id", bookID)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update entry: %w", err)
	}

	s.logger.Info(action,
		"owner_id", ownerID,
		"book_id", bookID,
		"status", entry.Status,
	)

	s.reindex(ctx, entry)
	s.publish(ctx, ownerID)
	return entry, nil
}

func (s *ShelfService) reindex(ctx context.Context, entry *domain.ShelfEntry) {
	if err := s.index.IndexEntry(ctx, entry); err != nil {
		s.logger.Warn("failed to index shelf entry",
			"owner_id", entry.OwnerID,
			"book_id", entry.BookID(),
			"error", err,
		)
	}
}

// publish emits the owner's complete shelf to subscribers.
func (s *ShelfService) publish(ctx context.Context, ownerID string) {
	entries, err := s.store.ListEntries(ctx, ownerID)
	if err != nil {
		s.logger.Error("failed to load shelf snapshot", "owner_id", ownerID, "error", err)
		return
	}
	entries = domain.ShelfQuery{}.Apply(entries)
	s.events.Emit(sse.NewShelfSnapshotEvent(ownerID, derefEntries(entries)))
}

func derefEntries(entries []*domain.ShelfEntry) []domain.ShelfEntry {
	out := make([]domain.ShelfEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, *e)
	}
	return out
}
