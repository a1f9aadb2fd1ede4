// Package local implements client.Library on an on-device Badger database.
//
// The whole shelf is stored as one JSON array under a single key. A missing
// key is an empty shelf and emptying the shelf deletes the key.
package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/bookberryapp/bookberry-server/internal/client"
	"github.com/bookberryapp/bookberry-server/internal/domain"
	domainerrors "github.com/bookberryapp/bookberry-server/internal/errors"
	"github.com/bookberryapp/bookberry-server/internal/validation"
)

// StorageKey is the Badger key holding the serialized shelf.
const StorageKey = "bookberry-library"

// DefaultOwnerID owns every entry of a local shelf.
const DefaultOwnerID = "local"

var _ client.Library = (*Library)(nil)

// ErrClosed is returned by operations on a closed library.
var ErrClosed = errors.New("local library is closed")

// Options configures a local library.
type Options struct {
	// Path is the Badger directory. Ignored when InMemory is set.
	Path     string
	InMemory bool
	// OwnerID is recorded on entries; defaults to DefaultOwnerID.
	OwnerID string
}

// Library is a client.Library persisted in Badger. It never reports Loading.
type Library struct {
	db        *badger.DB
	ownerID   string
	state     *client.Holder
	validator *validation.Validator
	logger    *slog.Logger
	now       func() time.Time

	// mu serializes read-modify-write cycles on StorageKey.
	mu     sync.Mutex
	closed bool
}

// Open opens or creates the Badger database and loads the stored shelf.
func Open(opts Options, logger *slog.Logger) (*Library, error) {
	if opts.Path == "" && !opts.InMemory {
		return nil, errors.New("local library path is required")
	}
	if opts.OwnerID == "" {
		opts.OwnerID = DefaultOwnerID
	}

	bopts := badger.DefaultOptions(opts.Path)
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	}
	bopts.Logger = nil
	bopts.SyncWrites = true

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}

	l := &Library{
		db:        db,
		ownerID:   opts.OwnerID,
		validator: validation.New(),
		logger:    logger,
		now:       time.Now,
	}

	entries, err := l.load()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	l.state = client.NewHolder(client.State{Entries: entries})

	logger.Debug("local library opened", "path", opts.Path, "in_memory", opts.InMemory, "entries", len(entries))
	return l, nil
}

// AddBook puts book on the shelf. A book already on the shelf only changes status.
func (l *Library) AddBook(ctx context.Context, book domain.Book, status domain.ReadingStatus) error {
	if status != "" && !status.Valid() {
		return domainerrors.Validationf("invalid status %q", status)
	}

	book.Title = strings.TrimSpace(book.Title)
	book.Authors = book.AuthorsOrDefault()
	if err := l.validator.Validate(&book); err != nil {
		return err
	}

	return l.modify(ctx, func(entries []domain.ShelfEntry) ([]domain.ShelfEntry, bool) {
		now := l.now()
		if i := indexOf(entries, book.ID); i >= 0 {
			if status == "" {
				status = domain.StatusWantToRead
			}
			entries[i].SetStatus(status, now)
			return entries, true
		}

		entry := domain.NewShelfEntry(uuid.NewString(), l.ownerID, book, status, now)
		return append([]domain.ShelfEntry{*entry}, entries...), true
	})
}

// UpdateBookStatus moves a shelved book to another status.
func (l *Library) UpdateBookStatus(ctx context.Context, bookID string, status domain.ReadingStatus) error {
	if !status.Valid() {
		return domainerrors.Validationf("invalid status %q", status)
	}
	return l.update(ctx, bookID, func(e *domain.ShelfEntry, now time.Time) {
		e.SetStatus(status, now)
	})
}

// UpdateProgress records the current page of a shelved book.
func (l *Library) UpdateProgress(ctx context.Context, bookID string, page int) error {
	return l.update(ctx, bookID, func(e *domain.ShelfEntry, now time.Time) {
		e.SetProgress(page, now)
	})
}

// RateBook rates a shelved book and marks it completed.
func (l *Library) RateBook(ctx context.Context, bookID string, rating float64, review *string) error {
	if err := domain.ValidateRating(rating); err != nil {
		return domainerrors.Validation(err.Error())
	}
	review, err := domain.NormalizeReview(review)
	if err != nil {
		return domainerrors.Validation(err.Error())
	}
	return l.update(ctx, bookID, func(e *domain.ShelfEntry, now time.Time) {
		e.Rate(rating, review, now)
	})
}

// RemoveBook deletes a book from the shelf. Unknown books are ignored.
func (l *Library) RemoveBook(ctx context.Context, bookID string) error {
	return l.modify(ctx, func(entries []domain.ShelfEntry) ([]domain.ShelfEntry, bool) {
		i := indexOf(entries, bookID)
		if i < 0 {
			return entries, false
		}
		return slices.Delete(entries, i, i+1), true
	})
}

// ClearLibrary removes every book.
func (l *Library) ClearLibrary(ctx context.Context) error {
	return l.modify(ctx, func(entries []domain.ShelfEntry) ([]domain.ShelfEntry, bool) {
		return nil, len(entries) > 0
	})
}

// Refresh reloads the shelf from disk and republishes it.
func (l *Library) Refresh(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}

	entries, err := l.load()
	if err != nil {
		l.mu.Unlock()
		return err
	}
	notify := l.state.Replace(client.State{Entries: entries})
	l.mu.Unlock()

	notify()
	return nil
}

// Library returns the current shelf.
func (l *Library) Library() client.State {
	return l.state.Get()
}

// Subscribe registers fn for state changes.
func (l *Library) Subscribe(fn func(client.State)) (cancel func()) {
	return l.state.Subscribe(fn)
}

// Close closes the Badger database. It is safe to call more than once.
func (l *Library) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.db.Close()
}

// Shutdown implements do.ShutdownerWithError.
func (l *Library) Shutdown() error {
	return l.Close()
}

// update applies fn to the entry for bookID. Unknown books are ignored.
func (l *Library) update(ctx context.Context, bookID string, fn func(*domain.ShelfEntry, time.Time)) error {
	return l.modify(ctx, func(entries []domain.ShelfEntry) ([]domain.ShelfEntry, bool) {
		i := indexOf(entries, bookID)
		if i < 0 {
			l.logger.Debug("ignoring update for unshelved book", "book_id", bookID)
			return entries, false
		}
		fn(&entries[i], l.now())
		return entries, true
	})
}

// modify loads the shelf, applies fn and, when fn reports a change, saves
// and publishes the result.
func (l *Library) modify(ctx context.Context, fn func([]domain.ShelfEntry) ([]domain.ShelfEntry, bool)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	notify, err := l.apply(fn)
	if err != nil {
		return err
	}
	notify()
	return nil
}

// apply runs one locked read-modify-write cycle. The stored state is
// replaced under the lock; subscribers are notified by the caller after it
// is released, so they may call back into the library.
func (l *Library) apply(fn func([]domain.ShelfEntry) ([]domain.ShelfEntry, bool)) (notify func(), err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, ErrClosed
	}

	entries, err := l.load()
	if err != nil {
		return nil, err
	}

	next, changed := fn(entries)
	if !changed {
		return func() {}, nil
	}
	if err := l.save(next); err != nil {
		return nil, err
	}

	return l.state.Replace(client.State{Entries: next}), nil
}

func (l *Library) load() ([]domain.ShelfEntry, error) {
	var entries []domain.ShelfEntry
	err := l.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(StorageKey))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if err := json.Unmarshal(val, &entries); err != nil {
				return fmt.Errorf("decode stored shelf: %w", err)
			}
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return []domain.ShelfEntry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load shelf: %w", err)
	}
	return entries, nil
}

func (l *Library) save(entries []domain.ShelfEntry) error {
	if len(entries) == 0 {
		err := l.db.Update(func(txn *badger.Txn) error {
			return txn.Delete([]byte(StorageKey))
		})
		if err != nil {
			return fmt.Errorf("delete shelf: %w", err)
		}
		return nil
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal shelf: %w", err)
	}
	if err := l.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(StorageKey), data)
	}); err != nil {
		return fmt.Errorf("save shelf: %w", err)
	}
	return nil
}

func indexOf(entries []domain.ShelfEntry, bookID string) int {
	return slices.IndexFunc(entries, func(e domain.ShelfEntry) bool {
		return e.BookID() == bookID
	})
}
