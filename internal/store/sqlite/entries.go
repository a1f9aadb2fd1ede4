package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bookberryapp/bookberry-server/internal/domain"
	"github.com/bookberryapp/bookberry-server/internal/store"
)

// entryColumns is the ordered list of columns selected in entry queries.
// Must match the scan order in scanEntry.
const entryColumns = `id, owner_id, book_id, title, authors, description, cover_url, page_count, isbn,
	status, user_rating, review, user_current_page, added_at, updated_at, rated_at`

// scanEntry scans a sql.Row (or sql.Rows via its Scan method) into a domain.ShelfEntry.
func scanEntry(scanner interface{ Scan(dest ...any) error }) (*domain.ShelfEntry, error) {
	var e domain.ShelfEntry

	var (
		authors     string
		description sql.NullString
		coverURL    sql.NullString
		isbn        sql.NullString
		status      string
		rating      sql.NullFloat64
		review      sql.NullString
		currentPage sql.NullInt64
		addedAt     string
		updatedAt   string
		ratedAt     sql.NullString
	)

	err := scanner.Scan(
		&e.EntryID,
		&e.OwnerID,
		&e.Book.ID,
		&e.Title,
		&authors,
		&description,
		&coverURL,
		&e.PageCount,
		&isbn,
		&status,
		&rating,
		&review,
		&currentPage,
		&addedAt,
		&updatedAt,
		&ratedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(authors), &e.Authors); err != nil {
		return nil, fmt.Errorf("decode authors: %w", err)
	}
	e.Description = description.String
	e.CoverURL = coverURL.String
	e.ISBN = isbn.String

	e.Status, err = domain.ParseReadingStatus(status)
	if err != nil {
		return nil, err
	}

	if rating.Valid {
		e.UserRating = &rating.Float64
	}
	if review.Valid {
		e.Review = &review.String
	}
	if currentPage.Valid {
		page := int(currentPage.Int64)
		e.UserCurrentPage = &page
	}

	if e.AddedAt, err = parseTime(addedAt); err != nil {
		return nil, err
	}
	if e.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if e.RatedAt, err = parseNullableTime(ratedAt); err != nil {
		return nil, err
	}

	return &e, nil
}

func scanEntries(rows *sql.Rows) ([]*domain.ShelfEntry, error) {
	defer rows.Close()

	entries := make([]*domain.ShelfEntry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// UpsertEntry inserts a new entry or, on (owner_id, book_id) conflict, moves
// the existing entry to the new status. The book snapshot, progress, rating
// and added_at of an existing entry are preserved.
func (s *Store) UpsertEntry(ctx context.Context, entry *domain.ShelfEntry) (*domain.ShelfEntry, bool, error) {
	authors, err := json.Marshal(entry.AuthorsOrDefault())
	if err != nil {
		return nil, false, fmt.Errorf("encode authors: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO shelf_entries (
			id, owner_id, book_id, title, authors, description, cover_url, page_count, isbn,
			status, user_rating, review, user_current_page, added_at, updated_at, rated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (owner_id, book_id) DO UPDATE SET
			status = excluded.status,
			updated_at = excluded.updated_at`,
		entry.EntryID,
		entry.OwnerID,
		entry.BookID(),
		entry.Title,
		string(authors),
		nullString(entry.Description),
		nullString(entry.CoverURL),
		entry.PageCount,
		nullString(entry.ISBN),
		string(entry.Status),
		nullFloat(entry.UserRating),
		nullableString(entry.Review),
		nullInt(entry.UserCurrentPage),
		formatTime(entry.AddedAt),
		formatTime(entry.UpdatedAt),
		nullTimeString(entry.RatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, false, store.ErrAlreadyExists.WithCause(err)
		}
		return nil, false, fmt.Errorf("upsert entry: %w", err)
	}

	stored, err := scanEntry(tx.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM shelf_entries WHERE owner_id = ? AND book_id = ?`,
		entry.OwnerID, entry.BookID()))
	if err != nil {
		return nil, false, fmt.Errorf("reload entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, false, err
	}
	return stored, stored.EntryID == entry.EntryID, nil
}

// GetEntry retrieves the owner's entry for a book.
// Returns store.ErrEntryNotFound if the owner has not shelved the book.
func (s *Store) GetEntry(ctx context.Context, ownerID, bookID string) (*domain.ShelfEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM shelf_entries WHERE owner_id = ? AND book_id = ?`,
		ownerID, bookID)

	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrEntryNotFound
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// UpdateEntry applies fn to the stored entry and persists its mutable fields.
func (s *Store) UpdateEntry(ctx context.Context, ownerID, bookID string, fn store.EntryMutator) (*domain.ShelfEntry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	e, err := scanEntry(tx.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM shelf_entries WHERE owner_id = ? AND book_id = ?`,
		ownerID, bookID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrEntryNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := fn(e); err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE shelf_entries SET
			status = ?,
			user_rating = ?,
			review = ?,
			user_current_page = ?,
			updated_at = ?,
			rated_at = ?
		WHERE id = ?`,
		string(e.Status),
		nullFloat(e.UserRating),
		nullableString(e.Review),
		nullInt(e.UserCurrentPage),
		formatTime(e.UpdatedAt),
		nullTimeString(e.RatedAt),
		e.EntryID,
	)
	if err != nil {
		return nil, fmt.Errorf("update entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return e, nil
}

// DeleteEntry removes the owner's entry for a book.
// Returns store.ErrEntryNotFound if nothing was deleted.
func (s *Store) DeleteEntry(ctx context.Context, ownerID, bookID string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM shelf_entries WHERE owner_id = ? AND book_id = ?`, ownerID, bookID)
	if err != nil {
		return err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrEntryNotFound
	}
	return nil
}

// DeleteEntriesForOwner removes every entry of the owner in one transaction.
func (s *Store) DeleteEntriesForOwner(ctx context.Context, ownerID string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `DELETE FROM shelf_entries WHERE owner_id = ?`, ownerID)
	if err != nil {
		return 0, fmt.Errorf("clear shelf: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return int(n), nil
}

// ListEntries returns all of the owner's entries, newest first.
func (s *Store) ListEntries(ctx context.Context, ownerID string) ([]*domain.ShelfEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM shelf_entries WHERE owner_id = ? ORDER BY added_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}

// ListAllEntries returns every stored entry, grouped by owner.
func (s *Store) ListAllEntries(ctx context.Context) ([]*domain.ShelfEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM shelf_entries ORDER BY owner_id, added_at DESC`)
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}

// ListReviewedEntries returns completed, rated entries for a book across all owners.
func (s *Store) ListReviewedEntries(ctx context.Context, bookID string) ([]*domain.ShelfEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM shelf_entries
		WHERE book_id = ? AND status = ? AND user_rating IS NOT NULL
		ORDER BY COALESCE(rated_at, added_at) DESC`,
		bookID, string(domain.StatusCompleted))
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}
