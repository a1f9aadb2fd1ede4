package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"
)

var (
	// ErrInvalidRating is returned for ratings outside [0, 5] or not on a half step.
	ErrInvalidRating = errors.New("rating must be between 0 and 5 in steps of 0.5")
	// ErrReviewTooLong is returned for reviews over MaxReviewLength characters.
	ErrReviewTooLong = fmt.Errorf("review must not exceed %d characters", MaxReviewLength)
)

const (
	// MinRating is the lowest rating a reader can give.
	MinRating = 0.0
	// MaxRating is the highest rating a reader can give.
	MaxRating = 5.0
	// MaxReviewLength bounds the free-text review stored with a rating.
	MaxReviewLength = 5000
)

// ShelfEntry is one owner's tracked state for one book.
// There is at most one entry per (OwnerID, Book.ID).
type ShelfEntry struct {
	Book

	EntryID         string        `json:"entry_id"`
	OwnerID         string        `json:"owner_id"`
	Status          ReadingStatus `json:"status"`
	UserRating      *float64      `json:"user_rating,omitempty"`
	Review          *string       `json:"review,omitempty"`
	UserCurrentPage *int          `json:"user_current_page,omitempty"`
	AddedAt         time.Time     `json:"added_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
	RatedAt         *time.Time    `json:"rated_at,omitempty"`
}

// NewShelfEntry creates an entry for a freshly added book.
// An empty status defaults to StatusWantToRead.
func NewShelfEntry(entryID, ownerID string, book Book, status ReadingStatus, now time.Time) *ShelfEntry {
	if status == "" {
		status = StatusWantToRead
	}
	return &ShelfEntry{
		Book:      book,
		EntryID:   entryID,
		OwnerID:   ownerID,
		Status:    status,
		AddedAt:   now,
		UpdatedAt: now,
	}
}

// BookID returns the catalog ID of the tracked book.
func (e *ShelfEntry) BookID() string {
	return e.Book.ID
}

// SetStatus moves the entry to another shelf. AddedAt is left untouched.
func (e *ShelfEntry) SetStatus(status ReadingStatus, now time.Time) {
	e.Status = status
	e.UpdatedAt = now
}

// SetProgress records the current page, clamped to the book's page range.
// Reaching the last page of a book with a known length completes it.
// A completed book is never moved back to reading when the page decreases.
func (e *ShelfEntry) SetProgress(page int, now time.Time) {
	page = ClampPage(page, e.PageCount)
	e.UserCurrentPage = &page
	if e.PageCount > 0 && page >= e.PageCount {
		e.Status = StatusCompleted
	}
	e.UpdatedAt = now
}

// Rate records a rating and optional review and marks the book completed.
func (e *ShelfEntry) Rate(rating float64, review *string, now time.Time) {
	e.UserRating = &rating
	e.Review = review
	e.Status = StatusCompleted
	e.RatedAt = &now
	e.UpdatedAt = now
}

// CountsAsReview reports whether the entry contributes to a book's review summary.
func (e *ShelfEntry) CountsAsReview() bool {
	return e.Status == StatusCompleted && e.UserRating != nil
}

// ClampPage limits page to [0, pageCount]. An unknown page count (0) only
// clamps the lower bound.
func ClampPage(page, pageCount int) int {
	if page < 0 {
		return 0
	}
	if pageCount > 0 && page > pageCount {
		return pageCount
	}
	return page
}

// ValidateRating checks that r is within range and on a half step.
func ValidateRating(r float64) error {
	if math.IsNaN(r) || r < MinRating || r > MaxRating {
		return fmt.Errorf("%w: got %v", ErrInvalidRating, r)
	}
	if r*2 != math.Trunc(r*2) {
		return fmt.Errorf("%w: got %v", ErrInvalidRating, r)
	}
	return nil
}

// NormalizeReview trims a review. Blank reviews become nil.
func NormalizeReview(review *string) (*string, error) {
	if review == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*review)
	if trimmed == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(trimmed) > MaxReviewLength {
		return nil, ErrReviewTooLong
	}
	return &trimmed, nil
}
