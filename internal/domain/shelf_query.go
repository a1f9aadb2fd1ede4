package domain

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// ShelfSort selects the ordering of a shelf listing.
type ShelfSort string

const (
	// SortByDate lists the most recently added books first.
	SortByDate ShelfSort = "date"
	// SortByRating lists the highest rated books first, unrated last.
	SortByRating ShelfSort = "rating"
	// SortByTitle lists books alphabetically by title.
	SortByTitle ShelfSort = "title"
)

// ParseShelfSort converts a raw value into a ShelfSort. Empty means SortByDate.
func ParseShelfSort(s string) (ShelfSort, error) {
	switch ShelfSort(strings.ToLower(strings.TrimSpace(s))) {
	case "", SortByDate:
		return SortByDate, nil
	case SortByRating:
		return SortByRating, nil
	case SortByTitle:
		return SortByTitle, nil
	}
	return "", fmt.Errorf("unknown sort order %q", s)
}

// ShelfQuery narrows and orders a shelf listing.
// The zero value lists every entry, newest first.
type ShelfQuery struct {
	Status ReadingStatus
	Sort   ShelfSort
}

// Apply filters and sorts entries in place and returns the filtered slice.
func (q ShelfQuery) Apply(entries []*ShelfEntry) []*ShelfEntry {
	if q.Status != "" {
		entries = slices.DeleteFunc(entries, func(e *ShelfEntry) bool {
			return e.Status != q.Status
		})
	}

	switch q.Sort {
	case SortByRating:
		slices.SortStableFunc(entries, func(a, b *ShelfEntry) int {
			switch {
			case a.UserRating == nil && b.UserRating == nil:
				return b.AddedAt.Compare(a.AddedAt)
			case a.UserRating == nil:
				return 1
			case b.UserRating == nil:
				return -1
			case *a.UserRating != *b.UserRating:
				if *a.UserRating > *b.UserRating {
					return -1
				}
				return 1
			}
			return b.AddedAt.Compare(a.AddedAt)
		})
	case SortByTitle:
		// Collators are not safe for concurrent use.
		c := collate.New(language.English, collate.IgnoreCase, collate.Loose)
		slices.SortStableFunc(entries, func(a, b *ShelfEntry) int {
			return c.CompareString(a.Title, b.Title)
		})
	default:
		slices.SortStableFunc(entries, func(a, b *ShelfEntry) int {
			return b.AddedAt.Compare(a.AddedAt)
		})
	}
	return entries
}
