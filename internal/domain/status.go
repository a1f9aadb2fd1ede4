package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidStatus is returned when a value is not one of the known reading statuses.
var ErrInvalidStatus = errors.New("invalid reading status")

// ReadingStatus is the shelf a book sits on for its owner.
type ReadingStatus string

const (
	// StatusWantToRead is the default shelf for newly added books.
	StatusWantToRead ReadingStatus = "WANT_TO_READ"
	// StatusReading marks a book in progress.
	StatusReading ReadingStatus = "READING"
	// StatusCompleted marks a finished book. Ratings only count here.
	StatusCompleted ReadingStatus = "COMPLETED"
)

// ReadingStatuses lists every valid status in shelf order.
var ReadingStatuses = []ReadingStatus{StatusWantToRead, StatusReading, StatusCompleted}

// ParseReadingStatus converts a raw value into a ReadingStatus.
// Matching is case-insensitive and accepts dashes in place of underscores.
func ParseReadingStatus(s string) (ReadingStatus, error) {
	normalized := ReadingStatus(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")))
	if normalized.Valid() {
		return normalized, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// Valid reports whether s is one of the known statuses.
func (s ReadingStatus) Valid() bool {
	switch s {
	case StatusWantToRead, StatusReading, StatusCompleted:
		return true
	}
	return false
}

func (s ReadingStatus) String() string {
	return string(s)
}

// UnmarshalText implements encoding.TextUnmarshaler so decoded statuses are
// always valid.
func (s *ReadingStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseReadingStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
