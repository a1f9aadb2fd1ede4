package domain

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

// DefaultReadingGoal is the yearly goal given to profiles created implicitly.
const DefaultReadingGoal = 10

// MaxUsernameLength is the maximum number of characters in a username.
const MaxUsernameLength = 50

var (
	// ErrInvalidGoal is returned for reading goals below one book.
	ErrInvalidGoal = errors.New("reading goal must be at least 1")
	// ErrInvalidUsername is returned for empty or overlong usernames.
	ErrInvalidUsername = errors.New("username must be between 1 and 50 characters")
)

// UserProfile holds per-owner reading preferences.
// Profiles are created lazily on the first goal or username update.
type UserProfile struct {
	OwnerID     string    `json:"owner_id"`
	ReadingGoal int       `json:"reading_goal"`
	Username    string    `json:"username,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewUserProfile creates a profile with the default reading goal.
func NewUserProfile(ownerID string, now time.Time) *UserProfile {
	return &UserProfile{
		OwnerID:     ownerID,
		ReadingGoal: DefaultReadingGoal,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// ValidateGoal checks a yearly reading goal.
func ValidateGoal(goal int) error {
	if goal < 1 {
		return ErrInvalidGoal
	}
	return nil
}

// NormalizeUsername trims the name and checks its length.
func NormalizeUsername(name string) (string, error) {
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n == 0 || n > MaxUsernameLength {
		return "", ErrInvalidUsername
	}
	return name, nil
}
