package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bookberryapp/bookberry-server/internal/domain"
	"github.com/bookberryapp/bookberry-server/internal/store"
)

// profileColumns is the ordered list of columns selected in profile queries.
// Must match the scan order in scanProfile.
const profileColumns = `owner_id, reading_goal, username, created_at, updated_at`

func scanProfile(scanner interface{ Scan(dest ...any) error }) (*domain.UserProfile, error) {
	var p domain.UserProfile

	var (
		username  sql.NullString
		createdAt string
		updatedAt string
	)

	err := scanner.Scan(&p.OwnerID, &p.ReadingGoal, &username, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	p.Username = username.String

	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProfile retrieves a profile by owner ID.
// Returns store.ErrProfileNotFound if the owner never saved one.
func (s *Store) GetProfile(ctx context.Context, ownerID string) (*domain.UserProfile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM user_profiles WHERE owner_id = ?`, ownerID)

	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetProfilesByIDs retrieves profiles for multiple owners.
// Missing profiles are omitted from the map.
func (s *Store) GetProfilesByIDs(ctx context.Context, ownerIDs []string) (map[string]*domain.UserProfile, error) {
	profiles := make(map[string]*domain.UserProfile, len(ownerIDs))
	if len(ownerIDs) == 0 {
		return profiles, nil
	}

	placeholders := make([]string, len(ownerIDs))
	args := make([]any, len(ownerIDs))
	for i, id := range ownerIDs {
		placeholders[i] = "?"
		args[i] = id
	}

	query := fmt.Sprintf(
		`SELECT %s FROM user_profiles WHERE owner_id IN (%s)`,
		profileColumns,
		strings.Join(placeholders, ","),
	)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles[p.OwnerID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return profiles, nil
}

// UpsertProfile loads the owner's profile, or starts from a default one,
// applies fn and writes the result in one transaction.
func (s *Store) UpsertProfile(ctx context.Context, ownerID string, fn store.ProfileMutator) (*domain.UserProfile, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	p, err := scanProfile(tx.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM user_profiles WHERE owner_id = ?`, ownerID))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		p = domain.NewUserProfile(ownerID, time.Now())
	case err != nil:
		return nil, err
	}

	fn(p)
	p.UpdatedAt = time.Now()

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO user_profiles (
			owner_id, reading_goal, username, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?)`,
		p.OwnerID,
		p.ReadingGoal,
		nullString(p.Username),
		formatTime(p.CreatedAt),
		formatTime(p.UpdatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return p, nil
}
