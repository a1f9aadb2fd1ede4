package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bookberryapp/bookberry-server/internal/domain"
	domainerrors "github.com/bookberryapp/bookberry-server/internal/errors"
	"github.com/bookberryapp/bookberry-server/internal/sse"
	"github.com/bookberryapp/bookberry-server/internal/store"
)

// ProfileService manages reading goals and usernames.
type ProfileService struct {
	store  store.Store
	events EventEmitter
	logger *slog.Logger
}

// NewProfileService creates a new profile service.
func NewProfileService(st store.Store, events EventEmitter, logger *slog.Logger) *ProfileService {
	if events == nil {
		events = NewNoopEmitter()
	}
	return &ProfileService{
		store:  st,
		events: events,
		logger: logger,
	}
}

// GetOwn returns the caller's profile, or nil when unauthenticated or when no
// profile has been saved yet.
func (s *ProfileService) GetOwn(ctx context.Context, ownerID string) (*domain.UserProfile, error) {
	if ownerID == "" {
		return nil, nil
	}
	return s.get(ctx, ownerID)
}

// GetPublic returns any owner's profile, or nil when none exists.
func (s *ProfileService) GetPublic(ctx context.Context, ownerID string) (*domain.UserProfile, error) {
	if ownerID == "" {
		return nil, domainerrors.Validation("user ID is required")
	}
	return s.get(ctx, ownerID)
}

func (s *ProfileService) get(ctx context.Context, ownerID string) (*domain.UserProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	profile, err := s.store.GetProfile(ctx, ownerID)
	if errors.Is(err, store.ErrProfileNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return profile, nil
}

// UpdateGoal sets the yearly reading goal, creating the profile if needed.
func (s *ProfileService) UpdateGoal(ctx context.Context, ownerID string, goal int) (*domain.UserProfile, error) {
	if err := domain.ValidateGoal(goal); err != nil {
		return nil, domainerrors.ValidationWithDetails(err.Error(), map[string]string{"goal": "must be at least 1"})
	}
	return s.upsert(ctx, ownerID, "reading goal updated", func(p *domain.UserProfile) {
		p.ReadingGoal = goal
	})
}

// UpdateUsername sets the display username, creating the profile with the
// default goal if needed. The name is trimmed and must be 1 to 50 characters.
func (s *ProfileService) UpdateUsername(ctx context.Context, ownerID, username string) (*domain.UserProfile, error) {
	name, err := domain.NormalizeUsername(username)
	if err != nil {
		return nil, domainerrors.ValidationWithDetails(err.Error(), map[string]string{"username": "must be 1 to 50 characters"})
	}
	return s.upsert(ctx, ownerID, "username updated", func(p *domain.UserProfile) {
		p.Username = name
	})
}

func (s *ProfileService) upsert(ctx context.Context, ownerID, action string, fn store.ProfileMutator) (*domain.UserProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ownerID == "" {
		return nil, errAuthRequired()
	}

	profile, err := s.store.UpsertProfile(ctx, ownerID, fn)
	if err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}

	s.logger.Info(action,
		"owner_id", ownerID,
		"reading_goal", profile.ReadingGoal,
		"username", profile.Username,
	)

	s.events.Emit(sse.NewProfileUpdatedEvent(profile))
	return profile, nil
}
