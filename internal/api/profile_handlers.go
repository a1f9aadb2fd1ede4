package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/bookberryapp/bookberry-server/internal/domain"
)

func (s *Server) registerProfileRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getOwnProfile",
		Method:      http.MethodGet,
		Path:        "/api/v1/profile",
		Summary:     "Get my profile",
		Description: "Returns the caller's profile, or null when none has been created yet",
		Tags:        []string{"Profile"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetOwnProfile)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateReadingGoal",
		Method:      http.MethodPut,
		Path:        "/api/v1/profile/goal",
		Summary:     "Update reading goal",
		Description: "Sets the yearly reading goal, creating the profile if needed",
		Tags:        []string{"Profile"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateReadingGoal)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateUsername",
		Method:      http.MethodPut,
		Path:        "/api/v1/profile/username",
		Summary:     "Update username",
		Description: "Sets the public username, creating the profile if needed",
		Tags:        []string{"Profile"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateUsername)
}

// === DTOs ===

// GetOwnProfileInput contains parameters for reading the caller's profile.
type GetOwnProfileInput struct {
	Authorization string `header:"Authorization"`
}

// ProfileOutput wraps a profile for Huma. A nil body encodes as null.
type ProfileOutput struct {
	Body *domain.UserProfile
}

// UpdateGoalRequest is the request body for changing the reading goal.
type UpdateGoalRequest struct {
	Goal int `json:"goal" doc:"Books to read this year, at least 1"`
}

// UpdateGoalInput wraps the goal request for Huma.
type UpdateGoalInput struct {
	Authorization string `header:"Authorization"`
	Body          UpdateGoalRequest
}

// UpdateUsernameRequest is the request body for changing the username.
type UpdateUsernameRequest struct {
	Username string `json:"username" doc:"Display name, 1 to 50 characters after trimming"`
}

// UpdateUsernameInput wraps the username request for Huma.
type UpdateUsernameInput struct {
	Authorization string `header:"Authorization"`
	Body          UpdateUsernameRequest
}

// === Handlers ===

func (s *Server) handleGetOwnProfile(ctx context.Context, _ *GetOwnProfileInput) (*ProfileOutput, error) {
	profile, err := s.services.Profile.GetOwn(ctx, OptionalUserID(ctx))
	if err != nil {
		return nil, err
	}
	return &ProfileOutput{Body: profile}, nil
}

func (s *Server) handleUpdateReadingGoal(ctx context.Context, input *UpdateGoalInput) (*ProfileOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	profile, err := s.services.Profile.UpdateGoal(ctx, userID, input.Body.Goal)
	if err != nil {
		return nil, err
	}
	return &ProfileOutput{Body: profile}, nil
}

func (s *Server) handleUpdateUsername(ctx context.Context, input *UpdateUsernameInput) (*ProfileOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	profile, err := s.services.Profile.UpdateUsername(ctx, userID, input.Body.Username)
	if err != nil {
		return nil, err
	}
	return &ProfileOutput{Body: profile}, nil
}
