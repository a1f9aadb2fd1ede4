package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/bookberryapp/bookberry-server/internal/domain"
)

// registerPublicRoutes registers routes that need no authentication:
// other readers' profiles and shelves, and per-book review summaries.
func (s *Server) registerPublicRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getPublicProfile",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/{userId}/profile",
		Summary:     "Get public profile",
		Description: "Returns a reader's profile together with their reading stats",
		Tags:        []string{"Users"},
	}, s.handleGetPublicProfile)

	huma.Register(s.api, huma.Operation{
		OperationID: "getPublicShelf",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/{userId}/shelf",
		Summary:     "Get public shelf",
		Description: "Returns a reader's shelf, optionally filtered by status",
		Tags:        []string{"Users"},
	}, s.handleGetPublicShelf)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBookReviews",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{bookId}/reviews",
		Summary:     "Get book reviews",
		Description: "Returns the average rating and reviews of a book across all readers",
		Tags:        []string{"Reviews"},
	}, s.handleGetBookReviews)
}

// === DTOs ===

// UserPathInput identifies another reader.
type UserPathInput struct {
	UserID string `path:"userId" doc:"Reader ID"`
}

// PublicProfileResponse is a reader's profile with their stats.
type PublicProfileResponse struct {
	Profile *domain.UserProfile  `json:"profile" doc:"Profile, null when the reader never created one"`
	Stats   *domain.ReadingStats `json:"stats" doc:"Reading stats"`
}

// PublicProfileOutput wraps the public profile for Huma.
type PublicProfileOutput struct {
	Body PublicProfileResponse
}

// PublicShelfInput contains parameters for reading another reader's shelf.
type PublicShelfInput struct {
	UserID string `path:"userId" doc:"Reader ID"`
	Status string `query:"status" doc:"Filter by status"`
	Sort   string `query:"sort" doc:"Sort order: date (default), rating or title"`
}

// BookReviewsInput identifies a book.
type BookReviewsInput struct {
	BookID string `path:"bookId" doc:"Catalog book ID"`
}

// ReviewSummaryOutput wraps a review summary for Huma.
type ReviewSummaryOutput struct {
	Body *domain.ReviewSummary
}

// === Handlers ===

func (s *Server) handleGetPublicProfile(ctx context.Context, input *UserPathInput) (*PublicProfileOutput, error) {
	profile, err := s.services.Profile.GetPublic(ctx, input.UserID)
	if err != nil {
		return nil, err
	}

	stats, err := s.services.Shelf.Stats(ctx, input.UserID)
	if err != nil {
		return nil, err
	}

	return &PublicProfileOutput{Body: PublicProfileResponse{Profile: profile, Stats: stats}}, nil
}

func (s *Server) handleGetPublicShelf(ctx context.Context, input *PublicShelfInput) (*ShelfListOutput, error) {
	q, err := parseShelfQuery(input.Status, input.Sort)
	if err != nil {
		return nil, err
	}

	entries, err := s.services.Shelf.ListPublic(ctx, input.UserID, q)
	if err != nil {
		return nil, err
	}
	return &ShelfListOutput{Body: ShelfListResponse{Entries: entriesOrEmpty(entries)}}, nil
}

func (s *Server) handleGetBookReviews(ctx context.Context, input *BookReviewsInput) (*ReviewSummaryOutput, error) {
	summary, err := s.services.Review.Summary(ctx, input.BookID)
	if err != nil {
		return nil, err
	}
	return &ReviewSummaryOutput{Body: summary}, nil
}
