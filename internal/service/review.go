package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bookberryapp/bookberry-server/internal/domain"
	domainerrors "github.com/bookberryapp/bookberry-server/internal/errors"
	"github.com/bookberryapp/bookberry-server/internal/store"
)

// ReviewService aggregates ratings for a book across all readers.
type ReviewService struct {
	store  store.Store
	logger *slog.Logger
}

// NewReviewService creates a new review service.
func NewReviewService(st store.Store, logger *slog.Logger) *ReviewService {
	return &ReviewService{store: st, logger: logger}
}

// Summary averages the ratings of every completed, rated entry for bookID and
// lists the reviews newest first with each rater's username.
func (s *ReviewService) Summary(ctx context.Context, bookID string) (*domain.ReviewSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if bookID == "" {
		return nil, domainerrors.Validation("book ID is required")
	}

	entries, err := s.store.ListReviewedEntries(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}

	ownerIDs := make([]string, 0, len(entries))
	for _, e := range entries {
		ownerIDs = append(ownerIDs, e.OwnerID)
	}

	usernames := make(map[string]string, len(ownerIDs))
	if len(ownerIDs) > 0 {
		profiles, err := s.store.GetProfilesByIDs(ctx, ownerIDs)
		if err != nil {
			// Reviews are still useful without names.
			s.logger.Warn("failed to load reviewer profiles", "book_id", bookID, "error", err)
		}
		for ownerID, p := range profiles {
			usernames[ownerID] = p.Username
		}
	}

	return domain.SummarizeReviews(bookID, entries, usernames), nil
}
