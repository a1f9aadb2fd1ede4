package domain

import (
	"slices"
	"time"
)

// Review is one reader's rating of a book.
type Review struct {
	OwnerID  string    `json:"owner_id"`
	Username string    `json:"username,omitempty"`
	Rating   float64   `json:"rating"`
	Review   string    `json:"review,omitempty"`
	RatedAt  time.Time `json:"rated_at"`
}

// ReviewSummary aggregates every completed, rated entry for a book across owners.
type ReviewSummary struct {
	BookID        string    `json:"book_id"`
	AverageRating float64   `json:"average_rating"`
	TotalRatings  int       `json:"total_ratings"`
	Reviews       []*Review `json:"reviews"`
}

// SummarizeReviews builds a ReviewSummary from shelf entries of a single book.
// Entries that are not completed or have no rating are ignored.
// usernames maps owner IDs to display names and may be nil.
func SummarizeReviews(bookID string, entries []*ShelfEntry, usernames map[string]string) *ReviewSummary {
	summary := &ReviewSummary{
		BookID:  bookID,
		Reviews: make([]*Review, 0, len(entries)),
	}

	var total float64
	for _, e := range entries {
		if e.BookID() != bookID || !e.CountsAsReview() {
			continue
		}
		total += *e.UserRating

		r := &Review{
			OwnerID:  e.OwnerID,
			Username: usernames[e.OwnerID],
			Rating:   *e.UserRating,
			RatedAt:  e.AddedAt,
		}
		if e.RatedAt != nil {
			r.RatedAt = *e.RatedAt
		}
		if e.Review != nil {
			r.Review = *e.Review
		}
		summary.Reviews = append(summary.Reviews, r)
	}

	summary.TotalRatings = len(summary.Reviews)
	if summary.TotalRatings > 0 {
		summary.AverageRating = total / float64(summary.TotalRatings)
	}

	slices.SortStableFunc(summary.Reviews, func(a, b *Review) int {
		return b.RatedAt.Compare(a.RatedAt)
	})
	return summary
}
