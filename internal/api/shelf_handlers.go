package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/bookberryapp/bookberry-server/internal/domain"
)

func (s *Server) registerShelfRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listShelf",
		Method:      http.MethodGet,
		Path:        "/api/v1/shelf",
		Summary:     "List my shelf",
		Description: "Returns the caller's tracked books, optionally filtered by status. Anonymous callers get an empty list.",
		Tags:        []string{"Shelf"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListShelf)

	huma.Register(s.api, huma.Operation{
		OperationID: "searchShelf",
		Method:      http.MethodGet,
		Path:        "/api/v1/shelf/search",
		Summary:     "Search my shelf",
		Description: "Full-text search over titles, authors and reviews of the caller's books",
		Tags:        []string{"Shelf"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleSearchShelf)

	huma.Register(s.api, huma.Operation{
		OperationID: "getShelfStats",
		Method:      http.MethodGet,
		Path:        "/api/v1/shelf/stats",
		Summary:     "Reading stats",
		Description: "Counts books per status and measures completed books against the reading goal",
		Tags:        []string{"Shelf"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleShelfStats)

	huma.Register(s.api, huma.Operation{
		OperationID: "getShelfEntry",
		Method:      http.MethodGet,
		Path:        "/api/v1/shelf/{bookId}",
		Summary:     "Get shelf entry",
		Description: "Returns the caller's entry for a book, or null when the book is not on the shelf",
		Tags:        []string{"Shelf"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetShelfEntry)

	huma.Register(s.api, huma.Operation{
		OperationID: "addToShelf",
		Method:      http.MethodPost,
		Path:        "/api/v1/shelf",
		Summary:     "Add book to shelf",
		Description: "Adds a book to the shelf. If it is already there only the status changes.",
		Tags:        []string{"Shelf"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleAddToShelf)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateShelfStatus",
		Method:      http.MethodPut,
		Path:        "/api/v1/shelf/{bookId}/status",
		Summary:     "Update reading status",
		Description: "Moves a book to another shelf. Returns null when the book is not on the shelf.",
		Tags:        []string{"Shelf"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateShelfStatus)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateShelfProgress",
		Method:      http.MethodPut,
		Path:        "/api/v1/shelf/{bookId}/progress",
		Summary:     "Update reading progress",
		Description: "Records the current page. Reaching the last page completes the book.",
		Tags:        []string{"Shelf"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateShelfProgress)

	huma.Register(s.api, huma.Operation{
		OperationID: "rateShelfEntry",
		Method:      http.MethodPut,
		Path:        "/api/v1/shelf/{bookId}/rating",
		Summary:     "Rate book",
		Description: "Rates a book from 0 to 5 in half steps with an optional review and marks it completed",
		Tags:        []string{"Shelf"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleRateShelfEntry)

	huma.Register(s.api, huma.Operation{
		OperationID: "removeFromShelf",
		Method:      http.MethodDelete,
		Path:        "/api/v1/shelf/{bookId}",
		Summary:     "Remove book from shelf",
		Description: "Removes a book from the caller's shelf",
		Tags:        []string{"Shelf"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleRemoveFromShelf)

	huma.Register(s.api, huma.Operation{
		OperationID: "clearShelf",
		Method:      http.MethodDelete,
		Path:        "/api/v1/shelf",
		Summary:     "Clear shelf",
		Description: "Removes every book from the caller's shelf. Does nothing for anonymous callers.",
		Tags:        []string{"Shelf"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleClearShelf)
}

// === DTOs ===

// ListShelfInput contains parameters for listing the shelf.
type ListShelfInput struct {
	Authorization string `header:"Authorization"`
	Status        string `query:"status" doc:"Filter by status: WANT_TO_READ, READING or COMPLETED"`
	Sort          string `query:"sort" doc:"Sort order: date (default), rating or title"`
}

// ShelfListResponse contains a list of shelf entries.
type ShelfListResponse struct {
	Entries []*domain.ShelfEntry `json:"entries" doc:"Shelf entries"`
}

// ShelfListOutput wraps a shelf list for Huma.
type ShelfListOutput struct {
	Body ShelfListResponse
}

// ShelfEntryInput identifies one book on the caller's shelf.
type ShelfEntryInput struct {
	Authorization string `header:"Authorization"`
	BookID        string `path:"bookId" doc:"Catalog book ID"`
}

// ShelfEntryOutput wraps a single entry for Huma. A nil body encodes as null.
type ShelfEntryOutput struct {
	Body *domain.ShelfEntry
}

// BookRequest is the catalog snapshot sent when adding a book.
type BookRequest struct {
	ID          string   `json:"id" minLength:"1" maxLength:"128" doc:"Catalog book ID"`
	Title       string   `json:"title" minLength:"1" maxLength:"1000" doc:"Book title"`
	Authors     []string `json:"authors,omitempty" doc:"Author names"`
	Description string   `json:"description,omitempty" doc:"Description in Markdown"`
	CoverURL    string   `json:"cover_url,omitempty" doc:"HTTPS cover image URL"`
	PageCount   int      `json:"page_count,omitempty" minimum:"0" doc:"Number of pages, 0 when unknown"`
	ISBN        string   `json:"isbn,omitempty" doc:"ISBN-13 or ISBN-10"`
}

func (r BookRequest) toDomain() domain.Book {
	return domain.Book{
		ID:          r.ID,
		Title:       r.Title,
		Authors:     r.Authors,
		Description: r.Description,
		CoverURL:    r.CoverURL,
		PageCount:   r.PageCount,
		ISBN:        r.ISBN,
	}
}

// AddToShelfRequest is the request body for adding a book.
type AddToShelfRequest struct {
	Book   BookRequest `json:"book" doc:"Book snapshot"`
	Status string      `json:"status,omitempty" doc:"Initial status, defaults to WANT_TO_READ"`
}

// AddToShelfInput wraps the add request for Huma.
type AddToShelfInput struct {
	Authorization string `header:"Authorization"`
	Body          AddToShelfRequest
}

// UpdateStatusRequest is the request body for changing status.
type UpdateStatusRequest struct {
	Status string `json:"status" minLength:"1" doc:"New status"`
}

// UpdateStatusInput wraps the status request for Huma.
type UpdateStatusInput struct {
	Authorization string `header:"Authorization"`
	BookID        string `path:"bookId" doc:"Catalog book ID"`
	Body          UpdateStatusRequest
}

// UpdateProgressRequest is the request body for recording progress.
type UpdateProgressRequest struct {
	Page int `json:"page" doc:"Current page, clamped to the book's page range"`
}

// UpdateProgressInput wraps the progress request for Huma.
type UpdateProgressInput struct {
	Authorization string `header:"Authorization"`
	BookID        string `path:"bookId" doc:"Catalog book ID"`
	Body          UpdateProgressRequest
}

// RateRequest is the request body for rating a book.
type RateRequest struct {
	Rating float64 `json:"rating" doc:"Rating from 0 to 5 in steps of 0.5"`
	Review *string `json:"review,omitempty" doc:"Optional review text"`
}

// RateInput wraps the rating request for Huma.
type RateInput struct {
	Authorization string `header:"Authorization"`
	BookID        string `path:"bookId" doc:"Catalog book ID"`
	Body          RateRequest
}

// ClearShelfInput contains parameters for clearing the shelf.
type ClearShelfInput struct {
	Authorization string `header:"Authorization"`
}

// ClearShelfResponse reports how many entries were removed.
type ClearShelfResponse struct {
	Removed int `json:"removed" doc:"Number of removed entries"`
}

// ClearShelfOutput wraps the clear response for Huma.
type ClearShelfOutput struct {
	Body ClearShelfResponse
}

// SearchShelfInput contains parameters for searching the shelf.
type SearchShelfInput struct {
	Authorization string `header:"Authorization"`
	Query         string `query:"q" doc:"Search text"`
	Status        string `query:"status" doc:"Filter by status"`
	Limit         int    `query:"limit" default:"20" minimum:"1" maximum:"100" doc:"Maximum results"`
}

// ShelfStatsInput contains parameters for reading stats.
type ShelfStatsInput struct {
	Authorization string `header:"Authorization"`
}

// ShelfStatsOutput wraps reading stats for Huma.
type ShelfStatsOutput struct {
	Body *domain.ReadingStats
}

// === Handlers ===

func (s *Server) handleListShelf(ctx context.Context, input *ListShelfInput) (*ShelfListOutput, error) {
	q, err := parseShelfQuery(input.Status, input.Sort)
	if err != nil {
		return nil, err
	}

	entries, err := s.services.Shelf.List(ctx, OptionalUserID(ctx), q)
	if err != nil {
		return nil, err
	}
	return &ShelfListOutput{Body: ShelfListResponse{Entries: entriesOrEmpty(entries)}}, nil
}

func (s *Server) handleSearchShelf(ctx context.Context, input *SearchShelfInput) (*ShelfListOutput, error) {
	if s.services.Search == nil {
		return nil, huma.Error503ServiceUnavailable("Shelf search is not available")
	}

	var status domain.ReadingStatus
	if input.Status != "" {
		st, err := parseStatus(input.Status)
		if err != nil {
			return nil, err
		}
		status = st
	}

	entries, err := s.services.Search.Search(ctx, OptionalUserID(ctx), input.Query, status, input.Limit)
	if err != nil {
		return nil, err
	}
	return &ShelfListOutput{Body: ShelfListResponse{Entries: entriesOrEmpty(entries)}}, nil
}

func (s *Server) handleShelfStats(ctx context.Context, _ *ShelfStatsInput) (*ShelfStatsOutput, error) {
	stats, err := s.services.Shelf.Stats(ctx, OptionalUserID(ctx))
	if err != nil {
		return nil, err
	}
	return &ShelfStatsOutput{Body: stats}, nil
}

func (s *Server) handleGetShelfEntry(ctx context.Context, input *ShelfEntryInput) (*ShelfEntryOutput, error) {
	entry, err := s.services.Shelf.Get(ctx, OptionalUserID(ctx), input.BookID)
	if err != nil {
		return nil, err
	}
	return &ShelfEntryOutput{Body: entry}, nil
}

func (s *Server) handleAddToShelf(ctx context.Context, input *AddToShelfInput) (*ShelfEntryOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	var status domain.ReadingStatus
	if input.Body.Status != "" {
		if status, err = parseStatus(input.Body.Status); err != nil {
			return nil, err
		}
	}

	entry, err := s.services.Shelf.AddOrUpsert(ctx, userID, input.Body.Book.toDomain(), status)
	if err != nil {
		return nil, err
	}
	return &ShelfEntryOutput{Body: entry}, nil
}

func (s *Server) handleUpdateShelfStatus(ctx context.Context, input *UpdateStatusInput) (*ShelfEntryOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	status, err := parseStatus(input.Body.Status)
	if err != nil {
		return nil, err
	}

	entry, err := s.services.Shelf.UpdateStatus(ctx, userID, input.BookID, status)
	if err != nil {
		return nil, err
	}
	return &ShelfEntryOutput{Body: entry}, nil
}

func (s *Server) handleUpdateShelfProgress(ctx context.Context, input *UpdateProgressInput) (*ShelfEntryOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	entry, err := s.services.Shelf.UpdateProgress(ctx, userID, input.BookID, input.Body.Page)
	if err != nil {
		return nil, err
	}
	return &ShelfEntryOutput{Body: entry}, nil
}

func (s *Server) handleRateShelfEntry(ctx context.Context, input *RateInput) (*ShelfEntryOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	entry, err := s.services.Shelf.Rate(ctx, userID, input.BookID, input.Body.Rating, input.Body.Review)
	if err != nil {
		return nil, err
	}
	return &ShelfEntryOutput{Body: entry}, nil
}

func (s *Server) handleRemoveFromShelf(ctx context.Context, input *ShelfEntryInput) (*MessageOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.Shelf.Remove(ctx, userID, input.BookID); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "Book removed from shelf"}}, nil
}

func (s *Server) handleClearShelf(ctx context.Context, _ *ClearShelfInput) (*ClearShelfOutput, error) {
	removed, err := s.services.Shelf.ClearAll(ctx, OptionalUserID(ctx))
	if err != nil {
		return nil, err
	}
	return &ClearShelfOutput{Body: ClearShelfResponse{Removed: removed}}, nil
}
