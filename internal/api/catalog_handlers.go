package api

import (
	"context"
	"net"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/bookberryapp/bookberry-server/internal/domain"
)

func (s *Server) registerCatalogRoutes() {
	limited := huma.Middlewares{s.catalogRateLimit}

	huma.Register(s.api, huma.Operation{
		OperationID: "searchCatalog",
		Method:      http.MethodGet,
		Path:        "/api/v1/catalog/search",
		Summary:     "Search catalog",
		Description: "Searches the external book catalog",
		Tags:        []string{"Catalog"},
		Middlewares: limited,
	}, s.handleSearchCatalog)

	huma.Register(s.api, huma.Operation{
		OperationID: "getCatalogBook",
		Method:      http.MethodGet,
		Path:        "/api/v1/catalog/books/{bookId}",
		Summary:     "Get catalog book",
		Description: "Looks up a single book in the external catalog",
		Tags:        []string{"Catalog"},
		Middlewares: limited,
	}, s.handleGetCatalogBook)
}

// catalogRateLimit limits catalog routes per client IP. chi's RealIP
// middleware has already resolved forwarded addresses into RemoteAddr.
func (s *Server) catalogRateLimit(ctx huma.Context, next func(huma.Context)) {
	key := clientIP(ctx.RemoteAddr())
	if !s.catalogLimiter.Allow(key) {
		s.logger.Warn("catalog rate limit exceeded", "ip", key, "path", ctx.URL().Path)
		ctx.SetHeader("Retry-After", "1")
		_ = huma.WriteErr(s.api, ctx, http.StatusTooManyRequests, "Too many catalog requests. Please try again later.")
		return
	}
	next(ctx)
}

// clientIP strips the port from a remote address.
func clientIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

// === DTOs ===

// SearchCatalogInput contains parameters for a catalog search.
type SearchCatalogInput struct {
	Query string `query:"q" doc:"Search text"`
}

// CatalogSearchResponse contains catalog search results.
type CatalogSearchResponse struct {
	Books []domain.Book `json:"books" doc:"Matching books"`
}

// CatalogSearchOutput wraps catalog results for Huma.
type CatalogSearchOutput struct {
	Body CatalogSearchResponse
}

// GetCatalogBookInput identifies a catalog book.
type GetCatalogBookInput struct {
	BookID string `path:"bookId" doc:"Catalog book ID"`
}

// CatalogBookOutput wraps a catalog book for Huma.
type CatalogBookOutput struct {
	Body *domain.Book
}

// === Handlers ===

func (s *Server) handleSearchCatalog(ctx context.Context, input *SearchCatalogInput) (*CatalogSearchOutput, error) {
	books, err := s.services.Catalog.Search(ctx, input.Query)
	if err != nil {
		return nil, err
	}
	if books == nil {
		books = []domain.Book{}
	}
	return &CatalogSearchOutput{Body: CatalogSearchResponse{Books: books}}, nil
}

func (s *Server) handleGetCatalogBook(ctx context.Context, input *GetCatalogBookInput) (*CatalogBookOutput, error) {
	book, err := s.services.Catalog.GetBook(ctx, input.BookID)
	if err != nil {
		return nil, err
	}
	return &CatalogBookOutput{Body: book}, nil
}
