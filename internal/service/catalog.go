package service

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/bookberryapp/bookberry-server/internal/cache"
	"github.com/bookberryapp/bookberry-server/internal/catalog/googlebooks"
	"github.com/bookberryapp/bookberry-server/internal/domain"
	domainerrors "github.com/bookberryapp/bookberry-server/internal/errors"
)

// DefaultCatalogCacheTTL applies when no cache TTL is configured.
const DefaultCatalogCacheTTL = time.Hour

// CatalogClient looks books up in the external catalog.
// *googlebooks.Client implements it.
type CatalogClient interface {
	Search(ctx context.Context, query string) ([]domain.Book, error)
	GetByID(ctx context.Context, id string) (*domain.Book, error)
}

// CatalogService fronts the external catalog with a response cache and
// collapses concurrent lookups of the same book into one request.
// Failed lookups are never retried.
type CatalogService struct {
	client CatalogClient
	cache  cache.Cache
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
}

// NewCatalogService creates a new catalog service. A nil cache disables caching.
func NewCatalogService(client CatalogClient, c cache.Cache, ttl time.Duration, logger *slog.Logger) *CatalogService {
	if c == nil {
		c = cache.NewNoopCache()
	}
	if ttl <= 0 {
		ttl = DefaultCatalogCacheTTL
	}
	return &CatalogService{
		client: client,
		cache:  c,
		ttl:    ttl,
		logger: logger,
	}
}

// Search finds catalog books matching query. A blank query returns no books.
func (s *CatalogService) Search(ctx context.Context, query string) ([]domain.Book, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.Book{}, nil
	}

	key := cache.SearchKey(query)
	var cached []domain.Book
	if s.lookup(ctx, key, &cached) {
		return cached, nil
	}

	books, err := s.client.Search(ctx, query)
	if err != nil {
		return nil, s.mapError(err, "catalog search failed")
	}

	s.store(ctx, key, books)
	return books, nil
}

// GetBook returns a single catalog book.
func (s *CatalogService) GetBook(ctx context.Context, bookID string) (*domain.Book, error) {
	bookID = strings.TrimSpace(bookID)
	if bookID == "" {
		return nil, domainerrors.Validation("book ID is required")
	}

	key := cache.BookKey(bookID)
	var cached domain.Book
	if s.lookup(ctx, key, &cached) {
		return &cached, nil
	}

	// The shared lookup outlives any single caller; each caller stops
	// waiting when its own context ends.
	lookupCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(bookID, func() (any, error) {
		book, err := s.client.GetByID(lookupCtx, bookID)
		if err != nil {
			return nil, err
		}
		s.store(lookupCtx, key, book)
		return book, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if res.Err != nil {
		return nil, s.mapError(res.Err, "catalog lookup failed")
	}
	if res.Shared {
		s.logger.Debug("catalog lookup shared", "book_id", bookID)
	}

	book := *res.Val.(*domain.Book)
	book.Authors = slices.Clone(book.Authors)
	return &book, nil
}

func (s *CatalogService) lookup(ctx context.Context, key string, dest any) bool {
	found, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		s.logger.Warn("catalog cache read failed", "key", key, "error", err)
		return false
	}
	return found
}

func (s *CatalogService) store(ctx context.Context, key string, value any) {
	if err := s.cache.Set(ctx, key, value, s.ttl); err != nil {
		s.logger.Warn("catalog cache write failed", "key", key, "error", err)
	}
}

// mapError converts catalog client errors into domain errors.
func (s *CatalogService) mapError(err error, msg string) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, googlebooks.ErrNotFound):
		return domainerrors.NotFound("book not found in catalog").WithCause(err)
	}
	s.logger.Warn(msg, "error", err)
	return domainerrors.NetworkFailure(err, msg)
}
