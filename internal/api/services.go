package api

import (
	"github.com/bookberryapp/bookberry-server/internal/service"
)

// Services groups all business logic services used by the API server.
type Services struct {
	Shelf   *service.ShelfService
	Profile *service.ProfileService
	Review  *service.ReviewService
	Catalog *service.CatalogService // nil disables the catalog routes
	Search  *service.SearchService  // nil disables shelf search
}
