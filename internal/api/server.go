// Package api provides the HTTP API server and handlers for Bookberry.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/bookberryapp/bookberry-server/internal/ratelimit"
	"github.com/bookberryapp/bookberry-server/internal/sse"
	"github.com/bookberryapp/bookberry-server/internal/store"
)

// Options tunes the HTTP surface.
type Options struct {
	Version     string
	CORSOrigins []string
	// CatalogRequestsPerSecond and CatalogBurst limit catalog routes per client IP.
	CatalogRequestsPerSecond float64
	CatalogBurst             int
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store          store.Store
	services       *Services
	sseManager     *sse.Manager
	sseHandler     *sse.Handler
	router         *chi.Mux
	api            huma.API
	catalogLimiter *ratelimit.KeyedRateLimiter
	version        string
	logger         *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(st store.Store, services *Services, sseManager *sse.Manager, tokens TokenVerifier, opts Options, logger *slog.Logger) *Server {
	if opts.Version == "" {
		opts.Version = "1.0.0"
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}
	if opts.CatalogRequestsPerSecond <= 0 {
		opts.CatalogRequestsPerSecond = 5
	}
	if opts.CatalogBurst <= 0 {
		opts.CatalogBurst = 10
	}

	router := chi.NewRouter()

	s := &Server{
		store:          st,
		services:       services,
		sseManager:     sseManager,
		router:         router,
		catalogLimiter: ratelimit.New(opts.CatalogRequestsPerSecond, opts.CatalogBurst),
		version:        opts.Version,
		logger:         logger,
	}
	if sseManager != nil {
		s.sseHandler = sse.NewHandler(sseManager, services.Shelf.Snapshot, logger)
	}

	// chi middleware must be in place before huma registers routes.
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(s.requestLogger)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Last-Event-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	router.Use(authMiddleware(tokens))

	humaConfig := huma.DefaultConfig("Bookberry API", opts.Version)
	humaConfig.Info.Description = "Personal reading tracker: shelves, progress, ratings and reading goals."
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)

	s.api = humachi.New(router, humaConfig)
	RegisterErrorHandler()

	s.registerRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API exposes the huma API, mainly for tests and OpenAPI export.
func (s *Server) API() huma.API {
	return s.api
}

// Shutdown releases background resources held by the server.
func (s *Server) Shutdown(_ context.Context) error {
	s.catalogLimiter.Stop()
	return nil
}

func (s *Server) registerRoutes() {
	s.registerHealthRoutes()
	s.registerShelfRoutes()
	s.registerProfileRoutes()
	s.registerPublicRoutes()
	if s.services.Catalog != nil {
		s.registerCatalogRoutes()
	}
	if s.sseHandler != nil {
		s.router.Get("/api/v1/shelf/events", s.handleShelfEvents)
	}
}

// requestLogger logs one line per request at debug level; SSE streams are
// logged by the sse package instead.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
