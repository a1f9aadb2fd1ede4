package providers

import (
	"context"
	"errors"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/bookberryapp/bookberry-server/internal/api"
	"github.com/bookberryapp/bookberry-server/internal/auth"
	"github.com/bookberryapp/bookberry-server/internal/config"
	"github.com/bookberryapp/bookberry-server/internal/logger"
	"github.com/bookberryapp/bookberry-server/internal/service"
)

// ProvideAPIServer provides the HTTP handler with every route registered.
// The container calls its Shutdown to stop the catalog rate limiter.
func ProvideAPIServer(i do.Injector) (*api.Server, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	tokenService := do.MustInvoke[*auth.TokenService](i)
	log := do.MustInvoke[*logger.Logger](i)

	services := &api.Services{
		Shelf:   do.MustInvoke[*service.ShelfService](i),
		Profile: do.MustInvoke[*service.ProfileService](i),
		Review:  do.MustInvoke[*service.ReviewService](i),
		Catalog: do.MustInvoke[*service.CatalogService](i),
		Search:  do.MustInvoke[*service.SearchService](i),
	}

	return api.NewServer(storeHandle.Store, services, sseHandle.Manager, tokenService, api.Options{
		CORSOrigins: cfg.Server.CORSOrigins,
	}, log.Logger), nil
}

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the HTTP server and starts listening.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)
	srv := newHTTPServer(i)

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	return &HTTPServerHandle{Server: srv}, nil
}

// newHTTPServer builds the server without starting it. Shutdown closes the
// SSE manager first so open event streams return instead of holding
// Shutdown until its timeout.
func newHTTPServer(i do.Injector) *http.Server {
	cfg := do.MustInvoke[*config.Config](i)
	handler := do.MustInvoke[*api.Server](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	srv.RegisterOnShutdown(func() {
		if err := sseHandle.Shutdown(); err != nil {
			log.Warn("SSE manager shutdown failed", "error", err)
		}
	})
	return srv
}
