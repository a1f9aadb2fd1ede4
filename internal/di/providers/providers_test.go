package providers

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/samber/do/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookberryapp/bookberry-server/internal/api"
	"github.com/bookberryapp/bookberry-server/internal/auth"
	"github.com/bookberryapp/bookberry-server/internal/cache"
	"github.com/bookberryapp/bookberry-server/internal/config"
	"github.com/bookberryapp/bookberry-server/internal/domain"
	"github.com/bookberryapp/bookberry-server/internal/service"
)

func testInjector(t *testing.T) *do.RootScope {
	t.Helper()

	cfg := &config.Config{
		App:      config.AppConfig{Environment: "development"},
		Logger:   config.LoggerConfig{Level: "error"},
		Metadata: config.MetadataConfig{BasePath: t.TempDir()},
		Server:   config.ServerConfig{Port: "0", CORSOrigins: []string{"*"}},
		Auth:     config.AuthConfig{AccessTokenDuration: time.Hour},
		Catalog: config.CatalogConfig{
			BaseURL:           "https://books.example.com/v1",
			Timeout:           time.Second,
			RequestsPerSecond: 1,
			Burst:             1,
		},
		Cache: config.CacheConfig{TTL: time.Minute},
	}

	injector := do.New()
	do.ProvideValue(injector, cfg)
	do.Provide(injector, ProvideLogger)
	do.Provide(injector, ProvideAuthKey)
	do.Provide(injector, ProvideTokenService)
	do.Provide(injector, ProvideValidator)
	do.Provide(injector, ProvideSSEManager)
	do.Provide(injector, ProvideStore)
	do.Provide(injector, ProvideSearchIndex)
	do.Provide(injector, ProvideCatalogCache)
	do.Provide(injector, ProvideCatalogClient)
	do.Provide(injector, ProvideShelfService)
	do.Provide(injector, ProvideProfileService)
	do.Provide(injector, ProvideReviewService)
	do.Provide(injector, ProvideCatalogService)
	do.Provide(injector, ProvideSearchService)
	do.Provide(injector, ProvideAPIServer)
	return injector
}

func TestProviders_WireAPIServer(t *testing.T) {
	injector := testInjector(t)
	t.Cleanup(func() { _ = injector.Shutdown() })

	server, err := do.Invoke[*api.Server](injector)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"database"`)
}

func TestProvideAuthKey_PersistsKeyAndMintsTokens(t *testing.T) {
	injector := testInjector(t)
	t.Cleanup(func() { _ = injector.Shutdown() })

	cfg := do.MustInvoke[*config.Config](injector)
	key := do.MustInvoke[AuthKey](injector)
	assert.Len(t, key, 32)
	assert.FileExists(t, auth.KeyPath(cfg.Metadata.BasePath))
	assert.Equal(t, []byte(key), cfg.Auth.AccessTokenKey)

	tokens := do.MustInvoke[*auth.TokenService](injector)
	token, _, err := tokens.GenerateAccessToken("reader-1")
	require.NoError(t, err)
	claims, err := tokens.VerifyAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "reader-1", claims.UserID)
}

func TestProvideCatalogCache_NoRedisIsNoop(t *testing.T) {
	injector := testInjector(t)
	t.Cleanup(func() { _ = injector.Shutdown() })

	handle := do.MustInvoke[*CacheHandle](injector)
	_, ok := handle.Cache.(*cache.NoopCache)
	assert.True(t, ok)

	_, err := do.Invoke[*service.CatalogService](injector)
	require.NoError(t, err)
}

func TestProvideCatalogCache_UnreachableRedisDegrades(t *testing.T) {
	injector := testInjector(t)
	t.Cleanup(func() { _ = injector.Shutdown() })

	// Port 1 on loopback refuses connections.
	do.MustInvoke[*config.Config](injector).Cache.RedisAddr = "127.0.0.1:1"

	handle := do.MustInvoke[*CacheHandle](injector)
	_, ok := handle.Cache.(*cache.NoopCache)
	assert.True(t, ok)
}

func TestTriggerSearchReindexIfNeeded_FillsEmptyIndex(t *testing.T) {
	injector := testInjector(t)
	t.Cleanup(func() { _ = injector.Shutdown() })
	ctx := context.Background()

	// Written straight to the store, so the index never sees them.
	storeHandle := do.MustInvoke[*StoreHandle](injector)
	now := time.Now()
	for _, e := range []*domain.ShelfEntry{
		domain.NewShelfEntry("e1", "reader-1", domain.Book{ID: "dune", Title: "Dune"}, domain.StatusReading, now),
		domain.NewShelfEntry("e2", "reader-2", domain.Book{ID: "emma", Title: "Emma"}, domain.StatusWantToRead, now),
	} {
		_, _, err := storeHandle.UpsertEntry(ctx, e)
		require.NoError(t, err)
	}

	searchService := do.MustInvoke[*service.SearchService](injector)
	count, err := searchService.DocumentCount()
	require.NoError(t, err)
	require.Zero(t, count)

	TriggerSearchReindexIfNeeded(ctx, injector)

	count, err = searchService.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)

	hits, err := searchService.Search(ctx, "reader-1", "dune", "", 10)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestHTTPServerShutdown_ClosesEventStreams(t *testing.T) {
	injector := testInjector(t)
	t.Cleanup(func() { _ = injector.Shutdown() })

	srv := newHTTPServer(injector)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = srv.Serve(ln) }()

	tokens := do.MustInvoke[*auth.TokenService](injector)
	token, _, err := tokens.GenerateAccessToken("reader-1")
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, "http://"+ln.Addr().String()+"/api/v1/shelf/events", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	sseHandle := do.MustInvoke[*SSEManagerHandle](injector)
	require.Eventually(t, func() bool { return sseHandle.ClientCount() == 1 }, 2*time.Second, 5*time.Millisecond)

	start := time.Now()
	require.NoError(t, (&HTTPServerHandle{Server: srv}).Shutdown())
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Zero(t, sseHandle.ClientCount())
}
