package providers

import (
	"context"
	"time"

	"github.com/samber/do/v2"

	"github.com/bookberryapp/bookberry-server/internal/cache"
	"github.com/bookberryapp/bookberry-server/internal/catalog/googlebooks"
	"github.com/bookberryapp/bookberry-server/internal/config"
	"github.com/bookberryapp/bookberry-server/internal/logger"
)

const redisConnectTimeout = 5 * time.Second

// CacheHandle wraps the catalog response cache with shutdown capability.
type CacheHandle struct {
	cache.Cache
}

// Shutdown implements do.Shutdownable.
func (h *CacheHandle) Shutdown() error {
	return h.Close()
}

// ProvideCatalogCache provides the catalog cache. Redis is used when an
// address is configured; an unreachable Redis degrades to no caching.
func ProvideCatalogCache(i do.Injector) (*CacheHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Cache.RedisAddr == "" {
		log.Info("Catalog cache disabled")
		return &CacheHandle{Cache: cache.NewNoopCache()}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisConnectTimeout)
	defer cancel()

	rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{
		Addr:     cfg.Cache.RedisAddr,
		Password: cfg.Cache.RedisPassword,
		DB:       cfg.Cache.RedisDB,
	})
	if err != nil {
		log.Warn("Redis unavailable, catalog cache disabled", "addr", cfg.Cache.RedisAddr, "error", err)
		return &CacheHandle{Cache: cache.NewNoopCache()}, nil
	}

	log.Info("Catalog cache connected", "addr", cfg.Cache.RedisAddr, "ttl", cfg.Cache.TTL)
	return &CacheHandle{Cache: rc}, nil
}

// ProvideCatalogClient provides the Google Books client.
func ProvideCatalogClient(i do.Injector) (*googlebooks.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	client, err := googlebooks.New(googlebooks.Config{
		BaseURL:           cfg.Catalog.BaseURL,
		APIKey:            cfg.Catalog.APIKey,
		Timeout:           cfg.Catalog.Timeout,
		RequestsPerSecond: cfg.Catalog.RequestsPerSecond,
		Burst:             cfg.Catalog.Burst,
	}, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Catalog client ready", "base_url", cfg.Catalog.BaseURL)
	return client, nil
}
