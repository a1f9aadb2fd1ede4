// Package cache stores catalog responses between requests.
package cache

import (
	"context"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Cache is a JSON value cache keyed by string.
type Cache interface {
	// Get decodes the cached value into dest. Returns false on a miss.
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

const keyPrefix = "bookberry:catalog:"

// SearchKey returns the key for a catalog search. Queries that differ only in
// case, Unicode form or whitespace share a key.
func SearchKey(query string) string {
	return keyPrefix + "search:" + normalizeKey(query)
}

// BookKey returns the key for a single catalog volume.
func BookKey(bookID string) string {
	return keyPrefix + "book:" + strings.TrimSpace(bookID)
}

func normalizeKey(s string) string {
	s = norm.NFKC.String(s)
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// NoopCache never stores anything.
type NoopCache struct{}

// NewNoopCache returns a cache that always misses.
func NewNoopCache() *NoopCache {
	return &NoopCache{}
}

func (NoopCache) Get(context.Context, string, any) (bool, error)         { return false, nil }
func (NoopCache) Set(context.Context, string, any, time.Duration) error { return nil }
func (NoopCache) Delete(context.Context, string) error                  { return nil }
func (NoopCache) Close() error                                          { return nil }

var (
	_ Cache = (*NoopCache)(nil)
	_ Cache = (*RedisCache)(nil)
)
