package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchKey_Normalizes(t *testing.T) {
	assert.Equal(t, SearchKey("dune"), SearchKey("  DUNE "))
	assert.Equal(t, SearchKey("frank herbert"), SearchKey("Frank \t Herbert"))
	// Fullwidth letters fold to ASCII under NFKC.
	assert.Equal(t, SearchKey("dune"), SearchKey("ｄｕｎｅ"))
	assert.NotEqual(t, SearchKey("dune"), SearchKey("dune messiah"))
}

func TestBookKey(t *testing.T) {
	assert.Equal(t, "bookberry:catalog:book:abc", BookKey(" abc "))
	assert.NotEqual(t, BookKey("abc"), SearchKey("abc"))
}

func TestNoopCache(t *testing.T) {
	c := NewNoopCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))

	var got string
	found, err := c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, c.Delete(ctx, "k"))
	assert.NoError(t, c.Close())
}

func TestNewRedisCache_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewRedisCache(ctx, RedisConfig{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}
