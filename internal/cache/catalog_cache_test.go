package cache

import (
	"context"
	"path"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/replenish/backend-go/internal/config"
	"github.com/andresuchdata/replenish/backend-go/internal/domain"
)

func TestCatalogKeyIncludesPolicyVersionAndDay(t *testing.T) {
	morning := CatalogKey{PolicyID: "p1", PolicyVersion: 3, Date: time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC)}
	evening := morning
	evening.Date = time.Date(2025, 7, 1, 22, 0, 0, 0, time.UTC)
	bumped := morning
	bumped.PolicyVersion = 4

	assert.Equal(t, "catalog:full:p1:v3:2025-07-01", morning.String())
	assert.Equal(t, morning.String(), evening.String())
	assert.NotEqual(t, morning.String(), bumped.String())
}

func TestDisabledCacheIsNoop(t *testing.T) {
	c, err := NewCatalogCache(config.CacheConfig{Enabled: false})
	require.NoError(t, err)

	ctx := context.Background()
	key := CatalogKey{PolicyID: "p1", PolicyVersion: 1, Date: time.Now()}
	require.NoError(t, c.SetCatalog(ctx, key, []domain.FullItemData{{}}))

	items, ok, err := c.GetCatalog(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, items)
	assert.NoError(t, c.InvalidateAll(ctx))
}

func TestBuildRedisOptions(t *testing.T) {
	opts, err := redisOptions(config.CacheConfig{RedisHost: "cache", RedisPort: "6380", RedisDB: 2})
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)

	opts, err = redisOptions(config.CacheConfig{})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:6379", opts.Addr)

	opts, err = redisOptions(config.CacheConfig{RedisURL: "redis://:secret@example:6379/1"})
	require.NoError(t, err)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 1, opts.DB)

	_, err = redisOptions(config.CacheConfig{RedisURL: "http://nope"})
	assert.Error(t, err)
}

func TestCatalogScanPatternOnlyMatchesCatalogKeys(t *testing.T) {
	key := CatalogKey{PolicyID: "p1", PolicyVersion: 2, Date: time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)}

	cases := map[string]bool{
		key.String():              true,
		"catalog:full:p9:v1:x":    true,
		"catalog:fullness":        false,
		"catalog:summary:p1":      false,
		"session:catalog:full:p1": false,
	}
	for candidate, want := range cases {
		matched, err := path.Match(catalogScanPattern, candidate)
		require.NoError(t, err)
		assert.Equal(t, want, matched, candidate)
	}
}

func TestCatalogTTL(t *testing.T) {
	assert.Equal(t, defaultCatalogTTL, catalogTTL(config.CacheConfig{}))
	assert.Equal(t, defaultCatalogTTL, catalogTTL(config.CacheConfig{CatalogTTLSeconds: -1}))
	assert.Equal(t, 90*time.Second, catalogTTL(config.CacheConfig{CatalogTTLSeconds: 90}))
}
