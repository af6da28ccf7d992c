package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/andresuchdata/grocerystock/internal/config"
	"github.com/andresuchdata/grocerystock/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSummaryKey(t *testing.T) {
	all := buildSummaryKey(domain.SummaryFilter{})
	assert.True(t, strings.HasPrefix(all, stockSummaryKeyPrefix+":"))

	assert.Equal(t,
		buildSummaryKey(domain.SummaryFilter{Category: "Dairy"}),
		buildSummaryKey(domain.SummaryFilter{Category: "  dairy "}),
	)
	assert.NotEqual(t, all, buildSummaryKey(domain.SummaryFilter{Category: "dairy"}))
}

func TestNewStockSummaryCache_DisabledIsNoop(t *testing.T) {
	c, err := NewStockSummaryCache(config.CacheConfig{Enabled: false})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, c.SetSummary(ctx, domain.SummaryFilter{}, []domain.ItemStockSummary{{ItemName: "wheat"}}))

	got, hit, err := c.GetSummary(ctx, domain.SummaryFilter{})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Nil(t, got)
	assert.NoError(t, c.InvalidateAll(ctx))
}

func TestBuildRedisOptions(t *testing.T) {
	opts, err := buildRedisOptions(config.CacheConfig{RedisHost: "cache", RedisPort: "6380", RedisDB: 2})
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)

	opts, err = buildRedisOptions(config.CacheConfig{})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:6379", opts.Addr)

	opts, err = buildRedisOptions(config.CacheConfig{RedisURL: "redis://:secret@cache.internal:6390/3"})
	require.NoError(t, err)
	assert.Equal(t, "cache.internal:6390", opts.Addr)
	assert.Equal(t, 3, opts.DB)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, redisReadTimeout, opts.ReadTimeout)

	_, err = buildRedisOptions(config.CacheConfig{RedisURL: "://bad"})
	assert.Error(t, err)
}

func TestSummaryTTL(t *testing.T) {
	assert.Equal(t, defaultCacheTTL, summaryTTL(config.CacheConfig{}))
	assert.Equal(t, defaultCacheTTL, summaryTTL(config.CacheConfig{SummaryTTLSeconds: -5}))
	assert.Equal(t, 90*time.Second, summaryTTL(config.CacheConfig{SummaryTTLSeconds: 90}))
}
