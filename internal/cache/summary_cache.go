package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/andresuchdata/grocerystock/internal/config"
	"github.com/andresuchdata/grocerystock/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	stockSummaryKeyPrefix = "grocery:stock_summary"
	scanBatchSize         = 100
)

// StockSummaryCache caches the live per-item stock summary view. Writes to
// the stock log invalidate it.
type StockSummaryCache interface {
	GetSummary(ctx context.Context, filter domain.SummaryFilter) ([]domain.ItemStockSummary, bool, error)
	SetSummary(ctx context.Context, filter domain.SummaryFilter, summaries []domain.ItemStockSummary) error
	InvalidateAll(ctx context.Context) error
}

type redisStockSummaryCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopStockSummaryCache struct{}

// NewStockSummaryCache returns a redis-backed cache, or a no-op one when
// caching is disabled.
func NewStockSummaryCache(cfg config.CacheConfig) (StockSummaryCache, error) {
	if !cfg.Enabled {
		return &noopStockSummaryCache{}, nil
	}

	client, err := connectRedis(cfg)
	if err != nil {
		return nil, err
	}

	return NewRedisStockSummaryCache(client, summaryTTL(cfg)), nil
}

// NewRedisStockSummaryCache wraps an existing client.
func NewRedisStockSummaryCache(client *redis.Client, ttl time.Duration) StockSummaryCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &redisStockSummaryCache{client: client, ttl: ttl}
}

func NewNoopStockSummaryCache() StockSummaryCache {
	return &noopStockSummaryCache{}
}

func (c *redisStockSummaryCache) GetSummary(ctx context.Context, filter domain.SummaryFilter) ([]domain.ItemStockSummary, bool, error) {
	payload, err := c.client.Get(ctx, buildSummaryKey(filter)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var summaries []domain.ItemStockSummary
	if err := json.Unmarshal(payload, &summaries); err != nil {
		return nil, false, fmt.Errorf("decode stock summary cache: %w", err)
	}
	return summaries, true, nil
}

func (c *redisStockSummaryCache) SetSummary(ctx context.Context, filter domain.SummaryFilter, summaries []domain.ItemStockSummary) error {
	payload, err := json.Marshal(summaries)
	if err != nil {
		return fmt.Errorf("encode stock summary cache: %w", err)
	}

	if err := c.client.Set(ctx, buildSummaryKey(filter), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisStockSummaryCache) InvalidateAll(ctx context.Context) error {
	return purgePrefix(ctx, c.client, stockSummaryKeyPrefix, scanBatchSize)
}

func (n *noopStockSummaryCache) GetSummary(ctx context.Context, filter domain.SummaryFilter) ([]domain.ItemStockSummary, bool, error) {
	return nil, false, nil
}

func (n *noopStockSummaryCache) SetSummary(ctx context.Context, filter domain.SummaryFilter, summaries []domain.ItemStockSummary) error {
	return nil
}

func (n *noopStockSummaryCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func buildSummaryKey(filter domain.SummaryFilter) string {
	return fmt.Sprintf("%s:%s", stockSummaryKeyPrefix, summaryFilterHash(filter))
}

func summaryFilterHash(filter domain.SummaryFilter) string {
	category := domain.NormalizeName(filter.Category)
	if category == "" {
		category = "all"
	}
	sum := sha1.Sum([]byte("category=" + strings.ReplaceAll(category, ":", "_")))
	return hex.EncodeToString(sum[:])
}
