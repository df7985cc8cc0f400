package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/storefront/internal/domain"
)

const trendingKey = "trending:products"

// TrendingCache stores the last trending report as a single JSON value.
type TrendingCache struct {
	client *redis.Client
}

// NewTrendingCache creates a Redis-backed trending cache.
func NewTrendingCache(client *redis.Client) *TrendingCache {
	return &TrendingCache{client: client}
}

// Get returns the cached report and whether one was present.
func (c *TrendingCache) Get(ctx context.Context) ([]domain.TrendingProduct, bool, error) {
	data, err := c.client.Get(ctx, trendingKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get trending: %w", err)
	}

	var products []domain.TrendingProduct
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, false, fmt.Errorf("unmarshal trending: %w", err)
	}
	if products == nil {
		products = []domain.TrendingProduct{}
	}
	return products, true, nil
}

// Set replaces the cached report.
func (c *TrendingCache) Set(ctx context.Context, products []domain.TrendingProduct, ttl time.Duration) error {
	if products == nil {
		products = []domain.TrendingProduct{}
	}
	data, err := json.Marshal(products)
	if err != nil {
		return fmt.Errorf("marshal trending: %w", err)
	}
	if err := c.client.Set(ctx, trendingKey, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set trending: %w", err)
	}
	return nil
}

// Invalidate drops the cached report.
func (c *TrendingCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, trendingKey).Err(); err != nil {
		return fmt.Errorf("redis del trending: %w", err)
	}
	return nil
}
