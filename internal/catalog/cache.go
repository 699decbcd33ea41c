package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Cache wraps Redis helpers for JSON payloads.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a cache helper. A nil client or non-positive ttl
// yields a cache that never hits.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// GetJSON unmarshals a cached JSON payload into dst. It reports whether the key existed.
func (c *Cache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	if !c.enabled() || key == "" {
		return false, nil
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON serialises v as JSON and stores it with the configured TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, v any) error {
	if !c.enabled() || key == "" {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// Delete drops key from the cache.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if !c.enabled() || key == "" {
		return nil
	}
	return c.client.Del(ctx, key).Err()
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil && c.ttl > 0
}

// KeyProduct returns the cache key for a product service id.
func KeyProduct(serviceID string) string {
	return "catalog:product:" + serviceID
}

// CachedStore is a read-through cache in front of a Store. Misses for
// unknown ids are not cached. Cache failures fall back to the store.
type CachedStore struct {
	Store Store
	Cache *Cache
}

// ProductByServiceID implements Store.
func (s CachedStore) ProductByServiceID(ctx context.Context, serviceID string) (Product, error) {
	key := KeyProduct(serviceID)
	var cached Product
	hit, err := s.Cache.GetJSON(ctx, key, &cached)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("catalog cache read failed")
	}
	if hit {
		return cached, nil
	}
	product, err := s.Store.ProductByServiceID(ctx, serviceID)
	if err != nil {
		return Product{}, err
	}
	if err := s.Cache.SetJSON(ctx, key, product); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("catalog cache write failed")
	}
	return product, nil
}

// ListProducts implements Store; listings are not cached.
func (s CachedStore) ListProducts(ctx context.Context) ([]Product, error) {
	return s.Store.ListProducts(ctx)
}
