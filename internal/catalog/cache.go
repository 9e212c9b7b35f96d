package catalog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Cache wraps Redis helpers for JSON payloads.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// GetJSON unmarshals a cached JSON payload into dst. It reports whether the key existed.
func (c *Cache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	if c == nil || c.client == nil || key == "" {
		return false, nil
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
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
	if c == nil || c.client == nil || key == "" {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// CachedLookup is a read-through product cache in front of a lookup.
// Misses fall through to the inner lookup and populate the cache; cache
// transport errors degrade to the inner lookup.
type CachedLookup struct {
	Inner ProductLookup
	Cache *Cache
}

var _ ProductLookup = (*CachedLookup)(nil)

// Product resolves through the cache.
func (l *CachedLookup) Product(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (Product, error) {
	key := productKey(productID, variantID)
	var cached Product
	if ok, err := l.Cache.GetJSON(ctx, key, &cached); err == nil && ok {
		return cached, nil
	}
	p, err := l.Inner.Product(ctx, productID, variantID)
	if err != nil {
		return Product{}, err
	}
	_ = l.Cache.SetJSON(ctx, key, p)
	return p, nil
}

func productKey(productID uuid.UUID, variantID *uuid.UUID) string {
	if variantID != nil {
		return "catalog:product:" + productID.String() + ":" + variantID.String()
	}
	return "catalog:product:" + productID.String()
}
