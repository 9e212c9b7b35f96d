package catalog

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type countingLookup struct {
	product Product
	calls   int
}

func (c *countingLookup) Product(context.Context, uuid.UUID, *uuid.UUID) (Product, error) {
	c.calls++
	return c.product, nil
}

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute)
}

func TestCachedLookupReadThrough(t *testing.T) {
	ctx := context.Background()
	productID := uuid.New()
	inner := &countingLookup{product: Product{ID: productID, Title: "Widget", Price: 2500}}
	lookup := &CachedLookup{Inner: inner, Cache: newTestCache(t)}

	first, err := lookup.Product(ctx, productID, nil)
	require.NoError(t, err)
	require.EqualValues(t, 2500, first.Price)

	second, err := lookup.Product(ctx, productID, nil)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, inner.calls)
}

func TestCachedLookupVariantKeysAreDistinct(t *testing.T) {
	ctx := context.Background()
	productID := uuid.New()
	variantID := uuid.New()
	inner := &countingLookup{product: Product{ID: productID, Price: 2500}}
	lookup := &CachedLookup{Inner: inner, Cache: newTestCache(t)}

	_, err := lookup.Product(ctx, productID, nil)
	require.NoError(t, err)
	_, err = lookup.Product(ctx, productID, &variantID)
	require.NoError(t, err)
	require.Equal(t, 2, inner.calls)
}

func TestCacheGetJSONMiss(t *testing.T) {
	cache := newTestCache(t)

	var out Product
	ok, err := cache.GetJSON(context.Background(), "catalog:product:missing", &out)
	require.NoError(t, err)
	require.False(t, ok)
}
