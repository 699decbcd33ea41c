package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type countingStore struct {
	products map[string]Product
	calls    int
}

func (s *countingStore) ProductByServiceID(_ context.Context, id string) (Product, error) {
	s.calls++
	p, ok := s.products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (s *countingStore) ListProducts(context.Context) ([]Product, error) {
	out := make([]Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	return out, nil
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestCachedStoreReadThrough(t *testing.T) {
	mr, client := newRedis(t)
	inner := &countingStore{products: map[string]Product{
		"brandkit": {ServiceID: "brandkit", Name: "Basic Brand Kit", PriceCents: 45000, Type: TypeOneTime, ProviderPriceID: "price_kit"},
	}}
	store := CachedStore{Store: inner, Cache: NewCache(client, time.Minute)}
	ctx := context.Background()

	p, err := store.ProductByServiceID(ctx, "brandkit")
	require.NoError(t, err)
	require.Equal(t, "price_kit", p.ProviderPriceID)
	require.True(t, mr.Exists(KeyProduct("brandkit")))

	p, err = store.ProductByServiceID(ctx, "brandkit")
	require.NoError(t, err)
	require.Equal(t, int64(45000), p.PriceCents)
	require.Equal(t, 1, inner.calls)

	mr.FastForward(2 * time.Minute)
	_, err = store.ProductByServiceID(ctx, "brandkit")
	require.NoError(t, err)
	require.Equal(t, 2, inner.calls)
}

func TestCachedStoreDoesNotCacheMisses(t *testing.T) {
	mr, client := newRedis(t)
	inner := &countingStore{products: map[string]Product{}}
	store := CachedStore{Store: inner, Cache: NewCache(client, time.Minute)}

	_, err := store.ProductByServiceID(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrNotFound)
	require.False(t, mr.Exists(KeyProduct("ghost")))
}

func TestCachedStoreSurvivesRedisOutage(t *testing.T) {
	mr, client := newRedis(t)
	inner := &countingStore{products: map[string]Product{"seo-package": {ServiceID: "seo-package"}}}
	store := CachedStore{Store: inner, Cache: NewCache(client, time.Minute)}
	mr.Close()

	p, err := store.ProductByServiceID(context.Background(), "seo-package")
	require.NoError(t, err)
	require.Equal(t, "seo-package", p.ServiceID)
}

func TestDisabledCache(t *testing.T) {
	c := NewCache(nil, time.Minute)
	hit, err := c.GetJSON(context.Background(), "k", &Product{})
	require.NoError(t, err)
	require.False(t, hit)
	require.NoError(t, c.SetJSON(context.Background(), "k", Product{}))
	require.NoError(t, c.Delete(context.Background(), "k"))
}
