package cache

import (
	"context"
	"route-optimizer-service/internal/domain"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedisCache(t *testing.T) *RedisGeocodeCache {
	t.Helper()

	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisGeocodeCache(client)
}

func TestRedisGeocodeCacheRoundTrip(t *testing.T) {
	c := newTestRedisCache(t)
	ctx := context.Background()

	want := map[string]domain.Coordinates{
		"Vesterbrogade 1, Copenhagen, Denmark": {Lat: 55.6753, Lng: 12.5683},
		"Amagerbrogade 2, Copenhagen, Denmark": {Lat: 55.6628, Lng: 12.6043},
	}

	if err := c.PutMany(ctx, want); err != nil {
		t.Fatalf("PutMany: %v", err)
	}

	got, err := c.GetMany(ctx, []string{
		"Vesterbrogade 1, Copenhagen, Denmark",
		"Amagerbrogade 2, Copenhagen, Denmark",
		"Missing street 99",
	})
	if err != nil {
		t.Fatalf("GetMany: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(got))
	}
	for q, c := range want {
		hit, ok := got[q]
		if !ok {
			t.Fatalf("missing cache hit for %q", q)
		}
		if hit.Lat != c.Lat || hit.Lng != c.Lng {
			t.Errorf("query %q: got %v, want %v", q, hit, c)
		}
	}
	if _, ok := got["Missing street 99"]; ok {
		t.Error("unexpected hit for uncached query")
	}
}

func TestRedisGeocodeCachePutOverwrites(t *testing.T) {
	c := newTestRedisCache(t)
	ctx := context.Background()

	q := "Nørrebrogade 10, Copenhagen, Denmark"
	if err := c.PutMany(ctx, map[string]domain.Coordinates{q: {Lat: 1, Lng: 2}}); err != nil {
		t.Fatalf("PutMany: %v", err)
	}
	if err := c.PutMany(ctx, map[string]domain.Coordinates{q: {Lat: 55.69, Lng: 12.55}}); err != nil {
		t.Fatalf("PutMany overwrite: %v", err)
	}

	got, err := c.GetMany(ctx, []string{q})
	if err != nil {
		t.Fatalf("GetMany: %v", err)
	}
	if got[q].Lat != 55.69 || got[q].Lng != 12.55 {
		t.Errorf("expected overwritten coordinates, got %v", got[q])
	}
}

func TestRedisGeocodeCacheEmptyInputs(t *testing.T) {
	c := newTestRedisCache(t)
	ctx := context.Background()

	got, err := c.GetMany(ctx, nil)
	if err != nil {
		t.Fatalf("GetMany(nil): %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty result, got %v", got)
	}

	if err := c.PutMany(ctx, nil); err != nil {
		t.Errorf("PutMany(nil): %v", err)
	}

	if err := c.PutMany(ctx, map[string]domain.Coordinates{" ": {}}); err == nil {
		t.Error("expected error for empty query key")
	}
}
