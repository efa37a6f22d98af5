package cache

import (
	"context"
	"database/sql"
	"route-optimizer-service/internal/domain"
	"testing"

	_ "modernc.org/sqlite"
)

func newTestSqliteCache(t *testing.T) *SqliteGeocodeCache {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := InitSchema(db); err != nil {
		t.Fatalf("init schema: %v", err)
	}

	return NewSqliteGeocodeCache(db)
}

func TestSqliteGeocodeCacheRoundTrip(t *testing.T) {
	c := newTestSqliteCache(t)
	ctx := context.Background()

	want := map[string]domain.Coordinates{
		"Istedgade 30, Copenhagen, Denmark": {Lat: 55.6707, Lng: 12.5554},
		"Gammel Kongevej 5, Frederiksberg":  {Lat: 55.6761, Lng: 12.5561},
	}

	if err := c.PutMany(ctx, want); err != nil {
		t.Fatalf("PutMany: %v", err)
	}

	got, err := c.GetMany(ctx, []string{
		"Istedgade 30, Copenhagen, Denmark",
		"Gammel Kongevej 5, Frederiksberg",
		"Nowhere Lane 0",
	})
	if err != nil {
		t.Fatalf("GetMany: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(got))
	}
	for q, w := range want {
		hit, ok := got[q]
		if !ok {
			t.Fatalf("missing cache hit for %q", q)
		}
		if hit != w {
			t.Errorf("query %q: got %v, want %v", q, hit, w)
		}
	}
}

func TestSqliteGeocodeCacheReplaces(t *testing.T) {
	c := newTestSqliteCache(t)
	ctx := context.Background()

	q := "Østerbrogade 44, Copenhagen, Denmark"
	if err := c.PutMany(ctx, map[string]domain.Coordinates{q: {Lat: 1, Lng: 1}}); err != nil {
		t.Fatalf("PutMany: %v", err)
	}
	if err := c.PutMany(ctx, map[string]domain.Coordinates{q: {Lat: 55.7, Lng: 12.58}}); err != nil {
		t.Fatalf("PutMany replace: %v", err)
	}

	got, err := c.GetMany(ctx, []string{q})
	if err != nil {
		t.Fatalf("GetMany: %v", err)
	}
	if got[q] != (domain.Coordinates{Lat: 55.7, Lng: 12.58}) {
		t.Errorf("expected replaced coordinates, got %v", got[q])
	}
}

func TestSqliteGeocodeCacheDedupesQueries(t *testing.T) {
	c := newTestSqliteCache(t)
	ctx := context.Background()

	q := "Bredgade 1, Copenhagen, Denmark"
	if err := c.PutMany(ctx, map[string]domain.Coordinates{q: {Lat: 55.68, Lng: 12.59}}); err != nil {
		t.Fatalf("PutMany: %v", err)
	}

	got, err := c.GetMany(ctx, []string{q, q, "  ", q})
	if err != nil {
		t.Fatalf("GetMany: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected 1 hit, got %d", len(got))
	}
}
