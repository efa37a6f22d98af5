package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"route-optimizer-service/internal/domain"
	"sync/atomic"
	"testing"
)

// memCache is a map-backed GeocodeCache for tests.
type memCache struct {
	entries map[string]domain.Coordinates
}

func newMemCache() *memCache {
	return &memCache{entries: map[string]domain.Coordinates{}}
}

func (c *memCache) GetMany(_ context.Context, queries []string) (map[string]domain.Coordinates, error) {
	out := map[string]domain.Coordinates{}
	for _, q := range queries {
		if v, ok := c.entries[q]; ok {
			out[q] = v
		}
	}
	return out, nil
}

func (c *memCache) PutMany(_ context.Context, results map[string]domain.Coordinates) error {
	for q, v := range results {
		c.entries[q] = v
	}
	return nil
}

func TestGeocodeResolvesAndCaches(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Query().Get("format") != "json" {
			t.Errorf("missing format param in %q", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"lat": "55.6753", "lon": "12.5683"}]`))
	}))
	defer srv.Close()

	cache := newMemCache()
	g := NewNominatimGeocoder(srv.URL, "", cache)

	res, err := g.Geocode(context.Background(), "Vesterbrogade 10")
	if err != nil {
		t.Fatalf("Geocode: %v", err)
	}
	if !res.OK {
		t.Fatal("expected resolution")
	}
	if res.Coords.Lat != 55.6753 || res.Coords.Lng != 12.5683 {
		t.Errorf("coords %+v", res.Coords)
	}
	if hits.Load() != 1 {
		t.Errorf("expected 1 lookup, got %d", hits.Load())
	}
	if len(cache.entries) != 1 {
		t.Errorf("expected the hit to be cached, got %v", cache.entries)
	}

	// Second resolution comes straight from the cache.
	res, err = g.Geocode(context.Background(), "Vesterbrogade 10")
	if err != nil {
		t.Fatalf("Geocode from cache: %v", err)
	}
	if !res.OK {
		t.Fatal("expected cached resolution")
	}
	if hits.Load() != 1 {
		t.Errorf("cached resolution must not hit the network, got %d lookups", hits.Load())
	}
}

func TestGeocodeUnresolvableIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	g := NewNominatimGeocoder(srv.URL, "", newMemCache())

	res, err := g.Geocode(context.Background(), "Vesterbrogade 10")
	if err != nil {
		t.Fatalf("Geocode: %v", err)
	}
	if res.OK {
		t.Error("expected unresolved result")
	}
	if res.Address != "Vesterbrogade 10" {
		t.Errorf("address %q", res.Address)
	}
}

func TestGeocodeTriesQueryLadder(t *testing.T) {
	var queries []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		queries = append(queries, q)
		// Only the bare street fallback resolves.
		if q == "Gammel Kongevej 5, Copenhagen, Denmark" {
			_, _ = w.Write([]byte(`[{"lat": "55.6761", "lon": "12.5561"}]`))
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	g := NewNominatimGeocoder(srv.URL, "", newMemCache())

	res, err := g.Geocode(context.Background(), "Gl. Kongevej 5, 2. sal, 1850 København")
	if err != nil {
		t.Fatalf("Geocode: %v", err)
	}
	if !res.OK {
		t.Fatalf("expected fallback query to resolve; tried %v", queries)
	}
	if len(queries) < 2 {
		t.Errorf("expected multiple ladder attempts, got %v", queries)
	}
}

func TestGeocodeAllCarriesFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "Istedgade 30, Copenhagen, Denmark" {
			_, _ = w.Write([]byte(`[{"lat": "55.6707", "lon": "12.5554"}]`))
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	g := NewNominatimGeocoder(srv.URL, "", newMemCache())

	var progressed int
	results, err := g.GeocodeAll(context.Background(), []string{"Istedgade 30", "Mystery Lane 1"},
		func(index, total int, address string) { progressed++ })
	if err != nil {
		t.Fatalf("GeocodeAll: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if !results[0].OK || results[1].OK {
		t.Errorf("results %+v", results)
	}
	if progressed != 2 {
		t.Errorf("expected 2 progress callbacks, got %d", progressed)
	}
}

func TestGeocodeCanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	g := NewNominatimGeocoder(srv.URL, "", newMemCache())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := g.Geocode(ctx, "Vesterbrogade 10"); err == nil {
		t.Fatal("expected context error")
	}
}
