package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"route-optimizer-service/internal/domain"
	"route-optimizer-service/internal/platform/obs"
	"route-optimizer-service/internal/ports"
	"strconv"
	"sync"
	"time"
)

// Minimum gap between live Nominatim lookups (usage policy: ≤1 req/s).
const lookupGap = 1100 * time.Millisecond

// NominatimGeocoder resolves free-text addresses against a Nominatim
// search endpoint, trying a ladder of progressively cleaned queries and
// consulting the injected cache before every network call.
//
// The client and cache are explicitly constructed and owned by the
// caller; the geocoder keeps no global state. Safe for concurrent use.
type NominatimGeocoder struct {
	session    *http.Client
	baseURL    string
	citySuffix string
	cache      ports.GeocodeCache

	mu       sync.Mutex
	lastCall time.Time
}

type nominatimResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

func NewNominatimGeocoder(baseURL, citySuffix string, cache ports.GeocodeCache) *NominatimGeocoder {
	if baseURL == "" {
		baseURL = "https://nominatim.openstreetmap.org"
	}
	if citySuffix == "" {
		citySuffix = ", Copenhagen, Denmark"
	}

	return &NominatimGeocoder{
		session:    &http.Client{Timeout: 10 * time.Second},
		baseURL:    baseURL,
		citySuffix: citySuffix,
		cache:      cache,
	}
}

// Geocode resolves one address. An unresolvable address yields OK=false,
// not an error; errors are reserved for context cancellation.
func (g *NominatimGeocoder) Geocode(ctx context.Context, address string) (ports.GeocodeResult, error) {
	queries := buildQueries(address, g.citySuffix)
	failed := ports.GeocodeResult{Address: address}

	if len(queries) == 0 {
		return failed, nil
	}

	if g.cache != nil {
		hits, err := g.cache.GetMany(ctx, queries)
		if err != nil {
			log.Printf("geocode cache read failed: %v", err)
		} else {
			for _, q := range queries {
				if c, ok := hits[q]; ok {
					return ports.GeocodeResult{Address: address, Coords: c, OK: true}, nil
				}
			}
		}
	}

	for _, q := range queries {
		if err := g.throttle(ctx); err != nil {
			return failed, err
		}

		coords, found, err := g.search(ctx, q)
		if err != nil {
			if ctx.Err() != nil {
				return failed, ctx.Err()
			}
			// Transient upstream trouble: try the next query variant.
			log.Printf("geocode lookup failed: query=%q err=%v", q, err)
			continue
		}
		if !found {
			continue
		}

		if g.cache != nil {
			if err := g.cache.PutMany(ctx, map[string]domain.Coordinates{q: coords}); err != nil {
				log.Printf("geocode cache write failed: %v", err)
			}
		}

		return ports.GeocodeResult{Address: address, Coords: coords, OK: true}, nil
	}

	return failed, nil
}

// GeocodeAll resolves addresses in input order, reporting progress after
// each one. Failures are carried as OK=false entries so one bad address
// cannot sink the batch.
func (g *NominatimGeocoder) GeocodeAll(
	ctx context.Context,
	addresses []string,
	progress ports.GeocodeProgress,
) (_ []ports.GeocodeResult, err error) {
	defer obs.Time(ctx, "geocode.GeocodeAll")(&err)

	out := make([]ports.GeocodeResult, 0, len(addresses))
	total := len(addresses)

	for i, addr := range addresses {
		res, err := g.Geocode(ctx, addr)
		if err != nil {
			return nil, fmt.Errorf("geocode %q: %w", addr, err)
		}
		out = append(out, res)

		if progress != nil {
			progress(i, total, addr)
		}
	}

	return out, nil
}

// throttle enforces the gap between live lookups across goroutines.
func (g *NominatimGeocoder) throttle(ctx context.Context) error {
	g.mu.Lock()
	wait := lookupGap - time.Since(g.lastCall)
	g.lastCall = time.Now().Add(wait)
	g.mu.Unlock()

	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (g *NominatimGeocoder) search(ctx context.Context, query string) (domain.Coordinates, bool, error) {
	endpoint := fmt.Sprintf("%s/search?q=%s&format=json&limit=1", g.baseURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.Coordinates{}, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "route-optimizer-service/1.0")

	resp, err := g.session.Do(req)
	if err != nil {
		return domain.Coordinates{}, false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Coordinates{}, false, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return domain.Coordinates{}, false, fmt.Errorf("decode response: %w", err)
	}
	if len(results) == 0 {
		return domain.Coordinates{}, false, nil
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return domain.Coordinates{}, false, fmt.Errorf("invalid latitude %q", results[0].Lat)
	}
	lng, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return domain.Coordinates{}, false, fmt.Errorf("invalid longitude %q", results[0].Lon)
	}

	return domain.Coordinates{Lat: lat, Lng: lng}, true, nil
}
