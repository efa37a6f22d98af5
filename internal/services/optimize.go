package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"route-optimizer-service/internal/domain"
	"route-optimizer-service/internal/platform/obs"
	"route-optimizer-service/internal/ports"
	"time"
)

// Default penalty strength applied when revenue prioritization is on and
// the caller did not pick one.
const defaultRevenueBiasStrength = 0.5

const defaultStoresPerDay = 20

// One store row from the ingestion layer. Coords short-circuits geocoding
// when the upload already carried lat/lng columns.
type StoreInput struct {
	Address string
	Name    string
	URL     string
	Revenue *float64
	Coords  *domain.Coordinates
}

type OptimizeRequest struct {
	Stores            []StoreInput
	StoresPerDay      int
	PrioritizeRevenue bool
	// RevenueBiasStrength in [0,1]; 0 means "use the default" when
	// prioritization is on.
	RevenueBiasStrength float64
	Mode                domain.JourneyMode
	StartAddress        string
}

// ProgressFunc receives per-stage progress for streaming to clients.
// Stage is one of "geocoding", "routing", "solving".
type ProgressFunc func(stage string, current, total int, address string)

// Optimizer runs the full pipeline for one request: geocode, filter,
// matrix, solve, assemble. It holds only injected collaborators; each
// Optimize call works on request-scoped state and is safe to run
// concurrently with others.
type Optimizer struct {
	Geocoder         ports.Geocoder
	Source           ports.TableSource
	UseLiveDistances bool
	SolveTimeLimit   time.Duration
}

func (o *Optimizer) Optimize(
	ctx context.Context,
	req OptimizeRequest,
	progress ProgressFunc,
) (_ *domain.RoutePlan, err error) {
	defer obs.Time(ctx, "optimize.Optimize")(&err)

	if len(req.Stores) == 0 {
		return nil, errors.New("optimize: store list must not be empty")
	}
	if progress == nil {
		progress = func(string, int, int, string) {}
	}

	storesPerDay := req.StoresPerDay
	if storesPerDay <= 0 {
		storesPerDay = defaultStoresPerDay
	}

	// Resolve the base location first so a bad start address fails before
	// the expensive per-store work.
	var depotCoords *domain.Coordinates
	if req.Mode.NeedsDepot() {
		if req.StartAddress == "" {
			return nil, fmt.Errorf("optimize: journey mode %s requires a start address", req.Mode)
		}
		res, gerr := o.Geocoder.Geocode(ctx, req.StartAddress)
		if gerr != nil {
			return nil, fmt.Errorf("optimize: geocode start address: %w", gerr)
		}
		if !res.OK {
			return nil, fmt.Errorf("optimize: could not geocode start address %q", req.StartAddress)
		}
		c := res.Coords
		depotCoords = &c
	}

	geocoded, err := o.geocodeStores(ctx, req.Stores, progress)
	if err != nil {
		return nil, fmt.Errorf("optimize: geocode stores: %w", err)
	}

	validIdx := make([]int, 0, len(geocoded))
	failed := make([]string, 0)
	for i, g := range geocoded {
		if g.OK {
			validIdx = append(validIdx, i)
		} else {
			failed = append(failed, g.Address)
		}
	}
	if len(validIdx) < 2 {
		return nil, fmt.Errorf("optimize: need at least 2 geocoded stores, got %d (failed: %v)", len(validIdx), failed)
	}

	coords := make([]domain.Coordinates, 0, len(validIdx)+1)
	for _, i := range validIdx {
		coords = append(coords, geocoded[i].Coords)
	}

	var depotIndex *int
	if depotCoords != nil {
		coords = append(coords, *depotCoords)
		idx := len(coords) - 1
		depotIndex = &idx
	}

	progress("routing", 0, 1, "")

	matrix, err := BuildDistanceMatrix(ctx, coords, o.UseLiveDistances, o.Source)
	if err != nil {
		return nil, fmt.Errorf("optimize: build distance matrix: %w", err)
	}

	var weights []float64
	strength := 0.0
	if req.PrioritizeRevenue {
		weights = make([]float64, 0, len(coords))
		for _, i := range validIdx {
			if r := req.Stores[i].Revenue; r != nil && *r > 0 {
				weights = append(weights, *r)
			} else {
				weights = append(weights, 0)
			}
		}
		if depotIndex != nil {
			weights = append(weights, 0) // base node carries no value
		}
		strength = req.RevenueBiasStrength
		if strength <= 0 {
			strength = defaultRevenueBiasStrength
		}
	}

	progress("solving", 0, 1, "")

	route, err := SolveRoute(matrix, req.Mode, depotIndex, weights, strength, o.SolveTimeLimit)
	if err != nil {
		return nil, fmt.Errorf("optimize: solve route: %w", err)
	}

	return assemblePlan(req, storesPerDay, geocoded, validIdx, failed, matrix, route, depotIndex, depotCoords), nil
}

// geocodeStores resolves every store's coordinates, either straight from
// the upload or through the geocoder, reporting progress per row.
func (o *Optimizer) geocodeStores(
	ctx context.Context,
	stores []StoreInput,
	progress ProgressFunc,
) ([]ports.GeocodeResult, error) {
	total := len(stores)

	allHaveCoords := true
	for _, s := range stores {
		if s.Coords == nil {
			allHaveCoords = false
			break
		}
	}

	if allHaveCoords {
		out := make([]ports.GeocodeResult, total)
		for i, s := range stores {
			out[i] = ports.GeocodeResult{Address: s.Address, Coords: *s.Coords, OK: true}
			progress("geocoding", i+1, total, s.Address)
		}
		return out, nil
	}

	addresses := make([]string, total)
	for i, s := range stores {
		addresses[i] = s.Address
	}

	return o.Geocoder.GeocodeAll(ctx, addresses, func(index, total int, address string) {
		progress("geocoding", index+1, total, address)
	})
}

// assemblePlan turns the solved node order back into store-level stops and
// summary statistics. Route indices refer to the matrix ordering (valid
// stores, then the optional depot appended last).
func assemblePlan(
	req OptimizeRequest,
	storesPerDay int,
	geocoded []ports.GeocodeResult,
	validIdx []int,
	failed []string,
	matrix domain.DistanceMatrix,
	route []int,
	depotIndex *int,
	depotCoords *domain.Coordinates,
) *domain.RoutePlan {
	storeRoute := make([]int, 0, len(route))
	for _, node := range route {
		if depotIndex != nil && node == *depotIndex {
			continue
		}
		storeRoute = append(storeRoute, node)
	}

	stops := make([]domain.VisitStop, 0, len(storeRoute))
	for rank, node := range storeRoute {
		orig := validIdx[node]
		store := req.Stores[orig]
		g := geocoded[orig]

		leg := 0.0
		if rank < len(storeRoute)-1 {
			leg = matrix[node][storeRoute[rank+1]]
		}

		name := store.Name
		if name == "" {
			name = fmt.Sprintf("Store %d", rank+1)
		}

		stops = append(stops, domain.VisitStop{
			VisitOrder: rank + 1,
			Day:        rank/storesPerDay + 1,
			Name:       name,
			Address:    store.Address,
			Lat:        g.Coords.Lat,
			Lng:        g.Coords.Lng,
			LegMeters:  leg,
			Revenue:    store.Revenue,
			URL:        store.URL,
		})
	}

	total, maxLeg := 0.0, 0.0
	minLeg := math.Inf(1)
	legCount := 0
	for _, s := range stops {
		if s.LegMeters <= 0 {
			continue
		}
		total += s.LegMeters
		legCount++
		if s.LegMeters > maxLeg {
			maxLeg = s.LegMeters
		}
		if s.LegMeters < minLeg {
			minLeg = s.LegMeters
		}
	}
	avgLeg := 0.0
	if legCount > 0 {
		avgLeg = total / float64(legCount)
	} else {
		minLeg = 0
	}

	summary := domain.RouteSummary{
		TotalMeters:     total,
		AvgLegMeters:    avgLeg,
		MaxLegMeters:    maxLeg,
		MinLegMeters:    minLeg,
		NumDays:         (len(stops) + storesPerDay - 1) / storesPerDay,
		TotalStores:     len(stops),
		FailedGeocoding: failed,
		JourneyMode:     req.Mode,
		StartAddress:    req.StartAddress,
		StartPoint:      depotCoords,
	}

	if depotIndex != nil && len(storeRoute) > 0 {
		first := storeRoute[0]
		last := storeRoute[len(storeRoute)-1]
		summary.BaseCommute = &domain.BaseCommute{
			ToFirstMeters:   matrix[*depotIndex][first],
			FromLastMeters:  matrix[last][*depotIndex],
			IncludeFromLast: req.Mode == domain.JourneyClosed,
		}
	}

	return &domain.RoutePlan{Stops: stops, Summary: summary}
}
