package services

import (
	"context"
	"math"
	"route-optimizer-service/internal/domain"
	"route-optimizer-service/internal/ports"
	"testing"
	"time"
)

// stubGeocoder resolves from a fixed table; unknown addresses come back
// unresolved rather than erroring.
type stubGeocoder struct {
	coords map[string]domain.Coordinates
}

func (g *stubGeocoder) Geocode(_ context.Context, address string) (ports.GeocodeResult, error) {
	c, ok := g.coords[address]
	return ports.GeocodeResult{Address: address, Coords: c, OK: ok}, nil
}

func (g *stubGeocoder) GeocodeAll(
	ctx context.Context,
	addresses []string,
	progress ports.GeocodeProgress,
) ([]ports.GeocodeResult, error) {
	out := make([]ports.GeocodeResult, 0, len(addresses))
	for i, a := range addresses {
		res, err := g.Geocode(ctx, a)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
		if progress != nil {
			progress(i, len(addresses), a)
		}
	}
	return out, nil
}

func newStubGeocoder() *stubGeocoder {
	return &stubGeocoder{coords: map[string]domain.Coordinates{
		"Store A": {Lat: 55.60, Lng: 12.50},
		"Store B": {Lat: 55.61, Lng: 12.52},
		"Store C": {Lat: 55.62, Lng: 12.54},
		"Store D": {Lat: 55.63, Lng: 12.56},
		"Base":    {Lat: 55.59, Lng: 12.48},
	}}
}

func storeList(addresses ...string) []StoreInput {
	stores := make([]StoreInput, 0, len(addresses))
	for _, a := range addresses {
		stores = append(stores, StoreInput{Address: a})
	}
	return stores
}

func TestOptimizeContinueJourney(t *testing.T) {
	o := &Optimizer{Geocoder: newStubGeocoder(), SolveTimeLimit: time.Second}

	plan, err := o.Optimize(context.Background(), OptimizeRequest{
		Stores:       storeList("Store A", "Store B", "Store C", "Store D"),
		StoresPerDay: 2,
	}, nil)
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}

	if len(plan.Stops) != 4 {
		t.Fatalf("expected 4 stops, got %d", len(plan.Stops))
	}

	seen := map[string]bool{}
	for i, s := range plan.Stops {
		if s.VisitOrder != i+1 {
			t.Errorf("stop %d: visit order %d", i, s.VisitOrder)
		}
		wantDay := i/2 + 1
		if s.Day != wantDay {
			t.Errorf("stop %d: day %d, want %d", i, s.Day, wantDay)
		}
		if seen[s.Address] {
			t.Errorf("address %q visited twice", s.Address)
		}
		seen[s.Address] = true
	}

	if last := plan.Stops[3]; last.LegMeters != 0 {
		t.Errorf("final stop must have zero leg, got %f", last.LegMeters)
	}

	sum := plan.Summary
	if sum.TotalStores != 4 || sum.NumDays != 2 {
		t.Errorf("summary stores=%d days=%d", sum.TotalStores, sum.NumDays)
	}
	if sum.BaseCommute != nil {
		t.Error("continue journey must not carry a base commute")
	}

	total := 0.0
	for _, s := range plan.Stops {
		total += s.LegMeters
	}
	if math.Abs(total-sum.TotalMeters) > 1e-6 {
		t.Errorf("summary total %f != leg sum %f", sum.TotalMeters, total)
	}
}

func TestOptimizeRoundTrip(t *testing.T) {
	o := &Optimizer{Geocoder: newStubGeocoder(), SolveTimeLimit: time.Second}

	plan, err := o.Optimize(context.Background(), OptimizeRequest{
		Stores:       storeList("Store A", "Store B", "Store C"),
		Mode:         domain.JourneyClosed,
		StartAddress: "Base",
	}, nil)
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}

	if len(plan.Stops) != 3 {
		t.Fatalf("expected 3 stops (no depot), got %d", len(plan.Stops))
	}
	for _, s := range plan.Stops {
		if s.Address == "Base" {
			t.Error("depot leaked into the stop list")
		}
	}

	sum := plan.Summary
	if sum.BaseCommute == nil {
		t.Fatal("round trip must carry a base commute")
	}
	if !sum.BaseCommute.IncludeFromLast {
		t.Error("round trip includes the return leg")
	}
	if sum.BaseCommute.ToFirstMeters <= 0 || sum.BaseCommute.FromLastMeters <= 0 {
		t.Error("commute legs must be positive")
	}
	if sum.StartPoint == nil {
		t.Error("missing start point")
	}
}

func TestOptimizeFixedStartExcludesReturnLeg(t *testing.T) {
	o := &Optimizer{Geocoder: newStubGeocoder(), SolveTimeLimit: time.Second}

	plan, err := o.Optimize(context.Background(), OptimizeRequest{
		Stores:       storeList("Store A", "Store B"),
		Mode:         domain.JourneyFixedStart,
		StartAddress: "Base",
	}, nil)
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}

	if plan.Summary.BaseCommute == nil {
		t.Fatal("fixed start must carry a base commute")
	}
	if plan.Summary.BaseCommute.IncludeFromLast {
		t.Error("fixed start must not include the return leg")
	}
}

func TestOptimizeFiltersFailedGeocoding(t *testing.T) {
	o := &Optimizer{Geocoder: newStubGeocoder(), SolveTimeLimit: time.Second}

	plan, err := o.Optimize(context.Background(), OptimizeRequest{
		Stores: storeList("Store A", "Unknown Place", "Store B"),
	}, nil)
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}

	if len(plan.Stops) != 2 {
		t.Fatalf("expected 2 stops, got %d", len(plan.Stops))
	}
	failed := plan.Summary.FailedGeocoding
	if len(failed) != 1 || failed[0] != "Unknown Place" {
		t.Errorf("failed geocoding list %v", failed)
	}
}

func TestOptimizeNeedsTwoResolvedStores(t *testing.T) {
	o := &Optimizer{Geocoder: newStubGeocoder(), SolveTimeLimit: time.Second}

	_, err := o.Optimize(context.Background(), OptimizeRequest{
		Stores: storeList("Store A", "Unknown Place"),
	}, nil)
	if err == nil {
		t.Fatal("expected error with a single resolved store")
	}

	_, err = o.Optimize(context.Background(), OptimizeRequest{Stores: nil}, nil)
	if err == nil {
		t.Fatal("expected error for empty store list")
	}
}

func TestOptimizeRequiresStartAddressForDepotModes(t *testing.T) {
	o := &Optimizer{Geocoder: newStubGeocoder(), SolveTimeLimit: time.Second}

	_, err := o.Optimize(context.Background(), OptimizeRequest{
		Stores: storeList("Store A", "Store B"),
		Mode:   domain.JourneyClosed,
	}, nil)
	if err == nil {
		t.Fatal("expected error for missing start address")
	}

	_, err = o.Optimize(context.Background(), OptimizeRequest{
		Stores:       storeList("Store A", "Store B"),
		Mode:         domain.JourneyFixedStart,
		StartAddress: "Nowhere At All",
	}, nil)
	if err == nil {
		t.Fatal("expected error for unresolvable start address")
	}
}

func TestOptimizeCoordinatePassthroughSkipsGeocoder(t *testing.T) {
	// No geocoder wired at all: every store already has coordinates.
	o := &Optimizer{SolveTimeLimit: time.Second}

	stores := []StoreInput{
		{Address: "A", Coords: &domain.Coordinates{Lat: 55.60, Lng: 12.50}},
		{Address: "B", Coords: &domain.Coordinates{Lat: 55.61, Lng: 12.52}},
		{Address: "C", Coords: &domain.Coordinates{Lat: 55.62, Lng: 12.54}},
	}

	plan, err := o.Optimize(context.Background(), OptimizeRequest{Stores: stores}, nil)
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if len(plan.Stops) != 3 {
		t.Fatalf("expected 3 stops, got %d", len(plan.Stops))
	}
}

func TestOptimizeReportsProgressStages(t *testing.T) {
	o := &Optimizer{Geocoder: newStubGeocoder(), SolveTimeLimit: time.Second}

	stages := map[string]int{}
	_, err := o.Optimize(context.Background(), OptimizeRequest{
		Stores: storeList("Store A", "Store B", "Store C"),
	}, func(stage string, current, total int, address string) {
		stages[stage]++
	})
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}

	if stages["geocoding"] != 3 {
		t.Errorf("expected 3 geocoding events, got %d", stages["geocoding"])
	}
	if stages["routing"] == 0 || stages["solving"] == 0 {
		t.Errorf("missing routing/solving events: %v", stages)
	}
}

func TestOptimizeRevenueWeightsPadDepot(t *testing.T) {
	o := &Optimizer{Geocoder: newStubGeocoder(), SolveTimeLimit: time.Second}

	rev := func(v float64) *float64 { return &v }
	stores := []StoreInput{
		{Address: "Store A", Revenue: rev(5000)},
		{Address: "Store B", Revenue: rev(100)},
		{Address: "Store C"},
	}

	plan, err := o.Optimize(context.Background(), OptimizeRequest{
		Stores:            stores,
		Mode:              domain.JourneyClosed,
		StartAddress:      "Base",
		PrioritizeRevenue: true,
	}, nil)
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if len(plan.Stops) != 3 {
		t.Fatalf("expected 3 stops, got %d", len(plan.Stops))
	}
	// Revenue values ride through to the plan untouched.
	for _, s := range plan.Stops {
		if s.Address == "Store A" && (s.Revenue == nil || *s.Revenue != 5000) {
			t.Errorf("store A revenue lost: %+v", s.Revenue)
		}
	}
}
