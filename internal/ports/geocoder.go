package ports

import (
	"context"
	"route-optimizer-service/internal/domain"
)

// Result of geocoding one free-text address. Failed lookups carry
// OK=false instead of an error so a batch can continue past them.
type GeocodeResult struct {
	Address string
	Coords  domain.Coordinates
	OK      bool
}

// Per-address progress notification for streaming callers.
type GeocodeProgress func(index, total int, address string)

// Contract for resolving free-text addresses to coordinates.
type Geocoder interface {
	// Geocode resolves a single address or returns an error when the
	// upstream service fails hard (not when the address is unknown).
	Geocode(ctx context.Context, address string) (GeocodeResult, error)

	// GeocodeAll resolves addresses in input order, invoking progress
	// after each one. Unresolvable addresses yield OK=false entries.
	GeocodeAll(ctx context.Context, addresses []string, progress GeocodeProgress) ([]GeocodeResult, error)
}
