package ports

import (
	"context"
	"route-optimizer-service/internal/domain"
)

// Contract for a live table-distance service (e.g. an OSRM /table endpoint).
type TableSource interface {
	// Table returns a len(sources)×len(destinations) grid of road distances
	// in meters between the given coordinates. Nil sources or destinations
	// mean "all coordinates", letting the adapter shorten the request.
	// Unreachable pairs come back as nil cells; callers decide the sentinel.
	Table(ctx context.Context, coords []domain.Coordinates, sources, destinations []int) ([][]*float64, error)

	// MaxTableCoordinates is the per-request coordinate cap the service
	// enforces. Requests must stay at or under this cap.
	MaxTableCoordinates() int
}
