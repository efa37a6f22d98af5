package ports

import (
	"context"
	"route-optimizer-service/internal/domain"
)

// Boundary for the persistent query->coordinates cache used by geocoders.
// Implementations must be safe for concurrent use; writes are keyed
// upserts so overlapping requests cannot lose updates.
type GeocodeCache interface {
	// Fetch cached coordinates for the given queries. Missing keys are
	// simply absent from the returned map.
	GetMany(ctx context.Context, queries []string) (map[string]domain.Coordinates, error)

	// Store query -> coordinate mappings in the cache.
	PutMany(ctx context.Context, results map[string]domain.Coordinates) error
}
