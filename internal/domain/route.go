package domain

// Represents a single stop in an optimized visiting order.
// VisitOrder is 1-based; Day groups stops into working days.
type VisitStop struct {
	VisitOrder int
	Day        int
	Name       string
	Address    string
	Lat        float64
	Lng        float64
	// Distance to the next stop; 0 for the final stop.
	LegMeters float64
	Revenue   *float64
	URL       string
}

// Base commute legs for journeys anchored at a depot.
type BaseCommute struct {
	ToFirstMeters   float64
	FromLastMeters  float64
	IncludeFromLast bool
}

// Aggregate metrics for a planned route.
// It is immutable planning data and contains no side effects.
type RouteSummary struct {
	TotalMeters     float64
	AvgLegMeters    float64
	MaxLegMeters    float64
	MinLegMeters    float64
	NumDays         int
	TotalStores     int
	FailedGeocoding []string
	JourneyMode     JourneyMode
	StartAddress    string
	StartPoint      *Coordinates
	BaseCommute     *BaseCommute
}

// Full result of one optimization request.
type RoutePlan struct {
	Stops   []VisitStop
	Summary RouteSummary
}
