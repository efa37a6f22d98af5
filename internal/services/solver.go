package services

import (
	"fmt"
	"log"
	"math"
	"route-optimizer-service/internal/domain"
	"time"
)

// fixedPointScale converts meter costs to integer arc costs for the search
// engine. 1 unit = 1 millimeter, enough resolution that no meaningful
// distance difference is lost to truncation.
const fixedPointScale = 1000

// defaultSolveTimeLimit bounds the search when the caller passes a
// non-positive limit.
const defaultSolveTimeLimit = 30 * time.Second

// SolveRoute orders the matrix's nodes into a visiting sequence honoring
// the journey topology. depotIndex is required for non-continue modes.
// valueWeights, when present, bias the order toward high-value nodes
// without hard-constraining it; biasStrength in [0,1] controls how much.
//
// The returned route contains every original index exactly once. For
// fixed-start and closed journeys the depot is first; the closing leg of a
// closed journey is implicit and not repeated at the tail. If the search
// cannot construct any tour the nodes come back in input order rather than
// failing the request.
func SolveRoute(
	matrix domain.DistanceMatrix,
	mode domain.JourneyMode,
	depotIndex *int,
	valueWeights []float64,
	biasStrength float64,
	timeLimit time.Duration,
) ([]int, error) {
	n := matrix.Len()
	if n < 2 {
		return nil, fmt.Errorf("solve route: need at least 2 nodes, got %d", n)
	}
	for i, row := range matrix {
		if len(row) != n {
			return nil, fmt.Errorf("solve route: matrix row %d has %d cells, want %d", i, len(row), n)
		}
	}
	if mode.NeedsDepot() {
		if depotIndex == nil {
			return nil, fmt.Errorf("solve route: journey mode %s requires a depot index", mode)
		}
		if *depotIndex < 0 || *depotIndex >= n {
			return nil, fmt.Errorf("solve route: depot index %d out of range [0, %d)", *depotIndex, n)
		}
	}
	if valueWeights != nil && len(valueWeights) != n {
		return nil, fmt.Errorf("solve route: %d value weights for %d nodes", len(valueWeights), n)
	}
	if biasStrength < 0 || biasStrength > 1 {
		return nil, fmt.Errorf("solve route: value bias strength %v outside [0, 1]", biasStrength)
	}
	if timeLimit <= 0 {
		timeLimit = defaultSolveTimeLimit
	}

	working := biasedCosts(matrix, valueWeights, biasStrength)
	problem := buildProblem(working, mode, depotIndex)

	tour, ok := searchTour(problem, timeLimit)
	if !ok {
		log.Printf("route search found no feasible tour, returning input order: nodes=%d mode=%s", n, mode)
		return fallbackRoute(n, mode, depotIndex), nil
	}

	route := make([]int, 0, n)
	for _, node := range tour {
		if node < n { // drop synthetic nodes
			route = append(route, node)
		}
	}
	return route, nil
}

// biasedCosts copies the distance matrix and, when value weights apply,
// adds a per-destination-column penalty of
// strength × max(matrix) × (1 − weight/maxWeight). Arriving at a
// high-value node becomes relatively cheaper, so the search sequences such
// nodes earlier; the penalty is bounded by the matrix's own maximum, so it
// never dominates geography outright.
func biasedCosts(matrix domain.DistanceMatrix, weights []float64, strength float64) [][]float64 {
	n := matrix.Len()
	working := make([][]float64, n)
	for i, row := range matrix {
		working[i] = append([]float64(nil), row...)
	}

	if weights == nil || strength <= 0 {
		return working
	}

	maxWeight := 0.0
	for _, w := range weights {
		if w > maxWeight {
			maxWeight = w
		}
	}
	if maxWeight <= 0 {
		return working
	}

	maxDist := matrix.Max()
	for j := 0; j < n; j++ {
		penalty := strength * maxDist * (1 - weights[j]/maxWeight)
		if penalty == 0 {
			continue
		}
		for i := 0; i < n; i++ {
			working[i][j] += penalty
		}
	}

	return working
}

// buildProblem scales the cost matrix to fixed-point integers and encodes
// the journey topology through synthetic nodes:
//
//   - continue: a universal node with zero arcs both ways anchors the
//     cycle, so its two tour neighbors become the free start and end;
//   - fixed start: a terminal node with zero in-arcs and forbidden
//     out-arcs; every cycle pays exactly one forbidden arc regardless of
//     the terminal's position, and only the tail position avoids paying a
//     real closing arc, so the optimizer pushes the terminal last. The
//     terminal is also deferred during construction, where its zero
//     in-arcs would otherwise beat every real arc out of the depot;
//   - closed: the depot anchors the cycle directly.
func buildProblem(working [][]float64, mode domain.JourneyMode, depotIndex *int) *tourProblem {
	n := len(working)

	size := n
	if mode != domain.JourneyClosed {
		size = n + 1
	}

	cost := make([]int64, size*size)
	var scaledMax int64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			c := int64(working[i][j] * fixedPointScale)
			cost[i*size+j] = c
			if c > scaledMax {
				scaledMax = c
			}
		}
	}

	p := &tourProblem{n: size, cost: cost, tail: -1}

	switch mode {
	case domain.JourneyContinue:
		// Universal node arcs are already zero; anchor the cycle there.
		p.anchor = n
	case domain.JourneyFixedStart:
		terminal := n
		forbidden := forbiddenArcCost(scaledMax, size)
		for j := 0; j < size; j++ {
			cost[terminal*size+j] = forbidden
		}
		for i := 0; i < n; i++ {
			cost[i*size+terminal] = 0
		}
		p.anchor = *depotIndex
		p.tail = terminal
	case domain.JourneyClosed:
		p.anchor = *depotIndex
	}

	return p
}

// forbiddenArcCost is a finite cost no real tour segment can compete with,
// chosen relative to the scaled matrix maximum so it survives fixed-point
// scaling without overflowing int64 tour sums.
func forbiddenArcCost(scaledMax int64, size int) int64 {
	if scaledMax < 1 {
		scaledMax = 1
	}
	span := int64(size + 2)
	if scaledMax > math.MaxInt64/(4*span) {
		return math.MaxInt64 / 4
	}
	return scaledMax * span
}

// fallbackRoute returns the nodes in input order, depot first when the
// journey pins one.
func fallbackRoute(n int, mode domain.JourneyMode, depotIndex *int) []int {
	route := make([]int, 0, n)
	if mode.NeedsDepot() {
		route = append(route, *depotIndex)
		for i := 0; i < n; i++ {
			if i != *depotIndex {
				route = append(route, i)
			}
		}
		return route
	}

	for i := 0; i < n; i++ {
		route = append(route, i)
	}
	return route
}
