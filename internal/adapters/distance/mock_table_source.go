package distance

import (
	"context"
	"fmt"
	"route-optimizer-service/internal/domain"
	"sync/atomic"
)

// MockTableSource serves table requests from a fixed ground-truth matrix,
// resolving coordinates back to their global index. Negative matrix cells
// are returned as nil (the wire representation of "no route"). Cap and
// Err make chunking and failure paths testable.
type MockTableSource struct {
	Points []domain.Coordinates
	Matrix [][]float64
	Cap    int
	Err    error

	calls atomic.Int64
}

func NewMockTableSource(points []domain.Coordinates, matrix [][]float64, capacity int) *MockTableSource {
	return &MockTableSource{Points: points, Matrix: matrix, Cap: capacity}
}

func (m *MockTableSource) MaxTableCoordinates() int { return m.Cap }

// Calls reports how many table requests were issued; chunked requests may
// arrive concurrently.
func (m *MockTableSource) Calls() int64 { return m.calls.Load() }

func (m *MockTableSource) Table(
	ctx context.Context,
	coords []domain.Coordinates,
	sources []int,
	destinations []int,
) ([][]*float64, error) {
	m.calls.Add(1)

	if m.Err != nil {
		return nil, m.Err
	}
	if len(coords) > m.Cap {
		return nil, fmt.Errorf("mock table: %d coordinates exceed cap %d", len(coords), m.Cap)
	}

	global := make([]int, len(coords))
	for i, c := range coords {
		idx := -1
		for g, p := range m.Points {
			if p == c {
				idx = g
				break
			}
		}
		if idx == -1 {
			return nil, fmt.Errorf("mock table: unknown coordinate %+v", c)
		}
		global[i] = idx
	}

	if sources == nil {
		sources = allIndices(len(coords))
	}
	if destinations == nil {
		destinations = allIndices(len(coords))
	}

	out := make([][]*float64, len(sources))
	for r, s := range sources {
		row := make([]*float64, len(destinations))
		for c, d := range destinations {
			v := m.Matrix[global[s]][global[d]]
			if v >= 0 {
				val := v
				row[c] = &val
			}
		}
		out[r] = row
	}

	return out, nil
}

func allIndices(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}
