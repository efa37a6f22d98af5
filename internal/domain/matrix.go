package domain

// Unreachable marks origin->destination pairs the road network cannot
// connect. A large finite value keeps min/max reductions and integer
// scaling well-defined where NaN or +Inf would not.
const Unreachable = 1e9

// DistanceMatrix is a square table of directed travel costs in meters,
// indexed over the same ordering as the point list it was built from.
// Entries are non-negative; road matrices are not guaranteed symmetric.
// Built once per optimization request and read-only afterward.
type DistanceMatrix [][]float64

// NewDistanceMatrix allocates an n×n zero matrix.
func NewDistanceMatrix(n int) DistanceMatrix {
	m := make(DistanceMatrix, n)
	for i := range m {
		m[i] = make([]float64, n)
	}
	return m
}

// Len returns the matrix side length.
func (m DistanceMatrix) Len() int { return len(m) }

// Max returns the largest entry, or 0 for an empty matrix.
func (m DistanceMatrix) Max() float64 {
	max := 0.0
	for _, row := range m {
		for _, v := range row {
			if v > max {
				max = v
			}
		}
	}
	return max
}
