package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"route-optimizer-service/internal/domain"
	"route-optimizer-service/internal/platform/obs"
	"route-optimizer-service/internal/ports"
	"sync"
)

// Bound on concurrent chunk-pair requests against the live service.
const maxConcurrentTableRequests = 4

// BuildDistanceMatrix computes the pairwise travel-distance matrix for the
// given points. When useLive is set it tries the road-network table service
// first; any failure there degrades silently to a great-circle estimate.
// The only hard error is an empty point list.
func BuildDistanceMatrix(
	ctx context.Context,
	points []domain.Coordinates,
	useLive bool,
	source ports.TableSource,
) (_ domain.DistanceMatrix, err error) {
	defer obs.Time(ctx, "matrix.BuildDistanceMatrix")(&err)

	if len(points) == 0 {
		return nil, errors.New("build distance matrix: point list must not be empty")
	}

	if useLive && source != nil {
		m, liveErr := liveMatrix(ctx, points, source)
		if liveErr == nil {
			return m, nil
		}
		log.Printf("live distance service degraded, using great-circle fallback: %v", liveErr)
	}

	return greatCircleMatrix(points), nil
}

// greatCircleMatrix is the closed-form fallback: symmetric, zero diagonal,
// no I/O.
func greatCircleMatrix(points []domain.Coordinates) domain.DistanceMatrix {
	n := len(points)
	m := domain.NewDistanceMatrix(n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := points[i].GreatCircleMeters(points[j])
			m[i][j] = d
			m[j][i] = d
		}
	}
	return m
}

// liveMatrix fills an N×N matrix from the table service, in one request when
// N fits under the per-request coordinate cap and from chunk-pair
// sub-requests otherwise. It is all-or-nothing: a failed sub-request aborts
// the whole attempt rather than returning a partially filled matrix.
func liveMatrix(
	ctx context.Context,
	points []domain.Coordinates,
	source ports.TableSource,
) (domain.DistanceMatrix, error) {
	n := len(points)
	limit := source.MaxTableCoordinates()
	if limit < 2 {
		return nil, fmt.Errorf("live matrix: coordinate cap %d is unusable", limit)
	}

	if n <= limit {
		// Nil index lists let the adapter omit them from the request.
		cells, err := source.Table(ctx, points, nil, nil)
		if err != nil {
			return nil, fmt.Errorf("live matrix: full table request: %w", err)
		}
		if len(cells) != n {
			return nil, fmt.Errorf("live matrix: expected %d rows, got %d", n, len(cells))
		}

		m := domain.NewDistanceMatrix(n)
		for i, row := range cells {
			if len(row) != n {
				return nil, fmt.Errorf("live matrix: row %d has %d cells, want %d", i, len(row), n)
			}
			for j, v := range row {
				m[i][j] = sanitizeCell(v)
			}
		}
		return m, nil
	}

	return chunkedMatrix(ctx, points, source, limit/2)
}

// chunkedMatrix partitions the points into contiguous chunks of at most
// chunkSize (half the cap, so any two chunks combined stay under it) and
// issues one sub-request per ordered chunk pair. Sub-requests run
// concurrently under a bounded semaphore; each writes a disjoint block of
// cells, so the shared matrix needs no lock.
func chunkedMatrix(
	ctx context.Context,
	points []domain.Coordinates,
	source ports.TableSource,
	chunkSize int,
) (domain.DistanceMatrix, error) {
	n := len(points)

	type chunk struct{ start, end int } // [start, end)
	chunks := make([]chunk, 0, (n+chunkSize-1)/chunkSize)
	for i := 0; i < n; i += chunkSize {
		end := i + chunkSize
		if end > n {
			end = n
		}
		chunks = append(chunks, chunk{start: i, end: end})
	}

	log.Printf("chunked matrix: points=%d chunks=%d requests=%d", n, len(chunks), len(chunks)*len(chunks))

	matrix := domain.NewDistanceMatrix(n)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := make(chan struct{}, maxConcurrentTableRequests)
	errCh := make(chan error, len(chunks)*len(chunks))
	var wg sync.WaitGroup

	for _, src := range chunks {
		for _, dst := range chunks {
			wg.Add(1)
			go func(src, dst chunk) {
				sem <- struct{}{}
				defer wg.Done()
				defer func() { <-sem }()

				if ctx.Err() != nil {
					errCh <- ctx.Err()
					return
				}

				if err := fetchChunkPair(ctx, points, source, src.start, src.end, dst.start, dst.end, matrix); err != nil {
					errCh <- err
					cancel()
				}
			}(src, dst)
		}
	}

	wg.Wait()
	close(errCh)

	for err := range errCh {
		if err != nil {
			return nil, fmt.Errorf("chunked matrix: %w", err)
		}
	}

	return matrix, nil
}

// fetchChunkPair requests the src-chunk × dst-chunk block and writes it into
// the global matrix. The coordinate set sent upstream is the union of the two
// chunks; source/destination lists are local indices within that union.
func fetchChunkPair(
	ctx context.Context,
	points []domain.Coordinates,
	source ports.TableSource,
	srcStart, srcEnd, dstStart, dstEnd int,
	matrix domain.DistanceMatrix,
) error {
	srcLen := srcEnd - srcStart
	dstLen := dstEnd - dstStart

	var (
		coords  []domain.Coordinates
		sources []int
		dests   []int
	)

	if srcStart == dstStart {
		// A chunk against itself: the union is the chunk and both index
		// lists cover it fully, so they can be omitted upstream.
		coords = points[srcStart:srcEnd]
	} else {
		coords = make([]domain.Coordinates, 0, srcLen+dstLen)
		coords = append(coords, points[srcStart:srcEnd]...)
		coords = append(coords, points[dstStart:dstEnd]...)

		sources = make([]int, srcLen)
		for i := range sources {
			sources[i] = i
		}
		dests = make([]int, dstLen)
		for i := range dests {
			dests[i] = srcLen + i
		}
	}

	cells, err := source.Table(ctx, coords, sources, dests)
	if err != nil {
		return fmt.Errorf("chunk pair [%d:%d)x[%d:%d): %w", srcStart, srcEnd, dstStart, dstEnd, err)
	}
	if len(cells) != srcLen {
		return fmt.Errorf("chunk pair [%d:%d)x[%d:%d): expected %d rows, got %d",
			srcStart, srcEnd, dstStart, dstEnd, srcLen, len(cells))
	}

	for r, row := range cells {
		if len(row) != dstLen {
			return fmt.Errorf("chunk pair [%d:%d)x[%d:%d): row %d has %d cells, want %d",
				srcStart, srcEnd, dstStart, dstEnd, r, len(row), dstLen)
		}
		for c, v := range row {
			matrix[srcStart+r][dstStart+c] = sanitizeCell(v)
		}
	}

	return nil
}

// sanitizeCell maps "no route found" responses (null or negative cells) to
// the finite Unreachable sentinel.
func sanitizeCell(v *float64) float64 {
	if v == nil || *v < 0 {
		return domain.Unreachable
	}
	return *v
}
