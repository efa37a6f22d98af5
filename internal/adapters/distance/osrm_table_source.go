package distance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"route-optimizer-service/internal/domain"
	"strconv"
	"strings"
	"time"
)

// Hard per-request coordinate limit of the public OSRM demo server.
const osrmMaxCoordinates = 100

// OSRMTableSource implements the table-distance port against an OSRM
// /table endpoint. It owns its HTTP client explicitly; callers construct
// one per process and inject it where needed.
type OSRMTableSource struct {
	session   *http.Client
	baseURL   string
	profile   string
	maxCoords int
}

type tableResponse struct {
	Code      string       `json:"code"`
	Distances [][]*float64 `json:"distances"`
}

func NewOSRMTableSource(baseURL string) *OSRMTableSource {
	if baseURL == "" {
		baseURL = "https://router.project-osrm.org"
	}

	return &OSRMTableSource{
		session:   &http.Client{Timeout: 60 * time.Second},
		baseURL:   strings.TrimRight(baseURL, "/"),
		profile:   "driving",
		maxCoords: osrmMaxCoordinates,
	}
}

func (o *OSRMTableSource) MaxTableCoordinates() int { return o.maxCoords }

// Table fetches one sources×destinations distance grid. Nil index lists
// mean "all coordinates" and are omitted from the request to keep the URL
// short. Unreachable pairs come back as nil cells, untouched.
func (o *OSRMTableSource) Table(
	ctx context.Context,
	coords []domain.Coordinates,
	sources []int,
	destinations []int,
) ([][]*float64, error) {
	if len(coords) == 0 {
		return nil, fmt.Errorf("osrm table: coordinate list must not be empty")
	}
	if len(coords) > o.maxCoords {
		return nil, fmt.Errorf("osrm table: %d coordinates exceed per-request cap %d", len(coords), o.maxCoords)
	}

	endpoint := o.tableURL(coords, sources, destinations)

	resp, err := o.doWithRetry(ctx, func() (*http.Request, error) {
		return o.newRequest(ctx, http.MethodGet, endpoint)
	})
	if err != nil {
		return nil, fmt.Errorf("osrm table request: %w", err)
	}
	defer resp.Body.Close()

	var tr tableResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("decode osrm table response: %w", err)
	}

	if tr.Code != "Ok" {
		return nil, fmt.Errorf("osrm table returned code=%q", tr.Code)
	}
	if tr.Distances == nil {
		return nil, fmt.Errorf("osrm table response missing distances")
	}

	return tr.Distances, nil
}

// tableURL renders the OSRM table request. OSRM wants lng,lat order.
func (o *OSRMTableSource) tableURL(coords []domain.Coordinates, sources, destinations []int) string {
	parts := make([]string, len(coords))
	for i, c := range coords {
		parts[i] = fmt.Sprintf("%.6f,%.6f", c.Lng, c.Lat)
	}

	var sb strings.Builder
	sb.WriteString(o.baseURL)
	sb.WriteString("/table/v1/")
	sb.WriteString(o.profile)
	sb.WriteString("/")
	sb.WriteString(strings.Join(parts, ";"))
	sb.WriteString("?annotations=distance")

	if sources != nil {
		sb.WriteString("&sources=")
		sb.WriteString(joinIndices(sources))
	}
	if destinations != nil {
		sb.WriteString("&destinations=")
		sb.WriteString(joinIndices(destinations))
	}

	return sb.String()
}

func joinIndices(idx []int) string {
	parts := make([]string, len(idx))
	for i, v := range idx {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ";")
}
