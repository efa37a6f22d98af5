package ingest

import (
	"encoding/base64"
	"encoding/csv"
	"fmt"
	"route-optimizer-service/internal/domain"
	"strings"
)

// RenderVisitCSV writes the solved route as a CSV in visit order, one row
// per stop.
func RenderVisitCSV(stops []domain.VisitStop) (string, error) {
	var b strings.Builder
	w := csv.NewWriter(&b)

	header := []string{
		"visit_order", "day", "name", "address",
		"lat", "lng", "leg_distance_m", "revenue", "url",
	}
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("render csv: write header: %w", err)
	}

	for _, s := range stops {
		revenue := ""
		if s.Revenue != nil {
			revenue = fmt.Sprintf("%.2f", *s.Revenue)
		}

		row := []string{
			fmt.Sprintf("%d", s.VisitOrder),
			fmt.Sprintf("%d", s.Day),
			s.Name,
			s.Address,
			fmt.Sprintf("%.7f", s.Lat),
			fmt.Sprintf("%.7f", s.Lng),
			fmt.Sprintf("%.1f", s.LegMeters),
			revenue,
			s.URL,
		}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("render csv: write row %d: %w", s.VisitOrder, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("render csv: flush: %w", err)
	}

	return b.String(), nil
}

// RenderVisitCSVBase64 returns the visit CSV base64-encoded for inline
// download links.
func RenderVisitCSVBase64(stops []domain.VisitStop) (string, error) {
	text, err := RenderVisitCSV(stops)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString([]byte(text)), nil
}
