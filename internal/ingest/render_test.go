package ingest

import (
	"encoding/base64"
	"encoding/csv"
	"route-optimizer-service/internal/domain"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleStops() []domain.VisitStop {
	rev := 1234.5
	return []domain.VisitStop{
		{
			VisitOrder: 1, Day: 1, Name: "Alpha", Address: "Vesterbrogade 1",
			Lat: 55.6753, Lng: 12.5683, LegMeters: 812.4, Revenue: &rev,
			URL: "https://alpha.example",
		},
		{
			VisitOrder: 2, Day: 1, Name: "Beta", Address: "Istedgade 30",
			Lat: 55.6707, Lng: 12.5554, LegMeters: 0,
		},
	}
}

func TestRenderVisitCSV(t *testing.T) {
	out, err := RenderVisitCSV(sampleStops())
	require.NoError(t, err)

	r := csv.NewReader(strings.NewReader(out))
	records, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "visit_order", records[0][0])
	assert.Equal(t, []string{
		"1", "1", "Alpha", "Vesterbrogade 1",
		"55.6753000", "12.5683000", "812.4", "1234.50", "https://alpha.example",
	}, records[1])

	// Missing revenue renders as an empty cell, not zero.
	assert.Equal(t, "", records[2][7])
	assert.Equal(t, "0.0", records[2][6])
}

func TestRenderVisitCSVBase64RoundTrips(t *testing.T) {
	encoded, err := RenderVisitCSVBase64(sampleStops())
	require.NoError(t, err)

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)

	plain, err := RenderVisitCSV(sampleStops())
	require.NoError(t, err)
	assert.Equal(t, plain, string(decoded))
}
