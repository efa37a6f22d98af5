package ingest

import (
	"fmt"
	"route-optimizer-service/internal/domain"
	"route-optimizer-service/internal/services"
	"strconv"
	"strings"
)

var addressColumnNames = []string{
	"address", "adresse", "street", "gade", "location", "addr",
}

var nameColumnNames = []string{
	"name", "navn", "store", "butik", "title", "company",
}

var urlColumnNames = []string{
	"url", "link", "website", "web", "hjemmeside",
}

var revenueColumnNames = []string{
	"revenue", "omsætning", "omsaetning", "sales", "value", "turnover",
}

var latColumnNames = []string{"lat", "latitude", "breddegrad"}
var lngColumnNames = []string{"lng", "lon", "long", "longitude", "længdegrad"}

type columnMap struct {
	address int
	name    int
	url     int
	revenue int
	lat     int
	lng     int
}

// BuildStores maps parsed CSV rows into optimizer input. addressColumn,
// when non-empty, names the address column explicitly and must exist;
// otherwise columns are auto-detected from the header and cell contents.
func BuildStores(header []string, rows [][]string, addressColumn string) ([]services.StoreInput, error) {
	cols, err := detectColumns(header, rows, addressColumn)
	if err != nil {
		return nil, err
	}

	stores := make([]services.StoreInput, 0, len(rows))
	for _, row := range rows {
		addr := cell(row, cols.address)
		if strings.TrimSpace(addr) == "" {
			continue
		}

		s := services.StoreInput{
			Address: strings.TrimSpace(addr),
			Name:    strings.TrimSpace(cell(row, cols.name)),
			URL:     strings.TrimSpace(cell(row, cols.url)),
		}

		if cols.revenue >= 0 && looksNumeric(cell(row, cols.revenue)) {
			if v, ok := parseRevenue(cell(row, cols.revenue)); ok {
				s.Revenue = &v
			}
		}

		if cols.lat >= 0 && cols.lng >= 0 {
			lat, latErr := strconv.ParseFloat(strings.TrimSpace(cell(row, cols.lat)), 64)
			lng, lngErr := strconv.ParseFloat(strings.TrimSpace(cell(row, cols.lng)), 64)
			if latErr == nil && lngErr == nil && lat != 0 && lng != 0 {
				s.Coords = &domain.Coordinates{Lat: lat, Lng: lng}
			}
		}

		stores = append(stores, s)
	}

	if len(stores) == 0 {
		return nil, fmt.Errorf("no rows with a usable address in column %q", header[cols.address])
	}

	return stores, nil
}

func detectColumns(header []string, rows [][]string, addressColumn string) (columnMap, error) {
	cols := columnMap{address: -1, name: -1, url: -1, revenue: -1, lat: -1, lng: -1}

	if addressColumn != "" {
		idx := findColumnExact(header, addressColumn)
		if idx < 0 {
			return cols, fmt.Errorf("address column %q not found in header %v", addressColumn, header)
		}
		cols.address = idx
	} else {
		cols.address = findColumnByNames(header, addressColumnNames)
		if cols.address < 0 {
			cols.address = firstTextColumn(header, rows)
		}
		if cols.address < 0 {
			return cols, fmt.Errorf("could not detect an address column in header %v", header)
		}
	}

	cols.name = findColumnByNames(header, nameColumnNames)
	cols.url = findColumnByNames(header, urlColumnNames)
	cols.lat = findColumnByNames(header, latColumnNames)
	cols.lng = findColumnByNames(header, lngColumnNames)

	// Revenue needs both a plausible name and numeric-looking cells, so a
	// "value" column full of prose is not mistaken for money.
	if idx := findColumnByNames(header, revenueColumnNames); idx >= 0 && columnMostlyNumeric(rows, idx) {
		cols.revenue = idx
	}

	return cols, nil
}

func findColumnExact(header []string, name string) int {
	want := strings.ToLower(strings.TrimSpace(name))
	for i, h := range header {
		if strings.ToLower(strings.TrimSpace(h)) == want {
			return i
		}
	}
	return -1
}

func findColumnByNames(header []string, names []string) int {
	for _, n := range names {
		for i, h := range header {
			lh := strings.ToLower(strings.TrimSpace(h))
			if lh == n || strings.Contains(lh, n) {
				return i
			}
		}
	}
	return -1
}

// firstTextColumn falls back to the first column whose cells are mostly
// non-numeric, which in store exports is almost always the address.
func firstTextColumn(header []string, rows [][]string) int {
	for i := range header {
		if !columnMostlyNumeric(rows, i) {
			return i
		}
	}
	return -1
}

func columnMostlyNumeric(rows [][]string, idx int) bool {
	numeric, filled := 0, 0
	for _, row := range rows {
		v := strings.TrimSpace(cell(row, idx))
		if v == "" {
			continue
		}
		filled++
		if looksNumeric(v) {
			numeric++
		}
	}
	return filled > 0 && numeric*2 > filled
}

// looksNumeric reports whether a cell is a bare number, possibly with
// separators and a currency marker. "Vesterbrogade 12" is not numeric;
// "1.234,56 kr" is.
func looksNumeric(raw string) bool {
	s := strings.ToLower(strings.TrimSpace(raw))
	for _, cur := range []string{"kr.", "kr", "dkk", "€", "$", "£"} {
		s = strings.TrimSuffix(s, cur)
		s = strings.TrimPrefix(s, cur)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}

	digits := 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '.', r == ',', r == '-', r == ' ':
		default:
			return false
		}
	}
	return digits > 0
}

// parseRevenue pulls a number out of a cell that may carry currency
// symbols, thousands separators, or whitespace. "1.234,56 kr" → 1234.56.
func parseRevenue(raw string) (float64, bool) {
	cleaned := make([]rune, 0, len(raw))
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',', r == '-':
			cleaned = append(cleaned, r)
		}
	}
	s := string(cleaned)
	if s == "" || s == "-" {
		return 0, false
	}

	// Danish exports use comma decimals; when both separators appear the
	// last one is the decimal mark.
	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")
	if lastComma > lastDot {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}
