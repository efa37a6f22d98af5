// Package ingest turns uploaded store spreadsheets into optimizer input
// and renders solved routes back out as CSV.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var candidateDelimiters = []rune{',', ';', '\t', '|'}

// ParseCSV decodes raw upload bytes into a header row and data rows. The
// bytes are tried as UTF-8 first, then Latin-1 and Windows-1252, since
// exports from older spreadsheet tools commonly ship in those encodings.
func ParseCSV(raw []byte) (header []string, rows [][]string, err error) {
	if len(raw) == 0 {
		return nil, nil, errors.New("parse csv: empty file")
	}

	text, err := decodeBytes(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("parse csv: %w", err)
	}

	// Strip a UTF-8 BOM so the first header cell matches by name.
	text = strings.TrimPrefix(text, "\uFEFF")

	delim := sniffDelimiter(text)

	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delim
	r.FieldsPerRecord = -1 // tolerate ragged rows
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("parse csv: read records: %w", err)
	}
	if len(records) < 2 {
		return nil, nil, errors.New("parse csv: need a header row and at least one data row")
	}

	header = make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(h)
	}

	rows = make([][]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		empty := true
		for _, cell := range rec {
			if strings.TrimSpace(cell) != "" {
				empty = false
				break
			}
		}
		if !empty {
			rows = append(rows, rec)
		}
	}
	if len(rows) == 0 {
		return nil, nil, errors.New("parse csv: no data rows")
	}

	return header, rows, nil
}

func decodeBytes(raw []byte) (string, error) {
	if utf8.Valid(raw) {
		return string(raw), nil
	}

	for _, cm := range []*charmap.Charmap{charmap.ISO8859_1, charmap.Windows1252} {
		decoded, err := cm.NewDecoder().Bytes(raw)
		if err == nil && utf8.Valid(decoded) {
			return string(decoded), nil
		}
	}

	return "", errors.New("unsupported text encoding")
}

// sniffDelimiter picks the candidate that splits the header line into the
// most fields. Ties go to the earlier candidate, so comma wins by default.
func sniffDelimiter(text string) rune {
	firstLine := text
	if i := strings.IndexAny(text, "\r\n"); i >= 0 {
		firstLine = text[:i]
	}

	best := ','
	bestCount := 0
	for _, d := range candidateDelimiters {
		if n := strings.Count(firstLine, string(d)); n > bestCount {
			best = d
			bestCount = n
		}
	}

	return best
}
