package geocode

import (
	"regexp"
	"strings"
)

// Patterns that indicate the address already names its city or country.
var cityRe = regexp.MustCompile(`(?i)(københavn|copenhagen|kbh|frederiksberg|denmark|danmark)`)

// A street-like component contains letters followed by a house number.
var streetLikeRe = regexp.MustCompile(`[a-zA-ZæøåÆØÅé].*\d`)

// Floor/apartment/unit suffixes: ", 2", ", st", ", 1. sal", ", 1st floor",
// ", c/o", ", kld". The trailing separator is captured and restored since
// RE2 has no lookahead.
var floorRe = regexp.MustCompile(`(?i),\s*(?:\d{1,2}\.?\s*(?:sal|th|tv|mf|floor)?|st\.?|kld\.?|\d+(?:st|nd|rd|th)\s*floor|c/o)\s*(,|$)`)

// Common Danish street abbreviations, expanded before lookup. Ordered so
// longer forms win over their prefixes.
var abbreviations = []struct{ abbr, full string }{
	{"blvd.", "Boulevard"},
	{"blvd", "Boulevard"},
	{"gl.", "Gammel"},
	{"gl ", "Gammel "},
	{"st.", "Store"},
	{"nr.", "Nummer"},
	{"vej.", "Vej"},
	{"allé.", "Allé"},
	{"pl.", "Plads"},
	{"pl ", "Plads "},
	{"str.", "Stræde"},
	{"bgd.", "Borgergade"},
	{"skt.", "Sankt"},
	{"dr.", "Doktor"},
	{"kgs.", "Kongens"},
}

var abbreviationRes = func() []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(abbreviations))
	for i, a := range abbreviations {
		res[i] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(a.abbr))
	}
	return res
}()

// Frederiksberg postal codes; addresses carrying one are not København
// even when they say so.
var frederiksbergPostcodes = []string{"2000", "2720", "1800", "1850", "1900", "1950"}

var copenhagenWordRe = regexp.MustCompile(`(?i)København\b`)

func expandAbbreviations(text string) string {
	result := text
	for i, a := range abbreviations {
		result = abbreviationRes[i].ReplaceAllString(result, a.full)
	}
	return result
}

// stripNonAddressPrefix drops leading comma-separated components that do
// not look like street addresses (business names, junk text).
func stripNonAddressPrefix(addr string) string {
	parts := strings.Split(addr, ",")
	for i, part := range parts {
		if streetLikeRe.MatchString(strings.TrimSpace(part)) {
			trimmed := make([]string, 0, len(parts)-i)
			for _, p := range parts[i:] {
				trimmed = append(trimmed, strings.TrimSpace(p))
			}
			return strings.Join(trimmed, ", ")
		}
	}
	return addr
}

// fixFrederiksbergPostcode rewrites "København" to "Frederiksberg" when
// the postal code says the latter.
func fixFrederiksbergPostcode(addr string) string {
	lower := strings.ToLower(addr)
	if !strings.Contains(lower, "københavn") || strings.Contains(lower, "frederiksberg") {
		return addr
	}
	for _, pc := range frederiksbergPostcodes {
		if strings.Contains(addr, pc) {
			return copenhagenWordRe.ReplaceAllString(addr, "Frederiksberg")
		}
	}
	return addr
}

func stripFloorSuffix(addr string) string {
	out := addr
	for {
		next := floorRe.ReplaceAllString(out, "$1")
		if next == out {
			break
		}
		out = next
	}
	return strings.TrimSpace(strings.TrimRight(strings.TrimSpace(out), ","))
}

// buildQueries produces lookup candidates for one raw address, most
// specific first, applying progressive cleaning: strip non-address
// prefixes, expand abbreviations, fix mislabelled postal codes, strip
// floor markers, and finally fall back to the bare street plus the city
// suffix. Duplicates are removed while preserving order.
func buildQueries(rawAddress, citySuffix string) []string {
	var queries []string
	add := func(q string) {
		q = strings.TrimSpace(strings.TrimRight(strings.TrimSpace(q), ","))
		if q == "" {
			return
		}
		for _, existing := range queries {
			if existing == q {
				return
			}
		}
		queries = append(queries, q)
	}

	addr := strings.TrimSpace(rawAddress)
	if addr == "" {
		return nil
	}

	addrClean := expandAbbreviations(stripNonAddressPrefix(addr))
	addrFixedCity := fixFrederiksbergPostcode(addrClean)
	addrNoFloor := stripFloorSuffix(addrFixedCity)

	if cityRe.MatchString(addrClean) {
		add(addrFixedCity)
		add(addrNoFloor)
		add(addrClean)
	} else {
		add(addrClean + citySuffix)
		add(addrNoFloor + citySuffix)
	}

	// Fallback: just the street component plus the city suffix.
	for _, part := range strings.Split(addrClean, ",") {
		part = strings.TrimSpace(part)
		if streetLikeRe.MatchString(part) {
			add(part + citySuffix)
			add(expandAbbreviations(part) + citySuffix)
			break
		}
	}

	return queries
}
