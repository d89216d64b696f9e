package cty

import (
	"regexp"
	"strings"

	lev "github.com/agnivade/levenshtein"
)

// entityOverrides pins entity identifiers whose LoTW country name and CTY
// country name diverge too far for normalization or fuzzy matching to bridge.
// Keyed by entity identifier; the value lists the CTY table names that roll
// up to that entity (Sicily and Sardinia both count as Italy).
var entityOverrides = map[string][]string{
	"291": {"United States"},
	"110": {"Hawaii"},
	"6":   {"Alaska"},
	"248": {"Sicily", "Sardinia"},
	"223": {"England"},
	"279": {"Scotland"},
	"294": {"Wales"},
	"265": {"Northern Ireland"},
	"105": {"Guantanamo Bay"},
	"202": {"Puerto Rico"},
	"285": {"Virgin Islands", "US Virgin Islands"},
	"54":  {"European Russia"},
	"15":  {"Asiatic Russia"},
	"126": {"Kaliningrad"},
}

var (
	spaceRE  = regexp.MustCompile(`\s+`)
	parensRE = regexp.MustCompile(`\([^)]*\)`)
)

// normalizeCountry uppercases, collapses whitespace, and drops parenthetical
// qualifiers so the two tables' naming conventions line up where possible.
func normalizeCountry(name string) string {
	n := strings.ToUpper(strings.TrimSpace(name))
	n = parensRE.ReplaceAllString(n, "")
	n = spaceRE.ReplaceAllString(n, " ")
	return strings.TrimSpace(n)
}

// countryTokens splits a normalized country name into significant words.
// Words of two characters or fewer carry no signal ("OF", "IS").
func countryTokens(normalized string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, w := range strings.Fields(normalized) {
		if len(w) > 2 {
			tokens[w] = struct{}{}
		}
	}
	return tokens
}

// overlapRatio computes the shared-token ratio of two token sets against the
// larger set. Empty sets never match.
func overlapRatio(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	shared := 0
	for w := range a {
		if _, ok := b[w]; ok {
			shared++
		}
	}
	larger := len(a)
	if len(b) > larger {
		larger = len(b)
	}
	return float64(shared) / float64(larger)
}

const fuzzyMatchThreshold = 0.6

// buildCountryToEntity maps CTY country names to entity identifiers using the
// externally supplied entityID -> country-name table. Resolution order per
// entity: manual override, exact normalized-name match, then fuzzy token
// overlap >= 0.6 with levenshtein distance breaking ties between candidates
// of equal overlap.
func buildCountryToEntity(records map[string]EntityRecord, entityNames map[string]string) map[string]string {
	// Collect the distinct CTY country names with their normalized forms.
	type ctyCountry struct {
		name       string
		normalized string
		tokens     map[string]struct{}
	}
	seen := make(map[string]struct{})
	var countries []ctyCountry
	byNormalized := make(map[string]string)
	for _, rec := range records {
		if _, ok := seen[rec.Country]; ok {
			continue
		}
		seen[rec.Country] = struct{}{}
		norm := normalizeCountry(rec.Country)
		countries = append(countries, ctyCountry{
			name:       rec.Country,
			normalized: norm,
			tokens:     countryTokens(norm),
		})
		byNormalized[norm] = rec.Country
	}

	out := make(map[string]string, len(entityNames))
	for entityID, lotwName := range entityNames {
		mapped := false
		for _, ctyName := range entityOverrides[entityID] {
			if _, known := seen[ctyName]; known {
				out[ctyName] = entityID
				mapped = true
			}
		}

		norm := normalizeCountry(lotwName)
		if ctyName, ok := byNormalized[norm]; ok {
			out[ctyName] = entityID
			mapped = true
		}
		if mapped {
			continue
		}

		lotwTokens := countryTokens(norm)
		best := ""
		bestRatio := 0.0
		bestDist := 0
		for _, c := range countries {
			ratio := overlapRatio(lotwTokens, c.tokens)
			if ratio < fuzzyMatchThreshold {
				continue
			}
			dist := lev.ComputeDistance(norm, c.normalized)
			if ratio > bestRatio || (ratio == bestRatio && (best == "" || dist < bestDist)) {
				best = c.name
				bestRatio = ratio
				bestDist = dist
			}
		}
		if best != "" {
			out[best] = entityID
		}
	}
	return out
}
