// Package cty loads the flat CTY country/prefix table and maps on-air
// callsign prefixes to stable award entity identifiers. Lookups are
// fail-open: an unknown prefix or a missing source table degrades to "no
// entity" instead of an error, so classification never crashes on feed junk.
package cty

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// EntityRecord describes the metadata stored for each CTY entry.
type EntityRecord struct {
	Prefix    string // primary prefix for the entity (e.g., "IT9")
	Country   string // entity display name (e.g., "Sicily")
	Continent string // two-letter continent code
	CQZone    int
	ITUZone   int
}

// ParseCountryFile parses the flat cty.dat format: colon-delimited header
// records followed by comma-delimited prefix continuation lines terminated
// with a semicolon. Three prefix notations are handled: "=CALL" marks an
// exact callsign, "[ALT]" a bracketed alternate, and a parenthetical zone
// override suffix is stripped before storage. The last write for a given
// prefix wins.
func ParseCountryFile(r io.Reader) (map[string]EntityRecord, error) {
	prefixes := make(map[string]EntityRecord)
	var current EntityRecord
	haveCurrent := false

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 256*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		// Header record: eight colon-separated fields, trailing colon.
		if strings.Count(line, ":") >= 7 && strings.HasSuffix(line, ":") {
			parts := strings.Split(line, ":")
			current = EntityRecord{
				Country:   strings.TrimSpace(parts[0]),
				CQZone:    atoiOrZero(parts[1]),
				ITUZone:   atoiOrZero(parts[2]),
				Continent: strings.TrimSpace(parts[3]),
				Prefix:    strings.TrimPrefix(strings.TrimSpace(parts[7]), "*"),
			}
			haveCurrent = true
			continue
		}

		if !haveCurrent {
			continue
		}

		for _, raw := range strings.Split(strings.TrimSuffix(line, ";"), ",") {
			prefix := cleanPrefix(raw)
			if prefix == "" {
				continue
			}
			prefixes[prefix] = current
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read country file: %w", err)
	}
	return prefixes, nil
}

// LoadCountryFile reads and parses cty.dat from disk.
func LoadCountryFile(path string) (map[string]EntityRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open country file: %w", err)
	}
	defer f.Close()
	return ParseCountryFile(f)
}

// cleanPrefix strips the special cty.dat notations from one prefix token and
// normalizes it to uppercase.
func cleanPrefix(raw string) string {
	p := strings.TrimSpace(raw)
	switch {
	case p == "":
		return ""
	case strings.HasPrefix(p, "="):
		p = p[1:]
	case strings.HasPrefix(p, "["):
		p = strings.Trim(p, "[]")
	}
	// Zone overrides like "K5(4)" or "VE2(2)[4]" apply to zones only; the
	// stored prefix drops everything from the first parenthesis on.
	if idx := strings.IndexByte(p, '('); idx >= 0 {
		p = p[:idx]
	}
	if idx := strings.IndexByte(p, '['); idx >= 0 {
		p = p[:idx]
	}
	return strings.ToUpper(strings.TrimSpace(p))
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
