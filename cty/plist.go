package cty

import (
	"fmt"
	"io"
	"os"
	"strings"

	"howett.net/plist"
)

// plistEntry mirrors one entry of a cty.plist country table.
type plistEntry struct {
	Country   string `plist:"Country"`
	Prefix    string `plist:"Prefix"`
	CQZone    int    `plist:"CQZone"`
	ITUZone   int    `plist:"ITUZone"`
	Continent string `plist:"Continent"`
}

// ParseCountryPlist decodes the plist rendition of the country table. Some
// tooling ships the CTY data as cty.plist instead of the flat cty.dat; both
// produce the same prefix -> record map.
func ParseCountryPlist(r io.ReadSeeker) (map[string]EntityRecord, error) {
	var raw map[string]plistEntry
	if err := plist.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode country plist: %w", err)
	}
	records := make(map[string]EntityRecord, len(raw))
	for key, entry := range raw {
		prefix := strings.ToUpper(strings.TrimSpace(key))
		if prefix == "" {
			continue
		}
		records[prefix] = EntityRecord{
			Prefix:    strings.ToUpper(strings.TrimSpace(entry.Prefix)),
			Country:   entry.Country,
			Continent: entry.Continent,
			CQZone:    entry.CQZone,
			ITUZone:   entry.ITUZone,
		}
	}
	return records, nil
}

// LoadCountryPlist reads a cty.plist country table from disk.
func LoadCountryPlist(path string) (map[string]EntityRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open country plist: %w", err)
	}
	defer f.Close()
	return ParseCountryPlist(f)
}
