package cty

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const samplePlist = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>IT9</key>
	<dict>
		<key>Country</key><string>Sicily</string>
		<key>Prefix</key><string>IT9</string>
		<key>CQZone</key><integer>15</integer>
		<key>ITUZone</key><integer>28</integer>
		<key>Continent</key><string>EU</string>
	</dict>
	<key>w</key>
	<dict>
		<key>Country</key><string>United States</string>
		<key>Prefix</key><string>K</string>
		<key>CQZone</key><integer>5</integer>
		<key>ITUZone</key><integer>8</integer>
		<key>Continent</key><string>NA</string>
	</dict>
</dict>
</plist>
`

func TestParseCountryPlist(t *testing.T) {
	records, err := ParseCountryPlist(strings.NewReader(samplePlist))
	if err != nil {
		t.Fatalf("ParseCountryPlist failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}

	sicily, ok := records["IT9"]
	if !ok {
		t.Fatal("missing IT9 record")
	}
	if sicily.Country != "Sicily" || sicily.CQZone != 15 || sicily.ITUZone != 28 || sicily.Continent != "EU" {
		t.Fatalf("IT9 record mismatch: %+v", sicily)
	}

	// Keys are normalized to uppercase.
	us, ok := records["W"]
	if !ok {
		t.Fatal("missing W record (lowercase key should be uppercased)")
	}
	if us.Country != "United States" || us.Prefix != "K" {
		t.Fatalf("W record mismatch: %+v", us)
	}
}

func TestParseCountryPlistRejectsGarbage(t *testing.T) {
	if _, err := ParseCountryPlist(strings.NewReader("not a plist")); err == nil {
		t.Fatal("expected error for malformed plist")
	}
}

func TestLoadSelectsPlistByExtension(t *testing.T) {
	dir := t.TempDir()
	countryPath := filepath.Join(dir, "cty.plist")
	if err := os.WriteFile(countryPath, []byte(samplePlist), 0o644); err != nil {
		t.Fatalf("write plist: %v", err)
	}
	mappingPath := filepath.Join(dir, "entities.json")
	if err := os.WriteFile(mappingPath, []byte(`{"248":"ITALY","291":"UNITED STATES OF AMERICA"}`), 0o644); err != nil {
		t.Fatalf("write mapping: %v", err)
	}

	resolver, err := Load(countryPath, mappingPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !resolver.Loaded() {
		t.Fatal("resolver should be loaded from plist data")
	}
	entity, ok := resolver.Resolve("IT9")
	if !ok || entity != "248" {
		t.Fatalf("Resolve(IT9) = %q, %v; want 248, true", entity, ok)
	}
	entity, ok = resolver.Resolve("W")
	if !ok || entity != "291" {
		t.Fatalf("Resolve(W) = %q, %v; want 291, true", entity, ok)
	}
}

func TestLoadCountryPlistMissingFile(t *testing.T) {
	if _, err := LoadCountryPlist(filepath.Join(t.TempDir(), "absent.plist")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
