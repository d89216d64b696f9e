package cty

import (
	"strings"
	"testing"
)

const sampleCTY = `Sicily:                   15:  28:  EU:   37.50:   -14.00:    -1.0:  *IT9:
    IT9,=IT9ABC/QRP,[IW9],IT9X(16);
Italy:                    15:  28:  EU:   42.82:   -12.58:    -1.0:  I:
    I,IK,IZ;
United States:            05:  08:  NA:   37.53:   91.67:     5.0:  K:
    K,W,N,AA,K5(4);
`

func TestParseCountryFile(t *testing.T) {
	records, err := ParseCountryFile(strings.NewReader(sampleCTY))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	cases := []struct {
		prefix  string
		country string
	}{
		{"IT9", "Sicily"},
		{"IT9ABC/QRP", "Sicily"}, // exact-callsign marker stripped
		{"IW9", "Sicily"},        // bracket marker stripped
		{"IT9X", "Sicily"},       // zone override stripped
		{"I", "Italy"},
		{"K", "United States"},
		{"K5", "United States"}, // zone override stripped
	}
	for _, tc := range cases {
		rec, ok := records[tc.prefix]
		if !ok {
			t.Errorf("prefix %q missing", tc.prefix)
			continue
		}
		if rec.Country != tc.country {
			t.Errorf("prefix %q -> %q, want %q", tc.prefix, rec.Country, tc.country)
		}
	}

	if rec := records["IT9"]; rec.CQZone != 15 || rec.ITUZone != 28 || rec.Continent != "EU" {
		t.Errorf("unexpected header metadata: %+v", rec)
	}
	if rec := records["IT9"]; rec.Prefix != "IT9" {
		t.Errorf("primary prefix = %q, want IT9 (asterisk stripped)", rec.Prefix)
	}
}

func TestParseCountryFileLastWriteWins(t *testing.T) {
	dup := `Alpha:  01:  01:  EU:   0.0:   0.0:    0.0:  A:
    AB;
Beta:   02:  02:  EU:   0.0:   0.0:    0.0:  B:
    AB;
`
	records, err := ParseCountryFile(strings.NewReader(dup))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if rec := records["AB"]; rec.Country != "Beta" {
		t.Fatalf("AB -> %q, want Beta (last write wins)", rec.Country)
	}
}

func TestIsValidGrid(t *testing.T) {
	valid := []string{"JM77", "FN32", "EM48", "JM77lo", "AR09AX"}
	invalid := []string{"", "J", "JM7", "JM779", "12AB", "ZZ11", "JM7Z", "JM77zz9"}
	for _, g := range valid {
		if !IsValidGrid(g) {
			t.Errorf("IsValidGrid(%q) = false, want true", g)
		}
	}
	for _, g := range invalid {
		if IsValidGrid(g) {
			t.Errorf("IsValidGrid(%q) = true, want false", g)
		}
	}
}
