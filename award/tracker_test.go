package award

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNormalizeBand(t *testing.T) {
	cases := []struct{ in, want string }{
		{"20m", "20M"},
		{"20M", "20M"},
		{"20", "20M"},
		{" 6m ", "6M"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := NormalizeBand(tc.in); got != tc.want {
			t.Errorf("NormalizeBand(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeGrid(t *testing.T) {
	if got := NormalizeGrid("em48xx"); got != "EM48" {
		t.Fatalf("got %q", got)
	}
	if got := NormalizeGrid("EM4"); got != "" {
		t.Fatalf("short grid should normalize to empty, got %q", got)
	}
}

func TestIsNeededChallenge(t *testing.T) {
	tr := NewTracker()

	// Fail open: nothing loaded means nothing is needed.
	if tr.IsNeededChallenge("248", "20m") {
		t.Fatal("empty tracker reported a needed slot")
	}

	tr.SetChallenge([][2]string{
		{"20M", "248"},
		{"15m", "248"}, // lowercase on load, must still match
	})

	if tr.IsNeededChallenge("248", "20m") {
		t.Error("worked 20M slot reported as needed")
	}
	if tr.IsNeededChallenge("248", "15M") {
		t.Error("worked 15M slot reported as needed")
	}
	if !tr.IsNeededChallenge("248", "10m") {
		t.Error("unworked 10M slot not reported as needed")
	}
	if !tr.IsNeededChallenge("291", "20m") {
		t.Error("unworked entity not reported as needed")
	}
	if tr.IsNeededChallenge("", "20m") {
		t.Error("empty entity reported as needed")
	}
}

func TestIsNeededGrid(t *testing.T) {
	tr := NewTracker()
	tr.SetEligibleGrids([]string{"EM48", "DN13", "CM79"})
	tr.SetWorkedGrids(map[string]WorkedGrid{
		"EM48": {Call: "W0ABC", Date: "2024-06-01"},
	})

	if tr.IsNeededGrid("EM48") {
		t.Error("worked grid reported as needed")
	}
	if !tr.IsNeededGrid("DN13") {
		t.Error("eligible unworked grid not reported as needed")
	}
	// 6-char grids truncate to 4 before comparison.
	if tr.IsNeededGrid("EM48xx") {
		t.Error("worked grid (6-char form) reported as needed")
	}
	if !tr.IsNeededGrid("dn13pq") {
		t.Error("eligible unworked grid (6-char form) not reported as needed")
	}
	// Outside the catalog is never needed.
	if tr.IsNeededGrid("JN58") {
		t.Error("non-catalog grid reported as needed")
	}
	if tr.IsNeededGrid("") {
		t.Error("empty grid reported as needed")
	}
}

func TestSetReplacesWholesale(t *testing.T) {
	tr := NewTracker()
	tr.SetChallenge([][2]string{{"20M", "248"}})
	tr.SetChallenge([][2]string{{"15M", "291"}})

	if !tr.IsNeededChallenge("248", "20M") {
		t.Error("old slot survived a reload")
	}
	if tr.IsNeededChallenge("291", "15M") {
		t.Error("new slot missing after reload")
	}
}

func TestChallengeStats(t *testing.T) {
	tr := NewTracker()
	tr.SetChallenge([][2]string{
		{"20M", "248"},
		{"15M", "248"},
		{"20M", "291"},
	})
	st := tr.Challenge()
	if !st.Loaded || st.TotalSlots != 3 || st.TotalEntities != 2 {
		t.Fatalf("unexpected stats: %+v", st)
	}
	if st.Bands["20M"] != 2 || st.Bands["15M"] != 1 {
		t.Fatalf("unexpected band counts: %+v", st.Bands)
	}
}

func TestMissingGrids(t *testing.T) {
	tr := NewTracker()
	tr.SetEligibleGrids([]string{"EM48", "DN13", "CM79"})
	tr.SetWorkedGrids(map[string]WorkedGrid{"DN13": {}})
	missing := tr.MissingGrids()
	if len(missing) != 2 || missing[0] != "CM79" || missing[1] != "EM48" {
		t.Fatalf("missing = %v", missing)
	}
}

func TestLoadChallengeFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "challenge_data.json")
	content := `{"raw_band_entity_pairs": [["20M", 248], ["15M", "291"], ["bad"], [5, 5]]}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	tr := NewTracker()
	if err := tr.LoadChallengeFile(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if tr.IsNeededChallenge("248", "20M") {
		t.Error("numeric entity pair not loaded")
	}
	if tr.IsNeededChallenge("291", "15M") {
		t.Error("string entity pair not loaded")
	}
	if st := tr.Challenge(); st.TotalSlots != 2 {
		t.Errorf("TotalSlots = %d, want 2 (malformed pairs skipped)", st.TotalSlots)
	}
}

func TestLoadWorkedGridsAndCatalog(t *testing.T) {
	dir := t.TempDir()
	gridsPath := filepath.Join(dir, "ffma_data.json")
	catalogPath := filepath.Join(dir, "ffma_grids.json")

	grids := `{"worked_grids": {"EM48": {"call": "W0ABC", "date": "2024-06-01"}}}`
	catalog := `["EM48", "DN13"]`
	if err := os.WriteFile(gridsPath, []byte(grids), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(catalogPath, []byte(catalog), 0o644); err != nil {
		t.Fatal(err)
	}

	tr := NewTracker()
	if err := tr.LoadEligibleGridsFile(catalogPath); err != nil {
		t.Fatalf("catalog: %v", err)
	}
	if err := tr.LoadWorkedGridsFile(gridsPath); err != nil {
		t.Fatalf("grids: %v", err)
	}
	if tr.IsNeededGrid("EM48") {
		t.Error("worked grid reported as needed")
	}
	if !tr.IsNeededGrid("DN13") {
		t.Error("unworked catalog grid not reported as needed")
	}
	st := tr.Grids()
	if st.Eligible != 2 || st.Worked != 1 || st.Completion != 50 {
		t.Fatalf("unexpected grid stats: %+v", st)
	}
}
