// Package award answers "is this spot still needed" against two independent
// award data sets: Challenge (band, entity) slots and FFMA worked grids.
// Both sets are immutable snapshots; a reload replaces the set wholesale.
package award

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

// WorkedGrid records the first confirmed QSO for a grid square.
type WorkedGrid struct {
	Grid string `json:"-"`    // 4-char normalized grid
	Call string `json:"call"` // first-worked callsign
	Date string `json:"date"` // first-worked date, "2006-01-02"
}

// Tracker holds the credited sets for both awards. Missing data fails open:
// with nothing loaded every "needed" answer is false, so the display never
// nags about an award it cannot verify.
type Tracker struct {
	challenge map[string]struct{} // "20M|248" slot set
	worked    map[string]WorkedGrid
	eligible  map[string]struct{} // qualifying grid catalog
}

// NewTracker returns a tracker with no award data loaded.
func NewTracker() *Tracker {
	return &Tracker{
		challenge: make(map[string]struct{}),
		worked:    make(map[string]WorkedGrid),
		eligible:  make(map[string]struct{}),
	}
}

// NormalizeBand upper-cases a band label and appends the meter suffix when
// missing, matching the award log convention ("20m" and "20" both become
// "20M"). Every set membership test runs through this.
func NormalizeBand(band string) string {
	b := strings.ToUpper(strings.TrimSpace(band))
	if b == "" {
		return ""
	}
	if !strings.HasSuffix(b, "M") {
		b += "M"
	}
	return b
}

// NormalizeGrid reduces a grid locator to its significant 4 characters,
// uppercased. Returns "" when the input is too short to qualify.
func NormalizeGrid(grid string) string {
	g := strings.ToUpper(strings.TrimSpace(grid))
	if len(g) < 4 {
		return ""
	}
	return g[:4]
}

func slotKey(band, entityID string) string {
	return NormalizeBand(band) + "|" + entityID
}

// SetChallenge replaces the Challenge slot set with the given (band,
// entityID) pairs.
func (t *Tracker) SetChallenge(pairs [][2]string) {
	set := make(map[string]struct{}, len(pairs))
	for _, p := range pairs {
		if p[0] == "" || p[1] == "" {
			continue
		}
		set[slotKey(p[0], p[1])] = struct{}{}
	}
	t.challenge = set
}

// SetWorkedGrids replaces the worked-grid set.
func (t *Tracker) SetWorkedGrids(grids map[string]WorkedGrid) {
	set := make(map[string]WorkedGrid, len(grids))
	for grid, rec := range grids {
		norm := NormalizeGrid(grid)
		if norm == "" {
			continue
		}
		rec.Grid = norm
		set[norm] = rec
	}
	t.worked = set
}

// SetEligibleGrids replaces the qualifying grid catalog.
func (t *Tracker) SetEligibleGrids(grids []string) {
	set := make(map[string]struct{}, len(grids))
	for _, g := range grids {
		if norm := NormalizeGrid(g); norm != "" {
			set[norm] = struct{}{}
		}
	}
	t.eligible = set
}

// ChallengeLoaded reports whether any Challenge slots are present.
func (t *Tracker) ChallengeLoaded() bool { return len(t.challenge) > 0 }

// IsNeededChallenge reports whether the (entity, band) slot has not been
// credited yet. With no data loaded the answer is always false.
func (t *Tracker) IsNeededChallenge(entityID, band string) bool {
	if len(t.challenge) == 0 || entityID == "" {
		return false
	}
	_, worked := t.challenge[slotKey(band, entityID)]
	return !worked
}

// IsNeededGrid reports whether the grid counts toward the grid award and has
// not been worked. Grids outside the eligible catalog are never needed.
func (t *Tracker) IsNeededGrid(grid string) bool {
	norm := NormalizeGrid(grid)
	if norm == "" {
		return false
	}
	if _, ok := t.eligible[norm]; !ok {
		return false
	}
	_, worked := t.worked[norm]
	return !worked
}

// ChallengeStats summarizes the loaded Challenge set.
type ChallengeStats struct {
	Loaded        bool
	TotalSlots    int
	TotalEntities int
	Bands         map[string]int // slots per band
}

// GridStats summarizes grid award progress.
type GridStats struct {
	Eligible   int
	Worked     int
	Completion float64 // percent
}

// Challenge returns slot statistics for display.
func (t *Tracker) Challenge() ChallengeStats {
	st := ChallengeStats{Loaded: len(t.challenge) > 0, Bands: make(map[string]int)}
	entities := make(map[string]struct{})
	for key := range t.challenge {
		band, entity, ok := strings.Cut(key, "|")
		if !ok {
			continue
		}
		st.Bands[band]++
		entities[entity] = struct{}{}
	}
	st.TotalSlots = len(t.challenge)
	st.TotalEntities = len(entities)
	return st
}

// Grids returns grid award progress for display.
func (t *Tracker) Grids() GridStats {
	st := GridStats{Eligible: len(t.eligible), Worked: len(t.worked)}
	if st.Eligible > 0 {
		st.Completion = float64(st.Worked) / float64(st.Eligible) * 100
	}
	return st
}

// MissingGrids lists eligible grids not yet worked, sorted.
func (t *Tracker) MissingGrids() []string {
	missing := make([]string, 0, len(t.eligible))
	for g := range t.eligible {
		if _, ok := t.worked[g]; !ok {
			missing = append(missing, g)
		}
	}
	sort.Strings(missing)
	return missing
}

// challengeFile is the award-log summary shape: a JSON list of
// [band, entityId] pairs where the entity may be a number or a string.
type challengeFile struct {
	RawBandEntityPairs [][]any `json:"raw_band_entity_pairs"`
}

// LoadChallengeFile reads a previously parsed award-log summary and replaces
// the Challenge set.
func (t *Tracker) LoadChallengeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read challenge data: %w", err)
	}
	var file challengeFile
	if err := jsoniter.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse challenge data: %w", err)
	}
	pairs := make([][2]string, 0, len(file.RawBandEntityPairs))
	for _, raw := range file.RawBandEntityPairs {
		if len(raw) != 2 {
			continue
		}
		band, ok := raw[0].(string)
		if !ok {
			continue
		}
		entity := entityIDString(raw[1])
		if entity == "" {
			continue
		}
		pairs = append(pairs, [2]string{band, entity})
	}
	t.SetChallenge(pairs)
	return nil
}

// entityIDString coerces a JSON entity value (number or string) to the
// canonical string identifier.
func entityIDString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.Itoa(int(val))
	default:
		return ""
	}
}

// workedGridsFile is the saved grid-award shape.
type workedGridsFile struct {
	WorkedGrids map[string]WorkedGrid `json:"worked_grids"`
}

// LoadWorkedGridsFile reads a worked-grid map and replaces the worked set.
func (t *Tracker) LoadWorkedGridsFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read worked grids: %w", err)
	}
	var file workedGridsFile
	if err := jsoniter.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse worked grids: %w", err)
	}
	t.SetWorkedGrids(file.WorkedGrids)
	return nil
}

// LoadEligibleGridsFile reads the fixed catalog of qualifying grids.
func (t *Tracker) LoadEligibleGridsFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read grid catalog: %w", err)
	}
	var grids []string
	if err := jsoniter.Unmarshal(data, &grids); err != nil {
		return fmt.Errorf("parse grid catalog: %w", err)
	}
	t.SetEligibleGrids(grids)
	return nil
}
