package classify

import "strings"

// Filter is the display predicate applied at snapshot time. Zero value
// matches everything. Filtering only affects what a snapshot returns; it
// never removes entries from the buffers.
type Filter struct {
	// Bands restricts the view to these bands when non-empty.
	Bands map[string]struct{}
	// GridPrefix keeps spots whose grid starts with this prefix.
	GridPrefix string
	// EntityContains keeps spots whose DX entity prefix contains this text.
	EntityContains string
	// BlockedSpotters drops spots reported by these callsigns.
	BlockedSpotters map[string]struct{}
	// NeededOnly hides spots that neither award wants.
	NeededOnly bool
}

// NewFilter builds a Filter from plain config values.
func NewFilter(bands []string, gridPrefix, entityContains string, blockedSpotters []string) Filter {
	f := Filter{
		GridPrefix:     strings.ToUpper(strings.TrimSpace(gridPrefix)),
		EntityContains: strings.ToUpper(strings.TrimSpace(entityContains)),
	}
	if len(bands) > 0 {
		f.Bands = make(map[string]struct{}, len(bands))
		for _, b := range bands {
			f.Bands[strings.ToUpper(strings.TrimSpace(b))] = struct{}{}
		}
	}
	if len(blockedSpotters) > 0 {
		f.BlockedSpotters = make(map[string]struct{}, len(blockedSpotters))
		for _, s := range blockedSpotters {
			f.BlockedSpotters[strings.ToUpper(strings.TrimSpace(s))] = struct{}{}
		}
	}
	return f
}

// Match reports whether the classified spot passes the filter.
func (f Filter) Match(c Classified) bool {
	s := c.Spot
	if s == nil {
		return false
	}
	if len(f.BlockedSpotters) > 0 {
		if _, blocked := f.BlockedSpotters[strings.ToUpper(s.Spotter)]; blocked {
			return false
		}
	}
	if len(f.Bands) > 0 {
		if _, ok := f.Bands[strings.ToUpper(s.Band)]; !ok {
			return false
		}
	}
	if f.GridPrefix != "" && !strings.HasPrefix(strings.ToUpper(s.Grid), f.GridPrefix) {
		return false
	}
	if f.EntityContains != "" && !strings.Contains(strings.ToUpper(s.Entity), f.EntityContains) {
		return false
	}
	if f.NeededOnly && !c.Needed() {
		return false
	}
	return true
}
