// Package spot defines the canonical spot structure and the band plan used
// across the ingest/classification pipeline.
package spot

import (
	"fmt"
	"strings"
	"time"
)

// Spot represents one reported observation of a station, extracted from a
// CC11 cluster line. Spots are immutable after creation; the classifier owns
// them once enqueued.
type Spot struct {
	Time    string // time-of-day as reported by the cluster (e.g., "0531Z")
	Band    string // derived band label (e.g., "20m") or UnknownBand
	Freq    string // frequency in kHz, as text, exactly as received
	Call    string // DX station being spotted
	Entity  string // DX entity prefix as carried by the cluster (e.g., "IT9")
	Grid    string // DX Maidenhead grid, 0-6 chars, may be empty
	Spotter string // station reporting the spot
	Comment string // free-text comment
	Arrived time.Time
}

// Key identifies a spot for needed-buffer replacement: two spots with the
// same DX call on the same band occupy one slot.
func (s *Spot) Key() string {
	return strings.ToUpper(s.Call) + "|" + strings.ToUpper(s.Band)
}

// String returns a human-readable representation for logs.
func (s *Spot) String() string {
	return fmt.Sprintf("[%s] %s spotted %s on %s kHz (%s) %s",
		s.Time, s.Spotter, s.Call, s.Freq, s.Band, s.Comment)
}
