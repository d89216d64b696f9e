// Package cc11 parses the VE7CC CC11 line protocol. Each inbound line maps to
// exactly one of: a spot, a solar-index update, or nothing. The parser holds
// no state; every call is independent.
package cc11

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"dxwatch/spot"
)

// CC11 field indices. The full frame is:
// CC11^freq^dx call^date^time^comment^spotter^hops^rx node^origin node^
// spotter itu^spotter cq^dx itu^dx cq^spotter state^dx state^spotter cty^
// dx cty^spotter grid^dx grid^spot type^spotter ip^timestamp
const (
	fieldTag     = 0
	fieldFreq    = 1
	fieldDXCall  = 2
	fieldZulu    = 4
	fieldComment = 5
	fieldSpotter = 6
	fieldDXCty   = 16
	fieldDXGrid  = 18

	minFields = 20
	spotTag   = "CC11"
)

// ignorePrefixes identifies non-spot traffic the cluster interleaves with the
// CC11 stream: WCY/WWV propagation bulletins and routing/"To ..." notices.
var ignorePrefixes = []string{"WCY", "WWV", "To "}

// Message is the closed set of parse results. A nil Message means the line
// carried nothing of interest and was discarded.
type Message interface {
	message()
}

// SpotMessage wraps a successfully parsed CC11 spot.
type SpotMessage struct {
	Spot *spot.Spot
}

// SolarMessage carries the indices from a date-stamped solar report row.
type SolarMessage struct {
	Solar Solar
}

// Solar holds the three indices reported by a WWV-style solar summary row.
type Solar struct {
	Date string // "30-Aug-2026"
	Flux int    // solar flux index
	A    int    // geomagnetic A-index
	K    int    // geomagnetic K-index
}

func (SpotMessage) message()  {}
func (SolarMessage) message() {}

// solarDateRE matches the leading DD-Mon-YYYY token of a sh/wwv response row.
var solarDateRE = regexp.MustCompile(`^\d{1,2}-[A-Za-z]{3}-\d{4}$`)

const minSolarLineLen = 25

// ParseLine turns one newline-stripped cluster line into a Message. Lines
// that carry nothing usable return nil; the feed routinely interleaves
// unrelated traffic, so malformed input is never an error.
func ParseLine(line string, now time.Time) Message {
	line = strings.TrimRight(line, "\r")
	if strings.TrimSpace(line) == "" {
		return nil
	}

	for _, prefix := range ignorePrefixes {
		if strings.HasPrefix(line, prefix) {
			return nil
		}
	}

	if solar, ok := parseSolarRow(line); ok {
		return SolarMessage{Solar: solar}
	}

	parts := strings.Split(line, "^")
	if len(parts) < minFields {
		return nil
	}
	if parts[fieldTag] != spotTag {
		return nil
	}

	s := &spot.Spot{
		Time:    parts[fieldZulu],
		Band:    spot.BandFromText(parts[fieldFreq]),
		Freq:    parts[fieldFreq],
		Call:    parts[fieldDXCall],
		Entity:  parts[fieldDXCty],
		Grid:    parts[fieldDXGrid],
		Spotter: parts[fieldSpotter],
		Comment: parts[fieldComment],
		Arrived: now,
	}
	return SpotMessage{Spot: s}
}

// parseSolarRow recognizes the tabular sh/wwv response shape:
//
//	30-Aug-2026   21     150     8     2   No Storms -> No Storms
//
// A row must lead with a date token containing a 4-digit year and meet a
// minimum length; SFI, A and K sit at fixed token positions. Any parse
// failure rejects the row so the caller falls through to Ignore.
func parseSolarRow(line string) (Solar, bool) {
	if len(line) < minSolarLineLen {
		return Solar{}, false
	}
	fields := strings.Fields(line)
	if len(fields) < 5 {
		return Solar{}, false
	}
	if !solarDateRE.MatchString(fields[0]) {
		return Solar{}, false
	}
	flux, err := strconv.Atoi(fields[2])
	if err != nil {
		return Solar{}, false
	}
	a, err := strconv.Atoi(fields[3])
	if err != nil {
		return Solar{}, false
	}
	k, err := strconv.Atoi(fields[4])
	if err != nil {
		return Solar{}, false
	}
	return Solar{Date: fields[0], Flux: flux, A: a, K: k}, true
}
